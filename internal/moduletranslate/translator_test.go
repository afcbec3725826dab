package moduletranslate_test

import (
	"path"
	"runtime"
	"strings"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"

	"github.com/jsdocify/jsdocify/internal/moduletranslate"
	"github.com/jsdocify/jsdocify/internal/testutil"
)

func testDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return path.Dir(filename)
}

type stubSink struct {
	errors, warnings []string
}

func (s *stubSink) Error(file string, line, col int, message string) {
	s.errors = append(s.errors, message)
}
func (s *stubSink) Warn(file string, line, col int, message string) {
	s.warnings = append(s.warnings, message)
}

func typeSymbol(t *testing.T, env *testutil.Env, typeAliasName string) *ast.Symbol {
	t.Helper()
	for _, stmt := range env.SourceFile.Statements() {
		if stmt.Kind != ast.KindTypeAliasDeclaration {
			continue
		}
		decl := stmt.AsTypeAliasDeclaration()
		if decl.Name().Text() != typeAliasName {
			continue
		}
		typ := shimchecker.Checker_getTypeFromTypeNode(env.Checker, decl.Type)
		return typ.Symbol()
	}
	t.Fatalf("type alias %q not found", typeAliasName)
	return nil
}

func TestForwardDeclareFor_SameFileSymbolNeedsNoForwardDeclare(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "interface Foo { x: number }\ntype T = Foo;")
	defer env.Release()

	tr := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{}, &stubSink{}, false)
	sym := typeSymbol(t, env, "T")
	if got := tr.ForwardDeclareFor(sym); got != "" {
		t.Errorf("got %q, want empty alias for a same-file symbol", got)
	}
	if len(tr.ForwardDeclares()) != 0 {
		t.Errorf("expected no forward declares registered, got %v", tr.ForwardDeclares())
	}
}

func TestForwardDeclareFor_LibSymbolIsDeduplicatedAcrossCalls(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "type T = Date;")
	defer env.Release()

	tr := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{}, &stubSink{}, false)
	sym := typeSymbol(t, env, "T")

	first := tr.ForwardDeclareFor(sym)
	if first == "" {
		t.Fatal("expected a non-empty alias for a lib-declared symbol")
	}
	second := tr.ForwardDeclareFor(sym)
	if second != first {
		t.Errorf("expected repeat calls to return the same alias, got %q then %q", first, second)
	}
	if len(tr.ForwardDeclares()) != 1 {
		t.Errorf("expected exactly one forward declare entry, got %d", len(tr.ForwardDeclares()))
	}
}

const crossFileFixture = `
-- a.ts --
export interface Foo {
	x: number;
}
-- b.ts --
import { Foo } from "./a";
export type T = Foo;
`

func TestForwardDeclareFor_ImportedSymbolFromAnotherProjectFile(t *testing.T) {
	files := testutil.ParseFiles(crossFileFixture)
	env := testutil.NewMultiFileEnv(t, testDir(), files, "b.ts")
	defer env.Release()

	tr := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{}, &stubSink{}, false)
	sym := typeSymbol(t, env, "T")

	alias := tr.ForwardDeclareFor(sym)
	if alias == "" {
		t.Fatal("expected a non-empty alias for a symbol imported from another file")
	}

	declares := tr.ForwardDeclares()
	if len(declares) != 1 {
		t.Fatalf("expected exactly one forward declare, got %d", len(declares))
	}
	if !strings.Contains(declares[0].ModulePath, "a.ts") {
		t.Errorf("expected the forward declare's module path to point at a.ts, got %q", declares[0].ModulePath)
	}
}

func TestTargetsOutputModuleFormat(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "const a = 1;")
	defer env.Release()

	esm := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{}, &stubSink{}, false)
	if !esm.TargetsOutputModuleFormat() {
		t.Error("expected the default (empty) module format to target esm")
	}

	cjs := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{TargetModuleFormat: "cjs"}, &stubSink{}, false)
	if cjs.TargetsOutputModuleFormat() {
		t.Error("expected an explicit cjs host to not target esm")
	}
}

func TestIsForExterns(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "const a = 1;")
	defer env.Release()

	tr := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{}, &stubSink{}, true)
	if !tr.IsForExterns() {
		t.Error("expected IsForExterns to reflect the constructor argument")
	}
}

func TestMutableComment_UpdateCommentCommitsSerializedTags(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "const a = 1;")
	defer env.Release()

	tr := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{}, &stubSink{}, false)

	var committedText string
	var committedTrailing bool
	commit := func(text string, trailing bool) {
		committedText = text
		committedTrailing = trailing
	}

	mc := tr.GetMutableJSDoc(nil, commit)
	if mc.HasType() {
		t.Error("a fresh MutableComment should not already have a type")
	}
	mc.SetType("string")
	if !mc.HasType() {
		t.Error("expected HasType after SetType")
	}
	mc.UpdateComment()

	if committedText == "" {
		t.Error("expected UpdateComment to commit a non-empty serialized comment")
	}
	if committedTrailing {
		t.Error("expected the default (leading) trailing flag to be false")
	}
}

func TestDiagnosticSink_WarnIsCalledThroughDebugWarn(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "const a = 1;")
	defer env.Release()

	sink := &stubSink{}
	tr := moduletranslate.New(env.Checker, env.SourceFile, moduletranslate.Host{}, sink, false)
	tr.DebugWarn("heads up")

	if len(sink.warnings) != 1 || sink.warnings[0] != "heads up" {
		t.Errorf("got %v, want a single \"heads up\" warning", sink.warnings)
	}
}
