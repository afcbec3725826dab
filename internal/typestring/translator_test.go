package typestring_test

import (
	"path"
	"runtime"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"

	"github.com/jsdocify/jsdocify/internal/testutil"
	"github.com/jsdocify/jsdocify/internal/typestring"
)

func testDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return path.Dir(filename)
}

// fakeParent is a minimal typestring.Parent that never aliases, never
// blacklists, and records DebugWarn calls for assertions.
type fakeParent struct {
	blacklisted map[string]bool
	untyped     bool
	warnings    []string
}

func (p *fakeParent) ResolveAlias(sym *ast.Symbol) (string, bool) { return "", false }
func (p *fakeParent) ForwardDeclareFor(sym *ast.Symbol) string    { return "" }
func (p *fakeParent) IsBlacklistedPath(typePath string) bool      { return p.blacklisted[typePath] }
func (p *fakeParent) Untyped() bool                               { return p.untyped }
func (p *fakeParent) DebugWarn(message string)                    { p.warnings = append(p.warnings, message) }

func translateNamedType(t *testing.T, src, typeName string) (string, *fakeParent) {
	t.Helper()
	env := testutil.NewEnv(t, testDir(), "test.ts", src)
	defer env.Release()

	parent := &fakeParent{blacklisted: map[string]bool{}}
	tr := typestring.New(env.Checker, parent)

	for _, stmt := range env.SourceFile.Statements() {
		switch stmt.Kind {
		case ast.KindTypeAliasDeclaration:
			decl := stmt.AsTypeAliasDeclaration()
			if decl.Name().Text() != typeName {
				continue
			}
			typ := shimchecker.Checker_getTypeFromTypeNode(env.Checker, decl.Type)
			return tr.Translate(typ, stmt), parent
		case ast.KindVariableStatement:
			for _, d := range stmt.AsVariableStatement().DeclarationList.AsVariableDeclarationList().Declarations {
				vd := d.AsVariableDeclaration()
				if vd.Name().Kind == ast.KindIdentifier && vd.Name().Text() == typeName {
					typ := shimchecker.Checker_getTypeAtLocation(env.Checker, vd.Name())
					return tr.Translate(typ, stmt), parent
				}
			}
		}
	}
	t.Fatalf("type %q not found", typeName)
	return "", parent
}

func TestTranslate_Primitives(t *testing.T) {
	cases := map[string]string{
		"a": "string",
		"b": "number",
		"c": "boolean",
	}
	src := "const a = 'x'; const b = 1; const c = true;"
	for name, want := range cases {
		got, _ := translateNamedType(t, src, name)
		if got != want {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestTranslate_Array(t *testing.T) {
	got, _ := translateNamedType(t, "type T = string[];", "T")
	if got != "!Array<string>" {
		t.Errorf("got %q, want %q", got, "!Array<string>")
	}
}

func TestTranslate_UnionOfTwoMembersIsParenthesized(t *testing.T) {
	got, _ := translateNamedType(t, "type T = string | number;", "T")
	if got != "(string|number)" && got != "(number|string)" {
		t.Errorf("got %q, want a parenthesized two-member union", got)
	}
}

func TestTranslate_NullableUnionCollapsesToSigil(t *testing.T) {
	got, _ := translateNamedType(t, "interface Foo { x: number }\ntype T = Foo | null;", "T")
	if got != "?Foo" {
		t.Errorf("got %q, want %q", got, "?Foo")
	}
}

func TestTranslate_UntypedModeAlwaysQuestionMark(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "type T = { a: string };")
	defer env.Release()

	parent := &fakeParent{blacklisted: map[string]bool{}, untyped: true}
	tr := typestring.New(env.Checker, parent)

	for _, stmt := range env.SourceFile.Statements() {
		if stmt.Kind == ast.KindTypeAliasDeclaration {
			decl := stmt.AsTypeAliasDeclaration()
			typ := shimchecker.Checker_getTypeFromTypeNode(env.Checker, decl.Type)
			if got := tr.Translate(typ, stmt); got != "?" {
				t.Errorf("got %q, want %q under untyped mode", got, "?")
			}
			return
		}
	}
	t.Fatal("type alias not found")
}

func TestIsBlacklisted_NoSymbolIsNotBlacklisted(t *testing.T) {
	env := testutil.NewEnv(t, testDir(), "test.ts", "const x = 1;")
	defer env.Release()
	parent := &fakeParent{blacklisted: map[string]bool{}}
	tr := typestring.New(env.Checker, parent)
	if tr.IsBlacklisted(nil) {
		t.Error("a nil symbol should not be reported blacklisted")
	}
}
