package testutil

import (
	"context"
	"testing"

	"github.com/microsoft/typescript-go/shim/ast"
	"github.com/microsoft/typescript-go/shim/bundled"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"github.com/microsoft/typescript-go/shim/core"
	"github.com/microsoft/typescript-go/shim/tsoptions"
	"github.com/microsoft/typescript-go/shim/tspath"
)

// Env holds a type-checked, in-memory tsgo program built from a single
// inline source file, for tests that need a real checker and AST rather
// than a hand-built fixture.
type Env struct {
	Program    *shimcompiler.Program
	Checker    *shimchecker.Checker
	SourceFile *ast.SourceFile
	Release    func()
}

// NewEnv parses and type-checks tsSource as fileName (conventionally
// "test.ts") in an overlay filesystem rooted at rootDir, returning the
// checker and source file for direct inspection. Call env.Release() when
// done with the checker.
func NewEnv(t *testing.T, rootDir, fileName, tsSource string) *Env {
	t.Helper()
	return NewMultiFileEnv(t, rootDir, map[string]string{fileName: tsSource}, fileName)
}

// NewMultiFileEnv is NewEnv generalized to a small project of several
// files sharing one overlay filesystem and one program, for tests that
// need real cross-file symbol resolution (import specifiers, forward
// declares) rather than a single inline snippet. entryFile selects which
// of files becomes Env.SourceFile.
func NewMultiFileEnv(t *testing.T, rootDir string, files map[string]string, entryFile string) *Env {
	t.Helper()

	virtual := make(map[string]string, len(files))
	for name, src := range files {
		virtual[tspath.ResolvePath(rootDir, name)] = src
	}
	fs := NewDefaultOverlayVFS(virtual)
	host := shimcompiler.NewCompilerHost(rootDir, fs, bundled.LibPath(), nil, nil)

	configParseResult, diags := tsoptions.GetParsedCommandLineOfConfigFile(
		"tsconfig.json", &core.CompilerOptions{}, nil, host, nil,
	)
	if len(diags) > 0 {
		t.Fatalf("tsconfig parse errors: %v", diags[0].String())
	}

	program := shimcompiler.NewProgram(shimcompiler.ProgramOptions{
		Config:                      configParseResult,
		SingleThreaded:              core.TSTrue,
		Host:                        host,
		UseSourceOfProjectReference: true,
	})
	if program == nil {
		t.Fatal("failed to create program")
	}
	program.BindSourceFiles()

	sourceFile := program.GetSourceFile(entryFile)
	if sourceFile == nil {
		t.Fatalf("source file %q not found in program", entryFile)
	}

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		t.Fatal("failed to get type checker")
	}

	return &Env{Program: program, Checker: checker, SourceFile: sourceFile, Release: release}
}
