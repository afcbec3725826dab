package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"

	"github.com/jsdocify/jsdocify/internal/compiler"
	"github.com/jsdocify/jsdocify/internal/diagnostic"
	"github.com/jsdocify/jsdocify/internal/moduletranslate"
	"github.com/jsdocify/jsdocify/internal/typestring"
)

// typeDump is the JSON output shape for `dump-metadata`: the AT-dialect
// type string the Type-String Translator would emit for each named type
// declaration in a file, reporting rendered type strings rather than a
// structural metadata tree.
type typeDump struct {
	FileName string            `json:"fileName"`
	Types    map[string]string `json:"types"`
}

// runDump implements the `dump-metadata` subcommand: print, as JSON, the
// Type-String Translator's rendering of every named type declaration in
// the given files (or every non-declaration file in the project, if none
// are named).
func runDump(args []string) int {
	fs := flag.NewFlagSet("dump-metadata", flag.ExitOnError)

	var tsconfigPath string
	fs.StringVar(&tsconfigPath, "project", "tsconfig.json", "Path to tsconfig.json (or use -p)")
	fs.StringVar(&tsconfigPath, "p", "tsconfig.json", "Path to tsconfig.json (shorthand for --project)")
	fs.Usage = func() {
		fmt.Println("Usage: jsdocify dump-metadata [flags] [file...]")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	wanted := make(map[string]bool, fs.NArg())
	for _, a := range fs.Args() {
		wanted[a] = true
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not get working directory: %v\n", err)
		return 1
	}

	tsFS := compiler.CreateDefaultFS()
	host := compiler.CreateDefaultHost(cwd, tsFS)

	parsedConfig, diags, err := compiler.ParseTSConfig(tsFS, cwd, tsconfigPath, host, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if len(diags) > 0 {
		fmt.Fprint(os.Stderr, compiler.FormatDiagnostics(diags))
		return 1
	}

	program, programDiags, err := compiler.CreateProgramFromConfig(false, parsedConfig, host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if len(programDiags) > 0 {
		fmt.Fprint(os.Stderr, compiler.FormatDiagnostics(programDiags))
		return 1
	}

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		fmt.Fprintln(os.Stderr, "error: could not get type checker")
		return 1
	}
	defer release()

	collector := diagnostic.NewCollector(false, true)
	sink := diagnostic.Sink{Collector: collector}
	mtHost := moduletranslate.Host{PathToModuleName: defaultPathToModuleName, TargetModuleFormat: "esm"}

	var dumps []typeDump
	for _, sf := range program.GetSourceFiles() {
		if sf.IsDeclarationFile {
			continue
		}
		if len(wanted) > 0 && !wanted[sf.FileName()] {
			continue
		}

		mt := moduletranslate.New(checker, sf, mtHost, sink, false)
		ts := typestring.New(checker, mt)

		types := make(map[string]string)
		for _, stmt := range sf.Statements() {
			name, typ, ok := namedDeclaredType(checker, stmt)
			if !ok {
				continue
			}
			types[name] = ts.Translate(typ, stmt)
		}
		if len(types) > 0 {
			dumps = append(dumps, typeDump{FileName: sf.FileName(), Types: types})
		}
	}

	data, err := json.Marshal(dumps, jsontext.WithIndent("  "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error encoding JSON: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

func namedDeclaredType(checker *shimchecker.Checker, stmt *ast.Node) (string, *shimchecker.Type, bool) {
	var nameNode *ast.Node
	switch stmt.Kind {
	case ast.KindTypeAliasDeclaration:
		nameNode = stmt.AsTypeAliasDeclaration().Name()
	case ast.KindInterfaceDeclaration:
		nameNode = stmt.AsInterfaceDeclaration().Name()
	case ast.KindClassDeclaration:
		nameNode = stmt.AsClassDeclaration().Name()
	case ast.KindEnumDeclaration:
		nameNode = stmt.AsEnumDeclaration().Name()
	default:
		return "", nil, false
	}
	if nameNode == nil {
		return "", nil, false
	}
	sym := checker.GetSymbolAtLocation(nameNode)
	if sym == nil {
		return "", nil, false
	}
	return nameNode.Text(), shimchecker.Checker_getDeclaredTypeOfSymbol(checker, sym), true
}
