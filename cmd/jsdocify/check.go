package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"

	"github.com/jsdocify/jsdocify/internal/compiler"
	"github.com/jsdocify/jsdocify/internal/runner"
)

// runCheck implements the `check` subcommand: parse and type-check the
// project without emitting any AT-dialect output, printing the ST-dialect
// parser/checker's own diagnostics. With --exec, a passing check spawns the
// given command (e.g. a JS test runner over already-translated output) once
// and waits for it to exit. There is no --watch mode for check.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)

	var (
		tsconfigPath string
		execCommand  string
		pretty       bool
	)
	fs.StringVar(&tsconfigPath, "project", "tsconfig.json", "Path to tsconfig.json (or use -p)")
	fs.StringVar(&tsconfigPath, "p", "tsconfig.json", "Path to tsconfig.json (shorthand for --project)")
	fs.StringVar(&execCommand, "exec", "", "Command to run after a clean check (e.g. a test runner)")
	fs.BoolVar(&pretty, "pretty", compiler.IsPrettyOutput(), "Use colored, snippeted diagnostic output")
	fs.Usage = func() {
		fmt.Println("Usage: jsdocify check [flags]")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not get working directory: %v\n", err)
		return 1
	}

	clean := checkOnce(cwd, tsconfigPath, pretty)

	if execCommand == "" {
		if clean {
			return 0
		}
		return 1
	}

	fields := strings.Fields(execCommand)
	if len(fields) == 0 {
		fmt.Fprintln(os.Stderr, "error: --exec requires a command")
		return 1
	}
	if !clean {
		fmt.Fprintln(os.Stderr, "check failed, skipping --exec")
		return 1
	}

	r := runner.New(fields[0], fields[1:], cwd)
	if err := r.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: starting %q: %v\n", execCommand, err)
		return 1
	}
	r.Wait()
	return 0
}

// checkOnce parses and type-checks the project once, printing diagnostics,
// and reports whether the project checked clean.
func checkOnce(cwd, tsconfigPath string, pretty bool) bool {
	tsFS := compiler.CreateDefaultFS()
	host := compiler.CreateDefaultHost(cwd, tsFS)

	parsedConfig, diags, err := compiler.ParseTSConfig(tsFS, cwd, tsconfigPath, host, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	if len(diags) > 0 {
		fmt.Fprint(os.Stderr, compiler.FormatDiagnostics(diags))
		return false
	}

	program, programDiags, err := compiler.CreateProgramFromConfig(false, parsedConfig, host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return false
	}
	if len(programDiags) > 0 {
		fmt.Fprint(os.Stderr, compiler.FormatDiagnostics(programDiags))
		return false
	}

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		fmt.Fprintln(os.Stderr, "error: could not get type checker")
		return false
	}
	release()

	checkDiags := compiler.GatherDiagnostics(program, false)
	if len(checkDiags) == 0 {
		fmt.Fprintln(os.Stderr, "no issues")
		return true
	}

	report := compiler.CreateDiagnosticReporter(os.Stderr, cwd, pretty)
	for _, d := range checkDiags {
		report(d)
	}
	compiler.WriteErrorSummary(os.Stderr, checkDiags, cwd)
	return compiler.CountErrors(checkDiags) == 0
}
