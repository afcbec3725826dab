// Command jsdocify translates a structurally-typed TypeScript-like program
// into plain JavaScript carrying its type information in structured
// comments, per the Annotation Transformer and Externs Generator design.
package main

import (
	"fmt"
	"os"
	"strings"
)

const version = "0.0.1-dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		return runTranslate(nil)
	}

	switch os.Args[1] {
	case "translate":
		return runTranslate(os.Args[2:])
	case "check":
		return runCheck(os.Args[2:])
	case "dump-metadata":
		return runDump(os.Args[2:])
	case "--version", "-v":
		fmt.Println("jsdocify", version)
		return 0
	case "--help", "-h":
		printUsage()
		return 0
	default:
		if strings.HasPrefix(os.Args[1], "-") {
			return runTranslate(os.Args[1:])
		}
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println("jsdocify - translates structural type syntax into annotation-comment types")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  jsdocify [flags]                 Translate project (default)")
	fmt.Println("  jsdocify translate [flags]       Translate project")
	fmt.Println("  jsdocify check [flags]           Parse + type-check only, print diagnostics")
	fmt.Println("  jsdocify dump-metadata [flags]    Print resolved types for a file as JSON")
	fmt.Println()
	fmt.Println("Global Flags:")
	fmt.Println("  --version, -v          Print version and exit")
	fmt.Println("  --help, -h             Print this help message")
	fmt.Println()
	fmt.Println("Translate Flags:")
	fmt.Println("  --project, -p <path>   Path to tsconfig.json (default: tsconfig.json)")
	fmt.Println("  --config <path>        Path to jsdocify.config.json")
	fmt.Println("  --watch                Re-translate on file change")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  jsdocify")
	fmt.Println("  jsdocify translate --project tsconfig.build.json")
	fmt.Println("  jsdocify check -p tsconfig.json")
	fmt.Println("  jsdocify dump-metadata --project tsconfig.json src/foo.ts")
}
