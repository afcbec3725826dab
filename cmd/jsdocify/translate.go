package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microsoft/typescript-go/shim/ast"
	shimcompiler "github.com/microsoft/typescript-go/shim/compiler"
	"golang.org/x/sync/errgroup"

	"github.com/jsdocify/jsdocify/internal/annotate"
	"github.com/jsdocify/jsdocify/internal/buildcache"
	"github.com/jsdocify/jsdocify/internal/compiler"
	"github.com/jsdocify/jsdocify/internal/config"
	"github.com/jsdocify/jsdocify/internal/diagnostic"
	"github.com/jsdocify/jsdocify/internal/externs"
	"github.com/jsdocify/jsdocify/internal/moduletranslate"
	"github.com/jsdocify/jsdocify/internal/watcher"
)

// runTranslate implements the `translate` subcommand: build a program,
// run the Annotation Transformer over non-declaration files and the
// Externs Generator over declaration-only files, writing AT-dialect
// output next to the (tsc-configured) output directory.
func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ExitOnError)

	var (
		configPath   string
		tsconfigPath string
		watch        bool
	)
	fs.StringVar(&configPath, "config", "", "Path to jsdocify config file")
	fs.StringVar(&tsconfigPath, "project", "tsconfig.json", "Path to tsconfig.json (or use -p)")
	fs.StringVar(&tsconfigPath, "p", "tsconfig.json", "Path to tsconfig.json (shorthand for --project)")
	fs.BoolVar(&watch, "watch", false, "Re-translate on file change")
	fs.Usage = func() {
		fmt.Println("Usage: jsdocify translate [flags]")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not get working directory: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(cwd, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	runOnce := func() int { return translateOnce(cwd, tsconfigPath, cfg) }

	if !watch {
		return runOnce()
	}

	fmt.Fprintln(os.Stderr, "watching for changes...")
	runOnce()
	w := watcher.New([]string{filepath.Dir(tsconfigPath)}, []string{".ts", ".tsx"}, 300*time.Millisecond, func(events []watcher.Event) {
		fmt.Fprintf(os.Stderr, "%d file(s) changed, re-translating\n", len(events))
		runOnce()
	})
	if err := w.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "error: watch: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(cwd, configPath string) (*config.Config, error) {
	if configPath != "" {
		resolved := configPath
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(cwd, resolved)
		}
		return config.Load(resolved)
	}
	defaultPath := filepath.Join(cwd, "jsdocify.config.json")
	if _, err := os.Stat(defaultPath); err == nil {
		return config.Load(defaultPath)
	}
	cfg := config.DefaultConfig()
	return &cfg, nil
}

func translateOnce(cwd, tsconfigPath string, cfg *config.Config) int {
	tsFS := compiler.CreateDefaultFS()
	host := compiler.CreateDefaultHost(cwd, tsFS)

	parsedConfig, diags, err := compiler.ParseTSConfig(tsFS, cwd, tsconfigPath, host, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.String())
		}
		return 1
	}

	program, programDiags, err := compiler.CreateProgramFromConfig(false, parsedConfig, host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if len(programDiags) > 0 {
		for _, d := range programDiags {
			fmt.Fprintln(os.Stderr, d.String())
		}
		return 1
	}

	checker, release := shimcompiler.Program_GetTypeChecker(program, context.Background())
	if checker == nil {
		fmt.Fprintln(os.Stderr, "error: could not get type checker")
		return 1
	}
	defer release()

	opts := parsedConfig.CompilerOptions()
	outDir := opts.OutDir

	cachePath := buildcache.CachePath(outDir, tsconfigPath)
	configHash := buildcache.HashContent([]byte(fmt.Sprintf("%+v", cfg)))
	cache := buildcache.Load(cachePath)

	collector := diagnostic.NewCollector(cfg.Strict, cfg.Quiet)
	sink := diagnostic.Sink{Collector: collector}

	mtHost := moduletranslate.Host{
		TypeBlacklistPaths:          cfg.BlacklistSet(),
		UntypedMode:                 cfg.Untyped,
		ConvertIndexImportShorthand: cfg.ConvertIndexImportShorthand,
		DisableAutoQuoting:          cfg.DisableAutoQuoting,
		TargetModuleFormat:          cfg.ModuleFormat,
		PathToModuleName:            defaultPathToModuleName,
	}

	sourceFiles := program.GetSourceFiles()

	// Files own no shared mutable state, so they fan out across
	// goroutines with errgroup freely.
	var g errgroup.Group
	var mu sync.Mutex
	newHashes := make(map[string]string)
	record := func(path, hash string) {
		mu.Lock()
		newHashes[path] = hash
		mu.Unlock()
	}
	for _, sf := range sourceFiles {
		sf := sf
		if !shouldTranslate(sf) || (isAmbientOnly(sf) && !cfg.EmitExterns) {
			continue
		}
		g.Go(func() error {
			content := []byte(sf.Text())
			hash := buildcache.HashContent(content)
			if cache.UpToDate(configHash, sf.FileName(), hash) {
				record(sf.FileName(), hash)
				return nil
			}

			mt := moduletranslate.New(checker, sf, mtHost, sink, isDeclarationFile(sf))
			var output string
			if isAmbientOnly(sf) {
				output = externs.New(checker, sf, mt).Generate()
			} else {
				output = annotate.New(checker, sf, mt).Transform()
			}

			if err := writeOutput(sf.FileName(), opts.RootDir, outDir, output); err != nil {
				fmt.Fprintf(os.Stderr, "error writing output for %s: %v\n", sf.FileName(), err)
			}
			record(sf.FileName(), hash)
			return nil
		})
	}
	g.Wait()
	if outDir != "" {
		if err := buildcache.Save(cachePath, buildcache.New(configHash, newHashes)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save cache: %v\n", err)
		}
	}

	if collector.HasErrors() {
		fmt.Fprint(os.Stderr, collector.FormatAll())
		return 1
	}
	fmt.Fprintln(os.Stderr, collector.Summary())
	return 0
}

func shouldTranslate(sf *ast.SourceFile) bool {
	name := sf.FileName()
	return !strings.Contains(name, "node_modules")
}

func isDeclarationFile(sf *ast.SourceFile) bool {
	return strings.HasSuffix(sf.FileName(), ".d.ts")
}

// isAmbientOnly routes a source file to the Externs Generator when it is a
// declaration file.
func isAmbientOnly(sf *ast.SourceFile) bool {
	return isDeclarationFile(sf)
}

func writeOutput(sourcePath, rootDir, outDir, content string) error {
	if outDir == "" {
		fmt.Println(content)
		return nil
	}
	rel := sourcePath
	if rootDir != "" {
		if r, err := filepath.Rel(rootDir, sourcePath); err == nil {
			rel = r
		}
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".js"
	dest := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0644)
}

// defaultPathToModuleName implements the host contract's
// pathToModuleName(importerPath, importedPath) as a pure function: the
// slash-joined path relative to the importer's directory, extension
// stripped — the same convention tsc/tsickle use absent a bundler-specific
// module-name scheme.
func defaultPathToModuleName(importerPath, importedPath string) string {
	rel, err := filepath.Rel(filepath.Dir(importerPath), importedPath)
	if err != nil {
		rel = importedPath
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel)
}
