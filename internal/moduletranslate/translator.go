// Package moduletranslate implements the Module Type Translator: the
// per-file layer that owns symbol aliasing, forward-declare bookkeeping,
// and mutable-comment handles, wrapping internal/typestring's stateless
// type-to-string rendering with the file-scoped policy known as the host
// contract.
//
// Its shape — a per-file struct built once, consulted read-mostly while the
// Annotation Transformer / Externs Generator walk the tree, with state that
// only grows (new forward declares get appended, never removed) — mirrors
// a rewrite context paired with per-module import grouping.
package moduletranslate

import (
	"fmt"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"github.com/zeebo/xxh3"

	"github.com/jsdocify/jsdocify/internal/tagmodel"
	"github.com/jsdocify/jsdocify/internal/typestring"
)

// Host is the policy surface known as the host contract: the tunables a
// driver (cmd/jsdocify's translate subcommand) sets once per run and every
// per-file translator consults identically.
type Host struct {
	TypeBlacklistPaths          map[string]bool
	UntypedMode                 bool
	ConvertIndexImportShorthand bool
	DisableAutoQuoting          bool
	// TargetModuleFormat is "esm" or "cjs"; type-alias emission in
	// internal/annotate is gated on this.
	TargetModuleFormat string
	// PathToModuleName resolves an import specifier from importerPath to
	// the module name a forward declare should use.
	PathToModuleName func(importerPath, importedPath string) string
}

// ForwardDeclare is a synthetic import preserving type-only reachability
// after dead-code elimination.
type ForwardDeclare struct {
	ModulePath         string
	LocalAlias         string
	ExplicitlyImported bool
	DefaultImport      bool
}

// MutableComment is a handle onto one node's comment, returned by
// GetMutableJSDoc. Callers append tags through AddTag/SetType across
// multiple passes; UpdateComment() must be called once to splice the final
// text back into the node's leading (or trailing) trivia.
type MutableComment struct {
	node    *ast.Node
	comment tagmodel.Comment
	commit  func(text string, trailing bool)
}

func (m *MutableComment) AddTag(t tagmodel.Tag)         { m.comment.Add(t) }
func (m *MutableComment) SetType(atType string)         { m.comment.AddType(atType) }
func (m *MutableComment) HasType() bool                 { return m.comment.HasType() }
func (m *MutableComment) Tags() []tagmodel.Tag          { return m.comment.Tags }

// UpdateComment serializes the accumulated tags and commits them via the
// translator's output buffer for this node.
func (m *MutableComment) UpdateComment() {
	text := tagmodel.ToSerializedComment(m.comment.Tags, true)
	if text == "" {
		return
	}
	m.commit(text, m.comment.Trailing)
}

// Translator is the Module Type Translator: one instance per source file
// being translated.
type Translator struct {
	checker     *shimchecker.Checker
	sourceFile  *ast.SourceFile
	host        Host
	diagnostics DiagnosticSink

	types *typestring.Translator

	symbolAliases map[*ast.Symbol]string
	// aliasBasenames tracks which local alias basenames are already taken,
	// for xxh3-based collision-breaking when two modules would otherwise
	// want the same basename.
	aliasBasenames map[string]bool

	forwardDeclares      []*ForwardDeclare
	forwardDeclareByPath map[string]*ForwardDeclare

	isForExterns bool
}

// DiagnosticSink is the narrow logging surface the translator needs; the
// real implementation is internal/diagnostic.Collector.
type DiagnosticSink interface {
	Error(file string, line, col int, message string)
	Warn(file string, line, col int, message string)
}

// New constructs a Module Type Translator for one file.
func New(checker *shimchecker.Checker, sf *ast.SourceFile, host Host, diags DiagnosticSink, isForExterns bool) *Translator {
	t := &Translator{
		checker:              checker,
		sourceFile:           sf,
		host:                 host,
		diagnostics:          diags,
		symbolAliases:        make(map[*ast.Symbol]string),
		aliasBasenames:       make(map[string]bool),
		forwardDeclareByPath: make(map[string]*ForwardDeclare),
		isForExterns:         isForExterns,
	}
	t.types = typestring.New(checker, t)
	return t
}

// Types exposes the bound Type-String Translator for callers (the
// Annotation Transformer, the Externs Generator) that need to render a
// checker type directly.
func (t *Translator) Types() *typestring.Translator { return t.types }

// --- typestring.Parent implementation ---

func (t *Translator) ResolveAlias(sym *ast.Symbol) (string, bool) {
	alias, ok := t.symbolAliases[sym]
	return alias, ok
}

func (t *Translator) IsBlacklistedPath(typePath string) bool {
	return t.host.TypeBlacklistPaths[typePath]
}

func (t *Translator) Untyped() bool { return t.host.UntypedMode }

func (t *Translator) DebugWarn(message string) {
	pos := t.sourceFile.FileName()
	t.diagnostics.Warn(pos, 0, 0, message)
}

// ForwardDeclareFor registers (idempotently) a forward declare for the
// module declaring sym and returns the local alias under which the Type-
// String Translator should now reference it.
func (t *Translator) ForwardDeclareFor(sym *ast.Symbol) string {
	modulePath := t.modulePathOf(sym)
	if modulePath == "" {
		return ""
	}
	return t.forwardDeclare(modulePath, sym, false, false)
}

func (t *Translator) modulePathOf(sym *ast.Symbol) string {
	if sym == nil || len(sym.Declarations) == 0 {
		return ""
	}
	decl := sym.Declarations[0]
	sf := ast.GetSourceFileOfNode(decl)
	if sf == nil || sf == t.sourceFile {
		return ""
	}
	return sf.FileName()
}

// forwardDeclare registers a forward declare for modulePath/sym, deduping
// by modulePath, OR-combining the explicitlyImported/defaultImport flags on
// repeat calls, and breaking alias basename collisions with a short
// xxh3-derived suffix.
func (t *Translator) forwardDeclare(modulePath string, sym *ast.Symbol, explicitlyImported, defaultImport bool) string {
	if existing, ok := t.forwardDeclareByPath[modulePath]; ok {
		existing.ExplicitlyImported = existing.ExplicitlyImported || explicitlyImported
		existing.DefaultImport = existing.DefaultImport || defaultImport
		return existing.LocalAlias
	}

	base := aliasBasename(modulePath)
	alias := base
	if t.aliasBasenames[alias] {
		suffix := xxh3.HashString(modulePath) & 0xffff
		alias = fmt.Sprintf("%s_%04x", base, suffix)
	}
	t.aliasBasenames[alias] = true

	fd := &ForwardDeclare{
		ModulePath:         modulePath,
		LocalAlias:         alias,
		ExplicitlyImported: explicitlyImported,
		DefaultImport:      defaultImport,
	}
	t.forwardDeclareByPath[modulePath] = fd
	t.forwardDeclares = append(t.forwardDeclares, fd)
	t.symbolAliases[sym] = alias
	return alias
}

// ForwardDeclareImport is the entry point the Annotation Transformer uses
// when it sees a real `import` statement: the import is always
// explicitly-imported, and may be a default import.
func (t *Translator) ForwardDeclareImport(modulePath string, sym *ast.Symbol, defaultImport bool) string {
	return t.forwardDeclare(modulePath, sym, true, defaultImport)
}

// ForwardDeclares returns the accumulated list in first-registered order,
// the same list RenderForwardDeclares renders.
func (t *Translator) ForwardDeclares() []*ForwardDeclare {
	return t.forwardDeclares
}

func aliasBasename(modulePath string) string {
	base := modulePath
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	out := make([]byte, 0, len(base))
	for i := 0; i < len(base); i++ {
		c := base[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		out = append([]byte{'_'}, out...)
	}
	return "tsickle_forward_declare_" + string(out)
}

// GetMutableJSDoc returns a handle for accumulating tags on node, seeded
// with whatever tags node's own pre-existing leading comment parses to (a
// non-structured comment survives this round trip as free text, per
// tagmodel.ParseComment).
func (t *Translator) GetMutableJSDoc(node *ast.Node, commit func(text string, trailing bool)) *MutableComment {
	mc := &MutableComment{node: node, commit: commit}
	mc.comment.Tags = existingJSDocTags(node)
	return mc
}

// existingJSDocTags reads node's last leading JSDoc comment, if any, and
// parses it into tags. A node with no leading comment (or node itself nil)
// returns nil.
func existingJSDocTags(node *ast.Node) []tagmodel.Tag {
	if node == nil {
		return nil
	}
	jsdocs := node.JSDoc(nil)
	if len(jsdocs) == 0 {
		return nil
	}
	jsdoc := jsdocs[len(jsdocs)-1]
	sf := ast.GetSourceFileOfNode(jsdoc)
	if sf == nil {
		return nil
	}
	text := sf.Text()
	start, end := jsdoc.Pos(), jsdoc.End()
	if start < 0 || end > len(text) || start >= end {
		return nil
	}
	return tagmodel.ParseComment(text[start:end])
}

// GetFunctionTypeJSDoc merges parameter and return types across a set of
// overload signatures into one composite `{function(...): T}` tag.
//
// Overloads of differing arity are padded with "undefined" so every
// parameter slot has a type to union across. Only the type tag is
// returned; it carries no parameter names, and callers that print a
// parameter list choose the names themselves.
func (t *Translator) GetFunctionTypeJSDoc(overloads []*shimchecker.Signature, ctx *ast.Node) tagmodel.Tag {
	if len(overloads) == 0 {
		return tagmodel.Tag{Name: tagmodel.NameType, Type: "?"}
	}

	maxArity := 0
	for _, sig := range overloads {
		if n := len(shimchecker.Signature_parameters(sig)); n > maxArity {
			maxArity = n
		}
	}

	paramUnions := make([][]string, maxArity)
	returnUnion := make([]string, 0, len(overloads))

	for _, sig := range overloads {
		params := shimchecker.Signature_parameters(sig)
		for i := 0; i < maxArity; i++ {
			var rendered string
			if i < len(params) {
				pt := shimchecker.Checker_getTypeOfSymbol(t.checker, params[i])
				rendered = t.types.Translate(pt, ctx)
			} else {
				rendered = "undefined"
			}
			paramUnions[i] = append(paramUnions[i], rendered)
		}
		if rt := shimchecker.Checker_getReturnTypeOfSignature(t.checker, sig); rt != nil {
			returnUnion = append(returnUnion, t.types.Translate(rt, ctx))
		} else {
			returnUnion = append(returnUnion, "?")
		}
	}

	paramStrs := make([]string, maxArity)
	for i, u := range paramUnions {
		paramStrs[i] = typestring.JoinUnion(u)
	}
	ret := typestring.JoinUnion(returnUnion)

	ftype := "function(" + joinComma(paramStrs) + "): " + ret
	return tagmodel.Tag{Name: tagmodel.NameType, Type: ftype}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// RenderForwardDeclares renders the accumulated forward declares as a
// block: the caller (the Annotation Transformer / Externs Generator
// driver) calls this once per file after visiting, splicing the result
// into the output buffer right after any fileoverview/module-prologue
// comment and before the first semantic statement. This function only
// renders the block; the driver owns actually splicing it at that
// position since it also owns line tracking.
func (t *Translator) RenderForwardDeclares() string {
	if len(t.forwardDeclares) == 0 {
		return ""
	}
	out := ""
	for _, fd := range t.forwardDeclares {
		name := fd.ModulePath
		if t.host.PathToModuleName != nil {
			name = t.host.PathToModuleName(t.sourceFile.FileName(), fd.ModulePath)
		}
		out += fmt.Sprintf("var %s = goog.forwardDeclare(\"%s\");\n", fd.LocalAlias, name)
	}
	return out
}

// Error records a fatal-to-translation diagnostic anchored at node.
func (t *Translator) Error(node *ast.Node, message string) {
	line, col := nodePosition(t.sourceFile, node)
	t.diagnostics.Error(t.sourceFile.FileName(), line, col, message)
}

// DebugWarnAt records a non-fatal diagnostic anchored at node (distinct
// from the typestring.Parent.DebugWarn, which has no node to anchor to).
func (t *Translator) DebugWarnAt(node *ast.Node, message string) {
	line, col := nodePosition(t.sourceFile, node)
	t.diagnostics.Warn(t.sourceFile.FileName(), line, col, message)
}

func nodePosition(sf *ast.SourceFile, node *ast.Node) (line int, col int) {
	if sf == nil || node == nil {
		return 0, 0
	}
	lc := sf.LineAndCharacterOfPosition(node.Pos())
	return lc.Line() + 1, lc.Character() + 1
}

// TargetsOutputModuleFormat reports whether the host's configured output
// module format is the one this translator emits type-alias declarations
// for — deliberately configurable via the host rather than hardcoded.
func (t *Translator) TargetsOutputModuleFormat() bool {
	return t.host.TargetModuleFormat == "" || t.host.TargetModuleFormat == "esm"
}

// IsForExterns reports whether this translator instance is rendering the
// Externs Generator's output rather than the Annotation Transformer's, as
// passed to New. No tag-emission decision branches on it.
func (t *Translator) IsForExterns() bool { return t.isForExterns }
