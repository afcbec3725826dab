// Package annotate implements the Annotation Transformer: a visitor over a
// type-checked, non-declaration source file that decides, at each
// declaration or expression of interest, what AT-dialect structured comment
// to attach and how to reshape the surrounding statement.
//
// The typescript-go shims expose no AST-to-AST printer (no NodeFactory, no
// Printer) — only a parser/checker. So this transformer hooks the emitted
// text rather than the TS tree: it walks the checker AST for structure and
// decisions, but produces its output by copying source text ranges and
// splicing in comment text around them.
package annotate

import (
	"fmt"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"

	"github.com/jsdocify/jsdocify/internal/moduletranslate"
	"github.com/jsdocify/jsdocify/internal/tagmodel"
)

// Transformer rewrites one source file's statements into AT-dialect text.
type Transformer struct {
	checker *shimchecker.Checker
	sf      *ast.SourceFile
	mt      *moduletranslate.Translator
	src     string
	edits   []edit

	out strings.Builder
}

// New constructs a Transformer for sf, sharing mt's forward-declare and
// alias state with whatever else is translating this file.
func New(checker *shimchecker.Checker, sf *ast.SourceFile, mt *moduletranslate.Translator) *Transformer {
	return &Transformer{
		checker: checker,
		sf:      sf,
		mt:      mt,
		src:     sf.Text(),
		edits:   collectExpressionEdits(checker, mt, sf),
	}
}

// Transform walks the file's top-level statements and returns the rewritten
// AT-dialect text, with the forward declares registered while visiting
// spliced in right after the file prologue.
func (tr *Transformer) Transform() string {
	prologue, _ := splitPrologue(tr.src, tr.sf)

	for _, stmt := range tr.sf.Statements() {
		tr.visitStatement(stmt)
	}
	return prologue + tr.mt.RenderForwardDeclares() + tr.out.String()
}

// splitPrologue returns the fileoverview/module-prologue prefix of src
// (everything before the first statement's start position) and the
// remainder, so forward declares can be spliced in right after any
// fileoverview comment and before the first statement.
func splitPrologue(src string, sf *ast.SourceFile) (string, string) {
	stmts := sf.Statements()
	if len(stmts) == 0 {
		return src, ""
	}
	start := stmts[0].Pos()
	if start < 0 || start > len(src) {
		return "", src
	}
	return src[:start], src[start:]
}

// text returns node's source text with every expression-level edit
// (assertions, non-null casts, parameter field-modifier stripping) that
// falls within node's range already applied.
func (tr *Transformer) text(node *ast.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.Pos(), node.End()
	if start < 0 || end > len(tr.src) || start > end {
		return ""
	}
	return applyEditsInRange(tr.src, tr.edits, start, end)
}

func (tr *Transformer) writeLine(s string) {
	tr.out.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		tr.out.WriteString("\n")
	}
}

// isAmbientNested reports whether node sits (transitively) inside an
// ambient declaration, which the transformer must skip entirely.
func isAmbientNested(node *ast.Node) bool {
	for p := node.Parent; p != nil; p = p.Parent {
		switch p.Kind {
		case ast.KindModuleDeclaration:
			if p.Flags()&ast.NodeFlagsAmbient != 0 {
				return true
			}
		case ast.KindInterfaceDeclaration:
			return true
		}
	}
	return false
}

func (tr *Transformer) visitStatement(stmt *ast.Node) {
	if isAmbientNested(stmt) {
		return
	}
	switch stmt.Kind {
	case ast.KindClassDeclaration:
		tr.visitClass(stmt)
	case ast.KindInterfaceDeclaration:
		tr.visitInterface(stmt)
	case ast.KindFunctionDeclaration:
		tr.visitFunctionLike(stmt)
	case ast.KindVariableStatement:
		tr.visitVariableStatement(stmt)
	case ast.KindTypeAliasDeclaration:
		tr.visitTypeAlias(stmt)
	case ast.KindImportDeclaration:
		tr.visitImport(stmt)
	default:
		tr.writeLine(tr.text(stmt))
	}
}

// visitClass implements the class-declaration handling. The
// member-type-declaration snapshot must be built before the constructor is
// visited (visiting it strips parameter-property comments), so that
// synthesis happens first and the class's own member rewriting happens
// after.
func (tr *Transformer) visitClass(node *ast.Node) {
	decl := node.AsClassDeclaration()
	name := declName(decl.Name())

	comment := tr.classComment(node, decl, name)
	mtd := BuildMemberTypeDeclaration(tr.checker, tr.mt, node, name, false)

	if comment != "" {
		tr.writeLine(comment)
	}
	tr.writeLine(tr.rewriteClassBody(node))
	if mtd != "" {
		tr.writeLine(mtd)
	}
}

func (tr *Transformer) classComment(node *ast.Node, decl *ast.ClassDeclaration, name string) string {
	var rendered string
	mc := tr.mt.GetMutableJSDoc(node, func(text string, trailing bool) { rendered = text })
	if node.Flags()&ast.NodeFlagsAbstract != 0 || hasAbstractModifier(node) {
		mc.AddTag(tagmodel.Tag{Name: tagmodel.NameAbstract})
	}
	if tp := decl.TypeParameters(); len(tp) > 0 {
		mc.AddTag(tagmodel.Tag{Name: tagmodel.NameTemplate, Text: joinTypeParamNames(tp)})
		tr.mt.Types().BlacklistTypeParameters(tp)
	}
	for _, tag := range ResolveHeritage(tr.checker, tr.mt, node, false) {
		mc.AddTag(tag)
	}
	mc.UpdateComment()
	return rendered
}

// rewriteClassBody passes the class through unchanged at the runtime-syntax
// level (the class keyword, name, and body all stay real syntax); what
// changes underneath is carried by tr.edits, collected up front over the
// whole file by collectExpressionEdits — property/assignment leading
// comments re-serialized, assertions rewritten to parenthesized casts,
// field-declaring constructor parameters stripped of their comments. A
// from-scratch printer is unnecessary: tr.text splices those edits into the
// copied source range.
func (tr *Transformer) rewriteClassBody(node *ast.Node) string {
	return tr.text(node)
}

// visitInterface implements the interface-declaration handling:
// lowered to a zero-argument function because the AT dialect has no
// interface form.
func (tr *Transformer) visitInterface(node *ast.Node) {
	decl := node.AsInterfaceDeclaration()
	name := declName(decl.Name())

	sym := tr.checker.GetSymbolAtLocation(decl.Name())
	if sym != nil && symbolIsValue(sym) {
		tr.mt.DebugWarnAt(node, fmt.Sprintf("skipping interface %q: name also resolves to a value", name))
		return
	}

	mc := tr.mt.GetMutableJSDoc(node, func(text string, trailing bool) { tr.writeLine(text) })
	mc.AddTag(tagmodel.Tag{Name: tagmodel.NameRecord})
	if tp := decl.TypeParameters(); len(tp) > 0 {
		mc.AddTag(tagmodel.Tag{Name: tagmodel.NameTemplate, Text: joinTypeParamNames(tp)})
		tr.mt.Types().BlacklistTypeParameters(tp)
	}
	for _, tag := range ResolveHeritage(tr.checker, tr.mt, node, true) {
		mc.AddTag(tag)
	}
	mc.UpdateComment()
	tr.writeLine(fmt.Sprintf("function %s() {}", name))

	if mtd := BuildMemberTypeDeclaration(tr.checker, tr.mt, node, name, true); mtd != "" {
		tr.writeLine(mtd)
	}
}

// visitFunctionLike implements the function-like-declaration
// handling. Declarations with no body (overload signatures, abstract
// methods) are left to the member-type-declaration pass.
func (tr *Transformer) visitFunctionLike(node *ast.Node) {
	decl := node.AsFunctionDeclaration()
	if decl.Body == nil {
		return
	}

	sigs := []*shimchecker.Signature{shimchecker.Checker_getSignatureFromDeclaration(tr.checker, node)}
	tag := tr.mt.GetFunctionTypeJSDoc(sigs, node)

	if tp := decl.TypeParameters(); len(tp) > 0 {
		tr.mt.Types().BlacklistTypeParameters(tp)
	}

	mc := tr.mt.GetMutableJSDoc(node, func(text string, trailing bool) { tr.writeLine(text) })
	mc.AddTag(tag)
	mc.UpdateComment()
	tr.writeLine(tr.text(node))
}

// visitVariableStatement implements the split-per-declarator
// handling.
func (tr *Transformer) visitVariableStatement(node *ast.Node) {
	decl := node.AsVariableStatement()
	declList := decl.DeclarationList.AsVariableDeclarationList()
	declarators := declList.Declarations

	kind := "var"
	if declList.Flags()&ast.NodeFlagsLet != 0 {
		kind = "let"
	} else if declList.Flags()&ast.NodeFlagsConst != 0 {
		kind = "const"
	}

	for i, d := range declarators {
		vd := d.AsVariableDeclaration()
		stmtText := fmt.Sprintf("%s %s;", kind, strings.TrimSpace(tr.text(d)))

		if vd.Name().Kind != ast.KindIdentifier {
			// Destructuring binding: no type tag (AT has no syntax for it),
			//
			tr.writeLine(stmtText)
			continue
		}

		atType, blacklisted := tr.declaratorType(vd, node)
		hasInitializer := vd.Initializer() != nil
		if blacklisted && hasInitializer {
			// The downstream optimizer infers a better type from the
			// initializer than the fallback `?`.
			tr.writeLine(stmtText)
			continue
		}

		// The statement's own leading comment, if any, belongs to the
		// whole declaration list; only the first declarator carries it
		// forward.
		var commentNode *ast.Node
		if i == 0 {
			commentNode = node
		}
		mc := tr.mt.GetMutableJSDoc(commentNode, func(text string, trailing bool) { tr.writeLine(text) })
		mc.SetType(atType)
		mc.UpdateComment()
		tr.writeLine(stmtText)
	}
}

func (tr *Transformer) declaratorType(vd *ast.VariableDeclaration, ctx *ast.Node) (atType string, blacklisted bool) {
	t := shimchecker.Checker_getTypeAtLocation(tr.checker, vd.Name())
	if sym := t.Symbol(); sym != nil && tr.mt.Types().IsBlacklisted(sym) {
		blacklisted = true
	}
	return tr.mt.Types().Translate(t, ctx), blacklisted
}

// visitTypeAlias implements the type-alias-declaration handling.
func (tr *Transformer) visitTypeAlias(node *ast.Node) {
	decl := node.AsTypeAliasDeclaration()
	name := declName(decl.Name())

	sym := tr.checker.GetSymbolAtLocation(decl.Name())
	if sym != nil && symbolIsValue(sym) {
		tr.mt.DebugWarnAt(node, fmt.Sprintf("skipping type alias %q: name also resolves to a value", name))
		return
	}
	if node.Flags()&ast.NodeFlagsExport == 0 && !hasExportModifier(node) {
		return
	}
	if !tr.mt.TargetsOutputModuleFormat() {
		return
	}

	if tp := decl.TypeParameters(); len(tp) > 0 {
		tr.mt.Types().BlacklistTypeParameters(tp)
	}
	t := shimchecker.Checker_getTypeAtLocation(tr.checker, decl.Name())
	atType := tr.mt.Types().Translate(t, node)

	tr.writeLine(tagmodel.ToSerializedComment([]tagmodel.Tag{{Name: tagmodel.NameTypedef, Type: atType}}, true))
	tr.writeLine(fmt.Sprintf("exports.%s;", name))
}

// visitImport implements the import-declaration handling:
// register a forward declare, pass the statement through unchanged.
func (tr *Transformer) visitImport(node *ast.Node) {
	decl := node.AsImportDeclaration()
	if decl.ImportClause == nil {
		// Side-effect import: pass through.
		tr.writeLine(tr.text(node))
		return
	}

	modSpec := decl.ModuleSpecifier
	if modSpec == nil || modSpec.Kind != ast.KindStringLiteral {
		tr.writeLine(tr.text(node))
		return
	}
	modSym := tr.checker.GetSymbolAtLocation(modSpec)
	if modSym == nil {
		tr.writeLine(tr.text(node))
		return
	}

	clause := decl.ImportClause.AsImportClause()
	defaultImport := clause != nil && clause.Name() != nil
	tr.mt.ForwardDeclareImport(modSpec.Text(), modSym, defaultImport)

	tr.writeLine(tr.text(node))
}

func hasAbstractModifier(node *ast.Node) bool {
	for _, m := range modifiersOf(node) {
		if m.Kind == ast.KindAbstractKeyword {
			return true
		}
	}
	return false
}

func hasExportModifier(node *ast.Node) bool {
	for _, m := range modifiersOf(node) {
		if m.Kind == ast.KindExportKeyword {
			return true
		}
	}
	return false
}

func modifiersOf(node *ast.Node) []*ast.Node {
	mods := node.Modifiers()
	if mods == nil {
		return nil
	}
	return mods.Nodes
}

func declName(nameNode *ast.Node) string {
	if nameNode == nil {
		return ""
	}
	return nameNode.Text()
}

func joinTypeParamNames(tp []*ast.Node) string {
	names := make([]string, len(tp))
	for i, n := range tp {
		names[i] = declName(n.AsTypeParameter().Name())
	}
	return strings.Join(names, ", ")
}

func symbolIsValue(sym *ast.Symbol) bool {
	return sym.Flags&(ast.SymbolFlagsValue) != 0
}
