// Package externs implements the Externs Generator: a printer that walks
// declaration-only statements (a .d.ts-equivalent file, or the ambient
// statements of a mixed file) and builds a flat, namespaced AT-dialect stub
// as a string.
//
// Its append-only, string-building style mirrors a serializer that builds
// an output expression incrementally rather than through an AST printer.
package externs

import (
	"fmt"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"golang.org/x/text/unicode/norm"

	"github.com/jsdocify/jsdocify/internal/moduletranslate"
	"github.com/jsdocify/jsdocify/internal/printer"
	"github.com/jsdocify/jsdocify/internal/tagmodel"
)

// blacklistedNames is the hard-coded set of symbols the generator skips
// entirely rather than stub out, because they collide with identifiers the
// downstream runtime or type-checker already owns.
var blacklistedNames = map[string]bool{
	"exports":          true,
	"global":           true,
	"module":           true,
	"ErrorConstructor": true,
	"Symbol":           true,
	"WorkerGlobalScope": true,
}

// Generator accumulates the output of one declaration file.
type Generator struct {
	checker *shimchecker.Checker
	sf      *ast.SourceFile
	mt      *moduletranslate.Translator

	e *printer.Emitter

	// seenModuleDecl dedups identifier-named module declarations by their
	// symbol's first-declaration identity (the "on first
	// declaration... deduplicate using the symbol's first declaration
	// identity").
	seenModuleDecl map[*ast.Symbol]bool
	// seenStubSymbol dedups class/interface/function stub emission across
	// declaration-merged or overloaded repeats, tracked by symbol: only the
	// first declaration emits the stub.
	seenStubSymbol map[*ast.Symbol]bool

	declareModuleEmitted bool
}

// New constructs an Externs Generator for sf.
func New(checker *shimchecker.Checker, sf *ast.SourceFile, mt *moduletranslate.Translator) *Generator {
	return &Generator{
		checker:        checker,
		sf:             sf,
		mt:             mt,
		e:              printer.NewEmitter(),
		seenModuleDecl: make(map[*ast.Symbol]bool),
		seenStubSymbol: make(map[*ast.Symbol]bool),
	}
}

// Generate walks the file's top-level statements and returns the rendered
// stub text.
func (g *Generator) Generate() string {
	g.visitStatements(g.sf.Statements(), "")
	return g.e.String()
}

func (g *Generator) visitStatements(stmts []*ast.Node, namespace string) {
	for _, stmt := range stmts {
		g.visitStatement(stmt, namespace)
	}
}

func (g *Generator) visitStatement(stmt *ast.Node, namespace string) {
	switch stmt.Kind {
	case ast.KindModuleDeclaration:
		g.visitModule(stmt, namespace)
	case ast.KindImportEqualsDeclaration:
		g.visitImportEquals(stmt, namespace)
	case ast.KindClassDeclaration, ast.KindInterfaceDeclaration:
		g.visitClassOrInterface(stmt, namespace)
	case ast.KindFunctionDeclaration:
		g.visitFunction(stmt, namespace)
	case ast.KindVariableStatement:
		g.visitVariableStatement(stmt, namespace)
	case ast.KindEnumDeclaration:
		g.visitEnum(stmt, namespace)
	case ast.KindTypeAliasDeclaration:
		g.visitTypeAlias(stmt, namespace)
	default:
		g.e.Line(fmt.Sprintf("/* TODO: unhandled statement kind %v */", stmt.Kind))
	}
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// visitModule implements the module-declaration handling, split
// between identifier-named (possibly `global`) and string-literal-named
// (declared external module) forms.
func (g *Generator) visitModule(stmt *ast.Node, namespace string) {
	decl := stmt.AsModuleDeclaration()
	nameNode := decl.Name()

	if nameNode.Kind == ast.KindStringLiteral {
		g.visitDeclaredExternalModule(stmt, decl, nameNode.Text())
		return
	}

	name := nameNode.Text()
	if name == "global" {
		g.visitModuleBody(decl, "")
		return
	}

	sym := g.checker.GetSymbolAtLocation(nameNode)
	first := firstDeclarationOf(sym)
	if first != nil && !g.seenModuleDecl[sym] {
		g.seenModuleDecl[sym] = true
		g.e.Line("/** @const */")
		if namespace == "" {
			g.e.Line(fmt.Sprintf("var %s = {};", name))
		} else {
			g.e.Line(fmt.Sprintf("%s.%s = {};", namespace, name))
		}
	}
	g.visitModuleBody(decl, qualify(namespace, name))
}

// visitDeclaredExternalModule implements the string-literal-named branch:
// a synthetic `tsickle_declare_module` object keyed on the mangled module
// specifier.
func (g *Generator) visitDeclaredExternalModule(stmt *ast.Node, decl *ast.ModuleDeclaration, moduleName string) {
	if !g.declareModuleEmitted {
		g.declareModuleEmitted = true
		g.e.Line("/** @const */")
		g.e.Line("var tsickle_declare_module = {};")
	}
	mangled := mangleModuleName(moduleName)
	g.e.Line("/** @const */")
	g.e.Line(fmt.Sprintf("tsickle_declare_module.%s = {};", mangled))
	g.visitModuleBody(decl, "tsickle_declare_module."+mangled)
}

func (g *Generator) visitModuleBody(decl *ast.ModuleDeclaration, namespace string) {
	body := decl.Body
	if body == nil {
		return
	}
	if body.Kind == ast.KindModuleBlock {
		g.visitStatements(body.AsModuleBlock().Statements, namespace)
		return
	}
	// A nested module declaration (`namespace A.B {}` sugar): recurse.
	g.visitModule(body, namespace)
}

// mangleModuleName turns a string-literal module specifier into a safe
// identifier: underscore-doubling, then non-alphanumeric characters become
// underscore.
// golang.org/x/text/unicode/norm normalizes the input first so multi-byte
// characters fold consistently before the ASCII-only classification below
// runs — a hand-rolled byte-range check alone would mangle differently
// depending on the input's Unicode normalization form.
func mangleModuleName(name string) string {
	normalized := norm.NFC.String(name)
	doubled := strings.ReplaceAll(normalized, "_", "__")
	var b strings.Builder
	for _, r := range doubled {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// visitImportEquals implements the import-equals handling.
func (g *Generator) visitImportEquals(stmt *ast.Node, namespace string) {
	decl := stmt.AsImportEqualsDeclaration()
	localName := decl.Name().Text()

	if localName == "ng" {
		g.e.Line(fmt.Sprintf("/* skipping import-equals for blacklisted name %q */", localName))
		return
	}

	ref := decl.ModuleReference
	if ref != nil && ref.Kind == ast.KindExternalModuleReference {
		g.e.Line(fmt.Sprintf("/* TODO: import-equals %q references an external module via require() */", localName))
		return
	}

	rhs := dottedEntityName(ref)
	if namespace == "" {
		g.e.Line("/** @const */")
		g.e.Line(fmt.Sprintf("var %s = %s;", localName, rhs))
		return
	}
	g.e.Line(fmt.Sprintf("%s.%s = %s;", namespace, localName, rhs))
}

func dottedEntityName(node *ast.Node) string {
	if node == nil {
		return "?"
	}
	switch node.Kind {
	case ast.KindIdentifier:
		return node.Text()
	case ast.KindQualifiedName:
		qn := node.AsQualifiedName()
		return dottedEntityName(qn.Left) + "." + qn.Right.Text()
	default:
		return "?"
	}
}

// visitClassOrInterface implements the class/interface branch.
func (g *Generator) visitClassOrInterface(stmt *ast.Node, namespace string) {
	name, sym := declNameAndSymbol(g.checker, stmt)
	if name == "" || blacklistedNames[name] {
		return
	}

	qualified := qualify(namespace, name)
	if sym != nil && !g.seenStubSymbol[sym] {
		g.seenStubSymbol[sym] = true
		g.emitConstructorStub(stmt, qualified, name)
	}

	members, isInterface := membersOf(stmt)
	props, methodGroups, unrecognized := partitionExternsMembers(members)

	for _, p := range props {
		g.emitExternsProperty(stmt, qualified, p)
	}
	for _, grp := range methodGroups {
		g.emitExternsMethodGroup(stmt, qualified, grp)
	}
	for _, u := range unrecognized {
		g.e.Line(fmt.Sprintf("/* TODO: unrecognized member in %s */", qualified))
		_ = u
	}
	_ = isInterface
}

func (g *Generator) emitConstructorStub(stmt *ast.Node, qualified, name string) {
	var c tagmodel.Comment
	isInterface := stmt.Kind == ast.KindInterfaceDeclaration
	if isInterface {
		c.Add(tagmodel.Tag{Name: tagmodel.NameRecord})
	} else {
		c.Add(tagmodel.Tag{Name: tagmodel.NameConstructor})
	}
	c.Add(tagmodel.Tag{Name: tagmodel.NameStruct})

	heritageTags := g.heritageTagsFor(stmt, isInterface)
	for _, t := range heritageTags {
		c.Add(t)
	}

	ctorSigs := constructorSignaturesOf(g.checker, stmt)
	paramNames := []string{}
	if len(ctorSigs) > 0 {
		fnTag := g.mt.GetFunctionTypeJSDoc(ctorSigs, stmt)
		// A constructor stub's params are listed positionally, not as a
		// {function(...)} type tag; borrow the merged arity only.
		paramNames = placeholderParamNames(fnTag.Type)
	}

	g.e.Line(tagmodel.ToSerializedComment(c.Tags, true))
	g.e.Line(fmt.Sprintf("%s = function(%s) {};", qualified, strings.Join(paramNames, ", ")))
}

func placeholderParamNames(fnType string) []string {
	open := strings.Index(fnType, "(")
	close := strings.Index(fnType, "):")
	if open < 0 || close < 0 || close <= open {
		return nil
	}
	inner := fnType[open+1 : close]
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ", ")
	names := make([]string, len(parts))
	for i := range parts {
		names[i] = fmt.Sprintf("p%d", i)
	}
	return names
}

func (g *Generator) heritageTagsFor(stmt *ast.Node, isInterface bool) []tagmodel.Tag {
	clauses := heritageClausesOfNode(stmt)
	var tags []tagmodel.Tag
	for _, hc := range clauses {
		for _, typeExpr := range hc.AsHeritageClause().Types() {
			expr := typeExpr.AsExpressionWithTypeArguments().Expression
			sym := g.checker.GetSymbolAtLocation(expr)
			if sym == nil {
				continue
			}
			if g.mt.Types().IsBlacklisted(sym) {
				continue
			}
			name := g.mt.Types().SymbolToString(sym, false)
			if isInterface {
				tags = append(tags, tagmodel.Tag{Name: tagmodel.NameExtends, Type: name})
				continue
			}
			// Externs always runs through the older class-emulation form,
			// so even a plain `extends` clause needs an explicit tag here.
			if hc.AsHeritageClause().Token == ast.KindImplementsKeyword {
				tags = append(tags, tagmodel.Tag{Name: tagmodel.NameImplements, Type: name})
			} else {
				tags = append(tags, tagmodel.Tag{Name: tagmodel.NameExtends, Type: name})
			}
		}
	}
	return tags
}

func heritageClausesOfNode(stmt *ast.Node) []*ast.Node {
	switch stmt.Kind {
	case ast.KindClassDeclaration:
		return stmt.AsClassDeclaration().HeritageClauses()
	case ast.KindInterfaceDeclaration:
		return stmt.AsInterfaceDeclaration().HeritageClauses()
	}
	return nil
}

type externsMember struct {
	name   string
	node   *ast.Node
	static bool
}

type methodGroup struct {
	name    string
	static  bool
	sigs    []*ast.Node
}

func membersOf(stmt *ast.Node) ([]*ast.Node, bool) {
	switch stmt.Kind {
	case ast.KindClassDeclaration:
		return stmt.AsClassDeclaration().Members(), false
	case ast.KindInterfaceDeclaration:
		return stmt.AsInterfaceDeclaration().Members, true
	}
	return nil, false
}

// partitionExternsMembers groups a class/interface's members by kind, and
// groups method-like members by (name, static) so overloaded
// method/method-signature members emit one merged function per group.
func partitionExternsMembers(members []*ast.Node) (props []externsMember, groups []methodGroup, unrecognized []*ast.Node) {
	groupIdx := map[string]int{}
	for _, m := range members {
		switch m.Kind {
		case ast.KindPropertyDeclaration, ast.KindPropertySignature:
			props = append(props, externsMember{name: memberName(m), node: m, static: isStaticMember(m)})
		case ast.KindMethodDeclaration, ast.KindMethodSignature:
			name := memberName(m)
			key := fmt.Sprintf("%s|%v", name, isStaticMember(m))
			if idx, ok := groupIdx[key]; ok {
				groups[idx].sigs = append(groups[idx].sigs, m)
			} else {
				groupIdx[key] = len(groups)
				groups = append(groups, methodGroup{name: name, static: isStaticMember(m), sigs: []*ast.Node{m}})
			}
		case ast.KindConstructor:
			// constructors are handled by emitConstructorStub.
		default:
			unrecognized = append(unrecognized, m)
		}
	}
	return
}

func (g *Generator) emitExternsProperty(classNode *ast.Node, qualified string, p externsMember) {
	access := qualified
	if !p.static {
		access = qualified + ".prototype"
	}
	sym := g.checker.GetSymbolAtLocation(memberNameNode(p.node))
	atType := "?"
	if sym != nil {
		t := shimchecker.Checker_getTypeOfSymbol(g.checker, sym)
		atType = g.mt.Types().Translate(t, p.node)
	}
	if isOptionalMember(p.node) && atType == "?" {
		atType = "?|undefined"
	}
	g.e.Line(tagmodel.ToSerializedComment([]tagmodel.Tag{{Name: tagmodel.NameType, Type: atType}}, true))
	g.e.Line(fmt.Sprintf("%s.%s;", access, p.name))
}

func (g *Generator) emitExternsMethodGroup(classNode *ast.Node, qualified string, grp methodGroup) {
	access := qualified
	if !grp.static {
		access = qualified + ".prototype"
	}

	merged := make([]*shimchecker.Signature, 0, len(grp.sigs))
	for _, decl := range grp.sigs {
		if sig := shimchecker.Checker_getSignatureFromDeclaration(g.checker, decl); sig != nil {
			merged = append(merged, sig)
		}
	}
	tag := g.mt.GetFunctionTypeJSDoc(merged, classNode)
	paramNames := placeholderParamNames(tag.Type)

	g.e.Line(tagmodel.ToSerializedComment([]tagmodel.Tag{tag}, true))
	g.e.Line(fmt.Sprintf("%s.%s = function(%s) {};", access, grp.name, strings.Join(paramNames, ", ")))
}

// visitFunction implements the function-declaration branch:
// emit only when visiting the first of a group of overloads sharing a name.
func (g *Generator) visitFunction(stmt *ast.Node, namespace string) {
	decl := stmt.AsFunctionDeclaration()
	name := declName(decl.Name())
	if name == "" || blacklistedNames[name] {
		return
	}
	sym := g.checker.GetSymbolAtLocation(decl.Name())
	if sym != nil && g.seenStubSymbol[sym] {
		return
	}
	if sym != nil {
		g.seenStubSymbol[sym] = true
	}

	overloads := functionOverloadsOf(sym)
	merged := make([]*shimchecker.Signature, 0, len(overloads))
	for _, o := range overloads {
		if sig := shimchecker.Checker_getSignatureFromDeclaration(g.checker, o); sig != nil {
			merged = append(merged, sig)
		}
	}
	if len(merged) == 0 {
		if sig := shimchecker.Checker_getSignatureFromDeclaration(g.checker, stmt); sig != nil {
			merged = append(merged, sig)
		}
	}

	tag := g.mt.GetFunctionTypeJSDoc(merged, stmt)
	paramNames := placeholderParamNames(tag.Type)
	qualified := qualify(namespace, name)

	g.e.Line(tagmodel.ToSerializedComment([]tagmodel.Tag{tag}, true))
	if namespace == "" {
		g.e.Line(fmt.Sprintf("function %s(%s) {}", name, strings.Join(paramNames, ", ")))
	} else {
		g.e.Line(fmt.Sprintf("%s = function(%s) {};", qualified, strings.Join(paramNames, ", ")))
	}
}

func functionOverloadsOf(sym *ast.Symbol) []*ast.Node {
	if sym == nil {
		return nil
	}
	return sym.Declarations
}

// visitVariableStatement implements the variable-statement
// branch.
func (g *Generator) visitVariableStatement(stmt *ast.Node, namespace string) {
	decl := stmt.AsVariableStatement()
	for _, d := range decl.DeclarationList.AsVariableDeclarationList().Declarations {
		vd := d.AsVariableDeclaration()
		if vd.Name().Kind != ast.KindIdentifier {
			continue
		}
		name := vd.Name().Text()
		if blacklistedNames[name] {
			continue
		}
		sym := g.checker.GetSymbolAtLocation(vd.Name())
		atType := "?"
		if sym != nil {
			t := shimchecker.Checker_getTypeOfSymbol(g.checker, sym)
			atType = g.mt.Types().Translate(t, d)
		}
		g.e.Line(tagmodel.ToSerializedComment([]tagmodel.Tag{{Name: tagmodel.NameType, Type: atType}}, true))
		if namespace == "" {
			g.e.Line(fmt.Sprintf("var %s;", name))
		} else {
			g.e.Line(fmt.Sprintf("%s.%s;", namespace, name))
		}
	}
}

// visitEnum implements the enum-declaration branch.
func (g *Generator) visitEnum(stmt *ast.Node, namespace string) {
	decl := stmt.AsEnumDeclaration()
	name := declName(decl.Name())
	if name == "" {
		return
	}
	qualified := qualify(namespace, name)

	g.e.Line("/** @const */")
	if namespace == "" {
		g.e.Line(fmt.Sprintf("var %s = {};", name))
	} else {
		g.e.Line(fmt.Sprintf("%s.%s = {};", namespace, name))
	}

	for _, member := range decl.Members {
		m := member.AsEnumMember()
		memberName, ok := enumMemberIdentifier(m.Name())
		if !ok {
			g.e.Line(fmt.Sprintf("/* TODO: enum member with non-identifier name in %s */", qualified))
			continue
		}
		g.e.Line("/** @const {number} */")
		g.e.Line(fmt.Sprintf("%s.%s;", qualified, memberName))
	}
}

func enumMemberIdentifier(nameNode *ast.Node) (string, bool) {
	switch nameNode.Kind {
	case ast.KindIdentifier:
		return nameNode.Text(), true
	case ast.KindStringLiteral:
		if isValidIdentifier(nameNode.Text()) {
			return nameNode.Text(), true
		}
	}
	return "", false
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if !isLetter && !isDigit {
			return false
		}
	}
	return true
}

// visitTypeAlias implements the type-alias branch.
func (g *Generator) visitTypeAlias(stmt *ast.Node, namespace string) {
	decl := stmt.AsTypeAliasDeclaration()
	name := declName(decl.Name())
	if name == "" {
		return
	}
	t := shimchecker.Checker_getTypeAtLocation(g.checker, decl.Name())
	atType := g.mt.Types().Translate(t, stmt)
	qualified := qualify(namespace, name)

	g.e.Line(tagmodel.ToSerializedComment([]tagmodel.Tag{{Name: tagmodel.NameTypedef, Type: atType}}, true))
	g.e.Line(qualified + ";")
}

func declNameAndSymbol(checker *shimchecker.Checker, stmt *ast.Node) (string, *ast.Symbol) {
	var nameNode *ast.Node
	switch stmt.Kind {
	case ast.KindClassDeclaration:
		nameNode = stmt.AsClassDeclaration().Name()
	case ast.KindInterfaceDeclaration:
		nameNode = stmt.AsInterfaceDeclaration().Name()
	}
	if nameNode == nil {
		return "", nil
	}
	return nameNode.Text(), checker.GetSymbolAtLocation(nameNode)
}

func constructorSignaturesOf(checker *shimchecker.Checker, stmt *ast.Node) []*shimchecker.Signature {
	if stmt.Kind != ast.KindClassDeclaration {
		return nil
	}
	var sigs []*shimchecker.Signature
	for _, m := range stmt.AsClassDeclaration().Members() {
		if m.Kind == ast.KindConstructor {
			if sig := shimchecker.Checker_getSignatureFromDeclaration(checker, m); sig != nil {
				sigs = append(sigs, sig)
			}
		}
	}
	return sigs
}

func firstDeclarationOf(sym *ast.Symbol) *ast.Node {
	if sym == nil || len(sym.Declarations) == 0 {
		return nil
	}
	return sym.Declarations[0]
}
