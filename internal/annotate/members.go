package annotate

import (
	"fmt"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"

	"github.com/jsdocify/jsdocify/internal/moduletranslate"
	"github.com/jsdocify/jsdocify/internal/tagmodel"
)

// BuildMemberTypeDeclaration synthesizes the `if (false) { ... }` dead-code
// block that lists every member of a class or interface with an AT type
// annotation.
//
// Must be called before the class's constructor is visited elsewhere in the
// transformer, because later visitation strips the parameter-property
// comments this function reads.
func BuildMemberTypeDeclaration(checker *shimchecker.Checker, mt *moduletranslate.Translator, node *ast.Node, className string, isInterface bool) string {
	if className == "" {
		return ""
	}

	var lines []string

	staticProps, instanceProps, paramProps, methods, unrecognized := collectMembers(node, isInterface)

	for _, p := range staticProps {
		lines = append(lines, renderPropertyLine(checker, mt, node, className, p, true))
	}
	for _, p := range instanceProps {
		lines = append(lines, renderPropertyLine(checker, mt, node, className, p, false))
	}
	for _, p := range paramProps {
		lines = append(lines, renderParamPropertyLine(checker, mt, node, className, p))
	}
	for _, m := range methods {
		lines = append(lines, renderMethodLine(checker, mt, node, className, m, isInterface))
	}
	for _, u := range unrecognized {
		lines = append(lines, renderUnrecognizedLine(u))
	}

	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("if (false) {\n")
	for _, l := range lines {
		b.WriteString(indent(l))
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// collectMembers partitions a class/interface's members into the property,
// method, and unrecognized-member buckets each downstream renderer expects.
func collectMembers(node *ast.Node, isInterface bool) (staticProps, instanceProps, paramProps, methods, unrecognized []*ast.Node) {
	var members []*ast.Node
	if isInterface {
		members = node.AsInterfaceDeclaration().Members
	} else {
		members = node.AsClassDeclaration().Members()
	}

	for _, m := range members {
		switch m.Kind {
		case ast.KindPropertyDeclaration, ast.KindPropertySignature:
			if isStaticMember(m) {
				staticProps = append(staticProps, m)
			} else {
				instanceProps = append(instanceProps, m)
			}
		case ast.KindMethodDeclaration, ast.KindMethodSignature:
			if isInterface {
				methods = append(methods, m)
			} else if isAbstractMember(m) {
				methods = append(methods, m)
			}
		case ast.KindGetAccessor, ast.KindSetAccessor:
			if !isInterface && isAbstractMember(m) {
				methods = append(methods, m)
			}
		case ast.KindIndexSignature, ast.KindCallSignature, ast.KindConstructSignature:
			unrecognized = append(unrecognized, m)
		}
	}

	// Only the first constructor contributes parameter properties;
	// additional constructors can only arise in ambient code and are
	// merged by the externs path instead.
	for _, m := range members {
		if m.Kind == ast.KindConstructor {
			paramProps = collectParamProperties(m)
			break
		}
	}

	return
}

func collectParamProperties(ctor *ast.Node) []*ast.Node {
	decl := ctor.AsConstructorDeclaration()
	var out []*ast.Node
	for _, p := range decl.Parameters() {
		if hasAnyModifier(p, ast.KindPrivateKeyword, ast.KindProtectedKeyword, ast.KindPublicKeyword, ast.KindReadonlyKeyword) {
			out = append(out, p)
		}
	}
	return out
}

func hasAnyModifier(node *ast.Node, kinds ...ast.Kind) bool {
	for _, m := range modifiersOf(node) {
		for _, k := range kinds {
			if m.Kind == k {
				return true
			}
		}
	}
	return false
}

func isStaticMember(node *ast.Node) bool {
	return hasAnyModifier(node, ast.KindStaticKeyword)
}

func isAbstractMember(node *ast.Node) bool {
	return hasAnyModifier(node, ast.KindAbstractKeyword)
}

// renderPropertyLine implements the property-member branch: a
// property-access expression statement on `<ClassName>` (static)
// or `<ClassName>.prototype` (instance), annotated with a `type` tag.
func renderPropertyLine(checker *shimchecker.Checker, mt *moduletranslate.Translator, classNode *ast.Node, className string, prop *ast.Node, static bool) string {
	name := memberName(prop)
	access := className
	if !static {
		access = className + ".prototype"
	}

	sym := checker.GetSymbolAtLocation(memberNameNode(prop))
	var atType string
	if sym != nil {
		t := shimchecker.Checker_getTypeOfSymbol(checker, sym)
		atType = mt.Types().Translate(t, prop)
	} else {
		atType = "?"
	}

	optional := isOptionalMember(prop)
	if optional && atType == "?" {
		atType = "?|undefined"
	}

	var c tagmodel.Comment
	c.Add(tagmodel.Tag{Name: tagmodel.NameType, Type: atType})
	if hasExportDecorator(prop) {
		c.Add(tagmodel.Tag{Name: tagmodel.NameExport})
	}

	return fmt.Sprintf("%s\n%s.%s;", tagmodel.ToSerializedComment(c.Tags, true), access, name)
}

// renderParamPropertyLine is identical to renderPropertyLine but for a
// constructor parameter property, always on `<ClassName>.prototype`.
func renderParamPropertyLine(checker *shimchecker.Checker, mt *moduletranslate.Translator, classNode *ast.Node, className string, param *ast.Node) string {
	name := memberName(param)
	sym := checker.GetSymbolAtLocation(param.AsParameterDeclaration().Name())
	var atType string
	if sym != nil {
		t := shimchecker.Checker_getTypeOfSymbol(checker, sym)
		atType = mt.Types().Translate(t, param)
	} else {
		atType = "?"
	}

	tag := tagmodel.Tag{Name: tagmodel.NameType, Type: atType}
	return fmt.Sprintf("%s\n%s.prototype.%s;", tagmodel.ToSerializedComment([]tagmodel.Tag{tag}, true), className, name)
}

// renderMethodLine implements the abstract/interface-method branch: an
// empty function of the right arity assigned to
// `<ClassName>.prototype.<name>`, with a composite function-type comment.
func renderMethodLine(checker *shimchecker.Checker, mt *moduletranslate.Translator, classNode *ast.Node, className string, method *ast.Node, isInterface bool) string {
	name := memberName(method)
	sig := shimchecker.Checker_getSignatureFromDeclaration(checker, method)

	var params []*ast.Node
	switch method.Kind {
	case ast.KindMethodDeclaration:
		params = method.AsMethodDeclaration().Parameters()
	case ast.KindMethodSignature:
		params = method.AsMethodSignature().Parameters()
	}

	tag := mt.GetFunctionTypeJSDoc([]*shimchecker.Signature{sig}, method)
	paramNames := tagmodel.MergeParamNames(paramNameList(params))

	return fmt.Sprintf("%s\n%s.prototype.%s = function(%s) {};",
		tagmodel.ToSerializedComment([]tagmodel.Tag{tag}, true), className, name, strings.Join(paramNames, ", "))
}

func renderUnrecognizedLine(member *ast.Node) string {
	return fmt.Sprintf("/* TODO: unrecognized member: %s */", escapeComment(memberSourceSnippet(member)))
}

func memberSourceSnippet(member *ast.Node) string {
	sf := ast.GetSourceFileOfNode(member)
	if sf == nil {
		return ""
	}
	text := sf.Text()
	start, end := member.Pos(), member.End()
	if start < 0 || end > len(text) || start > end {
		return ""
	}
	return text[start:end]
}

func escapeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "*\\/")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func memberName(node *ast.Node) string {
	return declName(memberNameNode(node))
}

func memberNameNode(node *ast.Node) *ast.Node {
	switch node.Kind {
	case ast.KindPropertyDeclaration:
		return node.AsPropertyDeclaration().Name()
	case ast.KindPropertySignature:
		return node.AsPropertySignature().Name()
	case ast.KindMethodDeclaration:
		return node.AsMethodDeclaration().Name()
	case ast.KindMethodSignature:
		return node.AsMethodSignature().Name()
	case ast.KindParameter:
		return node.AsParameterDeclaration().Name()
	}
	return nil
}

func isOptionalMember(node *ast.Node) bool {
	switch node.Kind {
	case ast.KindPropertyDeclaration:
		return node.AsPropertyDeclaration().QuestionToken != nil
	case ast.KindPropertySignature:
		return node.AsPropertySignature().QuestionToken != nil
	}
	return false
}

func hasExportDecorator(node *ast.Node) bool {
	for _, d := range modifiersOf(node) {
		if d.Kind == ast.KindDecorator {
			expr := d.AsDecorator().Expression
			if expr != nil && expr.Kind == ast.KindIdentifier && expr.Text() == "Export" {
				return true
			}
		}
	}
	return false
}

func paramNameList(params []*ast.Node) []string {
	out := make([]string, len(params))
	for i, p := range params {
		n := p.AsParameterDeclaration().Name()
		if n != nil && n.Kind == ast.KindIdentifier {
			out[i] = n.Text()
		} else {
			out[i] = fmt.Sprintf("p%d", i)
		}
	}
	return out
}
