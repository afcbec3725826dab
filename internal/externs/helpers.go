package externs

import "github.com/microsoft/typescript-go/shim/ast"

func declName(nameNode *ast.Node) string {
	if nameNode == nil {
		return ""
	}
	return nameNode.Text()
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
	}
	return nil
}

func isStaticMember(node *ast.Node) bool {
	mods := node.Modifiers()
	if mods == nil {
		return false
	}
	for _, m := range mods.Nodes {
		if m.Kind == ast.KindStaticKeyword {
			return true
		}
	}
	return false
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
