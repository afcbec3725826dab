package annotate

import (
	"sort"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"

	"github.com/jsdocify/jsdocify/internal/moduletranslate"
	"github.com/jsdocify/jsdocify/internal/tagmodel"
)

// edit is a single (start, end) → replacement-text splice against the
// original, untouched source text. Edits never overlap: a descendant
// expression's edit is dropped once its ancestor already claimed the wider
// range (e.g., a non-null assertion inside a type assertion's expression).
type edit struct {
	Start, End int
	Text       string
}

// collectExpressionEdits walks every node in sf's tree and gathers the
// edits for every expression-level rewrite: type assertions, `as`
// expressions, non-null assertions (→ parenthesized casts), constructor
// parameter field-declaration modifiers (→ comment stripping), and property
// declaration/assignment leading comments (→ escape-illegal-tags
// re-serialization).
func collectExpressionEdits(checker *shimchecker.Checker, mt *moduletranslate.Translator, sf *ast.SourceFile) []edit {
	var edits []edit
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ast.KindAsExpression:
			e := n.AsAsExpression()
			if ed, ok := castEdit(checker, mt, n, e.Expression, n); ok {
				edits = append(edits, ed)
				return // do not descend into an already-replaced range
			}
		case ast.KindTypeAssertionExpression:
			e := n.AsTypeAssertion()
			if ed, ok := castEdit(checker, mt, n, e.Expression, n); ok {
				edits = append(edits, ed)
				return
			}
		case ast.KindNonNullExpression:
			e := n.AsNonNullExpression()
			if ed, ok := nonNullCastEdit(checker, mt, n, e.Expression); ok {
				edits = append(edits, ed)
				return
			}
		case ast.KindParameter:
			if ed, ok := paramFieldEdit(n); ok {
				edits = append(edits, ed)
			}
		case ast.KindPropertyDeclaration, ast.KindPropertyAssignment:
			if ed, ok := propertyCommentEdit(n); ok {
				edits = append(edits, ed)
			}
		}
		n.ForEachChild(func(child *ast.Node) bool {
			walk(child)
			return false
		})
	}
	for _, stmt := range sf.Statements() {
		walk(stmt)
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Start < edits[j].Start })
	return edits
}

// castEdit implements the type-assertion / `as`-expression branch: rewrite
// as a parenthesized cast, a parenthesized subexpression whose leading
// comment is a single `type` tag giving the target type, with no trailing
// newline inside the comment.
func castEdit(checker *shimchecker.Checker, mt *moduletranslate.Translator, outer, innerExpr, wholeNode *ast.Node) (edit, bool) {
	t := shimchecker.Checker_getTypeAtLocation(checker, outer)
	atType := mt.Types().Translate(t, outer)
	innerText := rawText(checker, innerExpr)
	comment := "/** @type {" + atType + "} */"
	replacement := "(" + comment + " (" + innerText + "))"
	return edit{Start: wholeNode.Pos(), End: wholeNode.End(), Text: replacement}, true
}

// nonNullCastEdit implements the non-null-expression branch: the target
// type is the input type with null and undefined removed.
func nonNullCastEdit(checker *shimchecker.Checker, mt *moduletranslate.Translator, outer, innerExpr *ast.Node) (edit, bool) {
	t := shimchecker.Checker_getTypeAtLocation(checker, innerExpr)
	nonNull := shimchecker.Checker_getNonNullableType(checker, t)
	atType := mt.Types().Translate(nonNull, outer)
	innerText := rawText(checker, innerExpr)
	comment := "/** @type {" + atType + "} */"
	replacement := "(" + comment + " (" + innerText + "))"
	return edit{Start: outer.Pos(), End: outer.End(), Text: replacement}, true
}

// paramFieldEdit implements the "parameter with a field-
// declaration modifier" rule: strip all leading comments and suppress
// them recursively, so downstream tooling does not interpret the
// parameter's doc comment as field annotations. The parameter's text range
// starts at its full start, so it carries its leading trivia; the edit
// re-emits that range with the leading whitespace and comments removed.
func paramFieldEdit(node *ast.Node) (edit, bool) {
	if !hasAnyModifier(node, ast.KindPrivateKeyword, ast.KindProtectedKeyword, ast.KindPublicKeyword, ast.KindReadonlyKeyword) {
		return edit{}, false
	}
	text := strings.TrimSpace(rawTextRange(node))
	for {
		end := -1
		if strings.HasPrefix(text, "/*") {
			if i := strings.Index(text, "*/"); i >= 0 {
				end = i + 2
			}
		} else if strings.HasPrefix(text, "//") {
			if i := strings.IndexByte(text, '\n'); i >= 0 {
				end = i + 1
			}
		}
		if end < 0 {
			break
		}
		text = strings.TrimSpace(text[end:])
	}
	return edit{Start: node.Pos(), End: node.End(), Text: text}, true
}

// propertyCommentEdit implements the "Property declaration /
// property assignment" rule: re-serialize the leading structured comment
// through the escape-illegal-tags pass. A member with no JSDoc comment
// needs no edit.
func propertyCommentEdit(node *ast.Node) (edit, bool) {
	jsdocs := node.JSDoc(nil)
	if len(jsdocs) == 0 {
		return edit{}, false
	}
	jsdoc := jsdocs[len(jsdocs)-1]
	sf := ast.GetSourceFileOfNode(jsdoc)
	if sf == nil {
		return edit{}, false
	}
	text := sf.Text()
	start, end := jsdoc.Pos(), jsdoc.End()
	if start < 0 || end > len(text) || start >= end {
		return edit{}, false
	}
	raw := text[start:end]
	tags := tagmodel.ParseComment(raw)
	rendered := tagmodel.ToSerializedComment(tags, false)
	if rendered == "" {
		return edit{}, false
	}
	return edit{Start: start, End: end, Text: rendered}, true
}

func rawText(checker *shimchecker.Checker, node *ast.Node) string {
	return rawTextRange(node)
}

func rawTextRange(node *ast.Node) string {
	sf := ast.GetSourceFileOfNode(node)
	if sf == nil {
		return ""
	}
	text := sf.Text()
	start, end := node.Pos(), node.End()
	if start < 0 || end > len(text) || start > end {
		return ""
	}
	return text[start:end]
}

// applyEditsInRange slices src[start:end] and applies every edit that falls
// entirely within that range, offsetting edit positions relative to start.
// Edits outside the range (or only partially inside it) are ignored — the
// caller is expected to request ranges aligned on statement boundaries, so
// a partial overlap would indicate an edit spanning multiple statements,
// which the expression-level rewrites above never do.
func applyEditsInRange(src string, edits []edit, start, end int) string {
	var b strings.Builder
	cursor := start
	for _, e := range edits {
		if e.Start < start || e.End > end {
			continue
		}
		if e.Start < cursor {
			continue // overlapping edit already consumed; keep first-wins
		}
		b.WriteString(src[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.End
	}
	b.WriteString(src[cursor:end])
	return b.String()
}
