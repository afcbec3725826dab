// Package typestring implements the Type-String Translator: it turns a
// checker-level TypeScript type into an AT-dialect type string, resolving
// and aliasing symbols along the way and tracking which types must degrade
// to the "unknown" annotation.
//
// The dispatch-by-type-flag structure below walks the checker's type-flag
// taxonomy directly rather than building an intermediate metadata tree.
package typestring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
)

// Parent is the subset of the Module Type Translator that the
// Type-String Translator consults while rendering a type: symbol aliasing,
// forward-declare registration, and blacklist/untyped policy. Declared here
// (rather than imported from internal/moduletranslate) to avoid a package
// cycle — internal/moduletranslate implements this interface.
type Parent interface {
	// ResolveAlias returns the local alias name already in scope for a
	// symbol, and whether one is registered.
	ResolveAlias(sym *ast.Symbol) (string, bool)
	// ForwardDeclareFor registers (if not already registered) a forward
	// declare for the module that declares sym, returning the local alias
	// under which that module is now reachable.
	ForwardDeclareFor(sym *ast.Symbol) string
	// IsBlacklistedPath reports whether typePath is configured as opaque.
	IsBlacklistedPath(typePath string) bool
	// Untyped reports whether the host forces every type to render as `?`.
	Untyped() bool
	// DebugWarn records a non-fatal diagnostic (used for alias-cycle
	// fallbacks).
	DebugWarn(message string)
}

// Translator renders checker types as AT-dialect strings for one
// translation context: one per translation context, short-lived.
type Translator struct {
	checker *shimchecker.Checker
	parent  Parent

	// blacklistedTypeParams holds type-parameter symbol identities that must
	// render as `?` within their scope, set by BlacklistTypeParameters.
	blacklistedTypeParams map[*ast.Symbol]bool

	// aliasing tracks symbols currently being resolved, to detect and break
	// cycles introduced by declaration merging.
	aliasing map[*ast.Symbol]bool
}

// New creates a Translator bound to a checker and the owning
// ModuleTypeTranslator.
func New(checker *shimchecker.Checker, parent Parent) *Translator {
	return &Translator{
		checker:               checker,
		parent:                parent,
		blacklistedTypeParams: make(map[*ast.Symbol]bool),
		aliasing:              make(map[*ast.Symbol]bool),
	}
}

// BlacklistTypeParameters records the type parameters of scope so that,
// within that scope, references to them render as `?` — the AT dialect
// supports only unconstrained templates.
func (t *Translator) BlacklistTypeParameters(typeParams []*ast.Node) {
	for _, tp := range typeParams {
		if tp == nil {
			continue
		}
		if sym := tp.Symbol(); sym != nil {
			t.blacklistedTypeParams[sym] = true
		}
	}
}

// Translate renders the type at contextNode as an AT-dialect string.
func (t *Translator) Translate(typ *shimchecker.Type, contextNode *ast.Node) string {
	if t.parent.Untyped() {
		return "?"
	}
	if typ == nil {
		return "?"
	}
	return t.render(typ, contextNode, false)
}

// IsBlacklisted reports whether sym's declaring module is opaque per the
// host's typeBlacklistPaths.
func (t *Translator) IsBlacklisted(sym *ast.Symbol) bool {
	if sym == nil {
		return false
	}
	path := declaringPath(sym)
	if path == "" {
		return false
	}
	return t.parent.IsBlacklistedPath(path)
}

// SymbolToString resolves a symbol's AT-dialect name: either the alias
// already in scope, or a forward-declared `<alias>.<dotted-name>` path.
func (t *Translator) SymbolToString(sym *ast.Symbol, useFQN bool) string {
	if sym == nil {
		return "?"
	}
	if alias, ok := t.parent.ResolveAlias(sym); ok {
		return alias
	}
	if t.aliasing[sym] {
		t.parent.DebugWarn(fmt.Sprintf("cycle resolving alias for symbol %q, falling back to ?", sym.Name))
		return "?"
	}
	t.aliasing[sym] = true
	defer delete(t.aliasing, sym)

	alias := t.parent.ForwardDeclareFor(sym)
	if alias == "" {
		return exportedDottedName(sym, useFQN)
	}
	return alias + "." + exportedDottedName(sym, useFQN)
}

// render is the flag-dispatch core, mirroring TypeWalker.WalkType /
// walkSingleType / walkUnion in structure.
func (t *Translator) render(typ *shimchecker.Type, ctx *ast.Node, nonNullContext bool) string {
	flags := typ.Flags()

	if flags&shimchecker.TypeFlagsUnion != 0 {
		return t.renderUnion(typ, ctx)
	}
	if flags&shimchecker.TypeFlagsIntersection != 0 {
		return t.renderIntersection(typ, ctx)
	}
	return t.renderSingle(typ, ctx, nonNullContext)
}

func (t *Translator) renderSingle(typ *shimchecker.Type, ctx *ast.Node, nonNullContext bool) string {
	flags := typ.Flags()

	switch {
	case flags&shimchecker.TypeFlagsAny != 0,
		flags&shimchecker.TypeFlagsUnknown != 0:
		return "?"
	case flags&shimchecker.TypeFlagsVoid != 0:
		return "void"
	case flags&shimchecker.TypeFlagsNever != 0:
		return "?" // AT dialect has no bottom type; degrade Non-goals.
	case flags&shimchecker.TypeFlagsNull != 0:
		return "null"
	case flags&shimchecker.TypeFlagsUndefined != 0:
		return "undefined"
	case flags&shimchecker.TypeFlagsStringLiteral != 0:
		return "string"
	case flags&shimchecker.TypeFlagsNumberLiteral != 0:
		return "number"
	case flags&shimchecker.TypeFlagsBooleanLiteral != 0:
		return "boolean"
	case flags&shimchecker.TypeFlagsBigIntLiteral != 0:
		return "bigint"
	case flags&shimchecker.TypeFlagsString != 0:
		return "string"
	case flags&shimchecker.TypeFlagsNumber != 0:
		return "number"
	case flags&shimchecker.TypeFlagsBoolean != 0:
		return "boolean"
	case flags&shimchecker.TypeFlagsBigInt != 0:
		return "bigint"
	case flags&shimchecker.TypeFlagsESSymbol != 0:
		return "symbol"
	case flags&shimchecker.TypeFlagsEnumLiteral != 0:
		return t.renderNamed(typ, ctx, nonNullContext)
	case flags&shimchecker.TypeFlagsTemplateLiteral != 0:
		// The AT dialect has no template-literal type syntax; every
		// template literal type degrades to its runtime representation.
		return "string"
	case flags&shimchecker.TypeFlagsObject != 0:
		return t.renderObject(typ, ctx, nonNullContext)
	case flags&(shimchecker.TypeFlagsTypeParameter) != 0:
		return t.renderTypeParameter(typ)
	case flags&(shimchecker.TypeFlagsConditional|shimchecker.TypeFlagsIndexedAccess|shimchecker.TypeFlagsIndex) != 0:
		if constraint := shimchecker.Checker_getBaseConstraintOfType(t.checker, typ); constraint != nil && constraint != typ {
			return t.render(constraint, ctx, nonNullContext)
		}
		return "?"
	default:
		return "?"
	}
}

func (t *Translator) renderTypeParameter(typ *shimchecker.Type) string {
	sym := typ.Symbol()
	if sym != nil && t.blacklistedTypeParams[sym] {
		return "?"
	}
	if sym == nil {
		return "?"
	}
	return sym.Name
}

// renderObject handles interfaces, classes, arrays, tuples and function
// types, applying the nullability sigil for named (non-primitive) types.
func (t *Translator) renderObject(typ *shimchecker.Type, ctx *ast.Node, nonNullContext bool) string {
	if shimchecker.Checker_isArrayType(t.checker, typ) {
		args := shimchecker.Checker_getTypeArguments(t.checker, typ)
		elem := "?"
		if len(args) > 0 {
			elem = t.render(args[0], ctx, false)
		}
		return "!Array<" + elem + ">"
	}

	callSigs := shimchecker.Checker_getSignaturesOfType(t.checker, typ, shimchecker.SignatureKindCall)
	if len(callSigs) > 0 {
		return t.renderFunctionType(callSigs[0], ctx)
	}

	return t.renderNamed(typ, ctx, nonNullContext)
}

// renderNamed resolves a type with a symbol (interface, class, enum, type
// alias target) to its AT-dialect name, applying the "!" / bare-name
// nullability rule: named types are prefixed "!" unless they arrived through
// a nullable union context, in which case the union renderer prefixes "?"
// instead and calls with nonNullContext=true to suppress the "!" here.
func (t *Translator) renderNamed(typ *shimchecker.Type, ctx *ast.Node, nonNullContext bool) string {
	sym := typ.Symbol()
	if sym == nil {
		return "?"
	}
	if t.IsBlacklisted(sym) {
		return "?"
	}
	name := t.SymbolToString(sym, false)
	if name == "?" {
		return "?"
	}

	args := shimchecker.Checker_getTypeArguments(t.checker, typ)
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = t.render(a, ctx, false)
		}
		name = name + "<" + strings.Join(parts, ", ") + ">"
	}

	if nonNullContext {
		return name
	}
	return "!" + name
}

func (t *Translator) renderFunctionType(sig *shimchecker.Signature, ctx *ast.Node) string {
	params := shimchecker.Signature_parameters(sig)
	parts := make([]string, 0, len(params))
	for _, p := range params {
		pt := shimchecker.Checker_getTypeOfSymbol(t.checker, p)
		parts = append(parts, t.render(pt, ctx, false))
	}
	ret := "?"
	if rt := shimchecker.Checker_getReturnTypeOfSignature(t.checker, sig); rt != nil {
		ret = t.render(rt, ctx, false)
	}
	return fmt.Sprintf("function(%s): %s", strings.Join(parts, ", "), ret)
}

// renderUnion applies the nullability handling: null/undefined
// members are stripped out and instead flip the emitted sigil ("?" prefix on
// the remaining named type) rather than appearing as their own union member.
// Members that render to the same string (such as the true and false halves
// of boolean) appear once.
func (t *Translator) renderUnion(typ *shimchecker.Type, ctx *ast.Node) string {
	members := typ.Types()
	if len(members) == 0 {
		return "?"
	}

	var rest []*shimchecker.Type
	nullable := false
	for _, m := range members {
		f := m.Flags()
		if f&shimchecker.TypeFlagsNull != 0 || f&shimchecker.TypeFlagsUndefined != 0 {
			nullable = true
			continue
		}
		rest = append(rest, m)
	}

	if len(rest) == 0 {
		return "?"
	}

	if len(rest) == 1 {
		if nullable && isNamedType(rest[0]) {
			return "?" + t.render(rest[0], ctx, true)
		}
		return t.render(rest[0], ctx, false)
	}

	parts := make([]string, 0, len(rest))
	seen := make(map[string]bool, len(rest))
	for _, m := range rest {
		p := t.render(m, ctx, false)
		if !seen[p] {
			seen[p] = true
			parts = append(parts, p)
		}
	}
	if len(parts) == 1 {
		if nullable && isNamedType(rest[0]) {
			return "?" + t.render(rest[0], ctx, true)
		}
		return parts[0]
	}
	joined := "(" + strings.Join(parts, "|") + ")"
	if nullable {
		return "?" + joined
	}
	return joined
}

func isNamedType(typ *shimchecker.Type) bool {
	f := typ.Flags()
	if f&shimchecker.TypeFlagsObject == 0 && f&shimchecker.TypeFlagsEnumLiteral == 0 {
		return false
	}
	return typ.Symbol() != nil
}

// renderIntersection folds an intersection into a parenthesized "&" chain;
// the AT dialect has no first-class intersection syntax beyond this
// convention (consumers treat the members as structurally merged).
func (t *Translator) renderIntersection(typ *shimchecker.Type, ctx *ast.Node) string {
	members := typ.Types()
	if len(members) == 0 {
		return "?"
	}
	if len(members) == 1 {
		return t.render(members[0], ctx, false)
	}
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = t.render(m, ctx, false)
	}
	return "(" + strings.Join(parts, "&") + ")"
}

// declaringPath returns the source file path of a symbol's first
// declaration, used for blacklist-path lookups.
func declaringPath(sym *ast.Symbol) string {
	if sym == nil || len(sym.Declarations) == 0 {
		return ""
	}
	decl := sym.Declarations[0]
	sf := ast.GetSourceFileOfNode(decl)
	if sf == nil {
		return ""
	}
	return sf.FileName()
}

// exportedDottedName dots a symbol's name through its enclosing namespace
// chain, e.g. "NS.Sub.Foo", per the symbol-aliasing contract.
func exportedDottedName(sym *ast.Symbol, useFQN bool) string {
	if sym == nil {
		return "?"
	}
	names := []string{sym.Name}
	parent := sym.Parent
	for parent != nil && parent.Name != "" && parent.Name != "__type" {
		names = append([]string{parent.Name}, names...)
		parent = parent.Parent
	}
	if !useFQN {
		return names[len(names)-1]
	}
	return strings.Join(names, ".")
}

// OrUndefined appends "|undefined" to an AT type string — a caller-side
// fix-up for whoever renders an optional property whose type otherwise
// rendered as the bare unknown sigil.
func OrUndefined(atType string) string {
	if atType == "" {
		atType = "?"
	}
	return atType + "|undefined"
}

// JoinUnion renders a pre-computed list of AT type strings as a union,
// deduplicating and sorting for determinism — used by the Module Type
// Translator's function-type overload merge.
func JoinUnion(parts []string) string {
	seen := make(map[string]bool, len(parts))
	uniq := make([]string, 0, len(parts))
	for _, p := range parts {
		if seen[p] {
			continue
		}
		seen[p] = true
		uniq = append(uniq, p)
	}
	if len(uniq) == 1 {
		return uniq[0]
	}
	sort.Strings(uniq)
	return "(" + strings.Join(uniq, "|") + ")"
}
