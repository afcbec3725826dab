// Package tagmodel is the in-memory representation of structured comment
// annotations attached to AT-dialect output: Tags, Comments, and the rules
// for merging and serializing them.
package tagmodel

import (
	"sort"
	"strings"
)

// Name identifies the kind of a Tag. An empty Name marks a free-text tag.
type Name string

const (
	NameType        Name = "type"
	NameParam       Name = "param"
	NameReturn      Name = "return"
	NameTemplate    Name = "template"
	NameExtends     Name = "extends"
	NameImplements  Name = "implements"
	NameTypedef     Name = "typedef"
	NameRecord      Name = "record"
	NameConstructor Name = "constructor"
	NameStruct      Name = "struct"
	NameAbstract    Name = "abstract"
	NameExport      Name = "export"
	NameThis        Name = "this"
	NamePrivate     Name = "private"
	NameProtected   Name = "protected"
	NamePublic      Name = "public"
	NameConst       Name = "const"
)

// conflictingWithType is the set of tags dropped from a comment that also
// carries a `type` tag, per the invariant on composite function
// comments.
var conflictingWithType = map[Name]bool{
	NameParam:     true,
	NameReturn:    true,
	NameThis:      true,
	NameTypedef:   true,
	NameTemplate:  true,
	NamePrivate:   true,
	NameProtected: true,
	NamePublic:    true,
	NameExport:    true,
}

// Tag is a single structured comment annotation.
type Tag struct {
	Name Name
	// Type is the AT-syntax type string, when this tag carries one.
	Type string
	// ParameterName names the parameter this tag documents (only for NameParam).
	ParameterName string
	// Text is free-form trailing text (the tag's description, or the whole
	// contribution of a Name-less free-text tag).
	Text string
	// Optional marks a @param as optional ([name] in AT-dialect comments).
	Optional bool
	// RestParam marks a @param as a rest parameter (...name).
	RestParam bool
	// Destructuring marks a @param whose binding is a destructuring pattern.
	Destructuring bool
}

// Comment is an ordered list of Tags attached to a node, plus whether the
// comment's source position is synthetic (inserted by the translator) or
// came from the original program text.
type Comment struct {
	Tags      []Tag
	Synthetic bool
	// Trailing is true when the comment attaches after the node instead of
	// before it.
	Trailing bool
}

// HasType reports whether the comment carries a `type` tag.
func (c *Comment) HasType() bool {
	for _, t := range c.Tags {
		if t.Name == NameType {
			return true
		}
	}
	return false
}

// Add appends a tag to the comment.
func (c *Comment) Add(t Tag) {
	c.Tags = append(c.Tags, t)
}

// AddType is a convenience for the common case of attaching a bare type tag.
func (c *Comment) AddType(atType string) {
	c.Add(Tag{Name: NameType, Type: atType})
}

// AddFreeText appends a free-text (Name-less) contribution.
func (c *Comment) AddFreeText(text string) {
	c.Add(Tag{Text: text})
}

// dropConflicting returns the subset of tags with a single invariant
// applied: at most one `type` tag, and — if one is present — every tag
// whose Name is in conflictingWithType is removed. Order is preserved
// among the surviving tags.
func dropConflicting(tags []Tag) []Tag {
	hasType := false
	for _, t := range tags {
		if t.Name == NameType {
			hasType = true
			break
		}
	}
	if !hasType {
		return tags
	}
	out := make([]Tag, 0, len(tags))
	seenType := false
	for _, t := range tags {
		if t.Name == NameType {
			if seenType {
				continue // at most one type tag survives
			}
			seenType = true
			out = append(out, t)
			continue
		}
		if conflictingWithType[t.Name] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ToSerializedComment renders tags into a textual AT-dialect block comment:
//
//	toSerializedComment(tags, conflictingTagsToDrop?) → comment
//
// When dropConflictingTags is true, tags conflicting with a present `type`
// tag are removed before rendering.
func ToSerializedComment(tags []Tag, dropConflictingTags bool) string {
	if len(tags) == 0 {
		return ""
	}
	if dropConflictingTags {
		tags = dropConflicting(tags)
	}
	if len(tags) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("/**\n")
	for _, t := range tags {
		b.WriteString(" * ")
		b.WriteString(renderTagLine(t))
		b.WriteString("\n")
	}
	b.WriteString(" */")
	return b.String()
}

func renderTagLine(t Tag) string {
	var b strings.Builder
	if t.Name == "" {
		b.WriteString(escapeCommentBody(t.Text))
		return b.String()
	}
	b.WriteByte('@')
	b.WriteString(string(t.Name))
	if t.Type != "" {
		b.WriteString(" {")
		b.WriteString(t.Type)
		b.WriteString("}")
	}
	if t.Name == NameParam {
		name := t.ParameterName
		if t.RestParam {
			// Rest params are already reflected in the type string as
			// ...T by the caller; the AT dialect names them plainly.
			name = name
		}
		if name != "" {
			if t.Optional {
				b.WriteString(" [")
				b.WriteString(name)
				b.WriteString("]")
			} else {
				b.WriteString(" ")
				b.WriteString(name)
			}
		}
	}
	if t.Text != "" {
		b.WriteString(" ")
		b.WriteString(escapeCommentBody(t.Text))
	}
	return b.String()
}

// escapeCommentBody neutralizes the block-comment terminator so free text or
// escaped source snippets can never prematurely close the emitted comment.
func escapeCommentBody(s string) string {
	return strings.ReplaceAll(s, "*/", "*\\/")
}

// knownNames is the set of tag names the AT dialect recognizes; anything
// else parsed out of an existing comment is not a structured tag.
var knownNames = map[Name]bool{
	NameType: true, NameParam: true, NameReturn: true, NameTemplate: true,
	NameExtends: true, NameImplements: true, NameTypedef: true, NameRecord: true,
	NameConstructor: true, NameStruct: true, NameAbstract: true, NameExport: true,
	NameThis: true, NamePrivate: true, NameProtected: true, NamePublic: true,
	NameConst: true,
}

// ParseComment reads an existing `/** ... */` block comment (as it appears
// verbatim in source) into a Tag list, downgrading any `@tagname` this
// dialect doesn't recognize to a free-text line — run over a property
// declaration or property assignment's leading comment before re-emitting
// it.
func ParseComment(raw string) []Tag {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "/**")
	body = strings.TrimSuffix(body, "*/")

	var tags []Tag
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "@") {
			tags = append(tags, Tag{Text: line})
			continue
		}
		rest := line[1:]
		nameEnd := strings.IndexAny(rest, " \t")
		var name, remainder string
		if nameEnd < 0 {
			name, remainder = rest, ""
		} else {
			name, remainder = rest[:nameEnd], strings.TrimSpace(rest[nameEnd:])
		}

		tagType, remainder := extractBracedType(remainder)
		n := Name(name)
		if !knownNames[n] {
			// Unrecognized tag: downgrade to free text rather than drop, so
			// author intent isn't silently lost.
			tags = append(tags, Tag{Text: line})
			continue
		}
		tags = append(tags, Tag{Name: n, Type: tagType, Text: remainder})
	}
	return tags
}

// extractBracedType strips a leading "{...}" type expression off s, if any.
func extractBracedType(s string) (typ, rest string) {
	if !strings.HasPrefix(s, "{") {
		return "", s
	}
	closeIdx := strings.Index(s, "}")
	if closeIdx < 0 {
		return "", s
	}
	return s[1:closeIdx], strings.TrimSpace(s[closeIdx+1:])
}

// MergeParamNames returns a copy of the first overload's parameter names,
// in their original order, as the display order for a merged signature.
// Names from other overloads are not consulted.
func MergeParamNames(first []string) []string {
	out := make([]string, len(first))
	copy(out, first)
	return out
}

// SortedKeys is a small helper used by callers that build maps of tags keyed
// by name and need deterministic iteration for serialization.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
