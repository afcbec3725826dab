package tagmodel

import (
	"strings"
	"testing"
)

func TestToSerializedComment_Empty(t *testing.T) {
	if got := ToSerializedComment(nil, true); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestToSerializedComment_TypeTag(t *testing.T) {
	got := ToSerializedComment([]Tag{{Name: NameType, Type: "string"}}, true)
	want := "/**\n * @type {string}\n */"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToSerializedComment_DropsConflictingWithType(t *testing.T) {
	tags := []Tag{
		{Name: NameType, Type: "function(string): number"},
		{Name: NameParam, ParameterName: "x", Type: "string"},
		{Name: NameReturn, Type: "number"},
	}
	got := ToSerializedComment(tags, true)
	if strings.Contains(got, "@param") || strings.Contains(got, "@return") {
		t.Errorf("expected param/return dropped alongside type, got %q", got)
	}
	if !strings.Contains(got, "@type") {
		t.Errorf("expected type tag retained, got %q", got)
	}
}

func TestToSerializedComment_KeepsConflictingWithoutType(t *testing.T) {
	tags := []Tag{
		{Name: NameParam, ParameterName: "x", Type: "string"},
		{Name: NameReturn, Type: "number"},
	}
	got := ToSerializedComment(tags, true)
	if !strings.Contains(got, "@param {string} x") {
		t.Errorf("expected param tag, got %q", got)
	}
	if !strings.Contains(got, "@return {number}") {
		t.Errorf("expected return tag, got %q", got)
	}
}

func TestToSerializedComment_OptionalParam(t *testing.T) {
	tag := Tag{Name: NameParam, ParameterName: "x", Type: "string", Optional: true}
	got := ToSerializedComment([]Tag{tag}, false)
	if !strings.Contains(got, "@param {string} [x]") {
		t.Errorf("expected bracketed optional param, got %q", got)
	}
}

func TestToSerializedComment_EscapesCommentTerminator(t *testing.T) {
	got := ToSerializedComment([]Tag{{Text: "danger */ injection"}}, false)
	if strings.Contains(got, "*/ injection") {
		t.Errorf("expected comment terminator escaped, got %q", got)
	}
	if !strings.Contains(got, "*\\/") {
		t.Errorf("expected escaped terminator marker, got %q", got)
	}
}

func TestParseComment_KnownTagSurvives(t *testing.T) {
	raw := "/**\n * @type {string}\n */"
	tags := ParseComment(raw)
	if len(tags) != 1 || tags[0].Name != NameType || tags[0].Type != "string" {
		t.Errorf("got %+v, want single @type {string} tag", tags)
	}
}

func TestParseComment_UnknownTagDowngradedToFreeText(t *testing.T) {
	raw := "/**\n * @minimum 5\n */"
	tags := ParseComment(raw)
	if len(tags) != 1 || tags[0].Name != "" {
		t.Fatalf("got %+v, want a single free-text tag", tags)
	}
	if !strings.Contains(tags[0].Text, "@minimum") {
		t.Errorf("expected original tag text preserved as free text, got %q", tags[0].Text)
	}
}

func TestParseComment_FreeTextLine(t *testing.T) {
	raw := "/**\n * just a description\n */"
	tags := ParseComment(raw)
	if len(tags) != 1 || tags[0].Name != "" || tags[0].Text != "just a description" {
		t.Errorf("got %+v", tags)
	}
}

func TestParseComment_RoundTripsKnownTags(t *testing.T) {
	raw := "/**\n * @type {number}\n */"
	tags := ParseComment(raw)
	rendered := ToSerializedComment(tags, false)
	if rendered != "/**\n * @type {number}\n */" {
		t.Errorf("round trip mismatch: got %q", rendered)
	}
}

func TestMergeParamNames(t *testing.T) {
	got := MergeParamNames([]string{"a", "b", "c"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestComment_HasType(t *testing.T) {
	var c Comment
	if c.HasType() {
		t.Error("empty comment should not have a type")
	}
	c.AddType("string")
	if !c.HasType() {
		t.Error("expected HasType after AddType")
	}
}
