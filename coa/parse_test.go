package coa

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Parser Tests
// ============================================================

func TestParse_Scalars(t *testing.T) {
	root, err := Parse("pattern = \"pattern_solid.dds\"\ncount = 3\nflag = yes")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(root.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(root.Entries))
	}

	pattern, ok := root.First("pattern")
	if !ok {
		t.Fatal("Missing pattern entry")
	}
	if pattern.Scalar != "pattern_solid.dds" || !pattern.Quoted {
		t.Errorf("Unexpected pattern node: %q quoted=%v", pattern.Scalar, pattern.Quoted)
	}

	count, _ := root.First("count")
	if count.Float(0) != 3 {
		t.Errorf("Expected count 3, got %v", count.Float(0))
	}
}

func TestParse_NestedBlocks(t *testing.T) {
	input := `coat_of_arms = {
	colored_emblem = {
		texture = "ce_lion.dds"
		instance = {
			position = { 0.5 0.5 }
			scale = { 0.8 0.8 }
		}
	}
}`
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	coa, ok := root.First("coat_of_arms")
	if !ok || coa.Kind != NodeBlock {
		t.Fatal("Missing coat_of_arms block")
	}
	emblem, ok := coa.First("colored_emblem")
	if !ok {
		t.Fatal("Missing colored_emblem block")
	}
	inst, ok := emblem.First("instance")
	if !ok {
		t.Fatal("Missing instance block")
	}
	pos, ok := inst.First("position")
	if !ok || pos.Kind != NodeArray {
		t.Fatal("Missing position array")
	}
	vals := pos.Floats()
	if len(vals) != 2 || vals[0] != 0.5 || vals[1] != 0.5 {
		t.Errorf("Unexpected position values: %v", vals)
	}
}

func TestParse_BareArrays(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"numbers", "mask = { 1 2 3 }", []string{"1", "2", "3"}},
		{"empty", "mask = { }", nil},
		{"single", "mask = { 1 }", []string{"1"}},
		{"words", "flags = { alpha beta }", []string{"alpha", "beta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			node := root.Entries[0].Node
			if node.Kind != NodeArray {
				t.Fatalf("Expected array node, got kind %d", node.Kind)
			}
			if len(node.Items) != len(tt.expected) {
				t.Fatalf("Expected %d items, got %d", len(tt.expected), len(node.Items))
			}
			for i, item := range node.Items {
				if item != tt.expected[i] {
					t.Errorf("Item %d: expected %q, got %q", i, tt.expected[i], item)
				}
			}
		})
	}
}

func TestParse_RGBColor(t *testing.T) {
	root, err := Parse("color1 = rgb { 200 80 30 }")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	node := root.Entries[0].Node
	if node.Kind != NodeScalar {
		t.Fatalf("Expected rgb to parse as scalar, got kind %d", node.Kind)
	}
	if node.Scalar != "rgb { 200 80 30 }" {
		t.Errorf("Unexpected rgb scalar: %q", node.Scalar)
	}
}

func TestParse_RepeatedKeys(t *testing.T) {
	input := `colored_emblem = { texture = "a.dds" }
colored_emblem = { texture = "b.dds" }`
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	entries := root.Each("colored_emblem")
	if len(entries) != 2 {
		t.Fatalf("Expected 2 colored_emblem entries, got %d", len(entries))
	}
	second, _ := entries[1].Node.First("texture")
	if second.Str("") != "b.dds" {
		t.Errorf("Unexpected second texture: %q", second.Str(""))
	}
}

func TestParse_MetaTags(t *testing.T) {
	input := `##META##uuid="abc-123"
##META##name="Lion"
colored_emblem = {
	texture = "ce_lion.dds"
}`
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	entry := root.Entries[0]
	if entry.Key != "colored_emblem" {
		t.Fatalf("Expected colored_emblem entry, got %q", entry.Key)
	}
	if len(entry.Meta) != 2 {
		t.Fatalf("Expected 2 meta tags, got %d", len(entry.Meta))
	}
	if entry.metaString("uuid", "") != "abc-123" {
		t.Errorf("Unexpected uuid: %q", entry.metaString("uuid", ""))
	}
	if entry.metaString("name", "") != "Lion" {
		t.Errorf("Unexpected name: %q", entry.metaString("name", ""))
	}
}

func TestParse_NumericMetaTag(t *testing.T) {
	input := `##META##symmetry_properties={ 0.5 0.5 4 0 0 }
colored_emblem = { texture = "x.dds" }`
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tag, ok := root.Entries[0].metaTag("symmetry_properties")
	if !ok {
		t.Fatal("Missing symmetry_properties tag")
	}
	if tag.IsStr {
		t.Error("Expected numeric tag")
	}
	if len(tag.Nums) != 5 || tag.Nums[2] != 4 {
		t.Errorf("Unexpected tag values: %v", tag.Nums)
	}
}

func TestParse_MetaInsideBlock(t *testing.T) {
	// A tag inside a block attaches to the entry that follows it; a tag
	// trailing at the close of a block hoists to the enclosing entry.
	input := `colored_emblem = {
	##META##name="Old Style"
	texture = "x.dds"
	##META##uuid="abc"
}`
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	entry := root.Entries[0]
	texture := entry.Node.Entries[0]
	if texture.metaString("name", "") != "Old Style" {
		t.Errorf("Leading in-block tag should attach to next child: %v", texture.Meta)
	}
	if entry.metaString("uuid", "") != "abc" {
		t.Errorf("Trailing in-block tag should hoist to enclosing entry: %v", entry.Meta)
	}
}

func TestParse_ConstantsIgnored(t *testing.T) {
	input := "@half = 0.5\npattern = \"p.dds\""
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(root.Entries) != 1 || root.Entries[0].Key != "pattern" {
		t.Errorf("Constant definition should be skipped, got %d entries", len(root.Entries))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unclosed block", "a = {\n\tb = c\n"},
		{"stray brace", "}"},
		{"missing value", "a ="},
		{"missing equals", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatal("Expected parse error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("Expected *ParseError, got %T", err)
			}
		})
	}
}

// ============================================================
// Emitter Tests
// ============================================================

func TestEmit_RoundTrip(t *testing.T) {
	input := `coat_of_arms = {
	pattern = "pattern_solid.dds"
	color1 = purple
	color2 = rgb { 200 80 30 }
	colored_emblem = {
		texture = "ce_lion.dds"
		color1 = yellow
		mask = { 1 2 3 }
		instance = {
			position = { 0.25 0.75 }
			scale = { 0.5 0.5 }
			rotation = 45
			depth = 2.01
		}
	}
}`
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	first := EmitNode(root)
	reparsed, err := Parse(first)
	if err != nil {
		t.Fatalf("Reparse of emitted text failed: %v", err)
	}
	second := EmitNode(reparsed)
	if first != second {
		t.Errorf("Emit not stable across round-trip:\n--- first ---\n%s\n--- second ---\n%s", first, second)
	}
}

func TestEmit_MetaPrecedesBlock(t *testing.T) {
	input := `##META##name="Lion"
colored_emblem = { texture = "x.dds" }`
	root, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out := EmitNode(root)
	metaIdx := strings.Index(out, `##META##name="Lion"`)
	blockIdx := strings.Index(out, "colored_emblem")
	if metaIdx < 0 || blockIdx < 0 || metaIdx > blockIdx {
		t.Errorf("Meta tag should precede its block:\n%s", out)
	}
}

func TestFormatNum(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{0.5, "0.5"},
		{1, "1"},
		{0.333333, "0.333333"},
		{-0.25, "-0.25"},
		{0, "0"},
		{-0.0000001, "0"},
	}
	for _, tt := range tests {
		if got := formatNum(tt.in); got != tt.expected {
			t.Errorf("formatNum(%v): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}
