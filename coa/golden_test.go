package coa

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// The fixtures under testdata are real-shaped documents: plain files,
// metadata-tagged files, symmetry expansions, and legacy layouts with
// in-block tags and @constants. For each one, loading and serializing
// must reach a fixed point after a single pass: serialize(load(text))
// serializes to itself from then on.

func goldenFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("testdata", "*.txt"))
	if err != nil {
		t.Fatalf("Globbing testdata failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("No fixtures found under testdata")
	}
	return matches
}

func TestGolden_EmitFixedPoint(t *testing.T) {
	for _, file := range goldenFiles(t) {
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			if err != nil {
				t.Fatalf("Reading fixture failed: %v", err)
			}

			root, err := Parse(string(data))
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
				t.Errorf("Emit is not a fixed point:\n--- first ---\n%s\n--- second ---\n%s", first, second)
			}
		})
	}
}

func TestGolden_DocumentFixedPoint(t *testing.T) {
	for _, file := range goldenFiles(t) {
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			if err != nil {
				t.Fatalf("Reading fixture failed: %v", err)
			}

			doc, err := FromText(string(data))
			if err != nil {
				t.Fatalf("FromText failed: %v", err)
			}

			first := doc.ToText()
			doc2, err := FromText(first)
			if err != nil {
				t.Fatalf("FromText on serialized output failed: %v", err)
			}
			second := doc2.ToText()
			if first != second {
				t.Errorf("Document round trip is not a fixed point:\n--- first ---\n%s\n--- second ---\n%s", first, second)
			}

			if doc.LayerCount() != doc2.LayerCount() {
				t.Errorf("Layer count changed: %d vs %d", doc.LayerCount(), doc2.LayerCount())
			}
		})
	}
}

func TestGolden_MirroredInstancesNotStored(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "symmetry.txt"))
	if err != nil {
		t.Fatalf("Reading fixture failed: %v", err)
	}

	doc, err := FromText(string(data))
	if err != nil {
		t.Fatalf("FromText failed: %v", err)
	}

	ring, err := doc.Layer("1f0c3a6e-9d7b-4c21-8f0e-52a3b1d1c001")
	if err != nil {
		t.Fatalf("Fixture layer missing: %v", err)
	}

	if n := ring.InstanceCount(); n != 1 {
		t.Fatalf("Expected 1 stored seed, got %d", n)
	}
	if n := len(ring.Placements()); n != 4 {
		t.Fatalf("Expected 4 rendered placements, got %d", n)
	}

	// Serialization re-expands the derived copies.
	out := doc.ToText()
	if got := strings.Count(out, `##META##mirrored="yes"`); got != 3 {
		t.Errorf("Expected 3 mirrored instance tags, got %d", got)
	}
}

func TestGolden_LegacyInBlockTags(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "legacy.txt"))
	if err != nil {
		t.Fatalf("Reading fixture failed: %v", err)
	}

	doc, err := FromText(string(data))
	if err != nil {
		t.Fatalf("FromText failed: %v", err)
	}
	if doc.LayerCount() != 1 {
		t.Fatalf("Expected 1 layer, got %d", doc.LayerCount())
	}

	eagle, err := doc.Layer(doc.LayerIDs()[0])
	if err != nil {
		t.Fatal(err)
	}
	if eagle.Name() != "Eagle" {
		t.Errorf("In-block name tag not applied: %q", eagle.Name())
	}
	if eagle.Symmetry().Kind != SymmetryBisector {
		t.Errorf("In-block symmetry tag not applied: %s", eagle.Symmetry().Kind)
	}
	if eagle.InstanceCount() != 1 {
		t.Errorf("Mirrored instance should be discarded, got %d seeds", eagle.InstanceCount())
	}
}
