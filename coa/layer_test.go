package coa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Layer Basics
// ============================================================

func TestNewLayer_Defaults(t *testing.T) {
	layer := NewLayer("gfx/ce_lion_passant.dds", 2)

	assert.NotEmpty(t, layer.ID())
	assert.Equal(t, "ce_lion_passant", layer.Name())
	assert.Equal(t, 2, layer.ColorCount())
	assert.True(t, layer.Visible())
	assert.Equal(t, 1, layer.InstanceCount())
	assert.Equal(t, SymmetryNone, layer.Symmetry().Kind)

	inst, err := layer.Instance(0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, inst.Pos().X())
	assert.Equal(t, 0.5, inst.Pos().Y())
}

func TestDefaultLayerName(t *testing.T) {
	tests := []struct {
		texture  string
		expected string
	}{
		{"ce_lion.dds", "ce_lion"},
		{"gfx/coat_of_arms/ce_cross.dds", "ce_cross"},
		{"plain", "plain"},
		{"", "empty"},
	}
	for _, tt := range tests {
		if got := defaultLayerName(tt.texture); got != tt.expected {
			t.Errorf("defaultLayerName(%q): expected %q, got %q", tt.texture, tt.expected, got)
		}
	}
}

func TestLayer_RemoveLastInstance(t *testing.T) {
	layer := NewLayer("x.dds", 1)
	err := layer.RemoveInstance(0)
	assert.ErrorIs(t, err, ErrLastInstance)

	_, err = layer.AddInstance(0.2, 0.2)
	require.NoError(t, err)
	require.NoError(t, layer.RemoveInstance(0))
	assert.Equal(t, 1, layer.InstanceCount())
}

func TestLayer_SelectionFollowsAdd(t *testing.T) {
	layer := NewLayer("x.dds", 1)
	idx, err := layer.AddInstance(0.1, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 0.1, layer.SelectedInstance().Pos().X())
}

// ============================================================
// Instance Transform Encoding
// ============================================================

func TestInstance_NegativeScaleEncodesFlip(t *testing.T) {
	inst := NewInstance(0.5, 0.5)
	inst.SetScale(-0.4, 0.3)

	assert.True(t, inst.FlipX())
	assert.False(t, inst.FlipY())
	assert.Equal(t, 0.4, inst.Scale().X(), "stored scale stays positive")
	assert.Equal(t, 0.3, inst.Scale().Y())

	// Setting a negative scale again flips back.
	inst.SetScale(-0.4, 0.3)
	assert.False(t, inst.FlipX())
}

func TestInstance_ScaleClamped(t *testing.T) {
	inst := NewInstance(0.5, 0.5)
	inst.SetScale(5, 0.001)
	assert.Equal(t, 1.0, inst.Scale().X())
	assert.Equal(t, 0.01, inst.Scale().Y())
}

func TestInstance_PositionClamped(t *testing.T) {
	inst := NewInstance(-0.5, 1.5)
	assert.Equal(t, 0.0, inst.Pos().X())
	assert.Equal(t, 1.0, inst.Pos().Y())
}

// ============================================================
// Serialization
// ============================================================

func TestLayer_SerializeRebuild(t *testing.T) {
	layer := NewLayer("ce_lion.dds", 2)
	layer.SetName("Lion Rampant")
	layer.SetColor(0, NamedColor("blue"))
	layer.SetColor(1, RGBColor(200, 80, 30))
	layer.SetMask([]int{1, 0, 0})

	inst, _ := layer.Instance(0)
	inst.SetPos(0.3, 0.3)
	inst.SetScale(0.4, 0.4)
	inst.SetRotation(45)
	inst.SetDepth(2.01)

	rebuilt, err := buildLayer(layer.entry(), false)
	require.NoError(t, err)

	assert.Equal(t, layer.ID(), rebuilt.ID())
	assert.Equal(t, "Lion Rampant", rebuilt.Name())
	assert.Equal(t, "ce_lion.dds", rebuilt.Texture())
	assert.Equal(t, 2, rebuilt.ColorCount())
	assert.Equal(t, "blue", rebuilt.Color(0).Name)
	assert.Equal(t, uint8(200), rebuilt.Color(1).R)
	assert.Equal(t, []int{1, 0, 0}, rebuilt.Mask())

	got, _ := rebuilt.Instance(0)
	assert.Equal(t, 0.3, got.Pos().X())
	assert.Equal(t, 45.0, got.Rotation())
	assert.Equal(t, 2.01, got.Depth())
}

func TestLayer_DerivedInstancesNotRebuilt(t *testing.T) {
	layer := NewLayer("ce_lion.dds", 1)
	inst, _ := layer.Instance(0)
	inst.SetPos(0.3, 0.3)
	require.NoError(t, layer.SetSymmetry(Symmetry{
		Kind:   SymmetryRotational,
		Params: []float64{0.5, 0.5, 4, 0, 0},
	}))

	entry := layer.entry()

	// The wire form carries the seed plus three tagged derived copies.
	instEntries := entry.Node.Each("instance")
	require.Len(t, instEntries, 4)
	assert.Equal(t, "yes", instEntries[0].metaString(metaSymmetrySeed, ""))
	for _, e := range instEntries[1:] {
		assert.Equal(t, "yes", e.metaString(metaMirrored, ""))
	}

	// Rebuilding keeps only the seed; the configuration regenerates the
	// rest on demand.
	rebuilt, err := buildLayer(entry, false)
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilt.InstanceCount())
	assert.Equal(t, SymmetryRotational, rebuilt.Symmetry().Kind)
	assert.Len(t, rebuilt.Placements(), 4)
}

func TestLayer_FlipFoldsIntoScaleSign(t *testing.T) {
	layer := NewLayer("x.dds", 1)
	inst, _ := layer.Instance(0)
	inst.SetScale(0.5, 0.5)
	inst.SetFlip(true, false)

	entry := layer.entry()
	instEntry := entry.Node.Each("instance")[0]
	scale, ok := instEntry.Node.First("scale")
	require.True(t, ok)
	vals := scale.Floats()
	assert.Equal(t, -0.5, vals[0])
	assert.Equal(t, 0.5, vals[1])

	rebuilt, err := buildLayer(entry, false)
	require.NoError(t, err)
	got, _ := rebuilt.Instance(0)
	assert.True(t, got.FlipX())
	assert.False(t, got.FlipY())
	assert.Equal(t, 0.5, got.Scale().X())
}

func TestLayer_UnknownContentSurvives(t *testing.T) {
	input := `colored_emblem = {
	texture = "ce_lion.dds"
	color1 = red
	custom_field = "kept"
	instance = {
		position = { 0.5 0.5 }
		scale = { 0.5 0.5 }
	}
}`
	root, err := Parse(input)
	require.NoError(t, err)

	layer, err := buildLayer(root.Entries[0], false)
	require.NoError(t, err)

	entry := layer.entry()
	custom, ok := entry.Node.First("custom_field")
	require.True(t, ok, "unrecognized key must round-trip")
	assert.Equal(t, "kept", custom.Str(""))
}

func TestLayer_RegenerateID(t *testing.T) {
	layer := NewLayer("x.dds", 1)
	rebuilt, err := buildLayer(layer.entry(), true)
	require.NoError(t, err)
	assert.NotEqual(t, layer.ID(), rebuilt.ID())
}

// ============================================================
// Colors
// ============================================================

func TestParseColor(t *testing.T) {
	named, err := ParseColor("purple")
	require.NoError(t, err)
	assert.True(t, named.Named)
	assert.Equal(t, "purple", named.String())

	rgb, err := ParseColor("rgb { 200 80 30 }")
	require.NoError(t, err)
	assert.False(t, rgb.Named)
	assert.Equal(t, uint8(200), rgb.R)
	assert.Equal(t, "rgb { 200 80 30 }", rgb.String())

	_, err = ParseColor("rgb { 300 0 0 }")
	assert.Error(t, err, "components above 255 are invalid")
}
