package coa

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Metadata tag keys recognized by the builder. Unknown tags pass through
// with the rest of the unrecognized content.
const (
	metaUUID          = "uuid"
	metaName          = "name"
	metaContainerUUID = "container_uuid"
	metaSymmetryType  = "symmetry_type"
	metaSymmetryProps = "symmetry_properties"
	metaSymmetrySeed  = "symmetry_seed"
	metaMirrored      = "mirrored"
)

// Layer is one emblem definition: a texture, its color slots, an optional
// region mask, and the ordered seed instances it is placed with. Layers
// carry a stable identifier assigned once; duplicate and paste mint fresh
// ones, ordinary edits never do.
type Layer struct {
	id         string
	name       string
	texture    string
	colorCount int
	colors     [3]Color
	mask       []int
	visible    bool
	container  string
	symmetry   Symmetry
	instances  []*Instance
	selected   int

	// extras holds unrecognized keys from the source text, re-emitted
	// verbatim so foreign data survives a round trip.
	extras []Entry
}

// NewLayer creates a layer for a texture with one centered instance and
// default colors.
func NewLayer(texture string, colorCount int) *Layer {
	l := &Layer{
		id:         uuid.NewString(),
		texture:    texture,
		colorCount: clampInt(colorCount, 1, 3),
		colors: [3]Color{
			NamedColor("yellow"),
			NamedColor("red"),
			NamedColor("red"),
		},
		visible:   true,
		instances: []*Instance{defaultInstance()},
	}
	l.name = defaultLayerName(texture)
	return l
}

func defaultLayerName(texture string) string {
	if texture == "" {
		return "empty"
	}
	return strings.TrimSuffix(path.Base(texture), path.Ext(texture))
}

// ID returns the layer's stable identifier.
func (l *Layer) ID() string { return l.id }

// Name returns the display name.
func (l *Layer) Name() string { return l.name }

// SetName sets the display name.
func (l *Layer) SetName(name string) { l.name = name }

// Texture returns the emblem texture reference.
func (l *Layer) Texture() string { return l.texture }

// SetTexture sets the emblem texture reference.
func (l *Layer) SetTexture(texture string) { l.texture = texture }

// ColorCount returns the declared color channel count (1-3).
func (l *Layer) ColorCount() int { return l.colorCount }

// SetColorCount sets the declared color channel count, clamped to 1-3.
func (l *Layer) SetColorCount(n int) { l.colorCount = clampInt(n, 1, 3) }

// Color returns the color slot i (0-2).
func (l *Layer) Color(i int) Color {
	if i < 0 || i > 2 {
		return Color{}
	}
	return l.colors[i]
}

// SetColor sets color slot i (0-2).
func (l *Layer) SetColor(i int, c Color) {
	if i >= 0 && i < 3 {
		l.colors[i] = c
	}
}

// Mask returns the channel-selector mask, nil when absent.
func (l *Layer) Mask() []int {
	return append([]int(nil), l.mask...)
}

// SetMask sets the channel-selector mask: up to three region indices.
// An empty or all-zero mask means the layer renders everywhere.
func (l *Layer) SetMask(mask []int) {
	if len(mask) > 3 {
		mask = mask[:3]
	}
	l.mask = append([]int(nil), mask...)
}

// Visible reports whether the layer renders.
func (l *Layer) Visible() bool { return l.visible }

// SetVisible sets the visibility flag.
func (l *Layer) SetVisible(v bool) { l.visible = v }

// Container returns the full container identifier, or "" when the layer
// is not grouped.
func (l *Layer) Container() string { return l.container }

// Symmetry returns the layer's symmetry configuration.
func (l *Layer) Symmetry() Symmetry { return l.symmetry.clone() }

// SetSymmetry replaces the symmetry configuration. The change is rejected
// with a *CeilingError when seeds plus derived copies would exceed the
// per-layer instance ceiling; the previous configuration is kept.
func (l *Layer) SetSymmetry(sym Symmetry) error {
	derived := sym.DerivedCount(l.seedPlacements())
	if len(l.instances)+derived > InstanceCeiling {
		return &CeilingError{Seeds: len(l.instances), Derived: derived, Limit: InstanceCeiling}
	}
	l.symmetry = sym.clone()
	return nil
}

// ============================================================
// Instances
// ============================================================

// InstanceCount returns the number of stored seed instances.
func (l *Layer) InstanceCount() int { return len(l.instances) }

// Instance returns seed instance i.
func (l *Layer) Instance(i int) (*Instance, error) {
	if i < 0 || i >= len(l.instances) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrInstanceNotFound, i, len(l.instances))
	}
	return l.instances[i], nil
}

// SelectedInstance returns the currently selected seed instance.
func (l *Layer) SelectedInstance() *Instance {
	if l.selected >= 0 && l.selected < len(l.instances) {
		return l.instances[l.selected]
	}
	return l.instances[0]
}

// SelectInstance marks seed instance i as selected.
func (l *Layer) SelectInstance(i int) error {
	if i < 0 || i >= len(l.instances) {
		return fmt.Errorf("%w: index %d of %d", ErrInstanceNotFound, i, len(l.instances))
	}
	l.selected = i
	return nil
}

// AddInstance appends a seed instance at the given position and returns
// its index. The addition is rejected when it would push the layer past
// the instance ceiling under the active symmetry.
func (l *Layer) AddInstance(x, y float64) (int, error) {
	inst := NewInstance(x, y)
	seeds := append(l.seedPlacements(), inst.placement())
	derived := l.symmetry.DerivedCount(seeds)
	if len(seeds)+derived > InstanceCeiling {
		return 0, &CeilingError{Seeds: len(seeds), Derived: derived, Limit: InstanceCeiling}
	}
	l.instances = append(l.instances, inst)
	l.selected = len(l.instances) - 1
	return l.selected, nil
}

// RemoveInstance removes seed instance i. A layer always keeps at least
// one seed.
func (l *Layer) RemoveInstance(i int) error {
	if i < 0 || i >= len(l.instances) {
		return fmt.Errorf("%w: index %d of %d", ErrInstanceNotFound, i, len(l.instances))
	}
	if len(l.instances) == 1 {
		return ErrLastInstance
	}
	l.instances = append(l.instances[:i], l.instances[i+1:]...)
	if l.selected >= len(l.instances) {
		l.selected = len(l.instances) - 1
	}
	return nil
}

// Flip toggles the requested flip axes on every seed instance.
func (l *Layer) Flip(x, y bool) {
	for _, inst := range l.instances {
		inst.ToggleFlip(x, y)
	}
}

// seedPlacements returns the placements of the stored seeds.
func (l *Layer) seedPlacements() []Placement {
	out := make([]Placement, len(l.instances))
	for i, inst := range l.instances {
		out[i] = inst.placement()
	}
	return out
}

// Placements returns the full render set: each seed followed by its
// symmetry-derived copies, in seed order.
func (l *Layer) Placements() []Placement {
	var out []Placement
	for _, inst := range l.instances {
		seed := inst.placement()
		out = append(out, seed)
		out = append(out, l.symmetry.Derive(seed)...)
	}
	return out
}

// clone deep-copies the layer. When freshID is set the copy receives a
// newly minted identifier, the rule for duplicate, split, and paste.
func (l *Layer) clone(freshID bool) *Layer {
	out := &Layer{
		id:         l.id,
		name:       l.name,
		texture:    l.texture,
		colorCount: l.colorCount,
		colors:     l.colors,
		mask:       append([]int(nil), l.mask...),
		visible:    l.visible,
		container:  l.container,
		symmetry:   l.symmetry.clone(),
		selected:   l.selected,
	}
	if freshID {
		out.id = uuid.NewString()
	}
	for _, inst := range l.instances {
		out.instances = append(out.instances, inst.clone())
	}
	for _, e := range l.extras {
		out.extras = append(out.extras, Entry{Key: e.Key, Node: e.Node.clone(), Meta: cloneMeta(e.Meta)})
	}
	return out
}

func cloneMeta(tags []MetaTag) []MetaTag {
	out := make([]MetaTag, len(tags))
	for i, m := range tags {
		out[i] = m.clone()
	}
	return out
}

// ============================================================
// Build from parse tree
// ============================================================

// buildLayer converts one colored_emblem entry into a Layer. Instances
// tagged as mirrored are discarded so the live symmetry configuration is
// the only source of derived copies. When regenerateID is set a fresh
// identifier is minted regardless of the uuid tag (the paste rule).
func buildLayer(entry Entry, regenerateID bool) (*Layer, error) {
	block := entry.Node
	if block == nil || block.Kind != NodeBlock {
		return nil, &ParseError{Message: "colored_emblem is not a block", Pos: entry.Pos}
	}

	// Tags may precede the emblem block or sit just inside it before the
	// first key; both placements are read.
	meta := append(cloneMeta(entry.Meta), layerMetaFromChildren(block)...)
	tag := func(key string) (MetaTag, bool) {
		for _, m := range meta {
			if m.Key == key {
				return m, true
			}
		}
		return MetaTag{}, false
	}

	l := &Layer{visible: true}

	if m, ok := tag(metaUUID); ok && m.IsStr && !regenerateID {
		l.id = m.Str
	} else {
		l.id = uuid.NewString()
	}

	if tex, ok := block.First("texture"); ok {
		l.texture = tex.Str("")
	}

	l.colors = [3]Color{NamedColor("yellow"), NamedColor("red"), NamedColor("red")}
	l.colorCount = 1
	for i, key := range []string{"color1", "color2", "color3"} {
		node, ok := block.First(key)
		if !ok {
			continue
		}
		c, err := ParseColor(node.Str(""))
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("%s: %v", key, err), Pos: entry.Pos}
		}
		l.colors[i] = c
		l.colorCount = i + 1
	}

	if maskNode, ok := block.First("mask"); ok {
		l.mask = maskNode.Ints()
	}

	if m, ok := tag(metaName); ok && m.IsStr {
		l.name = m.Str
	} else {
		l.name = defaultLayerName(l.texture)
	}

	if m, ok := tag(metaContainerUUID); ok && m.IsStr {
		l.container = m.Str
	}

	if m, ok := tag(metaSymmetryType); ok && m.IsStr {
		l.symmetry.Kind = ParseSymmetryKind(m.Str)
	}
	if props, ok := tag(metaSymmetryProps); ok && !props.IsStr {
		l.symmetry.Params = append([]float64(nil), props.Nums...)
	}

	for _, instEntry := range block.Each("instance") {
		if _, mirrored := instEntry.metaTag(metaMirrored); mirrored {
			continue
		}
		inst, err := buildInstance(instEntry)
		if err != nil {
			return nil, err
		}
		l.instances = append(l.instances, inst)
	}
	if len(l.instances) == 0 {
		l.instances = []*Instance{defaultInstance()}
	}

	// Everything else passes through untouched.
	for _, e := range block.Entries {
		switch e.Key {
		case "texture", "color1", "color2", "color3", "mask", "instance":
			continue
		}
		l.extras = append(l.extras, Entry{Key: e.Key, Node: e.Node.clone(), Meta: stripKnownMeta(e.Meta)})
	}

	return l, nil
}

// layerMetaFromChildren collects recognized layer-level tags written just
// inside the emblem block (attached to its first keys by the parser).
func layerMetaFromChildren(block *Node) []MetaTag {
	var out []MetaTag
	for _, e := range block.Entries {
		if e.Key == "instance" {
			continue
		}
		for _, m := range e.Meta {
			switch m.Key {
			case metaUUID, metaName, metaContainerUUID, metaSymmetryType, metaSymmetryProps:
				out = append(out, m.clone())
			}
		}
	}
	return out
}

// stripKnownMeta drops recognized tags from a pass-through entry so they
// are not emitted twice.
func stripKnownMeta(tags []MetaTag) []MetaTag {
	var out []MetaTag
	for _, m := range tags {
		switch m.Key {
		case metaUUID, metaName, metaContainerUUID, metaSymmetryType, metaSymmetryProps,
			metaSymmetrySeed, metaMirrored:
			continue
		}
		out = append(out, m.clone())
	}
	return out
}

// buildInstance converts one instance entry. Scale sign decodes into the
// flip flags; position and scale clamp to their documented ranges.
func buildInstance(entry Entry) (*Instance, error) {
	block := entry.Node
	if block == nil || block.Kind != NodeBlock {
		return nil, &ParseError{Message: "instance is not a block", Pos: entry.Pos}
	}

	inst := defaultInstance()

	if posNode, ok := block.First("position"); ok {
		if xs := posNode.Floats(); len(xs) >= 2 {
			inst.SetPos(xs[0], xs[1])
		}
	}
	if scaleNode, ok := block.First("scale"); ok {
		if xs := scaleNode.Floats(); len(xs) >= 2 {
			inst.SetScale(xs[0], xs[1])
		}
	}
	if rotNode, ok := block.First("rotation"); ok {
		inst.SetRotation(rotNode.Float(0))
	}
	if depthNode, ok := block.First("depth"); ok {
		inst.SetDepth(depthNode.Float(0))
	}

	return inst, nil
}

// ============================================================
// Serialize to parse tree
// ============================================================

// entry renders the layer as a colored_emblem entry, expanding the active
// symmetry into tagged derived instance blocks.
func (l *Layer) entry() Entry {
	meta := []MetaTag{
		{Key: metaUUID, Str: l.id, IsStr: true},
		{Key: metaName, Str: l.name, IsStr: true},
	}
	if l.container != "" {
		meta = append(meta, MetaTag{Key: metaContainerUUID, Str: l.container, IsStr: true})
	}
	if l.symmetry.Kind != SymmetryNone {
		meta = append(meta,
			MetaTag{Key: metaSymmetryType, Str: l.symmetry.Kind.String(), IsStr: true},
			MetaTag{Key: metaSymmetryProps, Nums: append([]float64(nil), l.symmetry.Params...)},
		)
	}

	var entries []Entry
	entries = append(entries, Entry{Key: "texture", Node: scalarNode(l.texture, true)})
	for i := 0; i < l.colorCount; i++ {
		entries = append(entries, Entry{
			Key:  "color" + strconv.Itoa(i+1),
			Node: scalarNode(l.colors[i].String(), false),
		})
	}
	if len(l.mask) > 0 {
		items := make([]string, len(l.mask))
		for i, v := range l.mask {
			items[i] = strconv.Itoa(v)
		}
		entries = append(entries, Entry{Key: "mask", Node: arrayNode(items)})
	}

	for _, e := range l.extras {
		entries = append(entries, Entry{Key: e.Key, Node: e.Node.clone(), Meta: cloneMeta(e.Meta)})
	}

	symmetric := l.symmetry.Kind != SymmetryNone
	for _, inst := range l.instances {
		seed := inst.placement()

		seedEntry := placementEntry(seed, inst.Depth())
		if symmetric {
			seedEntry.Meta = []MetaTag{{Key: metaSymmetrySeed, Str: "yes", IsStr: true}}
		}
		entries = append(entries, seedEntry)

		for _, derived := range l.symmetry.Derive(seed) {
			e := placementEntry(derived, inst.Depth())
			e.Meta = []MetaTag{{Key: metaMirrored, Str: "yes", IsStr: true}}
			entries = append(entries, e)
		}
	}

	return Entry{Key: "colored_emblem", Meta: meta, Node: blockNode(entries)}
}

// placementEntry renders one placement as an instance entry. Flips fold
// back into the scale sign; zero rotation and depth are omitted.
func placementEntry(p Placement, depth float64) Entry {
	sx, sy := p.Scale.X(), p.Scale.Y()
	if p.FlipX {
		sx = -sx
	}
	if p.FlipY {
		sy = -sy
	}

	entries := []Entry{
		{Key: "position", Node: arrayNode([]string{formatNum(p.Pos.X()), formatNum(p.Pos.Y())})},
		{Key: "scale", Node: arrayNode([]string{formatNum(sx), formatNum(sy)})},
	}
	if p.Rotation != 0 {
		entries = append(entries, Entry{Key: "rotation", Node: scalarNode(formatNum(p.Rotation), false)})
	}
	if depth != 0 {
		entries = append(entries, Entry{Key: "depth", Node: scalarNode(formatNum(depth), false)})
	}

	return Entry{Key: "instance", Node: blockNode(entries)}
}

// minDepth returns the lowest depth among the layer's seeds, the ordering
// hint used when loading documents without metadata.
func (l *Layer) minDepth() float64 {
	if len(l.instances) == 0 {
		return 0
	}
	min := l.instances[0].Depth()
	for _, inst := range l.instances[1:] {
		if inst.Depth() < min {
			min = inst.Depth()
		}
	}
	return min
}
