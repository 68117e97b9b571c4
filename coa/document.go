package coa

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Document defaults, matching the game's plain shield.
const (
	DefaultPattern = "pattern_solid.dds"
)

var defaultBaseColors = [3]Color{
	NamedColor("purple"),
	NamedColor("yellow"),
	NamedColor("black"),
}

// exportKey names the top-level block of a serialized document.
const exportKey = "coa_export"

// Document is the root of the entity graph: a pattern with three base
// colors and an ordered sequence of layers. Layer order is the sole
// z-ordering signal; index 0 is the background.
//
// Layers are owned by the document and addressed by identifier. The
// document is not internally synchronized; a single logical session owns
// it at a time.
type Document struct {
	pattern string
	colors  [3]Color

	layers map[string]*Layer
	order  []string
	active string

	log zerolog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithLogger attaches a logger for structure-changing operations.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Document) { d.log = log }
}

// NewDocument creates an empty document with the default pattern and
// base colors.
func NewDocument(opts ...Option) *Document {
	d := &Document{
		pattern: DefaultPattern,
		colors:  defaultBaseColors,
		layers:  make(map[string]*Layer),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pattern returns the pattern texture reference.
func (d *Document) Pattern() string { return d.pattern }

// SetPattern sets the pattern texture reference.
func (d *Document) SetPattern(pattern string) { d.pattern = pattern }

// BaseColor returns base color slot i (0-2).
func (d *Document) BaseColor(i int) Color {
	if i < 0 || i > 2 {
		return Color{}
	}
	return d.colors[i]
}

// SetBaseColor sets base color slot i (0-2).
func (d *Document) SetBaseColor(i int, c Color) {
	if i >= 0 && i < 3 {
		d.colors[i] = c
	}
}

// ============================================================
// Layer access
// ============================================================

// LayerCount returns the number of layers.
func (d *Document) LayerCount() int { return len(d.order) }

// LayerIDs returns the layer identifiers in document order, background
// first.
func (d *Document) LayerIDs() []string {
	return append([]string(nil), d.order...)
}

// Layer returns a detached deep copy of the layer with the given
// identifier. Mutating the copy never touches the document; all
// mutation goes through the identifier-addressed operations.
func (d *Document) Layer(id string) (*Layer, error) {
	l, err := d.layer(id)
	if err != nil {
		return nil, err
	}
	return l.clone(false), nil
}

// layer resolves an identifier to the owned entity.
func (d *Document) layer(id string) (*Layer, error) {
	l, ok := d.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	return l, nil
}

// LayerIndex returns the document-order index of a layer.
func (d *Document) LayerIndex(id string) (int, error) {
	for i, lid := range d.order {
		if lid == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLayerNotFound, id)
}

// ActiveLayer returns the identifier of the active layer, or "" when the
// document has none.
func (d *Document) ActiveLayer() string { return d.active }

// SetActiveLayer marks a layer as active.
func (d *Document) SetActiveLayer(id string) error {
	if _, err := d.layer(id); err != nil {
		return err
	}
	d.active = id
	return nil
}

// ============================================================
// Layer lifecycle
// ============================================================

// AddLayer creates a layer for the texture and places it on top. It
// becomes the active layer.
func (d *Document) AddLayer(texture string, colorCount int) string {
	l := NewLayer(texture, colorCount)
	d.insertLayer(len(d.order), l)
	d.active = l.ID()
	d.log.Debug().Str("layer", l.ID()).Str("texture", texture).Msg("layer added")
	return l.ID()
}

// RemoveLayer deletes a layer. Container runs are re-validated afterward.
func (d *Document) RemoveLayer(id string) error {
	idx, err := d.LayerIndex(id)
	if err != nil {
		return err
	}
	d.order = append(d.order[:idx], d.order[idx+1:]...)
	delete(d.layers, id)
	if d.active == id {
		d.active = ""
		if len(d.order) > 0 {
			d.active = d.order[min(idx, len(d.order)-1)]
		}
	}
	d.validateContainers()
	d.log.Debug().Str("layer", id).Msg("layer removed")
	return nil
}

// DuplicateLayer clones a layer with a fresh identifier, inserting the
// copy directly above the original. Returns the new identifier.
func (d *Document) DuplicateLayer(id string) (string, error) {
	src, err := d.layer(id)
	if err != nil {
		return "", err
	}
	idx, _ := d.LayerIndex(id)

	dup := src.clone(true)
	d.insertLayer(idx+1, dup)
	d.validateContainers()
	d.log.Debug().Str("source", id).Str("layer", dup.ID()).Msg("layer duplicated")
	return dup.ID(), nil
}

// MergeLayers merges layers into the first identifier in the list. All
// layers must share a texture; the first layer's colors win and the other
// layers' instances append to it in order. Returns the surviving id.
func (d *Document) MergeLayers(ids []string) (string, error) {
	if len(ids) < 2 {
		return "", fmt.Errorf("merge needs at least 2 layers, got %d", len(ids))
	}

	layers := make([]*Layer, len(ids))
	for i, id := range ids {
		l, err := d.layer(id)
		if err != nil {
			return "", err
		}
		layers[i] = l
	}

	first := layers[0]
	for _, l := range layers[1:] {
		if l.texture != first.texture {
			return "", fmt.Errorf("%w: %q vs %q", ErrMergeIncompatible, first.texture, l.texture)
		}
		if l.colors != first.colors {
			d.log.Warn().Str("layer", l.ID()).Msg("merging layers with differing colors, keeping the first layer's")
		}
	}

	for _, l := range layers[1:] {
		for _, inst := range l.instances {
			first.instances = append(first.instances, inst.clone())
		}
	}
	for _, id := range ids[1:] {
		if err := d.RemoveLayer(id); err != nil {
			return "", err
		}
	}
	d.log.Debug().Int("count", len(ids)).Str("layer", first.ID()).Msg("layers merged")
	return first.ID(), nil
}

// SplitLayer splits a multi-instance layer into one layer per instance,
// each with a fresh identifier, inserted in order after the original. The
// original layer is removed. Returns the new identifiers.
func (d *Document) SplitLayer(id string) ([]string, error) {
	src, err := d.layer(id)
	if err != nil {
		return nil, err
	}
	if len(src.instances) <= 1 {
		return nil, ErrSplitSingleInstance
	}
	idx, _ := d.LayerIndex(id)

	var newIDs []string
	for i, inst := range src.instances {
		part := src.clone(true)
		part.instances = []*Instance{inst.clone()}
		part.selected = 0
		d.insertLayer(idx+1+i, part)
		newIDs = append(newIDs, part.ID())
	}

	if err := d.RemoveLayer(id); err != nil {
		return nil, err
	}
	d.log.Debug().Str("layer", id).Int("parts", len(newIDs)).Msg("layer split")
	return newIDs, nil
}

// insertLayer places a layer at the given document-order index.
// Identifiers are unique per document; a layer arriving with one that
// is already taken, such as a file carrying duplicate uuid tags, gets
// a fresh identifier.
func (d *Document) insertLayer(idx int, l *Layer) {
	if _, taken := d.layers[l.ID()]; taken {
		old := l.ID()
		l.id = uuid.NewString()
		d.log.Warn().Str("old", old).Str("layer", l.ID()).Msg("duplicate layer identifier, minted a fresh one")
	}
	idx = clampInt(idx, 0, len(d.order))
	d.order = append(d.order, "")
	copy(d.order[idx+1:], d.order[idx:])
	d.order[idx] = l.ID()
	d.layers[l.ID()] = l
}

// ============================================================
// Layer ordering
// ============================================================

// MoveLayerToTop moves a layer to the foreground end of the order.
func (d *Document) MoveLayerToTop(id string) error {
	return d.moveLayer(id, func(int) int { return len(d.order) - 1 })
}

// MoveLayerToBottom moves a layer to the background end of the order.
func (d *Document) MoveLayerToBottom(id string) error {
	return d.moveLayer(id, func(int) int { return 0 })
}

// ShiftLayerUp moves a layer one position toward the foreground.
func (d *Document) ShiftLayerUp(id string) error {
	return d.moveLayer(id, func(i int) int { return i + 1 })
}

// ShiftLayerDown moves a layer one position toward the background.
func (d *Document) ShiftLayerDown(id string) error {
	return d.moveLayer(id, func(i int) int { return i - 1 })
}

// MoveLayerAbove places a layer directly in front of the target layer.
func (d *Document) MoveLayerAbove(id, targetID string) error {
	targetIdx, err := d.LayerIndex(targetID)
	if err != nil {
		return err
	}
	return d.moveLayer(id, func(i int) int {
		if i < targetIdx {
			return targetIdx
		}
		return targetIdx + 1
	})
}

// MoveLayerBelow places a layer directly behind the target layer.
func (d *Document) MoveLayerBelow(id, targetID string) error {
	targetIdx, err := d.LayerIndex(targetID)
	if err != nil {
		return err
	}
	return d.moveLayer(id, func(i int) int {
		if i < targetIdx {
			return targetIdx - 1
		}
		return targetIdx
	})
}

func (d *Document) moveLayer(id string, dest func(cur int) int) error {
	idx, err := d.LayerIndex(id)
	if err != nil {
		return err
	}
	to := clampInt(dest(idx), 0, len(d.order)-1)
	if to == idx {
		return nil
	}

	d.order = append(d.order[:idx], d.order[idx+1:]...)
	d.order = append(d.order, "")
	copy(d.order[to+1:], d.order[to:])
	d.order[to] = id

	d.validateContainers()
	d.log.Debug().Str("layer", id).Int("from", idx).Int("to", to).Str("order", d.describeOrder()).Msg("layer moved")
	return nil
}

// ============================================================
// Identifier-addressed property setters
// ============================================================

// SetLayerName sets a layer's display name.
func (d *Document) SetLayerName(id, name string) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.SetName(name)
	return nil
}

// SetLayerVisible sets a layer's visibility flag.
func (d *Document) SetLayerVisible(id string, visible bool) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.SetVisible(visible)
	return nil
}

// SetLayerColor sets color slot i on a layer.
func (d *Document) SetLayerColor(id string, i int, c Color) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.SetColor(i, c)
	return nil
}

// SetLayerMask sets a layer's channel-selector mask.
func (d *Document) SetLayerMask(id string, mask []int) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.SetMask(mask)
	return nil
}

// SetLayerSymmetry replaces a layer's symmetry configuration, enforcing
// the per-layer instance ceiling.
func (d *Document) SetLayerSymmetry(id string, sym Symmetry) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	if err := l.SetSymmetry(sym); err != nil {
		return err
	}
	d.log.Debug().Str("layer", id).Stringer("kind", sym.Kind).Msg("symmetry set")
	return nil
}

// AddInstance appends a seed instance to a layer at the given position
// and returns its index. The instance ceiling applies.
func (d *Document) AddInstance(id string, x, y float64) (int, error) {
	l, err := d.layer(id)
	if err != nil {
		return 0, err
	}
	return l.AddInstance(x, y)
}

// RemoveInstance removes a layer's seed instance by index. A layer
// always keeps at least one seed.
func (d *Document) RemoveInstance(id string, i int) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	return l.RemoveInstance(i)
}

// SelectInstance marks a layer's seed instance as the target for the
// selected-instance setters.
func (d *Document) SelectInstance(id string, i int) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	return l.SelectInstance(i)
}

// ============================================================
// Whole-document round trip
// ============================================================

// FromText parses document text into a new Document. Layers load sorted
// by their minimum instance depth, highest first, so depth-ordered game
// files come in background first.
func FromText(text string, opts ...Option) (*Document, error) {
	root, err := Parse(text)
	if err != nil {
		return nil, err
	}

	body := unwrapDocument(root)
	d := NewDocument(opts...)

	if patternNode, ok := body.First("pattern"); ok {
		d.pattern = patternNode.Str(DefaultPattern)
	}
	for i, key := range []string{"color1", "color2", "color3"} {
		node, ok := body.First(key)
		if !ok {
			continue
		}
		c, err := ParseColor(node.Str(""))
		if err != nil {
			return nil, err
		}
		d.colors[i] = c
	}

	type depthLayer struct {
		depth float64
		layer *Layer
	}
	var parsed []depthLayer
	for _, emblemEntry := range body.Each("colored_emblem") {
		l, err := buildLayer(emblemEntry, false)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, depthLayer{depth: l.minDepth(), layer: l})
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].depth > parsed[j].depth
	})
	for _, p := range parsed {
		d.insertLayer(len(d.order), p.layer)
	}
	if len(d.order) > 0 {
		d.active = d.order[len(d.order)-1]
	}

	return d, nil
}

// unwrapDocument finds the document body inside optional wrapper blocks:
// the named export block, and one further level of nesting some exporters
// produce.
func unwrapDocument(root *Node) *Node {
	body := root
	for depth := 0; depth < 2; depth++ {
		if _, ok := body.First("pattern"); ok {
			return body
		}
		if _, ok := body.First("colored_emblem"); ok {
			return body
		}
		if len(body.Entries) == 1 && body.Entries[0].Node.Kind == NodeBlock {
			body = body.Entries[0].Node
			continue
		}
		break
	}
	return body
}

// ToText serializes the document, expanding each layer's symmetry into
// tagged derived instance blocks.
func (d *Document) ToText() string {
	entries := []Entry{
		{Key: "pattern", Node: scalarNode(d.pattern, true)},
		{Key: "color1", Node: scalarNode(d.colors[0].String(), false)},
		{Key: "color2", Node: scalarNode(d.colors[1].String(), false)},
		{Key: "color3", Node: scalarNode(d.colors[2].String(), false)},
	}
	for _, id := range d.order {
		entries = append(entries, d.layers[id].entry())
	}

	root := blockNode([]Entry{{Key: exportKey, Node: blockNode(entries)}})
	return EmitNode(root)
}

// ============================================================
// Partial (clipboard-style) round trip
// ============================================================

// SerializeLayers renders only the given layers as loose colored_emblem
// blocks. When keepContainers is false the container tags are stripped,
// the rule for copying individual layers; copying a whole container keeps
// them so grouping survives the paste.
func (d *Document) SerializeLayers(ids []string, keepContainers bool) (string, error) {
	var entries []Entry
	for _, id := range ids {
		l, err := d.layer(id)
		if err != nil {
			return "", err
		}
		e := l.entry()
		if !keepContainers {
			var kept []MetaTag
			for _, m := range e.Meta {
				if m.Key == metaContainerUUID {
					continue
				}
				kept = append(kept, m)
			}
			e.Meta = kept
		}
		entries = append(entries, e)
	}
	return EmitNode(blockNode(entries)), nil
}

// PasteLayers parses loose colored_emblem blocks (or a full document,
// from which only the layers are taken) and inserts them in front of the
// target layer, or on top when targetID is "". Pasted layers always
// receive fresh identifiers. Returns the new identifiers in paste order.
func (d *Document) PasteLayers(text string, targetID string) ([]string, error) {
	layers, err := ParseLayers(text)
	if err != nil {
		return nil, err
	}

	idx := len(d.order)
	if targetID != "" {
		tIdx, err := d.LayerIndex(targetID)
		if err != nil {
			return nil, err
		}
		idx = tIdx + 1
	}

	var newIDs []string
	for i, l := range layers {
		d.insertLayer(idx+i, l)
		newIDs = append(newIDs, l.ID())
	}
	d.validateContainers()
	d.log.Debug().Int("count", len(newIDs)).Msg("layers pasted")
	return newIDs, nil
}

// ParseLayers parses loose colored_emblem blocks into layers with fresh
// identifiers. A full document body is accepted too; its pattern and
// base colors are ignored.
func ParseLayers(text string) ([]*Layer, error) {
	// Wrapping lets loose blocks share the document grammar.
	wrapped := exportKey + " = {\n" + text + "\n}"
	root, err := Parse(wrapped)
	if err != nil {
		// Re-parse unwrapped so error positions match the input.
		if _, uerr := Parse(text); uerr != nil {
			return nil, uerr
		}
		return nil, err
	}

	body := unwrapDocument(root)
	var layers []*Layer
	for _, emblemEntry := range body.Each("colored_emblem") {
		l, err := buildLayer(emblemEntry, true)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// describeOrder is a debug helper: layer names in document order.
func (d *Document) describeOrder() string {
	names := make([]string, len(d.order))
	for i, id := range d.order {
		names[i] = d.layers[id].Name()
	}
	return strings.Join(names, " < ")
}
