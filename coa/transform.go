package coa

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Bounds is an axis-aligned box in normalized document space.
type Bounds struct {
	Min, Max mgl64.Vec2
}

// Center returns the box center.
func (b Bounds) Center() mgl64.Vec2 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extents.
func (b Bounds) Size() mgl64.Vec2 {
	return b.Max.Sub(b.Min)
}

// union widens the box to cover another box.
func (b Bounds) union(o Bounds) Bounds {
	return Bounds{
		Min: mgl64.Vec2{min(b.Min.X(), o.Min.X()), min(b.Min.Y(), o.Min.Y())},
		Max: mgl64.Vec2{max(b.Max.X(), o.Max.X()), max(b.Max.Y(), o.Max.Y())},
	}
}

// instanceBounds is position ± scale/2 on each axis. Rotation never
// affects an instance's box.
func instanceBounds(in *Instance) Bounds {
	half := in.Scale().Mul(0.5)
	return Bounds{Min: in.Pos().Sub(half), Max: in.Pos().Add(half)}
}

// RotationMode selects how a group rotation treats layers and instances.
// Shallow modes treat each layer as one rigid body; deep modes treat
// every instance independently. Rotate-only spins units in place,
// orbit-only moves them about the group center without spinning, both
// does both.
type RotationMode uint8

const (
	RotateOnlyShallow RotationMode = iota
	OrbitOnlyShallow
	BothShallow
	RotateOnlyDeep
	OrbitOnlyDeep
	BothDeep
)

// String returns the mode's wire name.
func (m RotationMode) String() string {
	switch m {
	case RotateOnlyShallow:
		return "rotate_only"
	case OrbitOnlyShallow:
		return "orbit_only"
	case BothShallow:
		return "both"
	case RotateOnlyDeep:
		return "rotate_only_deep"
	case OrbitOnlyDeep:
		return "orbit_only_deep"
	default:
		return "both_deep"
	}
}

// ============================================================
// Bounds queries
// ============================================================

// LayerBounds returns the union box of a layer's seed instances.
func (d *Document) LayerBounds(id string) (Bounds, error) {
	return d.SelectionBounds([]string{id})
}

// SelectionBounds returns the union box across the given layers.
func (d *Document) SelectionBounds(ids []string) (Bounds, error) {
	var out Bounds
	first := true
	for _, id := range ids {
		l, err := d.layer(id)
		if err != nil {
			return Bounds{}, err
		}
		for _, inst := range l.instances {
			b := instanceBounds(inst)
			if first {
				out = b
				first = false
			} else {
				out = out.union(b)
			}
		}
	}
	if first {
		return Bounds{}, fmt.Errorf("empty selection")
	}
	return out, nil
}

// ============================================================
// Single-layer transforms
// ============================================================

// TranslateLayer shifts every seed instance of a layer by the delta.
func (d *Document) TranslateLayer(id string, dx, dy float64) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	for _, inst := range l.instances {
		p := inst.Pos()
		inst.SetPos(p.X()+dx, p.Y()+dy)
	}
	return nil
}

// SetLayerPosition moves the layer's selected instance to the position.
func (d *Document) SetLayerPosition(id string, x, y float64) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.SelectedInstance().SetPos(x, y)
	return nil
}

// ScaleLayer multiplies every seed instance's scale by the factors.
func (d *Document) ScaleLayer(id string, fx, fy float64) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	for _, inst := range l.instances {
		s := inst.Scale()
		inst.SetScale(s.X()*fx, s.Y()*fy)
	}
	return nil
}

// SetLayerScale sets the layer's selected instance scale.
func (d *Document) SetLayerScale(id string, sx, sy float64) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.SelectedInstance().SetScale(sx, sy)
	return nil
}

// RotateLayer adds the delta to every seed instance's rotation.
func (d *Document) RotateLayer(id string, deltaDeg float64) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	for _, inst := range l.instances {
		inst.SetRotation(inst.Rotation() + deltaDeg)
	}
	return nil
}

// SetLayerRotation sets the layer's selected instance rotation.
func (d *Document) SetLayerRotation(id string, deg float64) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.SelectedInstance().SetRotation(deg)
	return nil
}

// FlipLayer toggles the requested flip axes on every seed instance of
// the layer.
func (d *Document) FlipLayer(id string, x, y bool) error {
	l, err := d.layer(id)
	if err != nil {
		return err
	}
	l.Flip(x, y)
	return nil
}

// ============================================================
// Group transforms
// ============================================================

// TranslateLayers shifts every instance of every selected layer by the
// same delta.
func (d *Document) TranslateLayers(ids []string, dx, dy float64) error {
	for _, id := range ids {
		if err := d.TranslateLayer(id, dx, dy); err != nil {
			return err
		}
	}
	return nil
}

// ScaleLayers scales the selection about its bounds center: positions
// move toward or away from the center by the factor and scales multiply
// by it, signs untouched.
func (d *Document) ScaleLayers(ids []string, fx, fy float64) error {
	bounds, err := d.SelectionBounds(ids)
	if err != nil {
		return err
	}
	center := bounds.Center()

	for _, id := range ids {
		l := d.layers[id]
		for _, inst := range l.instances {
			rel := inst.Pos().Sub(center)
			inst.SetPos(center.X()+rel.X()*fx, center.Y()+rel.Y()*fy)
			s := inst.Scale()
			inst.SetScale(s.X()*fx, s.Y()*fy)
		}
	}
	return nil
}

// FlipLayers flips the selection. A single layer flips in place; a
// multi-layer selection also mirrors member positions about the group
// bounds center so the arrangement flips as a whole.
func (d *Document) FlipLayers(ids []string, x, y bool) error {
	if len(ids) == 1 {
		return d.FlipLayer(ids[0], x, y)
	}

	bounds, err := d.SelectionBounds(ids)
	if err != nil {
		return err
	}
	center := bounds.Center()

	for _, id := range ids {
		l, err := d.layer(id)
		if err != nil {
			return err
		}
		l.Flip(x, y)
		for _, inst := range l.instances {
			p := inst.Pos()
			nx, ny := p.X(), p.Y()
			if x {
				nx = 2*center.X() - nx
			}
			if y {
				ny = 2*center.Y() - ny
			}
			inst.SetPos(nx, ny)
		}
	}
	return nil
}

// RotateLayers rotates the selection by the delta under the given mode.
// Orbit modes never change an instance's own rotation; a singleton
// selection degenerates to a no-op under pure orbit because the group
// center coincides with the instance.
func (d *Document) RotateLayers(ids []string, deltaDeg float64, mode RotationMode) error {
	layers := make([]*Layer, len(ids))
	for i, id := range ids {
		l, err := d.layer(id)
		if err != nil {
			return err
		}
		layers[i] = l
	}

	switch mode {
	case RotateOnlyShallow:
		d.rotateOnlyShallow(layers, deltaDeg)
	case OrbitOnlyShallow:
		return d.orbitShallow(ids, layers, deltaDeg, false)
	case BothShallow:
		return d.orbitShallow(ids, layers, deltaDeg, true)
	case RotateOnlyDeep:
		for _, l := range layers {
			for _, inst := range l.instances {
				inst.SetRotation(inst.Rotation() + deltaDeg)
			}
		}
	case OrbitOnlyDeep:
		d.orbitDeep(layers, deltaDeg, false)
	case BothDeep:
		d.orbitDeep(layers, deltaDeg, true)
	}
	return nil
}

// rotateOnlyShallow spins each layer about its own centroid.
func (d *Document) rotateOnlyShallow(layers []*Layer, deltaDeg float64) {
	for _, l := range layers {
		if len(l.instances) == 1 {
			inst := l.instances[0]
			inst.SetRotation(inst.Rotation() + deltaDeg)
			continue
		}
		center := layerCentroid(l)
		for _, inst := range l.instances {
			p := rotatePointAround(inst.Pos(), center, deltaDeg)
			inst.SetPos(p.X(), p.Y())
			inst.SetRotation(inst.Rotation() + deltaDeg)
		}
	}
}

// orbitShallow moves each layer as a rigid unit about the group bounds
// center, spinning too when spin is set.
func (d *Document) orbitShallow(ids []string, layers []*Layer, deltaDeg float64, spin bool) error {
	bounds, err := d.SelectionBounds(ids)
	if err != nil {
		return err
	}
	center := bounds.Center()

	for _, l := range layers {
		if len(l.instances) == 1 {
			inst := l.instances[0]
			p := rotatePointAround(inst.Pos(), center, deltaDeg)
			inst.SetPos(p.X(), p.Y())
			if spin {
				inst.SetRotation(inst.Rotation() + deltaDeg)
			}
			continue
		}

		// Orbit the layer centroid, carry the instances with it.
		layerCenter := layerCentroid(l)
		moved := rotatePointAround(layerCenter, center, deltaDeg)
		offset := moved.Sub(layerCenter)
		for _, inst := range l.instances {
			p := inst.Pos().Add(offset)
			inst.SetPos(p.X(), p.Y())
			if spin {
				inst.SetRotation(inst.Rotation() + deltaDeg)
			}
		}
	}
	return nil
}

// orbitDeep orbits every instance independently about the mean position
// of the whole selection.
func (d *Document) orbitDeep(layers []*Layer, deltaDeg float64, spin bool) {
	var all []*Instance
	for _, l := range layers {
		all = append(all, l.instances...)
	}
	if len(all) == 0 {
		return
	}

	var center mgl64.Vec2
	for _, inst := range all {
		center = center.Add(inst.Pos())
	}
	center = center.Mul(1 / float64(len(all)))

	for _, inst := range all {
		p := rotatePointAround(inst.Pos(), center, deltaDeg)
		inst.SetPos(p.X(), p.Y())
		if spin {
			inst.SetRotation(inst.Rotation() + deltaDeg)
		}
	}
}

// layerCentroid is the mean of a layer's instance positions.
func layerCentroid(l *Layer) mgl64.Vec2 {
	var c mgl64.Vec2
	for _, inst := range l.instances {
		c = c.Add(inst.Pos())
	}
	return c.Mul(1 / float64(len(l.instances)))
}

// rotatePointAround rotates a point about a pivot by degrees.
func rotatePointAround(p, pivot mgl64.Vec2, deg float64) mgl64.Vec2 {
	rel := p.Sub(pivot)
	return mgl64.Rotate2D(mgl64.DegToRad(deg)).Mul2x1(rel).Add(pivot)
}

// ============================================================
// Transform sessions
// ============================================================

// instanceState is one instance's cached starting transform.
type instanceState struct {
	inst     *Instance
	pos      mgl64.Vec2
	scale    mgl64.Vec2
	rotation float64
}

// TransformSession applies interactive transforms from a fixed starting
// state: every call composes the total delta against the state captured
// at Begin, not against the previous call, so drag gestures stay exact.
type TransformSession struct {
	doc    *Document
	ids    []string
	states []instanceState
}

// BeginTransform captures the current transforms of the selection.
func (d *Document) BeginTransform(ids []string) (*TransformSession, error) {
	s := &TransformSession{doc: d, ids: append([]string(nil), ids...)}
	for _, id := range ids {
		l, err := d.layer(id)
		if err != nil {
			return nil, err
		}
		for _, inst := range l.instances {
			s.states = append(s.states, instanceState{
				inst:     inst,
				pos:      inst.Pos(),
				scale:    inst.Scale(),
				rotation: inst.Rotation(),
			})
		}
	}
	return s, nil
}

// reset restores every cached instance to its starting transform.
func (s *TransformSession) reset() {
	for _, st := range s.states {
		st.inst.pos = st.pos
		st.inst.scale = st.scale
		st.inst.rotation = st.rotation
	}
}

// Move translates the selection by the total delta since Begin.
func (s *TransformSession) Move(dx, dy float64) error {
	s.reset()
	return s.doc.TranslateLayers(s.ids, dx, dy)
}

// Scale scales the selection by the total factor since Begin.
func (s *TransformSession) Scale(fx, fy float64) error {
	s.reset()
	return s.doc.ScaleLayers(s.ids, fx, fy)
}

// Rotate rotates the selection by the total delta since Begin.
func (s *TransformSession) Rotate(deltaDeg float64, mode RotationMode) error {
	s.reset()
	return s.doc.RotateLayers(s.ids, deltaDeg, mode)
}

// End releases the cached state. The transforms applied so far remain.
func (s *TransformSession) End() {
	s.states = nil
}
