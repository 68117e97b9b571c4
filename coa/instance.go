package coa

import "github.com/go-gl/mathgl/mgl64"

// Position and scale limits for stored instances.
const (
	minScale = 0.01
	maxScale = 1.0
)

// Instance is one stored placement of a layer's emblem: a seed. Position
// is normalized document space, scale magnitude is clamped, and flips are
// kept as flags in memory (the text format encodes them as scale sign).
// Derived copies produced by symmetry never become Instances.
type Instance struct {
	pos      mgl64.Vec2
	scale    mgl64.Vec2 // always positive in memory
	rotation float64    // degrees
	depth    float64    // lower draws on top within the layer
	flipX    bool
	flipY    bool
}

// NewInstance returns an instance at the given position with unit scale.
func NewInstance(x, y float64) *Instance {
	inst := &Instance{scale: mgl64.Vec2{1, 1}}
	inst.SetPos(x, y)
	return inst
}

// defaultInstance is the placement used when an emblem block carries no
// instance blocks: centered, unit scale, no rotation.
func defaultInstance() *Instance {
	return NewInstance(0.5, 0.5)
}

// Pos returns the instance position.
func (in *Instance) Pos() mgl64.Vec2 { return in.pos }

// SetPos sets the position, clamped to [0, 1] on both axes.
func (in *Instance) SetPos(x, y float64) {
	in.pos = mgl64.Vec2{clamp01(x), clamp01(y)}
}

// Scale returns the scale magnitudes (always positive).
func (in *Instance) Scale() mgl64.Vec2 { return in.scale }

// SetScale sets the scale magnitudes, clamped to [0.01, 1.0]. Negative
// input flips the corresponding axis and stores the magnitude.
func (in *Instance) SetScale(x, y float64) {
	if x < 0 {
		in.flipX = !in.flipX
		x = -x
	}
	if y < 0 {
		in.flipY = !in.flipY
		y = -y
	}
	in.scale = mgl64.Vec2{clampScale(x), clampScale(y)}
}

// Rotation returns the rotation in degrees.
func (in *Instance) Rotation() float64 { return in.rotation }

// SetRotation sets the rotation in degrees.
func (in *Instance) SetRotation(deg float64) { in.rotation = deg }

// Depth returns the intra-layer ordering hint.
func (in *Instance) Depth() float64 { return in.depth }

// SetDepth sets the intra-layer ordering hint.
func (in *Instance) SetDepth(d float64) { in.depth = d }

// FlipX reports whether the instance is flipped horizontally.
func (in *Instance) FlipX() bool { return in.flipX }

// FlipY reports whether the instance is flipped vertically.
func (in *Instance) FlipY() bool { return in.flipY }

// SetFlip sets both flip flags.
func (in *Instance) SetFlip(x, y bool) {
	in.flipX = x
	in.flipY = y
}

// ToggleFlip toggles the requested flip axes.
func (in *Instance) ToggleFlip(x, y bool) {
	if x {
		in.flipX = !in.flipX
	}
	if y {
		in.flipY = !in.flipY
	}
}

// placement returns the instance as a symmetry-engine placement.
func (in *Instance) placement() Placement {
	return Placement{
		Pos:      in.pos,
		Scale:    in.scale,
		Rotation: in.rotation,
		FlipX:    in.flipX,
		FlipY:    in.flipY,
	}
}

// clone deep-copies the instance.
func (in *Instance) clone() *Instance {
	out := *in
	return &out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampScale(v float64) float64 {
	if v < minScale {
		return minScale
	}
	if v > maxScale {
		return maxScale
	}
	return v
}
