package coa

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// InstanceCeiling is the most combined seed and derived instances a single
// layer may produce. Symmetry changes that would exceed it are rejected.
const InstanceCeiling = 100

// edgeWrapThreshold is how close to a document edge a grid placement must
// sit before a wrapped copy appears on the opposite edge.
const edgeWrapThreshold = 0.01

// SymmetryKind selects a placement-symmetry structure.
type SymmetryKind uint8

const (
	SymmetryNone SymmetryKind = iota
	SymmetryBisector
	SymmetryRotational
	SymmetryGrid
)

// String returns the kind's wire name.
func (k SymmetryKind) String() string {
	switch k {
	case SymmetryBisector:
		return "bisector"
	case SymmetryRotational:
		return "rotational"
	case SymmetryGrid:
		return "grid"
	default:
		return "none"
	}
}

// ParseSymmetryKind decodes a wire name. Unknown names map to none.
func ParseSymmetryKind(s string) SymmetryKind {
	switch s {
	case "bisector":
		return SymmetryBisector
	case "rotational":
		return SymmetryRotational
	case "grid":
		return SymmetryGrid
	default:
		return SymmetryNone
	}
}

// Grid fill modes (the fifth grid parameter).
const (
	GridFillFull       = 0 // every cell
	GridFillDiamond    = 1 // cells sharing the seed cell's checkerboard parity
	GridFillAltDiamond = 2 // cells of the opposite parity
)

// Symmetry is a layer's placement-symmetry configuration. Params is an
// ordered numeric list whose first two entries are always the structure
// center (normalized document space, 0.5 = document center):
//
//	bisector:   [cx cy rotationOffset mode]        mode 0=single 1=double
//	rotational: [cx cy count kaleidoscope rotationOffset]
//	grid:       [cx cy countX countY fill]
type Symmetry struct {
	Kind   SymmetryKind
	Params []float64
}

// clone deep-copies the configuration.
func (s Symmetry) clone() Symmetry {
	return Symmetry{Kind: s.Kind, Params: append([]float64(nil), s.Params...)}
}

// param returns the i-th parameter or a fallback when absent.
func (s Symmetry) param(i int, fallback float64) float64 {
	if i < len(s.Params) {
		return s.Params[i]
	}
	return fallback
}

// center returns the structure center.
func (s Symmetry) center() mgl64.Vec2 {
	return mgl64.Vec2{s.param(0, 0.5), s.param(1, 0.5)}
}

// Placement is one computed emblem placement: either a seed's own
// transform or a symmetry-derived copy. Derived placements are never
// stored; they exist only as engine output.
type Placement struct {
	Pos      mgl64.Vec2
	Scale    mgl64.Vec2
	Rotation float64
	FlipX    bool
	FlipY    bool
}

// Derive computes the derived placements for one seed under this
// configuration. The seed itself is not included. Derivation is pure:
// only translation, rotation, and the seed's own scale ever appear, so a
// derived copy is never larger than its seed and never sheared.
func (s Symmetry) Derive(seed Placement) []Placement {
	switch s.Kind {
	case SymmetryBisector:
		return s.deriveBisector(seed)
	case SymmetryRotational:
		return s.deriveRotational(seed)
	case SymmetryGrid:
		return s.deriveGrid(seed)
	default:
		return nil
	}
}

// DerivedCount returns how many placements Derive would produce for the
// given seeds without materializing rotations.
func (s Symmetry) DerivedCount(seeds []Placement) int {
	n := 0
	for _, seed := range seeds {
		n += len(s.Derive(seed))
	}
	return n
}

// ============================================================
// Bisector
// ============================================================

func (s Symmetry) deriveBisector(seed Placement) []Placement {
	center := s.center()
	// A zero rotation offset mirrors left-right, so the line itself runs
	// vertical: 90 degrees from the offset's reference.
	lineAngle := s.param(2, 0) + 90
	double := int(s.param(3, 0)) == 1

	first := mirrorAcrossLine(seed, center, lineAngle)
	out := []Placement{first}
	if double {
		out = append(out,
			mirrorAcrossLine(seed, center, lineAngle+90),
			mirrorAcrossLine(first, center, lineAngle+90),
		)
	}
	return out
}

// mirrorAcrossLine reflects a placement across the line through center at
// lineAngle degrees. The reflected rotation is 2*lineAngle - rotation.
func mirrorAcrossLine(p Placement, center mgl64.Vec2, lineAngle float64) Placement {
	theta := mgl64.DegToRad(lineAngle)
	c2, s2 := math.Cos(2*theta), math.Sin(2*theta)
	reflect := mgl64.Mat2{c2, s2, s2, -c2}

	rel := p.Pos.Sub(center)
	mirrored := reflect.Mul2x1(rel).Add(center)

	out := p
	out.Pos = mgl64.Vec2{clamp01(mirrored.X()), clamp01(mirrored.Y())}
	out.Rotation = 2*lineAngle - p.Rotation
	return out
}

// ============================================================
// Rotational
// ============================================================

func (s Symmetry) deriveRotational(seed Placement) []Placement {
	center := s.center()
	count := int(s.param(2, 2))
	if count < 1 {
		count = 1
	}
	kaleidoscope := int(s.param(3, 0)) != 0
	rotationOffset := s.param(4, 0)

	angleStep := 360.0 / float64(count)
	var out []Placement

	if !kaleidoscope {
		for i := 1; i < count; i++ {
			out = append(out, rotateAroundPoint(seed, center, float64(i)*angleStep))
		}
		return out
	}

	// Kaleidoscope patterns two seeds: the original and its reflection
	// across the sector bisector, then rotates both around the center.
	bisectorAngle := angleStep/2 + rotationOffset
	mirrorSeed := mirrorAcrossLine(seed, center, bisectorAngle)
	mirrorSeed.Rotation -= 180
	mirrorSeed.FlipX = !seed.FlipX

	for i := 1; i < count; i++ {
		out = append(out, rotateAroundPoint(seed, center, float64(i)*angleStep))
	}
	for i := 0; i < count; i++ {
		out = append(out, rotateAroundPoint(mirrorSeed, center, float64(i)*angleStep))
	}
	return out
}

// rotateAroundPoint orbits a placement around a pivot, adding the angle to
// the placement's own rotation. The result is clamped to document space.
func rotateAroundPoint(p Placement, pivot mgl64.Vec2, angle float64) Placement {
	rel := p.Pos.Sub(pivot)
	rotated := mgl64.Rotate2D(mgl64.DegToRad(angle)).Mul2x1(rel).Add(pivot)

	out := p
	out.Pos = mgl64.Vec2{clamp01(rotated.X()), clamp01(rotated.Y())}
	out.Rotation = p.Rotation + angle
	return out
}

// ============================================================
// Grid
// ============================================================

func (s Symmetry) deriveGrid(seed Placement) []Placement {
	countX := int(s.param(2, 2))
	countY := int(s.param(3, 2))
	if countX < 1 {
		countX = 1
	}
	if countY < 1 {
		countY = 1
	}
	fill := int(s.param(4, GridFillFull))

	cellW := 1.0 / float64(countX)
	cellH := 1.0 / float64(countY)

	// The seed claims the cell it sits in; every copy keeps the seed's
	// offset from its cell center.
	col := clampInt(int(seed.Pos.X()/cellW), 0, countX-1)
	row := clampInt(int(seed.Pos.Y()/cellH), 0, countY-1)
	seedParity := (row + col) % 2

	cellCenter := mgl64.Vec2{(float64(col) + 0.5) * cellW, (float64(row) + 0.5) * cellH}
	seedOffset := seed.Pos.Sub(cellCenter)

	var copies []Placement
	for r := 0; r < countY; r++ {
		for c := 0; c < countX; c++ {
			if r == row && c == col {
				continue
			}
			if !gridCellFilled(r, c, seedParity, fill) {
				continue
			}
			center := mgl64.Vec2{(float64(c) + 0.5) * cellW, (float64(r) + 0.5) * cellH}
			pos := center.Add(seedOffset)

			derived := seed
			derived.Pos = mgl64.Vec2{clamp01(pos.X()), clamp01(pos.Y())}
			copies = append(copies, derived)
		}
	}

	// Placements near an edge wrap to the opposite edge so tilings read
	// as continuous. The seed itself wraps too, but only its wrapped
	// copies are emitted.
	out := append([]Placement(nil), copies...)
	out = append(out, gridWraps(seed)...)
	for _, p := range copies {
		out = append(out, gridWraps(p)...)
	}
	return out
}

func gridCellFilled(row, col, seedParity, fill int) bool {
	switch fill {
	case GridFillDiamond:
		return (row+col)%2 == seedParity
	case GridFillAltDiamond:
		return (row+col)%2 != seedParity
	default:
		return true
	}
}

// gridWraps returns the wrapped copies for a placement near the document
// edges, including the corner diagonal when two edges are near.
func gridWraps(p Placement) []Placement {
	x, y := p.Pos.X(), p.Pos.Y()

	nearLeft := x <= edgeWrapThreshold
	nearRight := x >= 1-edgeWrapThreshold
	nearBottom := y <= edgeWrapThreshold
	nearTop := y >= 1-edgeWrapThreshold

	var out []Placement
	shift := func(dx, dy float64) {
		c := p
		c.Pos = mgl64.Vec2{x + dx, y + dy}
		out = append(out, c)
	}

	if nearLeft {
		shift(1, 0)
	}
	if nearRight {
		shift(-1, 0)
	}
	if nearBottom {
		shift(0, 1)
	}
	if nearTop {
		shift(0, -1)
	}
	if nearLeft && nearBottom {
		shift(1, 1)
	}
	if nearLeft && nearTop {
		shift(1, -1)
	}
	if nearRight && nearBottom {
		shift(-1, 1)
	}
	if nearRight && nearTop {
		shift(-1, -1)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
