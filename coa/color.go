package coa

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is one color slot on the document or a layer. A slot holds either
// a symbolic palette name or an explicit rgb triple; both forms appear in
// the wild and round-trip unchanged.
type Color struct {
	Name    string
	R, G, B uint8
	Named   bool
}

// NamedColor returns a symbolic palette color.
func NamedColor(name string) Color {
	return Color{Name: name, Named: true}
}

// RGBColor returns an explicit rgb color.
func RGBColor(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// ParseColor decodes a color scalar: a bare palette name like "red" or an
// rgb construct like "rgb { 255 0 0 }".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "rgb") {
		if s == "" {
			return Color{}, fmt.Errorf("empty color value")
		}
		return NamedColor(s), nil
	}

	inner := strings.TrimPrefix(s, "rgb")
	inner = strings.TrimSpace(inner)
	if !strings.HasPrefix(inner, "{") || !strings.HasSuffix(inner, "}") {
		return Color{}, fmt.Errorf("malformed rgb color %q", s)
	}
	fields := strings.Fields(inner[1 : len(inner)-1])
	if len(fields) != 3 {
		return Color{}, fmt.Errorf("rgb color %q needs 3 components", s)
	}

	var c [3]uint8
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("rgb component %q out of range", f)
		}
		c[i] = uint8(v)
	}
	return RGBColor(c[0], c[1], c[2]), nil
}

// String renders the color in document syntax.
func (c Color) String() string {
	if c.Named {
		return c.Name
	}
	return fmt.Sprintf("rgb { %d %d %d }", c.R, c.G, c.B)
}
