package fixture

import (
	"image/color"
	"math"
)

// Color is an immutable RGB triple. Construct via New or FromHSV; every
// operation returns a new value with channels clamped to 0..255.
type Color struct {
	R, G, B uint8
}

func New(r, g, b int) Color {
	return Color{clamp8(r), clamp8(g), clamp8(b)}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// FromHSV converts h in degrees (wrapped to [0,360)), s and v in [0,1].
func FromHSV(h, s, v float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return New(int((r+m)*255), int((g+m)*255), int((b+m)*255))
}

// HSV returns hue in [0,360), saturation and value in [0,1].
func (c Color) HSV() (h, s, v float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}

	switch {
	case delta == 0:
		h = 0
	case maxC == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case maxC == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// Scaled multiplies all channels by intensity (0..1).
func (c Color) Scaled(intensity float64) Color {
	return New(
		int(float64(c.R)*intensity),
		int(float64(c.G)*intensity),
		int(float64(c.B)*intensity),
	)
}

// Blend interpolates toward other; amount 0 returns c, 1 returns other.
func (c Color) Blend(other Color, amount float64) Color {
	return New(
		int(float64(c.R)+(float64(other.R)-float64(c.R))*amount),
		int(float64(c.G)+(float64(other.G)-float64(c.G))*amount),
		int(float64(c.B)+(float64(other.B)-float64(c.B))*amount),
	)
}

// DMX returns the channel values in fixture order.
func (c Color) DMX() []byte {
	return []byte{c.R, c.G, c.B}
}

// RGBA8 adapts the color for image drawing.
func (c Color) RGBA8() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}
