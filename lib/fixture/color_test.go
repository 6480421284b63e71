package fixture

import (
	"math"
	"testing"
)

func TestFromHSVAnchors(t *testing.T) {
	cases := []struct {
		h, s, v float64
		want    Color
	}{
		{0, 1, 1, Color{255, 0, 0}},
		{120, 1, 1, Color{0, 255, 0}},
		{240, 1, 1, Color{0, 0, 255}},
		{60, 1, 1, Color{255, 255, 0}},
		{180, 1, 1, Color{0, 255, 255}},
		{300, 1, 1, Color{255, 0, 255}},
		{0, 0, 1, Color{255, 255, 255}},
		{0, 0, 0, Color{0, 0, 0}},
		{360, 1, 1, Color{255, 0, 0}},  // wraps
		{-120, 1, 1, Color{0, 0, 255}}, // negative wraps
	}
	for _, c := range cases {
		got := FromHSV(c.h, c.s, c.v)
		if got != c.want {
			t.Errorf("FromHSV(%v, %v, %v) = %v, want %v", c.h, c.s, c.v, got, c.want)
		}
	}
}

func TestHSVRoundTrip(t *testing.T) {
	for _, c := range []Color{
		{255, 0, 0}, {0, 255, 0}, {128, 64, 200}, {10, 10, 10},
	} {
		h, s, v := c.HSV()
		got := FromHSV(h, s, v)
		if absDiff(got.R, c.R) > 2 || absDiff(got.G, c.G) > 2 || absDiff(got.B, c.B) > 2 {
			t.Errorf("round trip %v -> (%v, %v, %v) -> %v", c, h, s, v, got)
		}
	}
}

func TestHSVRange(t *testing.T) {
	h, s, v := Color{200, 100, 50}.HSV()
	if h < 0 || h >= 360 {
		t.Errorf("hue %v out of range", h)
	}
	if s < 0 || s > 1 || v < 0 || v > 1 {
		t.Errorf("s=%v v=%v out of range", s, v)
	}
}

func TestNewClamps(t *testing.T) {
	got := New(300, 256, -10)
	want := Color{255, 255, 0}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScaled(t *testing.T) {
	c := Color{200, 100, 50}
	if got := c.Scaled(1); got != c {
		t.Errorf("Scaled(1) = %v, want %v", got, c)
	}
	if got := c.Scaled(0); got != (Color{}) {
		t.Errorf("Scaled(0) = %v, want zero", got)
	}
	if got := c.Scaled(0.5); got != (Color{100, 50, 25}) {
		t.Errorf("Scaled(0.5) = %v", got)
	}
}

func TestBlend(t *testing.T) {
	a := Color{0, 0, 0}
	b := Color{255, 255, 255}
	if got := a.Blend(b, 0); got != a {
		t.Errorf("Blend(0) = %v, want %v", got, a)
	}
	if got := a.Blend(b, 1); got != b {
		t.Errorf("Blend(1) = %v, want %v", got, b)
	}
	mid := a.Blend(b, 0.5)
	if absDiff(mid.R, 127) > 1 {
		t.Errorf("Blend(0.5) = %v", mid)
	}
}

func TestHueMath(t *testing.T) {
	// Opposite side of the wheel stays in range after a shift.
	h, _, _ := FromHSV(350, 1, 1).HSV()
	if math.Abs(h-350) > 2 {
		t.Errorf("hue 350 came back as %v", h)
	}
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
