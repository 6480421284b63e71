package scene

import (
	"math"

	"shroomlight/lib/bus"
	"shroomlight/lib/config"
	"shroomlight/lib/fixture"
)

// pastels are eight soft HSV anchors around the color wheel.
var pastels = [8][3]float64{
	{350, 0.35, 0.90}, // soft pink
	{30, 0.40, 0.95},  // peach
	{55, 0.35, 0.95},  // soft yellow
	{140, 0.35, 0.85}, // mint
	{180, 0.35, 0.85}, // soft cyan
	{220, 0.35, 0.85}, // powder blue
	{270, 0.30, 0.85}, // lavender
	{320, 0.35, 0.85}, // soft magenta
}

// PastelFade cycles gently through the pastel anchors. The default idle
// scene; ignores all events.
type PastelFade struct {
	cfg     *config.Manager
	elapsed float64
	phase   map[int]float64
}

func NewPastelFade(cfg *config.Manager) *PastelFade {
	return &PastelFade{cfg: cfg, phase: make(map[int]float64)}
}

func (s *PastelFade) Name() string { return NamePastelFade }

func (s *PastelFade) Activate() {
	s.elapsed = 0
}

func (s *PastelFade) Deactivate() {}

func (s *PastelFade) Update(m *fixture.Mushroom, dt float64) {
	params := s.cfg.Pastel()
	s.elapsed += dt

	phase, ok := s.phase[m.ID]
	if !ok {
		phase = float64(m.ID) * params.PhaseOffset
		s.phase[m.ID] = phase
	}

	cyclePos := math.Mod(s.elapsed/params.CycleDuration+phase, 1.0)

	n := float64(len(pastels))
	colorIndex := cyclePos * n
	idx1 := int(colorIndex) % len(pastels)
	idx2 := (idx1 + 1) % len(pastels)
	blend := colorIndex - math.Floor(colorIndex)

	// Cosine ease hides the segment boundaries.
	blend = (1 - math.Cos(blend*math.Pi)) / 2

	h1, s1, v1 := pastels[idx1][0], pastels[idx1][1], pastels[idx1][2]
	h2, s2, v2 := pastels[idx2][0], pastels[idx2][1], pastels[idx2][2]

	// Take the short way around the hue wheel.
	if math.Abs(h2-h1) > 180 {
		if h1 > h2 {
			h2 += 360
		} else {
			h1 += 360
		}
	}

	h := math.Mod(h1+(h2-h1)*blend, 360)
	sat := s1 + (s2-s1)*blend
	val := v1 + (v2-v1)*blend

	m.SetTarget(fixture.FromHSV(h, sat, val))
	m.Update(dt, 0.05)
}

func (s *PastelFade) HandleEvent(bus.Event, *fixture.Mushroom) {}
