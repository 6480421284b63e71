package scene

import (
	"math"

	"shroomlight/lib/bus"
	"shroomlight/lib/config"
	"shroomlight/lib/fixture"
)

// BioGlow maps plant resistance readings onto a color ramp between two
// configured HSV anchors, with a slow per-mushroom sinusoidal drift so the
// groups don't pulse in lockstep.
type BioGlow struct {
	cfg        *config.Manager
	elapsed    float64
	resistance map[int]float64
	smoothed   map[int]float64
}

func NewBioGlow(cfg *config.Manager) *BioGlow {
	return &BioGlow{
		cfg:        cfg,
		resistance: make(map[int]float64),
		smoothed:   make(map[int]float64),
	}
}

func (s *BioGlow) Name() string { return NameBioGlow }

func (s *BioGlow) Activate() {
	s.elapsed = 0
}

func (s *BioGlow) Deactivate() {}

func (s *BioGlow) Update(m *fixture.Mushroom, dt float64) {
	params := s.cfg.BioGlow()
	s.elapsed += dt

	raw, ok := s.resistance[m.ID]
	if !ok {
		raw = 0.5
	}

	smoothed, ok := s.smoothed[m.ID]
	if !ok {
		smoothed = raw
	} else {
		smoothed += (raw - smoothed) * dt * 2
	}
	s.smoothed[m.ID] = smoothed

	organic := math.Sin(s.elapsed*0.5+float64(m.ID)) * 0.1
	r := math.Max(0, math.Min(1, smoothed+organic))

	lo, hi := params.LowColor, params.HighColor
	h := lo.H + (hi.H-lo.H)*r
	sat := lo.S + (hi.S-lo.S)*r
	v := lo.V + (hi.V-lo.V)*r

	m.SetTarget(fixture.FromHSV(h, sat, v))
	m.Update(dt, 0.08)
}

func (s *BioGlow) HandleEvent(e bus.Event, m *fixture.Mushroom) {
	ev, ok := e.(bus.BioEvent)
	if !ok {
		return
	}
	if ev.Mushroom == bus.Broadcast || ev.Mushroom == m.ID {
		s.resistance[m.ID] = ev.Resistance
	}
}
