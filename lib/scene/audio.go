package scene

import (
	"math"

	"shroomlight/lib/bus"
	"shroomlight/lib/config"
	"shroomlight/lib/fixture"
)

// AudioPulse reacts to beat and band-level events broadcast from the audio
// analyzer. Hue shifts with frequency content, saturation and brightness
// rise on beats.
type AudioPulse struct {
	cfg *config.Manager

	beat  float64
	level float64
	low   float64
	mid   float64
	high  float64
}

func NewAudioPulse(cfg *config.Manager) *AudioPulse {
	return &AudioPulse{cfg: cfg}
}

func (s *AudioPulse) Name() string { return NameAudioPulse }

func (s *AudioPulse) Activate() {
	s.beat = 0
	s.level = 0
}

func (s *AudioPulse) Deactivate() {}

func (s *AudioPulse) Update(m *fixture.Mushroom, dt float64) {
	params := s.cfg.AudioPulse()

	s.beat = math.Max(0, s.beat-dt*params.DecayRate)

	baseBrightness := 0.3 + s.level*0.3
	beatBrightness := s.beat * 0.7

	hueShift := s.low*30 - s.high*30
	hue := math.Mod(params.BaseHue+hueShift+360, 360)

	saturation := 0.6 + s.beat*0.4
	brightness := math.Min(1.0, baseBrightness+beatBrightness)

	m.SetTarget(fixture.FromHSV(hue, saturation, brightness))
	m.Update(dt, 0.3)
}

func (s *AudioPulse) HandleEvent(e bus.Event, _ *fixture.Mushroom) {
	switch ev := e.(type) {
	case bus.AudioBeatEvent:
		s.beat = math.Min(1.0, ev.Intensity)
	case bus.AudioLevelEvent:
		s.level = ev.Level
		s.low = ev.Low
		s.mid = ev.Mid
		s.high = ev.High
	}
}
