// Package modulator is the global post-processing layer: an LFO plus a queue
// of decaying one-shot effects, applied to every fixture color after scene
// computation and before transmission. Apply is a pure transform of the
// color value; it never depends on which scene produced it.
package modulator

import (
	"log"
	"math"
	"math/rand"
	"sync"

	"shroomlight/lib/bus"
	"shroomlight/lib/fixture"
)

type Waveform int

const (
	WaveOff Waveform = iota
	WaveSine
	WaveSquare
	WaveTriangle
)

var waveformNames = map[Waveform]string{
	WaveOff: "off", WaveSine: "sine", WaveSquare: "square", WaveTriangle: "triangle",
}

func (w Waveform) String() string { return waveformNames[w] }

// ParseWaveform returns the waveform named s, or WaveOff and false.
func ParseWaveform(s string) (Waveform, bool) {
	for w, name := range waveformNames {
		if name == s {
			return w, true
		}
	}
	return WaveOff, false
}

type Target int

const (
	TargetHue Target = iota
	TargetSaturation
	TargetBrightness
)

var targetNames = map[Target]string{
	TargetHue: "hue", TargetSaturation: "saturation", TargetBrightness: "brightness",
}

func (t Target) String() string { return targetNames[t] }

func ParseTarget(s string) (Target, bool) {
	for t, name := range targetNames {
		if name == s {
			return t, true
		}
	}
	return TargetHue, false
}

// One-shot effect kinds.
const (
	EffectFlash    = "flash"
	EffectHueShift = "hue_shift"
)

// OneShot is a decaying one-shot effect. Intensity decays linearly by
// DecayRate per second; the effect is dropped once it reaches zero.
type OneShot struct {
	Kind      string
	Intensity float64
	DecayRate float64

	// Flash payload.
	Color fixture.Color
	// Hue shift payload, in degrees.
	Shift float64
}

// warm hues used for the tap gesture pulse.
var tapHues = []float64{0, 30, 60, 280, 320}

type Modulator struct {
	mu sync.Mutex

	waveform  Waveform
	target    Target
	phase     float64 // 0..1
	frequency float64 // Hz
	depth     float64 // 0..1

	lfoValue float64 // waveform output x depth, refreshed each Update

	stickHue        float64 // -1..1 -> ±60 degrees
	stickSaturation float64 // -1..1 -> ±0.5
	stickBrightness float64 // -1..1 -> ±0.5

	oneShots []OneShot
}

func New(b *bus.Bus) *Modulator {
	m := &Modulator{
		waveform:  WaveOff,
		target:    TargetHue,
		frequency: 0.5,
		depth:     0.5,
	}
	if b != nil {
		b.Subscribe(bus.ControllerButton, m.handleButton)
		b.Subscribe(bus.ControllerAxis, m.handleAxis)
		b.Subscribe(bus.Gesture, m.handleGesture)
	}
	return m
}

func (m *Modulator) handleButton(e bus.Event) {
	ev, ok := e.(bus.ButtonEvent)
	if !ok || !ev.Pressed {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Button {
	case bus.ButtonL3:
		m.target = (m.target + 1) % 3
		log.Printf("modulator: LFO target %s", m.target)
	case bus.ButtonR3:
		m.waveform = (m.waveform + 1) % 4
		log.Printf("modulator: LFO waveform %s", m.waveform)
	case bus.ButtonShare:
		m.oneShots = append(m.oneShots, OneShot{
			Kind: EffectFlash, Intensity: 1.0, DecayRate: 3.0,
			Color: fixture.New(255, 255, 255),
		})
	case bus.ButtonTouchpad:
		m.oneShots = append(m.oneShots, OneShot{
			Kind: EffectHueShift, Intensity: 1.0, DecayRate: 2.0, Shift: 180,
		})
	}
}

func (m *Modulator) handleAxis(e bus.Event) {
	ev, ok := e.(bus.AxisEvent)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Axis {
	case bus.AxisLeftX:
		m.stickHue = ev.Value
	case bus.AxisLeftY:
		m.stickSaturation = -ev.Value // up is positive
	case bus.AxisRightY:
		m.stickBrightness = -ev.Value
	case bus.AxisL2:
		m.depth = (ev.Value + 1) / 2 // triggers rest at -1
	case bus.AxisR2:
		m.frequency = 0.1 + ((ev.Value+1)/2)*4.9
	}
}

func (m *Modulator) handleGesture(e bus.Event) {
	ev, ok := e.(bus.GestureEvent)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Gesture {
	case bus.GestureGrab:
		m.oneShots = append(m.oneShots, OneShot{
			Kind: EffectFlash, Intensity: ev.Strength, DecayRate: 4.0,
			Color: fixture.New(255, 255, 255),
		})
	case bus.GestureRelease:
		m.oneShots = append(m.oneShots, OneShot{
			Kind: EffectHueShift, Intensity: ev.Strength, DecayRate: 2.0, Shift: 180,
		})
	case bus.GestureTap:
		hue := tapHues[rand.Intn(len(tapHues))]
		m.oneShots = append(m.oneShots, OneShot{
			Kind: EffectFlash, Intensity: ev.Strength, DecayRate: 5.0,
			Color: fixture.FromHSV(hue, 1, 1),
		})
	case bus.GestureSwipeLeft:
		m.waveform = (m.waveform + 3) % 4
	case bus.GestureSwipeRight:
		m.waveform = (m.waveform + 1) % 4
	case bus.GestureSwipeUp:
		m.target = (m.target + 1) % 3
	case bus.GestureSwipeDown:
		m.target = (m.target + 2) % 3
	case bus.GestureCircleCW:
		m.frequency = math.Min(5.0, m.frequency*1.5)
	case bus.GestureCircleCCW:
		m.frequency = math.Max(0.1, m.frequency/1.5)
	case bus.GesturePush:
		m.depth = math.Min(1.0, m.depth+0.2)
	case bus.GesturePull:
		m.depth = math.Max(0.0, m.depth-0.2)
	}
}

func (m *Modulator) waveValue() float64 {
	switch m.waveform {
	case WaveSine:
		return math.Sin(m.phase * 2 * math.Pi)
	case WaveSquare:
		if m.phase < 0.5 {
			return 1.0
		}
		return -1.0
	case WaveTriangle:
		switch {
		case m.phase < 0.25:
			return m.phase * 4
		case m.phase < 0.75:
			return 1 - (m.phase-0.25)*4
		default:
			return -1 + (m.phase-0.75)*4
		}
	}
	return 0
}

// Update advances the LFO phase and decays one-shots. The only place state
// changes besides the control-event handlers.
func (m *Modulator) Update(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.phase = math.Mod(m.phase+dt*m.frequency, 1.0)
	m.lfoValue = m.waveValue() * m.depth

	active := m.oneShots[:0]
	for _, e := range m.oneShots {
		e.Intensity -= dt * e.DecayRate
		if e.Intensity > 0 {
			active = append(active, e)
		}
	}
	m.oneShots = active
}

// Apply transforms a scene-produced color through the LFO, the stick
// offsets, and the active one-shots. Same-kind flashes composite at max
// intensity; hue shifts add across simultaneous instances.
func (m *Modulator) Apply(c fixture.Color) fixture.Color {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, s, v := c.HSV()

	switch m.target {
	case TargetHue:
		h = math.Mod(h+m.lfoValue*60+360, 360)
	case TargetSaturation:
		s = clamp01(s + m.lfoValue*0.5)
	case TargetBrightness:
		v = clamp01(v + m.lfoValue*0.5)
	}

	h = math.Mod(h+m.stickHue*60+360, 360)
	s = clamp01(s + m.stickSaturation*0.5)
	v = clamp01(v + m.stickBrightness*0.5)

	flashBlend := 0.0
	flashColor := fixture.New(255, 255, 255)
	hueShift := 0.0

	for _, e := range m.oneShots {
		switch e.Kind {
		case EffectFlash:
			if e.Intensity > flashBlend {
				flashBlend = e.Intensity
				flashColor = e.Color
			}
		case EffectHueShift:
			hueShift += e.Shift * e.Intensity
		}
	}

	h = math.Mod(h+hueShift+360, 360)

	result := fixture.FromHSV(h, s, v)
	if flashBlend > 0 {
		result = result.Blend(flashColor, flashBlend)
	}
	return result
}

// Trigger adds a one-shot effect, for the web surface.
func (m *Modulator) Trigger(e OneShot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneShots = append(m.oneShots, e)
}

// SetLFO adjusts LFO parameters; nil fields are left unchanged.
func (m *Modulator) SetLFO(waveform *Waveform, target *Target, frequency, depth *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if waveform != nil {
		m.waveform = *waveform
	}
	if target != nil {
		m.target = *target
	}
	if frequency != nil {
		m.frequency = *frequency
	}
	if depth != nil {
		m.depth = clamp01(*depth)
	}
}

// State is a snapshot for the web surface.
type State struct {
	Waveform  string  `json:"waveform"`
	Target    string  `json:"target"`
	Frequency float64 `json:"frequency"`
	Depth     float64 `json:"depth"`
	Phase     float64 `json:"phase"`
	Value     float64 `json:"value"`

	StickHue        float64 `json:"stick_hue"`
	StickSaturation float64 `json:"stick_saturation"`
	StickBrightness float64 `json:"stick_brightness"`

	OneShots []OneShotState `json:"one_shots"`
}

type OneShotState struct {
	Kind      string  `json:"kind"`
	Intensity float64 `json:"intensity"`
}

func (m *Modulator) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{
		Waveform:        m.waveform.String(),
		Target:          m.target.String(),
		Frequency:       m.frequency,
		Depth:           m.depth,
		Phase:           m.phase,
		Value:           m.lfoValue,
		StickHue:        m.stickHue,
		StickSaturation: m.stickSaturation,
		StickBrightness: m.stickBrightness,
	}
	for _, e := range m.oneShots {
		st.OneShots = append(st.OneShots, OneShotState{Kind: e.Kind, Intensity: e.Intensity})
	}
	return st
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
