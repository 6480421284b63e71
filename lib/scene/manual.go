package scene

import (
	"fmt"
	"math"

	"shroomlight/lib/bus"
	"shroomlight/lib/fixture"
)

const (
	manualOwner = "manual"

	gyroHueSens = 120.0 // hue degrees per second per unit roll rate
	gyroSatSens = 0.8   // saturation units per second per unit pitch rate

	statusInterval = 0.25 // seconds between status line refreshes
)

// Manual integrates controller stick and gyro input directly into HSV
// accumulators. While active it owns the terminal status line via the
// display arbitration handle.
type Manual struct {
	display *Display

	hue        float64
	saturation float64
	brightness float64

	leftX, leftY   float64
	rightX, rightY float64
	gyroRoll       float64
	gyroPitch      float64

	sinceStatus float64
}

func NewManual(display *Display) *Manual {
	return &Manual{
		display:    display,
		saturation: 1.0,
		brightness: 0.8,
	}
}

func (s *Manual) Name() string { return NameManual }

func (s *Manual) Activate() {
	if s.display != nil {
		s.display.Acquire(manualOwner)
	}
}

func (s *Manual) Deactivate() {
	if s.display != nil {
		s.display.Release(manualOwner)
	}
}

func (s *Manual) Update(m *fixture.Mushroom, dt float64) {
	// Left stick X rotates hue continuously; Y pushes saturation.
	s.hue = math.Mod(s.hue+s.leftX*dt*360+360*4, 360)

	satChange := -s.leftY * dt * 1.5
	s.saturation = math.Max(0, math.Min(1, s.saturation+satChange))

	brightChange := -s.rightY * dt * 1.5
	s.brightness = math.Max(0.1, math.Min(1, s.brightness+brightChange))

	// Gyro adds on top: roll steers hue, pitch steers saturation.
	s.hue = math.Mod(s.hue+s.gyroRoll*gyroHueSens*dt+360, 360)
	s.saturation = math.Max(0, math.Min(1, s.saturation+s.gyroPitch*gyroSatSens*dt))

	m.SetTarget(fixture.FromHSV(s.hue, s.saturation, s.brightness))
	m.Update(dt, 0.5)

	s.sinceStatus += dt
	if s.sinceStatus >= statusInterval {
		s.sinceStatus = 0
		s.printStatus()
	}
}

func (s *Manual) printStatus() {
	if s.display == nil || !s.display.Held(manualOwner) {
		return
	}
	fmt.Printf("\rManual  hue %5.1f  sat %.2f  bri %.2f  stick(%+.2f,%+.2f)  gyro(r%+.2f,p%+.2f)   ",
		s.hue, s.saturation, s.brightness, s.leftX, s.leftY, s.gyroRoll, s.gyroPitch)
}

func (s *Manual) HandleEvent(e bus.Event, _ *fixture.Mushroom) {
	switch ev := e.(type) {
	case bus.AxisEvent:
		switch ev.Axis {
		case bus.AxisLeftX:
			s.leftX = ev.Value
		case bus.AxisLeftY:
			s.leftY = ev.Value
		case bus.AxisRightX:
			s.rightX = ev.Value
		case bus.AxisRightY:
			s.rightY = ev.Value
		}
	case bus.GyroEvent:
		s.gyroRoll = ev.Roll
		s.gyroPitch = ev.Pitch
	}
}
