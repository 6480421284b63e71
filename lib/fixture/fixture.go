package fixture

// Fixture is a single RGB PAR head patched at a 1-indexed DMX address.
// Current color chases the target color with frame-rate-normalized smoothing.
type Fixture struct {
	Name     string
	Address  int
	Channels int

	current   Color
	target    Color
	intensity float64
}

func NewFixture(name string, address, channels int) *Fixture {
	if channels != 4 {
		channels = 3
	}
	return &Fixture{
		Name:      name,
		Address:   address,
		Channels:  channels,
		intensity: 1.0,
	}
}

func (f *Fixture) Color() Color { return f.current }

// SetColor snaps both current and target, bypassing smoothing.
func (f *Fixture) SetColor(c Color) {
	f.current = c
	f.target = c
}

// SetTarget sets the color the fixture smooths toward.
func (f *Fixture) SetTarget(c Color) {
	f.target = c
}

func (f *Fixture) Intensity() float64 { return f.intensity }

func (f *Fixture) SetIntensity(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	f.intensity = v
}

// Update moves current toward target. The blend factor is normalized to a
// 60fps reference so a given smoothing value behaves the same at any rate;
// smoothing 1.0 snaps in a single step.
func (f *Fixture) Update(dt, smoothing float64) {
	blend := smoothing * dt * 60
	if blend > 1 || smoothing >= 1 {
		blend = 1
	}
	f.current = f.current.Blend(f.target, blend)
}

// DMXValues returns c's channel values padded with zeros to the fixture's
// channel count.
func (f *Fixture) DMXValues(c Color) []byte {
	vals := c.DMX()
	for len(vals) < f.Channels {
		vals = append(vals, 0)
	}
	return vals
}

// DMX returns the intensity-scaled channel values for the current color.
func (f *Fixture) DMX() []byte {
	return f.DMXValues(f.current.Scaled(f.intensity))
}
