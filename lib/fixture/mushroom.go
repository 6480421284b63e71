package fixture

// Mushroom is a group of fixtures driven as one unit. The ID is stable for
// the process lifetime and is the routing key for scene assignment.
type Mushroom struct {
	ID       int
	Name     string
	Fixtures []*Fixture
}

func NewMushroom(id int, name string, fixtures []*Fixture) *Mushroom {
	return &Mushroom{ID: id, Name: name, Fixtures: fixtures}
}

func (m *Mushroom) SetColor(c Color) {
	for _, f := range m.Fixtures {
		f.SetColor(c)
	}
}

func (m *Mushroom) SetTarget(c Color) {
	for _, f := range m.Fixtures {
		f.SetTarget(c)
	}
}

func (m *Mushroom) SetIntensity(v float64) {
	for _, f := range m.Fixtures {
		f.SetIntensity(v)
	}
}

func (m *Mushroom) Update(dt, smoothing float64) {
	for _, f := range m.Fixtures {
		f.Update(dt, smoothing)
	}
}
