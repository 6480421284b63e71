package scene

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"shroomlight/lib/bus"
	"shroomlight/lib/config"
	"shroomlight/lib/fixture"
)

// sceneButtons maps controller face buttons to scenes.
var sceneButtons = map[bus.Button]string{
	bus.ButtonTriangle: NamePastelFade,
	bus.ButtonCircle:   NameAudioPulse,
	bus.ButtonSquare:   NameBioGlow,
	bus.ButtonCross:    NameManual,
}

// Manager owns per-mushroom scene binding, group selection and the blackout
// flag. All mutation happens under one mutex; event handlers run on the bus
// goroutine, Update on the render loop, setters on the web goroutine.
type Manager struct {
	mu sync.Mutex

	mushrooms []*fixture.Mushroom
	cfg       *config.Manager
	display   *Display

	scenes   map[int]Scene
	selected map[int]bool
	blackout bool
}

func NewManager(mushrooms []*fixture.Mushroom, cfg *config.Manager, display *Display, b *bus.Bus) *Manager {
	m := &Manager{
		mushrooms: mushrooms,
		cfg:       cfg,
		display:   display,
		scenes:    make(map[int]Scene),
		selected:  make(map[int]bool),
	}

	for _, mush := range mushrooms {
		m.selected[mush.ID] = true
		s := NewPastelFade(cfg)
		s.Activate()
		m.scenes[mush.ID] = s
	}

	b.Subscribe(bus.ControllerButton, m.handleButton)
	b.Subscribe(bus.ControllerDPad, m.handleDPad)
	b.Subscribe(bus.ControllerAxis, m.handleRouted)
	b.Subscribe(bus.ControllerGyro, m.handleRouted)
	b.Subscribe(bus.PadPress, m.handlePad)
	b.Subscribe(bus.AudioBeat, m.handleBroadcast)
	b.Subscribe(bus.AudioLevel, m.handleBroadcast)
	b.Subscribe(bus.BioReading, m.handleBio)
	b.Subscribe(bus.IdleTimeout, m.handleIdle)

	return m
}

func (m *Manager) handleButton(e bus.Event) {
	ev, ok := e.(bus.ButtonEvent)
	if !ok || !ev.Pressed {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if name, ok := sceneButtons[ev.Button]; ok {
		for id := range m.selected {
			m.bindLocked(id, name)
		}
		return
	}

	switch ev.Button {
	case bus.ButtonL1:
		m.cycleSelectionLocked(-1)
	case bus.ButtonR1:
		m.cycleSelectionLocked(+1)
	case bus.ButtonOptions:
		m.blackout = !m.blackout
		state := "OFF"
		if m.blackout {
			state = "ON"
		}
		log.Printf("scene: blackout %s", state)
	}
}

func (m *Manager) handleDPad(e bus.Event) {
	ev, ok := e.(bus.DPadEvent)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case ev.Y == 1: // up selects everything
		for _, mush := range m.mushrooms {
			m.selected[mush.ID] = true
		}
	case ev.Y == -1:
		m.selectOnlyLocked(1)
	case ev.X == -1:
		m.selectOnlyLocked(0)
	case ev.X == 1:
		m.selectOnlyLocked(2)
	}
}

// handlePad maps Launchpad grid presses: column picks the mushroom, rows 0-3
// pick the scene. The top side button toggles blackout.
func (m *Manager) handlePad(e bus.Event) {
	ev, ok := e.(bus.PadEvent)
	if !ok || !ev.Pressed {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.Side >= 0 {
		if ev.Side == 7 {
			m.blackout = !m.blackout
		}
		return
	}
	if ev.X >= len(m.mushrooms) || ev.Y >= len(Names) {
		return
	}
	m.selectOnlyLocked(ev.X)
	m.bindLocked(m.mushrooms[ev.X].ID, Names[ev.Y])
}

// handleRouted forwards axis and gyro events to scenes bound to selected
// mushrooms.
func (m *Manager) handleRouted(e bus.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mush := range m.mushrooms {
		if !m.selected[mush.ID] {
			continue
		}
		if s := m.scenes[mush.ID]; s != nil {
			s.HandleEvent(e, mush)
		}
	}
}

// handleBroadcast forwards ambient environmental events to every mushroom.
func (m *Manager) handleBroadcast(e bus.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mush := range m.mushrooms {
		if s := m.scenes[mush.ID]; s != nil {
			s.HandleEvent(e, mush)
		}
	}
}

func (m *Manager) handleBio(e bus.Event) {
	ev, ok := e.(bus.BioEvent)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mush := range m.mushrooms {
		if ev.Mushroom == bus.Broadcast || ev.Mushroom == mush.ID {
			if s := m.scenes[mush.ID]; s != nil {
				s.HandleEvent(e, mush)
			}
		}
	}
}

func (m *Manager) handleIdle(bus.Event) {
	log.Printf("scene: idle timeout, all mushrooms to pastel fade")
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mush := range m.mushrooms {
		m.bindLocked(mush.ID, NamePastelFade)
	}
}

func (m *Manager) bindLocked(id int, name string) {
	factory, ok := Factories[name]
	if !ok {
		return
	}
	if old := m.scenes[id]; old != nil {
		old.Deactivate()
	}
	s := factory(m.cfg, m.display)
	s.Activate()
	m.scenes[id] = s
	log.Printf("scene: mushroom %d -> %s", id+1, name)
}

func (m *Manager) selectOnlyLocked(id int) {
	if id >= len(m.mushrooms) {
		return
	}
	for _, mush := range m.mushrooms {
		m.selected[mush.ID] = mush.ID == id
	}
}

func (m *Manager) cycleSelectionLocked(dir int) {
	n := len(m.mushrooms)
	if n == 0 {
		return
	}
	var ids []int
	for id, sel := range m.selected {
		if sel {
			ids = append(ids, id)
		}
	}
	if len(ids) == n || len(ids) == 0 {
		m.selectOnlyLocked(0)
		return
	}
	sort.Ints(ids)
	cur := ids[0]
	if dir > 0 {
		cur = ids[len(ids)-1]
	}
	m.selectOnlyLocked(((cur+dir)%n + n) % n)
}

// Update runs every scene for its mushroom. Blackout does not suppress scene
// updates; the render loop zeroes the output buffer instead, so phase
// accumulators stay current.
func (m *Manager) Update(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mush := range m.mushrooms {
		mush.SetIntensity(1.0)
		if s := m.scenes[mush.ID]; s != nil {
			s.Update(mush, dt)
		}
	}
}

// SetScene binds a scene by name, for the web surface.
func (m *Manager) SetScene(id int, name string) error {
	if _, ok := Factories[name]; !ok {
		return fmt.Errorf("scene: unknown scene %q", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenes[id]; !ok {
		return fmt.Errorf("scene: unknown mushroom %d", id)
	}
	m.bindLocked(id, name)
	return nil
}

// SceneNames returns the current binding per mushroom id.
func (m *Manager) SceneNames() map[int]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]string, len(m.scenes))
	for id, s := range m.scenes {
		out[id] = s.Name()
	}
	return out
}

// Selected returns the sorted ids of selected mushrooms.
func (m *Manager) Selected() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, sel := range m.selected {
		if sel {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

func (m *Manager) Blackout() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blackout
}

func (m *Manager) SetBlackout(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blackout = on
}

// Mushrooms exposes the managed groups, for the render loop and web surface.
func (m *Manager) Mushrooms() []*fixture.Mushroom {
	return m.mushrooms
}
