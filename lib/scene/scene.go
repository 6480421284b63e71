// Package scene implements the per-mushroom lighting scenes and the manager
// that binds them. Exactly one scene instance is bound per mushroom; switching
// always constructs a fresh instance, so no state leaks across activations.
package scene

import (
	"sync"

	"shroomlight/lib/bus"
	"shroomlight/lib/config"
	"shroomlight/lib/fixture"
)

// Scene is the capability set every variant implements. Update runs every
// render tick for the bound mushroom; HandleEvent only for events the
// manager routes to that mushroom.
type Scene interface {
	Name() string
	Activate()
	Deactivate()
	Update(m *fixture.Mushroom, dt float64)
	HandleEvent(e bus.Event, m *fixture.Mushroom)
}

// Factory constructs a fresh scene instance reading live parameters from cfg.
type Factory func(cfg *config.Manager, display *Display) Scene

// Scene names as used by the web surface and config.
const (
	NamePastelFade = "pastel_fade"
	NameAudioPulse = "audio_pulse"
	NameBioGlow    = "bio_glow"
	NameManual     = "manual"
)

// Factories maps scene names to constructors. The order of Names matches the
// Launchpad scene rows.
var Factories = map[string]Factory{
	NamePastelFade: func(cfg *config.Manager, _ *Display) Scene { return NewPastelFade(cfg) },
	NameAudioPulse: func(cfg *config.Manager, _ *Display) Scene { return NewAudioPulse(cfg) },
	NameBioGlow:    func(cfg *config.Manager, _ *Display) Scene { return NewBioGlow(cfg) },
	NameManual:     func(_ *config.Manager, d *Display) Scene { return NewManual(d) },
}

var Names = []string{NamePastelFade, NameAudioPulse, NameBioGlow, NameManual}

// Display arbitrates the terminal status line between components that write
// transient text. A writer acquires it before printing and releases it when
// done; anything that fails to acquire stays quiet.
type Display struct {
	mu    sync.Mutex
	owner string
}

// Acquire claims the display for owner. Returns true if the display was free
// or already held by the same owner.
func (d *Display) Acquire(owner string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.owner == "" || d.owner == owner {
		d.owner = owner
		return true
	}
	return false
}

// Release frees the display if owner holds it.
func (d *Display) Release(owner string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.owner == owner {
		d.owner = ""
	}
}

// Held reports whether owner currently holds the display.
func (d *Display) Held(owner string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner == owner
}
