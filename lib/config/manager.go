package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager owns the live configuration. Scene parameters are read through it
// every tick, so edits from the web surface take effect without scene
// reactivation.
type Manager struct {
	path string

	mu        sync.RWMutex
	cfg       Config
	callbacks []func(Config)
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the YAML config file, falling back to defaults when it is
// missing or malformed.
func (m *Manager) Load() Config {
	cfg := Default()

	buf, err := os.ReadFile(m.path)
	switch {
	case os.IsNotExist(err):
		log.Printf("config: no file at %s, using defaults", m.path)
	case err != nil:
		log.Printf("config: read %s: %v, using defaults", m.path, err)
	default:
		var loaded Config
		if err := yaml.Unmarshal(buf, &loaded); err != nil {
			log.Printf("config: parse %s: %v, using defaults", m.path, err)
		} else {
			loaded.normalize()
			cfg = loaded
			log.Printf("config: loaded %s", m.path)
		}
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg
}

func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()

	buf, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(m.path, buf, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", m.path, err)
	}
	return nil
}

// Reload re-reads the file and notifies change listeners.
func (m *Manager) Reload() Config {
	cfg := m.Load()
	m.notify(cfg)
	return cfg
}

func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update replaces the configuration and notifies change listeners.
func (m *Manager) Update(cfg Config) {
	cfg.normalize()
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	m.notify(cfg)
}

// OnChange registers a callback invoked after Update or Reload. Callbacks
// run on the caller's goroutine; a panicking callback is logged and skipped.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

func (m *Manager) notify(cfg Config) {
	m.mu.RLock()
	callbacks := make([]func(Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("config: change callback panic: %v", r)
				}
			}()
			fn(cfg)
		}()
	}
}

// Pastel returns the live pastel fade parameters.
func (m *Manager) Pastel() PastelParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Scenes.Pastel
}

// AudioPulse returns the live audio pulse parameters.
func (m *Manager) AudioPulse() AudioPulseParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Scenes.AudioPulse
}

// BioGlow returns the live bio glow parameters.
func (m *Manager) BioGlow() BioGlowParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Scenes.BioGlow
}

// SetSceneParams swaps the scene parameter block in place.
func (m *Manager) SetSceneParams(p SceneParams) {
	m.mu.Lock()
	m.cfg.Scenes = p
	m.mu.Unlock()
}
