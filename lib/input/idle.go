package input

import (
	"context"
	"sync"
	"time"

	"shroomlight/lib/bus"
)

// Idle publishes a single IdleTimeout event when no human input arrives for
// the configured duration. Activity while idle re-arms it silently; the
// scene layer decides what idle means. Ambient sensor traffic (audio, bio)
// does not count as activity.
type Idle struct {
	bus     *bus.Bus
	timeout time.Duration

	mu           sync.Mutex
	lastActivity time.Time
	idle         bool
}

func NewIdle(b *bus.Bus, timeout time.Duration) *Idle {
	i := &Idle{
		bus:          b,
		timeout:      timeout,
		lastActivity: time.Now(),
	}
	for _, t := range []bus.Type{
		bus.ControllerButton, bus.ControllerDPad, bus.ControllerAxis,
		bus.PadPress, bus.Gesture,
	} {
		b.Subscribe(t, func(bus.Event) { i.Activity() })
	}
	return i
}

// Activity resets the timer.
func (i *Idle) Activity() {
	i.mu.Lock()
	i.lastActivity = time.Now()
	i.idle = false
	i.mu.Unlock()
}

func (i *Idle) Run(ctx context.Context) {
	interval := i.timeout / 4
	if interval > time.Second {
		interval = time.Second
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		i.mu.Lock()
		elapsed := time.Since(i.lastActivity)
		fire := !i.idle && elapsed >= i.timeout
		if fire {
			i.idle = true
		}
		i.mu.Unlock()

		if fire {
			publish(i.bus, bus.IdleTimeoutEvent{Elapsed: elapsed})
		}
	}
}
