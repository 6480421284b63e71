// Package render drives the fixed-rate frame loop: scenes first, modulator
// second, DMX buffer composition last. The modulator must see the colors
// scenes wrote this tick, so the order is fixed.
package render

import (
	"context"
	"log"
	"sync"
	"time"

	"shroomlight/lib/dmx"
	"shroomlight/lib/fixture"
	"shroomlight/lib/modulator"
	"shroomlight/lib/scene"
)

// Flash is a fixture-identification override. While unexpired, its color
// replaces the pipeline output at its DMX address.
type Flash struct {
	Address  int
	Channels int
	Color    fixture.Color
	Until    time.Time
}

type Loop struct {
	Manager   *scene.Manager
	Modulator *modulator.Modulator
	Output    dmx.Output

	FPS           int
	MaxFrameDelta float64 // seconds; clamps dt after stalls

	mu      sync.Mutex
	flashes map[int]Flash
	now     func() time.Time
}

func New(mgr *scene.Manager, mod *modulator.Modulator, out dmx.Output, fps int, maxDelta float64) *Loop {
	return &Loop{
		Manager:       mgr,
		Modulator:     mod,
		Output:        out,
		FPS:           fps,
		MaxFrameDelta: maxDelta,
		flashes:       make(map[int]Flash),
		now:           time.Now,
	}
}

// AddFlash queues an identification flash. A new request for the same
// address replaces the old one.
func (l *Loop) AddFlash(address, channels int, c fixture.Color, duration time.Duration) {
	l.mu.Lock()
	l.flashes[address] = Flash{
		Address:  address,
		Channels: channels,
		Color:    c,
		Until:    l.now().Add(duration),
	}
	l.mu.Unlock()
}

// Run ticks at the configured rate until ctx is done. A tick that overruns
// the period starts the next tick immediately; drift is not compensated and
// no frame is skipped.
func (l *Loop) Run(ctx context.Context) {
	period := time.Second / time.Duration(l.FPS)
	last := l.now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tickStart := l.now()
		dt := tickStart.Sub(last).Seconds()
		last = tickStart
		if l.MaxFrameDelta > 0 && dt > l.MaxFrameDelta {
			dt = l.MaxFrameDelta
		}

		l.Tick(dt, tickStart)

		elapsed := l.now().Sub(tickStart)
		if sleep := period - elapsed; sleep > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
		}
	}
}

// Tick runs one frame. Split from Run so tests can step the pipeline with a
// fixed dt.
func (l *Loop) Tick(dt float64, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render: tick panic: %v", r)
		}
	}()

	// Scenes keep updating during blackout so phase accumulators stay
	// current; only the transmitted buffer is zeroed.
	l.Manager.Update(dt)
	l.Modulator.Update(dt)

	if l.Manager.Blackout() {
		if err := l.Output.Blackout(); err != nil {
			log.Printf("render: blackout send: %v", err)
		}
		return
	}

	for _, mush := range l.Manager.Mushrooms() {
		for _, f := range mush.Fixtures {
			c := l.Modulator.Apply(f.Color().Scaled(f.Intensity()))
			l.Output.SetChannels(f.Address, f.DMXValues(c))
		}
	}

	l.applyFlashes(now)

	if err := l.Output.Send(); err != nil {
		log.Printf("render: send: %v", err)
	}
}

func (l *Loop) applyFlashes(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, f := range l.flashes {
		if now.After(f.Until) {
			delete(l.flashes, addr)
			continue
		}
		vals := f.Color.DMX()
		if len(vals) > f.Channels {
			vals = vals[:f.Channels]
		}
		l.Output.SetChannels(f.Address, vals)
	}
}
