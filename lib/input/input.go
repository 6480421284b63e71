// Package input hosts the device adapters. Each adapter owns its own
// connect/read/reconnect loop and publishes normalized bus events; nothing
// downstream knows which physical device an event came from.
package input

import (
	"context"
	"log"
	"sync"

	"shroomlight/lib/bus"
)

// Adapter is one input device loop. Run blocks until ctx is done and must
// survive device disconnects by polling for reconnection.
type Adapter interface {
	Name() string
	Run(ctx context.Context)
	Connected() bool
}

// Factory builds an adapter bound to a bus.
type Factory func(b *bus.Bus) Adapter

// Factories is the static adapter table. Adding a device means adding a row
// here; there is no runtime plugin discovery.
var Factories = map[string]Factory{
	"ds4":       func(b *bus.Bus) Adapter { return NewDS4(b) },
	"launchpad": func(b *bus.Bus) Adapter { return NewLaunchpad(b) },
}

// Set runs a group of adapters and answers status queries for the web
// surface.
type Set struct {
	adapters []Adapter
	wg       sync.WaitGroup
}

func NewSet(b *bus.Bus, names []string) *Set {
	s := &Set{}
	for _, name := range names {
		factory, ok := Factories[name]
		if !ok {
			log.Printf("input: unknown adapter %q", name)
			continue
		}
		s.adapters = append(s.adapters, factory(b))
	}
	return s
}

func (s *Set) Start(ctx context.Context) {
	for _, a := range s.adapters {
		a := a
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			a.Run(ctx)
		}()
	}
}

// Wait blocks until every adapter loop has exited.
func (s *Set) Wait() {
	s.wg.Wait()
}

// Get returns the named adapter, or nil.
func (s *Set) Get(name string) Adapter {
	for _, a := range s.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Status reports connectivity per adapter.
func (s *Set) Status() map[string]bool {
	out := make(map[string]bool, len(s.adapters))
	for _, a := range s.adapters {
		out[a.Name()] = a.Connected()
	}
	return out
}

// publish drops events instead of blocking so a stalled consumer can never
// wedge a device read loop.
func publish(b *bus.Bus, e bus.Event) {
	if !b.TryPublish(e) {
		log.Printf("input: bus full, dropped %s", e.Type())
	}
}
