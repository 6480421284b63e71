package bus

import (
	"context"
	"log"
	"sync"
)

const queueDepth = 256

// Handler receives events of the type it subscribed to. Handlers run on the
// bus goroutine, one at a time, in subscription order.
type Handler func(Event)

// Subscription identifies a registered handler for Unsubscribe.
type Subscription struct {
	id int
	t  Type
}

type entry struct {
	id int
	fn Handler
}

// Bus is a single-consumer FIFO event queue. Producers publish from any
// goroutine; Run drains events strictly in arrival order and invokes every
// handler for the event's type before moving on. A panicking handler is
// logged and isolated; it never stops the bus or later handlers.
type Bus struct {
	mu       sync.Mutex
	handlers map[Type][]entry
	nextID   int
	queue    chan Event
}

func New() *Bus {
	return &Bus{
		handlers: make(map[Type][]entry),
		queue:    make(chan Event, queueDepth),
	}
}

// Subscribe registers a handler for one event type. Call multiple times to
// listen for several types.
func (b *Bus) Subscribe(t Type, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[t] = append(b.handlers[t], entry{id: b.nextID, fn: fn})
	return &Subscription{id: b.nextID, t: t}
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[sub.t]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.t] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Publish enqueues an event, blocking if the queue is full until there is
// room or ctx is done.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	select {
	case b.queue <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues without blocking, for use from callback contexts that
// must not stall. Returns false if the queue is full.
func (b *Bus) TryPublish(e Event) bool {
	select {
	case b.queue <- e:
		return true
	default:
		return false
	}
}

// Run drains the queue until ctx is done. Must be called from exactly one
// goroutine.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.queue:
			b.dispatch(e)
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.Lock()
	entries := make([]entry, len(b.handlers[e.Type()]))
	copy(entries, b.handlers[e.Type()])
	b.mu.Unlock()

	for _, ent := range entries {
		invoke(ent.fn, e)
	}
}

func invoke(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bus: handler panic on %s: %v", e.Type(), r)
		}
	}()
	fn(e)
}
