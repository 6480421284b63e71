package bus

import (
	"context"
	"testing"
	"time"
)

func runBus(t *testing.T) *Bus {
	t.Helper()
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return b
}

func TestFIFOOrder(t *testing.T) {
	b := runBus(t)

	got := make(chan Button, 8)
	b.Subscribe(ControllerButton, func(e Event) {
		got <- e.(ButtonEvent).Button
	})

	for _, btn := range []Button{ButtonCross, ButtonCircle, ButtonSquare} {
		if err := b.Publish(context.Background(), ButtonEvent{Button: btn, Pressed: true}); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []Button{ButtonCross, ButtonCircle, ButtonSquare} {
		select {
		case btn := <-got:
			if btn != want {
				t.Errorf("got %v, want %v", btn, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSubscriptionOrder(t *testing.T) {
	b := runBus(t)

	order := make(chan int, 4)
	b.Subscribe(AudioBeat, func(Event) { order <- 1 })
	b.Subscribe(AudioBeat, func(Event) { order <- 2 })

	b.Publish(context.Background(), AudioBeatEvent{Intensity: 1})

	for _, want := range []int{1, 2} {
		select {
		case got := <-order:
			if got != want {
				t.Errorf("got handler %d, want %d", got, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	}
}

func TestTypeRouting(t *testing.T) {
	b := runBus(t)

	beats := make(chan Event, 1)
	b.Subscribe(AudioBeat, func(e Event) { beats <- e })

	b.Publish(context.Background(), AudioLevelEvent{Level: 0.5})
	b.Publish(context.Background(), AudioBeatEvent{Intensity: 1})

	select {
	case e := <-beats:
		if e.Type() != AudioBeat {
			t.Errorf("got %v, want AudioBeat", e.Type())
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	select {
	case e := <-beats:
		t.Errorf("unexpected extra event %v", e.Type())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPanicIsolation(t *testing.T) {
	b := runBus(t)

	got := make(chan struct{}, 1)
	b.Subscribe(Gesture, func(Event) { panic("boom") })
	b.Subscribe(Gesture, func(Event) { got <- struct{}{} })

	b.Publish(context.Background(), GestureEvent{Gesture: GestureTap, Strength: 1})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("second handler never ran after first panicked")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := runBus(t)

	got := make(chan struct{}, 2)
	sub := b.Subscribe(IdleTimeout, func(Event) { got <- struct{}{} })
	keep := make(chan struct{}, 2)
	b.Subscribe(IdleTimeout, func(Event) { keep <- struct{}{} })

	b.Unsubscribe(sub)
	b.Publish(context.Background(), IdleTimeoutEvent{Elapsed: time.Minute})

	select {
	case <-keep:
	case <-time.After(time.Second):
		t.Fatal("remaining handler never ran")
	}
	select {
	case <-got:
		t.Error("unsubscribed handler ran")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTryPublishFullQueue(t *testing.T) {
	b := New() // no Run, queue fills up

	for _i := 0; _i < queueDepth; _i++ {
		if !b.TryPublish(AudioBeatEvent{}) {
			t.Fatal("queue filled early")
		}
	}
	if b.TryPublish(AudioBeatEvent{}) {
		t.Error("TryPublish succeeded on a full queue")
	}
}
