package input

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"shroomlight/lib/bus"
)

func runBus(t *testing.T) *bus.Bus {
	t.Helper()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return b
}

func collect(t *testing.T, b *bus.Bus, types ...bus.Type) <-chan bus.Event {
	t.Helper()
	ch := make(chan bus.Event, 64)
	for _, typ := range types {
		b.Subscribe(typ, func(e bus.Event) { ch <- e })
	}
	return ch
}

func recv(t *testing.T, ch <-chan bus.Event) bus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// usbReport builds a neutral 64-byte USB input report: sticks centered,
// d-pad neutral, no buttons, triggers at rest.
func usbReport() []byte {
	buf := make([]byte, 64)
	buf[0] = 0x01
	buf[1], buf[2], buf[3], buf[4] = 128, 128, 128, 128
	buf[5] = 0x08 // d-pad neutral
	return buf
}

func newTestDS4(t *testing.T, b *bus.Bus) *DS4 {
	t.Helper()
	d := NewDS4(b)
	d.buttons = make(map[bus.Button]bool)
	d.axes = make(map[bus.Axis]float64)
	// Swallow the initial trigger-at-rest axis events.
	d.axes[bus.AxisL2] = -1
	d.axes[bus.AxisR2] = -1
	return d
}

func TestDS4ButtonPressRelease(t *testing.T) {
	b := runBus(t)
	d := newTestDS4(t, b)
	ch := collect(t, b, bus.ControllerButton)

	report := usbReport()
	report[5] |= 1 << 5 // cross
	d.processReport(report)

	ev := recv(t, ch).(bus.ButtonEvent)
	if ev.Button != bus.ButtonCross || !ev.Pressed {
		t.Errorf("got %+v, want cross pressed", ev)
	}

	// Same report again: no repeat event.
	d.processReport(report)
	d.processReport(usbReport())
	ev = recv(t, ch).(bus.ButtonEvent)
	if ev.Button != bus.ButtonCross || ev.Pressed {
		t.Errorf("got %+v, want cross released", ev)
	}
}

func TestDS4HighBitButtons(t *testing.T) {
	b := runBus(t)
	d := newTestDS4(t, b)
	ch := collect(t, b, bus.ControllerButton)

	report := usbReport()
	report[7] = 1 << 1 // bit 17, touchpad
	d.processReport(report)

	ev := recv(t, ch).(bus.ButtonEvent)
	if ev.Button != bus.ButtonTouchpad || !ev.Pressed {
		t.Errorf("got %+v, want touchpad pressed", ev)
	}
}

func TestDS4DPad(t *testing.T) {
	b := runBus(t)
	d := newTestDS4(t, b)
	ch := collect(t, b, bus.ControllerDPad)

	report := usbReport()
	report[5] = 0x00 // up
	d.processReport(report)

	ev := recv(t, ch).(bus.DPadEvent)
	if ev.X != 0 || ev.Y != 1 {
		t.Errorf("got %+v, want up", ev)
	}

	// Returning to neutral produces no event.
	d.processReport(usbReport())
	select {
	case e := <-ch:
		t.Errorf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDS4StickDeadzone(t *testing.T) {
	b := runBus(t)
	d := newTestDS4(t, b)
	ch := collect(t, b, bus.ControllerAxis)

	// Small deflection inside the deadzone: no event.
	report := usbReport()
	report[1] = 138
	d.processReport(report)
	select {
	case e := <-ch:
		t.Fatalf("deadzone leaked event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}

	report[1] = 255
	d.processReport(report)
	ev := recv(t, ch).(bus.AxisEvent)
	if ev.Axis != bus.AxisLeftX {
		t.Fatalf("got axis %v", ev.Axis)
	}
	if ev.Value < 0.9 || ev.Value > 1 {
		t.Errorf("full deflection = %v", ev.Value)
	}
}

func TestDS4Gyro(t *testing.T) {
	b := runBus(t)
	d := newTestDS4(t, b)
	ch := collect(t, b, bus.ControllerGyro)

	report := usbReport()
	binary.LittleEndian.PutUint16(report[13:], uint16(int16(2048))) // pitch
	d.processReport(report)

	ev := recv(t, ch).(bus.GyroEvent)
	if math.Abs(ev.Pitch-2.0) > 1e-9 {
		t.Errorf("pitch %v, want 2.0", ev.Pitch)
	}
}

func TestDS4BluetoothOffset(t *testing.T) {
	b := runBus(t)
	d := newTestDS4(t, b)
	ch := collect(t, b, bus.ControllerButton)

	buf := make([]byte, 78)
	buf[0] = 0x11
	buf[3], buf[4], buf[5], buf[6] = 128, 128, 128, 128
	buf[7] = 0x08 | 1<<7 // neutral d-pad, triangle
	d.processReport(buf)

	ev := recv(t, ch).(bus.ButtonEvent)
	if ev.Button != bus.ButtonTriangle || !ev.Pressed {
		t.Errorf("got %+v, want triangle pressed", ev)
	}
}

func TestDS4IgnoresUnknownReports(t *testing.T) {
	b := runBus(t)
	d := newTestDS4(t, b)
	ch := collect(t, b, bus.ControllerButton, bus.ControllerAxis, bus.ControllerDPad)

	d.processReport([]byte{0x05, 1, 2, 3})
	d.processReport(nil)

	select {
	case e := <-ch:
		t.Errorf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLaunchpadGridMapping(t *testing.T) {
	b := runBus(t)
	lp := NewLaunchpad(b)
	ch := collect(t, b, bus.PadPress)

	// Note 0 is the top-left pad: x=0, y=7.
	lp.handleMessage(midi.NoteOn(0, 0, 100))
	ev := recv(t, ch).(bus.PadEvent)
	if ev.X != 0 || ev.Y != 7 || ev.Side != -1 || !ev.Pressed || ev.Velocity != 100 {
		t.Errorf("got %+v", ev)
	}

	// Note 119 is the bottom-right pad: x=7, y=0.
	lp.handleMessage(midi.NoteOn(0, 119, 1))
	ev = recv(t, ch).(bus.PadEvent)
	if ev.X != 7 || ev.Y != 0 {
		t.Errorf("got %+v", ev)
	}

	lp.handleMessage(midi.NoteOff(0, 119))
	ev = recv(t, ch).(bus.PadEvent)
	if ev.Pressed {
		t.Errorf("note off still pressed: %+v", ev)
	}
}

func TestLaunchpadSideButtons(t *testing.T) {
	b := runBus(t)
	lp := NewLaunchpad(b)
	ch := collect(t, b, bus.PadPress)

	// Column 8, top row: side button H (index 7).
	lp.handleMessage(midi.NoteOn(0, 8, 127))
	ev := recv(t, ch).(bus.PadEvent)
	if ev.Side != 7 || !ev.Pressed {
		t.Errorf("got %+v, want side 7 pressed", ev)
	}

	// Bottom row: side button A (index 0).
	lp.handleMessage(midi.NoteOn(0, 120, 127))
	ev = recv(t, ch).(bus.PadEvent)
	if ev.Side != 0 {
		t.Errorf("got %+v, want side 0", ev)
	}
}

func TestLaunchpadDetectsUnpluggedPort(t *testing.T) {
	old := portCheckInterval
	portCheckInterval = 5 * time.Millisecond
	t.Cleanup(func() { portCheckInterval = old })

	lp := NewLaunchpad(runBus(t))
	lp.listPorts = func() []string { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan bool, 1)
	go func() { done <- lp.watch(ctx, "Launchpad Mini MIDI 1") }()

	select {
	case dropped := <-done:
		if !dropped {
			t.Error("watch stopped without reporting the drop")
		}
	case <-time.After(time.Second):
		t.Fatal("vanished port never detected")
	}
}

func TestLaunchpadDeadLinkStopsWatch(t *testing.T) {
	lp := NewLaunchpad(runBus(t))
	lp.listPorts = func() []string { return []string{"Launchpad Mini MIDI 1"} }
	lp.send = func(midi.Message) error { return errors.New("port closed") }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan bool, 1)
	go func() { done <- lp.watch(ctx, "Launchpad Mini MIDI 1") }()
	lp.SetPad(0, 0, PadRedFull)

	select {
	case dropped := <-done:
		if !dropped {
			t.Error("watch stopped without reporting the drop")
		}
	case <-time.After(time.Second):
		t.Fatal("failed send never detected")
	}
}

func TestIdleFiresOnce(t *testing.T) {
	b := runBus(t)
	ch := collect(t, b, bus.IdleTimeout)

	idle := NewIdle(b, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go idle.Run(ctx)

	recv(t, ch)

	// Still idle: no second event.
	select {
	case <-ch:
		t.Error("idle fired twice without activity")
	case <-time.After(200 * time.Millisecond):
	}

	// Activity re-arms it.
	idle.Activity()
	recv(t, ch)
}

func TestIdleResetByInputEvents(t *testing.T) {
	b := runBus(t)
	idle := NewIdle(b, time.Hour)

	idle.mu.Lock()
	idle.lastActivity = time.Now().Add(-time.Minute)
	idle.mu.Unlock()

	b.Publish(context.Background(), bus.ButtonEvent{Button: bus.ButtonCross, Pressed: true})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		idle.mu.Lock()
		recent := time.Since(idle.lastActivity) < time.Second
		idle.mu.Unlock()
		if recent {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("button event did not reset idle timer")
}

func TestSetStatus(t *testing.T) {
	b := runBus(t)
	s := NewSet(b, []string{"ds4", "launchpad", "bogus"})

	status := s.Status()
	if len(status) != 2 {
		t.Fatalf("got %d adapters, want 2", len(status))
	}
	if status["ds4"] || status["launchpad"] {
		t.Error("adapters report connected before Run")
	}

	if s.Get("ds4") == nil || s.Get("launchpad") == nil {
		t.Error("Get failed for registered adapter")
	}
	if s.Get("bogus") != nil {
		t.Error("Get returned adapter for unknown name")
	}
}
