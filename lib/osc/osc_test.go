package osc

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"shroomlight/lib/bus"
)

func TestBuildParseRoundTrip(t *testing.T) {
	msg := Build("/audio/level", float32(0.5), float32(0.25), int32(7), "hello")

	addr, args, err := Parse(msg)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "/audio/level" {
		t.Errorf("addr %q", addr)
	}
	if len(args) != 4 {
		t.Fatalf("got %d args, want 4", len(args))
	}
	if v := args[0].(float32); v != 0.5 {
		t.Errorf("arg 0 = %v", v)
	}
	if v := args[2].(int32); v != 7 {
		t.Errorf("arg 2 = %v", v)
	}
	if v := args[3].(string); v != "hello" {
		t.Errorf("arg 3 = %q", v)
	}
}

func TestBuildPadding(t *testing.T) {
	// Every section must be 4-byte aligned.
	for _, addr := range []string{"/a", "/ab", "/abc", "/abcd"} {
		msg := Build(addr, int32(1))
		if len(msg)%4 != 0 {
			t.Errorf("Build(%q) length %d not aligned", addr, len(msg))
		}
	}
}

func TestParseTruncated(t *testing.T) {
	msg := Build("/x", float32(1))
	if _, _, err := Parse(msg[:len(msg)-2]); err == nil {
		t.Error("expected error for truncated float")
	}
	if _, _, err := Parse([]byte{}); err == nil {
		t.Error("expected error for empty message")
	}
}

func TestParseNoArgs(t *testing.T) {
	addr, args, err := Parse(Build("/ping"))
	if err != nil {
		t.Fatal(err)
	}
	if addr != "/ping" || len(args) != 0 {
		t.Errorf("got %q %v", addr, args)
	}
}

func TestFloatCoercion(t *testing.T) {
	for _, arg := range []any{float32(1.5), float64(1.5)} {
		if v, ok := Float(arg); !ok || v != 1.5 {
			t.Errorf("Float(%T) = %v, %v", arg, v, ok)
		}
	}
	if v, ok := Float(int32(3)); !ok || v != 3 {
		t.Errorf("Float(int32) = %v, %v", v, ok)
	}
	if _, ok := Float("nope"); ok {
		t.Error("coerced a string")
	}
}

func setupServer(t *testing.T) (*Server, *bus.Bus) {
	t.Helper()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return NewServer(0, b), b
}

func recvEvent(t *testing.T, ch <-chan bus.Event) bus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHandleAudioBeat(t *testing.T) {
	s, b := setupServer(t)
	got := make(chan bus.Event, 1)
	b.Subscribe(bus.AudioBeat, func(e bus.Event) { got <- e })

	s.handle("/audio/beat", []any{float32(0.7)})

	ev := recvEvent(t, got).(bus.AudioBeatEvent)
	if math.Abs(ev.Intensity-0.7) > 1e-6 {
		t.Errorf("intensity %v", ev.Intensity)
	}

	// No argument defaults to full intensity.
	s.handle("/audio/beat", nil)
	ev = recvEvent(t, got).(bus.AudioBeatEvent)
	if ev.Intensity != 1.0 {
		t.Errorf("default intensity %v", ev.Intensity)
	}
}

func TestHandleAudioLevel(t *testing.T) {
	s, b := setupServer(t)
	got := make(chan bus.Event, 1)
	b.Subscribe(bus.AudioLevel, func(e bus.Event) { got <- e })

	s.handle("/audio/level", []any{float32(0.5), float32(0.8), float32(0.2), float32(0.1)})

	ev := recvEvent(t, got).(bus.AudioLevelEvent)
	if math.Abs(ev.Level-0.5) > 1e-6 || math.Abs(ev.Low-0.8) > 1e-6 {
		t.Errorf("got %+v", ev)
	}

	// Missing bands default to zero.
	s.handle("/audio/level", []any{float32(0.3)})
	ev = recvEvent(t, got).(bus.AudioLevelEvent)
	if ev.Low != 0 || ev.High != 0 {
		t.Errorf("got %+v", ev)
	}
}

func TestHandleBio(t *testing.T) {
	s, b := setupServer(t)
	got := make(chan bus.Event, 1)
	b.Subscribe(bus.BioReading, func(e bus.Event) { got <- e })

	s.handle("/bio/plant3", []any{float32(0.4)})
	ev := recvEvent(t, got).(bus.BioEvent)
	if ev.Plant != "plant3" || ev.Mushroom != 2 {
		t.Errorf("got %+v, want plant3 -> mushroom 2", ev)
	}
	if math.Abs(ev.Resistance-0.4) > 1e-6 {
		t.Errorf("resistance %v", ev.Resistance)
	}

	// Unmappable plant names broadcast.
	s.handle("/bio/moss", []any{float32(0.9)})
	ev = recvEvent(t, got).(bus.BioEvent)
	if ev.Mushroom != bus.Broadcast {
		t.Errorf("got mushroom %d, want broadcast", ev.Mushroom)
	}
}

func TestServerEndToEnd(t *testing.T) {
	s, b := setupServer(t)
	got := make(chan bus.Event, 1)
	b.Subscribe(bus.AudioBeat, func(e bus.Event) { got <- e })

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	port := s.conn.LocalAddr().(*net.UDPAddr).Port
	client, err := NewClient("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.Send("/audio/beat", float32(1)); err != nil {
		t.Fatal(err)
	}
	recvEvent(t, got)
}
