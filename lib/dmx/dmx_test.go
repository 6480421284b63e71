package dmx

import (
	"bytes"
	"testing"
)

func TestFrameAddressing(t *testing.T) {
	var f Frame

	f.SetChannel(1, 10)
	f.SetChannel(512, 20)
	if f.Channel(1) != 10 || f.Channel(512) != 20 {
		t.Errorf("got %d, %d", f.Channel(1), f.Channel(512))
	}

	// Out-of-range writes are dropped, not wrapped.
	f.SetChannel(0, 99)
	f.SetChannel(513, 99)
	if f.Channel(1) != 10 || f.Channel(512) != 20 {
		t.Error("out-of-range write corrupted the frame")
	}
	if f.Channel(0) != 0 || f.Channel(513) != 0 {
		t.Error("out-of-range read returned data")
	}
}

func TestFrameSetChannelsSpansBoundary(t *testing.T) {
	var f Frame
	f.SetChannels(511, []byte{1, 2, 3, 4})
	if f.Channel(511) != 1 || f.Channel(512) != 2 {
		t.Errorf("got %d, %d", f.Channel(511), f.Channel(512))
	}
	// 513 and beyond silently dropped.
}

func TestFrameZero(t *testing.T) {
	var f Frame
	f.SetChannels(1, []byte{1, 2, 3})
	f.Zero()
	snap := f.Snapshot()
	for i, v := range snap {
		if v != 0 {
			t.Fatalf("channel %d = %d after Zero", i+1, v)
		}
	}
}

func TestBuildArtDMX(t *testing.T) {
	payload := make([]byte, UniverseSize)
	payload[0] = 0xAA
	payload[511] = 0xBB

	pkt := buildArtDMX(7, 0x0102, payload)

	if len(pkt) != 18+UniverseSize {
		t.Fatalf("packet length %d", len(pkt))
	}
	if !bytes.Equal(pkt[:8], []byte("Art-Net\x00")) {
		t.Errorf("bad ID %q", pkt[:8])
	}
	// Opcode is little-endian.
	if pkt[8] != 0x00 || pkt[9] != 0x50 {
		t.Errorf("opcode bytes %#x %#x", pkt[8], pkt[9])
	}
	if pkt[10] != 0 || pkt[11] != protocolVersion {
		t.Errorf("protocol version bytes %d %d", pkt[10], pkt[11])
	}
	if pkt[12] != 7 {
		t.Errorf("sequence %d, want 7", pkt[12])
	}
	if pkt[14] != 0x02 || pkt[15] != 0x01 {
		t.Errorf("universe bytes %#x %#x", pkt[14], pkt[15])
	}
	// Length is big-endian.
	if pkt[16] != 0x02 || pkt[17] != 0x00 {
		t.Errorf("length bytes %#x %#x", pkt[16], pkt[17])
	}
	if pkt[18] != 0xAA || pkt[18+511] != 0xBB {
		t.Error("payload not copied")
	}
}

func TestNullOutput(t *testing.T) {
	n := &Null{}
	if err := n.Start(); err != nil {
		t.Fatal(err)
	}
	n.SetChannel(1, 255)
	if err := n.Send(); err != nil {
		t.Fatal(err)
	}
	if err := n.Blackout(); err != nil {
		t.Fatal(err)
	}
	if n.Channel(1) != 0 {
		t.Error("blackout did not zero the frame")
	}
	if err := n.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &Null{}, &Null{}
	m := &Multi{Outputs: []Output{a, b}}

	m.SetChannels(10, []byte{1, 2, 3})
	if err := m.Send(); err != nil {
		t.Fatal(err)
	}

	for i, o := range []*Null{a, b} {
		if o.Channel(10) != 1 || o.Channel(12) != 3 {
			t.Errorf("output %d did not receive frame", i)
		}
	}

	if err := m.Blackout(); err != nil {
		t.Fatal(err)
	}
	if a.Channel(10) != 0 || b.Channel(10) != 0 {
		t.Error("blackout did not propagate")
	}
}

func TestArtNetSequenceSkipsZero(t *testing.T) {
	a := NewArtNet("127.0.0.1", 0)
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	a.seq = 255
	if err := a.Send(); err != nil {
		t.Fatal(err)
	}
	if a.seq != 1 {
		t.Errorf("sequence %d after wrap, want 1", a.seq)
	}
}
