// Package dmx defines the transport-agnostic output sink used by the render
// loop and the concrete Art-Net and ENTTEC serial transports.
package dmx

import "sync"

// UniverseSize is the channel count of one DMX universe.
const UniverseSize = 512

// Output is the sink contract the render loop writes to. Addresses are
// 1-indexed DMX channels.
type Output interface {
	Start() error
	Stop() error
	Send() error
	SetChannel(address int, value byte)
	SetChannels(address int, values []byte)
	Blackout() error
}

// Frame is a 512-channel DMX buffer shared by all transports. Writes outside
// 1..512 are ignored.
type Frame struct {
	mu   sync.Mutex
	data [UniverseSize]byte
}

func (f *Frame) SetChannel(address int, value byte) {
	if address < 1 || address > UniverseSize {
		return
	}
	f.mu.Lock()
	f.data[address-1] = value
	f.mu.Unlock()
}

func (f *Frame) SetChannels(address int, values []byte) {
	f.mu.Lock()
	for i, v := range values {
		a := address + i
		if a < 1 || a > UniverseSize {
			continue
		}
		f.data[a-1] = v
	}
	f.mu.Unlock()
}

// Channel returns the current value at a 1-indexed address.
func (f *Frame) Channel(address int) byte {
	if address < 1 || address > UniverseSize {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[address-1]
}

// Snapshot copies the buffer for transmission.
func (f *Frame) Snapshot() [UniverseSize]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data
}

// Zero clears every channel.
func (f *Frame) Zero() {
	f.mu.Lock()
	f.data = [UniverseSize]byte{}
	f.mu.Unlock()
}

// Null is an Output that discards frames; used when no transport is
// available so the rest of the pipeline keeps running.
type Null struct {
	Frame
}

func (n *Null) Start() error { return nil }
func (n *Null) Stop() error  { return nil }
func (n *Null) Send() error  { return nil }
func (n *Null) Blackout() error {
	n.Zero()
	return nil
}

// Multi fans every frame out to several transports.
type Multi struct {
	Frame
	Outputs []Output
}

func (m *Multi) Start() error {
	for _, o := range m.Outputs {
		if err := o.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) Stop() error {
	var first error
	for _, o := range m.Outputs {
		if err := o.Stop(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Multi) Send() error {
	data := m.Snapshot()
	var first error
	for _, o := range m.Outputs {
		o.SetChannels(1, data[:])
		if err := o.Send(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Multi) Blackout() error {
	m.Zero()
	return m.Send()
}
