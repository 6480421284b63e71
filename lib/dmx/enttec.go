package dmx

import (
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/schleibinger/sio"
)

// ENTTEC DMX USB Pro message framing.
const (
	proStartOfMessage = 0x7E
	proEndOfMessage   = 0xE7
	proSendDMXLabel   = 6
)

// Pro drives an ENTTEC DMX USB Pro (or compatible, e.g. DMXking) dongle.
// The host link runs at 57600 baud; the dongle generates DMX timing itself.
type Pro struct {
	Frame

	Port string

	port *sio.Port
}

func NewPro(port string) *Pro {
	return &Pro{Port: port}
}

func (p *Pro) Start() error {
	name := p.Port
	if name == "" {
		found, err := findSerialPort()
		if err != nil {
			return err
		}
		name = found
	}
	port, err := sio.Open(name, syscall.B57600)
	if err != nil {
		return fmt.Errorf("enttec: open %s: %w", name, err)
	}
	p.port = port
	return nil
}

// findSerialPort picks the first USB serial device when no port is
// configured. The dongles enumerate as ttyUSB on Linux and cu.usbserial on
// macOS.
func findSerialPort() (string, error) {
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/cu.usbserial*"} {
		matches, _ := filepath.Glob(pattern)
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("enttec: no serial port configured and none found")
}

func (p *Pro) Stop() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

func (p *Pro) Send() error {
	if p.port == nil {
		return nil
	}
	data := p.Snapshot()

	// DMX start code 0 precedes the channel data.
	payload := make([]byte, 0, 1+UniverseSize)
	payload = append(payload, 0)
	payload = append(payload, data[:]...)

	msg := make([]byte, 0, len(payload)+5)
	msg = append(msg,
		proStartOfMessage,
		proSendDMXLabel,
		byte(len(payload)&0xFF),
		byte(len(payload)>>8),
	)
	msg = append(msg, payload...)
	msg = append(msg, proEndOfMessage)

	if _, err := p.port.Write(msg); err != nil {
		return fmt.Errorf("enttec: write: %w", err)
	}
	return nil
}

func (p *Pro) Blackout() error {
	p.Zero()
	return p.Send()
}
