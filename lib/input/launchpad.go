package input

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"shroomlight/lib/bus"
)

// Launchpad Mini LED palette, as note velocities.
const (
	PadOff       uint8 = 0
	PadRedLow    uint8 = 1
	PadRedFull   uint8 = 3
	PadGreenLow  uint8 = 16
	PadAmberFull uint8 = 19
	PadYellow    uint8 = 34
	PadGreenFull uint8 = 48
)

var launchpadPortNames = []string{"launchpad mini", "launchpad"}

// portCheckInterval paces the unplugged-device scan. A failed LED send is
// detected immediately; the scan catches devices with no out port.
var portCheckInterval = time.Second

// Launchpad is a Novation Launchpad Mini adapter with LED feedback. The grid
// addresses pads as note = row*16 + col with row 0 at the top; events use
// y=0 at the bottom. Column 8 holds the A-H side buttons.
type Launchpad struct {
	bus *bus.Bus

	mu        sync.Mutex
	connected bool
	stop      func()
	send      func(msg midi.Message) error

	dead      chan struct{}
	listPorts func() []string
}

func NewLaunchpad(b *bus.Bus) *Launchpad {
	return &Launchpad{bus: b, dead: make(chan struct{}, 1), listPorts: inPortNames}
}

func inPortNames() []string {
	var names []string
	for _, port := range midi.GetInPorts() {
		names = append(names, port.String())
	}
	return names
}

func (l *Launchpad) Name() string { return "launchpad" }

func (l *Launchpad) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Launchpad) Run(ctx context.Context) {
	for ctx.Err() == nil {
		name := l.connect()
		if name == "" {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectInterval):
			}
			continue
		}

		// Drop any stale failure signal from the previous session.
		select {
		case <-l.dead:
		default:
		}

		if !l.watch(ctx, name) {
			l.disconnect(false)
			return
		}
		l.disconnect(true)
	}
}

// watch blocks until the LED link reports a failure, the port disappears
// from the system, or ctx ends. Returns false when ctx ended.
func (l *Launchpad) watch(ctx context.Context, portName string) bool {
	check := time.NewTicker(portCheckInterval)
	defer check.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-l.dead:
			return true
		case <-check.C:
			if !l.portPresent(portName) {
				return true
			}
		}
	}
}

func (l *Launchpad) portPresent(name string) bool {
	for _, port := range l.listPorts() {
		if port == name {
			return true
		}
	}
	return false
}

func (l *Launchpad) connect() string {
	var inName, outName string
	for _, port := range l.listPorts() {
		if matchLaunchpad(port) {
			inName = port
			break
		}
	}
	if inName == "" {
		return ""
	}
	for _, port := range midi.GetOutPorts() {
		if matchLaunchpad(port.String()) {
			outName = port.String()
			break
		}
	}

	inPort, err := midi.FindInPort(inName)
	if err != nil {
		return ""
	}
	stop, err := midi.ListenTo(inPort, func(msg midi.Message, timestampms int32) {
		l.handleMessage(msg)
	})
	if err != nil {
		log.Printf("launchpad: listen: %v", err)
		return ""
	}

	var send func(msg midi.Message) error
	if outName != "" {
		if outPort, err := midi.FindOutPort(outName); err == nil {
			if s, err := midi.SendTo(outPort); err == nil {
				send = s
			}
		}
	}

	l.mu.Lock()
	l.connected = true
	l.stop = stop
	l.send = send
	l.mu.Unlock()

	log.Printf("launchpad: connected: %s", inName)
	l.ClearAll()
	publish(l.bus, bus.DeviceStatusEvent{Source: l.Name(), Connected: true})
	return inName
}

func (l *Launchpad) disconnect(announce bool) {
	l.mu.Lock()
	stop := l.stop
	was := l.connected
	l.connected = false
	l.stop = nil
	l.send = nil
	l.mu.Unlock()

	if stop != nil {
		stop()
	}
	if was && announce {
		log.Printf("launchpad: disconnected, waiting for reconnection")
		publish(l.bus, bus.DeviceStatusEvent{Source: l.Name(), Connected: false})
	}
}

func (l *Launchpad) handleMessage(msg midi.Message) {
	var channel, key, velocity uint8
	switch {
	case msg.Is(midi.NoteOnMsg):
		msg.GetNoteOn(&channel, &key, &velocity)
	case msg.Is(midi.NoteOffMsg):
		msg.GetNoteOff(&channel, &key, &velocity)
		velocity = 0
	default:
		return
	}

	row := int(key) / 16
	col := int(key) % 16
	if row > 7 || col > 8 {
		return
	}

	ev := bus.PadEvent{Pressed: velocity > 0, Velocity: velocity}
	if col == 8 {
		ev.Side = 7 - row // A (bottom) = 0
	} else {
		ev.Side = -1
		ev.X = col
		ev.Y = 7 - row
	}
	publish(l.bus, ev)
}

// SetPad lights one grid pad; x runs left to right, y bottom to top.
func (l *Launchpad) SetPad(x, y int, color uint8) {
	if x < 0 || x > 7 || y < 0 || y > 7 {
		return
	}
	l.sendMessage(midi.NoteOn(0, uint8((7-y)*16+x), color))
}

// SetSideButton lights one of the A-H side buttons; 0 is the bottom.
func (l *Launchpad) SetSideButton(index int, color uint8) {
	if index < 0 || index > 7 {
		return
	}
	l.sendMessage(midi.NoteOn(0, uint8((7-index)*16+8), color))
}

func (l *Launchpad) ClearAll() {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			l.SetPad(x, y, PadOff)
		}
	}
	for i := 0; i < 8; i++ {
		l.SetSideButton(i, PadOff)
	}
}

// ShowState paints the scene grid: one column per mushroom, one row per
// scene, the active binding lit bright and the rest dim. The top side button
// mirrors the blackout flag.
func (l *Launchpad) ShowState(bindings map[int]string, order []string, blackout bool) {
	if !l.Connected() {
		return
	}
	for x := 0; x < 8; x++ {
		name, active := bindings[x]
		for y, scene := range order {
			switch {
			case !active:
				l.SetPad(x, y, PadOff)
			case scene == name:
				l.SetPad(x, y, PadGreenFull)
			default:
				l.SetPad(x, y, PadGreenLow)
			}
		}
	}
	if blackout {
		l.SetSideButton(7, PadRedFull)
	} else {
		l.SetSideButton(7, PadOff)
	}
}

func (l *Launchpad) sendMessage(msg midi.Message) {
	l.mu.Lock()
	send := l.send
	l.mu.Unlock()
	if send == nil {
		return
	}
	if err := send(msg); err != nil {
		select {
		case l.dead <- struct{}{}:
		default:
		}
	}
}

func matchLaunchpad(port string) bool {
	lower := strings.ToLower(port)
	for _, name := range launchpadPortNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}
