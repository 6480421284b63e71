package input

import (
	"context"
	"encoding/binary"
	"log"
	"sync"
	"time"

	"rafaelmartins.com/p/usbhid"

	"shroomlight/lib/bus"
)

const sonyVendorID = 0x054c

// DS4 v1 and v2.
var ds4ProductIDs = map[uint16]bool{
	0x05c4: true,
	0x09cc: true,
}

const (
	ds4Deadzone   = 0.15
	ds4GyroScale  = 1.0 / 1024.0
	ds4AccelScale = 1.0 / 8192.0

	reconnectInterval = 2 * time.Second
)

// ds4ButtonBits maps report bit positions to buttons. The wire order differs
// from the event enum order.
var ds4ButtonBits = map[uint]bus.Button{
	4:  bus.ButtonSquare,
	5:  bus.ButtonCross,
	6:  bus.ButtonCircle,
	7:  bus.ButtonTriangle,
	8:  bus.ButtonL1,
	9:  bus.ButtonR1,
	10: bus.ButtonL2,
	11: bus.ButtonR2,
	12: bus.ButtonShare,
	13: bus.ButtonOptions,
	14: bus.ButtonL3,
	15: bus.ButtonR3,
	16: bus.ButtonPS,
	17: bus.ButtonTouchpad,
}

// ds4DPad decodes the hat nibble. 8 is neutral.
var ds4DPad = [9][2]int{
	{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 0},
}

// DS4 reads a DualShock 4 over raw HID; raw access is required for the gyro
// and accelerometer, which the kernel joystick layer does not expose.
type DS4 struct {
	bus *bus.Bus

	mu        sync.Mutex
	dev       *usbhid.Device
	connected bool

	buttons map[bus.Button]bool
	axes    map[bus.Axis]float64
	dpadX   int
	dpadY   int
}

func NewDS4(b *bus.Bus) *DS4 {
	return &DS4{bus: b}
}

func (d *DS4) Name() string { return "ds4" }

func (d *DS4) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *DS4) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		d.disconnect(false)
	}()

	for ctx.Err() == nil {
		if !d.connect() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectInterval):
			}
			continue
		}
		d.readLoop(ctx)
		d.disconnect(true)
	}
}

func (d *DS4) connect() bool {
	devices, err := usbhid.Enumerate(func(dev *usbhid.Device) bool {
		return dev.VendorId() == sonyVendorID && ds4ProductIDs[dev.ProductId()]
	})
	if err != nil || len(devices) == 0 {
		return false
	}

	dev := devices[0]
	if err := dev.Open(true); err != nil {
		log.Printf("ds4: open: %v", err)
		return false
	}

	d.mu.Lock()
	d.dev = dev
	d.connected = true
	d.buttons = make(map[bus.Button]bool)
	d.axes = make(map[bus.Axis]float64)
	d.dpadX, d.dpadY = 0, 0
	d.mu.Unlock()

	log.Printf("ds4: connected: %s", dev.Product())
	publish(d.bus, bus.DeviceStatusEvent{Source: d.Name(), Connected: true})
	return true
}

// disconnect tears the device down once; announce is false during shutdown.
func (d *DS4) disconnect(announce bool) {
	d.mu.Lock()
	dev := d.dev
	was := d.connected
	d.dev = nil
	d.connected = false
	d.mu.Unlock()

	if dev != nil {
		dev.Close()
	}
	if was && announce {
		log.Printf("ds4: disconnected, waiting for reconnection")
		publish(d.bus, bus.DeviceStatusEvent{Source: d.Name(), Connected: false})
	}
}

func (d *DS4) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		d.mu.Lock()
		dev := d.dev
		d.mu.Unlock()
		if dev == nil {
			return
		}

		_, buf, err := dev.GetInputReport()
		if err != nil {
			return
		}
		d.processReport(buf)
	}
}

func (d *DS4) processReport(buf []byte) {
	// USB reports start 0x01, Bluetooth 0x11 with two extra header bytes.
	offset := 0
	switch {
	case len(buf) > 0 && buf[0] == 0x01:
	case len(buf) > 0 && buf[0] == 0x11:
		offset = 2
	default:
		return
	}
	if len(buf) < offset+10 {
		return
	}

	d.setAxis(bus.AxisLeftX, deadzone(stick(buf[offset+1])))
	d.setAxis(bus.AxisLeftY, deadzone(stick(buf[offset+2])))
	d.setAxis(bus.AxisRightX, deadzone(stick(buf[offset+3])))
	d.setAxis(bus.AxisRightY, deadzone(stick(buf[offset+4])))
	d.setAxis(bus.AxisL2, trigger(buf[offset+8]))
	d.setAxis(bus.AxisR2, trigger(buf[offset+9]))

	raw := uint(buf[offset+5]) | uint(buf[offset+6])<<8 | uint(buf[offset+7])<<16

	hat := raw & 0x0f
	if hat > 8 {
		hat = 8
	}
	x, y := ds4DPad[hat][0], ds4DPad[hat][1]
	if x != d.dpadX || y != d.dpadY {
		d.dpadX, d.dpadY = x, y
		if x != 0 || y != 0 {
			publish(d.bus, bus.DPadEvent{X: x, Y: y})
		}
	}

	for bit, button := range ds4ButtonBits {
		pressed := raw&(1<<bit) != 0
		if d.buttons[button] != pressed {
			d.buttons[button] = pressed
			publish(d.bus, bus.ButtonEvent{Button: button, Pressed: pressed})
		}
	}

	// Gyro and accelerometer: six consecutive little-endian int16s.
	if len(buf) >= offset+25 {
		g := buf[offset+13:]
		pitch := float64(int16(binary.LittleEndian.Uint16(g[0:]))) * ds4GyroScale
		yaw := float64(int16(binary.LittleEndian.Uint16(g[2:]))) * ds4GyroScale
		roll := float64(int16(binary.LittleEndian.Uint16(g[4:]))) * ds4GyroScale
		if abs(pitch) > 0.01 || abs(yaw) > 0.01 || abs(roll) > 0.01 {
			publish(d.bus, bus.GyroEvent{Pitch: pitch, Yaw: yaw, Roll: roll})
		}

		ax := float64(int16(binary.LittleEndian.Uint16(g[6:]))) * ds4AccelScale
		ay := float64(int16(binary.LittleEndian.Uint16(g[8:]))) * ds4AccelScale
		az := float64(int16(binary.LittleEndian.Uint16(g[10:]))) * ds4AccelScale
		publish(d.bus, bus.AccelEvent{X: ax, Y: ay, Z: az})
	}
}

func (d *DS4) setAxis(axis bus.Axis, value float64) {
	if d.axes[axis] == value {
		return
	}
	d.axes[axis] = value
	publish(d.bus, bus.AxisEvent{Axis: axis, Value: value})
}

func stick(raw byte) float64 {
	return (float64(raw) - 128) / 128
}

func trigger(raw byte) float64 {
	return float64(raw)/127.5 - 1
}

func deadzone(v float64) float64 {
	if abs(v) < ds4Deadzone {
		return 0
	}
	sign := 1.0
	if v < 0 {
		sign = -1.0
	}
	return sign * (abs(v) - ds4Deadzone) / (1 - ds4Deadzone)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
