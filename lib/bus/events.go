package bus

import (
	"fmt"
	"time"
)

// Type tags each event kind for subscription routing.
type Type int

const (
	ControllerButton Type = iota
	ControllerDPad
	ControllerAxis
	ControllerGyro
	ControllerAccel
	PadPress
	AudioBeat
	AudioLevel
	BioReading
	Gesture
	IdleTimeout
	DeviceStatus
)

func (t Type) String() string {
	switch t {
	case ControllerButton:
		return "ControllerButton"
	case ControllerDPad:
		return "ControllerDPad"
	case ControllerAxis:
		return "ControllerAxis"
	case ControllerGyro:
		return "ControllerGyro"
	case ControllerAccel:
		return "ControllerAccel"
	case PadPress:
		return "PadPress"
	case AudioBeat:
		return "AudioBeat"
	case AudioLevel:
		return "AudioLevel"
	case BioReading:
		return "BioReading"
	case Gesture:
		return "Gesture"
	case IdleTimeout:
		return "IdleTimeout"
	case DeviceStatus:
		return "DeviceStatus"
	}
	return "Unknown"
}

// Event is the closed set of messages carried by the bus. Each variant is a
// small struct carrying only its own fields; subscribers type-switch on the
// concrete type.
type Event interface {
	Type() Type
}

// Button identifies a controller button in DS4 layout.
type Button int

const (
	ButtonCross Button = iota
	ButtonCircle
	ButtonSquare
	ButtonTriangle
	ButtonL1
	ButtonR1
	ButtonL2
	ButtonR2
	ButtonShare
	ButtonOptions
	ButtonL3
	ButtonR3
	ButtonPS
	ButtonTouchpad
)

// Axis identifies a controller analog axis.
type Axis int

const (
	AxisLeftX Axis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
	AxisL2
	AxisR2
)

type ButtonEvent struct {
	Button  Button
	Pressed bool
}

func (ButtonEvent) Type() Type { return ControllerButton }

type DPadEvent struct {
	X, Y int // -1, 0, +1 per direction
}

func (DPadEvent) Type() Type { return ControllerDPad }

type AxisEvent struct {
	Axis  Axis
	Value float64 // -1..1
}

func (AxisEvent) Type() Type { return ControllerAxis }

type GyroEvent struct {
	Pitch, Yaw, Roll float64
}

func (GyroEvent) Type() Type { return ControllerGyro }

type AccelEvent struct {
	X, Y, Z float64
}

func (AccelEvent) Type() Type { return ControllerAccel }

// PadEvent is a Launchpad grid pad press. X runs left to right, Y bottom to
// top, both 0..7. Side is -1 for grid pads, otherwise the side button index.
type PadEvent struct {
	X, Y     int
	Side     int
	Pressed  bool
	Velocity uint8
}

func (PadEvent) Type() Type { return PadPress }

type AudioBeatEvent struct {
	Intensity float64 // 0..1
}

func (AudioBeatEvent) Type() Type { return AudioBeat }

type AudioLevelEvent struct {
	Level float64
	Low   float64
	Mid   float64
	High  float64
}

func (AudioLevelEvent) Type() Type { return AudioLevel }

// BioReading carries a plant resistance sample. Mushroom is the target group
// id, or Broadcast when the sensor isn't bound to a group.
type BioEvent struct {
	Plant      string
	Resistance float64 // 0..1
	Mushroom   int
}

func (BioEvent) Type() Type { return BioReading }

// Broadcast as a BioEvent.Mushroom value targets every group.
const Broadcast = -1

type GestureKind int

const (
	GestureGrab GestureKind = iota
	GestureRelease
	GestureTap
	GestureSwipeLeft
	GestureSwipeRight
	GestureSwipeUp
	GestureSwipeDown
	GestureCircleCW
	GestureCircleCCW
	GesturePush
	GesturePull
)

var gestureNames = map[GestureKind]string{
	GestureGrab:       "grab",
	GestureRelease:    "release",
	GestureTap:        "tap",
	GestureSwipeLeft:  "swipe_left",
	GestureSwipeRight: "swipe_right",
	GestureSwipeUp:    "swipe_up",
	GestureSwipeDown:  "swipe_down",
	GestureCircleCW:   "circle_cw",
	GestureCircleCCW:  "circle_ccw",
	GesturePush:       "push",
	GesturePull:       "pull",
}

func (g GestureKind) String() string { return gestureNames[g] }

// ParseGesture returns the gesture named s, or false.
func ParseGesture(s string) (GestureKind, bool) {
	for g, name := range gestureNames {
		if name == s {
			return g, true
		}
	}
	return 0, false
}

type GestureEvent struct {
	Gesture  GestureKind
	Strength float64
}

func (GestureEvent) Type() Type { return Gesture }

type IdleTimeoutEvent struct {
	Elapsed time.Duration
}

func (IdleTimeoutEvent) Type() Type { return IdleTimeout }

// DeviceStatusEvent signals hot connect/disconnect of an input adapter.
type DeviceStatusEvent struct {
	Source    string
	Connected bool
}

func (DeviceStatusEvent) Type() Type { return DeviceStatus }

func (e ButtonEvent) String() string {
	action := "released"
	if e.Pressed {
		action = "pressed"
	}
	return fmt.Sprintf("button %d %s", e.Button, action)
}

func (e PadEvent) String() string {
	action := "released"
	if e.Pressed {
		action = "pressed"
	}
	if e.Side >= 0 {
		return fmt.Sprintf("side %d %s", e.Side, action)
	}
	return fmt.Sprintf("pad (%d,%d) %s vel=%d", e.X, e.Y, action, e.Velocity)
}
