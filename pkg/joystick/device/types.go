// Package device reads Linux joystick devices (/dev/input/jsN).
package device

import (
	"errors"
	"io"
)

// AxisMax is the absolute limit of axis values.
const AxisMax = 32767

// ErrUnsupported is returned where joystick devices are not supported.
var ErrUnsupported = errors.New("joystick not supported on this platform")

// Event defines the base event interface.
type Event interface {
	// IsInit indicates the event reports initial state after open.
	IsInit() bool
	// Index returns either Axis or Button index.
	Index() int
}

// AxisEvent represents the change on an axis, -AxisMax..AxisMax.
type AxisEvent interface {
	Event
	Value() int
}

// ButtonEvent represents the change on a button.
type ButtonEvent interface {
	Event
	Pressed() bool
}

// Device represents an opened joystick.
type Device interface {
	io.Closer
	Index() int
	Name() string
	AxisCount() int
	ButtonCount() int
	// ReadEvent blocks until an event arrives.
	ReadEvent() (Event, error)
}

// Opener opens the joystick at index, or detects one if index < 0.
// It returns nil without error when nothing is detected.
type Opener func(index int) (Device, error)

// OpenAny is the default Opener.
func OpenAny(index int) (Device, error) {
	if index >= 0 {
		return Open(index)
	}
	return DetectAndOpen(0)
}
