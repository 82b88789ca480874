// Package joystick turns a joystick into an SBUS transmitter.
package joystick

import (
	"sync"

	"github.com/robotalks/sbus.go/pkg/joystick/device"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// Channel values of a typical transmitter.
const (
	RawMin    = 172
	RawCenter = 992
	RawMax    = 1811
)

// AxisRaw maps an axis value onto RawMin..RawMax.
func AxisRaw(value int) uint16 {
	if value >= 0 {
		if value > device.AxisMax {
			value = device.AxisMax
		}
		return uint16(RawCenter + value*(RawMax-RawCenter)/device.AxisMax)
	}
	if value < -device.AxisMax {
		value = -device.AxisMax
	}
	return uint16(RawCenter + value*(RawCenter-RawMin)/device.AxisMax)
}

// ButtonRaw maps a button onto a 2-position switch.
func ButtonRaw(pressed bool) uint16 {
	if pressed {
		return RawMax
	}
	return RawMin
}

// Mapping assigns joystick axes and buttons to channels. A negative
// channel ignores the input.
type Mapping struct {
	Axes    []int `yaml:"axes"`
	Buttons []int `yaml:"buttons"`
}

// DefaultMapping puts axes on channels 0..7 and buttons on 8..15.
func DefaultMapping() Mapping {
	m := Mapping{Axes: make([]int, 8), Buttons: make([]int, 8)}
	for i := range m.Axes {
		m.Axes[i] = i
		m.Buttons[i] = 8 + i
	}
	return m
}

func channelOf(index int, channels []int) int {
	if index < 0 || index >= len(channels) {
		return -1
	}
	if ch := channels[index]; ch < sbus.NumChannels {
		return ch
	}
	return -1
}

// Source holds the channel state driven by joystick events. It is safe
// for concurrent use: events come from the device goroutine, frames are
// taken by the generator.
type Source struct {
	Mapping Mapping

	lock      sync.Mutex
	raw       [sbus.NumChannels]uint16
	connected bool
}

// NewSource creates a Source with all channels centred and failsafe set
// until a device connects.
func NewSource(m Mapping) *Source {
	s := &Source{Mapping: m}
	s.center()
	return s
}

func (s *Source) center() {
	for i := range s.raw {
		s.raw[i] = RawCenter
	}
	for _, ch := range s.Mapping.Buttons {
		if ch >= 0 && ch < sbus.NumChannels {
			s.raw[ch] = RawMin
		}
	}
}

// Apply updates the channel mapped to the event.
func (s *Source) Apply(ev device.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch e := ev.(type) {
	case device.AxisEvent:
		if ch := channelOf(e.Index(), s.Mapping.Axes); ch >= 0 {
			s.raw[ch] = AxisRaw(e.Value())
		}
	case device.ButtonEvent:
		if ch := channelOf(e.Index(), s.Mapping.Buttons); ch >= 0 {
			s.raw[ch] = ButtonRaw(e.Pressed())
		}
	}
}

// SetConnected changes the failsafe state. Disconnecting re-centres
// every channel.
func (s *Source) SetConnected(connected bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.connected = connected
	if !connected {
		s.center()
	}
}

// Raw returns the current channel values.
func (s *Source) Raw() [sbus.NumChannels]uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.raw
}

// Frame implements FrameSource.
func (s *Source) Frame() sbus.Frame {
	s.lock.Lock()
	defer s.lock.Unlock()
	var flags sbus.Flags
	if !s.connected {
		flags = sbus.FlagFailsafe | sbus.FlagFrameLost
	}
	return sbus.NewFrame(s.raw, flags)
}
