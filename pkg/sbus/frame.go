package sbus

import (
	"encoding/hex"
	"fmt"
)

// Frame layout.
const (
	FrameSize   = 25
	StartByte   = 0x0F
	EndByte     = 0x00
	NumChannels = 16
	ChannelBits = 11
	ChannelMax  = 1<<ChannelBits - 1

	posPayload = 1
	posFlags   = 23
	posEnd     = 24
)

// Frame is one complete SBUS message. It is a value type: frames handed out
// by the Assembler are copies and never change afterwards.
type Frame [FrameSize]byte

// Flags is the flags byte (byte 23) of a frame.
type Flags byte

// Flag bits.
const (
	FlagCh17      Flags = 0x01
	FlagCh18      Flags = 0x02
	FlagFrameLost Flags = 0x04
	FlagFailsafe  Flags = 0x08
)

// Ch17 returns digital channel 17.
func (f Flags) Ch17() bool { return f&FlagCh17 != 0 }

// Ch18 returns digital channel 18.
func (f Flags) Ch18() bool { return f&FlagCh18 != 0 }

// FrameLost is set by the receiver when a radio frame was missed.
func (f Flags) FrameLost() bool { return f&FlagFrameLost != 0 }

// Failsafe is set by the receiver when it entered failsafe.
func (f Flags) Failsafe() bool { return f&FlagFailsafe != 0 }

// String implements fmt.Stringer.
func (f Flags) String() string {
	return fmt.Sprintf("ch17=%v ch18=%v lost=%v failsafe=%v",
		f.Ch17(), f.Ch18(), f.FrameLost(), f.Failsafe())
}

// NewFrame packs raw channel values into a frame. Values are truncated to
// 11 bits.
func NewFrame(raw [NumChannels]uint16, flags Flags) Frame {
	var f Frame
	f[0] = StartByte
	var acc uint32
	var bits uint
	pos := posPayload
	for _, v := range raw {
		acc |= uint32(v&ChannelMax) << bits
		bits += ChannelBits
		for bits >= 8 {
			f[pos] = byte(acc)
			pos++
			acc >>= 8
			bits -= 8
		}
	}
	f[posFlags] = byte(flags)
	f[posEnd] = EndByte
	return f
}

// ParseFrame validates a 25-byte slice and returns it as a Frame.
func ParseFrame(p []byte) (f Frame, err error) {
	if len(p) != FrameSize {
		return f, fmt.Errorf("invalid frame length %d", len(p))
	}
	copy(f[:], p)
	if !f.IsValid() {
		return f, fmt.Errorf("invalid frame markers 0x%02x..0x%02x", f[0], f[posEnd])
	}
	return f, nil
}

// IsValid checks the start and end markers.
func (f Frame) IsValid() bool {
	return f[0] == StartByte && f[posEnd] == EndByte
}

// Flags returns the flags byte.
func (f Frame) Flags() Flags {
	return Flags(f[posFlags])
}

// Payload returns a copy of the 22 packed channel bytes.
func (f Frame) Payload() []byte {
	p := make([]byte, posFlags-posPayload)
	copy(p, f[posPayload:posFlags])
	return p
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return hex.EncodeToString(f[:])
}
