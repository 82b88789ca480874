package sbus

import "strconv"

// ChannelLabel names a channel by its 0-based index, e.g. CH5 for index 5.
func ChannelLabel(index int) string {
	return "CH" + strconv.Itoa(index)
}

// Channel extracts one raw 11-bit channel value.
// It reads the smallest run of payload bytes covering the channel's bits,
// most significant byte first, then shifts out the sub-byte offset.
func (f Frame) Channel(index int) (uint16, error) {
	if index < 0 || index >= NumChannels {
		return 0, &ChannelRangeError{Index: index}
	}
	bitIdx := index * ChannelBits
	var value uint32
	for i := (bitIdx + ChannelBits - 1) / 8; i >= bitIdx/8; i-- {
		value = value<<8 | uint32(f[posPayload+i])
	}
	return uint16(value>>uint(bitIdx%8)) & ChannelMax, nil
}

// Channels extracts all raw channel values in one pass.
func (f Frame) Channels() (raw [NumChannels]uint16) {
	var acc uint32
	var bits uint
	ch := 0
	for _, b := range f[posPayload:posFlags] {
		acc |= uint32(b) << bits
		bits += 8
		if bits >= ChannelBits {
			raw[ch] = uint16(acc) & ChannelMax
			ch++
			acc >>= ChannelBits
			bits -= ChannelBits
		}
	}
	return
}

// Pulses returns all channels as pulse lengths in microseconds using
// DefaultScale.
func (f Frame) Pulses() [NumChannels]int {
	return f.PulsesWith(DefaultScale)
}

// PulsesWith returns all channels converted by s.
func (f Frame) PulsesWith(s Scaler) (pulses [NumChannels]int) {
	for i, v := range f.Channels() {
		pulses[i] = s.Pulse(v)
	}
	return
}
