package sbus

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// bitChannel extracts a channel bit by bit, independent of the decoder.
func bitChannel(f Frame, index int) uint16 {
	var v uint16
	for i := 0; i < ChannelBits; i++ {
		bit := index*ChannelBits + i
		if f[1+bit/8]>>uint(bit%8)&1 != 0 {
			v |= 1 << uint(i)
		}
	}
	return v
}

func TestChannelZero(t *testing.T) {
	var f Frame
	f[0] = StartByte
	// 1024 = bit 10 of channel 0 = bit 2 of payload byte 1
	f[2] = 0x04
	v, err := f.Channel(0)
	require.NoError(t, err)
	require.Equal(t, uint16(1024), v)
	for i := 1; i < NumChannels; i++ {
		v, err := f.Channel(i)
		require.NoError(t, err)
		require.Zerof(t, v, "channel %d", i)
	}
}

func TestChannelLastIndependent(t *testing.T) {
	f := rawFrame(0xff, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, ChannelMax)
	for i := 0; i < NumChannels-1; i++ {
		v, err := f.Channel(i)
		require.NoError(t, err)
		require.Zerof(t, v, "channel %d", i)
	}
	v, err := f.Channel(NumChannels - 1)
	require.NoError(t, err)
	require.Equal(t, uint16(ChannelMax), v)
}

func TestChannelEach(t *testing.T) {
	for ch := 0; ch < NumChannels; ch++ {
		for _, val := range []uint16{0, 1, 0x2aa, 0x555, 1024, ChannelMax} {
			var raw [NumChannels]uint16
			raw[ch] = val
			f := NewFrame(raw, FlagFailsafe|FlagFrameLost)
			for i := 0; i < NumChannels; i++ {
				v, err := f.Channel(i)
				require.NoError(t, err)
				require.Equalf(t, raw[i], v, "set ch%d=%d, read ch%d", ch, val, i)
			}
		}
	}
}

func TestChannelIndexRange(t *testing.T) {
	var f Frame
	for _, index := range []int{-1, NumChannels, 100} {
		_, err := f.Channel(index)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrChannelRange))
		var rangeErr *ChannelRangeError
		require.True(t, errors.As(err, &rangeErr))
		require.Equal(t, index, rangeErr.Index)
	}
}

func TestChannelsConsistency(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for n := 0; n < 200; n++ {
		var f Frame
		rnd.Read(f[:])
		f[0], f[FrameSize-1] = StartByte, EndByte
		raw := f.Channels()
		pulses := f.Pulses()
		for i := 0; i < NumChannels; i++ {
			v, err := f.Channel(i)
			require.NoError(t, err)
			require.Equal(t, bitChannel(f, i), v)
			require.Equal(t, v, raw[i])
			require.Equal(t, DefaultScale.Pulse(v), pulses[i])
		}
	}
}

func TestChannelsIgnoreFlags(t *testing.T) {
	var raw [NumChannels]uint16
	for i := range raw {
		raw[i] = uint16(i * 100)
	}
	a, b := NewFrame(raw, 0), NewFrame(raw, 0xff)
	require.Equal(t, raw, a.Channels())
	require.Equal(t, a.Channels(), b.Channels())
	v, err := b.Channel(NumChannels - 1)
	require.NoError(t, err)
	require.Equal(t, raw[NumChannels-1], v)
}

func TestPulsesWith(t *testing.T) {
	f := rawFrame(0, 0, 1024, ChannelMax)
	double := ScaleFunc(func(raw uint16) int { return int(raw) * 2 })
	pulses := f.PulsesWith(double)
	require.Equal(t, 0, pulses[0])
	require.Equal(t, 2048, pulses[1])
	require.Equal(t, 2*ChannelMax, pulses[2])

	pulses = f.Pulses()
	require.Equal(t, 880, pulses[0])
	require.Equal(t, 1520, pulses[1])
	require.Equal(t, 2159, pulses[2])
	require.Equal(t, 880, pulses[3])
}

func TestChannelLabel(t *testing.T) {
	require.Equal(t, "CH0", ChannelLabel(0))
	require.Equal(t, "CH5", ChannelLabel(5))
	require.Equal(t, "CH15", ChannelLabel(NumChannels-1))
}
