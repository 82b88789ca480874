package channels

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

func TestParseIndices(t *testing.T) {
	indices, err := ParseIndices(nil)
	require.NoError(t, err)
	require.Len(t, indices, sbus.NumChannels)
	require.Equal(t, 15, indices[15])

	indices, err = ParseIndices([]string{"5", "6", "12"})
	require.NoError(t, err)
	require.Equal(t, []int{5, 6, 12}, indices)

	_, err = ParseIndices([]string{"a"})
	require.Error(t, err)
}

func TestChannelValues(t *testing.T) {
	f, err := ParseRaw([]string{"1024", "0", "2047"})
	require.NoError(t, err)
	values, err := ChannelValues(f, []int{2, 0})
	require.NoError(t, err)
	require.Equal(t, "CH2=2047 CH0=1024", FormatChannels([]int{2, 0}, values))

	_, err = ChannelValues(f, []int{16})
	require.True(t, errors.Is(err, sbus.ErrChannelRange))
}

func TestParseRaw(t *testing.T) {
	f, err := ParseRaw([]string{"172", "0x3e0", "flags=0x08"})
	require.NoError(t, err)
	require.Equal(t, "172 992 0 0 0 0 0 0 0 0 0 0 0 0 0 0", FormatRaw(f))
	require.True(t, f.Flags().Failsafe())

	_, err = ParseRaw([]string{"2048"})
	require.Error(t, err)
	_, err = ParseRaw([]string{"flags=x"})
	require.Error(t, err)
	args := make([]string, 17)
	for i := range args {
		args[i] = "1"
	}
	_, err = ParseRaw(args)
	require.True(t, errors.Is(err, sbus.ErrChannelRange))
}

func TestParseHex(t *testing.T) {
	f, err := ParseRaw([]string{"1024", "172", "1811", "992"})
	require.NoError(t, err)
	parsed, err := ParseHex([]string{f.String()[:10], f.String()[10:]})
	require.NoError(t, err)
	require.Equal(t, f, parsed)

	_, err = ParseHex([]string{"0f00"})
	require.Error(t, err)
	_, err = ParseHex([]string{"zz"})
	require.Error(t, err)
}

func TestFormatPulses(t *testing.T) {
	f, err := ParseRaw([]string{"0", "1024", "2047"})
	require.NoError(t, err)
	require.Equal(t,
		"880us 1520us 2159us 880us 880us 880us 880us 880us 880us 880us 880us 880us 880us 880us 880us 880us",
		FormatPulses(f.Pulses()))
}
