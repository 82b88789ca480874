package sbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultScale(t *testing.T) {
	testCases := []struct {
		raw   uint16
		pulse int
	}{
		{1024, 1520},
		{0, 880},
		{ChannelMax, 2159},
		{172, 987},
		{992, 1500},
		{1811, 2011},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.pulse, DefaultScale.Pulse(tc.raw), "raw %d", tc.raw)
	}
}

func TestLinearScaleRaw(t *testing.T) {
	for us := DefaultScale.Pulse(0); us <= DefaultScale.Pulse(ChannelMax); us++ {
		raw := DefaultScale.Raw(us)
		require.Equalf(t, us, DefaultScale.Pulse(raw), "us %d -> raw %d", us, raw)
	}
	require.Equal(t, uint16(0), DefaultScale.Raw(500))
	require.Equal(t, uint16(ChannelMax), DefaultScale.Raw(2500))
	require.Equal(t, uint16(1024), DefaultScale.Raw(1520))
}

func TestLinearScaleCustom(t *testing.T) {
	// 0.625us per unit centred at 1500us
	s := LinearScale{Offset: 992, Mul: 5, Shift: 3, Center: 1500}
	require.NoError(t, s.Validate())
	require.Equal(t, 1500, s.Pulse(992))
	require.Equal(t, 1000, s.Pulse(192))
	require.Equal(t, 2000, s.Pulse(1792))
	require.Equal(t, "((raw-992)*5>>3)+1500", s.String())
}

func TestLinearScaleValidate(t *testing.T) {
	require.Error(t, LinearScale{Mul: 0}.Validate())
	require.Error(t, LinearScale{Mul: 1, Shift: 20}.Validate())
	require.NoError(t, DefaultScale.Validate())
}
