package sbus

import "fmt"

// Scaler converts a raw channel value to a pulse length in microseconds.
type Scaler interface {
	Pulse(raw uint16) int
}

// ScaleFunc is func form of Scaler.
type ScaleFunc func(raw uint16) int

// Pulse implements Scaler.
func (f ScaleFunc) Pulse(raw uint16) int {
	return f(raw)
}

// LinearScale maps raw to ((raw-Offset)*Mul >> Shift) + Center.
type LinearScale struct {
	Offset int  `yaml:"offset"`
	Mul    int  `yaml:"mul"`
	Shift  uint `yaml:"shift"`
	Center int  `yaml:"center"`
}

// DefaultScale centres raw 1024 at 1520us with 5/8us per raw unit, giving
// 880us..2159us over the full 11-bit range. Receivers differ on this
// mapping; configure a LinearScale when a reference receiver disagrees.
var DefaultScale = LinearScale{Offset: 1024, Mul: 5, Shift: 3, Center: 1520}

// Pulse implements Scaler.
func (s LinearScale) Pulse(raw uint16) int {
	return ((int(raw)-s.Offset)*s.Mul)>>s.Shift + s.Center
}

// Raw is the inverse of Pulse: the smallest raw value whose pulse is at
// least us, clamped to 0..ChannelMax.
func (s LinearScale) Raw(us int) uint16 {
	n := (us - s.Center) << s.Shift
	q := n / s.Mul
	if n%s.Mul != 0 && n > 0 {
		q++
	}
	v := q + s.Offset
	if v < 0 {
		return 0
	}
	if v > ChannelMax {
		return ChannelMax
	}
	return uint16(v)
}

// Validate checks the scale is usable.
func (s LinearScale) Validate() error {
	if s.Mul <= 0 {
		return fmt.Errorf("scale mul must be positive, got %d", s.Mul)
	}
	if s.Shift > 16 {
		return fmt.Errorf("scale shift %d too large", s.Shift)
	}
	return nil
}

// String implements fmt.Stringer.
func (s LinearScale) String() string {
	return fmt.Sprintf("((raw-%d)*%d>>%d)+%d", s.Offset, s.Mul, s.Shift, s.Center)
}
