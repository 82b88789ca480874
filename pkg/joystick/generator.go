package joystick

import (
	"context"
	"io"
	"time"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// DefaultPeriod is the frame period of an analog-speed SBUS transmitter.
const DefaultPeriod = 14 * time.Millisecond

// FrameSource provides the frame to transmit next.
type FrameSource interface {
	Frame() sbus.Frame
}

// FrameSourceFunc is func form of FrameSource.
type FrameSourceFunc func() sbus.Frame

// Frame implements FrameSource.
func (f FrameSourceFunc) Frame() sbus.Frame {
	return f()
}

// Generator writes a frame from Source to Writer every Period.
type Generator struct {
	Source FrameSource
	Writer io.Writer
	Period time.Duration
	// Count stops the generator after that many frames. 0 runs forever.
	Count int
}

// Run implements Runnable.
func (g *Generator) Run(ctx context.Context) error {
	period := g.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for n := 1; ; n++ {
		f := g.Source.Frame()
		if _, err := g.Writer.Write(f[:]); err != nil {
			return err
		}
		if g.Count > 0 && n >= g.Count {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep moves every channel between RawMin and RawMax, each one phase
// shifted, completing a cycle every Steps frames.
type Sweep struct {
	Steps int
	step  int
}

// Frame implements FrameSource.
func (s *Sweep) Frame() sbus.Frame {
	steps := s.Steps
	if steps < 2 {
		steps = 2
	}
	var raw [sbus.NumChannels]uint16
	half := steps / 2
	for i := range raw {
		pos := (s.step + i*steps/sbus.NumChannels) % steps
		if pos > half {
			pos = steps - pos
		}
		raw[i] = uint16(RawMin + pos*(RawMax-RawMin)/half)
	}
	s.step = (s.step + 1) % steps
	return sbus.NewFrame(raw, 0)
}
