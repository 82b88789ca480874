package sbus

import (
	"io"
	"iter"
)

// State is the state of an Assembler.
type State int

const (
	// StateIdle scans for a start marker.
	StateIdle State = iota
	// StateCollecting has a start marker and is filling the frame.
	StateCollecting
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	}
	return "unknown"
}

// Stats counts what the Assembler did with its input.
type Stats struct {
	// Frames is the number of valid frames emitted.
	Frames uint64
	// Dropped is the number of complete frames discarded for a bad end marker.
	Dropped uint64
	// Skipped is the number of bytes discarded while scanning for a start marker.
	Skipped uint64
}

// Assembler reassembles frames from a byte stream, one byte at a time.
// It does no I/O and must not be fed from more than one goroutine.
// The zero value is ready to use.
type Assembler struct {
	buf   Frame
	recv  int
	stats Stats
}

// Feed consumes one byte. It returns a frame and true when b completes a
// valid frame. A frame with a bad end marker is dropped without error.
func (a *Assembler) Feed(b byte) (f Frame, ok bool) {
	if a.recv == 0 {
		if b != StartByte {
			a.stats.Skipped++
			return
		}
		a.buf[0] = b
		a.recv = 1
		return
	}
	a.buf[a.recv] = b
	a.recv++
	if a.recv < FrameSize {
		return
	}
	a.recv = 0
	if b != EndByte {
		a.stats.Dropped++
		return
	}
	a.stats.Frames++
	return a.buf, true
}

// Drain feeds bytes from r until r reports an error (io.EOF once the
// available bytes are used up) and yields every frame completed on the way.
// Stopping the iteration early leaves the remaining bytes in r. r should
// not block: Drain is meant for bytes already received.
func (a *Assembler) Drain(r io.ByteReader) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			if f, ok := a.Feed(b); ok && !yield(f) {
				return
			}
		}
	}
}

// FeedBytes feeds all of p and appends completed frames to dst.
func (a *Assembler) FeedBytes(dst []Frame, p []byte) []Frame {
	for _, b := range p {
		if f, ok := a.Feed(b); ok {
			dst = append(dst, f)
		}
	}
	return dst
}

// Reset abandons a partially collected frame.
func (a *Assembler) Reset() {
	a.recv = 0
}

// State returns the current state.
func (a *Assembler) State() State {
	if a.recv == 0 {
		return StateIdle
	}
	return StateCollecting
}

// Received returns the number of bytes of the current candidate frame.
func (a *Assembler) Received() int {
	return a.recv
}

// Stats returns the counters.
func (a *Assembler) Stats() Stats {
	return a.stats
}
