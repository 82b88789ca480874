// Package record captures received frames to a CBOR sequence and replays
// them.
package record

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/glog"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

// Record is one captured frame.
type Record struct {
	Time  time.Time `cbor:"t"`
	Frame []byte    `cbor:"f"`
}

// ParseFrame validates the captured bytes.
func (r *Record) ParseFrame() (sbus.Frame, error) {
	return sbus.ParseFrame(r.Frame)
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
}

// Recorder writes every frame it handles.
type Recorder struct {
	enc    *cbor.Encoder
	closer io.Closer
	lock   sync.Mutex
	count  uint64
	err    error
	closed bool
	now    func() time.Time
}

// NewRecorder writes records to w. w is closed by Close if it is an
// io.Closer.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{enc: encMode.NewEncoder(w)}
	if closer, ok := w.(io.Closer); ok {
		r.closer = closer
	}
	return r
}

// Create creates a capture file.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewRecorder(f), nil
}

// HandleFrame implements sbus.FrameHandler. After the first write error
// or Close frames are discarded. The write error is returned by Close.
func (r *Recorder) HandleFrame(ctx context.Context, f sbus.Frame) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil || r.closed {
		return
	}
	ts := time.Now()
	if r.now != nil {
		ts = r.now()
	}
	if err := r.enc.Encode(&Record{Time: ts, Frame: f[:]}); err != nil {
		glog.Errorf("record error: %v", err)
		r.err = err
		return
	}
	r.count++
}

// Count returns the number of frames recorded.
func (r *Recorder) Count() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.count
}

// Run implements Runnable. It closes the recorder when ctx is done, so a
// Runner never returns with the capture still open.
func (r *Recorder) Run(ctx context.Context) error {
	<-ctx.Done()
	return r.Close()
}

// Close implements io.Closer.
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.closed = true
	err := r.err
	if r.closer != nil {
		if closeErr := r.closer.Close(); err == nil {
			err = closeErr
		}
		r.closer = nil
	}
	return err
}

// Reader reads records.
type Reader struct {
	dec *cbor.Decoder
	n   int
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("record %d: %w", r.n, err)
	}
	r.n++
	return &rec, nil
}

// Replay feeds recorded frames to h until the end of r. With realtime,
// frames are spaced as they were recorded.
func Replay(ctx context.Context, r *Reader, h sbus.FrameHandler, realtime bool) error {
	var last time.Time
	for n := 0; ; n++ {
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		f, err := rec.ParseFrame()
		if err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		if realtime && !last.IsZero() {
			if d := rec.Time.Sub(last); d > 0 {
				timer := time.NewTimer(d)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		last = rec.Time
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.HandleFrame(ctx, f)
	}
}

// Player replays a capture file as a frame source.
type Player struct {
	Path     string
	Handler  sbus.FrameHandler
	Realtime bool
}

// Run implements Runnable.
func (p *Player) Run(ctx context.Context) error {
	f, err := os.Open(p.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Replay(ctx, NewReader(f), p.Handler, p.Realtime)
}
