package sbus

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
)

// FrameHandler is called when a frame is received.
type FrameHandler interface {
	HandleFrame(context.Context, Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame Frame) {
	f(ctx, frame)
}

// Handlers dispatches a frame to every handler in order.
type Handlers []FrameHandler

// HandleFrame implements FrameHandler.
func (h Handlers) HandleFrame(ctx context.Context, frame Frame) {
	for _, handler := range h {
		handler.HandleFrame(ctx, frame)
	}
}

// ReceiverStats is a snapshot of a Receiver.
type ReceiverStats struct {
	Stats
	// Bytes is the total number of bytes read.
	Bytes uint64
	// LastFrame is when the last valid frame completed.
	LastFrame time.Time
	// Interval is the time between the last two valid frames.
	Interval time.Duration
}

// DefaultBufferSize is the default read size of a Receiver.
const DefaultBufferSize = 256

// Receiver reads a byte stream and dispatches assembled frames.
// Only the Run goroutine feeds the Assembler.
type Receiver struct {
	Reader  io.Reader
	Handler FrameHandler
	// OnFrame is an optional side-channel hook called for every frame
	// before Handler, e.g. to pulse a test point.
	OnFrame func(Frame)
	// ReadTimeout must be set if Reader returns timeouts or empty reads
	// when no data is available (serial ports with a read timeout).
	ReadTimeout bool
	BufferSize  int

	assembler Assembler
	bytes     uint64
	last      time.Time
	interval  time.Duration
	lock      sync.Mutex

	now func() time.Time
}

// NewReceiver creates a Receiver.
func NewReceiver(r io.Reader, h FrameHandler) *Receiver {
	return &Receiver{
		Reader:     r,
		Handler:    h,
		BufferSize: DefaultBufferSize,
	}
}

// Stats returns a snapshot of the counters.
func (r *Receiver) Stats() ReceiverStats {
	r.lock.Lock()
	defer r.lock.Unlock()
	return ReceiverStats{
		Stats:     r.assembler.Stats(),
		Bytes:     r.bytes,
		LastFrame: r.last,
		Interval:  r.interval,
	}
}

// Run reads until the context is cancelled, the reader fails or the
// stream ends. io.EOF ends Run without error.
func (r *Receiver) Run(ctx context.Context) error {
	size := r.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	if r.ReadTimeout {
		buf := make([]byte, size)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := r.Reader.Read(buf)
			if n > 0 {
				r.process(ctx, buf[:n])
			}
			if err != nil {
				if os.IsTimeout(err) {
					continue
				}
				if err == io.EOF {
					return nil
				}
				return err
			}
		}
	}

	dataCh, errCh := make(chan []byte, 4), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, size, dataCh, errCh)
	for {
		select {
		case p := <-dataCh:
			r.process(ctx, p)
		case err := <-errCh:
			r.flush(ctx, dataCh)
			if err == io.EOF {
				return nil
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Receiver) readLoop(ctx context.Context, size int, dataCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, size)
		n, err := r.Reader.Read(buf)
		if n > 0 {
			select {
			case dataCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

// flush processes chunks read before the reader failed.
func (r *Receiver) flush(ctx context.Context, dataCh chan []byte) {
	for {
		select {
		case p := <-dataCh:
			r.process(ctx, p)
		default:
			return
		}
	}
}

func (r *Receiver) process(ctx context.Context, p []byte) {
	var frames [4]Frame
	r.lock.Lock()
	r.bytes += uint64(len(p))
	completed := r.assembler.FeedBytes(frames[:0], p)
	if len(completed) > 0 {
		now := r.clock()
		if !r.last.IsZero() {
			r.interval = now.Sub(r.last)
		}
		r.last = now
	}
	r.lock.Unlock()

	for _, f := range completed {
		if glog.V(3) {
			glog.Infof("frame %s", f)
		}
		if fn := r.OnFrame; fn != nil {
			fn(f)
		}
		if h := r.Handler; h != nil {
			h.HandleFrame(ctx, f)
		}
	}
}

func (r *Receiver) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
