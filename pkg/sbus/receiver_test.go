package sbus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/require"
)

type frameCollector struct {
	lock   sync.Mutex
	frames []Frame
}

func (c *frameCollector) HandleFrame(ctx context.Context, f Frame) {
	c.lock.Lock()
	c.frames = append(c.frames, f)
	c.lock.Unlock()
}

func (c *frameCollector) collected() []Frame {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Frame(nil), c.frames...)
}

func testStreamBytes(frames ...Frame) []byte {
	var out []byte
	out = append(out, 0xff, 0x01)
	for _, f := range frames {
		out = append(out, f[:]...)
	}
	return out
}

func TestReceiverChunks(t *testing.T) {
	f1, f2, f3 := rawFrame(0, 172), rawFrame(FlagFrameLost, 992), rawFrame(0, 1811)
	in := testStreamBytes(f1, f2, f3)

	testCases := []struct {
		name string
		r    io.Reader
	}{
		{"one byte", iotest.OneByteReader(bytes.NewReader(in))},
		{"half", iotest.HalfReader(bytes.NewReader(in))},
		{"data with EOF", iotest.DataErrReader(bytes.NewReader(in))},
		{"whole", bytes.NewReader(in)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c frameCollector
			r := NewReceiver(tc.r, &c)
			r.BufferSize = 7
			require.NoError(t, r.Run(context.Background()))
			require.Equal(t, []Frame{f1, f2, f3}, c.collected())
			stats := r.Stats()
			require.Equal(t, Stats{Frames: 3, Skipped: 2}, stats.Stats)
			require.Equal(t, uint64(len(in)), stats.Bytes)
		})
	}
}

func TestReceiverReadError(t *testing.T) {
	f := rawFrame(0, 1024)
	errBroken := errors.New("broken")
	r := NewReceiver(io.MultiReader(bytes.NewReader(f[:]), iotest.ErrReader(errBroken)), nil)
	var got []Frame
	r.OnFrame = func(f Frame) { got = append(got, f) }
	err := r.Run(context.Background())
	require.True(t, errors.Is(err, errBroken))
	require.Equal(t, []Frame{f}, got)
}

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout" }
func (timeoutError) Timeout() bool { return true }

// timeoutReader returns a timeout between chunks like a serial port with
// a read deadline.
type timeoutReader struct {
	chunks [][]byte
	timed  bool
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	if !r.timed {
		r.timed = true
		return 0, timeoutError{}
	}
	r.timed = false
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestReceiverReadTimeout(t *testing.T) {
	f1, f2 := rawFrame(FlagCh17, 1), rawFrame(FlagCh18, 2)
	in := testStreamBytes(f1, f2)
	var c frameCollector
	r := NewReceiver(&timeoutReader{chunks: [][]byte{in[:10], in[10:30], in[30:]}}, &c)
	r.ReadTimeout = true
	ts := time.Unix(1000, 0)
	r.now = func() time.Time {
		ts = ts.Add(14 * time.Millisecond)
		return ts
	}
	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, []Frame{f1, f2}, c.collected())
	stats := r.Stats()
	require.Equal(t, uint64(2), stats.Frames)
	require.Equal(t, 14*time.Millisecond, stats.Interval)
	require.Equal(t, ts, stats.LastFrame)
}

type chanReader struct {
	ch chan []byte
}

func (r *chanReader) Read(p []byte) (int, error) {
	b, ok := <-r.ch
	if !ok {
		return 0, io.EOF
	}
	return copy(p, b), nil
}

func TestReceiverCancel(t *testing.T) {
	f := rawFrame(0, 1500)
	stream := &chanReader{ch: make(chan []byte)}
	defer close(stream.ch)
	frameCh := make(chan Frame, 1)
	r := NewReceiver(stream, HandleFrameFunc(func(ctx context.Context, f Frame) {
		frameCh <- f
	}))

	ctx, cancel := context.WithCancel(context.TODO())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	stream.ch <- f[:12]
	stream.ch <- f[12:]
	select {
	case got := <-frameCh:
		require.Equal(t, f, got)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expect frame timeout")
	}

	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("receiver did not stop")
	}
}

func TestHandlers(t *testing.T) {
	f := rawFrame(FlagFailsafe, 0)
	var a, b frameCollector
	var order []string
	h := Handlers{
		&a,
		HandleFrameFunc(func(context.Context, Frame) { order = append(order, "first") }),
		&b,
		HandleFrameFunc(func(context.Context, Frame) { order = append(order, "second") }),
	}
	r := NewReceiver(bytes.NewReader(f[:]), h)
	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, []Frame{f}, a.collected())
	require.Equal(t, []Frame{f}, b.collected())
	require.Equal(t, []string{"first", "second"}, order)
}
