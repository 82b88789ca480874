package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

func testFrame(ch0 uint16) sbus.Frame {
	var raw [sbus.NumChannels]uint16
	raw[0] = ch0
	return sbus.NewFrame(raw, sbus.FlagCh18)
}

func TestChannels(t *testing.T) {
	s := NewServer("")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/channels")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	s.HandleFrame(context.Background(), testFrame(1024))
	resp, err = http.Get(ts.URL + "/channels")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ev msgs.ChannelsEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ev))
	require.Equal(t, uint64(1), ev.Seq)
	require.Equal(t, uint32(1024), ev.Raw[0])
	require.Equal(t, int32(1520), ev.Pulses[0])
	require.Equal(t, uint32(sbus.FlagCh18), ev.Flags)
}

func TestStats(t *testing.T) {
	s := NewServer("")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	s.Stats = func() sbus.ReceiverStats {
		return sbus.ReceiverStats{Stats: sbus.Stats{Frames: 9, Dropped: 2}, Interval: 7 * time.Millisecond}
	}
	resp, err = http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats msgs.StatsEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, msgs.StatsEvent{Frames: 9, Dropped: 2, IntervalUs: 7000}, stats)
}

func waitClients(t *testing.T, s *Server, n int) {
	deadline := time.Now().Add(time.Second)
	for s.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expect %d clients, got %d", n, s.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebsocket(t *testing.T) {
	s := NewServer("")
	s.ClientBuffer = 2
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", "", ts.URL)
	require.NoError(t, err)
	waitClients(t, s, 1)

	s.HandleFrame(context.Background(), testFrame(100))
	var ev msgs.ChannelsEvent
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	require.Equal(t, uint32(100), ev.Raw[0])

	conn.Close()
	waitClients(t, s, 0)
}

func TestCloseClients(t *testing.T) {
	s := NewServer("")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", "", ts.URL)
	require.NoError(t, err)
	defer conn.Close()
	waitClients(t, s, 1)

	s.closeClients()
	waitClients(t, s, 0)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg []byte
	require.Error(t, websocket.Message.Receive(conn, &msg))
}

func TestWebsocketSlowClient(t *testing.T) {
	s := NewServer("")
	c := s.addClient(nil)
	for i := 0; i < DefaultClientBuffer+5; i++ {
		s.HandleFrame(context.Background(), testFrame(uint16(i)))
	}
	require.Len(t, c.eventCh, DefaultClientBuffer)
	require.Equal(t, uint64(5), c.dropped)
	ev := <-c.eventCh
	require.Equal(t, uint64(1), ev.Seq)
	s.removeClient(c)
	require.Zero(t, s.Clients())
}

func TestRun(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
