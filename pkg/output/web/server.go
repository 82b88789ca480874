// Package web serves decoded SBUS channels over HTTP and websocket.
package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// DefaultClientBuffer is the number of events queued per websocket client.
const DefaultClientBuffer = 16

// Server serves:
//
//	GET /channels  latest ChannelsEvent as JSON
//	GET /stats     receiver stats as JSON
//	GET /ws        stream of ChannelsEvent as JSON messages
//
// A websocket client that falls behind loses events; the receiver never
// waits for it.
type Server struct {
	Addr         string
	Scale        sbus.Scaler
	Stats        func() sbus.ReceiverStats
	ClientBuffer int

	lock    sync.RWMutex
	seq     uint64
	latest  *msgs.ChannelsEvent
	clients map[*client]struct{}
	srv     *http.Server
}

type client struct {
	conn    io.Closer
	eventCh chan *msgs.ChannelsEvent
	dropped uint64
}

// NewServer creates a Server.
func NewServer(addr string) *Server {
	return &Server{Addr: addr, ClientBuffer: DefaultClientBuffer}
}

// HandleFrame implements sbus.FrameHandler.
func (s *Server) HandleFrame(ctx context.Context, f sbus.Frame) {
	scale := s.Scale
	if scale == nil {
		scale = sbus.DefaultScale
	}
	s.lock.Lock()
	s.seq++
	ev := msgs.EventFromFrame(s.seq, time.Now(), f, scale)
	s.latest = ev
	for c := range s.clients {
		select {
		case c.eventCh <- ev:
		default:
			c.dropped++
		}
	}
	s.lock.Unlock()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/channels", s.getChannels)
	router.GET("/stats", s.getStats)
	router.Handler(http.MethodGet, "/ws", websocket.Handler(s.serveWS))
	return router
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	s.lock.Lock()
	s.srv = &http.Server{Addr: s.Addr, Handler: s.Handler()}
	srv := s.srv
	s.lock.Unlock()

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("web listening on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	// Shutdown does not track hijacked connections.
	s.closeClients()
	if err := <-errCh; err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("write response error: %v", err)
	}
}

func (s *Server) getChannels(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.lock.RLock()
	ev := s.latest
	s.lock.RUnlock()
	if ev == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, ev)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.Stats == nil {
		http.Error(w, "stats not available", http.StatusNotFound)
		return
	}
	writeJSON(w, msgs.StatsFromReceiver(s.Stats()))
}

func (s *Server) addClient(conn io.Closer) *client {
	size := s.ClientBuffer
	if size <= 0 {
		size = DefaultClientBuffer
	}
	c := &client{conn: conn, eventCh: make(chan *msgs.ChannelsEvent, size)}
	s.lock.Lock()
	if s.clients == nil {
		s.clients = make(map[*client]struct{})
	}
	s.clients[c] = struct{}{}
	s.lock.Unlock()
	return c
}

func (s *Server) removeClient(c *client) {
	s.lock.Lock()
	delete(s.clients, c)
	dropped := c.dropped
	s.lock.Unlock()
	if dropped > 0 {
		glog.Warningf("websocket client dropped %d events", dropped)
	}
}

func (s *Server) closeClients() {
	s.lock.RLock()
	conns := make([]io.Closer, 0, len(s.clients))
	for c := range s.clients {
		if c.conn != nil {
			conns = append(conns, c.conn)
		}
	}
	s.lock.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.clients)
}

func (s *Server) serveWS(conn *websocket.Conn) {
	defer conn.Close()
	c := s.addClient(conn)
	defer s.removeClient(c)
	glog.V(1).Infof("websocket client %s connected", conn.Request().RemoteAddr)

	// a read failure means the client went away
	closedCh := make(chan struct{})
	go func() {
		var msg []byte
		for websocket.Message.Receive(conn, &msg) == nil {
		}
		close(closedCh)
	}()

	for {
		select {
		case ev := <-c.eventCh:
			if err := websocket.JSON.Send(conn, ev); err != nil {
				glog.V(1).Infof("websocket send error: %v", err)
				return
			}
		case <-closedCh:
			return
		}
	}
}
