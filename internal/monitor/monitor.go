// Package monitor streams tapped signal paths and manager lifecycle events
// to websocket clients, next to a plain HTTP health check.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

// DefaultMaxSamples caps the samples carried by one frame.
const DefaultMaxSamples = 256

// Frame carries the head of one chunk produced by a path.
type Frame struct {
	Path    string    `json:"path"`
	Seq     uint64    `json:"seq"`
	Samples []float32 `json:"samples"`
}

// Status is sent on every manager lifecycle event.
type Status struct {
	Event   string `json:"event"`
	Running bool   `json:"running"`
	Built   bool   `json:"built"`
}

type client struct {
	conn *websocket.Conn
	send chan any
}

// writePump pumps messages from the hub to the websocket connection.
func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Server is the monitor hub. It is also a tap consumer.
type Server struct {
	ctx        context.Context
	upgrader   websocket.Upgrader
	maxSamples int

	mu      sync.RWMutex
	clients map[*client]struct{}

	httpServer *http.Server
	dropped    atomic.Uint64
}

func New(ctx context.Context) *Server {
	return &Server{
		ctx: ctx,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 65536,
		},
		maxSamples: DefaultMaxSamples,
		clients:    make(map[*client]struct{}),
	}
}

// Handler serves /health and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ws", s.wsHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(s.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(s.ctx)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed.", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan any, 64)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	logger.Debug("Monitor client connected.", "remote_addr", r.RemoteAddr)

	go c.writePump()

	// Clients never send anything meaningful; reading only detects the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.remove(c)
		logger.Debug("Monitor client disconnected.", "remote_addr", r.RemoteAddr)
	}()
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Dropped returns how many messages were discarded because a client was
// too slow.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

// Broadcast queues msg for every client without blocking.
func (s *Server) Broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.dropped.Add(1)
		}
	}
}

// Watch forwards the lifecycle events of m until the returned function is
// called.
func (s *Server) Watch(m *topblock.Manager) (cancel func()) {
	return m.Subscribe(func(e topblock.Event) {
		s.Broadcast(Status{Event: e.String(), Running: m.Running(), Built: m.Built()})
	})
}

// Attach implements tap.Consumer.
func (s *Server) Attach(m *topblock.Manager, path topblock.SignalPathNode, end flowgraph.Endpoint) error {
	size := end.Block.Signature().Outputs[end.Port]
	name := path.Name()
	var seq uint64

	sink := blocks.NewCallbackSink(m.Graph().UniqueName("monitor_sink"), size, func(_ context.Context, chunk []float32) error {
		seq++
		if s.Clients() == 0 {
			return nil
		}
		n := min(len(chunk), s.maxSamples*size)
		s.Broadcast(Frame{Path: name, Seq: seq, Samples: append([]float32(nil), chunk[:n]...)})
		return nil
	})
	return m.Connect(end.Block, end.Port, sink, 0)
}

// Detach implements tap.Consumer. Sinks go away with the graph.
func (s *Server) Detach() {}

// Start listens on port (0 picks a free one) and serves in the background.
// It returns the bound address.
func (s *Server) Start(port int) (string, error) {
	logger := ctxlog.FromContext(s.ctx)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	addr := ln.Addr().String()

	go func() {
		logger.Info("Monitor server starting.", "address", addr)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Monitor server failed unexpectedly.", "error", err)
		}
	}()
	return addr, nil
}

// Close shuts the server down and disconnects every client.
func (s *Server) Close() error {
	logger := ctxlog.FromContext(s.ctx)

	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Monitor server shutdown failed.", "error", err)
		return err
	}
	logger.Debug("Monitor server shut down gracefully.")
	return nil
}
