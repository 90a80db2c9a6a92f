// Package server exposes the hub over HTTP as a one-way text/event-stream
// push channel. Each connection gets its own hub subscriber: a full
// snapshot frame first, then incremental event frames, with periodic
// heartbeats. A dropped subscriber closes the connection; the client
// resyncs by reconnecting.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stride-dev/stride/internal/errors"
	"github.com/stride-dev/stride/internal/event"
	"github.com/stride-dev/stride/internal/hub"
	"github.com/stride-dev/stride/internal/logging"
)

// Server wraps the HTTP listener serving the event stream.
type Server struct {
	addr   string
	h      *hub.Hub
	logger *logging.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	started  time.Time
}

// New creates a Server bound to the hub. Nothing listens until Start.
func New(addr string, h *hub.Hub, logger *logging.Logger) *Server {
	return &Server{
		addr:   addr,
		h:      h,
		logger: logger.WithComponent("server"),
	}
}

// Start binds the TCP listener and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	s.listener = listener
	s.started = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)

	server := &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No write timeout: /events connections are long-lived by design.
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve error", "error", err)
		}
	}()
	s.logger.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.server = nil
	s.listener = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	uptime := int64(time.Since(s.started).Seconds())
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"subscribers":    s.h.SubscriberCount(),
		"uptime_seconds": uptime,
	})
}

// handleEvents serves one long-lived event-stream connection. Framing is
// "event:<type>" plus "data:<JSON>" per frame. The snapshot frame always
// comes first so the client never has to diff a partial history.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.h.Subscribe()
	defer s.h.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeFrame(w, event.TypeSnapshot, sub.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	s.logger.Debug("stream connected", "subscriber", sub.ID())
	defer s.logger.Debug("stream disconnected", "subscriber", sub.ID())

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				// Dropped for falling behind; the client reconnects and
				// resyncs from a fresh snapshot.
				return
			}
			if err := writeFrame(w, ev.EventType(), ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event:%s\ndata:%s\n\n", eventType, data)
	return err
}
