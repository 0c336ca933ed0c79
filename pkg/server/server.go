// Package server exposes the local control API: HTTP endpoints for the
// push-to-talk and detection toggles, plus a WebSocket event stream for
// UI clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxkey/voxkey/pkg/config"
	"github.com/voxkey/voxkey/pkg/session"
)

// Config holds the control server configuration.
type Config struct {
	// Addr is the address to listen on (e.g., "127.0.0.1:8721").
	Addr string

	// ReadBufferSize is the WebSocket read buffer size.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	WriteBufferSize int
}

// DefaultConfig returns the default control server configuration.
// The server binds to loopback only; it is a local control surface, not
// a network service.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8721",
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

const (
	// eventBuffer is how many events a subscriber may fall behind before
	// it is dropped.
	eventBuffer = 16

	// eventWriteTimeout bounds each WebSocket write so a dead peer cannot
	// park a writer goroutine forever.
	eventWriteTimeout = 5 * time.Second
)

// ControlServer serves the control API over HTTP and broadcasts
// controller events to WebSocket subscribers.
//
// Each subscriber gets a buffered channel drained by its own writer
// goroutine, so Broadcast never performs network I/O and never blocks:
// it is wired as the controller's OnEvent callback, which runs on the
// capture and dispatch paths.
type ControlServer struct {
	config     *Config
	controller *session.Controller
	appConfig  *config.Config

	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]chan Event
}

// Event is one entry on the /events stream.
type Event struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// New creates a control server over the given session controller.
// appConfig is served read-only on /config.
func New(cfg *Config, controller *session.Controller, appConfig *config.Config) *ControlServer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &ControlServer{
		config:     cfg,
		controller: controller,
		appConfig:  appConfig,
		mux:        http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // loopback-only server
			},
		},
		clients: make(map[*websocket.Conn]chan Event),
	}
	s.mux.HandleFunc("/record/start", s.handleRecordStart)
	s.mux.HandleFunc("/record/stop", s.handleRecordStop)
	s.mux.HandleFunc("/vad/toggle", s.handleVADToggle)
	s.mux.HandleFunc("/vad", s.handleVADStatus)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/config", s.handleConfig)
	s.mux.HandleFunc("/events", s.handleEvents)
	return s
}

// Handler returns the HTTP handler, for use with a caller-managed
// listener (and httptest in tests). Routes are registered in New.
func (s *ControlServer) Handler() http.Handler {
	return s.mux
}

// Start starts the server.
func (s *ControlServer) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.Handler(),
	}

	log.Printf("[ControlServer] starting on %s", s.config.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop stops the server gracefully and closes all event subscribers.
func (s *ControlServer) Stop(ctx context.Context) error {
	s.clientsMu.Lock()
	for conn, ch := range s.clients {
		delete(s.clients, conn)
		close(ch)
		conn.Close()
	}
	s.clientsMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Broadcast queues one event for every connected /events subscriber.
// Wire it as the controller's OnEvent callback. The send is non-blocking:
// a subscriber whose buffer is full has stopped reading and is dropped,
// so a dead UI client can never stall capture or dispatch.
func (s *ControlServer) Broadcast(kind, detail string) {
	ev := Event{Type: kind, Detail: detail}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for conn, ch := range s.clients {
		select {
		case ch <- ev:
		default:
			log.Printf("[ControlServer] subscriber too slow, dropping")
			delete(s.clients, conn)
			close(ch)
			conn.Close()
		}
	}
}

// dropSubscriber unregisters a connection and closes its event channel,
// ending the writer goroutine. Safe to call more than once per conn.
func (s *ControlServer) dropSubscriber(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if ch, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		close(ch)
	}
	s.clientsMu.Unlock()
	conn.Close()
}

// SubscriberCount returns the number of connected /events clients.
func (s *ControlServer) SubscriberCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func (s *ControlServer) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.controller.BeginRecording(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recording": true})
}

func (s *ControlServer) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	text, err := s.controller.EndRecording(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": text})
}

func (s *ControlServer) handleVADToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	enabled, err := s.controller.ToggleDetection()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": enabled})
}

func (s *ControlServer) handleVADStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": s.controller.DetectionEnabled()})
}

func (s *ControlServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recording": s.controller.Recording(),
		"detection": s.controller.DetectionEnabled(),
	})
}

func (s *ControlServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.appConfig)
}

// handleEvents upgrades the connection and registers it for broadcasts.
// A writer goroutine drains the subscriber's channel with a per-write
// deadline; a read loop exists only to notice disconnects.
func (s *ControlServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ControlServer] WebSocket upgrade failed: %v", err)
		return
	}

	ch := make(chan Event, eventBuffer)
	s.clientsMu.Lock()
	s.clients[conn] = ch
	s.clientsMu.Unlock()
	log.Printf("[ControlServer] event subscriber connected from %s", r.RemoteAddr)

	go func() {
		for ev := range ch {
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("[ControlServer] event write failed, dropping subscriber: %v", err)
				s.dropSubscriber(conn)
				return
			}
		}
		conn.Close()
	}()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropSubscriber(conn)
				log.Printf("[ControlServer] event subscriber disconnected")
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps controller errors to HTTP statuses: mode conflicts are
// 409, everything else (recognition failures and the like) is 502.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, session.ErrDetectionActive),
		errors.Is(err, session.ErrRecordingActive),
		errors.Is(err, session.ErrNotRecording):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
