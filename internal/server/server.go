package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Server represents the WebSocket server
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	dir      *Directory
	router   *Router
	logger   *log.Logger

	mu          sync.Mutex
	connections map[*Connection]struct{}
	http        *http.Server
}

// NewServer creates a new WebSocket server
func NewServer(addr string, dir *Directory, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The game is served to browsers from anywhere
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		dir:         dir,
		router:      NewRouter(dir, logger),
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]struct{}),
	}
}

// Handler returns the HTTP routes: /ws, /health and /stats.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.http
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", l.Addr().String())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Listen opens the configured address. Pass the listener to Serve.
func (s *Server) Listen() (net.Listener, error) {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return l, nil
}

// Shutdown stops accepting requests, closes every connection and stops all
// room timers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	for _, c := range conns {
		_ = c.Close() // Ignore close errors during shutdown
	}
	s.dir.Reset()
	return err
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.router, s.logger)
	s.mu.Lock()
	s.connections[client] = struct{}{}
	s.mu.Unlock()

	s.dir.Connect(client)
	client.Start()

	go func() {
		<-client.Done()
		s.mu.Lock()
		delete(s.connections, client)
		s.mu.Unlock()
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.dir.Stats()); err != nil {
		s.logger.Debug("Failed to write stats", "error", err)
	}
}
