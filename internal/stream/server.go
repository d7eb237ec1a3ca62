package stream

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server owns the Hub and mounts its WebSocket/metrics routes on a mux
// router.
type Server struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewServer builds a Server with a fresh Hub.
func NewServer(logger zerolog.Logger) *Server {
	return &Server{
		hub:    NewHub(logger),
		logger: logger.With().Str("component", "websocket_server").Logger(),
	}
}

// Start begins the hub's run loop.
func (s *Server) Start() {
	s.hub.Start()
	s.logger.Info().Msg("websocket server started")
}

// Stop shuts the hub down.
func (s *Server) Stop() {
	s.hub.Stop()
	s.logger.Info().Msg("websocket server stopped")
}

// RegisterRoutes mounts the WebSocket upgrade endpoint and a hub metrics
// endpoint onto router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/analysis", s.handleWebSocket).Methods("GET")
	router.HandleFunc("/api/v1/stream/metrics", s.handleMetrics).Methods("GET")
	s.logger.Info().Msg("websocket routes registered")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With().Str("remote_addr", r.RemoteAddr).Logger()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	client := NewClient(conn, s.hub, logger)
	s.hub.RegisterClient(client)
	client.Start(s.hub.ctx)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	clients, messages, subs := s.hub.GetMetrics()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"clients": %d, "messages_sent": %d, "active_subscriptions": %d, "status": "healthy"}`,
		clients, messages, subs)
}

// GetHub exposes the underlying Hub, e.g. for a pipeline to call
// BroadcastResult after each completed analysis.
func (s *Server) GetHub() *Hub {
	return s.hub
}
