// Package gateway is the live event fan-out channel: a process-local
// registry of open viewer streams plus the broadcast primitive that pushes
// spawn changes to all of them.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service bundles the fan-out manager with its two stream transports.
type Service struct {
	manager       *Manager
	streamHandler *StreamHandler
	wsHandler     *WebSocketHandler
}

// Config holds configuration for the gateway service.
type Config struct {
	Manager    ManagerConfig
	Connection ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway.
func DefaultConfig() Config {
	return Config{
		Manager:    DefaultManagerConfig(),
		Connection: DefaultConnectionConfig(),
	}
}

// NewService creates the gateway service.
func NewService(config Config) *Service {
	manager := NewManager(config.Manager)
	return &Service{
		manager:       manager,
		streamHandler: NewStreamHandler(manager),
		wsHandler:     NewWebSocketHandler(manager, config.Connection),
	}
}

// Manager exposes the broadcast primitive for components that complete
// write commands.
func (s *Service) Manager() *Manager {
	return s.manager
}

// Start blocks until ctx is cancelled, then shuts the channel down.
func (s *Service) Start(ctx context.Context) {
	s.manager.Start(ctx)
}

// Stop evicts all connections.
func (s *Service) Stop() {
	s.manager.Stop()
}

// RegisterRoutes registers the stream and stats endpoints.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/events", s.streamHandler.HandleStream)
	mux.HandleFunc("/ws", s.wsHandler.HandleStream)
	mux.HandleFunc("/api/stats", s.handleStats)
	log.Info().Msg("gateway routes registered")
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.manager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode stats response")
	}
}
