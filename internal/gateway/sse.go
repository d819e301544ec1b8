package gateway

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// sseSink writes frames straight onto a streaming HTTP response. The frame
// format doubles as server-sent events, so plain EventSource clients work
// unmodified.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write stream frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Close() error {
	return nil
}

// StreamHandler serves the persistent text stream over HTTP.
type StreamHandler struct {
	manager *Manager
}

func NewStreamHandler(manager *Manager) *StreamHandler {
	return &StreamHandler{manager: manager}
}

// HandleStream handles GET /api/events. It blocks until the client
// disconnects. Clients must fetch current spawn state separately after
// connecting; the stream carries no backlog.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	connectionID, err := h.manager.Subscribe(&sseSink{w: w, flusher: flusher})
	if err != nil {
		log.Error().Err(err).Msg("failed to subscribe event stream")
		return
	}

	log.Info().Str("connection_id", connectionID).Str("remote", r.RemoteAddr).Msg("event stream opened")

	<-r.Context().Done()
	h.manager.Unsubscribe(connectionID)

	log.Info().Str("connection_id", connectionID).Msg("event stream closed")
}
