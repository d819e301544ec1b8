package gateway

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errSinkClosed     = errors.New("sink closed")
)

// ConnectionConfig holds tuning for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// wsSink delivers frames through a buffered send channel drained by a write
// pump. A full buffer means the consumer is too slow and counts as a failed
// write, which evicts the connection.
//
// The send channel is never closed. Broadcasts write to sinks from a
// registry snapshot taken outside the lock, so a write can land after the
// connection was evicted. Close signals through done instead, and such a
// late write fails with errSinkClosed rather than panicking.
type wsSink struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	config ConnectionConfig
	once   sync.Once
}

func newWSSink(conn *websocket.Conn, config ConnectionConfig) *wsSink {
	return &wsSink{
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		config: config,
	}
}

func (s *wsSink) WriteFrame(frame []byte) error {
	select {
	case <-s.done:
		return errSinkClosed
	default:
	}
	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return errSinkClosed
	default:
		return errSendBufferFull
	}
}

func (s *wsSink) Close() error {
	s.once.Do(func() {
		close(s.done)
	})
	return nil
}

// writePump drains the send channel onto the websocket and keeps the
// protocol-level ping alive. Runs until the sink is closed or a write fails.
func (s *wsSink) writePump() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Err(err).Msg("failed to write frame to websocket")
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler mirrors the event stream over a websocket, frame bytes
// unchanged.
type WebSocketHandler struct {
	manager  *Manager
	upgrader websocket.Upgrader
	config   ConnectionConfig
}

func NewWebSocketHandler(manager *Manager, config ConnectionConfig) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// HandleStream handles GET /ws.
func (h *WebSocketHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	sink := newWSSink(conn, h.config)
	go sink.writePump()

	connectionID, err := h.manager.Subscribe(sink)
	if err != nil {
		conn.Close()
		return
	}

	log.Info().Str("connection_id", connectionID).Str("remote", r.RemoteAddr).Msg("websocket stream opened")

	go h.readPump(conn, connectionID)
}

// readPump discards client messages and unsubscribes when the client goes
// away. The transport-level disconnect is what drives explicit unsubscribe.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, connectionID string) {
	defer func() {
		h.manager.Unsubscribe(connectionID)
		conn.Close()
	}()

	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("connection_id", connectionID).Msg("unexpected websocket close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	}
}
