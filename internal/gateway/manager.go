package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mwatts14/respawn/internal/events"
)

// errConnectionClosed signals a heartbeat tick that lost the race with
// unsubscribe. Benign: the loop just exits.
var errConnectionClosed = errors.New("connection closed")

// Sink is the per-connection write handle. WriteFrame must be safe to call
// from the broadcast path and the connection's heartbeat goroutine
// concurrently. Any returned error evicts the connection.
type Sink interface {
	WriteFrame(frame []byte) error
	Close() error
}

type connection struct {
	id   string
	sink Sink
	stop chan struct{}
}

// ManagerConfig holds tuning for the fan-out channel.
type ManagerConfig struct {
	HeartbeatInterval time.Duration
	Clock             clockwork.Clock
}

// DefaultManagerConfig returns the production configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		HeartbeatInterval: 30 * time.Second,
		Clock:             clockwork.NewRealClock(),
	}
}

// Manager owns the in-process connection registry and the broadcast
// primitive. It has no cross-process visibility and keeps no backlog:
// a subscriber never sees events that fired before it connected.
type Manager struct {
	mu    sync.RWMutex
	conns map[string]*connection

	config   ManagerConfig
	nextID   atomic.Uint64
	stopOnce sync.Once
	done     chan struct{}
}

// NewManager creates a fan-out manager.
func NewManager(config ManagerConfig) *Manager {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	return &Manager{
		conns:  make(map[string]*connection),
		config: config,
		done:   make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled, then stops the manager.
func (m *Manager) Start(ctx context.Context) {
	log.Info().Msg("fan-out manager started")
	<-ctx.Done()
	m.Stop()
}

// Stop evicts every connection and stops all heartbeats.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		conns := make([]*connection, 0, len(m.conns))
		for _, conn := range m.conns {
			conns = append(conns, conn)
		}
		m.conns = make(map[string]*connection)
		m.mu.Unlock()

		for _, conn := range conns {
			close(conn.stop)
			conn.sink.Close()
		}
		log.Info().Int("connections", len(conns)).Msg("fan-out manager stopped")
	})
}

// Subscribe registers a sink, immediately sends it a connected frame and one
// heartbeat frame, and starts its periodic heartbeat. Returns the connection
// id used for Unsubscribe.
func (m *Manager) Subscribe(sink Sink) (string, error) {
	conn := &connection{
		id:   uuid.New().String(),
		sink: sink,
		stop: make(chan struct{}),
	}

	m.mu.Lock()
	m.conns[conn.id] = conn
	total := len(m.conns)
	m.mu.Unlock()

	log.Debug().Str("connection_id", conn.id).Int("total_connections", total).Msg("connection registered")

	if err := m.writeTo(conn.id, events.TypeConnected, events.ConnectedPayload{ConnectionID: conn.id}); err != nil {
		return "", err
	}
	if err := m.writeTo(conn.id, events.TypeHeartbeat, nil); err != nil {
		return "", err
	}

	go m.heartbeatLoop(conn)
	return conn.id, nil
}

// Unsubscribe cancels the connection's heartbeat and removes it from the
// registry. Unknown ids are ignored.
func (m *Manager) Unsubscribe(connectionID string) {
	if m.remove(connectionID) {
		log.Debug().Str("connection_id", connectionID).Msg("connection unregistered")
	}
}

// Broadcast writes one frame to every registered connection independently.
// A failing sink evicts only its own connection; delivery to the others is
// unaffected.
func (m *Manager) Broadcast(eventType string, payload any) {
	frame := Frame{
		ID:        m.nextID.Add(1),
		Type:      eventType,
		Payload:   payload,
		Timestamp: m.config.Clock.Now().UTC(),
	}
	encoded, err := frame.Encode()
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to encode broadcast frame")
		return
	}

	m.mu.RLock()
	targets := make([]*connection, 0, len(m.conns))
	for _, conn := range m.conns {
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.sink.WriteFrame(encoded); err != nil {
			m.evict(conn.id, err)
		}
	}

	log.Debug().
		Str("event_type", eventType).
		Uint64("frame_id", frame.ID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// ConnectionCount reports the number of registered connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Stats returns statistics about the fan-out channel.
func (m *Manager) Stats() map[string]any {
	return map[string]any{
		"total_connections": m.ConnectionCount(),
		"last_frame_id":     m.nextID.Load(),
	}
}

func (m *Manager) heartbeatLoop(conn *connection) {
	ticker := m.config.Clock.NewTicker(m.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.stop:
			return
		case <-m.done:
			return
		case <-ticker.Chan():
			if err := m.writeTo(conn.id, events.TypeHeartbeat, nil); err != nil {
				return
			}
		}
	}
}

// writeTo sends one frame to a single connection, consuming an id from the
// same monotonic counter broadcasts use. A write failure evicts the
// connection.
func (m *Manager) writeTo(connectionID string, eventType string, payload any) error {
	m.mu.RLock()
	conn, ok := m.conns[connectionID]
	m.mu.RUnlock()
	if !ok {
		return errConnectionClosed
	}

	frame := Frame{
		ID:        m.nextID.Add(1),
		Type:      eventType,
		Payload:   payload,
		Timestamp: m.config.Clock.Now().UTC(),
	}
	encoded, err := frame.Encode()
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to encode frame")
		return err
	}
	if err := conn.sink.WriteFrame(encoded); err != nil {
		m.evict(connectionID, err)
		return err
	}
	return nil
}

// evict removes a connection after a failed write. Sink errors never
// propagate to broadcast callers.
func (m *Manager) evict(connectionID string, cause error) {
	if m.remove(connectionID) {
		log.Warn().Err(cause).Str("connection_id", connectionID).Msg("evicted connection after write failure")
	}
}

// remove deletes the connection, stops its heartbeat, and closes its sink.
// Returns false when the connection was already gone.
func (m *Manager) remove(connectionID string) bool {
	m.mu.Lock()
	conn, ok := m.conns[connectionID]
	if ok {
		delete(m.conns, connectionID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	close(conn.stop)
	conn.sink.Close()
	return true
}
