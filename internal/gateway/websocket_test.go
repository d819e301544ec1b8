package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwatts14/respawn/internal/events"
)

func TestWebSocketHandler_StreamsFrames(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()
	handler := NewWebSocketHandler(m, DefaultConnectionConfig())

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleStream))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "event: connected\n")

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "event: heartbeat\n")

	require.Eventually(t, func() bool {
		return m.ConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	m.Broadcast(events.TypeBossKilled, events.BossKilledPayload{BossName: "Kraken"})

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "event: boss-killed\n")
	assert.Contains(t, string(msg), `"boss_name":"Kraken"`)

	// Closing the client unregisters the connection via the read pump.
	conn.Close()
	require.Eventually(t, func() bool {
		return m.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSSink_WriteAfterCloseFails(t *testing.T) {
	sink := newWSSink(nil, DefaultConnectionConfig())

	require.NoError(t, sink.WriteFrame([]byte("id: 1\nevent: connected\n\n")))
	require.NoError(t, sink.Close())

	err := sink.WriteFrame([]byte("id: 2\nevent: heartbeat\n\n"))
	assert.ErrorIs(t, err, errSinkClosed)

	// Close is idempotent.
	require.NoError(t, sink.Close())
}

// A broadcast snapshots the registry before writing, so a connection can be
// evicted between the snapshot and the write. That late write must fail
// cleanly instead of bringing the process down.
func TestWSSink_LateWriteAfterEviction(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()

	sink := newWSSink(nil, DefaultConnectionConfig())
	id, err := m.Subscribe(sink)
	require.NoError(t, err)

	m.Unsubscribe(id)
	require.Equal(t, 0, m.ConnectionCount())

	frame := Frame{ID: 99, Type: events.TypeBossUpdated, Timestamp: time.Now().UTC()}
	encoded, err := frame.Encode()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, sink.WriteFrame(encoded), errSinkClosed)
	})
}
