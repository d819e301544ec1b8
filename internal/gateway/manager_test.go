package gateway

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwatts14/respawn/internal/events"
)

// testSink records frames and can be flipped to fail every write.
type testSink struct {
	mu      sync.Mutex
	frames  []string
	failing bool
	closed  bool
	wrote   chan struct{}
}

func newTestSink() *testSink {
	return &testSink{wrote: make(chan struct{}, 64)}
}

func (s *testSink) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("broken pipe")
	}
	s.frames = append(s.frames, string(frame))
	select {
	case s.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (s *testSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *testSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *testSink) frame(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

func (s *testSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newFakeClockManager() (*Manager, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	m := NewManager(ManagerConfig{HeartbeatInterval: 30 * time.Second, Clock: clock})
	return m, clock
}

func waitForWrite(t *testing.T, sink *testSink) {
	t.Helper()
	select {
	case <-sink.wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame write")
	}
}

func TestSubscribe_SendsConnectedThenHeartbeat(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()

	sink := newTestSink()
	id, err := m.Subscribe(sink)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Equal(t, 2, sink.frameCount())
	assert.True(t, strings.HasPrefix(sink.frame(0), "id: 1\nevent: connected\n"))
	assert.Contains(t, sink.frame(0), id)
	assert.True(t, strings.HasPrefix(sink.frame(1), "id: 2\nevent: heartbeat\n"))
	assert.Equal(t, 1, m.ConnectionCount())
}

func TestSubscribe_FailingSinkNeverRegisters(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()

	sink := newTestSink()
	sink.failing = true

	_, err := m.Subscribe(sink)
	require.Error(t, err)
	assert.Equal(t, 0, m.ConnectionCount())
	assert.True(t, sink.isClosed())
}

func TestBroadcast_DeliversToAllConnections(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()

	first := newTestSink()
	second := newTestSink()
	_, err := m.Subscribe(first)
	require.NoError(t, err)
	_, err = m.Subscribe(second)
	require.NoError(t, err)

	m.Broadcast(events.TypeBossKilled, events.BossKilledPayload{BossName: "Kraken"})

	require.Equal(t, 3, first.frameCount())
	require.Equal(t, 3, second.frameCount())
	assert.Contains(t, first.frame(2), "event: boss-killed\n")
	// Same frame bytes delivered to every connection
	assert.Equal(t, first.frame(2), second.frame(2))
}

func TestBroadcast_FailureIsolation(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()

	first := newTestSink()
	second := newTestSink()
	third := newTestSink()
	for _, sink := range []*testSink{first, second, third} {
		_, err := m.Subscribe(sink)
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.ConnectionCount())

	second.mu.Lock()
	second.failing = true
	second.mu.Unlock()

	m.Broadcast(events.TypeBossKilled, events.BossKilledPayload{BossName: "Kraken"})

	// First and third still got the frame; the failing connection is gone.
	assert.Equal(t, 3, first.frameCount())
	assert.Equal(t, 3, third.frameCount())
	assert.Equal(t, 2, m.ConnectionCount())
	assert.True(t, second.isClosed())

	// Later broadcasts no longer touch the evicted sink.
	m.Broadcast(events.TypeBossUpdated, events.BossUpdatedPayload{BossName: "Kraken"})
	assert.Equal(t, 4, first.frameCount())
	assert.Equal(t, 2, second.frameCount())
}

func TestBroadcast_MonotonicFrameIDs(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()

	sink := newTestSink()
	_, err := m.Subscribe(sink)
	require.NoError(t, err)

	m.Broadcast(events.TypeBossKilled, nil)
	m.Broadcast(events.TypeBossUpdated, nil)

	require.Equal(t, 4, sink.frameCount())
	assert.True(t, strings.HasPrefix(sink.frame(2), "id: 3\n"))
	assert.True(t, strings.HasPrefix(sink.frame(3), "id: 4\n"))
}

func TestHeartbeat_PeriodicTicks(t *testing.T) {
	m, clock := newFakeClockManager()
	defer m.Stop()

	sink := newTestSink()
	_, err := m.Subscribe(sink)
	require.NoError(t, err)
	require.Equal(t, 2, sink.frameCount())

	// Drain the notifications from the two subscribe-time writes so the
	// waitForWrite calls below observe the heartbeat writes, not stale tokens.
	for len(sink.wrote) > 0 {
		<-sink.wrote
	}

	// Wait for the heartbeat goroutine to arm its ticker, then tick twice.
	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)
	waitForWrite(t, sink)
	clock.Advance(30 * time.Second)
	waitForWrite(t, sink)

	require.Equal(t, 4, sink.frameCount())
	assert.Contains(t, sink.frame(2), "event: heartbeat\n")
	assert.Contains(t, sink.frame(3), "event: heartbeat\n")
}

func TestUnsubscribe_StopsHeartbeat(t *testing.T) {
	m, clock := newFakeClockManager()
	defer m.Stop()

	sink := newTestSink()
	id, err := m.Subscribe(sink)
	require.NoError(t, err)
	clock.BlockUntil(1)

	m.Unsubscribe(id)
	assert.Equal(t, 0, m.ConnectionCount())
	assert.True(t, sink.isClosed())

	clock.Advance(90 * time.Second)
	// Give a late tick every chance to land before asserting it did not.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, sink.frameCount())
}

func TestHeartbeatWriteFailure_EvictsConnection(t *testing.T) {
	m, clock := newFakeClockManager()
	defer m.Stop()

	sink := newTestSink()
	_, err := m.Subscribe(sink)
	require.NoError(t, err)
	clock.BlockUntil(1)

	sink.mu.Lock()
	sink.failing = true
	sink.mu.Unlock()

	clock.Advance(30 * time.Second)

	require.Eventually(t, func() bool {
		return m.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, sink.isClosed())
}

func TestStop_EvictsEverything(t *testing.T) {
	m, _ := newFakeClockManager()

	first := newTestSink()
	second := newTestSink()
	_, err := m.Subscribe(first)
	require.NoError(t, err)
	_, err = m.Subscribe(second)
	require.NoError(t, err)

	m.Stop()
	assert.Equal(t, 0, m.ConnectionCount())
	assert.True(t, first.isClosed())
	assert.True(t, second.isClosed())

	// Broadcast after stop reaches nobody.
	m.Broadcast(events.TypeBossKilled, nil)
	assert.Equal(t, 2, first.frameCount())
}

func TestStats(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()

	sink := newTestSink()
	_, err := m.Subscribe(sink)
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 1, stats["total_connections"])
	assert.Equal(t, uint64(2), stats["last_frame_id"])
}

func TestWSSink_FullBufferFailsWrite(t *testing.T) {
	sink := newWSSink(nil, DefaultConnectionConfig())

	frame := []byte("id: 1\nevent: heartbeat\ndata: {}\n\n")
	for i := 0; i < 256; i++ {
		require.NoError(t, sink.WriteFrame(frame))
	}
	assert.ErrorIs(t, sink.WriteFrame(frame), errSendBufferFull)
}

func TestStreamHandler_ServesEventStream(t *testing.T) {
	m, _ := newFakeClockManager()
	defer m.Stop()
	handler := NewStreamHandler(m)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", handler.HandleStream)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	connected := readFrame(t, reader)
	assert.True(t, strings.HasPrefix(connected, "id: 1\nevent: connected\n"))
	heartbeat := readFrame(t, reader)
	assert.True(t, strings.HasPrefix(heartbeat, "id: 2\nevent: heartbeat\n"))

	m.Broadcast(events.TypeBossKilled, events.BossKilledPayload{BossName: "Kraken"})
	killed := readFrame(t, reader)
	assert.Contains(t, killed, "event: boss-killed\n")
	assert.Contains(t, killed, `"boss_name":"Kraken"`)

	// Dropping the client eventually unregisters the connection.
	cancel()
	require.Eventually(t, func() bool {
		return m.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// readFrame reads one frame (terminated by a blank line) off the stream.
func readFrame(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		sb.WriteString(line)
		if line == "\n" {
			return sb.String()
		}
	}
}
