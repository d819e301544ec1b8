package events

import (
	"time"
)

// Event type labels carried on the live stream. These are part of the wire
// contract consumed by existing clients.
const (
	TypeConnected       = "connected"
	TypeHeartbeat       = "heartbeat"
	TypeBossKilled      = "boss-killed"
	TypeBossUpdated     = "boss-updated"
	TypeTimerRemoved    = "timer-removed"
	TypeRotationChanged = "rotation-changed"
)

// Payload types shared between the tracker and gateway packages

// ConnectedPayload is sent once when a stream opens. Heartbeat frames carry
// no payload; the frame envelope's timestamp is the heartbeat.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// BossKilledPayload is the payload for a boss-killed event.
type BossKilledPayload struct {
	BossName    string    `json:"boss_name"`
	KilledAt    time.Time `json:"killed_at"`
	NextSpawnAt time.Time `json:"next_spawn_at"`
	ConfirmedBy string    `json:"confirmed_by"`
}

// BossUpdatedPayload is the payload for a boss-updated event (manual
// next-spawn correction).
type BossUpdatedPayload struct {
	BossName    string    `json:"boss_name"`
	NextSpawnAt time.Time `json:"next_spawn_at"`
	ConfirmedBy string    `json:"confirmed_by"`
}

// TimerRemovedPayload is the payload for a timer-removed event.
type TimerRemovedPayload struct {
	BossName  string    `json:"boss_name"`
	RemovedAt time.Time `json:"removed_at"`
}
