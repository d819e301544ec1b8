package models

import (
	"time"
)

// BossKind defines how a boss's next spawn is derived.
type BossKind string

const (
	// BossKindInterval bosses respawn a fixed number of hours after the last
	// confirmed kill.
	BossKindInterval BossKind = "INTERVAL"
	// BossKindWeekly bosses spawn at fixed weekday/time-of-day slots and do
	// not depend on kill confirmations.
	BossKindWeekly BossKind = "WEEKLY"
)

// SpawnStatus classifies how close a boss is to its next spawn.
type SpawnStatus string

const (
	SpawnStatusUnknown SpawnStatus = "UNKNOWN"
	SpawnStatusReady   SpawnStatus = "READY"
	SpawnStatusSoon    SpawnStatus = "SOON"
	SpawnStatusDue     SpawnStatus = "DUE"
)

// WeeklySlot is one fixed spawn slot in the reporting timezone.
// Weekday follows time.Weekday numbering (Sunday = 0).
type WeeklySlot struct {
	Weekday time.Weekday `json:"weekday"`
	Hour    int          `json:"hour"`
	Minute  int          `json:"minute"`
}

// BossDefinition is the immutable catalog entry for a tracked boss.
type BossDefinition struct {
	Name          string       `json:"name"`
	Kind          BossKind     `json:"kind"`
	IntervalHours int          `json:"interval_hours,omitempty"`
	Slots         []WeeklySlot `json:"slots,omitempty"`
	Points        int          `json:"points"`
}

// TimerRecord is the persisted last/next spawn pair for an interval boss.
// NextSpawnAt is either LastKillAt plus the boss's interval, or an explicit
// override set by a manual correction.
type TimerRecord struct {
	BossName    string    `json:"boss_name"`
	LastKillAt  time.Time `json:"last_kill_at"`
	NextSpawnAt time.Time `json:"next_spawn_at"`
	ConfirmedBy string    `json:"confirmed_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KillLogEntry is one append-only activity record. Entries may carry name
// variants ("Kraken #2") that canonicalize to the same boss.
type KillLogEntry struct {
	BossName   string    `json:"boss_name"`
	KilledAt   time.Time `json:"killed_at"`
	ReportedBy string    `json:"reported_by"`
}

// ResolvedSpawn is the computed countdown view for one boss. It is built
// fresh on every read and never cached.
type ResolvedSpawn struct {
	BossName        string      `json:"boss_name"`
	Kind            BossKind    `json:"kind"`
	NextSpawnAt     *time.Time  `json:"next_spawn_at,omitempty"`
	LastKillAt      *time.Time  `json:"last_kill_at,omitempty"`
	ConfirmedBy     *string     `json:"confirmed_by,omitempty"`
	TimeRemainingMs *int64      `json:"time_remaining_ms,omitempty"`
	Status          SpawnStatus `json:"status"`
	Inferred        bool        `json:"inferred"`
	Points          int         `json:"points"`
}
