// Package store persists spawn timer records keyed by boss name.
package store

import (
	"context"
	"errors"

	"github.com/mwatts14/respawn/internal/models"
)

// ErrNotFound is returned by Get when no record exists for the boss.
var ErrNotFound = errors.New("timer record not found")

// Store is the durable spawn-timer store. Upsert must be atomic per boss
// name so that concurrent confirms for the same boss serialize with
// last-committed-wins. Delete is idempotent and reports whether a record
// existed.
type Store interface {
	Get(ctx context.Context, bossName string) (*models.TimerRecord, error)
	Upsert(ctx context.Context, record models.TimerRecord) error
	Delete(ctx context.Context, bossName string) (bool, error)
}
