// Package evidence reads the append-only kill log owned by the activity
// collaborator. Only the most recent entry per boss matters for resolution.
package evidence

import (
	"context"
	"errors"

	"github.com/mwatts14/respawn/internal/models"
)

// ErrNoEvidence is returned when the kill log has no entry for the boss.
var ErrNoEvidence = errors.New("no kill evidence")

// Source answers "most recent kill for boss X". Lookups are keyed by the
// canonical boss name; implementations must apply the same name folding the
// catalog does so that suffixed log variants collapse to one boss.
type Source interface {
	LatestKill(ctx context.Context, bossName string) (*models.KillLogEntry, error)
}
