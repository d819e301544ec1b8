package evidence

import (
	"context"
	"sync"

	"github.com/mwatts14/respawn/internal/catalog"
	"github.com/mwatts14/respawn/internal/models"
)

// MemorySource is an append-only in-memory kill log. Safe for concurrent use.
type MemorySource struct {
	mu      sync.RWMutex
	entries []models.KillLogEntry
}

func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// Append records one kill entry.
func (s *MemorySource) Append(entry models.KillLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *MemorySource) LatestKill(ctx context.Context, bossName string) (*models.KillLogEntry, error) {
	key := catalog.CanonicalName(bossName)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.KillLogEntry
	for i := range s.entries {
		entry := s.entries[i]
		if catalog.CanonicalName(entry.BossName) != key {
			continue
		}
		if latest == nil || entry.KilledAt.After(latest.KilledAt) {
			latest = &entry
		}
	}
	if latest == nil {
		return nil, ErrNoEvidence
	}
	out := *latest
	return &out, nil
}
