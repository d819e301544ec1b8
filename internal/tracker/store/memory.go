package store

import (
	"context"
	"sync"

	"github.com/mwatts14/respawn/internal/catalog"
	"github.com/mwatts14/respawn/internal/models"
)

// MemoryStore is a map-backed Store used by tests and database-less
// deployments. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]models.TimerRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]models.TimerRecord)}
}

func (s *MemoryStore) Get(ctx context.Context, bossName string) (*models.TimerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byKey[catalog.CanonicalName(bossName)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, record models.TimerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byKey[catalog.CanonicalName(record.BossName)] = record
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, bossName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := catalog.CanonicalName(bossName)
	_, existed := s.byKey[key]
	delete(s.byKey, key)
	return existed, nil
}
