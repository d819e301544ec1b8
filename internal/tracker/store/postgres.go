package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwatts14/respawn/internal/catalog"
	"github.com/mwatts14/respawn/internal/models"
)

// PostgresStore keeps one spawn_timers row per boss, keyed by the canonical
// boss name.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, bossName string) (*models.TimerRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT boss_name, last_kill_at, next_spawn_at, confirmed_by, updated_at
		FROM spawn_timers
		WHERE boss_key = $1
	`, catalog.CanonicalName(bossName))

	var rec models.TimerRecord
	err := row.Scan(&rec.BossName, &rec.LastKillAt, &rec.NextSpawnAt, &rec.ConfirmedBy, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timer record: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, record models.TimerRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO spawn_timers (
			boss_key, boss_name, last_kill_at, next_spawn_at, confirmed_by, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (boss_key) DO UPDATE SET
			boss_name     = EXCLUDED.boss_name,
			last_kill_at  = EXCLUDED.last_kill_at,
			next_spawn_at = EXCLUDED.next_spawn_at,
			confirmed_by  = EXCLUDED.confirmed_by,
			updated_at    = EXCLUDED.updated_at
	`,
		catalog.CanonicalName(record.BossName),
		record.BossName,
		record.LastKillAt,
		record.NextSpawnAt,
		record.ConfirmedBy,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert timer record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, bossName string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM spawn_timers WHERE boss_key = $1
	`, catalog.CanonicalName(bossName))
	if err != nil {
		return false, fmt.Errorf("failed to delete timer record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
