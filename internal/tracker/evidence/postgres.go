package evidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwatts14/respawn/internal/catalog"
	"github.com/mwatts14/respawn/internal/models"
)

// PostgresSource queries the shared kill_log table. The regexp_replace in
// the WHERE clause mirrors catalog.CanonicalName so that "Kraken #2" rows
// match the catalog boss "Kraken".
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) LatestKill(ctx context.Context, bossName string) (*models.KillLogEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT boss_name, killed_at, reported_by
		FROM kill_log
		WHERE lower(trim(regexp_replace(boss_name, '\s*#\d+\s*$', ''))) = $1
		ORDER BY killed_at DESC
		LIMIT 1
	`, catalog.CanonicalName(bossName))

	var entry models.KillLogEntry
	err := row.Scan(&entry.BossName, &entry.KilledAt, &entry.ReportedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoEvidence
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query kill log: %w", err)
	}
	return &entry, nil
}
