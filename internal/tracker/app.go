package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mwatts14/respawn/internal/catalog"
	"github.com/mwatts14/respawn/internal/clockutil"
	"github.com/mwatts14/respawn/internal/models"
	"github.com/mwatts14/respawn/internal/tracker/evidence"
	"github.com/mwatts14/respawn/internal/tracker/store"
)

const (
	// GracePeriod keeps an elapsed spawn "current" long enough for a human
	// to confirm it. Must stay strictly wider than SoonThreshold.
	GracePeriod = 35 * time.Minute

	// SoonThreshold is the countdown window classified as SOON.
	SoonThreshold = 30 * time.Minute

	// storeTimeout bounds every timer-store write so a dead database
	// surfaces as an error instead of a hung request.
	storeTimeout = 5 * time.Second
)

// App is the timer resolution engine. It combines the immutable catalog,
// the persisted timer store, and the read-only kill evidence into resolved
// spawn state. All methods take now explicitly; nothing here reads the
// wall clock.
type App struct {
	catalog  *catalog.Catalog
	store    store.Store
	evidence evidence.Source
}

func NewApp(cat *catalog.Catalog, st store.Store, src evidence.Source) *App {
	return &App{
		catalog:  cat,
		store:    st,
		evidence: src,
	}
}

// Resolve computes the spawn state for one boss.
func (a *App) Resolve(ctx context.Context, bossName string, now time.Time) (*models.ResolvedSpawn, error) {
	def, ok := a.catalog.Lookup(bossName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoss, bossName)
	}
	return a.resolveDefinition(ctx, def, now)
}

// ResolveAll computes the spawn state for every boss in the catalog, sorted
// ascending by next spawn with unknowns last (catalog order as tiebreak).
// A failure for one boss is logged and that boss skipped; the rest of the
// batch still resolves.
func (a *App) ResolveAll(ctx context.Context, now time.Time) []models.ResolvedSpawn {
	defs := a.catalog.Bosses()
	resolved := make([]models.ResolvedSpawn, 0, len(defs))
	for _, def := range defs {
		rs, err := a.resolveDefinition(ctx, def, now)
		if err != nil {
			log.Error().Err(err).Str("boss", def.Name).Msg("failed to resolve boss, skipping")
			continue
		}
		resolved = append(resolved, *rs)
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		ni, nj := resolved[i].NextSpawnAt, resolved[j].NextSpawnAt
		switch {
		case ni == nil:
			return false
		case nj == nil:
			return true
		default:
			return ni.Before(*nj)
		}
	})
	return resolved
}

func (a *App) resolveDefinition(ctx context.Context, def models.BossDefinition, now time.Time) (*models.ResolvedSpawn, error) {
	rs := &models.ResolvedSpawn{
		BossName: def.Name,
		Kind:     def.Kind,
		Points:   def.Points,
		Status:   models.SpawnStatusUnknown,
	}

	switch def.Kind {
	case models.BossKindWeekly:
		next, ok := clockutil.NextWeeklySlot(now, a.catalog.Location, def.Slots)
		if !ok {
			return rs, nil
		}
		rs.NextSpawnAt = &next

	case models.BossKindInterval:
		if def.IntervalHours <= 0 {
			return nil, fmt.Errorf("%w: %s has %d", ErrInvalidInterval, def.Name, def.IntervalHours)
		}
		interval := time.Duration(def.IntervalHours) * time.Hour

		rec, err := a.store.Get(ctx, def.Name)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		if rec != nil && recordFresh(*rec, now) {
			next := rec.NextSpawnAt
			last := rec.LastKillAt
			by := rec.ConfirmedBy
			rs.NextSpawnAt = &next
			rs.LastKillAt = &last
			rs.ConfirmedBy = &by
		} else if err := a.inferFromEvidence(ctx, def, interval, now, rs); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("boss %s has unknown kind %q", def.Name, def.Kind)
	}

	if rs.NextSpawnAt != nil {
		remaining := rs.NextSpawnAt.Sub(now).Milliseconds()
		rs.TimeRemainingMs = &remaining
		rs.Status = classify(remaining)
	}
	return rs, nil
}

// inferFromEvidence fills rs from the most recent kill-log entry when no
// fresh timer record exists. The candidate spawn advances interval by
// interval until it is either in the future or still inside its own grace
// window.
func (a *App) inferFromEvidence(ctx context.Context, def models.BossDefinition, interval time.Duration, now time.Time, rs *models.ResolvedSpawn) error {
	entry, err := a.evidence.LatestKill(ctx, def.Name)
	if errors.Is(err, evidence.ErrNoEvidence) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	last := entry.KilledAt
	candidate := last.Add(interval)
	for !candidate.After(now) && now.After(candidate.Add(GracePeriod)) {
		candidate = candidate.Add(interval)
	}

	by := entry.ReportedBy
	rs.NextSpawnAt = &candidate
	rs.LastKillAt = &last
	rs.ConfirmedBy = &by
	rs.Inferred = true
	return nil
}

// recordFresh reports whether the record's next spawn is still inside its
// grace window at now.
func recordFresh(rec models.TimerRecord, now time.Time) bool {
	return !now.After(rec.NextSpawnAt.Add(GracePeriod))
}

func classify(remainingMs int64) models.SpawnStatus {
	switch {
	case remainingMs <= 0:
		return models.SpawnStatusDue
	case remainingMs <= SoonThreshold.Milliseconds():
		return models.SpawnStatusSoon
	default:
		return models.SpawnStatusReady
	}
}

// ConfirmRequest carries one confirm command. KilledAt and NextSpawnAt are
// exclusive: KilledAt (defaulting to now) derives the next spawn from the
// boss's interval, NextSpawnAt sets it directly as a manual correction.
type ConfirmRequest struct {
	BossName    string
	ConfirmedBy string
	KilledAt    *time.Time
	NextSpawnAt *time.Time
}

// Confirm upserts the timer record for an interval boss. Later confirms
// replace earlier ones; there is no history.
func (a *App) Confirm(ctx context.Context, req ConfirmRequest, now time.Time) (*models.TimerRecord, error) {
	def, ok := a.catalog.Lookup(req.BossName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoss, req.BossName)
	}
	if def.Kind != models.BossKindInterval {
		return nil, fmt.Errorf("%w: %s", ErrNotIntervalBoss, def.Name)
	}
	if req.KilledAt != nil && req.NextSpawnAt != nil {
		return nil, ErrAmbiguousConfirm
	}

	confirmedBy := req.ConfirmedBy
	if confirmedBy == "" {
		confirmedBy = "Unknown"
	}
	interval := time.Duration(def.IntervalHours) * time.Hour

	rec := models.TimerRecord{
		BossName:    def.Name,
		ConfirmedBy: confirmedBy,
		UpdatedAt:   now,
	}
	if req.NextSpawnAt != nil {
		rec.NextSpawnAt = req.NextSpawnAt.UTC()
		rec.LastKillAt = rec.NextSpawnAt.Add(-interval)
	} else {
		killedAt := now
		if req.KilledAt != nil {
			killedAt = *req.KilledAt
		}
		rec.LastKillAt = killedAt.UTC()
		rec.NextSpawnAt = rec.LastKillAt.Add(interval)
	}

	writeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := a.store.Upsert(writeCtx, rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return &rec, nil
}

// RemoveTimer deletes the boss's timer record outright, so the next resolve
// falls back to kill-log inference. Removing an absent record is not an
// error; the return reports whether a record existed.
func (a *App) RemoveTimer(ctx context.Context, bossName string) (bool, error) {
	def, ok := a.catalog.Lookup(bossName)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownBoss, bossName)
	}

	writeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	removed, err := a.store.Delete(writeCtx, def.Name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return removed, nil
}
