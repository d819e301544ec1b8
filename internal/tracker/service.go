package tracker

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mwatts14/respawn/internal/events"
)

// Broadcaster pushes an event to every connected viewer. Broadcast failures
// are contained by the implementation and never reach command handlers.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Authorizer is the external authorization collaborator. The service trusts
// its booleans verbatim.
type Authorizer interface {
	CanConfirm(r *http.Request) bool
	CanRemove(r *http.Request) bool
}

// AllowAll authorizes every caller for every command.
type AllowAll struct{}

func (AllowAll) CanConfirm(*http.Request) bool { return true }
func (AllowAll) CanRemove(*http.Request) bool  { return true }

// Service exposes the resolution engine over HTTP and triggers a broadcast
// after every completed write command.
type Service struct {
	app         *App
	clock       clockwork.Clock
	broadcaster Broadcaster
	authorizer  Authorizer
}

func NewService(app *App, clock clockwork.Clock, broadcaster Broadcaster, authorizer Authorizer) *Service {
	if authorizer == nil {
		authorizer = AllowAll{}
	}
	return &Service{
		app:         app,
		clock:       clock,
		broadcaster: broadcaster,
		authorizer:  authorizer,
	}
}

// RegisterRoutes registers the boss API routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/bosses", s.handleList)
	mux.HandleFunc("/api/bosses/", s.handleBoss)
	log.Info().Msg("tracker routes registered")
}

// handleList handles GET /api/bosses.
func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	now := s.clock.Now().UTC()
	resolved := s.app.ResolveAll(r.Context(), now)
	writeJSON(w, http.StatusOK, map[string]any{
		"server_time": now,
		"bosses":      resolved,
	})
}

// handleBoss dispatches /api/bosses/{name}, /api/bosses/{name}/confirm and
// /api/bosses/{name}/timer.
func (s *Service) handleBoss(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/bosses/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleGet(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "confirm":
		s.handleConfirm(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "timer":
		s.handleRemoveTimer(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request, bossName string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resolved, err := s.app.Resolve(r.Context(), bossName, s.clock.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

type confirmBody struct {
	ConfirmedBy string     `json:"confirmed_by"`
	KilledAt    *time.Time `json:"killed_at"`
	NextSpawnAt *time.Time `json:"next_spawn_at"`
}

func (s *Service) handleConfirm(w http.ResponseWriter, r *http.Request, bossName string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorizer.CanConfirm(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not allowed"})
		return
	}

	var body confirmBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	rec, err := s.app.Confirm(r.Context(), ConfirmRequest{
		BossName:    bossName,
		ConfirmedBy: body.ConfirmedBy,
		KilledAt:    body.KilledAt,
		NextSpawnAt: body.NextSpawnAt,
	}, s.clock.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if body.NextSpawnAt != nil {
		s.broadcaster.Broadcast(events.TypeBossUpdated, events.BossUpdatedPayload{
			BossName:    rec.BossName,
			NextSpawnAt: rec.NextSpawnAt,
			ConfirmedBy: rec.ConfirmedBy,
		})
	} else {
		s.broadcaster.Broadcast(events.TypeBossKilled, events.BossKilledPayload{
			BossName:    rec.BossName,
			KilledAt:    rec.LastKillAt,
			NextSpawnAt: rec.NextSpawnAt,
			ConfirmedBy: rec.ConfirmedBy,
		})
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) handleRemoveTimer(w http.ResponseWriter, r *http.Request, bossName string) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorizer.CanRemove(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not allowed"})
		return
	}

	removed, err := s.app.RemoveTimer(r.Context(), bossName)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if removed {
		s.broadcaster.Broadcast(events.TypeTimerRemoved, events.TimerRemovedPayload{
			BossName:  bossName,
			RemovedAt: s.clock.Now().UTC(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"boss_name": bossName,
		"removed":   removed,
	})
}

// writeError maps engine errors to responses. Store failures are logged
// with their cause and answered with a generic message.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownBoss):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown boss"})
	case errors.Is(err, ErrNotIntervalBoss):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "boss does not use an interval timer"})
	case errors.Is(err, ErrAmbiguousConfirm):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrAmbiguousConfirm.Error()})
	default:
		log.Error().Err(err).Msg("boss command failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
