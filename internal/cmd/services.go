package main

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/mwatts14/respawn/internal/catalog"
	"github.com/mwatts14/respawn/internal/gateway"
	"github.com/mwatts14/respawn/internal/tracker"
	"github.com/mwatts14/respawn/internal/tracker/evidence"
	"github.com/mwatts14/respawn/internal/tracker/store"
)

// Services holds the wired application components.
type Services struct {
	Catalog *catalog.Catalog
	Tracker *tracker.Service
	Gateway *gateway.Service
}

func setupServices(cfg Config, cat *catalog.Catalog, pool *pgxpool.Pool) *Services {
	var (
		timerStore store.Store
		killSource evidence.Source
	)
	if pool != nil {
		timerStore = store.NewPostgresStore(pool)
		killSource = evidence.NewPostgresSource(pool)
	} else {
		timerStore = store.NewMemoryStore()
		killSource = evidence.NewMemorySource()
	}

	gatewayService := gateway.NewService(gateway.DefaultConfig())

	app := tracker.NewApp(cat, timerStore, killSource)
	trackerService := tracker.NewService(
		app,
		clockwork.NewRealClock(),
		gatewayService.Manager(),
		tokenAuthorizer{adminToken: cfg.AdminToken},
	)

	return &Services{
		Catalog: cat,
		Tracker: trackerService,
		Gateway: gatewayService,
	}
}

// tokenAuthorizer lets anyone confirm kills but gates timer removal behind a
// shared admin token. An empty configured token disables removal entirely.
type tokenAuthorizer struct {
	adminToken string
}

func (a tokenAuthorizer) CanConfirm(*http.Request) bool {
	return true
}

func (a tokenAuthorizer) CanRemove(r *http.Request) bool {
	return a.adminToken != "" && r.Header.Get("X-Admin-Token") == a.adminToken
}
