package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mwatts14/respawn/internal/catalog"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := loadConfig()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load boss catalog")
	}
	log.Info().
		Int("bosses", cat.Len()).
		Str("timezone", cat.Location.String()).
		Msg("boss catalog loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var services *Services
	if cfg.DBDisabled {
		log.Warn().Msg("running without a database; timers are in-memory only")
		services = setupServices(cfg, cat, nil)
	} else {
		pool, err := setupDatabase(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		services = setupServices(cfg, cat, pool)
	}

	server := setupServer(cfg, services)

	// Start gateway service (heartbeats and connection registry)
	go services.Gateway.Start(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop the gateway so open streams are evicted before exit
	cancel()
	services.Gateway.Stop()

	log.Info().Msg("respawn tracker shutdown complete")
}
