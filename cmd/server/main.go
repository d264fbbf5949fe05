package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noptechs/lease-app/internal/config"
	"github.com/noptechs/lease-app/internal/db"
	"github.com/noptechs/lease-app/internal/server"
	"github.com/noptechs/lease-app/internal/services"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	sweepOnlyFlag   = flag.Bool("sweep-only", false, "Recompute expiry classification for all leases and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	setupLogger()

	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(); err != nil {
			log.Fatal().Err(err).Msg("migrate-only failed")
		}
		log.Info().Msg("migrations completed; exiting as requested")
		return
	}

	cfg := config.Load()
	dbConn, err := db.ConnectAndMigrate()
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	db.Seed(dbConn)
	svc := services.NewLeaseService(dbConn, cfg)

	if *sweepOnlyFlag {
		n, err := svc.RecomputeAllExpiry(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("sweep-only failed")
		}
		log.Info().Int("updated", n).Msg("expiry sweep completed; exiting as requested")
		return
	}

	store, err := newReceiptStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("receipt store setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stored classifications go stale as days pass without edits; the sweep
	// keeps them fresh.
	go svc.RunExpirySweep(ctx, cfg.SweepInterval)

	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Str("profile", cfg.Profile).Msg("starting server")
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: server.New(dbConn, svc, store)}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}

func setupLogger() {
	if os.Getenv("APP_ENV") == "development" {
		log.DefaultLogger = log.Logger{
			Level:  log.DebugLevel,
			Writer: &log.ConsoleWriter{ColorOutput: true},
		}
	}
}
