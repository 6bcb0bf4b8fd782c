package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/halfway/internal/adapters/http"
	"github.com/samirrijal/halfway/internal/adapters/maps"
	natsadapter "github.com/samirrijal/halfway/internal/adapters/nats"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	temporaladapter "github.com/samirrijal/halfway/internal/adapters/temporal"
	"github.com/samirrijal/halfway/internal/adapters/valkey"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/config"
	"github.com/samirrijal/halfway/internal/pkg/logging"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
	"github.com/samirrijal/halfway/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("halfway-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Feed the pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var events ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		events = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Temporal (import workflows)
	var flow ports.ImportOrchestrator
	orch, err := temporaladapter.New(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
	if err != nil {
		slog.Warn("temporal unavailable, imports disabled", "error", err)
	} else {
		defer orch.Close()
		flow = orch
	}

	// Google Places (venue suggestions)
	var suggester ports.VenueSuggester
	if cfg.Maps.APIKey != "" {
		places, err := maps.NewPlacesClient(cfg.Maps.APIKey)
		if err != nil {
			slog.Warn("maps client unavailable", "error", err)
		} else {
			suggester = places
		}
	}

	// Repos
	setRepo := postgres.NewPointSetRepo(db)
	runRepo := postgres.NewMatchRunRepo(db)
	venueRepo := postgres.NewVenueRepo(db)
	importRepo := postgres.NewImportRepo(db)

	// Use cases
	pointSetSvc := usecases.NewPointSetService(setRepo, cacheSvc, events)
	matchSvc := usecases.NewMatchService(setRepo, runRepo, cacheSvc, events, usecases.MatchOptions{
		DefaultTopN:  cfg.Match.DefaultTopN,
		MaxTopN:      cfg.Match.MaxTopN,
		Workers:      cfg.Match.Workers,
		MaxSyncPairs: cfg.Match.MaxSyncPairs,
	})
	venueSvc := usecases.NewVenueService(venueRepo, suggester, cacheSvc)
	importSvc := usecases.NewImportService(importRepo, flow)

	deps := &http.Dependencies{
		PointSets: pointSetSvc,
		Matches:   matchSvc,
		Venues:    venueSvc,
		Imports:   importSvc,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    8 * 1024 * 1024, // room for coordinate uploads
		AppName:      "Halfway API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.halfway.app",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
