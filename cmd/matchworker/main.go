package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/halfway/internal/adapters/nats"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/config"
	"github.com/samirrijal/halfway/internal/pkg/logging"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
)

// The match worker keeps standing rankings fresh: whenever a point set
// changes, every recent set combination it appears in is swept again and
// the refreshed runs are announced on the matches subjects.
func main() {
	cfg, err := config.Load("halfway-matchworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := logging.Component("matchworker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// NATS publisher for refreshed-match events
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats publisher unavailable, refreshes will not be announced", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	setRepo := postgres.NewPointSetRepo(db)
	runRepo := postgres.NewMatchRunRepo(db)

	// Worker sweeps skip the result cache and the synchronous pair cap:
	// the worker is the designated path for oversized cross products.
	matchSvc := usecases.NewMatchService(setRepo, runRepo, nil, events, usecases.MatchOptions{
		DefaultTopN: cfg.Match.DefaultTopN,
		MaxTopN:     cfg.Match.MaxTopN,
		Workers:     cfg.Match.Workers,
	})

	// Durable consumption of point-set change events
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribePointSetChanges(ctx, func(ctx context.Context, slug string) error {
		start := time.Now()
		refreshed, err := matchSvc.RecomputeForSet(ctx, slug, domain.TriggerWorker)
		if err != nil {
			logger.Error("recompute failed", "set", slug, "refreshed", refreshed, "error", err)
			return err
		}
		if refreshed > 0 {
			logger.Info("runs refreshed", "set", slug, "refreshed", refreshed,
				"elapsed", time.Since(start).String())
			metrics.MatchRunsTotal.WithLabelValues(domain.TriggerWorker).Add(float64(refreshed))
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	logger.Info("match worker started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down match worker", "signal", sig.String())
	cancel()
	// Give the in-flight recompute a moment to finish
	time.Sleep(2 * time.Second)
}
