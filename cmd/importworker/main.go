package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/halfway/internal/adapters/nats"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/config"
	"github.com/samirrijal/halfway/internal/pkg/logging"
	"github.com/samirrijal/halfway/internal/workflows"
)

// The import worker hosts the durable import saga: fetch, parse, store,
// refresh matches, announce — with compensation when a later step fails.
func main() {
	cfg, err := config.Load("halfway-importworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := logging.Component("importworker")

	ctx := context.Background()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// NATS: change events from stored sets, status announcements
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats unavailable, import events will not be published", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	setRepo := postgres.NewPointSetRepo(db)
	runRepo := postgres.NewMatchRunRepo(db)
	importRepo := postgres.NewImportRepo(db)

	pointSetSvc := usecases.NewPointSetService(setRepo, nil, events)
	matchSvc := usecases.NewMatchService(setRepo, runRepo, nil, events, usecases.MatchOptions{
		DefaultTopN: cfg.Match.DefaultTopN,
		MaxTopN:     cfg.Match.MaxTopN,
		Workers:     cfg.Match.Workers,
	})

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ImportWorkflow)
	w.RegisterActivity(&workflows.ImportActivities{
		Imports:   importRepo,
		PointSets: pointSetSvc,
		Matches:   matchSvc,
		Events:    events,
		Client:    &http.Client{Timeout: 120 * time.Second},
	})

	logger.Info("import worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
