package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	natsadapter "github.com/samirrijal/halfway/internal/adapters/nats"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/config"
	"github.com/samirrijal/halfway/internal/pkg/pointfile"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source string     `json:"source"`
	Sets   []SetEntry `json:"sets"`
}

// SetEntry names one point set and where its coordinate file lives.
// Exactly one of URL or File should be set.
type SetEntry struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	File string `json:"file,omitempty"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("halfway-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Change events are best effort: a bulk load without NATS still lands.
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Printf("WARNING: nats unavailable, change events skipped: %v", err)
	} else {
		defer pub.Close()
		events = pub
	}

	sets := usecases.NewPointSetService(postgres.NewPointSetRepo(db), nil, events)

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("Halfway Ingestor — %d sets from %s", len(manifest.Sets), manifest.Source)

	// Filter sets (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent loads

	for _, entry := range manifest.Sets {
		if len(slugFilter) > 0 && !slugFilter[entry.Slug] {
			continue
		}

		wg.Add(1)
		go func(e SetEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestSet(ctx, sets, client, e); err != nil {
				log.Printf("ERROR [%s]: %v", e.Slug, err)
			}
		}(entry)
	}

	wg.Wait()
	log.Println("ingestion complete")
}

// ---------------------------------------------------------------------------
// Per-set ingestion
// ---------------------------------------------------------------------------

func ingestSet(ctx context.Context, sets *usecases.PointSetService, client *http.Client, entry SetEntry) error {
	name, data, err := loadSource(ctx, client, entry)
	if err != nil {
		return err
	}

	records, skipped, err := pointfile.Parse(name, data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	points := make([]domain.Point, 0, len(records))
	for _, r := range records {
		points = append(points, domain.Point{
			Label:    r.Label,
			Location: domain.GeoPoint{Lat: r.Lat, Lon: r.Lon},
		})
	}

	set, err := sets.Save(ctx, entry.Slug, entry.Name, "import", points)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	log.Printf("[%s]   points: %d stored, %d skipped", set.Slug, set.PointCount, skipped)
	return nil
}

func loadSource(ctx context.Context, client *http.Client, entry SetEntry) (string, []byte, error) {
	if entry.File != "" {
		data, err := os.ReadFile(entry.File)
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", entry.File, err)
		}
		return entry.File, data, nil
	}

	if entry.URL == "" {
		return "", nil, fmt.Errorf("set %q has neither url nor file", entry.Slug)
	}

	log.Printf("[%s] downloading %s", entry.Slug, entry.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, entry.URL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	return entry.URL, data, nil
}
