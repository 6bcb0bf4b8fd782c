package workflows

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
	"github.com/samirrijal/halfway/internal/pkg/pointfile"
)

// maxSourceBytes caps downloaded coordinate files. Temporal payloads move
// between activities, so the file must stay well under the payload limit.
const maxSourceBytes = 16 << 20

// FetchedFile is the downloaded source file handed from FetchSource to
// ParsePoints.
type FetchedFile struct {
	Name string
	Data []byte
}

// ParsedPoints carries accepted rows plus the dropped-row count.
type ParsedPoints struct {
	Records []pointfile.Record
	Skipped int
}

// ImportActivities holds the activity implementations for the import workflow.
type ImportActivities struct {
	Imports   ports.ImportRepository
	PointSets *usecases.PointSetService
	Matches   *usecases.MatchService
	Events    ports.EventPublisher
	Client    *http.Client
}

func (a *ImportActivities) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// FetchSource downloads the coordinate file.
func (a *ImportActivities) FetchSource(ctx context.Context, sourceURL string) (FetchedFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return FetchedFile{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return FetchedFile{}, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchedFile{}, fmt.Errorf("HTTP %d for %s", resp.StatusCode, sourceURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return FetchedFile{}, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxSourceBytes {
		return FetchedFile{}, fmt.Errorf("source file exceeds %d bytes", maxSourceBytes)
	}

	return FetchedFile{Name: sourceURL, Data: data}, nil
}

// ParsePoints extracts coordinate rows from the fetched file.
func (a *ImportActivities) ParsePoints(ctx context.Context, file FetchedFile) (ParsedPoints, error) {
	records, skipped, err := pointfile.Parse(file.Name, file.Data)
	if err != nil {
		return ParsedPoints{}, fmt.Errorf("parse %s: %w", file.Name, err)
	}
	if len(records) == 0 {
		return ParsedPoints{}, fmt.Errorf("no usable coordinate rows in %s (%d skipped)", file.Name, skipped)
	}
	return ParsedPoints{Records: records, Skipped: skipped}, nil
}

// StorePointSet replaces the destination set with the parsed rows and
// records the accepted/skipped counts on the job.
func (a *ImportActivities) StorePointSet(ctx context.Context, input ImportInput, parsed ParsedPoints) error {
	points := make([]domain.Point, 0, len(parsed.Records))
	for _, r := range parsed.Records {
		points = append(points, domain.Point{
			Label:    r.Label,
			Location: domain.GeoPoint{Lat: r.Lat, Lon: r.Lon},
		})
	}

	if _, err := a.PointSets.Save(ctx, input.SetSlug, input.SetName, "import", points); err != nil {
		return fmt.Errorf("store set %s: %w", input.SetSlug, err)
	}

	if err := a.Imports.SetCounts(ctx, input.JobID, len(points), parsed.Skipped); err != nil {
		return fmt.Errorf("record counts: %w", err)
	}
	return nil
}

// RefreshMatches recomputes the standing match runs the imported set
// participates in and returns how many were refreshed.
func (a *ImportActivities) RefreshMatches(ctx context.Context, slug string) (int, error) {
	refreshed, err := a.Matches.RecomputeForSet(ctx, slug, domain.TriggerImport)
	if err != nil {
		return refreshed, fmt.Errorf("recompute for %s: %w", slug, err)
	}
	return refreshed, nil
}

// RemovePointSet deletes the imported set (saga compensation / rollback).
func (a *ImportActivities) RemovePointSet(ctx context.Context, slug string) error {
	if err := a.PointSets.Delete(ctx, slug); err != nil {
		return fmt.Errorf("remove set %s: %w", slug, err)
	}
	return nil
}

// MarkJobStatus transitions the job and counts terminal states.
func (a *ImportActivities) MarkJobStatus(ctx context.Context, jobID, status, errMsg string) error {
	if err := a.Imports.UpdateStatus(ctx, jobID, status, errMsg); err != nil {
		return fmt.Errorf("job %s → %s: %w", jobID, status, err)
	}
	switch status {
	case domain.ImportCompleted, domain.ImportFailed, domain.ImportCompensated:
		metrics.ImportJobsTotal.WithLabelValues(status).Inc()
	}
	return nil
}

// AnnounceImport publishes the job's final state for WebSocket clients.
func (a *ImportActivities) AnnounceImport(ctx context.Context, jobID string) error {
	if a.Events == nil {
		return nil
	}
	job, err := a.Imports.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	return a.Events.PublishImportStatus(ctx, job)
}
