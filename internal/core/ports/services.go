package ports

import (
	"context"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishMatchEvent(ctx context.Context, ev *domain.MatchEvent) error
	PublishPointSetChanged(ctx context.Context, slug string) error
	PublishImportStatus(ctx context.Context, job *domain.ImportJob) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeMatchEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.MatchEvent) error) error
	SubscribePointSetChanges(ctx context.Context, handler func(ctx context.Context, slug string) error) error
	SubscribeImportStatus(ctx context.Context, handler func(ctx context.Context, job *domain.ImportJob) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// VenueSuggester finds candidate venues around a point from an external
// places provider.
type VenueSuggester interface {
	Suggest(ctx context.Context, lat, lon float64, radiusMeters int, keyword string) ([]domain.Venue, error)
}

// ImportOrchestrator hands import jobs to the workflow engine.
type ImportOrchestrator interface {
	StartImport(ctx context.Context, job *domain.ImportJob) (workflowID string, err error)
}
