package ports

import (
	"context"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// PointSetRepository persists point sets and their member points.
type PointSetRepository interface {
	// Upsert stores the set and replaces its points wholesale. The set's
	// ID and timestamps are filled in on return.
	Upsert(ctx context.Context, set *domain.PointSet, points []domain.Point) error
	GetBySlug(ctx context.Context, slug string) (*domain.PointSet, error)
	List(ctx context.Context, limit, offset int) ([]domain.PointSet, error)
	Count(ctx context.Context) (int, error)
	// Points returns a set's points ordered by position.
	Points(ctx context.Context, setID string) ([]domain.Point, error)
	Delete(ctx context.Context, slug string) error
}

// MatchRunRepository persists match runs and their pairings.
type MatchRunRepository interface {
	Insert(ctx context.Context, run *domain.MatchRun) error
	GetByID(ctx context.Context, id string) (*domain.MatchRun, error)
	ListRecent(ctx context.Context, limit int) ([]domain.MatchRun, error)
	// DistinctPairsForSet returns the most recent run for every
	// set combination the given set participates in.
	DistinctPairsForSet(ctx context.Context, setID string, limit int) ([]domain.MatchRun, error)
}

// VenueRepository persists curated venues.
type VenueRepository interface {
	Upsert(ctx context.Context, venue *domain.Venue) error
	UpsertBatch(ctx context.Context, venues []domain.Venue) error
	GetByID(ctx context.Context, id string) (*domain.Venue, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Venue, error)
}

// ImportRepository persists import jobs.
type ImportRepository interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	GetByID(ctx context.Context, id string) (*domain.ImportJob, error)
	List(ctx context.Context, limit int) ([]domain.ImportJob, error)
	// UpdateStatus moves the job to a new state, recording the error
	// message and stamping finished_at for terminal states.
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	SetCounts(ctx context.Context, id string, points, skipped int) error
	SetWorkflowID(ctx context.Context, id, workflowID string) error
}
