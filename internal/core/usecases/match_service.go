package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/pkg/pairing"
)

// ErrTooManyPairs means the cross product exceeds the synchronous limit
// and the sweep must go through the match worker instead.
var ErrTooManyPairs = errors.New("cross product too large for synchronous matching")

// MatchOptions tunes the pairing engine inside MatchService.
type MatchOptions struct {
	DefaultTopN  int
	MaxTopN      int
	Workers      int
	MaxSyncPairs uint64
}

// MatchService ranks point-set combinations by how close their midpoint
// lands to a target location.
type MatchService struct {
	sets   ports.PointSetRepository
	runs   ports.MatchRunRepository
	cache  ports.CacheService
	events ports.EventPublisher
	opts   MatchOptions
}

// NewMatchService creates a new MatchService.
func NewMatchService(sets ports.PointSetRepository, runs ports.MatchRunRepository, cache ports.CacheService, events ports.EventPublisher, opts MatchOptions) *MatchService {
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = 10
	}
	if opts.MaxTopN < opts.DefaultTopN {
		opts.MaxTopN = opts.DefaultTopN
	}
	if opts.MaxSyncPairs == 0 {
		opts.MaxSyncPairs = 10_000_000
	}
	return &MatchService{sets: sets, runs: runs, cache: cache, events: events, opts: opts}
}

// BestBetweenSets ranks every A-by-B combination of two stored sets and
// persists the resulting run. API-triggered calls are served from cache
// when the sets have not changed since the last identical request.
func (s *MatchService) BestBetweenSets(ctx context.Context, slugA, slugB string, target domain.GeoPoint, topN int, trigger string) (*domain.MatchRun, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w: target: %v", ErrInvalidInput, err)
	}
	topN = s.clampTopN(topN)
	if trigger == "" {
		trigger = domain.TriggerAPI
	}

	setA, err := s.sets.GetBySlug(ctx, slugA)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", slugA, err)
	}
	setB, err := s.sets.GetBySlug(ctx, slugB)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", slugB, err)
	}

	total := pairing.Count(setA.PointCount, setB.PointCount)
	if trigger == domain.TriggerAPI && total > s.opts.MaxSyncPairs {
		return nil, fmt.Errorf("%w: %d pairs, limit %d", ErrTooManyPairs, total, s.opts.MaxSyncPairs)
	}

	// Keys carry both sets' update times, so entries for stale data are
	// simply never asked for again.
	cacheKey := fmt.Sprintf("match:best:%s:%d:%s:%d:%.5f:%.5f:%d",
		setA.ID, setA.UpdatedAt.Unix(), setB.ID, setB.UpdatedAt.Unix(),
		target.Lat, target.Lon, topN)
	if s.cache != nil && trigger == domain.TriggerAPI {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var run domain.MatchRun
			if err := json.Unmarshal(data, &run); err == nil {
				run.FromCache = true
				return &run, nil
			}
		}
	}

	pointsA, err := s.sets.Points(ctx, setA.ID)
	if err != nil {
		return nil, err
	}
	pointsB, err := s.sets.Points(ctx, setB.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := pairing.FindBestParallel(flatCoords(pointsA), flatCoords(pointsB),
		target.Lat, target.Lon, topN, s.opts.Workers)
	elapsed := time.Since(start)

	run := &domain.MatchRun{
		SetAID:     setA.ID,
		SetBID:     setB.ID,
		SetASlug:   setA.Slug,
		SetBSlug:   setB.Slug,
		Target:     target,
		TopN:       topN,
		PairCount:  total,
		Pairings:   labelPairings(results, pointsA, pointsB),
		Trigger:    trigger,
		DurationMS: elapsed.Milliseconds(),
	}
	run.Viewport = viewport(run.Pairings, target)

	if err := s.runs.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}

	if s.events != nil && len(run.Pairings) > 0 {
		_ = s.events.PublishMatchEvent(ctx, &domain.MatchEvent{
			RunID:       run.ID,
			SetASlug:    setA.Slug,
			SetBSlug:    setB.Slug,
			Target:      target,
			TopN:        topN,
			BestScoreKm: run.Pairings[0].ScoreKm,
			Trigger:     trigger,
			Time:        time.Now().UTC(),
		})
	}

	if s.cache != nil {
		if data, err := json.Marshal(run); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return run, nil
}

// BestInline ranks caller-supplied coordinates without touching storage.
// Slices hold alternating lat/lon values; a trailing odd value is ignored.
func (s *MatchService) BestInline(ctx context.Context, coordsA, coordsB []float64, target domain.GeoPoint, topN int) ([]domain.Pairing, uint64, error) {
	results, total, err := s.bestResults(coordsA, coordsB, target, s.clampTopN(topN))
	if err != nil {
		return nil, 0, err
	}
	return labelPairings(results, nil, nil), total, nil
}

// BestInlineFlat returns the legacy flat encoding: five values per
// pairing (index_a, index_b, score_km, mid_lat, mid_lon). Unlike the
// modern endpoints, top_n here keeps its historical literal meaning:
// zero asks for zero pairings and yields an empty result. Only the upper
// cap applies.
func (s *MatchService) BestInlineFlat(ctx context.Context, coordsA, coordsB []float64, target domain.GeoPoint, topN int) ([]float64, uint64, error) {
	if topN > s.opts.MaxTopN {
		topN = s.opts.MaxTopN
	}
	results, total, err := s.bestResults(coordsA, coordsB, target, topN)
	if err != nil {
		return nil, 0, err
	}
	return pairing.Flatten(results), total, nil
}

func (s *MatchService) bestResults(coordsA, coordsB []float64, target domain.GeoPoint, topN int) ([]pairing.Result, uint64, error) {
	if err := target.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: target: %v", ErrInvalidInput, err)
	}

	total := pairing.Count(len(coordsA)/2, len(coordsB)/2)
	if total > s.opts.MaxSyncPairs {
		return nil, 0, fmt.Errorf("%w: %d pairs, limit %d", ErrTooManyPairs, total, s.opts.MaxSyncPairs)
	}

	return pairing.FindBestParallel(coordsA, coordsB, target.Lat, target.Lon, topN, s.opts.Workers), total, nil
}

// MidpointGrid computes the full midpoint lattice for two stored sets,
// laid out row-major with two values per A-B pair.
func (s *MatchService) MidpointGrid(ctx context.Context, slugA, slugB string) ([]float64, uint64, error) {
	setA, err := s.sets.GetBySlug(ctx, slugA)
	if err != nil {
		return nil, 0, fmt.Errorf("set %q: %w", slugA, err)
	}
	setB, err := s.sets.GetBySlug(ctx, slugB)
	if err != nil {
		return nil, 0, fmt.Errorf("set %q: %w", slugB, err)
	}

	pointsA, err := s.sets.Points(ctx, setA.ID)
	if err != nil {
		return nil, 0, err
	}
	pointsB, err := s.sets.Points(ctx, setB.ID)
	if err != nil {
		return nil, 0, err
	}

	return s.MidpointGridInline(ctx, flatCoords(pointsA), flatCoords(pointsB))
}

// MidpointGridInline computes the midpoint lattice for caller-supplied
// coordinates. The grid materializes every pair, so the synchronous
// limit applies regardless of trigger.
func (s *MatchService) MidpointGridInline(ctx context.Context, coordsA, coordsB []float64) ([]float64, uint64, error) {
	total := pairing.Count(len(coordsA)/2, len(coordsB)/2)
	if total > s.opts.MaxSyncPairs {
		return nil, 0, fmt.Errorf("%w: %d pairs, limit %d", ErrTooManyPairs, total, s.opts.MaxSyncPairs)
	}
	return pairing.AllMidpoints(coordsA, coordsB), total, nil
}

// Estimate reports the cross-product size for two stored sets and
// whether the API would serve it inline.
func (s *MatchService) Estimate(ctx context.Context, slugA, slugB string) (*domain.MatchEstimate, error) {
	setA, err := s.sets.GetBySlug(ctx, slugA)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", slugA, err)
	}
	setB, err := s.sets.GetBySlug(ctx, slugB)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", slugB, err)
	}

	total := pairing.Count(setA.PointCount, setB.PointCount)
	return &domain.MatchEstimate{
		SetASlug:  setA.Slug,
		SetBSlug:  setB.Slug,
		PairCount: total,
		Sync:      total <= s.opts.MaxSyncPairs,
	}, nil
}

// GetRun returns a stored match run.
func (s *MatchService) GetRun(ctx context.Context, id string) (*domain.MatchRun, error) {
	return s.runs.GetByID(ctx, id)
}

// RecentRuns lists the latest match runs.
func (s *MatchService) RecentRuns(ctx context.Context, limit int) ([]domain.MatchRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRecent(ctx, limit)
}

// RecomputeForSet refreshes the latest run of every combination the
// changed set participates in. It returns the number of refreshed runs
// and the first error encountered, if any.
func (s *MatchService) RecomputeForSet(ctx context.Context, slug, trigger string) (int, error) {
	if trigger == "" {
		trigger = domain.TriggerWorker
	}
	set, err := s.sets.GetBySlug(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("set %q: %w", slug, err)
	}

	prior, err := s.runs.DistinctPairsForSet(ctx, set.ID, 20)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	var firstErr error
	for _, old := range prior {
		_, err := s.BestBetweenSets(ctx, old.SetASlug, old.SetBSlug, old.Target, old.TopN, trigger)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refreshed++
	}
	return refreshed, firstErr
}

func (s *MatchService) clampTopN(topN int) int {
	if topN <= 0 {
		return s.opts.DefaultTopN
	}
	if topN > s.opts.MaxTopN {
		return s.opts.MaxTopN
	}
	return topN
}

func flatCoords(points []domain.Point) []float64 {
	out := make([]float64, 0, 2*len(points))
	for _, p := range points {
		out = append(out, p.Location.Lat, p.Location.Lon)
	}
	return out
}

// labelPairings converts engine results to domain pairings, attaching
// labels when the backing points are known.
func labelPairings(results []pairing.Result, pointsA, pointsB []domain.Point) []domain.Pairing {
	pairings := make([]domain.Pairing, 0, len(results))
	for _, r := range results {
		p := domain.Pairing{
			IndexA:   r.IndexA,
			IndexB:   r.IndexB,
			ScoreKm:  r.ScoreKm,
			Midpoint: domain.GeoPoint{Lat: r.MidLat, Lon: r.MidLon},
		}
		if r.IndexA < len(pointsA) {
			p.LabelA = pointsA[r.IndexA].Label
		}
		if r.IndexB < len(pointsB) {
			p.LabelB = pointsB[r.IndexB].Label
		}
		pairings = append(pairings, p)
	}
	return pairings
}

// viewport is the box a map client should frame: every ranked midpoint
// plus the target itself.
func viewport(pairings []domain.Pairing, target domain.GeoPoint) *domain.Bounds {
	if len(pairings) == 0 {
		return nil
	}
	pts := make([]domain.GeoPoint, 0, len(pairings)+1)
	for _, p := range pairings {
		pts = append(pts, p.Midpoint)
	}
	pts = append(pts, target)
	return domain.BoundsAround(pts)
}
