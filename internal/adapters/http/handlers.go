package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
	"github.com/samirrijal/halfway/internal/pkg/pointfile"
)

// serviceError maps usecase errors onto HTTP status codes.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecases.ErrInvalidInput):
		return errBadRequest(c, err.Error())
	case errors.Is(err, usecases.ErrTooManyPairs):
		return errTooManyPairs(c, err.Error())
	case errors.Is(err, usecases.ErrUnavailable):
		return errUnavailable(c, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return errNotFound(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}

// ServiceStats holds row counts across the main tables.
type ServiceStats struct {
	PointSets  int    `json:"point_sets"`
	Points     int    `json:"points"`
	Venues     int    `json:"venues"`
	MatchRuns  int    `json:"match_runs"`
	Imports    int    `json:"imports"`
	LastChange string `json:"last_change,omitempty"`
}

// StatsHandler returns row counts from the halfway tables.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats ServiceStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM point_sets),
				(SELECT count(*) FROM points),
				(SELECT count(*) FROM venues),
				(SELECT count(*) FROM match_runs),
				(SELECT count(*) FROM imports),
				COALESCE((SELECT max(updated_at)::text FROM point_sets), '')
			`)
		if err := row.Scan(&stats.PointSets, &stats.Points, &stats.Venues,
			&stats.MatchRuns, &stats.Imports, &stats.LastChange); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// ListPointSetsHandler returns stored point sets, paginated.
func ListPointSetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)

		sets, total, err := deps.PointSets.List(c.Context(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: sets, Pagination: pg})
	}
}

type pointBody struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

type pointSetBody struct {
	Name   string      `json:"name"`
	Points []pointBody `json:"points"`
}

// PutPointSetHandler creates or replaces a point set from a JSON body.
func PutPointSetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")

		var body pointSetBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		points := make([]domain.Point, 0, len(body.Points))
		for _, p := range body.Points {
			points = append(points, domain.Point{
				Label:    p.Label,
				Location: domain.GeoPoint{Lat: p.Lat, Lon: p.Lon},
			})
		}

		set, err := deps.PointSets.Save(c.Context(), slug, body.Name, "manual", points)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(set)
	}
}

// UploadPointSetHandler creates or replaces a point set from an uploaded
// CSV or XLSX file. Rows with unparseable coordinates are dropped and
// reported in the response.
func UploadPointSetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")

		fh, err := c.FormFile("file")
		if err != nil {
			return errBadRequest(c, "multipart field 'file' is required")
		}

		f, err := fh.Open()
		if err != nil {
			return errBadRequest(c, "cannot open upload: "+err.Error())
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return errBadRequest(c, "cannot read upload: "+err.Error())
		}

		records, skipped, err := pointfile.Parse(fh.Filename, data)
		if err != nil {
			return errBadRequest(c, "parse "+fh.Filename+": "+err.Error())
		}

		points := make([]domain.Point, 0, len(records))
		for _, r := range records {
			points = append(points, domain.Point{
				Label:    r.Label,
				Location: domain.GeoPoint{Lat: r.Lat, Lon: r.Lon},
			})
		}

		set, err := deps.PointSets.Save(c.Context(), slug, c.FormValue("name"), "upload", points)
		if err != nil {
			return serviceError(c, err)
		}

		format := "csv"
		if strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
			format = "xlsx"
		}
		metrics.PointsImported.WithLabelValues(format).Add(float64(len(points)))

		return c.JSON(fiber.Map{
			"set":      set,
			"imported": len(points),
			"skipped":  skipped,
		})
	}
}

// GetPointSetHandler returns a set with its points.
func GetPointSetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		set, points, err := deps.PointSets.Get(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "point set not found")
		}
		return c.JSON(fiber.Map{
			"set":    set,
			"points": points,
		})
	}
}

// ExportPointSetHandler streams a set as an XLSX workbook.
func ExportPointSetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		set, points, err := deps.PointSets.Get(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "point set not found")
		}

		records := make([]pointfile.Record, 0, len(points))
		for _, p := range points {
			records = append(records, pointfile.Record{
				Label: p.Label,
				Lat:   p.Location.Lat,
				Lon:   p.Location.Lon,
			})
		}

		var buf bytes.Buffer
		if err := pointfile.WriteXLSX(&buf, set.Name, records); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, set.Slug))
		return c.Send(buf.Bytes())
	}
}

// DeletePointSetHandler removes a set and its points.
func DeletePointSetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if err := deps.PointSets.Delete(c.Context(), slug); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errNotFound(c, "point set not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// BestMatchHandler ranks every pairing of two stored sets against a target
// location and returns the persisted run.
func BestMatchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slugA := c.Query("set_a")
		slugB := c.Query("set_b")
		if slugA == "" || slugB == "" {
			return errBadRequest(c, "set_a and set_b are required")
		}
		if c.Query("target_lat") == "" || c.Query("target_lon") == "" {
			return errBadRequest(c, "target_lat and target_lon are required")
		}

		target := domain.GeoPoint{
			Lat: c.QueryFloat("target_lat", 0),
			Lon: c.QueryFloat("target_lon", 0),
		}
		if err := target.Validate(); err != nil {
			return errBadRequest(c, err.Error())
		}
		topN := c.QueryInt("top_n", 0)

		run, err := deps.Matches.BestBetweenSets(c.Context(), slugA, slugB, target, topN, domain.TriggerAPI)
		if err != nil {
			return serviceError(c, err)
		}

		if !run.FromCache {
			metrics.ObserveMatchRun(run.Trigger, run.PairCount, time.Duration(run.DurationMS)*time.Millisecond)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(run)
	}
}

type inlineMatchBody struct {
	CoordsA []float64 `json:"coords_a"`
	CoordsB []float64 `json:"coords_b"`
	Target  struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"target"`
	TopN int `json:"top_n"`
}

// InlineMatchHandler ranks caller-supplied coordinates without persisting
// anything.
func InlineMatchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body inlineMatchBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(body.CoordsA) == 0 || len(body.CoordsB) == 0 {
			return errBadRequest(c, "coords_a and coords_b are required")
		}

		target := domain.GeoPoint{Lat: body.Target.Lat, Lon: body.Target.Lon}
		start := time.Now()
		pairings, total, err := deps.Matches.BestInline(c.Context(), body.CoordsA, body.CoordsB, target, body.TopN)
		if err != nil {
			return serviceError(c, err)
		}
		metrics.ObserveMatchRun(domain.TriggerAPI, total, time.Since(start))

		return c.JSON(fiber.Map{
			"pairings":   pairings,
			"count":      len(pairings),
			"pair_count": total,
		})
	}
}

type combinationsBody struct {
	CoordsA   []float64 `json:"coords_a"`
	CoordsB   []float64 `json:"coords_b"`
	TargetLat float64   `json:"target_lat"`
	TargetLon float64   `json:"target_lon"`
	TopN      int       `json:"top_n"`
}

// CombinationsHandler is the legacy flat-encoded ranking endpoint. Each
// pairing occupies five consecutive values in the result slice.
// Deprecated in favour of /v1/matches/inline.
func CombinationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body combinationsBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		target := domain.GeoPoint{Lat: body.TargetLat, Lon: body.TargetLon}
		start := time.Now()
		flat, total, err := deps.Matches.BestInlineFlat(c.Context(), body.CoordsA, body.CoordsB, target, body.TopN)
		if err != nil {
			return serviceError(c, err)
		}
		metrics.ObserveMatchRun(domain.TriggerAPI, total, time.Since(start))

		return c.JSON(fiber.Map{
			"result": flat,
			"count":  len(flat) / 5,
		})
	}
}

// EstimateHandler previews the pair count for two sets and whether the API
// would compute it inline.
func EstimateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slugA := c.Query("set_a")
		slugB := c.Query("set_b")
		if slugA == "" || slugB == "" {
			return errBadRequest(c, "set_a and set_b are required")
		}

		est, err := deps.Matches.Estimate(c.Context(), slugA, slugB)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(est)
	}
}

// MidpointsHandler returns the full midpoint lattice for two stored sets,
// two values per pair in row-major order.
func MidpointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slugA := c.Query("set_a")
		slugB := c.Query("set_b")
		if slugA == "" || slugB == "" {
			return errBadRequest(c, "set_a and set_b are required")
		}

		grid, total, err := deps.Matches.MidpointGrid(c.Context(), slugA, slugB)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"midpoints":  grid,
			"pair_count": total,
		})
	}
}

// ListRunsHandler returns the most recent match runs without pairings.
func ListRunsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		runs, err := deps.Matches.RecentRuns(c.Context(), limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(runs)
	}
}

// GetRunHandler returns a stored match run with its pairings.
func GetRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "run id is required")
		}
		run, err := deps.Matches.GetRun(c.Context(), id)
		if err != nil {
			return errNotFound(c, "match run not found")
		}
		return c.JSON(run)
	}
}

// NearbyVenuesHandler returns curated venues within a radius of a point.
func NearbyVenuesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 0)
		limit := c.QueryInt("limit", 20)

		metrics.VenueLookups.WithLabelValues("curated").Inc()

		venues, err := deps.Venues.Nearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(venues)
	}
}

// SuggestVenuesHandler merges curated venues with places-provider results.
func SuggestVenuesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryInt("radius", 0)
		keyword := c.Query("keyword")
		limit := c.QueryInt("limit", 10)

		venues, err := deps.Venues.Suggest(c.Context(), lat, lon, radius, keyword, limit)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(venues)
	}
}

type importBody struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
}

// CreateImportHandler registers an import job and starts its workflow.
func CreateImportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body importBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		job, err := deps.Imports.Start(c.Context(), body.Slug, body.Name, body.SourceURL)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(202).JSON(job)
	}
}

// ListImportsHandler returns recent import jobs.
func ListImportsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		jobs, err := deps.Imports.List(c.Context(), limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(jobs)
	}
}

// GetImportHandler returns a single import job.
func GetImportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "import id is required")
		}
		job, err := deps.Imports.Get(c.Context(), id)
		if err != nil {
			return errNotFound(c, "import not found")
		}
		return c.JSON(job)
	}
}
