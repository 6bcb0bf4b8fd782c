package domain

import (
	"regexp"
	"time"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is usable as a URL-safe set identifier.
func ValidSlug(s string) bool {
	return len(s) <= 64 && slugPattern.MatchString(s)
}

// PointSet is a named collection of coordinates for one side of a meetup,
// e.g. "marketing-team" or "bilbao-friends".
type PointSet struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Origin     string    `json:"origin"` // manual | import
	PointCount int       `json:"point_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Point is one labeled coordinate inside a set. Position is the stable
// zero-based index pairings refer to.
type Point struct {
	ID       string   `json:"id"`
	SetID    string   `json:"set_id"`
	Label    string   `json:"label,omitempty"`
	Location GeoPoint `json:"location"`
	Position int      `json:"position"`
}

// Pairing is one ranked A-by-B combination. ScoreKm is the great-circle
// distance from the pair's midpoint to the match target.
type Pairing struct {
	IndexA   int      `json:"index_a"`
	IndexB   int      `json:"index_b"`
	LabelA   string   `json:"label_a,omitempty"`
	LabelB   string   `json:"label_b,omitempty"`
	ScoreKm  float64  `json:"score_km"`
	Midpoint GeoPoint `json:"midpoint"`
}

// MatchRun is a persisted ranking of two point sets against a target.
type MatchRun struct {
	ID         string    `json:"id"`
	SetAID     string    `json:"set_a_id"`
	SetBID     string    `json:"set_b_id"`
	SetASlug   string    `json:"set_a_slug,omitempty"`
	SetBSlug   string    `json:"set_b_slug,omitempty"`
	Target     GeoPoint  `json:"target"`
	TopN       int       `json:"top_n"`
	PairCount  uint64    `json:"pair_count"`
	Pairings   []Pairing `json:"pairings,omitempty"`
	Viewport   *Bounds   `json:"viewport,omitempty"`
	Trigger    string    `json:"trigger"` // api | worker | import
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`

	// FromCache marks runs served from the result cache so callers can
	// skip re-recording compute metrics for them.
	FromCache bool `json:"-"`
}

// Venue is a meeting place near a midpoint.
type Venue struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Location  GeoPoint       `json:"location"`
	Address   string         `json:"address,omitempty"`
	Rating    float64        `json:"rating,omitempty"`
	Source    string         `json:"source"` // curated | google
	Active    bool           `json:"active"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Distance  *float64       `json:"distance,omitempty"` // computed field
	CreatedAt time.Time      `json:"created_at"`
}

// ImportJob tracks one coordinate file ingestion through the workflow.
type ImportJob struct {
	ID         string     `json:"id"`
	SetSlug    string     `json:"set_slug"`
	SetName    string     `json:"set_name"`
	SourceURL  string     `json:"source_url"`
	Status     string     `json:"status"`
	PointCount int        `json:"point_count"`
	Skipped    int        `json:"skipped"`
	Error      string     `json:"error,omitempty"`
	WorkflowID string     `json:"workflow_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Import job states.
const (
	ImportPending     = "pending"
	ImportRunning     = "running"
	ImportCompleted   = "completed"
	ImportFailed      = "failed"
	ImportCompensated = "compensated"
)

// Match run triggers.
const (
	TriggerAPI    = "api"
	TriggerWorker = "worker"
	TriggerImport = "import"
)

// MatchEstimate previews the cost of a match between two sets.
type MatchEstimate struct {
	SetASlug  string `json:"set_a_slug"`
	SetBSlug  string `json:"set_b_slug"`
	PairCount uint64 `json:"pair_count"`
	// Sync reports whether the API would compute this inline rather
	// than deferring to the match worker.
	Sync bool `json:"sync"`
}

// MatchEvent is broadcast whenever a ranking is produced or refreshed.
type MatchEvent struct {
	RunID       string    `json:"run_id"`
	SetASlug    string    `json:"set_a_slug"`
	SetBSlug    string    `json:"set_b_slug"`
	Target      GeoPoint  `json:"target"`
	TopN        int       `json:"top_n"`
	BestScoreKm float64   `json:"best_score_km"`
	Trigger     string    `json:"trigger"`
	Time        time.Time `json:"time"`
}
