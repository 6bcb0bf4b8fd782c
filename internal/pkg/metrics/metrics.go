package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halfway",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "halfway",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "halfway",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Matching metrics
	MatchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halfway",
		Subsystem: "match",
		Name:      "runs_total",
		Help:      "Total pairing sweeps executed",
	}, []string{"trigger"})

	MatchPairsPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "halfway",
		Subsystem: "match",
		Name:      "pairs_per_run",
		Help:      "Cross-product size of each pairing sweep",
		Buckets:   prometheus.ExponentialBuckets(10, 10, 7),
	})

	MatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "halfway",
		Subsystem: "match",
		Name:      "run_duration_seconds",
		Help:      "Duration of pairing sweeps",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"trigger"})

	// Import metrics
	PointsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halfway",
		Subsystem: "import",
		Name:      "points_total",
		Help:      "Total coordinate rows accepted from uploads",
	}, []string{"format"})

	ImportJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halfway",
		Subsystem: "import",
		Name:      "jobs_total",
		Help:      "Total import jobs by terminal status",
	}, []string{"status"})

	// Venue metrics
	VenueLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halfway",
		Subsystem: "venues",
		Name:      "lookups_total",
		Help:      "Total venue lookups by backing provider",
	}, []string{"provider"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "halfway",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halfway",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halfway",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "halfway",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "halfway",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "halfway",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// ObserveMatchRun records one pairing sweep in a single call.
func ObserveMatchRun(trigger string, pairs uint64, elapsed time.Duration) {
	MatchRunsTotal.WithLabelValues(trigger).Inc()
	MatchPairsPerRun.Observe(float64(pairs))
	MatchDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Use a local interface so the metrics package does not import pgxpool.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
