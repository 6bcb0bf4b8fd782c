package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Sunset headers for the legacy flat endpoint
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/combinations",
			SunsetDate:  time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/matches/inline",
		},
	}))

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/pointsets", timeout.NewWithContext(ListPointSetsHandler(deps), 15*time.Second))
	v1.Put("/pointsets/:slug", timeout.NewWithContext(PutPointSetHandler(deps), 15*time.Second))
	v1.Post("/pointsets/:slug/upload", timeout.NewWithContext(UploadPointSetHandler(deps), 30*time.Second))
	v1.Get("/pointsets/:slug", timeout.NewWithContext(GetPointSetHandler(deps), 15*time.Second))
	v1.Get("/pointsets/:slug/export.xlsx", timeout.NewWithContext(ExportPointSetHandler(deps), 30*time.Second))
	v1.Delete("/pointsets/:slug", timeout.NewWithContext(DeletePointSetHandler(deps), 15*time.Second))

	v1.Get("/matches/best", timeout.NewWithContext(BestMatchHandler(deps), 30*time.Second))
	v1.Post("/matches/inline", timeout.NewWithContext(InlineMatchHandler(deps), 30*time.Second))
	v1.Get("/matches/estimate", timeout.NewWithContext(EstimateHandler(deps), 15*time.Second))
	v1.Get("/matches/midpoints", timeout.NewWithContext(MidpointsHandler(deps), 30*time.Second))
	v1.Get("/matches/runs", timeout.NewWithContext(ListRunsHandler(deps), 15*time.Second))
	v1.Get("/matches/runs/:id", timeout.NewWithContext(GetRunHandler(deps), 15*time.Second))

	v1.Get("/venues/nearby", timeout.NewWithContext(NearbyVenuesHandler(deps), 15*time.Second))
	v1.Get("/venues/suggest", timeout.NewWithContext(SuggestVenuesHandler(deps), 15*time.Second))

	v1.Post("/imports", timeout.NewWithContext(CreateImportHandler(deps), 15*time.Second))
	v1.Get("/imports", timeout.NewWithContext(ListImportsHandler(deps), 15*time.Second))
	v1.Get("/imports/:id", timeout.NewWithContext(GetImportHandler(deps), 15*time.Second))

	v1.Get("/stats", timeout.NewWithContext(StatsHandler(deps), 15*time.Second))

	// Legacy flat ranking endpoint (deprecated)
	v1.Post("/combinations", timeout.NewWithContext(CombinationsHandler(deps), 30*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
