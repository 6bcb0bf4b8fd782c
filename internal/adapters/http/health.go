package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/halfway/internal/adapters/valkey"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		})
	}
}

// ReadyHandler probes the database, NATS, and cache. Only the database is
// required for readiness; NATS and Valkey are optional when absent, but a
// configured backend that is failing makes the service not ready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	type probe struct {
		name string
		run  func(ctx context.Context) (detail string, healthy bool)
	}

	probes := []probe{
		{name: "database", run: func(ctx context.Context) (string, bool) {
			if deps.DB == nil {
				return "not configured", false
			}
			if err := deps.DB.Pool.Ping(ctx); err != nil {
				return "error: " + err.Error(), false
			}
			return "ok", true
		}},
		{name: "nats", run: func(ctx context.Context) (string, bool) {
			switch {
			case deps.NATS == nil:
				return "not configured", true
			case !deps.NATS.IsConnected():
				return "disconnected", false
			}
			return "ok", true
		}},
		{name: "cache", run: func(ctx context.Context) (string, bool) {
			if deps.Cache == nil {
				return "not configured", true
			}
			// a miss is a healthy response; only transport errors count
			if _, err := deps.Cache.Get(ctx, "__ready_probe__"); err != nil && !valkey.IsMiss(err) {
				return "error: " + err.Error(), false
			}
			return "ok", true
		}},
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			detail, healthy := p.run(ctx)
			checks[p.name] = detail
			if !healthy {
				ready = false
			}
		}

		status, code := "ready", fiber.StatusOK
		if !ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
