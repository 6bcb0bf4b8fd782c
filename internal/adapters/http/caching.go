package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case strings.HasPrefix(path, "/v1/matches/best"):
			ttl = "public, max-age=60" // Rankings churn with set edits

		case strings.HasPrefix(path, "/v1/matches/runs"):
			ttl = "public, max-age=60" // Run history grows constantly

		case strings.HasPrefix(path, "/v1/venues"):
			ttl = "public, max-age=300" // 5 min for location queries

		case strings.HasPrefix(path, "/v1/pointsets"):
			ttl = "public, max-age=300" // 5 min for set contents

		case strings.HasPrefix(path, "/v1/imports"):
			ttl = "no-cache" // Job status must stay fresh

		case path == "/v1/stats":
			ttl = "public, max-age=60" // Table stats: 1 min

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300" // 5 min default for API endpoints
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
