package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with a sunset date.
type DeprecatedRoute struct {
	Path        string    // exact request path
	SunsetDate  time.Time // date the endpoint will be removed
	Alternative string    // successor endpoint (optional)
}

// DeprecationMiddleware stamps deprecated endpoints with Deprecation and
// Sunset headers (RFC 8594) plus a successor Link (RFC 8288) so clients
// of the legacy flat API can migrate before removal.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, d := range deprecated {
			if c.Path() != d.Path {
				continue
			}

			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))
			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}

			if days := time.Until(d.SunsetDate).Hours() / 24; days > 0 {
				c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			}
			break
		}

		return c.Next()
	}
}
