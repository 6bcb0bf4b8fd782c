package http

import "github.com/gofiber/fiber/v2"

// APIError is the JSON error envelope every endpoint returns on failure.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // stable machine code: bad_request, not_found, ...
	Message   string `json:"message"` // human-readable detail
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response carrying the request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errTooManyPairs rejects a cross-product too large to compute inline.
// Callers should retry against a stored match run instead.
func errTooManyPairs(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnprocessableEntity, "too_many_pairs", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnavailable reports a backing system that is down or not wired,
// such as the import workflow engine.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}
