package usecases

import "errors"

// ErrInvalidInput wraps request validation failures so transports can map
// them to client errors instead of server errors.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnavailable marks operations whose backing system is not wired or
// not reachable, so transports can answer 503 instead of 500.
var ErrUnavailable = errors.New("backend unavailable")
