package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	"github.com/samirrijal/halfway/internal/adapters/valkey"
	"github.com/samirrijal/halfway/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	PointSets *usecases.PointSetService
	Matches   *usecases.MatchService
	Venues    *usecases.VenueService
	Imports   *usecases.ImportService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
