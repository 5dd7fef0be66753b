package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/poigeo/internal/adapters/postgres"
	"github.com/samirrijal/poigeo/internal/adapters/valkey"
	"github.com/samirrijal/poigeo/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Geometry *usecases.GeometryService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache

	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}
