package ports

import (
	"context"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

// GeometryRepository manages geometry columns on POI tables and queries them.
type GeometryRepository interface {
	// EnsureGeometryColumn adds, back-fills, and indexes the geometry column
	// when it is missing. It is a no-op when the column already exists.
	EnsureGeometryColumn(ctx context.Context, table domain.TableRef, spec domain.GeometrySpec) (*domain.EnsureResult, error)
	// MaterializeGeometryTable copies src into dst with a geometry column added.
	MaterializeGeometryTable(ctx context.Context, src, dst domain.TableRef, spec domain.GeometrySpec) (*domain.MaterializeResult, error)
	// QueryBounds returns every row whose geometry intersects the box.
	QueryBounds(ctx context.Context, table domain.TableRef, spec domain.GeometrySpec, bounds domain.Bounds, categories domain.CategoryFilter) ([]domain.Record, error)
	// WithConnection runs fn on one pooled connection. Calls made with the
	// ctx passed to fn share that connection.
	WithConnection(ctx context.Context, fn func(ctx context.Context) error) error
}
