package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

// GeometryEnsurer is the part of usecases.GeometryService the activities need.
type GeometryEnsurer interface {
	Ensure(ctx context.Context, table string) (*domain.EnsureResult, error)
	Materialize(ctx context.Context, src, dst string) (*domain.MaterializeResult, error)
}

// GeometryActivities holds the activity implementations for the geometry workflows.
type GeometryActivities struct {
	Geometry GeometryEnsurer
}

// EnsureGeometryColumn runs the ensurer for one table.
func (a *GeometryActivities) EnsureGeometryColumn(ctx context.Context, table string) (*domain.EnsureResult, error) {
	activity.GetLogger(ctx).Info("ensuring geometry column", "table", table)

	res, err := a.Geometry.Ensure(ctx, table)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// MaterializeGeometryTable copies src into dst with a geometry column.
func (a *GeometryActivities) MaterializeGeometryTable(ctx context.Context, src, dst string) (*domain.MaterializeResult, error) {
	activity.GetLogger(ctx).Info("materializing geometry table", "source", src, "target", dst)

	res, err := a.Geometry.Materialize(ctx, src, dst)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// classify marks errors that a retry cannot fix as non-retryable.
func classify(err error) error {
	switch {
	case domain.IsValidation(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
	case errors.Is(err, domain.ErrTableNotAllowed):
		return temporal.NewNonRetryableApplicationError(err.Error(), "TableNotAllowed", err)
	case errors.Is(err, domain.ErrTableNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), "TableNotFound", err)
	case errors.Is(err, domain.ErrMissingSourceColumns):
		return temporal.NewNonRetryableApplicationError(err.Error(), "MissingSourceColumns", err)
	}
	return err
}
