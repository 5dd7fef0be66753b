package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

// Activity names as registered from GeometryActivities.
const (
	EnsureActivity      = "EnsureGeometryColumn"
	MaterializeActivity = "MaterializeGeometryTable"
)

// EnsureWorkflowInput is the input for EnsureGeometryWorkflow.
type EnsureWorkflowInput struct {
	Table     string
	RequestID string
}

// MaterializeWorkflowInput is the input for MaterializeGeometryWorkflow.
type MaterializeWorkflowInput struct {
	Source string
	Target string
}

// EnsureWorkflowID keeps one running ensure per table; duplicate requests
// collapse onto the running execution.
func EnsureWorkflowID(table string) string {
	return "ensure-" + table
}

// MaterializeWorkflowID is the workflow ID for copying source into target.
func MaterializeWorkflowID(source, target string) string {
	return "materialize-" + source + "-" + target
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
}

// EnsureGeometryWorkflow ensures the geometry column of one table.
func EnsureGeometryWorkflow(ctx workflow.Context, input EnsureWorkflowInput) (*domain.EnsureResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting ensure geometry workflow", "table", input.Table, "request", input.RequestID)

	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var res domain.EnsureResult
	if err := workflow.ExecuteActivity(ctx, EnsureActivity, input.Table).Get(ctx, &res); err != nil {
		logger.Error("ensure geometry failed", "table", input.Table, "error", err)
		return nil, err
	}

	logger.Info("Geometry ensured", "table", res.Table, "created", res.Created, "rows", res.RowsBackfilled)
	return &res, nil
}

// MaterializeGeometryWorkflow copies a table into a new geometry table.
func MaterializeGeometryWorkflow(ctx workflow.Context, input MaterializeWorkflowInput) (*domain.MaterializeResult, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var res domain.MaterializeResult
	if err := workflow.ExecuteActivity(ctx, MaterializeActivity, input.Source, input.Target).Get(ctx, &res); err != nil {
		return nil, err
	}

	workflow.GetLogger(ctx).Info("Geometry table materialized", "source", res.Source, "target", res.Target, "rows", res.Rows)
	return &res, nil
}

// Register adds the geometry workflows and activities to a worker.
func Register(w worker.Registry, acts *GeometryActivities) {
	w.RegisterWorkflow(EnsureGeometryWorkflow)
	w.RegisterWorkflow(MaterializeGeometryWorkflow)
	w.RegisterActivity(acts)
}
