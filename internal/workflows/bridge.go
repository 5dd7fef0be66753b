package workflows

import (
	"context"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/poigeo/internal/core/domain"
	"github.com/samirrijal/poigeo/internal/core/ports"
)

// WorkflowStarter is the part of client.Client used to start workflows.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// StartEnsureOnRequest turns every ensure request received from sub into an
// EnsureGeometryWorkflow on taskQueue. Requests for a table whose workflow is
// still running attach to that run. A failed start is returned to the
// subscriber so the request is redelivered.
func StartEnsureOnRequest(ctx context.Context, sub ports.EventSubscriber, starter WorkflowStarter, taskQueue string) error {
	return sub.SubscribeEnsureRequests(ctx, func(ctx context.Context, req *domain.EnsureRequest) error {
		run, err := starter.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        EnsureWorkflowID(req.Table),
			TaskQueue: taskQueue,
		}, EnsureGeometryWorkflow, EnsureWorkflowInput{Table: req.Table, RequestID: req.ID})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "ensure workflow started",
			"table", req.Table,
			"request", req.ID,
			"workflow", run.GetID(),
			"run", run.GetRunID(),
		)
		return nil
	})
}
