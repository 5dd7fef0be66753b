package workflows_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/poigeo/internal/core/domain"
	"github.com/samirrijal/poigeo/internal/workflows"
)

type mockEnsurer struct {
	ensureFn func(ctx context.Context, table string) (*domain.EnsureResult, error)
	calls    int
}

func (m *mockEnsurer) Ensure(ctx context.Context, table string) (*domain.EnsureResult, error) {
	m.calls++
	return m.ensureFn(ctx, table)
}

func (m *mockEnsurer) Materialize(ctx context.Context, src, dst string) (*domain.MaterializeResult, error) {
	m.calls++
	return &domain.MaterializeResult{Source: src, Target: dst, Created: true, Rows: 5}, nil
}

func newEnv(t *testing.T, ensurer *mockEnsurer) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.EnsureGeometryWorkflow)
	env.RegisterWorkflow(workflows.MaterializeGeometryWorkflow)
	env.RegisterActivity(&workflows.GeometryActivities{Geometry: ensurer})
	return env
}

func TestEnsureGeometryWorkflow_Success(t *testing.T) {
	ensurer := &mockEnsurer{
		ensureFn: func(ctx context.Context, table string) (*domain.EnsureResult, error) {
			return &domain.EnsureResult{Table: table, Column: "the_geom", Created: true, RowsBackfilled: 12}, nil
		},
	}
	env := newEnv(t, ensurer)

	env.ExecuteWorkflow(workflows.EnsureGeometryWorkflow, workflows.EnsureWorkflowInput{Table: "poi"})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var res domain.EnsureResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Table != "poi" || !res.Created || res.RowsBackfilled != 12 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestEnsureGeometryWorkflow_RetriesTransientErrors(t *testing.T) {
	ensurer := &mockEnsurer{}
	ensurer.ensureFn = func(ctx context.Context, table string) (*domain.EnsureResult, error) {
		if ensurer.calls < 3 {
			return nil, errors.New("connection refused")
		}
		return &domain.EnsureResult{Table: table}, nil
	}
	env := newEnv(t, ensurer)

	env.ExecuteWorkflow(workflows.EnsureGeometryWorkflow, workflows.EnsureWorkflowInput{Table: "poi"})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if ensurer.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", ensurer.calls)
	}
}

func TestEnsureGeometryWorkflow_GivesUpAfterThreeAttempts(t *testing.T) {
	ensurer := &mockEnsurer{
		ensureFn: func(ctx context.Context, table string) (*domain.EnsureResult, error) {
			return nil, errors.New("connection refused")
		},
	}
	env := newEnv(t, ensurer)

	env.ExecuteWorkflow(workflows.EnsureGeometryWorkflow, workflows.EnsureWorkflowInput{Table: "poi"})

	if env.GetWorkflowError() == nil {
		t.Fatal("expected workflow error")
	}
	if ensurer.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", ensurer.calls)
	}
}

func TestEnsureGeometryWorkflow_DomainErrorsAreNotRetried(t *testing.T) {
	for _, sentinel := range []error{
		domain.ErrInvalidTable,
		domain.ErrTableNotAllowed,
		domain.ErrTableNotFound,
		domain.ErrMissingSourceColumns,
	} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			ensurer := &mockEnsurer{
				ensureFn: func(ctx context.Context, table string) (*domain.EnsureResult, error) {
					return nil, fmt.Errorf("%w: %s", sentinel, table)
				},
			}
			env := newEnv(t, ensurer)

			env.ExecuteWorkflow(workflows.EnsureGeometryWorkflow, workflows.EnsureWorkflowInput{Table: "poi"})

			if env.GetWorkflowError() == nil {
				t.Fatal("expected workflow error")
			}
			if ensurer.calls != 1 {
				t.Errorf("expected a single attempt, got %d", ensurer.calls)
			}
		})
	}
}

func TestMaterializeGeometryWorkflow(t *testing.T) {
	env := newEnv(t, &mockEnsurer{})

	env.ExecuteWorkflow(workflows.MaterializeGeometryWorkflow, workflows.MaterializeWorkflowInput{Source: "poi", Target: "poi_geo"})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res domain.MaterializeResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Target != "poi_geo" || res.Rows != 5 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestWorkflowIDs(t *testing.T) {
	if got := workflows.EnsureWorkflowID("geo.poi"); got != "ensure-geo.poi" {
		t.Errorf("unexpected ensure id %s", got)
	}
	if got := workflows.MaterializeWorkflowID("poi", "poi_geo"); got != "materialize-poi-poi_geo" {
		t.Errorf("unexpected materialize id %s", got)
	}
}
