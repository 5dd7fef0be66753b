// Command geomctl runs geometry maintenance and spatial queries from the shell.
//
//	geomctl ensure [table...]
//	geomctl materialize [source] [target]
//	geomctl query [-format json|geojson] [table] <bbox> [types]
//	geomctl nearby [table] <lat> <lon> <radius> [types]
//	geomctl schedule [table...]
//	geomctl schedule-materialize [source] [target]
//
// An omitted table falls back to geometry.default_table.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.temporal.io/sdk/client"

	natsadapter "github.com/samirrijal/poigeo/internal/adapters/nats"
	"github.com/samirrijal/poigeo/internal/adapters/postgres"
	"github.com/samirrijal/poigeo/internal/core/domain"
	"github.com/samirrijal/poigeo/internal/core/ports"
	"github.com/samirrijal/poigeo/internal/core/usecases"
	"github.com/samirrijal/poigeo/internal/pkg/config"
	"github.com/samirrijal/poigeo/internal/pkg/logging"
	"github.com/samirrijal/poigeo/internal/workflows"
)

const usage = `usage: geomctl <command> [args]

commands:
  ensure [table...]                         add, back-fill and index the geometry column
  materialize [source] [target]             copy source into target (default <source>_geo)
  query [-format json|geojson] [table] <bbox> [types]
                                            records inside minLng,minLat,maxLng,maxLat
  nearby [table] <lat> <lon> <radius> [types]
                                            records within radius meters, nearest first
  schedule [table...]                       start ensure workflows on Temporal
  schedule-materialize [source] [target]    start a materialize workflow on Temporal

an omitted table defaults to geometry.default_table
`

var errUsage = errors.New("invalid arguments")

func main() {
	cfg, err := config.Load("poigeo-geomctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Telemetry.ServiceName, cfg.Log.Level, "text"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		slog.Error("geomctl failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	defaultTable := cfg.Geometry.DefaultTable

	// Validate arguments before opening any connection.
	var exec func(ctx context.Context, svc *usecases.GeometryService) (any, error)
	switch cmd {
	case "ensure":
		tables, err := tablesOrDefault(rest, defaultTable)
		if err != nil {
			return err
		}
		exec = func(ctx context.Context, svc *usecases.GeometryService) (any, error) {
			results := make([]*domain.EnsureResult, 0, len(tables))
			for _, table := range tables {
				res, err := svc.Ensure(ctx, table)
				if err != nil {
					return nil, fmt.Errorf("ensure %s: %w", table, err)
				}
				results = append(results, res)
			}
			return results, nil
		}

	case "materialize":
		source, target, err := parseMaterializeArgs(rest, defaultTable)
		if err != nil {
			return err
		}
		exec = func(ctx context.Context, svc *usecases.GeometryService) (any, error) {
			return svc.Materialize(ctx, source, target)
		}

	case "query":
		q, err := parseQueryArgs(rest, defaultTable)
		if err != nil {
			return err
		}
		exec = func(ctx context.Context, svc *usecases.GeometryService) (any, error) {
			records, err := svc.Query(ctx, q.table, q.bbox, q.types)
			if err != nil {
				return nil, err
			}
			if q.format == "geojson" {
				return domain.NewFeatureCollection(records, svc.Spec()), nil
			}
			return records, nil
		}

	case "nearby":
		n, err := parseNearbyArgs(rest, defaultTable)
		if err != nil {
			return err
		}
		exec = func(ctx context.Context, svc *usecases.GeometryService) (any, error) {
			return svc.Nearby(ctx, n.table, n.lat, n.lon, n.radius, n.types, 0)
		}

	case "schedule":
		tables, err := tablesOrDefault(rest, defaultTable)
		if err != nil {
			return err
		}
		return schedule(ctx, cfg, tables, out)

	case "schedule-materialize":
		source, target, err := parseMaterializeArgs(rest, defaultTable)
		if err != nil {
			return err
		}
		return scheduleMaterialize(ctx, cfg, source, target, out)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Geometry.OperationTimeout())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	// Schema events are best effort from the CLI.
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Debug("nats unavailable, schema events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	svc := usecases.NewGeometryService(postgres.NewGeometryRepo(db), nil, events, usecases.GeometryOptions{
		Spec:          cfg.Geometry.Spec(),
		AllowedTables: cfg.Geometry.AllowedTables,
	})

	result, err := exec(ctx, svc)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

// tablesOrDefault returns args, or the default table when none are given.
func tablesOrDefault(args []string, defaultTable string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if defaultTable == "" {
		return nil, fmt.Errorf("%w: no table given and geometry.default_table is not set", errUsage)
	}
	return []string{defaultTable}, nil
}

// parseMaterializeArgs returns source and target. An empty target lets the
// service pick <source>_geo.
func parseMaterializeArgs(args []string, defaultTable string) (source, target string, err error) {
	switch len(args) {
	case 0:
		if defaultTable == "" {
			return "", "", fmt.Errorf("%w: materialize [source] [target] needs a source or geometry.default_table", errUsage)
		}
		return defaultTable, "", nil
	case 1:
		return args[0], "", nil
	case 2:
		return args[0], args[1], nil
	}
	return "", "", fmt.Errorf("%w: materialize [source] [target]", errUsage)
}

type queryArgs struct {
	table, bbox, types, format string
}

func parseQueryArgs(args []string, defaultTable string) (queryArgs, error) {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", "json", "json or geojson")
	if err := fs.Parse(args); err != nil {
		return queryArgs{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	if *format != "json" && *format != "geojson" {
		return queryArgs{}, fmt.Errorf("%w: format must be json or geojson", errUsage)
	}

	rest := fs.Args()
	// Table names never contain commas and a bbox always does.
	if defaultTable != "" && len(rest) > 0 && strings.Contains(rest[0], ",") {
		rest = append([]string{defaultTable}, rest...)
	}
	if len(rest) < 2 || len(rest) > 3 {
		return queryArgs{}, fmt.Errorf("%w: query [table] <bbox> [types]", errUsage)
	}
	q := queryArgs{table: rest[0], bbox: rest[1], types: domain.CategoryAll, format: *format}
	if len(rest) == 3 {
		q.types = rest[2]
	}
	return q, nil
}

type nearbyArgs struct {
	table            string
	lat, lon, radius float64
	types            string
}

func parseNearbyArgs(args []string, defaultTable string) (nearbyArgs, error) {
	// A table name cannot parse as a number.
	if defaultTable != "" && len(args) > 0 {
		if _, err := strconv.ParseFloat(args[0], 64); err == nil {
			args = append([]string{defaultTable}, args...)
		}
	}
	if len(args) < 4 || len(args) > 5 {
		return nearbyArgs{}, fmt.Errorf("%w: nearby [table] <lat> <lon> <radius> [types]", errUsage)
	}
	n := nearbyArgs{table: args[0], types: domain.CategoryAll}

	var err error
	for i, dst := range []*float64{&n.lat, &n.lon, &n.radius} {
		if *dst, err = strconv.ParseFloat(args[i+1], 64); err != nil {
			return nearbyArgs{}, fmt.Errorf("%w: %q is not a number", errUsage, args[i+1])
		}
	}
	if len(args) == 5 {
		n.types = args[4]
	}
	return n, nil
}

type scheduled struct {
	Table      string `json:"table"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

type workflowStart struct {
	table    string
	id       string
	workflow any
	input    any
}

// schedule starts one EnsureGeometryWorkflow per table. Requests for a table
// whose workflow is still running attach to that run.
func schedule(ctx context.Context, cfg *config.Config, tables []string, out io.Writer) error {
	starts := make([]workflowStart, 0, len(tables))
	for _, t := range tables {
		ref, err := domain.ParseTableRef(t)
		if err != nil {
			return err
		}
		starts = append(starts, workflowStart{
			table:    ref.String(),
			id:       workflows.EnsureWorkflowID(ref.String()),
			workflow: workflows.EnsureGeometryWorkflow,
			input:    workflows.EnsureWorkflowInput{Table: ref.String()},
		})
	}
	return startWorkflows(ctx, cfg, starts, out)
}

// scheduleMaterialize starts a MaterializeGeometryWorkflow copying source
// into target.
func scheduleMaterialize(ctx context.Context, cfg *config.Config, source, target string, out io.Writer) error {
	if target == "" {
		target = source + usecases.MaterializedSuffix
	}
	src, err := domain.ParseTableRef(source)
	if err != nil {
		return err
	}
	dst, err := domain.ParseTableRef(target)
	if err != nil {
		return err
	}
	return startWorkflows(ctx, cfg, []workflowStart{{
		table:    dst.String(),
		id:       workflows.MaterializeWorkflowID(src.String(), dst.String()),
		workflow: workflows.MaterializeGeometryWorkflow,
		input:    workflows.MaterializeWorkflowInput{Source: src.String(), Target: dst.String()},
	}}, out)
}

func startWorkflows(ctx context.Context, cfg *config.Config, starts []workflowStart, out io.Writer) error {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	runs := make([]scheduled, 0, len(starts))
	for _, st := range starts {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        st.id,
			TaskQueue: cfg.Temporal.TaskQueue,
		}, st.workflow, st.input)
		if err != nil {
			return fmt.Errorf("start workflow for %s: %w", st.table, err)
		}
		runs = append(runs, scheduled{Table: st.table, WorkflowID: run.GetID(), RunID: run.GetRunID()})
	}
	return writeJSON(out, runs)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
