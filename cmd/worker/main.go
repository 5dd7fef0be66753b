package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/poigeo/internal/adapters/nats"
	"github.com/samirrijal/poigeo/internal/adapters/postgres"
	"github.com/samirrijal/poigeo/internal/adapters/valkey"
	"github.com/samirrijal/poigeo/internal/core/ports"
	"github.com/samirrijal/poigeo/internal/core/usecases"
	"github.com/samirrijal/poigeo/internal/pkg/config"
	"github.com/samirrijal/poigeo/internal/pkg/logging"
	"github.com/samirrijal/poigeo/internal/pkg/telemetry"
	"github.com/samirrijal/poigeo/internal/workflows"
)

func main() {
	cfg, err := config.Load("poigeo-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache is only used to drop stale query results after a schema change.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable, cache invalidation disabled", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, schema events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	geometrySvc := usecases.NewGeometryService(postgres.NewGeometryRepo(db), cacheSvc, events, usecases.GeometryOptions{
		Spec:          cfg.Geometry.Spec(),
		AllowedTables: cfg.Geometry.AllowedTables,
	})

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	workflows.Register(w, &workflows.GeometryActivities{Geometry: geometrySvc})

	// Ensure requests from NATS become workflows.
	var sub ports.EventSubscriber
	natsSub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, only direct workflow starts will run", "error", err)
	} else {
		defer natsSub.Close()
		sub = natsSub
	}
	if sub != nil {
		if err := workflows.StartEnsureOnRequest(ctx, sub, c, cfg.Temporal.TaskQueue); err != nil {
			log.Fatalf("subscribe ensure requests: %v", err)
		}
	}

	slog.Info("geometry worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
