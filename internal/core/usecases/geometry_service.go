package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/poigeo/internal/core/domain"
	"github.com/samirrijal/poigeo/internal/core/ports"
	"github.com/samirrijal/poigeo/internal/pkg/geospatial"
	"github.com/samirrijal/poigeo/internal/pkg/metrics"
	"github.com/samirrijal/poigeo/internal/pkg/telemetry"
)

// ErrNoPublisher is returned by RequestEnsure when no broker is configured.
var ErrNoPublisher = errors.New("event publisher not configured")

// MaterializedSuffix names the default target of Materialize.
const MaterializedSuffix = "_geo"

// DistanceColumn is added to every record returned by Nearby.
const DistanceColumn = "distance_m"

const (
	maxNearbyRadius = 50000.0
	maxNearbyLimit  = 200
)

// GeometryOptions configures a GeometryService.
type GeometryOptions struct {
	Spec            domain.GeometrySpec
	AllowedTables   []string // empty allows every valid table
	CacheTTLSeconds int      // 0 disables result caching
}

// GeometryService ensures geometry columns and runs bounding-box queries.
type GeometryService struct {
	repo    ports.GeometryRepository
	cache   ports.CacheService
	events  ports.EventPublisher
	spec    domain.GeometrySpec
	allowed map[string]bool
	ttl     int
	now     func() time.Time
}

// NewGeometryService creates a new GeometryService. cache and events may be nil.
func NewGeometryService(repo ports.GeometryRepository, cache ports.CacheService, events ports.EventPublisher, opts GeometryOptions) *GeometryService {
	spec := opts.Spec
	if spec == (domain.GeometrySpec{}) {
		spec = domain.DefaultGeometrySpec()
	}

	var allowed map[string]bool
	if len(opts.AllowedTables) > 0 {
		allowed = make(map[string]bool, len(opts.AllowedTables))
		for _, t := range opts.AllowedTables {
			allowed[t] = true
		}
	}

	return &GeometryService{
		repo:    repo,
		cache:   cache,
		events:  events,
		spec:    spec,
		allowed: allowed,
		ttl:     opts.CacheTTLSeconds,
		now:     time.Now,
	}
}

// Spec returns the geometry column layout the service operates on.
func (s *GeometryService) Spec() domain.GeometrySpec {
	return s.spec
}

// ResolveTable validates a table name and checks it against the allow-list.
func (s *GeometryService) ResolveTable(table string) (domain.TableRef, error) {
	ref, err := domain.ParseTableRef(table)
	if err != nil {
		return domain.TableRef{}, err
	}
	if s.allowed != nil && !s.allowed[ref.String()] {
		return domain.TableRef{}, fmt.Errorf("%w: %s", domain.ErrTableNotAllowed, ref)
	}
	return ref, nil
}

// Ensure makes sure the geometry column exists on table.
func (s *GeometryService) Ensure(ctx context.Context, table string) (res *domain.EnsureResult, err error) {
	ctx, end := telemetry.StartSpan(ctx, "geometry.ensure", attribute.String("table", table))
	defer func() { end(err) }()

	ref, err := s.ResolveTable(table)
	if err != nil {
		return nil, err
	}
	return s.ensure(ctx, ref)
}

func (s *GeometryService) ensure(ctx context.Context, ref domain.TableRef) (*domain.EnsureResult, error) {
	res, err := s.repo.EnsureGeometryColumn(ctx, ref, s.spec)
	if err != nil {
		metrics.EnsureRuns.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "ensure geometry column failed", "table", ref.String(), "error", err)
		return nil, err
	}

	if !res.Created {
		metrics.EnsureRuns.WithLabelValues("present").Inc()
		slog.DebugContext(ctx, "geometry column already exists", "table", res.Table, "column", res.Column)
		return res, nil
	}

	metrics.EnsureRuns.WithLabelValues("created").Inc()
	metrics.RowsBackfilled.Add(float64(res.RowsBackfilled))
	slog.InfoContext(ctx, "geometry column created",
		"table", res.Table,
		"column", res.Column,
		"rows_backfilled", res.RowsBackfilled,
		"index", res.IndexName,
	)

	s.invalidate(ctx, res.Table)
	s.publish(ctx, &domain.SchemaEvent{
		ID:    uuid.NewString(),
		Kind:  domain.EventGeometryColumnCreated,
		Table: res.Table,
		Rows:  res.RowsBackfilled,
		Time:  s.now().UTC(),
	})
	return res, nil
}

// Materialize creates dst as a copy of src with a geometry column added.
// An empty dst defaults to src + MaterializedSuffix.
func (s *GeometryService) Materialize(ctx context.Context, src, dst string) (res *domain.MaterializeResult, err error) {
	if dst == "" {
		dst = src + MaterializedSuffix
	}
	ctx, end := telemetry.StartSpan(ctx, "geometry.materialize",
		attribute.String("source", src), attribute.String("target", dst))
	defer func() { end(err) }()

	srcRef, err := s.ResolveTable(src)
	if err != nil {
		return nil, err
	}
	dstRef, err := s.ResolveTable(dst)
	if err != nil {
		return nil, err
	}
	if srcRef == dstRef {
		return nil, fmt.Errorf("%w: source and target are both %s", domain.ErrInvalidTable, srcRef)
	}

	res, err = s.repo.MaterializeGeometryTable(ctx, srcRef, dstRef, s.spec)
	if err != nil {
		metrics.Materializations.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "materialize geometry table failed", "source", srcRef.String(), "target", dstRef.String(), "error", err)
		return nil, err
	}
	if !res.Created {
		metrics.Materializations.WithLabelValues("present").Inc()
		return res, nil
	}

	metrics.Materializations.WithLabelValues("created").Inc()
	slog.InfoContext(ctx, "geometry table materialized", "source", res.Source, "target", res.Target, "rows", res.Rows)
	s.invalidate(ctx, res.Target)
	s.publish(ctx, &domain.SchemaEvent{
		ID:     uuid.NewString(),
		Kind:   domain.EventGeometryTableMaterialized,
		Table:  res.Target,
		Source: res.Source,
		Rows:   res.Rows,
		Time:   s.now().UTC(),
	})
	return res, nil
}

// Query returns every record of table inside bbox ("minLng,minLat,maxLng,maxLat")
// whose category is selected by categories ("all" or a comma list).
// Inputs are validated before the database is touched; the geometry column
// is ensured on every call.
func (s *GeometryService) Query(ctx context.Context, table, bbox, categories string) (records []domain.Record, err error) {
	ctx, end := telemetry.StartSpan(ctx, "geometry.query",
		attribute.String("table", table), attribute.String("bbox", bbox))
	defer func() { end(err) }()

	ref, err := s.ResolveTable(table)
	if err != nil {
		return nil, err
	}
	bounds, err := domain.ParseBounds(bbox)
	if err != nil {
		return nil, err
	}
	filter, err := domain.ParseCategoryFilter(categories)
	if err != nil {
		return nil, err
	}

	err = s.withEnsured(ctx, ref, func(ctx context.Context) error {
		records, err = s.queryBounds(ctx, ref, bounds, filter)
		return err
	})
	return records, err
}

// Nearby returns records within radiusMeters of (lat, lon), nearest first,
// each with a distance_m field.
func (s *GeometryService) Nearby(ctx context.Context, table string, lat, lon, radiusMeters float64, categories string, limit int) (records []domain.Record, err error) {
	ctx, end := telemetry.StartSpan(ctx, "geometry.nearby", attribute.String("table", table))
	defer func() { end(err) }()

	if limit <= 0 || limit > maxNearbyLimit {
		limit = maxNearbyLimit
	}
	if radiusMeters <= 0 || radiusMeters > maxNearbyRadius {
		return nil, fmt.Errorf("%w: radius must be between 0 and %.0f meters", domain.ErrInvalidBounds, maxNearbyRadius)
	}
	center := domain.Bounds{MinLon: lon, MinLat: lat, MaxLon: lon, MaxLat: lat}
	if err := center.Validate(); err != nil {
		return nil, err
	}

	ref, err := s.ResolveTable(table)
	if err != nil {
		return nil, err
	}
	filter, err := domain.ParseCategoryFilter(categories)
	if err != nil {
		return nil, err
	}

	// Near the antimeridian the search area is split into two boxes.
	var candidates []domain.Record
	err = s.withEnsured(ctx, ref, func(ctx context.Context) error {
		for _, box := range geospatial.BoundingBoxes(lat, lon, radiusMeters) {
			found, err := s.queryBounds(ctx, ref, box, filter)
			if err != nil {
				return err
			}
			candidates = append(candidates, found...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range candidates {
		rLng, okLng := domain.Float(r[s.spec.LngColumn])
		rLat, okLat := domain.Float(r[s.spec.LatColumn])
		if !okLng || !okLat {
			continue
		}
		d := geospatial.Haversine(lat, lon, rLat, rLng)
		if d > radiusMeters {
			continue
		}
		r[DistanceColumn] = d
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i][DistanceColumn].(float64) < records[j][DistanceColumn].(float64)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// RequestEnsure publishes an asynchronous ensure request for table.
func (s *GeometryService) RequestEnsure(ctx context.Context, table string) (*domain.EnsureRequest, error) {
	ref, err := s.ResolveTable(table)
	if err != nil {
		return nil, err
	}
	if s.events == nil {
		return nil, ErrNoPublisher
	}

	req := &domain.EnsureRequest{
		ID:          uuid.NewString(),
		Table:       ref.String(),
		RequestedAt: s.now().UTC(),
	}
	if err := s.events.PublishEnsureRequest(ctx, req); err != nil {
		metrics.EventsPublished.WithLabelValues("ensure_request", "error").Inc()
		return nil, fmt.Errorf("publish ensure request: %w", err)
	}
	metrics.EventsPublished.WithLabelValues("ensure_request", "ok").Inc()
	return req, nil
}

// withEnsured runs the ensurer and then fn on one database connection.
func (s *GeometryService) withEnsured(ctx context.Context, ref domain.TableRef, fn func(ctx context.Context) error) error {
	return s.repo.WithConnection(ctx, func(ctx context.Context) error {
		if _, err := s.ensure(ctx, ref); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (s *GeometryService) queryBounds(ctx context.Context, ref domain.TableRef, bounds domain.Bounds, filter domain.CategoryFilter) ([]domain.Record, error) {
	caching := s.cache != nil && s.ttl > 0
	cacheKey := cachePrefix(ref.String()) + bounds.String() + ":" + filter.Key()

	if caching {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			records, err := decodeRecords(data)
			if err == nil {
				metrics.CacheHits.WithLabelValues("pois").Inc()
				return records, nil
			}
			slog.WarnContext(ctx, "dropping unreadable cache entry", "key", cacheKey, "error", err)
			_ = s.cache.Delete(ctx, cacheKey)
		}
		metrics.CacheMisses.WithLabelValues("pois").Inc()
	}

	start := time.Now()
	records, err := s.repo.QueryBounds(ctx, ref, s.spec, bounds, filter)
	metrics.QueryDuration.WithLabelValues(ref.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.ErrorContext(ctx, "bounding box query failed", "table", ref.String(), "bbox", bounds.String(), "error", err)
		return nil, err
	}
	metrics.QueryResults.WithLabelValues(ref.String()).Observe(float64(len(records)))

	if caching {
		data, err := encodeRecords(records)
		if err != nil {
			slog.DebugContext(ctx, "query result not cached", "table", ref.String(), "error", err)
		} else {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}

	return records, nil
}

func cachePrefix(table string) string {
	return "pois:" + table + ":"
}

// invalidate drops cached query results for table after its schema changed.
func (s *GeometryService) invalidate(ctx context.Context, table string) {
	inv, ok := s.cache.(ports.CacheInvalidator)
	if !ok {
		return
	}
	n, err := inv.DeletePrefix(ctx, cachePrefix(table))
	if err != nil {
		slog.WarnContext(ctx, "cache invalidation failed", "table", table, "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "cache invalidated", "table", table, "keys", n)
	}
}

func (s *GeometryService) publish(ctx context.Context, event *domain.SchemaEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSchemaEvent(ctx, event); err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Kind), "error").Inc()
		slog.WarnContext(ctx, "publish schema event failed", "kind", event.Kind, "table", event.Table, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(event.Kind), "ok").Inc()
}
