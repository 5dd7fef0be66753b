package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/poigeo/internal/core/domain"
	"github.com/samirrijal/poigeo/internal/pkg/telemetry"
)

// GeometryRepo implements ports.GeometryRepository with pgx and PostGIS.
type GeometryRepo struct {
	db *DB
}

// NewGeometryRepo creates a new GeometryRepo.
func NewGeometryRepo(db *DB) *GeometryRepo {
	return &GeometryRepo{db: db}
}

type connKey struct{}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithConnection acquires one pooled connection and runs fn with it bound to
// ctx. Repository calls made with that ctx reuse the connection.
func (r *GeometryRepo) WithConnection(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(connKey{}).(*pgxpool.Conn); ok {
		return fn(ctx)
	}
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()
	return fn(context.WithValue(ctx, connKey{}, conn))
}

// conn returns the connection bound by WithConnection, or acquires one that
// the caller releases.
func (r *GeometryRepo) conn(ctx context.Context) (*pgxpool.Conn, func(), error) {
	if conn, ok := ctx.Value(connKey{}).(*pgxpool.Conn); ok {
		return conn, func() {}, nil
	}
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, conn.Release, nil
}

// EnsureGeometryColumn adds, back-fills, and indexes the geometry column when
// missing. All steps share one transaction, serialized per table by an
// advisory lock, so a failure leaves the table unchanged. An existing column
// is detected without taking the lock.
func (r *GeometryRepo) EnsureGeometryColumn(ctx context.Context, table domain.TableRef, spec domain.GeometrySpec) (res *domain.EnsureResult, err error) {
	ctx, end := telemetry.StartDBSpan(ctx, "ensure", table.String())
	defer func() { end(err) }()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	conn, release, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res = &domain.EnsureResult{Table: table.String(), Column: spec.Column}

	oid, err := tableOID(ctx, conn, table)
	if err != nil {
		return nil, err
	}
	if oid != 0 {
		has, err := columnExists(ctx, conn, oid, spec.Column)
		if err != nil {
			return nil, err
		}
		if has {
			return res, nil
		}
	}

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		oid, err := requireTable(ctx, tx, table)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, tableLockSQL, int64(oid)); err != nil {
			return fmt.Errorf("lock %s: %w", table, err)
		}

		// Another ensurer may have finished while we waited for the lock.
		has, err := columnExists(ctx, tx, oid, spec.Column)
		if err != nil {
			return err
		}
		if has {
			return nil
		}

		if _, err := tx.Exec(ctx, createExtensionSQL); err != nil {
			return fmt.Errorf("enable postgis: %w", err)
		}
		if err := requireSourceColumns(ctx, tx, table, oid, spec); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, addColumnSQL(table, spec)); err != nil {
			return fmt.Errorf("add column %s: %w", spec.Column, err)
		}
		tag, err := tx.Exec(ctx, backfillSQL(table, spec))
		if err != nil {
			return fmt.Errorf("backfill %s: %w", spec.Column, err)
		}
		if _, err := tx.Exec(ctx, createIndexSQL(table, spec)); err != nil {
			return fmt.Errorf("create index %s: %w", table.IndexName(), err)
		}

		res.Created = true
		res.RowsBackfilled = tag.RowsAffected()
		res.IndexName = table.IndexName()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// MaterializeGeometryTable creates dst as a copy of src with a geometry
// column computed from lng/lat, and indexes it. An existing dst is only
// indexed.
func (r *GeometryRepo) MaterializeGeometryTable(ctx context.Context, src, dst domain.TableRef, spec domain.GeometrySpec) (res *domain.MaterializeResult, err error) {
	ctx, end := telemetry.StartDBSpan(ctx, "materialize", dst.String())
	defer func() { end(err) }()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	conn, release, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res = &domain.MaterializeResult{Source: src.String(), Target: dst.String(), IndexName: dst.IndexName()}
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, targetLockSQL, dst.Schema, dst.Name); err != nil {
			return fmt.Errorf("lock %s: %w", dst, err)
		}
		if _, err := tx.Exec(ctx, createExtensionSQL); err != nil {
			return fmt.Errorf("enable postgis: %w", err)
		}

		dstOID, err := tableOID(ctx, tx, dst)
		if err != nil {
			return err
		}

		if dstOID == 0 {
			srcOID, err := requireTable(ctx, tx, src)
			if err != nil {
				return err
			}
			srcHasGeom, err := columnExists(ctx, tx, srcOID, spec.Column)
			if err != nil {
				return err
			}
			if !srcHasGeom {
				if err := requireSourceColumns(ctx, tx, src, srcOID, spec); err != nil {
					return err
				}
			}
			tag, err := tx.Exec(ctx, materializeSQL(src, dst, spec, srcHasGeom))
			if err != nil {
				return fmt.Errorf("create table %s: %w", dst, err)
			}
			res.Created = true
			res.Rows = tag.RowsAffected()
		}

		if _, err := tx.Exec(ctx, createIndexSQL(dst, spec)); err != nil {
			return fmt.Errorf("create index %s: %w", dst.IndexName(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// QueryBounds returns all rows whose geometry intersects the box, each with a
// geojson column.
func (r *GeometryRepo) QueryBounds(ctx context.Context, table domain.TableRef, spec domain.GeometrySpec, bounds domain.Bounds, categories domain.CategoryFilter) (records []domain.Record, err error) {
	ctx, end := telemetry.StartDBSpan(ctx, "query", table.String())
	defer func() { end(err) }()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	conn, release, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query, args := boundsQuery(table, spec, bounds, categories)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	records, err = pgx.CollectRows(rows, rowToRecord)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	return records, nil
}

func rowToRecord(row pgx.CollectableRow) (domain.Record, error) {
	m, err := pgx.RowToMap(row)
	if err != nil {
		return nil, err
	}
	return domain.Record(m), nil
}

func tableOID(ctx context.Context, q rowQuerier, table domain.TableRef) (uint32, error) {
	var oid uint32
	if err := q.QueryRow(ctx, tableOIDSQL, quoteTable(table)).Scan(&oid); err != nil {
		return 0, fmt.Errorf("resolve table %s: %w", table, err)
	}
	return oid, nil
}

func requireTable(ctx context.Context, q rowQuerier, table domain.TableRef) (uint32, error) {
	oid, err := tableOID(ctx, q, table)
	if err != nil {
		return 0, err
	}
	if oid == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrTableNotFound, table)
	}
	return oid, nil
}

func columnExists(ctx context.Context, q rowQuerier, oid uint32, column string) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, columnExistsSQL, oid, column).Scan(&exists); err != nil {
		return false, fmt.Errorf("check column %s: %w", column, err)
	}
	return exists, nil
}

func requireSourceColumns(ctx context.Context, q rowQuerier, table domain.TableRef, oid uint32, spec domain.GeometrySpec) error {
	for _, col := range []string{spec.LngColumn, spec.LatColumn} {
		ok, err := columnExists(ctx, q, oid, col)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s has no %q column", domain.ErrMissingSourceColumns, table, col)
		}
	}
	return nil
}
