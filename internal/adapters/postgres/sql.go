package postgres

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

// Identifiers cannot be bound, so they are validated by the domain layer and
// quoted here. Every value is a bound parameter.

const (
	createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS postgis`

	// tableOIDSQL resolves a table the way the statements that follow will,
	// through search_path for unqualified names. 0 means no such table.
	tableOIDSQL = `SELECT COALESCE(to_regclass($1)::oid, 0::oid)`

	columnExistsSQL = `
		SELECT EXISTS (
			SELECT 1 FROM pg_attribute
			WHERE attrelid = $1
			  AND attname = $2
			  AND attnum > 0
			  AND NOT attisdropped
		)`

	// Ensurers lock on the table OID so "poi" and "public.poi" serialize.
	tableLockSQL = `SELECT pg_advisory_xact_lock($1)`

	// A materialize target may not exist yet, so it is locked by the
	// qualified name CREATE TABLE would use.
	targetLockSQL = `SELECT pg_advisory_xact_lock(hashtext(COALESCE(NULLIF($1, ''), current_schema()) || '.' || $2))`
)

func quoteTable(t domain.TableRef) string {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func pointExpr(prefix string, spec domain.GeometrySpec) string {
	return fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s%s, %s%s), %d)",
		prefix, quoteIdent(spec.LngColumn), prefix, quoteIdent(spec.LatColumn), spec.SRID)
}

func addColumnSQL(t domain.TableRef, spec domain.GeometrySpec) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s geometry(Point, %d)",
		quoteTable(t), quoteIdent(spec.Column), spec.SRID)
}

func backfillSQL(t domain.TableRef, spec domain.GeometrySpec) string {
	col := quoteIdent(spec.Column)
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL",
		quoteTable(t), col, pointExpr("", spec), col)
}

func createIndexSQL(t domain.TableRef, spec domain.GeometrySpec) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (%s)",
		quoteIdent(t.IndexName()), quoteTable(t), quoteIdent(spec.Column))
}

// materializeSQL copies src into dst. When src already carries the geometry
// column it is copied as-is instead of being recomputed.
func materializeSQL(src, dst domain.TableRef, spec domain.GeometrySpec, srcHasGeom bool) string {
	if srcHasGeom {
		return fmt.Sprintf("CREATE TABLE %s AS SELECT t.* FROM %s t", quoteTable(dst), quoteTable(src))
	}
	return fmt.Sprintf("CREATE TABLE %s AS SELECT t.*, %s::geometry(Point, %d) AS %s FROM %s t",
		quoteTable(dst), pointExpr("t.", spec), spec.SRID, quoteIdent(spec.Column), quoteTable(src))
}

// boundsQuery builds the envelope SELECT and its arguments. Rows come back in
// ctid order so offset/limit pages are stable while the table is unchanged.
func boundsQuery(t domain.TableRef, spec domain.GeometrySpec, b domain.Bounds, f domain.CategoryFilter) (string, []any) {
	col := quoteIdent(spec.Column)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT *, ST_AsGeoJSON(%s) AS %s FROM %s WHERE %s && ST_MakeEnvelope($1, $2, $3, $4, %d)",
		col, domain.GeoJSONColumn, quoteTable(t), col, spec.SRID)

	args := []any{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
	if !f.All {
		fmt.Fprintf(&sb, " AND %s = ANY($5)", quoteIdent(spec.CategoryColumn))
		args = append(args, f.Values)
	}
	sb.WriteString(" ORDER BY ctid")
	return sb.String(), args
}
