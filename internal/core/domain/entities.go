package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Record is one result row: column name to scalar value (nil for NULL).
type Record map[string]any

// GeoJSONColumn is the computed column every query row carries.
const GeoJSONColumn = "geojson"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentLen is PostgreSQL's NAMEDATALEN-1.
const maxIdentLen = 63

// ValidIdentifier reports whether s can be used as an unquoted SQL identifier.
func ValidIdentifier(s string) bool {
	return len(s) <= maxIdentLen && identRe.MatchString(s)
}

// TableRef names a table, optionally schema-qualified.
type TableRef struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

// ParseTableRef accepts "table" or "schema.table".
func ParseTableRef(s string) (TableRef, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	var ref TableRef
	switch len(parts) {
	case 1:
		ref = TableRef{Name: parts[0]}
	case 2:
		ref = TableRef{Schema: parts[0], Name: parts[1]}
	default:
		return TableRef{}, fmt.Errorf("%w: %q", ErrInvalidTable, s)
	}
	if !ValidIdentifier(ref.Name) || (len(parts) == 2 && !ValidIdentifier(ref.Schema)) {
		return TableRef{}, fmt.Errorf("%w: %q", ErrInvalidTable, s)
	}
	return ref, nil
}

// String returns the qualified name.
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// IndexName is the deterministic spatial index name for the table.
func (t TableRef) IndexName() string {
	name := "idx_" + t.Name + "_geom"
	if len(name) > maxIdentLen {
		name = name[:maxIdentLen]
	}
	return name
}

// GeometrySpec describes the geometry column and its source columns.
type GeometrySpec struct {
	Column         string `json:"column"`
	LngColumn      string `json:"lng_column"`
	LatColumn      string `json:"lat_column"`
	CategoryColumn string `json:"category_column"`
	SRID           int    `json:"srid"`
}

// DefaultGeometrySpec matches the POI tables this tool was written for.
func DefaultGeometrySpec() GeometrySpec {
	return GeometrySpec{
		Column:         "the_geom",
		LngColumn:      "lng",
		LatColumn:      "lat",
		CategoryColumn: "poi_type",
		SRID:           4326,
	}
}

// Validate checks every column name and the SRID.
func (g GeometrySpec) Validate() error {
	for _, c := range []string{g.Column, g.LngColumn, g.LatColumn, g.CategoryColumn} {
		if !ValidIdentifier(c) {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, c)
		}
	}
	if g.Column == GeoJSONColumn {
		return fmt.Errorf("%w: geometry column cannot be named %q", ErrInvalidColumn, GeoJSONColumn)
	}
	if g.SRID <= 0 {
		return fmt.Errorf("srid must be positive, got %d", g.SRID)
	}
	return nil
}

// EnsureResult reports what the schema ensurer did.
type EnsureResult struct {
	Table          string `json:"table"`
	Column         string `json:"column"`
	Created        bool   `json:"created"`
	RowsBackfilled int64  `json:"rows_backfilled"`
	IndexName      string `json:"index_name,omitempty"`
}

// MaterializeResult reports a geometry table copy.
type MaterializeResult struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Created   bool   `json:"created"`
	Rows      int64  `json:"rows"`
	IndexName string `json:"index_name"`
}

// SchemaEventKind classifies schema change events.
type SchemaEventKind string

const (
	EventGeometryColumnCreated     SchemaEventKind = "geometry_column_created"
	EventGeometryTableMaterialized SchemaEventKind = "geometry_table_materialized"
)

// SchemaEvent is published after a geometry column or table was created.
type SchemaEvent struct {
	ID     string          `json:"id"`
	Kind   SchemaEventKind `json:"kind"`
	Table  string          `json:"table"`
	Source string          `json:"source,omitempty"`
	Rows   int64           `json:"rows"`
	Time   time.Time       `json:"time"`
}

// EnsureRequest asks a worker to run the schema ensurer for a table.
type EnsureRequest struct {
	ID          string    `json:"id"`
	Table       string    `json:"table"`
	RequestedAt time.Time `json:"requested_at"`
}
