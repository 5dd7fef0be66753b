package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

func TestParseTableRef(t *testing.T) {
	ref, err := domain.ParseTableRef("poi_zurich_ch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Schema != "" || ref.Name != "poi_zurich_ch" {
		t.Errorf("unexpected ref %+v", ref)
	}
	if ref.IndexName() != "idx_poi_zurich_ch_geom" {
		t.Errorf("expected idx_poi_zurich_ch_geom, got %s", ref.IndexName())
	}

	ref, err = domain.ParseTableRef("gis.poi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Schema != "gis" || ref.Name != "poi" || ref.String() != "gis.poi" {
		t.Errorf("unexpected ref %+v", ref)
	}
	if ref.IndexName() != "idx_poi_geom" {
		t.Errorf("expected idx_poi_geom, got %s", ref.IndexName())
	}
}

func TestParseTableRef_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"poi; DROP TABLE users",
		"poi zurich",
		"a.b.c",
		".poi",
		"1poi",
		`"poi"`,
		strings.Repeat("x", 64),
	}
	for _, in := range inputs {
		if _, err := domain.ParseTableRef(in); !errors.Is(err, domain.ErrInvalidTable) {
			t.Errorf("expected ErrInvalidTable for %q, got %v", in, err)
		}
	}
}

func TestTableRef_IndexNameTruncated(t *testing.T) {
	ref := domain.TableRef{Name: strings.Repeat("t", 63)}
	if got := len(ref.IndexName()); got != 63 {
		t.Errorf("expected index name truncated to 63 bytes, got %d", got)
	}
}

func TestGeometrySpec_Validate(t *testing.T) {
	if err := domain.DefaultGeometrySpec().Validate(); err != nil {
		t.Fatalf("default spec should be valid: %v", err)
	}

	bad := domain.DefaultGeometrySpec()
	bad.LngColumn = "lng) --"
	if err := bad.Validate(); !errors.Is(err, domain.ErrInvalidColumn) {
		t.Errorf("expected ErrInvalidColumn, got %v", err)
	}

	bad = domain.DefaultGeometrySpec()
	bad.Column = "geojson"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for geometry column named geojson")
	}

	bad = domain.DefaultGeometrySpec()
	bad.SRID = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero srid")
	}
}
