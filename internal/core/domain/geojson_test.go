package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

func TestNewFeatureCollection(t *testing.T) {
	spec := domain.DefaultGeometrySpec()
	records := []domain.Record{
		{
			"id":       int32(1),
			"poi_name": "Kunsthaus",
			"poi_type": "museum",
			"lng":      8.55,
			"lat":      47.35,
			"the_geom": "0101000020E6100000",
			"geojson":  `{"type":"Point","coordinates":[8.55,47.35]}`,
		},
	}

	fc := domain.NewFeatureCollection(records, spec)
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %s", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	if _, ok := f.Properties["the_geom"]; ok {
		t.Error("raw geometry column should not be a property")
	}
	if _, ok := f.Properties["geojson"]; ok {
		t.Error("geojson column should not be a property")
	}
	if f.Properties["poi_name"] != "Kunsthaus" {
		t.Errorf("expected poi_name Kunsthaus, got %v", f.Properties["poi_name"])
	}
	if gh, _ := f.Properties["geohash"].(string); len(gh) != 9 {
		t.Errorf("expected 9 character geohash, got %q", gh)
	}

	var geom struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(f.Geometry, &geom); err != nil {
		t.Fatalf("geometry is not valid JSON: %v", err)
	}
	if geom.Type != "Point" || geom.Coordinates[0] != 8.55 {
		t.Errorf("unexpected geometry %+v", geom)
	}
}

func TestNewFeature_NullGeometry(t *testing.T) {
	f := domain.NewFeature(domain.Record{"id": 1, "geojson": nil}, domain.DefaultGeometrySpec())

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["geometry"] != nil {
		t.Errorf("expected null geometry, got %v", decoded["geometry"])
	}
	if _, ok := f.Properties["geohash"]; ok {
		t.Error("geohash should be absent without lng/lat")
	}
}

func TestNewFeatureCollection_EmptyEncodesArray(t *testing.T) {
	out, err := json.Marshal(domain.NewFeatureCollection(nil, domain.DefaultGeometrySpec()))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("unexpected encoding %s", out)
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{8.55, 8.55, true},
		{float32(2.5), 2.5, true},
		{int64(7), 7, true},
		{int32(3), 3, true},
		{" 47.35 ", 47.35, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := domain.Float(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Float(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
