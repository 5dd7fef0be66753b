package geospatial

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	// Zurich HB to Bellevue, roughly 1.3 km
	d := Haversine(47.3779, 8.5403, 47.3667, 8.5450)
	if d < 1200 || d > 1400 {
		t.Errorf("expected ~1300m, got %.0f", d)
	}

	if d := Haversine(47.35, 8.55, 47.35, 8.55); d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestBoundingBoxes(t *testing.T) {
	boxes := BoundingBoxes(47.35, 8.55, 1000)
	if len(boxes) != 1 {
		t.Fatalf("expected one box away from the antimeridian, got %d", len(boxes))
	}
	b := boxes[0]
	if err := b.Validate(); err != nil {
		t.Fatalf("expected valid bounds: %v", err)
	}
	if !b.Contains(8.55, 47.35) {
		t.Error("expected box to contain its center")
	}

	// A point 1km north should sit right on the edge.
	north := 47.35 + 1000/metersPerDegreeLat
	if math.Abs(b.MaxLat-north) > 1e-9 {
		t.Errorf("expected max lat %f, got %f", north, b.MaxLat)
	}
}

func TestBoundingBoxes_SplitsAtAntimeridian(t *testing.T) {
	tests := []struct {
		name      string
		lon       float64
		otherSide float64
	}{
		{"east edge", 179.999, -179.999},
		{"west edge", -179.999, 179.999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boxes := BoundingBoxes(0, tt.lon, 1000)
			if len(boxes) != 2 {
				t.Fatalf("expected two boxes, got %+v", boxes)
			}
			var center, other bool
			for _, b := range boxes {
				if err := b.Validate(); err != nil {
					t.Fatalf("invalid box %+v: %v", b, err)
				}
				center = center || b.Contains(tt.lon, 0)
				other = other || b.Contains(tt.otherSide, 0)
			}
			if !center || !other {
				t.Errorf("expected boxes to cover both %v and %v, got %+v", tt.lon, tt.otherSide, boxes)
			}
			if d := Haversine(0, tt.lon, 0, tt.otherSide); d > 1000 {
				t.Errorf("points across the antimeridian should be ~222m apart, got %.0f", d)
			}
		})
	}
}

func TestBoundingBoxes_CoversAllLongitudesAtPole(t *testing.T) {
	boxes := BoundingBoxes(89.999, 179.9, 50000)
	if len(boxes) != 1 {
		t.Fatalf("expected one box, got %+v", boxes)
	}
	b := boxes[0]
	if err := b.Validate(); err != nil {
		t.Fatalf("expected clamped bounds to validate: %v", err)
	}
	if b.MaxLat != 90 || b.MinLon != -180 || b.MaxLon != 180 {
		t.Errorf("expected full longitude range up to 90, got %+v", b)
	}
}
