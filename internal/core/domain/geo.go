package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// ParseBounds parses "minLng,minLat,maxLng,maxLat".
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("%w: expected 4 values minLng,minLat,maxLng,maxLat, got %d", ErrInvalidBounds, len(parts))
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("%w: value %d (%q) is not a number", ErrInvalidBounds, i+1, strings.TrimSpace(p))
		}
		vals[i] = v
	}

	b := Bounds{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// Validate checks ordering and coordinate ranges.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: values must be finite", ErrInvalidBounds)
		}
	}
	if b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("%w: longitude must be within [-180, 180]", ErrInvalidBounds)
	}
	if b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("%w: latitude must be within [-90, 90]", ErrInvalidBounds)
	}
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("%w: minLng %g is greater than maxLng %g", ErrInvalidBounds, b.MinLon, b.MaxLon)
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("%w: minLat %g is greater than maxLat %g", ErrInvalidBounds, b.MinLat, b.MaxLat)
	}
	return nil
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// String renders the box in the same order ParseBounds accepts.
func (b Bounds) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}
