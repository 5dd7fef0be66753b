package domain

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"
)

// geohashPrecision of 9 characters is roughly 5m x 5m.
const geohashPrecision = 9

// FeatureCollection is a GeoJSON FeatureCollection (RFC 7946).
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON feature.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// NewFeatureCollection converts query records into GeoJSON. The geometry is
// taken from the computed geojson column; the raw geometry column is dropped.
func NewFeatureCollection(records []Record, spec GeometrySpec) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(records))}
	for _, r := range records {
		fc.Features = append(fc.Features, NewFeature(r, spec))
	}
	return fc
}

// NewFeature converts one record.
func NewFeature(r Record, spec GeometrySpec) Feature {
	f := Feature{
		Type:       "Feature",
		Geometry:   json.RawMessage("null"),
		Properties: make(map[string]any, len(r)),
	}

	switch g := r[GeoJSONColumn].(type) {
	case string:
		if g != "" {
			f.Geometry = json.RawMessage(g)
		}
	case []byte:
		if len(g) > 0 {
			f.Geometry = json.RawMessage(g)
		}
	}

	for k, v := range r {
		if k == GeoJSONColumn || k == spec.Column {
			continue
		}
		f.Properties[k] = v
	}

	lng, okLng := Float(r[spec.LngColumn])
	lat, okLat := Float(r[spec.LatColumn])
	if okLng && okLat {
		f.Properties["geohash"] = geohash.EncodeWithPrecision(lat, lng, geohashPrecision)
	}
	return f
}

// Float extracts a float from a dynamically typed column value.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case json.Marshaler:
		// numeric columns decode to types that marshal as JSON numbers
		b, err := n.MarshalJSON()
		if err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.Trim(string(b), `"`), 64)
		return f, err == nil
	}
	return 0, false
}
