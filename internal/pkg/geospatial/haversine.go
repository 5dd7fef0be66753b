package geospatial

import (
	"math"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

const earthRadiusKm = 6371.0

// metersPerDegreeLat is the length of one degree of latitude.
const metersPerDegreeLat = 111320.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBoxes returns the boxes covering a circle of radiusMeters around a
// point. A circle crossing the antimeridian yields two boxes, one on each side;
// a circle reaching a pole covers every longitude. Every box passes
// Bounds.Validate.
func BoundingBoxes(lat, lon, radiusMeters float64) []domain.Bounds {
	latDelta := radiusMeters / metersPerDegreeLat
	minLat := math.Max(-90, lat-latDelta)
	maxLat := math.Min(90, lat+latDelta)

	cosLat := math.Cos(toRad(lat))
	if minLat == -90 || maxLat == 90 || cosLat < 1e-9 {
		return []domain.Bounds{{MinLon: -180, MinLat: minLat, MaxLon: 180, MaxLat: maxLat}}
	}

	lonDelta := radiusMeters / (metersPerDegreeLat * cosLat)
	if lonDelta >= 180 {
		return []domain.Bounds{{MinLon: -180, MinLat: minLat, MaxLon: 180, MaxLat: maxLat}}
	}

	minLon, maxLon := lon-lonDelta, lon+lonDelta
	switch {
	case minLon < -180:
		return []domain.Bounds{
			{MinLon: -180, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat},
			{MinLon: minLon + 360, MinLat: minLat, MaxLon: 180, MaxLat: maxLat},
		}
	case maxLon > 180:
		return []domain.Bounds{
			{MinLon: minLon, MinLat: minLat, MaxLon: 180, MaxLat: maxLat},
			{MinLon: -180, MinLat: minLat, MaxLon: maxLon - 360, MaxLat: maxLat},
		}
	}
	return []domain.Bounds{{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat}}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
