// Package geo implements great-circle distance and radius filtering for
// parking lot search. Candidates are scanned linearly; there is no spatial index.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// Locatable is anything with a latitude/longitude in degrees.
type Locatable interface {
	Coordinates() (lat, lon float64)
}

// HaversineKm returns the great-circle distance in kilometres between two
// points given in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a just past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// WithinRadius reports whether (lat, lon) lies at most radiusKm from the reference point.
func WithinRadius(refLat, refLon, lat, lon, radiusKm float64) bool {
	return HaversineKm(refLat, refLon, lat, lon) <= radiusKm
}

// FilterWithinRadius keeps the items within radiusKm of the reference point,
// preserving their order.
func FilterWithinRadius[T Locatable](items []T, refLat, refLon, radiusKm float64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		lat, lon := it.Coordinates()
		if WithinRadius(refLat, refLon, lat, lon, radiusKm) {
			out = append(out, it)
		}
	}
	return out
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
