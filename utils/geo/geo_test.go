package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type point struct {
	name     string
	lat, lon float64
}

func (p point) Coordinates() (float64, float64) { return p.lat, p.lon }

func TestHaversineSamePointIsZero(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKm(-6.7924, 39.2083, -6.7924, 39.2083))
	assert.Equal(t, 0.0, HaversineKm(0, 0, 0, 0))
}

func TestHaversineSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{-6.7924, 39.2083, -3.3869, 36.6830},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{0, 179.9, 0, -179.9},
	}
	for _, p := range pairs {
		assert.InDelta(t, HaversineKm(p[0], p[1], p[2], p[3]), HaversineKm(p[2], p[3], p[0], p[1]), 1e-9)
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	// one degree of latitude
	assert.InDelta(t, 111.195, HaversineKm(0, 0, 1, 0), 0.01)
	// London to New York
	assert.InDelta(t, 5570, HaversineKm(51.5074, -0.1278, 40.7128, -74.0060), 10)
	// across the antimeridian the short way round
	assert.InDelta(t, 22.239, HaversineKm(0, 179.9, 0, -179.9), 0.01)
}

func TestHaversineAntipodalIsHalfCircumference(t *testing.T) {
	half := math.Pi * EarthRadiusKm
	for lat := -89.5; lat <= 89.5; lat += 0.5 {
		for lon := -180.0; lon < 180; lon += 7.3 {
			d := HaversineKm(lat, lon, -lat, lon+180)
			if !assert.False(t, math.IsNaN(d), "lat=%v lon=%v", lat, lon) {
				return
			}
			assert.InDelta(t, half, d, 1e-3)
			assert.True(t, WithinRadius(lat, lon, -lat, lon+180, 20100))
		}
	}
}

func TestWithinRadiusInclusive(t *testing.T) {
	d := HaversineKm(0, 0, 1, 0)
	assert.True(t, WithinRadius(0, 0, 1, 0, d))
	assert.False(t, WithinRadius(0, 0, 1, 0, d-0.001))
}

func TestFilterWithinRadius(t *testing.T) {
	// Dar es Salaam city centre
	refLat, refLon := -6.8161, 39.2803
	lots := []point{
		{name: "kariakoo", lat: -6.8190, lon: 39.2730},
		{name: "arusha", lat: -3.3869, lon: 36.6830},
		{name: "posta", lat: -6.8155, lon: 39.2890},
	}

	got := FilterWithinRadius(lots, refLat, refLon, 5)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "kariakoo", got[0].name)
		assert.Equal(t, "posta", got[1].name)
	}

	assert.Empty(t, FilterWithinRadius(lots, refLat, refLon, 0.1))
	assert.Empty(t, FilterWithinRadius([]point{}, refLat, refLon, 100))
}
