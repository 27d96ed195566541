package geo

import (
	"testing"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/stretchr/testify/assert"
)

func coord(lat, lng float64) models.Coordinate {
	return models.Coordinate{Latitude: lat, Longitude: lng}
}

func TestHaversine(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(coord(14, 121), coord(14, 121)))

	// 0.01 degree of latitude is roughly 1112 m
	d := Haversine(coord(14.0, 121.0), coord(14.01, 121.0))
	assert.InDelta(t, 1111.95, d, 1)

	// Symmetric
	assert.InDelta(t, Haversine(coord(13.62, 123.19), coord(13.63, 123.21)),
		Haversine(coord(13.63, 123.21), coord(13.62, 123.19)), 1e-9)
}

func TestDistanceToSegment_NonNegative(t *testing.T) {
	a, b := coord(14.0, 121.0), coord(14.01, 121.01)
	points := []models.Coordinate{
		coord(14.0, 121.0), coord(13.9, 120.9), coord(14.2, 121.3),
		coord(14.005, 121.005), coord(-10, 40), coord(14.01, 121.0),
	}
	for _, p := range points {
		assert.GreaterOrEqual(t, DistanceToSegment(p, a, b), 0.0)
	}
}

func TestDistanceToSegment_PointOnSegment(t *testing.T) {
	a, b := coord(14.0, 121.0), coord(14.01, 121.0)

	assert.InDelta(t, 0, DistanceToSegment(coord(14.005, 121.0), a, b), 1e-6)
	assert.InDelta(t, 0, DistanceToSegment(a, a, b), 1e-6)
	assert.InDelta(t, 0, DistanceToSegment(b, a, b), 1e-6)
}

func TestDistanceToSegment_ClampsToEndpoints(t *testing.T) {
	a, b := coord(14.0, 121.0), coord(14.01, 121.0)
	beyond := coord(14.02, 121.0)

	// Nearest point is the end vertex, not the infinite line through it
	assert.InDelta(t, Haversine(beyond, b), DistanceToSegment(beyond, a, b), 1e-6)

	before := coord(13.99, 121.0)
	assert.InDelta(t, Haversine(before, a), DistanceToSegment(before, a, b), 1e-6)
}

func TestDistanceToSegment_Degenerate(t *testing.T) {
	a := coord(14.0, 121.0)
	p := coord(14.001, 121.001)
	assert.Equal(t, Haversine(p, a), DistanceToSegment(p, a, a))
}

func TestIsOnRoute_EmptyRouteFailsOpen(t *testing.T) {
	assert.True(t, IsOnRoute(coord(14, 121), nil, 60))
	assert.True(t, IsOnRoute(coord(14, 121), []models.Coordinate{}, 60))
}

func TestIsOnRoute_ChecksEverySegment(t *testing.T) {
	// The agent sits beside the last segment only.
	route := []models.Coordinate{
		coord(14.0, 121.0), coord(14.01, 121.0), coord(14.01, 121.01), coord(14.0, 121.01),
	}
	assert.True(t, IsOnRoute(coord(14.005, 121.0101), route, 60))
	assert.False(t, IsOnRoute(coord(14.005, 121.005), route, 60))
}

func TestIsOnRoute_OffRouteScenario(t *testing.T) {
	route := []models.Coordinate{coord(14.0, 121.0), coord(14.01, 121.0)}
	assert.False(t, IsOnRoute(coord(14.02, 121.0), route, 60))
	assert.True(t, IsOnRoute(coord(14.0101, 121.0), route, 60))
}

func TestIsOnRoute_MonotonicInThreshold(t *testing.T) {
	route := []models.Coordinate{coord(14.0, 121.0), coord(14.01, 121.0), coord(14.02, 121.01)}
	points := []models.Coordinate{
		coord(14.0, 121.0005), coord(14.015, 121.0), coord(14.03, 121.02), coord(13.99, 120.99),
	}
	thresholds := []float64{1, 10, 60, 100, 500, 1500, 5000}

	for _, p := range points {
		seenTrue := false
		for _, th := range thresholds {
			on := IsOnRoute(p, route, th)
			if seenTrue {
				assert.True(t, on, "point %v threshold %v", p, th)
			}
			seenTrue = seenTrue || on
		}
	}
}

func TestDistanceToRoute(t *testing.T) {
	_, ok := DistanceToRoute(coord(14, 121), nil)
	assert.False(t, ok)

	d, ok := DistanceToRoute(coord(14.0, 121.0), []models.Coordinate{coord(14.01, 121.0)})
	assert.True(t, ok)
	assert.InDelta(t, 1111.95, d, 1)
}
