// Package geo implements the distance primitives used to follow a route.
package geo

import (
	"math"

	"github.com/benmeehan/route-sentinel/internal/models"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

// Haversine returns the great-circle distance in meters between two coordinates.
func Haversine(p1, p2 models.Coordinate) float64 {
	if p1 == p2 {
		return 0
	}

	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dLat := toRadians(p2.Latitude - p1.Latitude)
	dLon := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// DistanceToSegment returns the distance in meters from point to the nearest point on
// the segment [start, end]. The projection is done in degree space and clamped to the
// segment, then measured with Haversine.
func DistanceToSegment(point, start, end models.Coordinate) float64 {
	dLat := end.Latitude - start.Latitude
	dLon := end.Longitude - start.Longitude

	// Degenerate segment
	if dLat == 0 && dLon == 0 {
		return Haversine(point, start)
	}

	t := ((point.Latitude-start.Latitude)*dLat + (point.Longitude-start.Longitude)*dLon) /
		(dLat*dLat + dLon*dLon)
	t = math.Max(0, math.Min(1, t))

	nearest := models.Coordinate{
		Latitude:  start.Latitude + t*dLat,
		Longitude: start.Longitude + t*dLon,
	}
	return Haversine(point, nearest)
}

// DistanceToRoute returns the minimum distance from point to any segment of route.
// ok is false when the route has no vertices.
func DistanceToRoute(point models.Coordinate, route []models.Coordinate) (distance float64, ok bool) {
	switch len(route) {
	case 0:
		return 0, false
	case 1:
		return Haversine(point, route[0]), true
	}

	distance = math.Inf(1)
	for i := 0; i < len(route)-1; i++ {
		if d := DistanceToSegment(point, route[i], route[i+1]); d < distance {
			distance = d
		}
	}
	return distance, true
}

// IsOnRoute reports whether point lies closer than thresholdMeters to any segment of
// route. An empty route counts as on route since no deviation can be judged.
func IsOnRoute(point models.Coordinate, route []models.Coordinate, thresholdMeters float64) bool {
	distance, ok := DistanceToRoute(point, route)
	if !ok {
		return true
	}
	return distance < thresholdMeters
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
