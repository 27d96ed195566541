package models

// RouteGeometry is the path returned by a routing call. Values are never
// mutated once built; a reroute produces a new RouteGeometry.
type RouteGeometry struct {
	Vertices        []Coordinate `json:"vertices"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
}
