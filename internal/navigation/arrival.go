package navigation

import (
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/geo"
)

// hasArrived reports whether position is within radius meters of destination.
func hasArrived(position, destination models.Coordinate, radius float64) bool {
	return geo.Haversine(position, destination) < radius
}
