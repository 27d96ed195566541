package navigation

import (
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/geo"
)

// MatchIncidents returns the alerts lying closer than radius meters to any segment of
// route. Alerts created before now-lookback are skipped when lookback is positive, as are
// alerts without coordinates or past their external expiry.
func MatchIncidents(route *models.RouteGeometry, alerts []models.Alert, radius float64, lookback time.Duration, now time.Time) []models.Alert {
	if route == nil || len(route.Vertices) == 0 {
		return nil
	}

	var matches []models.Alert
	for _, a := range alerts {
		if !a.HasLocation() || a.Expired(now) {
			continue
		}
		if lookback > 0 && !a.CreatedAt.IsZero() && now.Sub(a.CreatedAt) > lookback {
			continue
		}
		if d, ok := geo.DistanceToRoute(a.Coordinate(), route.Vertices); ok && d < radius {
			matches = append(matches, a)
		}
	}
	return matches
}
