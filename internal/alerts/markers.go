package alerts

import (
	"math"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
)

// VisibleAlerts returns the alerts that are neither expired nor of a hidden type.
func VisibleAlerts(alerts []models.Alert, visibility *Visibility, now time.Time) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if a.Expired(now) || !visibility.Visible(a.Type) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// BadgeCount counts unexpired alerts. Hidden types still count.
func BadgeCount(alerts []models.Alert, now time.Time) int {
	n := 0
	for _, a := range alerts {
		if !a.Expired(now) {
			n++
		}
	}
	return n
}

// BuildMarkers renders the visible alerts. Resolved alerts carry the whole minutes left before
// the expiry reaper removes them, given the resolved retention period.
func BuildMarkers(alerts []models.Alert, visibility *Visibility, resolvedTTL time.Duration, now time.Time) models.AlertMarkers {
	visible := VisibleAlerts(alerts, visibility, now)
	markers := make([]models.AlertMarker, 0, len(visible))
	for _, a := range visible {
		m := models.AlertMarker{
			Alert:    a,
			Resolved: a.Resolved(),
			Calamity: a.Type.Calamity(),
		}
		if m.Resolved {
			m.MinutesToPurge = minutesToPurge(*a.ResolvedAt, resolvedTTL, now)
		}
		markers = append(markers, m)
	}

	return models.AlertMarkers{
		Markers:    markers,
		BadgeCount: BadgeCount(alerts, now),
		UpdatedAt:  now,
	}
}

func minutesToPurge(resolvedAt time.Time, ttl time.Duration, now time.Time) int {
	left := resolvedAt.Add(ttl).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}
