package models

import (
	"time"
)

// ToastKind classifies one-shot notifications sent to the presentation layer.
type ToastKind string

const (
	ToastRerouteStarted  ToastKind = "reroute_started"
	ToastRerouteSuccess  ToastKind = "reroute_success"
	ToastRerouteFailed   ToastKind = "reroute_failed"
	ToastArrived         ToastKind = "arrived"
	ToastTripEnded       ToastKind = "trip_ended"
	ToastIncidentWarning ToastKind = "incident_warning"
	ToastRoutingError    ToastKind = "routing_error"
)

// TripOutcome is the reason a trip ended.
type TripOutcome string

const (
	OutcomeArrived   TripOutcome = "arrived"
	OutcomeCancelled TripOutcome = "cancelled"
)

// RouteDrawn is emitted whenever a new route geometry becomes active.
type RouteDrawn struct {
	TripID          string        `json:"trip_id"`
	Route           RouteGeometry `json:"route"`
	EncodedPolyline string        `json:"encoded_polyline,omitempty"`
	Reroute         bool          `json:"reroute"`
}

// TripBanner summarises the active trip.
type TripBanner struct {
	TripID           string  `json:"trip_id"`
	DistanceKm       float64 `json:"distance_km"`
	EtaMinutes       int     `json:"eta_minutes"`
	DestinationLabel string  `json:"destination_label"`
}

// Toast is a one-shot notification.
type Toast struct {
	Kind    ToastKind `json:"kind"`
	TripID  string    `json:"trip_id,omitempty"`
	Message string    `json:"message"`
	Count   int       `json:"count,omitempty"`
	Alerts  []Alert   `json:"alerts,omitempty"`
	Error   string    `json:"error,omitempty"`
	Err     error     `json:"-"`
}

// TripEnded is emitted when a trip finishes by arrival or cancellation.
type TripEnded struct {
	TripID           string      `json:"trip_id"`
	Outcome          TripOutcome `json:"outcome"`
	DestinationLabel string      `json:"destination_label,omitempty"`
	At               time.Time   `json:"at"`
}

// AlertMarker is a renderable view of one visible alert.
type AlertMarker struct {
	Alert          Alert `json:"alert"`
	Resolved       bool  `json:"resolved"`
	Calamity       bool  `json:"calamity"`
	MinutesToPurge int   `json:"minutes_to_purge,omitempty"`
}

// AlertMarkers is the full set of markers plus the badge counter.
type AlertMarkers struct {
	Markers    []AlertMarker `json:"markers"`
	BadgeCount int           `json:"badge_count"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
