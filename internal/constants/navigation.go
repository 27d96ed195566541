package constants

import "time"

const (
	// OffRouteThreshold is the distance from the route beyond which the agent counts as off route.
	OffRouteThreshold = 60.0 // meters

	// RerouteDelay is how long a deviation must persist before a new route is requested.
	RerouteDelay = 5 * time.Second

	// ArrivalRadius ends the trip once the agent is this close to the destination.
	ArrivalRadius = 50.0 // meters

	// IncidentRadius flags alerts closer than this to any route segment.
	IncidentRadius = 150.0 // meters

	// IncidentLookback excludes alerts created longer ago than this from route warnings.
	IncidentLookback = 24 * time.Hour

	// RoutingTimeout bounds a single geocode or routing call.
	RoutingTimeout = 15 * time.Second
)

const (
	// ExpiryInterval is the period of the expiry reaper.
	ExpiryInterval = 60 * time.Second

	// ResolvedTTL is the grace period after resolution before an alert is deleted upstream.
	ResolvedTTL = 10 * time.Minute

	// DefaultDeleteWorkers bounds concurrent upstream deletes per reaper tick.
	DefaultDeleteWorkers = 4
)

// MyLocationPrefix selects the last known position as trip origin.
const MyLocationPrefix = "my loc"
