package navigation

import "errors"

var (
	// ErrRerouteTransientFailure is reported when a reroute call fails during an active trip.
	// The previous route stays in effect.
	ErrRerouteTransientFailure = errors.New("reroute failed")

	// ErrTripSuperseded is returned to a StartTrip caller whose request was replaced or
	// cancelled before routing completed.
	ErrTripSuperseded = errors.New("trip superseded")

	// ErrNavigatorStopped is returned when the navigator is not running.
	ErrNavigatorStopped = errors.New("navigator is not running")
)
