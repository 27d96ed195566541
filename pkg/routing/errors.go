package routing

import (
	"errors"
	"strings"
)

var (
	// ErrGeocodeNotFound is returned when a place query resolves to nothing.
	ErrGeocodeNotFound = errors.New("location not found")
	// ErrRouteNotFound is returned when no path connects the two coordinates.
	ErrRouteNotFound = errors.New("no route found")
	// ErrRouteProviderUnreachable covers network and upstream service failures.
	ErrRouteProviderUnreachable = errors.New("route provider unreachable")
	// ErrInvalidInput is returned for malformed queries or coordinates.
	ErrInvalidInput = errors.New("invalid routing input")
)

// classify maps a maps API error onto one of the package error kinds.
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ZERO_RESULTS"), strings.Contains(msg, "NOT_FOUND"):
		return ErrRouteNotFound
	case strings.Contains(msg, "INVALID_REQUEST"), strings.Contains(msg, "MAX_WAYPOINTS_EXCEEDED"):
		return ErrInvalidInput
	default:
		return ErrRouteProviderUnreachable
	}
}
