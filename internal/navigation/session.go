package navigation

import (
	"github.com/benmeehan/route-sentinel/internal/models"
)

// State is the trip session state.
type State int

const (
	StateIdle State = iota
	StateRouting
	StateActive
	StateRerouting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRouting:
		return "routing"
	case StateActive:
		return "active"
	case StateRerouting:
		return "rerouting"
	}
	return "unknown"
}

// TripSession holds the state of the single live trip. It is owned by the navigator
// goroutine; callers only ever see copies.
type TripSession struct {
	State            State
	TripID           string
	Origin           models.Coordinate
	Destination      models.Coordinate
	DestinationLabel string
	Route            *models.RouteGeometry

	// ReroutePending is set while a deviation timer is armed.
	ReroutePending bool
}

// Active reports whether the session has a route being followed.
func (s *TripSession) Active() bool {
	return s.State == StateActive || s.State == StateRerouting
}

// Rerouting reports whether a reroute call is in flight.
func (s *TripSession) Rerouting() bool {
	return s.State == StateRerouting
}

func (s *TripSession) beginRouting(tripID string) {
	s.reset()
	s.State = StateRouting
	s.TripID = tripID
}

func (s *TripSession) activate(origin, destination models.Coordinate, label string, route *models.RouteGeometry) {
	s.State = StateActive
	s.Origin = origin
	s.Destination = destination
	s.DestinationLabel = label
	s.Route = route
	s.ReroutePending = false
}

// replaceRoute swaps in a new geometry after a successful reroute.
func (s *TripSession) replaceRoute(route *models.RouteGeometry) {
	s.Route = route
	s.State = StateActive
}

func (s *TripSession) reset() {
	*s = TripSession{}
}
