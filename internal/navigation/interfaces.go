package navigation

import (
	"context"

	"github.com/benmeehan/route-sentinel/internal/models"
)

// RouteProvider computes a path between two coordinates.
type RouteProvider interface {
	Route(ctx context.Context, from, to models.Coordinate) (*models.RouteGeometry, error)
}

// Geocoder resolves free text into candidate places, best match first.
type Geocoder interface {
	Resolve(ctx context.Context, query string) ([]models.Place, error)
}

// Presenter receives everything the navigator wants shown to the user.
type Presenter interface {
	RouteDrawn(event models.RouteDrawn) error
	TripBanner(banner models.TripBanner) error
	Toast(toast models.Toast) error
	TripEnded(event models.TripEnded) error
}

// Metrics records navigator activity.
type Metrics interface {
	PositionProcessed()
	TripStarted()
	TripEnded(outcome models.TripOutcome)
	RerouteRequested()
	RerouteCompleted(err error)
	IncidentWarnings(count int)
}

type nopMetrics struct{}

func (nopMetrics) PositionProcessed()           {}
func (nopMetrics) TripStarted()                 {}
func (nopMetrics) TripEnded(models.TripOutcome) {}
func (nopMetrics) RerouteRequested()            {}
func (nopMetrics) RerouteCompleted(error)       {}
func (nopMetrics) IncidentWarnings(int)         {}
