package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// mapsClient is the subset of *maps.Client used by GoogleProvider.
type mapsClient interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GoogleProvider resolves places and computes driving routes with the Google Maps APIs.
type GoogleProvider struct {
	client  mapsClient
	region  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewGoogleProvider creates a provider authenticated with apiKey. region biases geocoding
// results towards a ccTLD country code (e.g. "ph").
func NewGoogleProvider(apiKey, region string, timeout time.Duration, logger zerolog.Logger) (*GoogleProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return newGoogleProvider(c, region, timeout, logger), nil
}

func newGoogleProvider(client mapsClient, region string, timeout time.Duration, logger zerolog.Logger) *GoogleProvider {
	return &GoogleProvider{
		client:  client,
		region:  region,
		timeout: timeout,
		logger:  logger,
	}
}

// Route requests a driving route between two coordinates.
func (g *GoogleProvider) Route(ctx context.Context, from, to models.Coordinate) (*models.RouteGeometry, error) {
	if !validCoordinate(from) || !validCoordinate(to) {
		return nil, fmt.Errorf("route %v -> %v: %w", from, to, ErrInvalidInput)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	req := &maps.DirectionsRequest{
		Origin:      latLngString(from),
		Destination: latLngString(to),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		g.logger.Error().Err(err).Str("origin", req.Origin).Str("destination", req.Destination).Msg("Directions request failed")
		return nil, fmt.Errorf("directions: %w", classify(err))
	}
	if len(routes) == 0 {
		return nil, ErrRouteNotFound
	}

	route := routes[0]
	points, err := route.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode overview polyline: %w", ErrRouteProviderUnreachable)
	}
	if len(points) == 0 {
		return nil, ErrRouteNotFound
	}

	geometry := &models.RouteGeometry{
		Vertices: make([]models.Coordinate, 0, len(points)),
	}
	for _, p := range points {
		geometry.Vertices = append(geometry.Vertices, models.Coordinate{Latitude: p.Lat, Longitude: p.Lng})
	}
	for _, leg := range route.Legs {
		geometry.DistanceMeters += float64(leg.Distance.Meters)
		geometry.DurationSeconds += leg.Duration.Seconds()
	}

	g.logger.Debug().
		Int("vertices", len(geometry.Vertices)).
		Float64("distance_m", geometry.DistanceMeters).
		Float64("duration_s", geometry.DurationSeconds).
		Msg("Route computed")
	return geometry, nil
}

// Resolve geocodes a free-text query. An empty result is not an error.
func (g *GoogleProvider) Resolve(ctx context.Context, query string) ([]models.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", ErrInvalidInput)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query, Region: g.region})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return []models.Place{}, nil
		}
		g.logger.Error().Err(err).Str("query", query).Msg("Geocoding request failed")
		kind := classify(err)
		if kind == ErrRouteNotFound {
			kind = ErrGeocodeNotFound
		}
		return nil, fmt.Errorf("geocode %q: %w", query, kind)
	}

	places := make([]models.Place, 0, len(results))
	for _, r := range results {
		places = append(places, models.Place{
			Coordinate: models.Coordinate{Latitude: r.Geometry.Location.Lat, Longitude: r.Geometry.Location.Lng},
			Label:      r.FormattedAddress,
		})
	}
	return places, nil
}

func (g *GoogleProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func latLngString(c models.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

func validCoordinate(c models.Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
