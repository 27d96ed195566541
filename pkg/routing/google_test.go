package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

type mockMapsClient struct {
	mock.Mock
}

func (m *mockMapsClient) Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error) {
	args := m.Called(ctx, r)
	routes, _ := args.Get(0).([]maps.Route)
	return routes, nil, args.Error(1)
}

func (m *mockMapsClient) Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	args := m.Called(ctx, r)
	results, _ := args.Get(0).([]maps.GeocodingResult)
	return results, args.Error(1)
}

func TestGoogleProvider_Route_Success(t *testing.T) {
	client := new(mockMapsClient)
	provider := newGoogleProvider(client, "ph", time.Second, zerolog.Nop())

	path := []maps.LatLng{{Lat: 14.0, Lng: 121.0}, {Lat: 14.005, Lng: 121.0}, {Lat: 14.01, Lng: 121.0}}
	client.On("Directions", mock.Anything, mock.MatchedBy(func(r *maps.DirectionsRequest) bool {
		return r.Origin == "14.000000,121.000000" && r.Destination == "14.010000,121.000000" && r.Mode == maps.TravelModeDriving
	})).Return([]maps.Route{{
		OverviewPolyline: maps.Polyline{Points: maps.Encode(path)},
		Legs: []*maps.Leg{
			{Distance: maps.Distance{Meters: 700}, Duration: 2 * time.Minute},
			{Distance: maps.Distance{Meters: 412}, Duration: 30 * time.Second},
		},
	}}, nil)

	route, err := provider.Route(context.Background(),
		models.Coordinate{Latitude: 14.0, Longitude: 121.0},
		models.Coordinate{Latitude: 14.01, Longitude: 121.0})

	require.NoError(t, err)
	assert.Len(t, route.Vertices, 3)
	assert.InDelta(t, 14.005, route.Vertices[1].Latitude, 1e-5)
	assert.Equal(t, 1112.0, route.DistanceMeters)
	assert.Equal(t, 150.0, route.DurationSeconds)
	client.AssertExpectations(t)
}

func TestGoogleProvider_Route_Errors(t *testing.T) {
	from := models.Coordinate{Latitude: 14.0, Longitude: 121.0}
	to := models.Coordinate{Latitude: 14.01, Longitude: 121.0}

	tests := []struct {
		name    string
		routes  []maps.Route
		err     error
		wantErr error
	}{
		{"zero results", nil, errors.New("maps: ZERO_RESULTS - "), ErrRouteNotFound},
		{"invalid request", nil, errors.New("maps: INVALID_REQUEST - bad origin"), ErrInvalidInput},
		{"network", nil, context.DeadlineExceeded, ErrRouteProviderUnreachable},
		{"empty routes", []maps.Route{}, nil, ErrRouteNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockMapsClient)
			provider := newGoogleProvider(client, "", 0, zerolog.Nop())
			client.On("Directions", mock.Anything, mock.Anything).Return(tt.routes, tt.err)

			route, err := provider.Route(context.Background(), from, to)
			assert.Nil(t, route)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGoogleProvider_Route_InvalidCoordinate(t *testing.T) {
	client := new(mockMapsClient)
	provider := newGoogleProvider(client, "", 0, zerolog.Nop())

	_, err := provider.Route(context.Background(),
		models.Coordinate{Latitude: 95, Longitude: 0},
		models.Coordinate{Latitude: 14, Longitude: 121})
	assert.ErrorIs(t, err, ErrInvalidInput)
	client.AssertNotCalled(t, "Directions", mock.Anything, mock.Anything)
}

func TestGoogleProvider_Resolve(t *testing.T) {
	client := new(mockMapsClient)
	provider := newGoogleProvider(client, "ph", time.Second, zerolog.Nop())

	client.On("Geocode", mock.Anything, mock.MatchedBy(func(r *maps.GeocodingRequest) bool {
		return r.Address == "Naga City" && r.Region == "ph"
	})).Return([]maps.GeocodingResult{{
		FormattedAddress: "Naga, Camarines Sur, Philippines",
		Geometry:         maps.AddressGeometry{Location: maps.LatLng{Lat: 13.62, Lng: 123.19}},
	}}, nil)

	places, err := provider.Resolve(context.Background(), "  Naga City ")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Naga, Camarines Sur, Philippines", places[0].Label)
	assert.Equal(t, 13.62, places[0].Coordinate.Latitude)
}

func TestGoogleProvider_Resolve_ZeroResults(t *testing.T) {
	client := new(mockMapsClient)
	provider := newGoogleProvider(client, "", 0, zerolog.Nop())
	client.On("Geocode", mock.Anything, mock.Anything).Return(nil, errors.New("maps: ZERO_RESULTS - "))

	places, err := provider.Resolve(context.Background(), "nowhere")
	assert.NoError(t, err)
	assert.Empty(t, places)
}

func TestGoogleProvider_Resolve_EmptyQuery(t *testing.T) {
	provider := newGoogleProvider(new(mockMapsClient), "", 0, zerolog.Nop())
	_, err := provider.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
