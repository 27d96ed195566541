package mocks

import (
	"context"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockRouteProvider is a mock implementation of navigation.RouteProvider
type MockRouteProvider struct {
	mock.Mock
}

func (m *MockRouteProvider) Route(ctx context.Context, from, to models.Coordinate) (*models.RouteGeometry, error) {
	args := m.Called(ctx, from, to)
	route, _ := args.Get(0).(*models.RouteGeometry)
	return route, args.Error(1)
}

// MockGeocoder is a mock implementation of navigation.Geocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Resolve(ctx context.Context, query string) ([]models.Place, error) {
	args := m.Called(ctx, query)
	places, _ := args.Get(0).([]models.Place)
	return places, args.Error(1)
}
