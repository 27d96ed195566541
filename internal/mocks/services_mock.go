package mocks

import (
	"context"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/identity"
	"github.com/stretchr/testify/mock"
)

// MockTripController is a mock implementation of services.TripController and services.PositionSink
type MockTripController struct {
	mock.Mock
}

func (m *MockTripController) StartTrip(ctx context.Context, origin, destination string) (string, error) {
	args := m.Called(ctx, origin, destination)
	return args.String(0), args.Error(1)
}

func (m *MockTripController) CancelTrip(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTripController) UpdatePosition(position models.Position) {
	m.Called(position)
}

// MockHazardVisibility is a mock implementation of services.HazardVisibility
type MockHazardVisibility struct {
	mock.Mock
}

func (m *MockHazardVisibility) SetHazardTypeVisible(t models.AlertType, visible bool) error {
	args := m.Called(t, visible)
	return args.Error(0)
}

// MockLocationProvider is a mock implementation of location.Provider
type MockLocationProvider struct {
	mock.Mock
}

func (m *MockLocationProvider) GetLocation(ctx context.Context) (models.Position, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Position), args.Error(1)
}

func (m *MockLocationProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAgentInfo is a mock implementation of identity.AgentInfoInterface
type MockAgentInfo struct {
	mock.Mock
}

func (m *MockAgentInfo) LoadOrCreate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockAgentInfo) GetAgentID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAgentInfo) GetIdentity() *identity.Identity {
	args := m.Called()
	return args.Get(0).(*identity.Identity)
}
