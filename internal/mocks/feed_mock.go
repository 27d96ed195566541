package mocks

import (
	"context"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockAlertFeed is a mock implementation of feed.AlertFeed
type MockAlertFeed struct {
	mock.Mock
}

func (m *MockAlertFeed) Subscribe(handler func([]models.Alert)) error {
	args := m.Called(handler)
	return args.Error(0)
}

func (m *MockAlertFeed) Latest() ([]models.Alert, error) {
	args := m.Called()
	alerts, _ := args.Get(0).([]models.Alert)
	return alerts, args.Error(1)
}

func (m *MockAlertFeed) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAlertFeed) Close() error {
	args := m.Called()
	return args.Error(0)
}
