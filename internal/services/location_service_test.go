package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/route-sentinel/internal/mocks"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var naga = models.Position{
	Latitude:  13.6218,
	Longitude: 123.1948,
	Accuracy:  5,
	Timestamp: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
}

func TestLocationService_ForwardsAndPublishesFix(t *testing.T) {
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation", mock.Anything).Return(naga, nil)
	sink := new(mocks.MockTripController)
	sink.On("UpdatePosition", naga).Return()
	client := new(mocks.MockWrapper)
	client.On("Publish", "sentinel/location", byte(1), false, naga).Return(nil)

	l := NewLocationService("sentinel/location", time.Second, 1, provider, sink, client, zerolog.Nop())
	require.NoError(t, l.processCurrentLocation(context.Background()))

	sink.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestLocationService_NoFixIsNotAnError(t *testing.T) {
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation", mock.Anything).Return(models.Position{}, location.ErrNoFix)
	sink := new(mocks.MockTripController)

	l := NewLocationService("", time.Second, 0, provider, sink, nil, zerolog.Nop())
	require.NoError(t, l.processCurrentLocation(context.Background()))
	sink.AssertNotCalled(t, "UpdatePosition", mock.Anything)
}

func TestLocationService_ProviderErrorIsReturned(t *testing.T) {
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation", mock.Anything).Return(models.Position{}, errors.New("serial port gone"))
	sink := new(mocks.MockTripController)

	l := NewLocationService("", time.Second, 0, provider, sink, nil, zerolog.Nop())
	assert.Error(t, l.processCurrentLocation(context.Background()))
	sink.AssertNotCalled(t, "UpdatePosition", mock.Anything)
}

func TestLocationService_MissingTimestampIsFilled(t *testing.T) {
	fix := naga
	fix.Timestamp = time.Time{}
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation", mock.Anything).Return(fix, nil)
	sink := new(mocks.MockTripController)
	sink.On("UpdatePosition", mock.MatchedBy(func(p models.Position) bool {
		return !p.Timestamp.IsZero() && p.Latitude == naga.Latitude
	})).Return()

	l := NewLocationService("", time.Second, 0, provider, sink, nil, zerolog.Nop())
	require.NoError(t, l.processCurrentLocation(context.Background()))
	sink.AssertExpectations(t)
}

func TestLocationService_StartStop(t *testing.T) {
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation", mock.Anything).Return(naga, nil)
	provider.On("Close").Return(nil)

	updates := make(chan models.Position, 8)
	sink := new(mocks.MockTripController)
	sink.On("UpdatePosition", mock.Anything).Return().Run(func(args mock.Arguments) {
		select {
		case updates <- args.Get(0).(models.Position):
		default:
		}
	})

	l := NewLocationService("", 10*time.Millisecond, 0, provider, sink, nil, zerolog.Nop())
	require.NoError(t, l.Start())
	assert.Error(t, l.Start())

	select {
	case p := <-updates:
		assert.Equal(t, naga, p)
	case <-time.After(time.Second):
		t.Fatal("no position forwarded")
	}

	require.NoError(t, l.Stop())
	assert.Error(t, l.Stop())
	provider.AssertCalled(t, "Close")
}
