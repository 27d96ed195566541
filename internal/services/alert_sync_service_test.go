package services

import (
	"testing"
	"time"

	"github.com/benmeehan/route-sentinel/internal/alerts"
	"github.com/benmeehan/route-sentinel/internal/mocks"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/feed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAlertSyncService_SnapshotsReachConsumers(t *testing.T) {
	cache := alerts.NewCache()
	presenter := new(mocks.RecordingPresenter)
	synchronizer := alerts.NewSynchronizer(cache, alerts.NewVisibility(), presenter, 10*time.Minute, nil, zerolog.Nop())

	var received []models.Alert
	synchronizer.AddConsumer(func(a []models.Alert) { received = a })

	var handler func([]models.Alert)
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Subscribe", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		handler = args.Get(0).(func([]models.Alert))
	})
	alertFeed.On("Close").Return(nil)

	s := NewAlertSyncService(alertFeed, synchronizer, zerolog.Nop())
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	require.NotNil(t, handler)

	handler([]models.Alert{{Key: "k1", Type: models.AlertFlood, Latitude: 13.6, Longitude: 123.2}})

	assert.Equal(t, 1, cache.Len())
	require.Len(t, received, 1)
	assert.Equal(t, "k1", received[0].Key)
	assert.Equal(t, 1, presenter.LastMarkers().BadgeCount)

	require.NoError(t, s.Stop())
	assert.Error(t, s.Stop())
	alertFeed.AssertExpectations(t)
}

func TestAlertSyncService_StartFailsWhenFeedUnavailable(t *testing.T) {
	synchronizer := alerts.NewSynchronizer(alerts.NewCache(), alerts.NewVisibility(), nil, 10*time.Minute, nil, zerolog.Nop())
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Subscribe", mock.Anything).Return(feed.ErrFeedUnavailable)

	s := NewAlertSyncService(alertFeed, synchronizer, zerolog.Nop())
	err := s.Start()
	assert.ErrorIs(t, err, feed.ErrFeedUnavailable)
	assert.Error(t, s.Stop())
}
