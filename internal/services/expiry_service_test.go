package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/route-sentinel/internal/mocks"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/feed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var sweepNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := sweepNow.Add(d)
	return &t
}

type sweepRecorder struct {
	mu     sync.Mutex
	sweeps [][2]int
}

func (r *sweepRecorder) ExpirySwept(deleted, failed int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, [2]int{deleted, failed})
}

func newTestExpiryService(alertFeed feed.AlertFeed, metrics ExpiryMetrics) *ExpiryService {
	e := NewExpiryService(time.Hour, 10*time.Minute, 2, alertFeed, metrics, zerolog.Nop())
	e.now = func() time.Time { return sweepNow }
	return e
}

func TestQualifies(t *testing.T) {
	ttl := 10 * time.Minute
	tests := []struct {
		name  string
		alert models.Alert
		want  bool
	}{
		{"active", models.Alert{Key: "a"}, false},
		{"resolved recently", models.Alert{Key: "a", ResolvedAt: at(-9 * time.Minute)}, false},
		{"resolved exactly ttl ago", models.Alert{Key: "a", ResolvedAt: at(-10 * time.Minute)}, true},
		{"resolved long ago", models.Alert{Key: "a", ResolvedAt: at(-2 * time.Hour)}, true},
		{"expiry in the future", models.Alert{Key: "a", ExpiresAt: at(time.Minute)}, false},
		{"expiry reached", models.Alert{Key: "a", ExpiresAt: at(0)}, true},
		{"resolved recently but expired", models.Alert{Key: "a", ResolvedAt: at(-time.Minute), ExpiresAt: at(-time.Second)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Qualifies(tt.alert, ttl, sweepNow))
		})
	}
}

func TestExpiryService_SweepDeletesEachQualifyingKeyOnce(t *testing.T) {
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Latest").Return([]models.Alert{
		{Key: "old", ResolvedAt: at(-time.Hour)},
		{Key: "old", ResolvedAt: at(-time.Hour)},
		{Key: "expired", ExpiresAt: at(-time.Minute)},
		{Key: "fresh", ResolvedAt: at(-time.Minute)},
		{Key: "active"},
		{Key: "", ResolvedAt: at(-time.Hour)},
	}, nil)
	alertFeed.On("Delete", mock.Anything, "old").Return(nil).Once()
	alertFeed.On("Delete", mock.Anything, "expired").Return(nil).Once()

	recorder := &sweepRecorder{}
	deleted, failed := newTestExpiryService(alertFeed, recorder).Sweep(context.Background())

	assert.Equal(t, 2, deleted)
	assert.Equal(t, 0, failed)
	alertFeed.AssertNumberOfCalls(t, "Delete", 2)
	alertFeed.AssertExpectations(t)
	assert.Equal(t, [][2]int{{2, 0}}, recorder.sweeps)
}

func TestExpiryService_FailedDeletesAreCountedAndRetriedNextSweep(t *testing.T) {
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Latest").Return([]models.Alert{
		{Key: "a", ResolvedAt: at(-time.Hour)},
		{Key: "b", ExpiresAt: at(-time.Hour)},
	}, nil)
	alertFeed.On("Delete", mock.Anything, "a").Return(errors.New("broker down"))
	alertFeed.On("Delete", mock.Anything, "b").Return(nil)

	e := newTestExpiryService(alertFeed, nil)

	deleted, failed := e.Sweep(context.Background())
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, failed)

	e.Sweep(context.Background())
	alertFeed.AssertNumberOfCalls(t, "Delete", 4)
}

func TestExpiryService_SweepWaitsForTheWholeBatch(t *testing.T) {
	var snapshot []models.Alert
	for _, key := range []string{"a", "b", "c", "d", "e", "f"} {
		snapshot = append(snapshot, models.Alert{Key: key, ResolvedAt: at(-time.Hour)})
	}

	var finished atomic.Int32
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Latest").Return(snapshot, nil)
	alertFeed.On("Delete", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		time.Sleep(10 * time.Millisecond)
		finished.Add(1)
	})

	deleted, _ := newTestExpiryService(alertFeed, nil).Sweep(context.Background())

	assert.Equal(t, 6, deleted)
	assert.EqualValues(t, 6, finished.Load())
}

func TestExpiryService_SkipsSweepWhenFeedUnavailable(t *testing.T) {
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Latest").Return(nil, feed.ErrFeedUnavailable)

	recorder := &sweepRecorder{}
	deleted, failed := newTestExpiryService(alertFeed, recorder).Sweep(context.Background())

	assert.Zero(t, deleted)
	assert.Zero(t, failed)
	alertFeed.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Empty(t, recorder.sweeps)
}

func TestExpiryService_CancelledSweepStopsSubmitting(t *testing.T) {
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Latest").Return([]models.Alert{{Key: "a", ResolvedAt: at(-time.Hour)}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Submit may still win the race against the closed context.
	alertFeed.On("Delete", mock.Anything, "a").Return(context.Canceled).Maybe()

	deleted, _ := newTestExpiryService(alertFeed, nil).Sweep(ctx)
	assert.Zero(t, deleted)
}

func TestExpiryService_StartSweepsImmediately(t *testing.T) {
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Subscribe", mock.Anything).Return(nil)
	alertFeed.On("Latest").Return([]models.Alert{{Key: "a", ExpiresAt: at(-time.Minute)}}, nil)
	deletes := make(chan string, 1)
	alertFeed.On("Delete", mock.Anything, "a").Return(nil).Run(func(args mock.Arguments) {
		select {
		case deletes <- args.String(1):
		default:
		}
	})

	e := newTestExpiryService(alertFeed, nil)
	require.NoError(t, e.Start())
	assert.Error(t, e.Start())

	select {
	case key := <-deletes:
		assert.Equal(t, "a", key)
	case <-time.After(time.Second):
		t.Fatal("no sweep after start")
	}

	require.NoError(t, e.Stop())
	assert.Error(t, e.Stop())
}

func TestExpiryService_StartToleratesSubscribeFailure(t *testing.T) {
	alertFeed := new(mocks.MockAlertFeed)
	alertFeed.On("Subscribe", mock.Anything).Return(feed.ErrFeedUnavailable)
	alertFeed.On("Latest").Return(nil, feed.ErrFeedUnavailable)

	e := newTestExpiryService(alertFeed, nil)
	require.NoError(t, e.Start())
	require.NoError(t, e.Stop())
}
