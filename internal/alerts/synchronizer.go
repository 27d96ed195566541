package alerts

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/rs/zerolog"
)

// ErrUnknownAlertType is returned when toggling a type outside models.AlertTypes.
var ErrUnknownAlertType = errors.New("unknown alert type")

// MarkerPresenter renders the visible alert markers and the badge counter.
type MarkerPresenter interface {
	Markers(markers models.AlertMarkers) error
}

// Consumer receives every applied snapshot, hidden types included.
type Consumer func(alerts []models.Alert)

// Metrics records synchronizer activity.
type Metrics interface {
	SnapshotApplied(cached int)
}

type nopMetrics struct{}

func (nopMetrics) SnapshotApplied(int) {}

// Synchronizer applies feed snapshots to the cache and fans them out. Apply and
// SetHazardTypeVisible are serialized so consumers always observe snapshots in order.
type Synchronizer struct {
	cache       *Cache
	visibility  *Visibility
	presenter   MarkerPresenter
	resolvedTTL time.Duration
	metrics     Metrics
	logger      zerolog.Logger
	now         func() time.Time

	mu        sync.Mutex
	consumers []Consumer
}

// NewSynchronizer creates a Synchronizer. presenter and metrics may be nil.
func NewSynchronizer(cache *Cache, visibility *Visibility, presenter MarkerPresenter,
	resolvedTTL time.Duration, metrics Metrics, logger zerolog.Logger) *Synchronizer {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Synchronizer{
		cache:       cache,
		visibility:  visibility,
		presenter:   presenter,
		resolvedTTL: resolvedTTL,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// AddConsumer registers c for all subsequent snapshots.
func (s *Synchronizer) AddConsumer(c Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers = append(s.consumers, c)
}

// Apply replaces the cache with snapshot, publishes markers and notifies every consumer.
func (s *Synchronizer) Apply(snapshot []models.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cache.Replace(snapshot, now)
	current := s.cache.Snapshot()
	s.metrics.SnapshotApplied(len(current))

	s.logger.Debug().Int("received", len(snapshot)).Int("cached", len(current)).Msg("Alert snapshot applied")

	s.publish(current, now)
	for _, c := range s.consumers {
		c(current)
	}
}

// SetHazardTypeVisible shows or hides a hazard type and re-publishes the markers.
func (s *Synchronizer) SetHazardTypeVisible(t models.AlertType, visible bool) error {
	if !t.Valid() {
		return fmt.Errorf("%q: %w", t, ErrUnknownAlertType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.visibility.SetVisible(t, visible) {
		return nil
	}
	s.logger.Info().Str("type", string(t)).Bool("visible", visible).Msg("Hazard visibility changed")

	s.publish(s.cache.Snapshot(), s.now())
	return nil
}

// Markers returns the current marker view.
func (s *Synchronizer) Markers() models.AlertMarkers {
	return BuildMarkers(s.cache.Snapshot(), s.visibility, s.resolvedTTL, s.now())
}

// Visible returns the alerts currently shown to the user.
func (s *Synchronizer) Visible() []models.Alert {
	return VisibleAlerts(s.cache.Snapshot(), s.visibility, s.now())
}

func (s *Synchronizer) publish(current []models.Alert, now time.Time) {
	if s.presenter == nil {
		return
	}
	markers := BuildMarkers(current, s.visibility, s.resolvedTTL, now)
	if err := s.presenter.Markers(markers); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to present alert markers")
	}
}
