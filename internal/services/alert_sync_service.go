package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benmeehan/route-sentinel/internal/alerts"
	"github.com/benmeehan/route-sentinel/pkg/feed"
	"github.com/rs/zerolog"
)

// AlertSyncService feeds every alert snapshot from the upstream feed into the synchronizer.
type AlertSyncService struct {
	feed         feed.AlertFeed
	synchronizer *alerts.Synchronizer
	logger       zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewAlertSyncService creates the alert synchronization service.
func NewAlertSyncService(alertFeed feed.AlertFeed, synchronizer *alerts.Synchronizer, logger zerolog.Logger) *AlertSyncService {
	return &AlertSyncService{
		feed:         alertFeed,
		synchronizer: synchronizer,
		logger:       logger,
	}
}

// Start subscribes the synchronizer to the feed.
func (s *AlertSyncService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn().Msg("AlertSyncService is already running")
		return errors.New("alert sync service is already running")
	}

	if err := s.feed.Subscribe(s.synchronizer.Apply); err != nil {
		s.logger.Error().Err(err).Msg("Failed to subscribe to alert feed")
		return fmt.Errorf("subscribe to alert feed: %w", err)
	}

	s.running = true
	s.logger.Info().Msg("AlertSyncService started")
	return nil
}

// Stop drops the feed subscription.
func (s *AlertSyncService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Warn().Msg("AlertSyncService is not running")
		return errors.New("alert sync service is not running")
	}
	s.running = false

	if err := s.feed.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to close alert feed")
		return err
	}

	s.logger.Info().Msg("AlertSyncService stopped")
	return nil
}
