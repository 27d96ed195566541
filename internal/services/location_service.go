package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/location"
	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	"github.com/rs/zerolog"
)

// PositionSink receives every new location fix.
type PositionSink interface {
	UpdatePosition(position models.Position)
}

// LocationService polls the location provider, forwards fixes to the navigator and, when a
// topic is configured, publishes them to the MQTT broker.
type LocationService struct {
	// Configuration fields
	topic    string
	interval time.Duration
	qos      int

	// Dependencies
	provider   location.Provider
	sink       PositionSink
	mqttClient mqtt.Wrapper
	logger     zerolog.Logger

	// Internal state management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocationService creates a new LocationService. mqttClient may be nil when topic is empty.
func NewLocationService(topic string, interval time.Duration, qos int, provider location.Provider,
	sink PositionSink, mqttClient mqtt.Wrapper, logger zerolog.Logger) *LocationService {
	return &LocationService{
		topic:      topic,
		interval:   interval,
		qos:        qos,
		provider:   provider,
		sink:       sink,
		mqttClient: mqttClient,
		logger:     logger,
	}
}

// Start begins polling the provider every interval.
func (l *LocationService) Start() error {
	if l.ctx != nil {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := l.processCurrentLocation(l.ctx); err != nil && !errors.Is(err, context.Canceled) {
					l.logger.Error().Err(err).Msg("Failed to process current location")
				}
			case <-l.ctx.Done():
				l.logger.Info().Msg("LocationService is stopping")
				return
			}
		}
	}()

	l.logger.Info().
		Str("topic", l.topic).
		Dur("interval", l.interval).
		Int("qos", l.qos).
		Msg("LocationService started")
	return nil
}

// Stop stops polling and closes the provider.
func (l *LocationService) Stop() error {
	if l.ctx == nil {
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}

	l.cancel()
	l.wg.Wait()

	l.ctx = nil
	l.cancel = nil

	if err := l.provider.Close(); err != nil {
		l.logger.Error().Err(err).Msg("Failed to close location provider")
		return err
	}

	l.logger.Info().Msg("LocationService stopped")
	return nil
}

// processCurrentLocation reads one fix, hands it to the sink and publishes it.
func (l *LocationService) processCurrentLocation(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.interval)
	defer cancel()

	position, err := l.provider.GetLocation(ctx)
	if errors.Is(err, location.ErrNoFix) {
		l.logger.Debug().Msg("No position fix yet")
		return nil
	}
	if err != nil {
		return err
	}
	if position.Timestamp.IsZero() {
		position.Timestamp = time.Now()
	}

	l.sink.UpdatePosition(position)

	if l.topic == "" || l.mqttClient == nil {
		return nil
	}
	if err := l.mqttClient.Publish(l.topic, byte(l.qos), false, position); err != nil {
		l.logger.Error().Err(err).Str("topic", l.topic).Msg("Failed to publish position")
		return err
	}

	l.logger.Debug().
		Float64("lat", position.Latitude).
		Float64("lng", position.Longitude).
		Str("topic", l.topic).
		Msg("Position published")
	return nil
}
