package presenter

import (
	"fmt"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	"github.com/rs/zerolog"
	"github.com/twpayne/go-polyline"
)

// Topic suffixes under the configured prefix.
const (
	TopicRoute   = "route"
	TopicBanner  = "banner"
	TopicToast   = "toast"
	TopicTrip    = "trip"
	TopicMarkers = "markers"
)

// MQTTPresenter publishes presentation events for a UI client. Route, banner and markers are
// retained so a client connecting late sees the current state.
type MQTTPresenter struct {
	client mqtt.Wrapper
	prefix string
	qos    byte
	logger zerolog.Logger
}

// NewMQTTPresenter creates a presenter publishing under prefix.
func NewMQTTPresenter(client mqtt.Wrapper, prefix string, qos byte, logger zerolog.Logger) *MQTTPresenter {
	return &MQTTPresenter{client: client, prefix: prefix, qos: qos, logger: logger}
}

// RouteDrawn publishes the new route with its encoded polyline.
func (p *MQTTPresenter) RouteDrawn(event models.RouteDrawn) error {
	if event.EncodedPolyline == "" {
		event.EncodedPolyline = EncodeRoute(event.Route.Vertices)
	}
	return p.publish(TopicRoute, true, event)
}

// TripBanner publishes the trip summary.
func (p *MQTTPresenter) TripBanner(banner models.TripBanner) error {
	return p.publish(TopicBanner, true, banner)
}

// Toast publishes a one-shot notification.
func (p *MQTTPresenter) Toast(toast models.Toast) error {
	return p.publish(TopicToast, false, toast)
}

// TripEnded publishes the end of a trip and clears the retained route and banner.
func (p *MQTTPresenter) TripEnded(event models.TripEnded) error {
	if err := p.publish(TopicTrip, false, event); err != nil {
		return err
	}
	// An empty retained message deletes the retained state on the broker.
	for _, suffix := range []string{TopicRoute, TopicBanner} {
		if err := p.client.Publish(p.topic(suffix), p.qos, true, []byte{}); err != nil {
			return fmt.Errorf("clear %s: %w", suffix, err)
		}
	}
	return nil
}

// Markers publishes the visible alert markers and the badge counter.
func (p *MQTTPresenter) Markers(markers models.AlertMarkers) error {
	return p.publish(TopicMarkers, true, markers)
}

func (p *MQTTPresenter) topic(suffix string) string {
	return p.prefix + "/" + suffix
}

func (p *MQTTPresenter) publish(suffix string, retained bool, payload interface{}) error {
	topic := p.topic(suffix)
	if err := p.client.Publish(topic, p.qos, retained, payload); err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish presentation event")
		return fmt.Errorf("publish %s: %w", suffix, err)
	}
	p.logger.Debug().Str("topic", topic).Msg("Presentation event published")
	return nil
}

// EncodeRoute encodes vertices in the Google encoded polyline format.
func EncodeRoute(vertices []models.Coordinate) string {
	if len(vertices) == 0 {
		return ""
	}
	coords := make([][]float64, len(vertices))
	for i, v := range vertices {
		coords[i] = []float64{v.Latitude, v.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}
