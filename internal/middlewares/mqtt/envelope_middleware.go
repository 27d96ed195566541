package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// EnvelopeMiddleware wraps structured payloads with the agent id and a timestamp and
// serializes them to JSON. Raw []byte payloads pass through untouched.
type EnvelopeMiddleware struct {
	next    MQTTMiddleware
	agentID string
	now     func() time.Time
	logger  zerolog.Logger
}

// NewEnvelopeMiddleware creates a new envelope middleware.
func NewEnvelopeMiddleware(agentID string, logger zerolog.Logger) *EnvelopeMiddleware {
	return &EnvelopeMiddleware{agentID: agentID, now: time.Now, logger: logger}
}

// SetNext sets the next middleware in the chain.
func (m *EnvelopeMiddleware) SetNext(next MQTTMiddleware) {
	m.next = next
}

// Publish wraps the payload and passes it down the chain.
func (m *EnvelopeMiddleware) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	if raw, ok := payload.([]byte); ok {
		return m.next.Publish(topic, qos, retained, raw)
	}

	payloadBytes, err := json.Marshal(models.Envelope{
		AgentID: m.agentID,
		SentAt:  m.now().UTC(),
		Payload: payload,
	})
	if err != nil {
		m.logger.Error().Err(err).Str("topic", topic).Msg("Failed to serialize wrapped payload")
		return fmt.Errorf("failed to serialize wrapped payload: %w", err)
	}

	return m.next.Publish(topic, qos, retained, payloadBytes)
}

// Subscribe subscribes to a topic with the provided callback.
func (m *EnvelopeMiddleware) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	return m.next.Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes from the specified topics.
func (m *EnvelopeMiddleware) Unsubscribe(topics ...string) error {
	return m.next.Unsubscribe(topics...)
}
