package mqtt

import (
	"math/rand"
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// RetryMiddleware retries failed publishes and subscriptions with a linear, jittered delay.
type RetryMiddleware struct {
	next       MQTTMiddleware
	attempts   int
	retryDelay time.Duration
	sleep      func(time.Duration)
	logger     zerolog.Logger
}

// NewRetryMiddleware creates a middleware making at most attempts tries per operation.
func NewRetryMiddleware(attempts int, retryDelay time.Duration, logger zerolog.Logger) *RetryMiddleware {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryMiddleware{
		attempts:   attempts,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// SetNext sets the next middleware in the chain.
func (m *RetryMiddleware) SetNext(next MQTTMiddleware) {
	m.next = next
}

// Publish sends the payload, retrying on failure.
func (m *RetryMiddleware) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	return m.retry("publish", topic, func() error {
		return m.next.Publish(topic, qos, retained, payload)
	})
}

// Subscribe subscribes to topic, retrying on failure.
func (m *RetryMiddleware) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	return m.retry("subscribe", topic, func() error {
		return m.next.Subscribe(topic, qos, callback)
	})
}

// Unsubscribe is not retried.
func (m *RetryMiddleware) Unsubscribe(topics ...string) error {
	return m.next.Unsubscribe(topics...)
}

func (m *RetryMiddleware) retry(op, topic string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == m.attempts {
			break
		}

		var jitter time.Duration
		if m.retryDelay >= 10 {
			jitter = time.Duration(rand.Int63n(int64(m.retryDelay) / 10))
		}
		totalDelay := m.retryDelay*time.Duration(attempt) + jitter
		m.logger.Warn().
			Str("op", op).
			Str("topic", topic).
			Int("attempt", attempt).
			Dur("retry_delay_ms", totalDelay).
			Err(err).
			Msg("MQTT operation failed, retrying after delay")
		m.sleep(totalDelay)
	}

	m.logger.Error().Str("op", op).Str("topic", topic).Err(err).Msg("MQTT operation failed")
	return err
}
