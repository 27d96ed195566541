package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/route-sentinel/internal/mocks"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChainedMQTTClient_EnvelopeWrapsStructuredPayloads(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	envelope := NewEnvelopeMiddleware("agent-7", zerolog.Nop())
	envelope.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	var published []byte
	client.On("Publish", "agent/route", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(3).([]byte) }).
		Return(&mocks.DoneToken{})

	chain := NewChainedMQTTClient(client, time.Second, envelope)
	require.NoError(t, chain.Publish("agent/route", 1, false, map[string]int{"n": 3}))

	var got struct {
		AgentID string         `json:"agent_id"`
		SentAt  time.Time      `json:"sent_at"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(published, &got))
	assert.Equal(t, "agent-7", got.AgentID)
	assert.Equal(t, 3, got.Payload["n"])
	assert.True(t, got.SentAt.Equal(envelope.now()))
}

func TestChainedMQTTClient_RawBytesPassThrough(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	raw := []byte(`{"key":"abc"}`)
	client.On("Publish", "alerts/delete", byte(1), false, raw).Return(&mocks.DoneToken{})

	chain := NewChainedMQTTClient(client, time.Second, NewEnvelopeMiddleware("agent-7", zerolog.Nop()))
	require.NoError(t, chain.Publish("alerts/delete", 1, false, raw))
	client.AssertExpectations(t)
}

func TestChainedMQTTClient_RetryEventuallySucceeds(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "t", byte(0), false, mock.Anything).Return(&mocks.DoneToken{Err: errors.New("broker down")}).Twice()
	client.On("Publish", "t", byte(0), false, mock.Anything).Return(&mocks.DoneToken{}).Once()

	retry := NewRetryMiddleware(3, time.Millisecond, zerolog.Nop())
	var slept []time.Duration
	retry.sleep = func(d time.Duration) { slept = append(slept, d) }

	chain := NewChainedMQTTClient(client, time.Second, retry)
	require.NoError(t, chain.Publish("t", 0, false, []byte("x")))

	client.AssertNumberOfCalls(t, "Publish", 3)
	assert.Len(t, slept, 2)
}

func TestChainedMQTTClient_RetryGivesUp(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Subscribe", "t", byte(1), mock.Anything).Return(&mocks.DoneToken{Err: errors.New("denied")})

	retry := NewRetryMiddleware(2, 0, zerolog.Nop())
	retry.sleep = func(time.Duration) {}

	chain := NewChainedMQTTClient(client, time.Second, retry)
	err := chain.Subscribe("t", 1, func(mqttLib.Client, mqttLib.Message) {})
	assert.ErrorContains(t, err, "denied")
	client.AssertNumberOfCalls(t, "Subscribe", 2)
}

type pendingToken struct{ mocks.DoneToken }

func (pendingToken) WaitTimeout(time.Duration) bool { return false }

func TestChainedMQTTClient_Timeout(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Unsubscribe", []string{"a", "b"}).Return(&pendingToken{})

	chain := NewChainedMQTTClient(client, time.Millisecond)
	assert.ErrorIs(t, chain.Unsubscribe("a", "b"), ErrTokenTimeout)
}
