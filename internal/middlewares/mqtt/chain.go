package mqtt

import (
	"errors"
	"fmt"
	"time"

	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	mqttLib "github.com/eclipse/paho.mqtt.golang"
)

// ErrTokenTimeout is returned when the broker does not acknowledge an operation in time.
var ErrTokenTimeout = errors.New("mqtt operation timed out")

// ChainedMQTTClient wraps an MQTT client with a middleware chain.
type ChainedMQTTClient struct {
	middlewares []MQTTMiddleware
	direct      *directMQTTClient
}

var _ mqtt.Wrapper = (*ChainedMQTTClient)(nil)

// NewChainedMQTTClient creates a new chained MQTT client. Every broker operation waits at most
// timeout for its acknowledgement; zero waits indefinitely.
func NewChainedMQTTClient(mqttClient mqtt.MQTTClient, timeout time.Duration, middlewares ...MQTTMiddleware) *ChainedMQTTClient {
	direct := &directMQTTClient{mqttClient: mqttClient, timeout: timeout}

	for i := 0; i < len(middlewares)-1; i++ {
		middlewares[i].SetNext(middlewares[i+1])
	}
	if len(middlewares) > 0 {
		middlewares[len(middlewares)-1].SetNext(direct)
	}
	return &ChainedMQTTClient{
		middlewares: middlewares,
		direct:      direct,
	}
}

func (c *ChainedMQTTClient) head() MQTTMiddleware {
	if len(c.middlewares) == 0 {
		return c.direct
	}
	return c.middlewares[0]
}

// Publish sends a message through the middleware chain.
func (c *ChainedMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	return c.head().Publish(topic, qos, retained, payload)
}

// Subscribe subscribes through the middleware chain.
func (c *ChainedMQTTClient) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	return c.head().Subscribe(topic, qos, callback)
}

// Unsubscribe unsubscribes through the middleware chain.
func (c *ChainedMQTTClient) Unsubscribe(topics ...string) error {
	return c.head().Unsubscribe(topics...)
}

// directMQTTClient is the chain terminal that delegates to the MQTT client.
type directMQTTClient struct {
	mqttClient mqtt.MQTTClient
	timeout    time.Duration
}

func (d *directMQTTClient) SetNext(_ MQTTMiddleware) {}

func (d *directMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	if err := d.wait(d.mqttClient.Publish(topic, qos, retained, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (d *directMQTTClient) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) error {
	if err := d.wait(d.mqttClient.Subscribe(topic, qos, callback)); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (d *directMQTTClient) Unsubscribe(topics ...string) error {
	return d.wait(d.mqttClient.Unsubscribe(topics...))
}

func (d *directMQTTClient) wait(token mqttLib.Token) error {
	if d.timeout <= 0 {
		token.Wait()
		return token.Error()
	}
	if !token.WaitTimeout(d.timeout) {
		return ErrTokenTimeout
	}
	return token.Error()
}
