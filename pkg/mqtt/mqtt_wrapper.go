package mqtt

import MQTT "github.com/eclipse/paho.mqtt.golang"

// Wrapper is the blocking MQTT surface used by the agent components. Implementations wait
// for the broker acknowledgement and report failures as errors instead of tokens.
type Wrapper interface {
	// Publish sends payload to topic. Non-byte payloads may be encoded by middleware.
	Publish(topic string, qos byte, retained bool, payload interface{}) error

	// Subscribe registers callback for messages on topic.
	Subscribe(topic string, qos byte, callback MQTT.MessageHandler) error

	// Unsubscribe removes the subscriptions for topics.
	Unsubscribe(topics ...string) error
}
