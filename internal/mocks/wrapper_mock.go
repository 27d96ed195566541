package mocks

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// MockWrapper is a mock implementation of the blocking mqtt.Wrapper interface
type MockWrapper struct {
	mock.Mock
}

func (m *MockWrapper) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	args := m.Called(topic, qos, retained, payload)
	return args.Error(0)
}

func (m *MockWrapper) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) error {
	args := m.Called(topic, qos, callback)
	return args.Error(0)
}

func (m *MockWrapper) Unsubscribe(topics ...string) error {
	args := m.Called(topics)
	return args.Error(0)
}
