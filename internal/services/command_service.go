package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benmeehan/route-sentinel/internal/constants"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/pkg/identity"
	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// ErrUnknownCommand is reported for command names the service does not handle.
var ErrUnknownCommand = errors.New("unknown command")

// TripController starts and cancels trips.
type TripController interface {
	StartTrip(ctx context.Context, origin, destination string) (string, error)
	CancelTrip(ctx context.Context) error
}

// HazardVisibility toggles hazard types on the map.
type HazardVisibility interface {
	SetHazardTypeVisible(t models.AlertType, visible bool) error
}

// CommandService receives user commands via MQTT and publishes the results back to a
// response topic.
type CommandService struct {
	// Configuration Fields
	subTopic string
	qos      int

	// Dependencies
	mqttClient mqtt.Wrapper
	agentInfo  identity.AgentInfoInterface
	trips      TripController
	hazards    HazardVisibility
	logger     zerolog.Logger

	// Internal state management
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCommandService initializes a new CommandService with given parameters.
func NewCommandService(subTopic string, qos int, mqttClient mqtt.Wrapper, agentInfo identity.AgentInfoInterface,
	trips TripController, hazards HazardVisibility, logger zerolog.Logger) *CommandService {
	return &CommandService{
		subTopic:   subTopic,
		qos:        qos,
		mqttClient: mqttClient,
		agentInfo:  agentInfo,
		trips:      trips,
		hazards:    hazards,
		logger:     logger,
	}
}

func (cs *CommandService) topic() string {
	return cs.subTopic + "/" + cs.agentInfo.GetAgentID()
}

// Start subscribes to the MQTT topic and listens for incoming commands.
func (cs *CommandService) Start() error {
	cs.mu.Lock()
	if cs.ctx != nil {
		cs.mu.Unlock()
		cs.logger.Warn().Msg("CommandService is already running")
		return errors.New("command service is already running")
	}
	cs.ctx, cs.cancel = context.WithCancel(context.Background())
	cs.stopChan = make(chan struct{})
	cs.mu.Unlock()

	topic := cs.topic()
	cs.logger.Info().Str("topic", topic).Msg("Starting CommandService and subscribing to MQTT topic")
	if err := cs.mqttClient.Subscribe(topic, byte(cs.qos), cs.HandleCommand); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		cs.mu.Lock()
		cs.cancel()
		cs.ctx, cs.cancel = nil, nil
		cs.mu.Unlock()
		return err
	}

	cs.logger.Info().Str("topic", topic).Msg("Successfully subscribed to MQTT topic")
	return nil
}

// Stop unsubscribes from MQTT and waits for commands in progress to finish.
func (cs *CommandService) Stop() error {
	cs.mu.Lock()
	if cs.ctx == nil {
		cs.mu.Unlock()
		cs.logger.Warn().Msg("CommandService is not running")
		return errors.New("command service is not running")
	}
	cs.cancel()
	close(cs.stopChan)
	cs.mu.Unlock()

	cs.wg.Wait()

	cs.mu.Lock()
	cs.ctx, cs.cancel = nil, nil
	cs.mu.Unlock()

	topic := cs.topic()
	if err := cs.mqttClient.Unsubscribe(topic); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from MQTT topic")
		return err
	}

	cs.logger.Info().Msg("CommandService stopped successfully")
	return nil
}

// HandleCommand decodes a command and runs it off the MQTT callback goroutine, since
// starting a trip blocks until routing completes.
func (cs *CommandService) HandleCommand(_ MQTT.Client, msg MQTT.Message) {
	cs.mu.Lock()
	if cs.ctx == nil {
		cs.mu.Unlock()
		cs.logger.Warn().Msg("Received command but service is not running, ignoring command")
		return
	}
	select {
	case <-cs.stopChan:
		cs.mu.Unlock()
		cs.logger.Warn().Msg("Received command but service is stopping, ignoring command")
		return
	default:
		cs.wg.Add(1)
	}
	ctx := cs.ctx
	cs.mu.Unlock()

	go func() {
		defer cs.wg.Done()
		cs.process(ctx, msg.Topic(), msg.Payload())
	}()
}

func (cs *CommandService) process(ctx context.Context, topic string, payload []byte) {
	var cmd models.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Discarding malformed command")
		cs.respond(ctx, models.CommandResponse{
			Status: constants.CommandStatusFailed,
			Error:  fmt.Sprintf("malformed command: %v", err),
		})
		return
	}

	cs.logger.Info().Str("topic", topic).Str("command", cmd.Name).Msg("Received command from MQTT topic")

	cmdCtx, cancel := context.WithTimeout(ctx, constants.CommandTimeout)
	defer cancel()

	tripID, err := cs.ExecuteCommand(cmdCtx, cmd)
	response := models.CommandResponse{
		Command: cmd.Name,
		Status:  constants.CommandStatusSuccess,
		TripID:  tripID,
	}
	if err != nil {
		cs.logger.Error().Err(err).Str("command", cmd.Name).Msg("Command execution failed")
		response.Status = constants.CommandStatusFailed
		response.Error = err.Error()
	}
	cs.respond(ctx, response)
}

// ExecuteCommand runs cmd and returns the trip id for start_trip.
func (cs *CommandService) ExecuteCommand(ctx context.Context, cmd models.Command) (string, error) {
	switch cmd.Name {
	case constants.CommandStartTrip:
		return cs.trips.StartTrip(ctx, cmd.Origin, cmd.Destination)
	case constants.CommandCancelTrip:
		return "", cs.trips.CancelTrip(ctx)
	case constants.CommandSetHazardVisible:
		return "", cs.hazards.SetHazardTypeVisible(cmd.Type, cmd.Visible)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
}

// respond publishes response to the response topic.
func (cs *CommandService) respond(ctx context.Context, response models.CommandResponse) {
	topic := cs.topic() + "/response"
	if ctx.Err() != nil {
		cs.logger.Warn().Str("topic", topic).Msg("Publish operation cancelled")
		return
	}
	if err := cs.mqttClient.Publish(topic, byte(cs.qos), false, response); err != nil {
		cs.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish command response")
		return
	}
	cs.logger.Debug().Str("topic", topic).Str("status", response.Status).Msg("Command response published")
}
