package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/route-sentinel/internal/constants"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/internal/navigation"
	"github.com/benmeehan/route-sentinel/pkg/identity"
	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	"github.com/rs/zerolog"
)

// SessionSource exposes the current trip session.
type SessionSource interface {
	Session(ctx context.Context) (navigation.TripSession, error)
}

// AlertCounter reports the number of cached alerts.
type AlertCounter interface {
	Len() int
}

// HostSource samples device resource usage.
type HostSource interface {
	Sample(ctx context.Context) models.HostStats
}

// HeartbeatService periodically publishes the agent status.
type HeartbeatService struct {
	PubTopic  string
	Interval  time.Duration
	QOS       int
	AgentInfo identity.AgentInfoInterface
	Client    mqtt.Wrapper
	Sessions  SessionSource
	Alerts    AlertCounter
	Host      HostSource
	Logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeatService initializes a new HeartbeatService. sessions, alertCount and host may
// be nil when the matching component is disabled.
func NewHeartbeatService(pubTopic string, interval time.Duration, qos int, agentInfo identity.AgentInfoInterface,
	client mqtt.Wrapper, sessions SessionSource, alertCount AlertCounter, host HostSource, logger zerolog.Logger) *HeartbeatService {
	return &HeartbeatService{
		PubTopic:  pubTopic,
		Interval:  interval,
		QOS:       qos,
		AgentInfo: agentInfo,
		Client:    client,
		Sessions:  sessions,
		Alerts:    alertCount,
		Host:      host,
		Logger:    logger,
	}
}

// Start launches the heartbeat loop in a separate goroutine.
func (h *HeartbeatService) Start() error {
	if h.ctx != nil {
		h.Logger.Warn().Msg("HeartbeatService is already running")
		return errors.New("heartbeat service is already running")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runHeartbeatLoop()
	}()

	h.Logger.Info().Str("topic", h.topic()).Msg("HeartbeatService started successfully")
	return nil
}

// Stop gracefully stops the heartbeat service.
func (h *HeartbeatService) Stop() error {
	if h.ctx == nil {
		h.Logger.Warn().Msg("HeartbeatService is not running")
		return errors.New("heartbeat service is not running")
	}

	h.cancel()
	h.wg.Wait()

	h.ctx = nil
	h.cancel = nil

	h.Logger.Info().Msg("HeartbeatService stopped successfully")
	return nil
}

func (h *HeartbeatService) topic() string {
	return h.PubTopic + "/" + h.AgentInfo.GetAgentID()
}

func (h *HeartbeatService) runHeartbeatLoop() {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.Client.Publish(h.topic(), byte(h.QOS), false, h.Status(h.ctx)); err != nil {
				h.Logger.Error().Err(err).Msg("Failed to publish heartbeat message")
			} else {
				h.Logger.Debug().Msg("Heartbeat published successfully")
			}
		case <-h.ctx.Done():
			h.Logger.Info().Msg("HeartbeatService stopping gracefully")
			return
		}
	}
}

// Status builds the current heartbeat. A navigator that does not answer within one
// interval marks the agent degraded.
func (h *HeartbeatService) Status(ctx context.Context) models.Heartbeat {
	hb := models.Heartbeat{
		Timestamp: time.Now(),
		Status:    constants.StatusAlive,
		TripState: navigation.StateIdle.String(),
	}
	if h.Alerts != nil {
		hb.CachedAlerts = h.Alerts.Len()
	}
	if h.Host != nil {
		stats := h.Host.Sample(ctx)
		hb.Host = &stats
	}
	if h.Sessions == nil {
		return hb
	}

	ctx, cancel := context.WithTimeout(ctx, h.Interval)
	defer cancel()
	session, err := h.Sessions.Session(ctx)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("Trip session unavailable")
		hb.Status = constants.StatusDegraded
		return hb
	}
	hb.TripState = session.State.String()
	hb.TripID = session.TripID
	hb.ReroutePending = session.ReroutePending
	return hb
}
