package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/route-sentinel/internal/alerts"
	"github.com/benmeehan/route-sentinel/internal/navigation"
	"github.com/benmeehan/route-sentinel/internal/registry"
	"github.com/benmeehan/route-sentinel/internal/services"
	"github.com/benmeehan/route-sentinel/internal/utils"
	"github.com/benmeehan/route-sentinel/pkg/feed"
	"github.com/benmeehan/route-sentinel/pkg/identity"
	"github.com/benmeehan/route-sentinel/pkg/location"
	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	"github.com/rs/zerolog"
)

// Dependencies are the shared components the services are built from.
type Dependencies struct {
	MQTT         mqtt.Wrapper
	AgentInfo    identity.AgentInfoInterface
	Feed         feed.AlertFeed
	Navigator    *navigation.Navigator
	Synchronizer *alerts.Synchronizer
	Cache        *alerts.Cache
	Expiry       services.ExpiryMetrics // may be nil
	Host         services.HostSource    // may be nil

	// NewLocationProvider builds the location provider; nil selects the provider from config.
	NewLocationProvider func() (location.Provider, error)
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	deps        Dependencies
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(deps Dependencies, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]registry.Service),
		deps:     deps,
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Names returns the registered service names in start order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

func (sr *ServiceRegistry) serviceLogger(name string) zerolog.Logger {
	return sr.Logger.With().Str("service", name).Logger()
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	d := sr.deps

	// The navigator starts before the alert feed so the first snapshot reaches it.
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "navigator",
			enabled: config.Services.Navigator.Enabled,
			constructor: func() (registry.Service, error) {
				if d.Navigator == nil {
					return nil, errors.New("navigator is not configured")
				}
				return d.Navigator, nil
			},
		},
		{
			name:    "alert_sync",
			enabled: config.Services.AlertSync.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewAlertSyncService(d.Feed, d.Synchronizer, sr.serviceLogger("alert_sync")), nil
			},
		},
		{
			name:    "location",
			enabled: config.Services.Location.Enabled,
			constructor: func() (registry.Service, error) {
				provider, err := sr.locationProvider(config)
				if err != nil {
					return nil, err
				}
				cfg := config.Services.Location
				return services.NewLocationService(
					cfg.Topic,
					cfg.Interval,
					cfg.QOS,
					provider,
					d.Navigator,
					d.MQTT,
					sr.serviceLogger("location"),
				), nil
			},
		},
		{
			name:    "expiry",
			enabled: config.Services.Expiry.Enabled,
			constructor: func() (registry.Service, error) {
				cfg := config.Services.Expiry
				return services.NewExpiryService(
					cfg.Interval,
					cfg.ResolvedTTL,
					cfg.Workers,
					d.Feed,
					d.Expiry,
					sr.serviceLogger("expiry"),
				), nil
			},
		},
		{
			name:    "command",
			enabled: config.Services.Command.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewCommandService(
					config.Services.Command.Topic,
					config.Services.Command.QOS,
					d.MQTT,
					d.AgentInfo,
					d.Navigator,
					d.Synchronizer,
					sr.serviceLogger("command"),
				), nil
			},
		},
		{
			name:    "heartbeat",
			enabled: config.Services.Heartbeat.Enabled,
			constructor: func() (registry.Service, error) {
				cfg := config.Services.Heartbeat
				var sessions services.SessionSource
				if config.Services.Navigator.Enabled && d.Navigator != nil {
					sessions = d.Navigator
				}
				return services.NewHeartbeatService(
					cfg.Topic,
					cfg.Interval,
					cfg.QOS,
					d.AgentInfo,
					d.MQTT,
					sessions,
					d.Cache,
					d.Host,
					sr.serviceLogger("heartbeat"),
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return fmt.Errorf("create %s service: %w", svc.name, err)
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

// locationProvider reads the GPS sensor when the service is sensor based and falls back to
// WiFi and cell tower geolocation otherwise.
func (sr *ServiceRegistry) locationProvider(config *utils.Config) (location.Provider, error) {
	if sr.deps.NewLocationProvider != nil {
		return sr.deps.NewLocationProvider()
	}

	cfg := config.Services.Location
	if cfg.SensorBased {
		return location.NewDeviceSensorProvider(cfg.GPSDevicePort, cfg.GPSDeviceBaudRate), nil
	}

	provider, err := location.NewGoogleGeolocationProvider(config.Maps.APIKey, cfg.ModemIndex, sr.serviceLogger("location"))
	if err != nil {
		sr.Logger.Error().Err(err).Msg("failed to create Google Geolocation provider")
		return nil, err
	}
	return provider, nil
}
