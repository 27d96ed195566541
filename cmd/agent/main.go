package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/route-sentinel/internal/alerts"
	"github.com/benmeehan/route-sentinel/internal/metrics"
	mqtt_middleware "github.com/benmeehan/route-sentinel/internal/middlewares/mqtt"
	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/benmeehan/route-sentinel/internal/navigation"
	"github.com/benmeehan/route-sentinel/internal/service_registry"
	"github.com/benmeehan/route-sentinel/internal/utils"
	"github.com/benmeehan/route-sentinel/pkg/feed"
	"github.com/benmeehan/route-sentinel/pkg/file"
	"github.com/benmeehan/route-sentinel/pkg/identity"
	"github.com/benmeehan/route-sentinel/pkg/mqtt"
	"github.com/benmeehan/route-sentinel/pkg/presenter"
	"github.com/benmeehan/route-sentinel/pkg/routing"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const configPath = "configs/config.yaml"

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func hiddenTypes(names []string, logger zerolog.Logger) []models.AlertType {
	var hidden []models.AlertType
	for name := range utils.SliceToSet(names) {
		t := models.AlertType(name)
		if !t.Valid() {
			logger.Warn().Str("type", name).Msg("Ignoring unknown hazard type in navigation.hidden_types")
			continue
		}
		hidden = append(hidden, t)
	}
	return hidden
}

func main() {
	bootLog := newLogger("info", false)

	// Secrets may live in a .env file next to the binary
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		bootLog.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		bootLog.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	log := newLogger(config.Log.Level, config.Log.Pretty)

	// Load or create the agent identity
	agentInfo := identity.NewAgentInfo(config.Identity.AgentFile, fileClient)
	if err := agentInfo.LoadOrCreate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load agent identity")
	}
	agentID := agentInfo.GetAgentID()
	log = log.With().Str("agent_id", agentID).Logger()

	clientID := config.MQTT.ClientID
	if clientID == "" {
		clientID = "sentinel-" + agentID
	}
	log.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient)
	mqttLog := component(log, "mqtt")
	err = mqttClient.Initialize(mqtt.ConnectOptions{
		Broker:         config.MQTT.Broker,
		ClientID:       clientID,
		CACertPath:     config.MQTT.CACertificate,
		Username:       config.MQTT.Username,
		Password:       config.MQTT.Password,
		ConnectTimeout: config.MQTT.Timeout,
		OnConnect:      func() { mqttLog.Info().Msg("Connected to MQTT broker") },
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	chainedClient := mqtt_middleware.NewChainedMQTTClient(mqttClient, config.MQTT.Timeout,
		mqtt_middleware.NewEnvelopeMiddleware(agentID, mqttLog),
		mqtt_middleware.NewRetryMiddleware(config.MQTT.PublishRetries, config.MQTT.RetryDelay, mqttLog),
	)

	collector := metrics.NewCollector()
	host := metrics.NewHostSampler(config.Metrics.DiskPath, component(log, "host"))
	if err := collector.Registry().Register(host); err != nil {
		log.Warn().Err(err).Msg("Failed to register host metrics")
	}

	alertFeed := feed.NewMQTTFeed(chainedClient, config.Feed.SnapshotTopic, config.Feed.DeleteTopic,
		byte(config.Feed.QOS), component(log, "feed"))
	mqttPresenter := presenter.NewMQTTPresenter(chainedClient, config.Presentation.TopicPrefix,
		byte(config.Presentation.QOS), component(log, "presenter"))

	var router navigation.RouteProvider
	var geocoder navigation.Geocoder
	if config.Maps.APIKey != "" {
		google, err := routing.NewGoogleProvider(config.Maps.APIKey, config.Maps.Region, config.Maps.Timeout, component(log, "routing"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create route provider")
		}
		router, geocoder = google, google
	}

	settings := navigation.Settings{
		OffRouteThreshold:      config.Navigation.OffRouteThreshold,
		RerouteDelay:           config.Navigation.RerouteDelay,
		ArrivalRadius:          config.Navigation.ArrivalRadius,
		IncidentRadius:         config.Navigation.IncidentRadius,
		IncidentLookback:       config.Navigation.IncidentLookback,
		RoutingTimeout:         config.Maps.Timeout,
		SuppressRepeatWarnings: config.Navigation.SuppressRepeatWarnings,
	}
	navigator := navigation.NewNavigator(settings, router, geocoder, mqttPresenter, collector, component(log, "navigator"))

	cache := alerts.NewCache()
	synchronizer := alerts.NewSynchronizer(cache,
		alerts.NewVisibility(hiddenTypes(config.Navigation.HiddenTypes, log)...),
		mqttPresenter, config.Services.Expiry.ResolvedTTL, collector, component(log, "alerts"))
	synchronizer.AddConsumer(navigator.OnAlerts)

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(service_registry.Dependencies{
		MQTT:         chainedClient,
		AgentInfo:    agentInfo,
		Feed:         alertFeed,
		Navigator:    navigator,
		Synchronizer: synchronizer,
		Cache:        cache,
		Expiry:       collector,
		Host:         host,
	}, component(log, "registry"))

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	var metricsServer interface{ Shutdown(context.Context) error }
	if config.Metrics.Enabled {
		metricsServer = collector.Serve(config.Metrics.Address, component(log, "metrics"))
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		mqttClient.Disconnect(250)
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services failed to stop")
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
	}
	mqttClient.Disconnect(250)
}
