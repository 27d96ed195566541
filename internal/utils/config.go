package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benmeehan/route-sentinel/internal/constants"
	"github.com/benmeehan/route-sentinel/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`  // zerolog level name
		Pretty bool   `yaml:"pretty"` // console output instead of JSON
	} `yaml:"log"`

	MQTT struct {
		Broker         string        `yaml:"broker"`          // MQTT broker address
		ClientID       string        `yaml:"client_id"`       // MQTT client ID, defaults to the agent id
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate, empty disables TLS
		Username       string        `yaml:"username"`        // Broker username, MQTT_USERNAME overrides
		Password       string        `yaml:"password"`        // Broker password, MQTT_PASSWORD overrides
		Timeout        time.Duration `yaml:"timeout"`         // Max wait for a broker acknowledgement
		PublishRetries int           `yaml:"publish_retries"` // Attempts per publish or subscribe
		RetryDelay     time.Duration `yaml:"retry_delay"`     // Base delay between attempts
	} `yaml:"mqtt"`

	Identity struct {
		AgentFile string `yaml:"agent_file"` // Path to the agent identity file
	} `yaml:"identity"`

	Maps struct {
		APIKey  string        `yaml:"api_key"` // Google Maps API key, MAPS_API_KEY overrides
		Region  string        `yaml:"region"`  // Region bias for geocoding, e.g. "ph"
		Timeout time.Duration `yaml:"timeout"` // Per-request routing and geocoding timeout
	} `yaml:"maps"`

	Navigation struct {
		OffRouteThreshold      float64       `yaml:"off_route_threshold"`      // meters
		RerouteDelay           time.Duration `yaml:"reroute_delay"`            // deviation debounce
		ArrivalRadius          float64       `yaml:"arrival_radius"`           // meters
		IncidentRadius         float64       `yaml:"incident_radius"`          // meters
		IncidentLookback       time.Duration `yaml:"incident_lookback"`        // negative disables the window
		SuppressRepeatWarnings bool          `yaml:"suppress_repeat_warnings"` // warn once per alert per trip
		HiddenTypes            []string      `yaml:"hidden_types"`             // hazard types hidden at startup
	} `yaml:"navigation"`

	Feed struct {
		SnapshotTopic string `yaml:"snapshot_topic"` // Retained topic carrying the alert collection
		DeleteTopic   string `yaml:"delete_topic"`   // Topic receiving delete requests
		QOS           int    `yaml:"qos"`            // MQTT QoS level for feed messages
	} `yaml:"feed"`

	Presentation struct {
		TopicPrefix string `yaml:"topic_prefix"` // Prefix for route, banner, toast, trip and markers topics
		QOS         int    `yaml:"qos"`          // MQTT QoS level for presentation messages
	} `yaml:"presentation"`

	Metrics struct {
		Enabled  bool   `yaml:"enabled"`   // Enable/disable the Prometheus endpoint
		Address  string `yaml:"address"`   // Listen address for /metrics
		DiskPath string `yaml:"disk_path"` // Filesystem reported by the host sampler
	} `yaml:"metrics"`

	Services struct {
		Navigator struct {
			Enabled bool `yaml:"enabled"` // Enable/disable the navigator
		} `yaml:"navigator"`

		AlertSync struct {
			Enabled bool `yaml:"enabled"` // Enable/disable alert synchronization
		} `yaml:"alert_sync"`

		Expiry struct {
			Enabled     bool          `yaml:"enabled"`      // Enable/disable the expiry reaper
			Interval    time.Duration `yaml:"interval"`     // Time between sweeps
			ResolvedTTL time.Duration `yaml:"resolved_ttl"` // Retention of resolved alerts
			Workers     int           `yaml:"workers"`      // Concurrent deletions per sweep
		} `yaml:"expiry"`

		Command struct {
			Topic   string `yaml:"topic"`   // MQTT topic for command service
			Enabled bool   `yaml:"enabled"` // Enable/disable command service
			QOS     int    `yaml:"qos"`     // MQTT QoS level for command service messages
		} `yaml:"command"`

		Location struct {
			Topic             string        `yaml:"topic"`           // MQTT topic for position reports, empty disables publishing
			Enabled           bool          `yaml:"enabled"`         // Enable/disable location service
			Interval          time.Duration `yaml:"interval"`        // Interval between position reads
			QOS               int           `yaml:"qos"`             // MQTT QoS level for location messages
			SensorBased       bool          `yaml:"sensor_based"`    // Use sensor or geo-location api
			GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`   // The Baud rate for GPS sensor
			GPSDevicePort     string        `yaml:"gps_device_port"` // UNIX Port where the GPS sensor is mounted
			ModemIndex        int           `yaml:"modem_index"`     // mmcli modem used for cell tower lookup
		} `yaml:"location_service"`

		Heartbeat struct {
			Topic    string        `yaml:"topic"`    // MQTT topic for heartbeat service
			Enabled  bool          `yaml:"enabled"`  // Enable/disable heartbeat service
			Interval time.Duration `yaml:"interval"` // Interval between heartbeats
			QOS      int           `yaml:"qos"`      // MQTT QoS level for heartbeat messages
		} `yaml:"heartbeat"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file, applies environment
// overrides and fills defaults.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	config.ApplyEnv(os.LookupEnv)
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyEnv overrides secrets and the broker address from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("MAPS_API_KEY"); ok && v != "" {
		c.Maps.APIKey = v
	}
	if v, ok := lookup("MQTT_BROKER"); ok && v != "" {
		c.MQTT.Broker = v
	}
	if v, ok := lookup("MQTT_USERNAME"); ok && v != "" {
		c.MQTT.Username = v
	}
	if v, ok := lookup("MQTT_PASSWORD"); ok && v != "" {
		c.MQTT.Password = v
	}
}

// ApplyDefaults fills every unset value.
func (c *Config) ApplyDefaults() {
	setString(&c.Log.Level, "info")
	setDuration(&c.MQTT.Timeout, 10*time.Second)
	setInt(&c.MQTT.PublishRetries, 3)
	setDuration(&c.MQTT.RetryDelay, 500*time.Millisecond)
	setString(&c.Identity.AgentFile, "agent.json")
	setDuration(&c.Maps.Timeout, constants.RoutingTimeout)

	setFloat(&c.Navigation.OffRouteThreshold, constants.OffRouteThreshold)
	setDuration(&c.Navigation.RerouteDelay, constants.RerouteDelay)
	setFloat(&c.Navigation.ArrivalRadius, constants.ArrivalRadius)
	setFloat(&c.Navigation.IncidentRadius, constants.IncidentRadius)
	setDuration(&c.Navigation.IncidentLookback, constants.IncidentLookback)

	setString(&c.Feed.SnapshotTopic, "sentinel/alerts")
	setString(&c.Feed.DeleteTopic, "sentinel/alerts/delete")
	setString(&c.Presentation.TopicPrefix, "sentinel/ui")
	setString(&c.Metrics.Address, ":9102")
	setString(&c.Metrics.DiskPath, "/")

	setDuration(&c.Services.Expiry.Interval, constants.ExpiryInterval)
	setDuration(&c.Services.Expiry.ResolvedTTL, constants.ResolvedTTL)
	setInt(&c.Services.Expiry.Workers, constants.DefaultDeleteWorkers)
	setString(&c.Services.Command.Topic, "sentinel/command")
	setDuration(&c.Services.Location.Interval, time.Second)
	setInt(&c.Services.Location.GPSDeviceBaudRate, 9600)
	setDuration(&c.Services.Heartbeat.Interval, 30*time.Second)
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.Services.Navigator.Enabled && c.Maps.APIKey == "" {
		errs = append(errs, errors.New("maps.api_key (or MAPS_API_KEY) is required by the navigator"))
	}
	if c.Services.Location.Enabled && !c.Services.Location.SensorBased && c.Maps.APIKey == "" {
		errs = append(errs, errors.New("maps.api_key (or MAPS_API_KEY) is required for geolocation"))
	}
	if c.Services.Location.Enabled && c.Services.Location.SensorBased && c.Services.Location.GPSDevicePort == "" {
		errs = append(errs, errors.New("services.location_service.gps_device_port is required for sensor based location"))
	}
	for _, qos := range []int{c.Feed.QOS, c.Presentation.QOS, c.Services.Command.QOS, c.Services.Location.QOS, c.Services.Heartbeat.QOS} {
		if qos < 0 || qos > 2 {
			errs = append(errs, fmt.Errorf("invalid qos %d", qos))
		}
	}
	return errors.Join(errs...)
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
