package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at the config file.
const EnvConfigPath = "INELSBRIDGE_CONFIG"

// DefaultPath is the config file used when EnvConfigPath is unset.
const DefaultPath = "configs/config.yaml"

// Config is the bridge configuration as read from YAML, after defaults and
// INELSBRIDGE_* environment overrides have been applied.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Inels     InelsConfig     `yaml:"inels"`
}

// SiteConfig names the installation.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig locates the SQLite device store. BusyTimeout is in seconds.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig describes the broker session shared with the iNels gateway.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig is the broker address. ClientID is a prefix; a random
// suffix is added per session.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds optional broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds the reconnect backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig configures the REST and WebSocket server.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig holds http.Server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists origins allowed to call the API from a browser. "*"
// allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig tunes the state relay. Intervals are in seconds.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig enables telemetry. FlushInterval is in seconds.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects level (debug, info, warn, error), format (json,
// text) and output (stdout, stderr).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// InelsConfig holds the settings specific to the iNels gateway.
type InelsConfig struct {
	// BridgeID identifies this bridge in health messages and the MQTT LWT.
	BridgeID string `yaml:"bridge_id"`

	// Domain is the first topic level the gateway publishes under.
	Domain string `yaml:"domain"`

	// DiscoverOnStart runs a discovery pass before live subscriptions start.
	DiscoverOnStart bool `yaml:"discover_on_start"`

	// DiscoveryTimeout is the discovery idle window in milliseconds.
	DiscoveryTimeout int `yaml:"discovery_timeout"`

	// SetRetain publishes set payloads with the retain flag.
	SetRetain bool `yaml:"set_retain"`

	// HealthInterval is the health publish period in seconds.
	HealthInterval int `yaml:"health_interval"`

	// StateHistoryRetention is how many days of state history are kept.
	// Zero keeps history forever.
	StateHistoryRetention int `yaml:"state_history_retention"`

	// Models overrides device models, keyed by device ID or unique ID.
	Models map[string]string `yaml:"models"`
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ResolvePath returns $INELSBRIDGE_CONFIG, or DefaultPath when unset.
func ResolvePath() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return DefaultPath
}

// Load builds the configuration from defaults, then the YAML file at
// path, then INELSBRIDGE_* environment variables, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{ID: "site-001", Name: "iNels"},
		Database: DatabaseConfig{
			Path:        "./data/inelsbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker:    MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "inelsbridge"},
			QoS:       1,
			Reconnect: MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		},
		API: APIConfig{
			Enabled:  true,
			Host:     "0.0.0.0",
			Port:     8080,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Inels: InelsConfig{
			BridgeID:         "inels-bridge-01",
			Domain:           "inels",
			DiscoverOnStart:  true,
			DiscoveryTimeout: 5000,
			HealthInterval:   30,
		},
	}
}

// envBinding maps one environment variable onto a config field.
type envBinding struct {
	name string
	set  func(cfg *Config, value string)
}

func setString(field func(*Config) *string) func(*Config, string) {
	return func(cfg *Config, v string) { *field(cfg) = v }
}

// setInt ignores values that are not integers.
func setInt(field func(*Config) *int) func(*Config, string) {
	return func(cfg *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*field(cfg) = n
		}
	}
}

// setBool ignores values strconv.ParseBool rejects.
func setBool(field func(*Config) *bool) func(*Config, string) {
	return func(cfg *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			*field(cfg) = b
		}
	}
}

var envBindings = []envBinding{
	{"INELSBRIDGE_DATABASE_PATH", setString(func(c *Config) *string { return &c.Database.Path })},
	{"INELSBRIDGE_MQTT_HOST", setString(func(c *Config) *string { return &c.MQTT.Broker.Host })},
	{"INELSBRIDGE_MQTT_PORT", setInt(func(c *Config) *int { return &c.MQTT.Broker.Port })},
	{"INELSBRIDGE_MQTT_USERNAME", setString(func(c *Config) *string { return &c.MQTT.Auth.Username })},
	{"INELSBRIDGE_MQTT_PASSWORD", setString(func(c *Config) *string { return &c.MQTT.Auth.Password })},
	{"INELSBRIDGE_API_HOST", setString(func(c *Config) *string { return &c.API.Host })},
	{"INELSBRIDGE_API_PORT", setInt(func(c *Config) *int { return &c.API.Port })},
	{"INELSBRIDGE_INFLUXDB_ENABLED", setBool(func(c *Config) *bool { return &c.InfluxDB.Enabled })},
	{"INELSBRIDGE_INFLUXDB_URL", setString(func(c *Config) *string { return &c.InfluxDB.URL })},
	{"INELSBRIDGE_INFLUXDB_TOKEN", setString(func(c *Config) *string { return &c.InfluxDB.Token })},
	{"INELSBRIDGE_LOGGING_LEVEL", setString(func(c *Config) *string { return &c.Logging.Level })},
	{"INELSBRIDGE_INELS_DOMAIN", setString(func(c *Config) *string { return &c.Inels.Domain })},
	{"INELSBRIDGE_INELS_BRIDGE_ID", setString(func(c *Config) *string { return &c.Inels.BridgeID })},
}

// applyEnvOverrides applies every non-empty variable in envBindings.
func applyEnvOverrides(cfg *Config) {
	for _, b := range envBindings {
		if v := os.Getenv(b.name); v != "" {
			b.set(cfg, v)
		}
	}
}

// Validate reports every problem found, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, msg))
		}
	}

	check(c.Site.ID != "", "site.id is required")
	check(c.Database.Path != "", "database.path is required")
	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")
	check(validPort(c.MQTT.Broker.Port), "mqtt.broker.port must be between 1 and 65535")
	check(!c.API.Enabled || validPort(c.API.Port), "api.port must be between 1 and 65535")
	check(!c.InfluxDB.Enabled || c.InfluxDB.URL != "", "influxdb.url is required when influxdb is enabled")
	check(c.Inels.BridgeID != "", "inels.bridge_id is required")
	check(c.Inels.Domain != "" && !strings.ContainsAny(c.Inels.Domain, "/+#"), "inels.domain must be a single topic level")
	check(c.Inels.DiscoveryTimeout > 0, "inels.discovery_timeout must be positive")
	check(c.Inels.StateHistoryRetention >= 0, "inels.state_history_retention must not be negative")

	return errors.Join(errs...)
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

// GetReadTimeout returns the API read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDiscoveryTimeout returns the discovery idle window.
func (c *Config) GetDiscoveryTimeout() time.Duration {
	return time.Duration(c.Inels.DiscoveryTimeout) * time.Millisecond
}

// GetHealthInterval returns the period between health messages.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Inels.HealthInterval) * time.Second
}

// GetHistoryRetention returns how long state history is kept; zero keeps
// it forever.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Inels.StateHistoryRetention) * 24 * time.Hour
}
