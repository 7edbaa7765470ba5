package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
inels:
  bridge_id: "inels-test"
  discovery_timeout: 250
  set_retain: true
  models:
    "4254524524-452454": "RFSC-61"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
	if cfg.Inels.BridgeID != "inels-test" {
		t.Errorf("Inels.BridgeID = %q, want %q", cfg.Inels.BridgeID, "inels-test")
	}
	if !cfg.Inels.SetRetain {
		t.Error("Inels.SetRetain = false, want true")
	}
	if got := cfg.GetDiscoveryTimeout(); got != 250*time.Millisecond {
		t.Errorf("GetDiscoveryTimeout() = %v, want 250ms", got)
	}
	if got := cfg.Inels.Models["4254524524-452454"]; got != "RFSC-61" {
		t.Errorf("Inels.Models[...] = %q, want RFSC-61", got)
	}

	// Unset keys keep their defaults.
	if cfg.Inels.Domain != "inels" {
		t.Errorf("Inels.Domain = %q, want default %q", cfg.Inels.Domain, "inels")
	}
	if !cfg.Inels.DiscoverOnStart {
		t.Error("Inels.DiscoverOnStart should default to true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for empty site.id, got nil")
	}
	if !strings.Contains(err.Error(), "site.id") {
		t.Errorf("error %q should name site.id", err)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(); got != DefaultPath {
		t.Errorf("ResolvePath() = %q, want %q", got, DefaultPath)
	}

	t.Setenv(EnvConfigPath, "/etc/inelsbridge/config.yaml")
	if got := ResolvePath(); got != "/etc/inelsbridge/config.yaml" {
		t.Errorf("ResolvePath() = %q, want env value", got)
	}
}

// ─── Validate ──────────────────────────────────────────────────────

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid broker port", mutate: func(c *Config) { c.MQTT.Broker.Port = 0 }, wantErr: true},
		{name: "invalid api port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid api port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{
			name:   "api port ignored when disabled",
			mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 },
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.URL = "" },
			wantErr: true,
		},
		{name: "missing bridge id", mutate: func(c *Config) { c.Inels.BridgeID = "" }, wantErr: true},
		{name: "wildcard domain", mutate: func(c *Config) { c.Inels.Domain = "inels/#" }, wantErr: true},
		{name: "empty domain", mutate: func(c *Config) { c.Inels.Domain = "" }, wantErr: true},
		{name: "zero discovery timeout", mutate: func(c *Config) { c.Inels.DiscoveryTimeout = 0 }, wantErr: true},
		{name: "negative retention", mutate: func(c *Config) { c.Inels.StateHistoryRetention = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""
	cfg.MQTT.QoS = 5
	cfg.Inels.Domain = "a/b"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	for _, field := range []string{"site.id", "mqtt.qos", "inels.domain"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
		Inels: InelsConfig{
			DiscoveryTimeout:      1500,
			HealthInterval:        10,
			StateHistoryRetention: 7,
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetDiscoveryTimeout(); got != 1500*time.Millisecond {
		t.Errorf("GetDiscoveryTimeout() = %v, want 1.5s", got)
	}
	if got := cfg.GetHealthInterval(); got != 10*time.Second {
		t.Errorf("GetHealthInterval() = %v, want 10s", got)
	}
	if got := cfg.GetHistoryRetention(); got != 7*24*time.Hour {
		t.Errorf("GetHistoryRetention() = %v, want 168h", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("INELSBRIDGE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("INELSBRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("INELSBRIDGE_MQTT_PORT", "8883")
	t.Setenv("INELSBRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("INELSBRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("INELSBRIDGE_API_HOST", "192.168.1.1")
	t.Setenv("INELSBRIDGE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("INELSBRIDGE_LOGGING_LEVEL", "debug")
	t.Setenv("INELSBRIDGE_INELS_DOMAIN", "inels2")

	applyEnvOverrides(cfg)

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
		{"Inels.Domain", cfg.Inels.Domain, "inels2"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}

	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
}

func TestApplyEnvOverrides_TypedValues(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("INELSBRIDGE_API_PORT", "9090")
	t.Setenv("INELSBRIDGE_INFLUXDB_ENABLED", "true")
	t.Setenv("INELSBRIDGE_INFLUXDB_URL", "http://influx:8086")
	t.Setenv("INELSBRIDGE_INELS_BRIDGE_ID", "garage")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if !cfg.InfluxDB.Enabled || cfg.InfluxDB.URL != "http://influx:8086" {
		t.Errorf("InfluxDB = %+v, want enabled with env URL", cfg.InfluxDB)
	}
	if cfg.Inels.BridgeID != "garage" {
		t.Errorf("Inels.BridgeID = %q, want garage", cfg.Inels.BridgeID)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("INELSBRIDGE_MQTT_PORT", "not-a-port")
	t.Setenv("INELSBRIDGE_INFLUXDB_ENABLED", "maybe")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled set from an unparsable value")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.GetDiscoveryTimeout() != 5*time.Second {
		t.Errorf("defaultConfig discovery timeout = %v, want 5s", cfg.GetDiscoveryTimeout())
	}
	if cfg.Inels.SetRetain {
		t.Error("defaultConfig should not retain set payloads")
	}
}
