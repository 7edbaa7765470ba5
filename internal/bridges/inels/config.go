package inels

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Configuration defaults.
const (
	// DefaultDiscoveryTimeout is how long discovery waits for another
	// status message before it considers the gateway drained.
	DefaultDiscoveryTimeout = 5 * time.Second

	// DefaultHealthInterval is how often the bridge publishes its health.
	DefaultHealthInterval = 30 * time.Second

	// DefaultBridgeID identifies the bridge in health messages.
	DefaultBridgeID = "inels-bridge-01"

	// maxQoS is the highest MQTT QoS level.
	maxQoS = 2
)

// Config holds the bridge settings.
type Config struct {
	// BridgeID identifies this bridge instance in health messages.
	BridgeID string

	// Version is reported in health messages.
	Version string

	// Domain is the first topic fragment used by the iNels gateway.
	Domain string

	// DiscoverOnStart runs a discovery pass before subscribing.
	DiscoverOnStart bool

	// DiscoveryTimeout is the idle window that ends a discovery pass.
	DiscoveryTimeout time.Duration

	// StatusQoS is used for gateway status subscriptions.
	StatusQoS byte

	// CommandQoS is used for set payloads published to the gateway.
	CommandQoS byte

	// SetRetain marks set payloads as retained.
	SetRetain bool

	// HealthInterval is how often health is published.
	HealthInterval time.Duration

	// Models overrides the model for specific devices, keyed by device ID
	// (<serial>-<uid>) or by unique ID alone.
	Models map[string]Model
}

// DefaultConfig returns the bridge configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		BridgeID:         DefaultBridgeID,
		Version:          "dev",
		Domain:           DefaultDomain,
		DiscoverOnStart:  true,
		DiscoveryTimeout: DefaultDiscoveryTimeout,
		StatusQoS:        1,
		CommandQoS:       1,
		HealthInterval:   DefaultHealthInterval,
	}
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []string

	if c.BridgeID == "" {
		errs = append(errs, "bridge_id is required")
	}
	if c.Domain == "" || strings.ContainsAny(c.Domain, "/+#") {
		errs = append(errs, fmt.Sprintf("domain %q must be a single topic level", c.Domain))
	}
	if c.DiscoveryTimeout <= 0 {
		errs = append(errs, "discovery_timeout must be positive")
	}
	if c.StatusQoS > maxQoS || c.CommandQoS > maxQoS {
		errs = append(errs, "qos must be 0, 1 or 2")
	}
	for id, m := range c.Models {
		if !knownModel(m) {
			errs = append(errs, fmt.Sprintf("models.%s: unknown model %q", id, m))
		}
	}

	if len(errs) > 0 {
		return errors.New("inels config: " + strings.Join(errs, "; "))
	}
	return nil
}

// ModelFor returns the model of the device a topic addresses: a configured
// override if it fits the topic's type code, otherwise the default for the
// type code.
func (c *Config) ModelFor(t Topic) (Model, bool) {
	if m, ok := c.override(t); ok && modelFits(m, t.TypeCode) {
		return m, true
	}
	return DefaultModel(t.TypeCode)
}

// MismatchedOverride returns the override configured for t when it names a
// model of another device type, which ModelFor ignores.
func (c *Config) MismatchedOverride(t Topic) (Model, bool) {
	m, ok := c.override(t)
	if !ok || modelFits(m, t.TypeCode) {
		return "", false
	}
	return m, true
}

func (c *Config) override(t Topic) (Model, bool) {
	if m, ok := c.Models[t.DeviceID()]; ok {
		return m, true
	}
	m, ok := c.Models[t.UniqueID]
	return m, ok
}

// modelFits reports whether m is a model of the device type behind code.
func modelFits(m Model, code TypeCode) bool {
	want, ok := DefaultModel(code)
	return ok && want == m
}

// GetHealthInterval returns the health interval, or the default if unset.
func (c *Config) GetHealthInterval() time.Duration {
	if c.HealthInterval <= 0 {
		return DefaultHealthInterval
	}
	return c.HealthInterval
}

func knownModel(m Model) bool {
	for _, known := range defaultModels {
		if known == m {
			return true
		}
	}
	return false
}
