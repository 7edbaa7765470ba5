package mqtt

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// probeDisconnectQuiesce is used for short-lived probe and discovery sessions.
	probeDisconnectQuiesce = 100 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// clientIDSuffixLen is how many uuid characters are appended to client IDs.
	clientIDSuffixLen = 8

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Will is a Last Will and Testament message.
type Will struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// Option customises a Client at connect time.
type Option func(*connectOptions)

type connectOptions struct {
	will   *Will
	logger Logger
}

// WithWill replaces the default system status will with w.
func WithWill(w Will) Option {
	return func(o *connectOptions) {
		o.will = &w
	}
}

// WithLogger sets the client logger before the connection is attempted, so
// reconnect events from the first session are logged too.
func WithLogger(l Logger) Option {
	return func(o *connectOptions) {
		o.logger = l
	}
}

// NewClientID returns prefix with a random suffix so several bridge
// instances, and their probe sessions, never collide on the broker.
func NewClientID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
	if prefix == "" {
		return suffix
	}
	return prefix + "-" + suffix
}

// brokerURL returns tcp:// or ssl:// depending on the TLS setting.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions creates paho options for the long-lived session:
// clean session, credentials, TLS, and auto-reconnect with capped backoff.
func buildClientOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := baseOptions(cfg, clientID)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	if cfg.Reconnect.MaxDelay > 0 {
		opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	}

	return opts
}

// buildSessionOptions creates paho options for a short-lived session that
// must fail fast instead of retrying.
func buildSessionOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := baseOptions(cfg, clientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	return opts
}

func baseOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(clientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// defaultWill is published by the broker if the client vanishes without
// a clean disconnect.
func defaultWill(clientID string) Will {
	return Will{
		Topic:    Topics{}.SystemStatus(),
		Payload:  []byte(buildStatusPayload(clientID, "offline", "unexpected_disconnect")),
		QoS:      1,
		Retained: true,
	}
}

// buildStatusPayload creates the JSON payload for system status messages.
func buildStatusPayload(clientID, status, reason string) string {
	if reason == "" {
		return fmt.Sprintf(
			`{"status":%q,"client_id":%q,"timestamp":%q}`,
			status, clientID, time.Now().UTC().Format(time.RFC3339),
		)
	}
	return fmt.Sprintf(
		`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`,
		status, clientID, reason, time.Now().UTC().Format(time.RFC3339),
	)
}
