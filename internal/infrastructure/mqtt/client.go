package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
)

// Client is the bridge's long-lived broker session.
//
// paho reconnects on its own after a lost connection; Client tracks the
// subscriptions made through it and replays them on every reconnect, and
// keeps a retained online/offline status on the system status topic.
// All methods are safe for concurrent use.
type Client struct {
	conn     pahomqtt.Client
	cfg      config.MQTTConfig
	clientID string

	// connected follows paho's connect and connection-lost callbacks.
	connected atomic.Bool
	// available is the outcome of the latest connect attempt. A plain
	// connection loss leaves it set; a failed reconnect attempt clears it.
	available atomic.Bool
	// reconnecting is set from the first reconnect attempt after a loss
	// until the next successful connect.
	reconnecting atomic.Bool

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	hookMu       sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger is the subset of logging.Logger (and *slog.Logger) the client uses.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one message. paho calls handlers from its own
// goroutines, so they must not block for long. A returned error is logged
// and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Connect opens the long-lived session described by cfg.
//
// The broker is given a retained Last Will (the system status "offline"
// message unless WithWill overrides it) and an "online" status is
// published after every successful connect. A failed first attempt
// returns ErrConnectionFailed; later losses are retried in the background
// with backoff capped at cfg.Reconnect.MaxDelay.
func Connect(cfg config.MQTTConfig, opts ...Option) (*Client, error) {
	var co connectOptions
	for _, opt := range opts {
		opt(&co)
	}

	c := &Client{
		cfg:           cfg,
		clientID:      NewClientID(cfg.Broker.ClientID),
		subscriptions: make(map[string]subscription),
		logger:        co.logger,
	}

	will := defaultWill(c.clientID)
	if co.will != nil {
		will = *co.will
	}

	po := buildClientOptions(cfg, c.clientID)
	po.SetBinaryWill(will.Topic, will.Payload, will.QoS, will.Retained)
	po.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	po.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) { c.handleReconnecting() })

	c.conn = pahomqtt.NewClient(po)
	if err := waitToken(c.conn.Connect(), defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL(cfg), err)
	}

	// paho runs the connect handler on its own goroutine; callers may
	// publish before it fires.
	c.markConnected()
	return c, nil
}

// Probe reports whether the broker accepts a connection, using a
// throwaway session that is closed straight away.
func Probe(ctx context.Context, cfg config.MQTTConfig) bool {
	pc := pahomqtt.NewClient(buildSessionOptions(cfg, NewClientID(cfg.Broker.ClientID+"-probe")))
	token := pc.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		go func() {
			token.Wait()
			pc.Disconnect(0)
		}()
		return false
	}
	if token.Error() != nil {
		return false
	}
	pc.Disconnect(probeDisconnectQuiesce)
	return true
}

// waitToken waits up to timeout for token and returns its error.
func waitToken(token pahomqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timeout after %v", timeout)
	}
	return token.Error()
}

func (c *Client) markConnected() {
	c.reconnecting.Store(false)
	c.available.Store(true)
	c.connected.Store(true)
}

func (c *Client) handleConnect() {
	c.markConnected()
	c.resubscribe()
	c.publishStatus("online", "")

	c.hookMu.RLock()
	fn := c.onConnect
	c.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	c.warn("MQTT connection lost", "error", err)

	c.hookMu.RLock()
	fn := c.onDisconnect
	c.hookMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// handleReconnecting runs before every reconnect attempt. Any attempt
// after the first one means the previous attempt failed.
func (c *Client) handleReconnecting() {
	if c.reconnecting.Swap(true) {
		c.available.Store(false)
	}
	c.warn("MQTT reconnecting", "broker", brokerURL(c.cfg), "broker_available", c.IsAvailable())
}

// resubscribe replays tracked subscriptions on a fresh session. Failures
// show up as the next connection loss.
func (c *Client) resubscribe() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for filter, sub := range c.subscriptions {
		c.conn.Subscribe(filter, sub.qos, c.wrapHandler(sub.handler))
	}
}

// publishStatus sends the retained system status message without waiting.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := buildStatusPayload(c.clientID, status, reason)
	return c.conn.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close publishes a retained "offline" status, distinct from the Last Will,
// and disconnects. Close on a nil or unconnected client is a no-op.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus("offline", "shutdown").WaitTimeout(defaultPublishTimeout)
	}
	c.conn.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	c.available.Store(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the session is down. Once a
// reconnect attempt has failed the error also wraps ErrConnectionFailed.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	switch {
	case c.IsConnected():
		return nil
	case c.reconnecting.Load() && !c.IsAvailable():
		return fmt.Errorf("%w: %w: %s", ErrNotConnected, ErrConnectionFailed, brokerURL(c.cfg))
	default:
		return ErrNotConnected
	}
}

// IsConnected reports whether the session is currently up.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.conn != nil && c.conn.IsConnected()
}

// IsAvailable reports the outcome of the most recent connection attempt.
// It stays true across a connection loss until a reconnect attempt fails.
func (c *Client) IsAvailable() bool {
	return c.available.Load()
}

// ClientID returns the broker client identifier of the session.
func (c *Client) ClientID() string {
	return c.clientID
}

// SetOnConnect sets a callback run after the first connect and every
// reconnect.
func (c *Client) SetOnConnect(fn func()) {
	c.hookMu.Lock()
	c.onConnect = fn
	c.hookMu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection is lost.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hookMu.Lock()
	c.onDisconnect = fn
	c.hookMu.Unlock()
}

// SetLogger sets where handler failures and connection events are logged.
// Without one they are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.logger = logger
	c.hookMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.logger
}

func (c *Client) warn(msg string, args ...any) {
	if l := c.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}

// wrapHandler adapts handler to paho, logging its errors and recovering
// from its panics.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				if l := c.getLogger(); l != nil {
					l.Error("MQTT handler panic recovered", "topic", topic, "panic", r)
				}
			}
		}()

		if err := handler(topic, msg.Payload()); err != nil {
			c.warn("MQTT handler returned error", "topic", topic, "error", err)
		}
	}
}
