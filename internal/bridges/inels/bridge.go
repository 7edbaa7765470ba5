package inels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bridge operation constants.
const (
	// minCoreTopicParts is the minimum number of parts in a core topic
	// (graylogic/command/inels/{device_id}).
	minCoreTopicParts = 4

	// registryTimeout bounds registry writes made from MQTT handlers.
	registryTimeout = 5 * time.Second

	// connectedOn and connectedOff are the availability payload tokens.
	connectedOn  = "on"
	connectedOff = "off"
)

// Device health values written to the registry.
const (
	healthOnline  = "online"
	healthOffline = "offline"
)

// Logger is the logging interface used by the bridge and translator.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// MQTTClient is the interface for MQTT operations.
// It is satisfied by the infrastructure MQTT client via an adapter in main.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PublishString sends a text payload, as used on iNels set topics.
	PublishString(topic, payload string, qos byte, retained bool) error

	// PublishRetained sends a retained message at the client's default QoS.
	PublishRetained(topic string, payload []byte) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// DiscoverAll collects the retained and live messages on filter whose
	// topic satisfies match, until no matching message arrives for idle.
	DiscoverAll(ctx context.Context, filter string, idle time.Duration, match func(topic string) bool) (map[string][]byte, error)
}

// DeviceRegistry provides device persistence. It is optional; if nil the
// bridge keeps its device list in memory only.
type DeviceRegistry interface {
	// EnsureDevice creates a device record if none exists for seed.ID.
	EnsureDevice(ctx context.Context, seed DeviceSeed) error

	// SetDeviceState updates the state of a device.
	SetDeviceState(ctx context.Context, id string, state map[string]any) error

	// SetDeviceHealth updates the health status of a device.
	SetDeviceHealth(ctx context.Context, id string, status string) error

	// ListINELSDevices returns the iNels devices known from earlier runs.
	ListINELSDevices(ctx context.Context) ([]RegistryDevice, error)
}

// MetricsWriter records numeric telemetry. It is optional.
type MetricsWriter interface {
	WriteDeviceMetric(deviceID, measurement string, value float64)
}

// RegistryDevice is the subset of a stored device the bridge needs.
type RegistryDevice struct {
	ID          string
	Type        DeviceType
	Model       Model
	StatusTopic string
	State       map[string]any
}

// DeviceSeed holds the fields of a newly seen device.
type DeviceSeed struct {
	ID           string
	Name         string
	Type         DeviceType
	Model        Model
	TypeCode     TypeCode
	SerialNumber string
	UniqueID     string
	StatusTopic  string
	SetTopic     string
	Capabilities []string
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the bridge configuration.
	Config *Config

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Logger is an optional structured logger.
	Logger Logger

	// Registry is an optional device registry.
	Registry DeviceRegistry

	// Metrics is an optional telemetry writer.
	Metrics MetricsWriter
}

// deviceEntry is a device the bridge knows how to translate.
type deviceEntry struct {
	topic      Topic // status topic
	deviceType DeviceType
	model      Model
}

// Bridge connects the iNels gateway topics to Core topics.
// It handles:
//   - Translating gateway status payloads to state messages
//   - Translating Core commands to gateway set payloads
//   - Device discovery, availability and health reporting
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg        *Config
	mqtt       MQTTClient
	registry   DeviceRegistry
	metrics    MetricsWriter
	translator *Translator
	health     *HealthReporter

	devices   map[string]deviceEntry
	devicesMu sync.RWMutex

	// Last semantic value and last published state per device.
	previous   map[string]any
	stateCache map[string]map[string]any
	stateMu    sync.Mutex

	received  atomic.Uint64
	sent      atomic.Uint64
	fallbacks atomic.Uint64
	failures  atomic.Uint64

	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:        opts.Config,
		mqtt:       opts.MQTTClient,
		registry:   opts.Registry,
		metrics:    opts.Metrics,
		devices:    make(map[string]deviceEntry),
		previous:   make(map[string]any),
		stateCache: make(map[string]map[string]any),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		logger:     opts.Logger,
	}
	b.translator = NewTranslator(bridgeLogger{b})

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.Config.BridgeID,
		Version:   opts.Config.Version,
		Interval:  opts.Config.GetHealthInterval(),
		Publisher: opts.MQTTClient,
		Stats:     b.Stats,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start loads known devices, optionally runs discovery, subscribes to the
// gateway and Core topics and starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	b.loadDevicesFromRegistry(ctx)

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	if b.cfg.DiscoverOnStart {
		if _, err := b.Discover(ctx); err != nil {
			b.logError("startup discovery failed", err)
		}
	}

	subscriptions := []struct {
		topic   string
		qos     byte
		handler func(topic string, payload []byte)
	}{
		{StatusFilter(b.cfg.Domain), b.cfg.StatusQoS, b.handleGatewayMessage},
		{ConnectedFilter(b.cfg.Domain), b.cfg.StatusQoS, b.handleGatewayMessage},
		{CommandSubscribeTopic(), 1, b.handleCoreMessage},
	}
	for _, s := range subscriptions {
		if err := b.mqtt.Subscribe(s.topic, s.qos, s.handler); err != nil {
			return fmt.Errorf("subscribe to %s: %w", s.topic, err)
		}
		b.logInfo("subscribed", "topic", s.topic)
	}

	b.health.Start(ctx)

	b.logInfo("bridge started",
		"bridge_id", b.cfg.BridgeID,
		"domain", b.cfg.Domain,
		"devices", b.DeviceCount())

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

// loadDevicesFromRegistry restores devices and their last values from
// earlier runs, so commands work before the gateway republishes status.
func (b *Bridge) loadDevicesFromRegistry(ctx context.Context) {
	if b.registry == nil {
		return
	}

	devices, err := b.registry.ListINELSDevices(ctx)
	if err != nil {
		b.logError("failed to load devices from registry", err)
		return
	}

	loaded := 0
	for _, dev := range devices {
		t, err := ParseTopic(dev.StatusTopic)
		if err != nil || !dev.Type.IsValid() {
			b.logDebug("skipping registry device", "device", dev.ID, "topic", dev.StatusTopic)
			continue
		}
		model := dev.Model
		if model == "" {
			model, _ = b.cfg.ModelFor(t)
		}

		b.devicesMu.Lock()
		b.devices[t.DeviceID()] = deviceEntry{topic: t, deviceType: dev.Type, model: model}
		b.devicesMu.Unlock()

		if prev := SemanticFromState(dev.Type, dev.State); prev != nil {
			b.setPrevious(t.DeviceID(), prev)
		}
		loaded++
	}

	if loaded > 0 {
		b.logInfo("loaded devices from registry", "count", loaded)
	}
	b.health.SetDeviceCount(b.DeviceCount())
}

// Discover runs one discovery pass over the gateway's status topics,
// registers every recognised device, processes its current status and
// announces the result on the discovery topic.
func (b *Bridge) Discover(ctx context.Context) ([]DiscoveredDevice, error) {
	filter := StatusFilter(b.cfg.Domain)
	found, err := b.mqtt.DiscoverAll(ctx, filter, b.cfg.DiscoveryTimeout, func(topic string) bool {
		_, ok := Classify(topic)
		return ok
	})
	if err != nil && len(found) == 0 {
		return nil, fmt.Errorf("discover %s: %w", filter, err)
	}

	topics := make([]string, 0, len(found))
	for topic := range found {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	devices := make([]DiscoveredDevice, 0, len(topics))
	for _, topic := range topics {
		t, parseErr := ParseTopic(topic)
		if parseErr != nil || t.Kind != KindStatus {
			continue
		}
		dev, resolveErr := b.resolveDevice(t)
		if resolveErr != nil {
			b.logDebug("skipping discovered topic", "topic", topic, "reason", resolveErr.Error())
			continue
		}
		b.handleStatus(t, dev, found[topic])
		devices = append(devices, discovered(t, dev))
	}

	msg := DiscoveryMessage{
		Timestamp: time.Now().UTC(),
		Bridge:    b.cfg.BridgeID,
		Devices:   devices,
	}
	if payload, marshalErr := json.Marshal(msg); marshalErr != nil {
		b.logError("failed to marshal discovery", marshalErr)
	} else if pubErr := b.mqtt.Publish(DiscoveryTopic(), payload, 1, false); pubErr != nil {
		b.logError("failed to publish discovery", pubErr)
	}

	b.logInfo("discovery complete", "topics", len(found), "devices", len(devices))
	return devices, err
}

// handleGatewayMessage routes messages received on the gateway's topics.
// Topics that are not device topics of a known type are dropped.
func (b *Bridge) handleGatewayMessage(topic string, payload []byte) {
	t, err := ParseTopic(topic)
	if err != nil {
		b.logDebug("dropping message", "topic", topic, "reason", err.Error())
		return
	}
	dev, err := b.resolveDevice(t)
	if err != nil {
		b.logDebug("dropping message", "topic", topic, "reason", err.Error())
		return
	}

	switch t.Kind {
	case KindStatus:
		b.handleStatus(t, dev, payload)
	case KindConnected:
		b.handleConnected(t, payload)
	default:
		b.logDebug("ignoring gateway message", "topic", topic)
	}
}

// handleStatus translates a status payload and publishes the device state.
func (b *Bridge) handleStatus(t Topic, dev deviceEntry, payload []byte) {
	b.received.Add(1)
	id := t.DeviceID()

	v, err := b.translator.FromStatus(dev.deviceType, dev.model, string(payload), b.previousValue(id))
	if err != nil {
		b.failures.Add(1)
		b.logError("failed to translate status", fmt.Errorf("topic=%s: %w", t, err))
		return
	}
	if v.FellBack() {
		b.fallbacks.Add(1)
	}
	b.setPrevious(id, v.Semantic())

	b.publishState(id, t.String(), string(payload), v.State())
	b.writeMetrics(id, v)
}

// handleConnected records gateway availability reports ("on" / "off").
func (b *Bridge) handleConnected(t Topic, payload []byte) {
	tokens := Tokens(string(payload))
	if len(tokens) == 0 {
		b.logDebug("empty availability payload", "topic", t.String())
		return
	}

	var available bool
	switch strings.ToLower(tokens[0]) {
	case connectedOn:
		available = true
	case connectedOff:
		available = false
	default:
		b.logDebug("unknown availability payload", "topic", t.String(), "payload", tokens[0])
		return
	}

	id := t.DeviceID()
	health := healthOffline
	if available {
		health = healthOnline
	}
	if b.registry != nil {
		ctx, cancel := context.WithTimeout(b.ctx, registryTimeout)
		if err := b.registry.SetDeviceHealth(ctx, id, health); err != nil {
			b.logDebug("registry health update skipped", "device", id, "reason", err.Error())
		}
		cancel()
	}

	b.stateMu.Lock()
	state := make(map[string]any, len(b.stateCache[id])+1)
	for k, val := range b.stateCache[id] {
		state[k] = val
	}
	b.stateMu.Unlock()
	state[StateKeyAvailable] = available

	b.publishState(id, t.String(), "", state)
}

// publishState publishes a state message if it differs from the last one
// published for the device, and mirrors it into the registry.
func (b *Bridge) publishState(id, topic, raw string, state map[string]any) {
	if b.stateUnchanged(id, state) {
		return
	}

	msg := NewStateMessage(id, topic, raw, state)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}
	if err := b.mqtt.PublishRetained(StateTopic(id), payload); err != nil {
		b.logError("failed to publish state", err)
		return
	}

	if b.registry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, registryTimeout)
	defer cancel()
	if err := b.registry.SetDeviceState(ctx, id, state); err != nil {
		b.logDebug("registry state update skipped", "device", id, "reason", err.Error())
		return
	}
	if raw != "" {
		if err := b.registry.SetDeviceHealth(ctx, id, healthOnline); err != nil {
			b.logDebug("registry health update skipped", "device", id, "reason", err.Error())
		}
	}
}

// handleCoreMessage routes messages received on Core topics.
func (b *Bridge) handleCoreMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minCoreTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	switch parts[1] {
	case "command":
		b.handleCommand(payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", parts[1]))
	}
}

// handleCommand translates a Core command to a set payload and publishes
// it on the device's set topic.
func (b *Bridge) handleCommand(payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command)

	b.devicesMu.RLock()
	dev, ok := b.devices[cmd.DeviceID]
	b.devicesMu.RUnlock()
	if !ok {
		b.publishAckError(cmd, ErrCodeNotConfigured, fmt.Sprintf("device %s not known", cmd.DeviceID))
		return
	}

	previous := b.previousValue(cmd.DeviceID)
	semantic, err := commandSemantic(dev.deviceType, cmd, previous)
	if err != nil {
		b.publishAckError(cmd, ackCode(err), err.Error())
		return
	}

	v, err := b.translator.FromSemantic(dev.deviceType, dev.model, semantic, previous)
	if err != nil {
		b.publishAckError(cmd, ackCode(err), err.Error())
		return
	}
	if v.FellBack() {
		b.fallbacks.Add(1)
	}
	set, ok := v.SetPayload()
	if !ok {
		b.publishAckError(cmd, ErrCodeReadOnly, "device has no set payload")
		return
	}

	setTopic := dev.topic.WithKind(KindSet).String()
	if err := b.mqtt.PublishString(setTopic, set, b.cfg.CommandQoS, b.cfg.SetRetain); err != nil {
		b.publishAckError(cmd, ErrCodeBridgeError, fmt.Sprintf("publish set payload: %v", err))
		return
	}
	b.sent.Add(1)

	b.publishAck(NewAckMessage(cmd, setTopic, set))
}

// ackCode maps a command error to the code reported to Core.
func ackCode(err error) string {
	switch {
	case errors.Is(err, ErrReadOnly):
		return ErrCodeReadOnly
	case errors.Is(err, errInvalidParameters):
		return ErrCodeInvalidParameters
	case errors.Is(err, errInvalidCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrUnsupportedValue):
		return ErrCodeUnsupportedValue
	case errors.Is(err, ErrUnsupportedDevice):
		return ErrCodeNotConfigured
	default:
		return ErrCodeBridgeError
	}
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(AckTopic(ack.DeviceID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

func (b *Bridge) publishAckError(cmd CommandMessage, code, message string) {
	b.failures.Add(1)
	b.publishAck(NewAckError(cmd, code, message))
	b.logError("command failed",
		fmt.Errorf("device=%s command=%s code=%s: %s", cmd.DeviceID, cmd.Command, code, message))
}

// resolveDevice returns the known device for a topic, registering it on
// first sight.
func (b *Bridge) resolveDevice(t Topic) (deviceEntry, error) {
	id := t.DeviceID()

	b.devicesMu.RLock()
	dev, ok := b.devices[id]
	b.devicesMu.RUnlock()
	if ok {
		return dev, nil
	}

	deviceType, ok := t.DeviceType()
	if !ok {
		return deviceEntry{}, fmt.Errorf("%w: type code %q", ErrUnrecognizedTopic, t.TypeCode)
	}
	model, ok := b.cfg.ModelFor(t)
	if !ok {
		return deviceEntry{}, fmt.Errorf("%w: no model for type code %q", ErrUnsupportedDevice, t.TypeCode)
	}
	if bad, mismatched := b.cfg.MismatchedOverride(t); mismatched {
		bridgeLogger{b}.Warn("model override ignored for another device type",
			"device_id", id, "type", deviceType, "override", bad, "model", model)
	}
	dev = deviceEntry{topic: t.WithKind(KindStatus), deviceType: deviceType, model: model}

	b.devicesMu.Lock()
	if existing, raced := b.devices[id]; raced {
		b.devicesMu.Unlock()
		return existing, nil
	}
	b.devices[id] = dev
	count := len(b.devices)
	b.devicesMu.Unlock()

	b.health.SetDeviceCount(count)
	b.logInfo("device registered", "device_id", id, "type", deviceType, "model", model)

	if b.registry != nil {
		ctx, cancel := context.WithTimeout(b.ctx, registryTimeout)
		defer cancel()
		if err := b.registry.EnsureDevice(ctx, seedFor(dev)); err != nil {
			b.logDebug("registry device seed skipped", "device", id, "reason", err.Error())
		}
	}
	return dev, nil
}

func seedFor(dev deviceEntry) DeviceSeed {
	t := dev.topic
	return DeviceSeed{
		ID:           t.DeviceID(),
		Name:         fmt.Sprintf("%s %s", dev.model, t.UniqueID),
		Type:         dev.deviceType,
		Model:        dev.model,
		TypeCode:     t.TypeCode,
		SerialNumber: t.SerialNumber,
		UniqueID:     t.UniqueID,
		StatusTopic:  t.WithKind(KindStatus).String(),
		SetTopic:     t.WithKind(KindSet).String(),
		Capabilities: dev.deviceType.Capabilities(),
	}
}

func discovered(t Topic, dev deviceEntry) DiscoveredDevice {
	return DiscoveredDevice{
		DeviceID:     t.DeviceID(),
		Type:         dev.deviceType,
		Model:        dev.model,
		TypeCode:     t.TypeCode,
		SerialNumber: t.SerialNumber,
		UniqueID:     t.UniqueID,
		StatusTopic:  t.String(),
		Capabilities: dev.deviceType.Capabilities(),
	}
}

// writeMetrics records the numeric parts of a translated value.
func (b *Bridge) writeMetrics(id string, v *Value) {
	if b.metrics == nil {
		return
	}

	switch s := v.Semantic().(type) {
	case bool:
		b.metrics.WriteDeviceMetric(id, "on", boolMetric(s))
	case int:
		b.metrics.WriteDeviceMetric(id, "brightness_percent", float64(s))
	case CoverState:
		b.metrics.WriteDeviceMetric(id, "open", boolMetric(s == CoverOpen))
	case Climate:
		b.metrics.WriteDeviceMetric(id, "battery", float64(s.Battery))
		b.metrics.WriteDeviceMetric(id, "temperature_c", s.Current)
		b.metrics.WriteDeviceMetric(id, "setpoint_c", s.Required)
	case string:
		if v.Type() != DeviceTypeSensor {
			return
		}
		r, err := DecodeSensor(v.Model(), s)
		if err != nil {
			b.logDebug("sensor payload not decodable", "device", id, "reason", err.Error())
			return
		}
		b.metrics.WriteDeviceMetric(id, "battery", float64(r.Battery))
		b.metrics.WriteDeviceMetric(id, "temperature_in_c", r.TempIn)
		b.metrics.WriteDeviceMetric(id, "temperature_out_c", r.TempOut)
	}
}

func boolMetric(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// stateUnchanged checks if the new state matches the cached state.
// Returns true if unchanged (should skip publish).
func (b *Bridge) stateUnchanged(id string, state map[string]any) bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if statesEqual(b.stateCache[id], state) {
		return true
	}
	cached := make(map[string]any, len(state))
	for k, v := range state {
		cached[k] = v
	}
	b.stateCache[id] = cached
	return false
}

// statesEqual compares two state maps. State values are scalars, so
// direct comparison is safe.
func statesEqual(a, b map[string]any) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || av != bv {
			return false
		}
	}
	return true
}

func (b *Bridge) previousValue(id string) any {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.previous[id]
}

func (b *Bridge) setPrevious(id string, v any) {
	b.stateMu.Lock()
	b.previous[id] = v
	b.stateMu.Unlock()
}

// DeviceCount returns the number of devices the bridge knows.
func (b *Bridge) DeviceCount() int {
	b.devicesMu.RLock()
	defer b.devicesMu.RUnlock()
	return len(b.devices)
}

// Devices returns the devices the bridge knows, sorted by ID.
func (b *Bridge) Devices() []DiscoveredDevice {
	b.devicesMu.RLock()
	out := make([]DiscoveredDevice, 0, len(b.devices))
	for _, dev := range b.devices {
		out = append(out, discovered(dev.topic, dev))
	}
	b.devicesMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Stats returns the bridge's operational counters.
func (b *Bridge) Stats() BridgeStatistics {
	return BridgeStatistics{
		MessagesReceived: b.received.Load(),
		CommandsSent:     b.sent.Load(),
		Fallbacks:        b.fallbacks.Load(),
		Errors:           b.failures.Load(),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// bridgeLogger forwards the translator's log calls to whatever logger the
// bridge currently has.
type bridgeLogger struct{ b *Bridge }

func (l bridgeLogger) Debug(msg string, kv ...any) { l.b.logDebug(msg, kv...) }
func (l bridgeLogger) Info(msg string, kv ...any)  { l.b.logInfo(msg, kv...) }

func (l bridgeLogger) Warn(msg string, kv ...any) {
	if logger := l.b.getLogger(); logger != nil {
		logger.Warn(msg, kv...)
	}
}

func (l bridgeLogger) Error(msg string, kv ...any) {
	if logger := l.b.getLogger(); logger != nil {
		logger.Error(msg, kv...)
	}
}
