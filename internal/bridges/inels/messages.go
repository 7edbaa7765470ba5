package inels

import (
	"encoding/json"
	"fmt"
	"time"
)

// Protocol is the protocol identifier used in core topics and messages.
const Protocol = "inels"

// CommandMessage is sent from Core to the bridge to drive a device.
// Topic: graylogic/command/inels/{device_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the bridge device identifier (<serial>-<uid>).
	DeviceID string `json:"device_id"`

	// Command is the command name.
	// Values: "on", "off", "toggle", "dim", "open", "close", "stop", "set_temperature"
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"level": 50} for dim
	//   {"direction": "down"} for stop
	//   {"temperature": 21.5} for set_temperature
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated ("api", "automation", ...).
	Source string `json:"source"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the set payload was published to the gateway.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage is sent from the bridge to Core to acknowledge a command.
// Topic: graylogic/ack/inels/{device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`

	// Topic is the iNels set topic the command was published to.
	Topic string `json:"topic,omitempty"`

	// Payload is the set payload that was published.
	Payload string `json:"payload,omitempty"`

	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeUnsupportedValue  = "UNSUPPORTED_VALUE"
	ErrCodeReadOnly          = "READ_ONLY"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage is sent from the bridge to Core when device state changes.
// Topic: graylogic/state/inels/{device_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	// State contains the current device state (see Value.State).
	State map[string]any `json:"state"`

	Protocol string `json:"protocol"`

	// Topic is the iNels status topic the state was read from.
	Topic string `json:"topic"`

	// Raw is the status payload as received.
	Raw string `json:"raw,omitempty"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline" // from LWT
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/inels
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string            `json:"bridge"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Statistics     *BridgeStatistics `json:"statistics,omitempty"`
	DevicesManaged int               `json:"devices_managed"`
	Reason         string            `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	// MessagesReceived is the number of iNels status messages handled.
	MessagesReceived uint64 `json:"messages_received"`

	// CommandsSent is the number of set payloads published to the gateway.
	CommandsSent uint64 `json:"commands_sent"`

	// Fallbacks is the number of translations that used the previous value.
	Fallbacks uint64 `json:"fallbacks"`

	// Errors is the number of messages or commands that failed.
	Errors uint64 `json:"errors"`
}

// DiscoveryMessage announces the devices found by a discovery pass.
// Topic: graylogic/discovery/inels
type DiscoveryMessage struct {
	Timestamp time.Time          `json:"timestamp"`
	Bridge    string             `json:"bridge"`
	Devices   []DiscoveredDevice `json:"devices"`
}

// DiscoveredDevice is a device found on the gateway.
type DiscoveredDevice struct {
	DeviceID     string     `json:"device_id"`
	Type         DeviceType `json:"type"`
	Model        Model      `json:"model"`
	TypeCode     TypeCode   `json:"type_code"`
	SerialNumber string     `json:"serial_number"`
	UniqueID     string     `json:"unique_id"`
	StatusTopic  string     `json:"status_topic"`
	Capabilities []string   `json:"capabilities"`
}

// UnmarshalJSON unmarshals a CommandMessage, accepting an empty timestamp.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates a successful acknowledgment for a command.
func NewAckMessage(cmd CommandMessage, topic, payload string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    AckAccepted,
		Protocol:  Protocol,
		Topic:     topic,
		Payload:   payload,
	}
}

// NewAckError creates a failed acknowledgment with error details.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    AckFailed,
		Protocol:  Protocol,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// NewStateMessage creates a state message for a device.
func NewStateMessage(deviceID, topic, raw string, state map[string]any) StateMessage {
	return StateMessage{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		State:     state,
		Protocol:  Protocol,
		Topic:     topic,
		Raw:       raw,
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats BridgeStatistics, deviceCount int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		Statistics:     &stats,
		DevicesManaged: deviceCount,
	}
}

// NewLWTMessage creates the Last Will message published by the broker
// when the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all Gray Logic messages.
	TopicPrefix = "graylogic"
)

// CommandTopic returns the core topic for commands to a device.
// Example: graylogic/command/inels/4254524524-452454
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, Protocol, deviceID)
}

// AckTopic returns the core topic for command acknowledgments.
// Example: graylogic/ack/inels/4254524524-452454
func AckTopic(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, Protocol, deviceID)
}

// StateTopic returns the core topic for device state updates.
// Example: graylogic/state/inels/4254524524-452454
func StateTopic(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, deviceID)
}

// HealthTopic returns the core topic for bridge health.
// Example: graylogic/health/inels
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// DiscoveryTopic returns the core topic for discovery announcements.
// Example: graylogic/discovery/inels
func DiscoveryTopic() string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefix, Protocol)
}

// CommandSubscribeTopic returns the subscription pattern for all commands.
// Example: graylogic/command/inels/#
func CommandSubscribeTopic() string {
	return fmt.Sprintf("%s/command/%s/#", TopicPrefix, Protocol)
}

// StateSubscribeTopic returns the subscription pattern for all state updates.
// Example: graylogic/state/inels/+
func StateSubscribeTopic() string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, Protocol)
}

// AckSubscribeTopic returns the subscription pattern for all command acks.
// Example: graylogic/ack/inels/+
func AckSubscribeTopic() string {
	return fmt.Sprintf("%s/ack/%s/+", TopicPrefix, Protocol)
}
