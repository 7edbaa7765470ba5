package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
	"github.com/nerrad567/gray-logic-inels/internal/device"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/mqtt"
)

// brokerClient is the part of the infrastructure MQTT client the bridge uses.
type brokerClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishString(topic, payload string, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
	DiscoverAll(ctx context.Context, filter string, idle time.Duration, match func(topic string) bool) (map[string][]byte, error)
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to inels.MQTTClient.
// The only difference is the Subscribe handler signature:
//   - Infrastructure mqtt: func(topic, payload []byte) error
//   - iNels bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client brokerClient
}

// Publish implements inels.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// PublishString implements inels.MQTTClient.
func (a *mqttBridgeAdapter) PublishString(topic, payload string, qos byte, retained bool) error {
	return a.client.PublishString(topic, payload, qos, retained)
}

// PublishRetained implements inels.MQTTClient.
func (a *mqttBridgeAdapter) PublishRetained(topic string, payload []byte) error {
	return a.client.PublishRetained(topic, payload)
}

// Subscribe implements inels.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements inels.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements inels.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// DiscoverAll implements inels.MQTTClient.
func (a *mqttBridgeAdapter) DiscoverAll(ctx context.Context, filter string, idle time.Duration, match func(topic string) bool) (map[string][]byte, error) {
	return a.client.DiscoverAll(ctx, filter, idle, match)
}

// registryAdapter adapts the device registry and state history to
// inels.DeviceRegistry. History is optional.
type registryAdapter struct {
	registry *device.Registry
	history  device.StateHistoryRepository
}

// EnsureDevice implements inels.DeviceRegistry.
func (a *registryAdapter) EnsureDevice(ctx context.Context, seed inels.DeviceSeed) error {
	name := seed.Name
	if name == "" {
		name = seed.ID
	}

	created, err := a.registry.EnsureDevice(ctx, &device.Device{
		ID:           seed.ID,
		Name:         name,
		Type:         seed.Type,
		Model:        seed.Model,
		TypeCode:     seed.TypeCode,
		Capabilities: seed.Capabilities,
		SerialNumber: seed.SerialNumber,
		UniqueID:     seed.UniqueID,
		StatusTopic:  seed.StatusTopic,
		SetTopic:     seed.SetTopic,
		State:        device.State{},
		HealthStatus: device.HealthStatusUnknown,
	})
	if err != nil {
		return err
	}

	if created && a.history != nil {
		if err := a.history.RecordStateChange(ctx, seed.ID, device.State{}, device.StateHistorySourceDiscovery); err != nil {
			return fmt.Errorf("recording discovery: %w", err)
		}
	}
	return nil
}

// SetDeviceState implements inels.DeviceRegistry.
func (a *registryAdapter) SetDeviceState(ctx context.Context, id string, state map[string]any) error {
	if err := a.registry.SetDeviceState(ctx, id, device.State(state)); err != nil {
		return err
	}
	if a.history == nil {
		return nil
	}
	return a.history.RecordStateChange(ctx, id, device.State(state), historySource(state))
}

// SetDeviceHealth implements inels.DeviceRegistry.
func (a *registryAdapter) SetDeviceHealth(ctx context.Context, id string, status string) error {
	hs, ok := device.ParseHealthStatus(status)
	if !ok {
		return fmt.Errorf("%w: unknown health status %q", device.ErrInvalidDevice, status)
	}
	return a.registry.SetDeviceHealth(ctx, id, hs)
}

// ListINELSDevices implements inels.DeviceRegistry.
func (a *registryAdapter) ListINELSDevices(ctx context.Context) ([]inels.RegistryDevice, error) {
	devices, err := a.registry.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]inels.RegistryDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, inels.RegistryDevice{
			ID:          d.ID,
			Type:        d.Type,
			Model:       d.Model,
			StatusTopic: d.StatusTopic,
			State:       d.State,
		})
	}
	return out, nil
}

// historySource labels a state change. Only availability reports carry the
// available key; status payloads render without it.
func historySource(state map[string]any) string {
	if _, ok := state[inels.StateKeyAvailable]; ok {
		return device.StateHistorySourceConnected
	}
	return device.StateHistorySourceStatus
}

// bridgeConfig builds the iNels bridge settings from the application config.
func bridgeConfig(cfg *config.Config) *inels.Config {
	bc := inels.DefaultConfig()
	bc.BridgeID = cfg.Inels.BridgeID
	bc.Version = version
	bc.Domain = cfg.Inels.Domain
	bc.DiscoverOnStart = cfg.Inels.DiscoverOnStart
	bc.DiscoveryTimeout = cfg.GetDiscoveryTimeout()
	bc.SetRetain = cfg.Inels.SetRetain
	bc.HealthInterval = cfg.GetHealthInterval()

	// #nosec G115 -- qos validated to 0..2 by config.Validate
	qos := byte(cfg.MQTT.QoS)
	bc.StatusQoS = qos
	bc.CommandQoS = qos

	if len(cfg.Inels.Models) > 0 {
		bc.Models = make(map[string]inels.Model, len(cfg.Inels.Models))
		for id, m := range cfg.Inels.Models {
			bc.Models[id] = inels.ParseModel(m)
		}
	}
	return bc
}
