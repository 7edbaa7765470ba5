package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// relay forwards one bridge topic onto a hub channel.
type relay struct {
	topic   string
	channel string
	decode  func(payload []byte) (deviceID string, event any, err error)
}

// relays lists the bridge topics mirrored to WebSocket clients.
func relays() []relay {
	return []relay{
		{inels.StateSubscribeTopic(), EventDeviceStateChanged, func(p []byte) (string, any, error) {
			var msg inels.StateMessage
			err := json.Unmarshal(p, &msg)
			return msg.DeviceID, msg, err
		}},
		{inels.AckSubscribeTopic(), EventCommandAck, func(p []byte) (string, any, error) {
			var msg inels.AckMessage
			err := json.Unmarshal(p, &msg)
			return msg.DeviceID, msg, err
		}},
		{inels.HealthTopic(), EventBridgeHealth, func(p []byte) (string, any, error) {
			var msg inels.HealthMessage
			err := json.Unmarshal(p, &msg)
			return "", msg, err
		}},
	}
}

// subscribeStateUpdates subscribes to the bridge's state, ack and health
// topics. The bridge persists state itself, so the relay only forwards.
func (s *Server) subscribeStateUpdates() error {
	if s.mqtt == nil {
		return nil // MQTT not configured; WebSocket relay disabled
	}

	for _, r := range relays() {
		if err := s.mqtt.Subscribe(r.topic, 1, s.relayHandler(r)); err != nil {
			return fmt.Errorf("subscribing to %s: %w", r.topic, err)
		}
		s.logger.Info("relaying bridge topic to WebSocket", "topic", r.topic, "channel", r.channel)
	}
	return nil
}

// relayHandler returns the MQTT handler that decodes r's messages and
// broadcasts them. Undecodable payloads are logged and dropped.
func (s *Server) relayHandler(r relay) func(topic string, payload []byte) error {
	return func(topic string, payload []byte) error {
		if s.hub == nil {
			return nil
		}

		deviceID, event, err := r.decode(payload)
		if err != nil {
			s.logger.Warn("dropping undecodable bridge message", "topic", topic, "error", err)
			return nil
		}

		s.hub.BroadcastDevice(r.channel, deviceID, event)
		return nil
	}
}

// handleWebSocket upgrades the connection and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeServiceUnavailable(w, "websocket hub not running")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	s.hub.Attach(conn)
}
