package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/logging"
)

// Frame types of the WebSocket protocol.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Channels a client can subscribe to.
const (
	EventDeviceStateChanged = "device.state_changed"
	EventCommandAck         = "device.command_ack"
	EventBridgeHealth       = "bridge.health"
)

var eventChannels = []string{EventDeviceStateChanged, EventCommandAck, EventBridgeHealth}

// WSMessage is the envelope of every frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe frames.
// DeviceIDs narrows device events to the listed devices.
type WSSubscribePayload struct {
	Channels  []string `json:"channels"`
	DeviceIDs []string `json:"device_ids,omitempty"`
}

func newFrame(msgType, id string, payload any) WSMessage {
	return WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
}

// Hub fans bridge events out to the connected WebSocket clients whose
// subscriptions admit them. A slow client misses events rather than
// holding up the others.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewHub returns an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run waits for ctx to end and then drops every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.closeSend()
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// Register starts delivering events to c.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister stops delivery to c and closes its send queue. Repeated calls
// are harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast sends an event that is not about one device.
func (h *Hub) Broadcast(channel string, payload any) {
	h.BroadcastDevice(channel, "", payload)
}

// BroadcastDevice sends an event about deviceID on channel. Device filters
// only apply when deviceID is set.
func (h *Hub) BroadcastDevice(channel, deviceID string, payload any) {
	msg := newFrame(WSTypeEvent, "", payload)
	msg.EventType = channel
	msg.DeviceID = deviceID

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding websocket event failed", "channel", channel, "error", err)
		return
	}

	sent := 0
	for _, c := range h.snapshot() {
		if c.wants(channel, deviceID) && c.trySend(data) {
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("websocket event sent", "channel", channel, "device_id", deviceID, "recipients", sent)
	}
}

// snapshot copies the client set so client locks are never taken under
// the hub lock.
func (h *Hub) snapshot() []*WSClient {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Attach registers a client for conn and starts its read and write pumps.
func (h *Hub) Attach(conn *websocket.Conn) *WSClient {
	c := newWSClient(h, conn)
	h.Register(c)

	t := timingsFor(h.cfg)
	go c.writePump(t)
	go c.readPump(t)
	return c
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
