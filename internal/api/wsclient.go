package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
)

// wsSendBufferSize is how many frames may queue for one client before
// further events are dropped.
const wsSendBufferSize = 256

// WSClient is one WebSocket connection and what it has subscribed to.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	filter wsFilter
	closed bool
}

func newWSClient(hub *Hub, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		filter: newWSFilter(),
	}
}

// wsFilter is the set of channels and devices a client listens to. An
// empty device set admits every device.
type wsFilter struct {
	channels map[string]struct{}
	devices  map[string]struct{}
}

func newWSFilter() wsFilter {
	return wsFilter{
		channels: make(map[string]struct{}),
		devices:  make(map[string]struct{}),
	}
}

func (f wsFilter) add(p WSSubscribePayload) {
	for _, ch := range p.Channels {
		f.channels[ch] = struct{}{}
	}
	for _, id := range p.DeviceIDs {
		f.devices[id] = struct{}{}
	}
}

// remove drops p's channels and devices. Removing the last device widens
// the filter back to all devices.
func (f wsFilter) remove(p WSSubscribePayload) {
	for _, ch := range p.Channels {
		delete(f.channels, ch)
	}
	for _, id := range p.DeviceIDs {
		delete(f.devices, id)
	}
}

func (f wsFilter) admits(channel, deviceID string) bool {
	if _, ok := f.channels[channel]; !ok {
		return false
	}
	if deviceID == "" || len(f.devices) == 0 {
		return true
	}
	_, ok := f.devices[deviceID]
	return ok
}

// wsTimings are the connection limits derived from the config.
type wsTimings struct {
	readLimit int64
	// idle is how long a connection may stay silent, pong frames included.
	idle      time.Duration
	pingEvery time.Duration
	writeWait time.Duration
}

func timingsFor(cfg config.WebSocketConfig) wsTimings {
	return wsTimings{
		readLimit: int64(cfg.MaxMessageSize),
		idle:      time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second,
		pingEvery: time.Duration(cfg.PingInterval) * time.Second,
		writeWait: time.Duration(cfg.PongTimeout) * time.Second,
	}
}

// readPump handles incoming frames until the connection fails, then
// unregisters the client.
func (c *WSClient) readPump(t wsTimings) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(t.idle)) }
	c.conn.SetReadLimit(t.readLimit)
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Browsers do not always answer pings, so any frame keeps the
		// connection alive.
		extend() //nolint:errcheck // as above
		c.handleMessage(frame)
	}
}

// writePump writes queued frames and periodic pings until the send queue
// is closed or a write fails.
func (c *WSClient) writePump(t wsTimings) {
	ticker := time.NewTicker(t.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t.writeWait)); err != nil {
			return err
		}
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.handleSubscription(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleSubscription applies a subscribe or unsubscribe frame and echoes
// what changed.
func (c *WSClient) handleSubscription(msg WSMessage) {
	sub, err := decodeSubscribePayload(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}

	verb := "subscribed"
	c.mu.Lock()
	if msg.Type == WSTypeSubscribe {
		c.filter.add(sub)
	} else {
		c.filter.remove(sub)
		verb = "unsubscribed"
	}
	c.mu.Unlock()

	c.hub.logger.Debug("websocket client "+verb, "channels", sub.Channels, "devices", len(sub.DeviceIDs))
	c.reply(msg.ID, WSTypeResponse, map[string]any{
		verb:         sub.Channels,
		"device_ids": sub.DeviceIDs,
	})
}

var errEmptySubscription = errors.New("no channels or device_ids given")

// decodeSubscribePayload re-decodes a frame's generic payload and rejects
// unknown channels.
func decodeSubscribePayload(payload any) (WSSubscribePayload, error) {
	var sub WSSubscribePayload

	raw, err := json.Marshal(payload)
	if err != nil {
		return sub, errors.New("invalid payload")
	}
	if err := json.Unmarshal(raw, &sub); err != nil {
		return sub, errors.New("invalid subscription payload")
	}
	if len(sub.Channels) == 0 && len(sub.DeviceIDs) == 0 {
		return sub, errEmptySubscription
	}
	for _, ch := range sub.Channels {
		if !slices.Contains(eventChannels, ch) {
			return sub, fmt.Errorf("unknown channel %q (known: %s)", ch, strings.Join(eventChannels, ", "))
		}
	}
	return sub, nil
}

func (c *WSClient) wants(channel, deviceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.admits(channel, deviceID)
}

// trySend queues data without blocking. It reports false once the client
// is closed or while its queue is full.
func (c *WSClient) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	if data, err := json.Marshal(newFrame(msgType, id, payload)); err == nil {
		c.trySend(data)
	}
}

func (c *WSClient) sendError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}
