// Package api implements the HTTP REST API and WebSocket server of the
// iNels bridge.
//
// This package provides:
//   - REST endpoints for reading devices, their state and state history
//   - Device commands, published to the bridge's command topic
//   - A stateless translation endpoint over the value translator
//   - On-demand discovery of the devices behind the gateway
//   - A WebSocket hub relaying bridge state, command acks and health, with
//     per-device subscription filters
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API server sits next to the bridge, not in front of it. Commands are
// published on graylogic/command/inels/{id} and handled by the bridge like
// any other core command; the ack and the resulting state reach clients
// through the WebSocket relay of graylogic/ack/inels/+ and
// graylogic/state/inels/+.
//
// # Graceful Degradation
//
// The server operates without MQTT: reads, translation and WebSocket
// connections work, only commands and discovery fail with 503.
package api
