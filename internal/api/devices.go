package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
	"github.com/nerrad567/gray-logic-inels/internal/device"
)

// commandQoS is the QoS used for commands published to the bridge.
const commandQoS = 1

// handleListDevices returns all devices, optionally filtered by ?type=.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		devices []device.Device
		err     error
	)
	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		t := inels.DeviceType(typeStr)
		if !t.IsValid() {
			writeBadRequest(w, "unknown device type")
			return
		}
		devices, err = s.registry.ListDevicesByType(ctx, t)
	} else {
		devices, err = s.registry.ListDevices(ctx)
	}
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleGetDeviceState returns the current state of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":        dev.ID,
		"state":            dev.State,
		"state_updated_at": dev.StateUpdatedAt,
		"health_status":    dev.HealthStatus,
	})
}

// DeviceCommand is the body of PUT /devices/{id}/state.
type DeviceCommand struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleSetDeviceState sends a command to a device via the bridge.
// This is an asynchronous operation: the command is published to MQTT and
// the response is 202 Accepted. The resulting state arrives via WebSocket
// and the outcome on the device's ack topic.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var cmd DeviceCommand
	if !readJSONBody(w, r, &cmd) {
		return
	}
	if cmd.Command == "" {
		writeBadRequest(w, "command field is required")
		return
	}
	if dev.Type.ReadOnly() {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "device is read-only")
		return
	}
	if s.mqtt == nil {
		writeServiceUnavailable(w, "MQTT not available")
		return
	}

	msg := inels.CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   dev.ID,
		Command:    cmd.Command,
		Parameters: cmd.Parameters,
		Source:     "api",
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		writeInternalError(w, "failed to encode command")
		return
	}

	if err := s.mqtt.Publish(inels.CommandTopic(dev.ID), payload, commandQoS, false); err != nil {
		s.logger.Warn("command publish failed", "device_id", dev.ID, "error", err)
		writeServiceUnavailable(w, "failed to publish command")
		return
	}

	s.logger.Info("device command sent",
		"device_id", dev.ID,
		"command", cmd.Command,
		"parameters", cmd.Parameters,
		"command_id", msg.ID,
	)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"command_id": msg.ID,
		"status":     "accepted",
		"message":    "command published, state update will follow via WebSocket",
	})
}

// lookupDevice resolves the {id} URL parameter, writing the error response
// itself when the device cannot be returned.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*device.Device, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return nil, false
	}

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return nil, false
		}
		writeInternalError(w, "failed to get device")
		return nil, false
	}
	return dev, true
}
