package device

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
)

// HealthStatus is the reachability of a device as last reported by the gateway.
type HealthStatus string

// Health status values.
const (
	HealthStatusUnknown HealthStatus = "unknown"
	HealthStatusOnline  HealthStatus = "online"
	HealthStatusOffline HealthStatus = "offline"
)

// ParseHealthStatus maps a status string to a HealthStatus, reporting
// false for values outside the known set.
func ParseHealthStatus(s string) (HealthStatus, bool) {
	switch HealthStatus(s) {
	case HealthStatusUnknown, HealthStatusOnline, HealthStatusOffline:
		return HealthStatus(s), true
	}
	return HealthStatusUnknown, false
}

// State is the last known device state, as rendered by inels.Value.State.
type State map[string]any

// Device is a unit on the iNels gateway.
// This matches the devices table in migrations/20260301_120000_initial_schema.up.sql.
type Device struct {
	// Identity: <serial>-<uid>
	ID   string `json:"id"`
	Name string `json:"name"`

	// Classification
	Type         inels.DeviceType `json:"type"`
	Model        inels.Model      `json:"model"`
	TypeCode     inels.TypeCode   `json:"type_code"`
	Capabilities []string         `json:"capabilities"`

	// Gateway addressing
	SerialNumber string `json:"serial_number"`
	UniqueID     string `json:"unique_id"`
	StatusTopic  string `json:"status_topic"`
	SetTopic     string `json:"set_topic"`

	// Current state
	State          State      `json:"state"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty"`

	// Health
	HealthStatus HealthStatus `json:"health_status"`
	LastSeen     *time.Time   `json:"last_seen,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate reports whether the device can be stored.
func (d *Device) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	case d.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	case !d.Type.IsValid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDevice, d.Type)
	case d.StatusTopic == "":
		return fmt.Errorf("%w: status topic is required", ErrInvalidDevice)
	}
	if d.HealthStatus != "" {
		if _, ok := ParseHealthStatus(string(d.HealthStatus)); !ok {
			return fmt.Errorf("%w: unknown health status %q", ErrInvalidDevice, d.HealthStatus)
		}
	}
	return nil
}

// DeepCopy creates a complete independent copy of the Device.
// Map and slice fields are cloned so the registry cache cannot be mutated
// through a returned device.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.State = State(deepCopyMap(d.State))
	if d.Capabilities != nil {
		cpy.Capabilities = make([]string, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}
	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case State:
		return State(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}

// mergeState applies patch onto base the way SQLite json_patch does:
// keys with a nil value are removed, others overwrite.
func mergeState(base State, patch map[string]any) State {
	merged := State(deepCopyMap(base))
	if merged == nil {
		merged = State{}
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = deepCopyValue(v)
	}
	return merged
}
