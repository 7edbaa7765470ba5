package device

import (
	"context"
	"time"
)

// Sources recorded with each history entry, naming the gateway message
// that produced the change.
const (
	StateHistorySourceStatus    = "status"    // decoded status payload
	StateHistorySourceConnected = "connected" // availability flag only
	StateHistorySourceDiscovery = "discovery" // device first seen
)

// StateHistoryEntry is the device state as it stood after one change.
type StateHistoryEntry struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	State     State     `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository keeps a bounded log of device state changes so
// recent history can be served without InfluxDB. Timestamps are UTC.
type StateHistoryRepository interface {
	// RecordStateChange appends state for deviceID. An empty source means
	// StateHistorySourceStatus; an unknown device is ErrDeviceNotFound.
	RecordStateChange(ctx context.Context, deviceID string, state State, source string) error

	// GetHistory returns up to limit entries, newest first.
	GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error)

	// PruneOlderThan deletes entries older than age and returns the count.
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
