package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// History page sizes for GetHistory.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

const (
	insertHistorySQL = `INSERT INTO state_history (device_id, state, source, created_at)
		VALUES (?, ?, ?, ?)`

	selectHistorySQL = `SELECT id, device_id, state, source, created_at
		FROM state_history
		WHERE device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	pruneHistorySQL = `DELETE FROM state_history WHERE created_at < ?`
)

// SQLiteStateHistoryRepository keeps state snapshots as JSON rows in the
// state_history table. Rows are removed with their device.
type SQLiteStateHistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStateHistoryRepository returns a history repository on db.
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db, now: time.Now}
}

// RecordStateChange appends a snapshot for deviceID. A nil state is stored
// as {} and an empty source as StateHistorySourceStatus. Unknown devices
// yield ErrDeviceNotFound.
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, deviceID string, state State, source string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidDevice)
	}
	if source == "" {
		source = StateHistorySourceStatus
	}
	if state == nil {
		state = State{}
	}

	snapshot, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding %s snapshot: %w", deviceID, err)
	}

	_, err = r.db.ExecContext(ctx, insertHistorySQL, deviceID, string(snapshot), source, formatTime(r.now()))
	switch {
	case isMissingReference(err):
		return ErrDeviceNotFound
	case err != nil:
		return fmt.Errorf("recording %s history: %w", deviceID, err)
	}
	return nil
}

// GetHistory pages through a device's snapshots, newest first. limit falls
// back to 50 when not positive and is clamped to 200.
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidDevice)
	}
	limit = clampHistoryLimit(limit)

	rows, err := r.db.QueryContext(ctx, selectHistorySQL, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading %s history: %w", deviceID, err)
	}
	defer rows.Close()

	entries := make([]StateHistoryEntry, 0, limit)
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading %s history: %w", deviceID, err)
	}
	return entries, nil
}

// PruneOlderThan drops every snapshot recorded more than age ago and
// returns the number removed.
func (r *SQLiteStateHistoryRepository) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, fmt.Errorf("%w: prune age must be positive, got %v", ErrInvalidDevice, age)
	}

	result, err := r.db.ExecContext(ctx, pruneHistorySQL, formatTime(r.now().Add(-age)))
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return result.RowsAffected()
}

func clampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

func scanHistoryEntry(scanner rowScanner) (StateHistoryEntry, error) {
	var (
		entry     StateHistoryEntry
		snapshot  string
		createdAt string
	)
	if err := scanner.Scan(&entry.ID, &entry.DeviceID, &snapshot, &entry.Source, &createdAt); err != nil {
		return entry, fmt.Errorf("scanning history row: %w", err)
	}
	if err := json.Unmarshal([]byte(snapshot), &entry.State); err != nil {
		return entry, fmt.Errorf("decoding history row %d: %w", entry.ID, err)
	}

	var err error
	entry.CreatedAt, err = parseTime("created_at", createdAt)
	return entry, err
}
