package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
)

// Repository persists devices. Implementations must be safe for
// concurrent use and report unknown IDs as ErrDeviceNotFound.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Device, error)

	// List returns every device ordered by ID.
	List(ctx context.Context) ([]Device, error)

	// Create returns ErrDeviceExists when the ID or status topic is taken.
	Create(ctx context.Context, device *Device) error

	// Delete removes the device and its state history.
	Delete(ctx context.Context, id string) error

	// UpdateState merges state into the stored state key by key.
	UpdateState(ctx context.Context, id string, state State) error

	UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error
}

const (
	deviceColumns = `id, name, type, model, type_code, serial_number, unique_id,
		status_topic, set_topic, capabilities, state, state_updated_at,
		health_status, last_seen, created_at, updated_at`

	selectDeviceSQL = `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`
	listDevicesSQL  = `SELECT ` + deviceColumns + ` FROM devices ORDER BY id`
	insertDeviceSQL = `INSERT INTO devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	deleteDeviceSQL = `DELETE FROM devices WHERE id = ?`

	// json_patch keeps keys absent from the update.
	mergeStateSQL = `UPDATE devices
		SET state = json_patch(COALESCE(state, '{}'), ?), state_updated_at = ?, updated_at = ?
		WHERE id = ?`
	updateHealthSQL = `UPDATE devices
		SET health_status = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`
)

// SQLiteRepository is the Repository backed by the devices table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository returns a repository on db, which must already carry
// the schema.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDeviceSQL, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrDeviceNotFound
	case err != nil:
		return nil, fmt.Errorf("loading device %s: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, listDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("listing devices: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// Create validates and inserts device, filling in defaults for State,
// HealthStatus and the timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if err := device.Validate(); err != nil {
		return err
	}

	now := r.now().UTC()
	if device.State == nil {
		device.State = State{}
	}
	if device.HealthStatus == "" {
		device.HealthStatus = HealthStatusUnknown
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	args, err := insertArgs(device)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, insertDeviceSQL, args...); err != nil {
		if isDuplicateKey(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device %s: %w", device.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, deleteDeviceSQL, id)
}

func (r *SQLiteRepository) UpdateState(ctx context.Context, id string, state State) error {
	patch, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	now := formatTime(r.now())
	return r.execOne(ctx, mergeStateSQL, string(patch), now, now, id)
}

func (r *SQLiteRepository) UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	return r.execOne(ctx, updateHealthSQL, string(status), formatTime(lastSeen), formatTime(r.now()), id)
}

// execOne runs a statement that must touch exactly one device row; the
// last arg is the device ID.
func (r *SQLiteRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating device %v: %w", args[len(args)-1], err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// insertArgs returns device in deviceColumns order.
func insertArgs(d *Device) ([]any, error) {
	caps := d.Capabilities
	if caps == nil {
		caps = []string{}
	}
	capsJSON, err := json.Marshal(caps)
	if err != nil {
		return nil, fmt.Errorf("encoding capabilities: %w", err)
	}
	stateJSON, err := json.Marshal(d.State)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}

	return []any{
		d.ID, d.Name, string(d.Type), string(d.Model), string(d.TypeCode),
		d.SerialNumber, d.UniqueID, d.StatusTopic, d.SetTopic,
		string(capsJSON), string(stateJSON), nullableTime(d.StateUpdatedAt),
		string(d.HealthStatus), nullableTime(d.LastSeen),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// deviceRow holds the text columns of a devices row before decoding.
type deviceRow struct {
	typ, model, typeCode, health string
	caps, state                  string
	stateUpdatedAt, lastSeen     sql.NullString
	createdAt, updatedAt         string
}

func scanDevice(s rowScanner) (*Device, error) {
	var (
		d   Device
		row deviceRow
	)
	err := s.Scan(
		&d.ID, &d.Name, &row.typ, &row.model, &row.typeCode,
		&d.SerialNumber, &d.UniqueID, &d.StatusTopic, &d.SetTopic,
		&row.caps, &row.state, &row.stateUpdatedAt,
		&row.health, &row.lastSeen, &row.createdAt, &row.updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := row.decodeInto(&d); err != nil {
		return nil, fmt.Errorf("device %s: %w", d.ID, err)
	}
	return &d, nil
}

func (row deviceRow) decodeInto(d *Device) error {
	d.Type = inels.DeviceType(row.typ)
	d.Model = inels.Model(row.model)
	d.TypeCode = inels.TypeCode(row.typeCode)
	d.HealthStatus = HealthStatus(row.health)
	d.StateUpdatedAt = parseNullableTime(row.stateUpdatedAt)
	d.LastSeen = parseNullableTime(row.lastSeen)

	var err error
	if d.CreatedAt, err = parseTime("created_at", row.createdAt); err != nil {
		return err
	}
	if d.UpdatedAt, err = parseTime("updated_at", row.updatedAt); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(row.caps), &d.Capabilities); err != nil {
		return fmt.Errorf("decoding capabilities: %w", err)
	}
	if err := json.Unmarshal([]byte(row.state), &d.State); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}
	return nil
}
