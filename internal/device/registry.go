package device

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
)

// Logger is the subset of logging.Logger the registry writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// Registry serves devices from an in-memory copy of the repository.
//
// RefreshCache fills the cache at startup; every write goes to the
// repository first and is mirrored into the cache only when it succeeds.
// Callers always receive deep copies. Safe for concurrent use.
type Registry struct {
	repo Repository
	log  Logger
	now  func() time.Time
	mu   sync.RWMutex
	byID map[string]*Device
}

// NewRegistry returns an empty registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo: repo,
		log:  discardLogger{},
		now:  func() time.Time { return time.Now().UTC() },
		byID: make(map[string]*Device),
	}
}

// SetLogger replaces the registry logger.
func (r *Registry) SetLogger(logger Logger) {
	r.log = logger
}

// RefreshCache replaces the cache with the repository contents.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	byID := make(map[string]*Device, len(devices))
	for i := range devices {
		byID[devices[i].ID] = devices[i].DeepCopy()
	}

	r.mu.Lock()
	r.byID = byID
	r.mu.Unlock()

	r.log.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice returns the device with id, reading through to the repository
// on a cache miss. Unknown ids yield ErrDeviceNotFound.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.mu.RLock()
	cached, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	loaded, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(loaded)
	return loaded, nil
}

// ListDevices returns every cached device ordered by ID.
func (r *Registry) ListDevices(_ context.Context) ([]Device, error) {
	return r.snapshot(nil), nil
}

// ListDevicesByType returns the cached devices of type t ordered by ID.
func (r *Registry) ListDevicesByType(_ context.Context, t inels.DeviceType) ([]Device, error) {
	return r.snapshot(func(d *Device) bool { return d.Type == t }), nil
}

// CreateDevice validates and persists a new device.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}
	r.store(d)

	r.log.Info("device registered", "id", d.ID, "type", d.Type, "model", d.Model)
	return nil
}

// EnsureDevice registers d unless its ID is already known, and reports
// whether a record was created. Losing a creation race counts as known.
func (r *Registry) EnsureDevice(ctx context.Context, d *Device) (bool, error) {
	_, err := r.GetDevice(ctx, d.ID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrDeviceNotFound):
		return false, err
	}

	err = r.CreateDevice(ctx, d)
	switch {
	case errors.Is(err, ErrDeviceExists):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// DeleteDevice removes a device and its history.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()

	r.log.Info("device removed", "id", id)
	return nil
}

// SetDeviceState merges state into the device's stored state; keys absent
// from state keep their previous values.
func (r *Registry) SetDeviceState(ctx context.Context, id string, state State) error {
	if err := r.repo.UpdateState(ctx, id, state); err != nil {
		return err
	}

	now := r.now()
	r.patch(id, func(d *Device) {
		d.State = mergeState(d.State, state)
		d.StateUpdatedAt = &now
	})

	r.log.Debug("device state merged", "id", id, "keys", len(state))
	return nil
}

// SetDeviceHealth records status and marks the device as seen now.
func (r *Registry) SetDeviceHealth(ctx context.Context, id string, status HealthStatus) error {
	if _, ok := ParseHealthStatus(string(status)); !ok {
		return fmt.Errorf("%w: unknown health status %q", ErrInvalidDevice, status)
	}

	now := r.now()
	if err := r.repo.UpdateHealth(ctx, id, status, now); err != nil {
		return err
	}
	r.patch(id, func(d *Device) {
		d.HealthStatus = status
		d.LastSeen = &now
	})

	r.log.Debug("device health set", "id", id, "status", status)
	return nil
}

// DeviceCount returns the number of cached devices.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *Registry) store(d *Device) {
	cp := d.DeepCopy()
	r.mu.Lock()
	r.byID[cp.ID] = cp
	r.mu.Unlock()
}

// patch applies fn to a copy of the cached device and swaps it in, so
// copies already handed out never change. Uncached ids are ignored.
func (r *Registry) patch(id string, fn func(*Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, ok := r.byID[id]
	if !ok {
		return
	}
	updated := cached.DeepCopy()
	fn(updated)
	r.byID[id] = updated
}

// snapshot copies the cached devices accepted by keep (all when nil),
// ordered by ID.
func (r *Registry) snapshot(keep func(*Device) bool) []Device {
	r.mu.RLock()
	devices := make([]Device, 0, len(r.byID))
	for _, d := range r.byID {
		if keep == nil || keep(d) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(devices, func(a, b Device) int { return cmp.Compare(a.ID, b.ID) })
	return devices
}
