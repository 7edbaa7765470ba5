package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device
	gets    int

	// For testing error paths
	createErr       error
	getErr          error
	deleteErr       error
	updateStateErr  error
	updateHealthErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[string]*Device),
	}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if d, ok := m.devices[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, device *Device) error {
	if m.createErr != nil {
		return m.createErr
	}
	if err := device.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[device.ID]; exists {
		return ErrDeviceExists
	}
	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[id]; !exists {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MockRepository) UpdateState(_ context.Context, id string, state State) error {
	if m.updateStateErr != nil {
		return m.updateStateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.State = mergeState(d.State, state)
	return nil
}

func (m *MockRepository) UpdateHealth(_ context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	if m.updateHealthErr != nil {
		return m.updateHealthErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.HealthStatus = status
	d.LastSeen = &lastSeen
	return nil
}

func newTestRegistry(t *testing.T, devices ...*Device) (*Registry, *MockRepository) {
	t.Helper()

	repo := NewMockRepository()
	for _, d := range devices {
		repo.devices[d.ID] = d.DeepCopy()
	}
	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	return reg, repo
}

// ─── Cache ─────────────────────────────────────────────────────────

func TestRegistry_RefreshCache(t *testing.T) {
	reg, _ := newTestRegistry(t, testDevice("000001"), testDevice("000002"))

	if got := reg.DeviceCount(); got != 2 {
		t.Errorf("DeviceCount() = %d, want 2", got)
	}
}

func TestRegistry_GetDeviceFromCache(t *testing.T) {
	dev := testDevice("000001")
	reg, repo := newTestRegistry(t, dev)

	got, err := reg.GetDevice(context.Background(), dev.ID)
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.ID != dev.ID {
		t.Errorf("ID = %q, want %q", got.ID, dev.ID)
	}
	if repo.gets != 0 {
		t.Errorf("repository hit %d times, want cache only", repo.gets)
	}

	// Mutating the returned copy must not affect the cache.
	got.State["on"] = true
	again, _ := reg.GetDevice(context.Background(), dev.ID)
	if again.State["on"] != false {
		t.Error("cached state was mutated through returned device")
	}
}

func TestRegistry_GetDeviceFallsBackToRepository(t *testing.T) {
	reg, repo := newTestRegistry(t)
	dev := testDevice("000009")
	repo.devices[dev.ID] = dev.DeepCopy()

	if _, err := reg.GetDevice(context.Background(), dev.ID); err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if reg.DeviceCount() != 1 {
		t.Errorf("DeviceCount() = %d, want 1 after repository fallback", reg.DeviceCount())
	}

	if _, err := reg.GetDevice(context.Background(), "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_ListDevices(t *testing.T) {
	light := testDevice("000002")
	light.Type = inels.DeviceTypeLight
	reg, _ := newTestRegistry(t, testDevice("000003"), light, testDevice("000001"))
	ctx := context.Background()

	all, err := reg.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListDevices() len = %d, want 3", len(all))
	}
	if all[0].UniqueID != "000001" || all[1].UniqueID != "000002" || all[2].UniqueID != "000003" {
		t.Errorf("ListDevices() not sorted by id")
	}

	lights, err := reg.ListDevicesByType(ctx, inels.DeviceTypeLight)
	if err != nil {
		t.Fatalf("ListDevicesByType() error = %v", err)
	}
	if len(lights) != 1 || lights[0].ID != light.ID {
		t.Errorf("ListDevicesByType(light) = %+v", lights)
	}
}

// ─── Writes ────────────────────────────────────────────────────────

func TestRegistry_EnsureDevice(t *testing.T) {
	reg, repo := newTestRegistry(t)
	ctx := context.Background()
	dev := testDevice("000001")

	created, err := reg.EnsureDevice(ctx, dev)
	if err != nil {
		t.Fatalf("EnsureDevice() error = %v", err)
	}
	if !created {
		t.Error("first EnsureDevice() should create")
	}

	created, err = reg.EnsureDevice(ctx, testDevice("000001"))
	if err != nil {
		t.Fatalf("second EnsureDevice() error = %v", err)
	}
	if created {
		t.Error("second EnsureDevice() should not create")
	}
	if len(repo.devices) != 1 {
		t.Errorf("repository holds %d devices, want 1", len(repo.devices))
	}
}

func TestRegistry_EnsureDeviceErrors(t *testing.T) {
	reg, repo := newTestRegistry(t)
	ctx := context.Background()

	repo.getErr = errors.New("disk on fire")
	if _, err := reg.EnsureDevice(ctx, testDevice("000001")); err == nil {
		t.Error("EnsureDevice() should surface lookup errors")
	}

	repo.getErr = nil
	invalid := testDevice("000002")
	invalid.Type = "toaster"
	if _, err := reg.EnsureDevice(ctx, invalid); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("EnsureDevice(invalid) error = %v, want ErrInvalidDevice", err)
	}
}

func TestRegistry_SetDeviceState(t *testing.T) {
	dev := testDevice("000001")
	reg, _ := newTestRegistry(t, dev)
	ctx := context.Background()

	if err := reg.SetDeviceState(ctx, dev.ID, State{"on": true}); err != nil {
		t.Fatalf("SetDeviceState() error = %v", err)
	}
	if err := reg.SetDeviceState(ctx, dev.ID, State{"available": true}); err != nil {
		t.Fatalf("SetDeviceState() error = %v", err)
	}

	got, _ := reg.GetDevice(ctx, dev.ID)
	if got.State["on"] != true || got.State["available"] != true {
		t.Errorf("State = %v, want merged on/available", got.State)
	}
	if got.StateUpdatedAt == nil {
		t.Error("StateUpdatedAt should be set")
	}

	if err := reg.SetDeviceState(ctx, "missing", State{"on": true}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetDeviceState(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_SetDeviceHealth(t *testing.T) {
	dev := testDevice("000001")
	reg, _ := newTestRegistry(t, dev)
	ctx := context.Background()

	if err := reg.SetDeviceHealth(ctx, dev.ID, HealthStatusOffline); err != nil {
		t.Fatalf("SetDeviceHealth() error = %v", err)
	}

	got, _ := reg.GetDevice(ctx, dev.ID)
	if got.HealthStatus != HealthStatusOffline {
		t.Errorf("HealthStatus = %q, want offline", got.HealthStatus)
	}
	if got.LastSeen == nil {
		t.Error("LastSeen should be set")
	}

	if err := reg.SetDeviceHealth(ctx, dev.ID, "sleepy"); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("SetDeviceHealth(sleepy) error = %v, want ErrInvalidDevice", err)
	}
}

func TestRegistry_DeleteDevice(t *testing.T) {
	dev := testDevice("000001")
	reg, _ := newTestRegistry(t, dev)
	ctx := context.Background()

	if err := reg.DeleteDevice(ctx, dev.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if reg.DeviceCount() != 0 {
		t.Errorf("DeviceCount() = %d, want 0", reg.DeviceCount())
	}
	if err := reg.DeleteDevice(ctx, dev.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second DeleteDevice() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	dev := testDevice("000001")
	reg, _ := newTestRegistry(t, dev)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(level int) {
			defer wg.Done()
			_ = reg.SetDeviceState(ctx, dev.ID, State{"level": level}) //nolint:errcheck // Race test
		}(i)
		go func() {
			defer wg.Done()
			_, _ = reg.ListDevices(ctx) //nolint:errcheck // Race test
		}()
	}
	wg.Wait()

	if reg.DeviceCount() != 1 {
		t.Errorf("DeviceCount() = %d, want 1", reg.DeviceCount())
	}
}
