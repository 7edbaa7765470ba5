package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line protocol posted to /write.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
	down   bool
	reject bool // answer writes with 400
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(r.URL.Path, "/write") && f.rejecting():
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"invalid","message":"unable to parse points"}`)) //nolint:errcheck // test server
	case strings.HasSuffix(r.URL.Path, "/write"):
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInflux) rejecting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reject
}

func (f *fakeInflux) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "")
}

// waitForWrite polls until the recorded body contains want.
func (f *fakeInflux) waitForWrite(t *testing.T, want string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if b := f.body(); strings.Contains(b, want) {
			return b
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("write containing %q not received; got %q", want, f.body())
	return ""
}

func newTestClient(t *testing.T) (*influxdb.Client, *fakeInflux) {
	t.Helper()

	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return client, fake
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "graylogic",
		Bucket:        "inels",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client, _ := newTestClient(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := influxdb.Connect(ctx, testConfig(url))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck_ServerDown(t *testing.T) {
	client, fake := newTestClient(t)

	fake.mu.Lock()
	fake.down = true
	fake.mu.Unlock()

	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should fail when the server is down")
	}
}

func TestClose(t *testing.T) {
	client, _ := newTestClient(t)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close() error = %v, want ErrNotConnected", err)
	}

	// Second close and writes after close are no-ops.
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	client.WriteDeviceMetric("4254524524-452454", "on", 1)
	client.Flush()

	var nilClient *influxdb.Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteDeviceMetric(t *testing.T) {
	client, fake := newTestClient(t)

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteDeviceMetric("4254524524-452454", "temperature_c", 21.5)
	client.Flush()

	body := fake.waitForWrite(t, "device_metrics")
	for _, want := range []string{"device_id=4254524524-452454", "measurement=temperature_c", "value=21.5"} {
		if !strings.Contains(body, want) {
			t.Errorf("line protocol %q missing %q", body, want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}

func TestWriteBridgeStats(t *testing.T) {
	client, fake := newTestClient(t)

	client.WriteBridgeStats("inels-bridge-01", nil) // ignored
	client.WriteBridgeStats("inels-bridge-01", map[string]any{
		"messages_received": uint64(12),
		"errors":            uint64(1),
	})
	client.Flush()

	body := fake.waitForWrite(t, "bridge_stats")
	if !strings.Contains(body, "bridge_id=inels-bridge-01") {
		t.Errorf("line protocol %q missing bridge tag", body)
	}
	if !strings.Contains(body, "messages_received=12") {
		t.Errorf("line protocol %q missing counter", body)
	}
}

func TestWriteFailureReportsErrWriteFailed(t *testing.T) {
	client, fake := newTestClient(t)
	fake.mu.Lock()
	fake.reject = true
	fake.mu.Unlock()

	errCh := make(chan error, 4)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteDeviceMetric("4254524524-452454", "on", 1)
	client.Flush()

	select {
	case err := <-errCh:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("onError got %v, want ErrWriteFailed", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no write error reported")
	}
}
