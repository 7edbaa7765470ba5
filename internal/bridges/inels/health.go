package inels

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// HealthPublisher publishes the bridge's retained health message.
// *mqtt.Client and MQTTClient both satisfy it.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthReporterConfig configures a HealthReporter.
type HealthReporterConfig struct {
	BridgeID string
	Version  string

	// Interval between reports. Defaults to DefaultHealthInterval.
	Interval time.Duration

	Publisher HealthPublisher

	// Stats supplies the counters embedded in each report. Optional.
	Stats func() BridgeStatistics
}

// HealthReporter publishes a retained HealthMessage on HealthTopic every
// interval while running, and a final "stopping" message on Stop. The
// broker replaces it with the LWT if the bridge dies without stopping.
type HealthReporter struct {
	cfg     HealthReporterConfig
	started time.Time
	devices atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	logger Logger

	stopOnce sync.Once
}

// NewHealthReporter returns a reporter that is not yet running.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHealthInterval
	}
	return &HealthReporter{cfg: cfg, started: time.Now()}
}

// Start publishes a report now and then every interval until ctx ends or
// Stop is called. Later calls are ignored.
func (h *HealthReporter) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done != nil {
		return
	}

	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	go h.run(ctx, h.done)
}

func (h *HealthReporter) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := h.PublishNow(); err != nil {
			h.logError("publishing health failed", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop ends periodic reporting and publishes HealthStopping. Only the
// first call has any effect.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		cancel, done := h.cancel, h.done
		h.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
		if err := h.publish(HealthStopping, ""); err != nil {
			h.logError("publishing stopping status failed", err)
		}
	})
}

// SetDeviceCount sets the devices_managed figure of later reports.
func (h *HealthReporter) SetDeviceCount(count int) {
	h.devices.Store(int64(count))
}

// SetLogger sets where publish failures are logged.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.mu.Lock()
	h.logger = logger
	h.mu.Unlock()
}

// PublishStarting publishes HealthStarting.
func (h *HealthReporter) PublishStarting() error {
	return h.publish(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status: healthy while the publisher is
// connected, degraded otherwise.
func (h *HealthReporter) PublishNow() error {
	if h.cfg.Publisher == nil || !h.cfg.Publisher.IsConnected() {
		return h.publish(HealthDegraded, "MQTT disconnected")
	}
	return h.publish(HealthHealthy, "")
}

// LWTPayload returns the JSON of the offline message to register as the
// MQTT Last Will.
func (h *HealthReporter) LWTPayload() ([]byte, error) {
	return json.Marshal(NewLWTMessage(h.cfg.BridgeID))
}

func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	if h.cfg.Publisher == nil {
		return nil
	}

	var stats BridgeStatistics
	if h.cfg.Stats != nil {
		stats = h.cfg.Stats()
	}
	msg := NewHealthMessage(h.cfg.BridgeID, h.cfg.Version, status, stats, int(h.devices.Load()), h.started)
	msg.Reason = reason

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.cfg.Publisher.Publish(HealthTopic(), payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.mu.Lock()
	logger := h.logger
	h.mu.Unlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
