package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "inelsbridge-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// requireBroker skips the test unless a broker answers on 127.0.0.1:1883.
func requireBroker(t *testing.T) config.MQTTConfig {
	t.Helper()

	cfg := testConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !Probe(ctx, cfg) {
		t.Skip("no MQTT broker at 127.0.0.1:1883")
	}
	return cfg
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *mockLogger) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors), len(l.warns)
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// =============================================================================
// Options Tests
// =============================================================================

func TestNewClientID(t *testing.T) {
	a := NewClientID("inelsbridge")
	b := NewClientID("inelsbridge")

	if !strings.HasPrefix(a, "inelsbridge-") {
		t.Errorf("NewClientID() = %q, want inelsbridge- prefix", a)
	}
	if len(a) != len("inelsbridge-")+clientIDSuffixLen {
		t.Errorf("NewClientID() length = %d", len(a))
	}
	if a == b {
		t.Errorf("NewClientID() returned %q twice", a)
	}
	if got := NewClientID(""); len(got) != clientIDSuffixLen {
		t.Errorf("NewClientID(\"\") = %q, want bare suffix", got)
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q", got)
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL(tls) = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg, "inelsbridge-abc")

	if opts.ClientID != "inelsbridge-abc" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled for the long-lived session")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if !opts.CleanSession {
		t.Error("CleanSession should be true")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}

	session := buildSessionOptions(cfg, "inelsbridge-probe")
	if session.AutoReconnect || session.ConnectRetry {
		t.Error("short-lived sessions must not retry")
	}
}

func TestDefaultWill(t *testing.T) {
	w := defaultWill("inelsbridge-abc")

	if w.Topic != "graylogic/system/status" {
		t.Errorf("Topic = %q", w.Topic)
	}
	if !w.Retained || w.QoS != 1 {
		t.Errorf("QoS/Retained = %d/%v, want 1/true", w.QoS, w.Retained)
	}

	var payload map[string]string
	if err := json.Unmarshal(w.Payload, &payload); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if payload["status"] != "offline" || payload["reason"] != "unexpected_disconnect" {
		t.Errorf("will payload = %v", payload)
	}
}

func TestBuildStatusPayload(t *testing.T) {
	var online map[string]string
	if err := json.Unmarshal([]byte(buildStatusPayload("id-1", "online", "")), &online); err != nil {
		t.Fatalf("online payload is not JSON: %v", err)
	}
	if online["status"] != "online" || online["client_id"] != "id-1" {
		t.Errorf("online payload = %v", online)
	}
	if _, ok := online["reason"]; ok {
		t.Error("online payload should omit reason")
	}
	if _, err := time.Parse(time.RFC3339, online["timestamp"]); err != nil {
		t.Errorf("timestamp %q is not RFC3339", online["timestamp"])
	}
}

func TestWithOptions(t *testing.T) {
	var co connectOptions
	logger := &mockLogger{}
	for _, opt := range []Option{
		WithWill(Will{Topic: "graylogic/health/inels", Payload: []byte(`{}`), QoS: 1, Retained: true}),
		WithLogger(logger),
	} {
		opt(&co)
	}

	if co.will == nil || co.will.Topic != "graylogic/health/inels" {
		t.Errorf("will = %+v", co.will)
	}
	if co.logger != logger {
		t.Error("logger option not applied")
	}
}

func TestTopics(t *testing.T) {
	if got := (Topics{}).SystemStatus(); got != "graylogic/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		filter  string
		wantErr bool
	}{
		{"inels/status/#", false},
		{"graylogic/state/inels/+", false},
		{"inels/+/4254524524/02/+", false},
		{"#", false},
		{"+", false},
		{"inels/status/4254524524/02/452454", false},
		{"", true},
		{"inels/#/02", true},
		{"inels/status#", true},
		{"inels/st+tus/#", true},
		{"inels/" + string(rune(0)), true},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			err := validateFilter(tt.filter)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFilter(%q) error = %v, wantErr %v", tt.filter, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTopic) {
				t.Errorf("validateFilter(%q) error = %v, want ErrInvalidTopic", tt.filter, err)
			}
		})
	}
}

func TestValidatePublishTopic(t *testing.T) {
	tests := []struct {
		topic   string
		wantErr bool
	}{
		{"inels/set/4254524524/02/452454", false},
		{"graylogic/state/inels/4254524524-452454", false},
		{"", true},
		{"inels/set/+/02/452454", true},
		{"inels/set/#", true},
		{strings.Repeat("a", maxTopicLength+1), true},
	}

	for _, tt := range tests {
		name := tt.topic
		if len(name) > 40 {
			name = "long topic"
		}
		t.Run(name, func(t *testing.T) {
			err := validatePublishTopic(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePublishTopic() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Offline Client Tests
// =============================================================================

func TestPublishValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("01\n"), 1, ErrInvalidTopic},
		{"wildcard topic", "inels/set/+/02/2", []byte("01\n"), 1, ErrInvalidTopic},
		{"multi-level wildcard", "inels/set/#", []byte("01\n"), 1, ErrInvalidTopic},
		{"invalid qos", "inels/set/1/02/2", []byte("01\n"), 3, ErrInvalidQoS},
		{"oversized", "inels/set/1/02/2", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "inels/set/1/02/2", []byte("01\n"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, noop, ErrInvalidTopic},
		{"hash not last", "inels/#/02", 1, noop, ErrInvalidTopic},
		{"partial plus", "inels/stat+/#", 1, noop, ErrInvalidTopic},
		{"invalid qos", "inels/status/#", 3, noop, ErrInvalidQoS},
		{"nil handler", "inels/status/#", 1, nil, ErrSubscribeFailed},
		{"not connected", "inels/status/#", 1, noop, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after failed subscribes", c.SubscriptionCount())
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Unsubscribe("inels/status/#"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestOfflineClientState(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if c.IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
	if c.IsAvailable() {
		t.Error("IsAvailable() = true for a client that never connected")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestHandleDisconnectKeepsAvailability(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	c.markConnected()

	var gotErr error
	c.SetOnDisconnect(func(err error) { gotErr = err })
	logger := &mockLogger{}
	c.SetLogger(logger)

	lost := errors.New("connection reset")
	c.handleDisconnect(lost)

	if c.connected.Load() {
		t.Error("connected still set after connection loss")
	}
	if !c.IsAvailable() {
		t.Error("IsAvailable() = false after a plain connection loss, want true")
	}
	if !errors.Is(gotErr, lost) {
		t.Errorf("OnDisconnect error = %v, want %v", gotErr, lost)
	}
	if _, warns := logger.counts(); warns != 1 {
		t.Errorf("warns = %d, want 1", warns)
	}
}

func TestAvailabilityFollowsReconnectAttempts(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	c.markConnected()
	c.handleDisconnect(errors.New("connection reset"))

	// First attempt after the loss: nothing has failed yet.
	c.handleReconnecting()
	if !c.IsAvailable() {
		t.Fatal("IsAvailable() = false before any reconnect attempt failed")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectionFailed) {
		t.Errorf("HealthCheck() while reconnecting = %v, want plain ErrNotConnected", err)
	}

	// Second attempt: the first one failed.
	c.handleReconnecting()
	if c.IsAvailable() {
		t.Fatal("IsAvailable() = true after a failed reconnect attempt")
	}
	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) || !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("HealthCheck() after failed attempt = %v, want ErrNotConnected and ErrConnectionFailed", err)
	}

	c.markConnected()
	if !c.IsAvailable() || c.reconnecting.Load() {
		t.Error("successful connect should restore availability and end reconnecting")
	}
}

func TestWrapHandler(t *testing.T) {
	logger := &mockLogger{}
	c := &Client{}
	c.SetLogger(logger)

	c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "inels/status/1/02/2"})

	c.wrapHandler(func(string, []byte) error {
		return errors.New("bad payload")
	})(nil, fakeMessage{topic: "inels/status/1/02/2"})

	var got string
	c.wrapHandler(func(_ string, p []byte) error {
		got = string(p)
		return nil
	})(nil, fakeMessage{topic: "inels/status/1/02/2", payload: []byte("01\n")})

	errs, warns := logger.counts()
	if errs != 1 {
		t.Errorf("errors logged = %d, want 1 (panic)", errs)
	}
	if warns != 1 {
		t.Errorf("warns logged = %d, want 1 (handler error)", warns)
	}
	if got != "01\n" {
		t.Errorf("payload = %q, want %q", got, "01\n")
	}

	// No logger: panics are still recovered.
	c.SetLogger(nil)
	c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, fakeMessage{})
}

func TestProbeUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if Probe(ctx, cfg) {
		t.Error("Probe() = true for a closed port")
	}
}

func TestConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// =============================================================================
// Broker Tests (skipped without a broker)
// =============================================================================

func TestConnect(t *testing.T) {
	cfg := requireBroker(t)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if !client.IsAvailable() {
		t.Error("IsAvailable() = false, want true")
	}
	if !strings.HasPrefix(client.ClientID(), "inelsbridge-test-") {
		t.Errorf("ClientID() = %q", client.ClientID())
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() || client.IsAvailable() {
		t.Error("client still connected after Close()")
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	cfg := requireBroker(t)

	pub, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	sub, err := Connect(cfg, WithLogger(&mockLogger{}))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	filter := "inelstest/status/#"
	received := make(chan string, 1)
	err = sub.Subscribe(filter, 1, func(topic string, payload []byte) error {
		received <- topic + "=" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.SubscriptionCount() != 1 {
		t.Error("subscription not tracked")
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishString("inelstest/status/4254524524/02/452454", "01\n", 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case got := <-received:
		if got != "inelstest/status/4254524524/02/452454=01\n" {
			t.Errorf("received %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	if err := sub.Unsubscribe(filter); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if sub.SubscriptionCount() != 0 {
		t.Error("subscription still tracked after Unsubscribe()")
	}
}

func TestDiscoverAllRetained(t *testing.T) {
	cfg := requireBroker(t)

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := map[string]string{
		"inelsdisc/status/4254524524/02/000001": "01\n",
		"inelsdisc/status/4254524524/03/000002": "03\n00\n",
		"inelsdisc/status/4254524524/99/000003": "00\n",
	}
	for topic, payload := range topics {
		if err := client.PublishRetained(topic, []byte(payload)); err != nil {
			t.Fatalf("PublishRetained() error = %v", err)
		}
	}
	t.Cleanup(func() {
		for topic := range topics {
			_ = client.Publish(topic, nil, 1, true) //nolint:errcheck // clear retained
		}
	})

	// The long-lived session keeps its own subscription on the same filter.
	if err := client.Subscribe("inelsdisc/status/#", 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	found, err := client.DiscoverAll(context.Background(), "inelsdisc/status/#", 500*time.Millisecond,
		func(topic string) bool { return !strings.Contains(topic, "/99/") })
	if err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}

	if len(found) != 2 {
		t.Fatalf("DiscoverAll() found %d topics, want 2: %v", len(found), found)
	}
	if string(found["inelsdisc/status/4254524524/03/000002"]) != "03\n00\n" {
		t.Errorf("cover payload = %q", found["inelsdisc/status/4254524524/03/000002"])
	}
	if client.SubscriptionCount() != 1 {
		t.Error("DiscoverAll() removed the long-lived subscription")
	}
}
