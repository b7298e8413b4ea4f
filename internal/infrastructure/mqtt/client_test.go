package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/device-relay/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a port with no broker.
// Nothing in this file needs a running broker; see integration_test.go.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1,
			ClientID: "devicerelay-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			Interval: 1,
		},
	}
}

// fakeMessage implements pahomqtt.Message for handler tests.
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

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
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

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect_BrokerRefused(t *testing.T) {
	client := New(testConfig())
	defer client.Close()

	err := client.Connect(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after failed connect")
	}
}

func TestRun_ReturnsConnectError(t *testing.T) {
	client := New(testConfig())
	defer client.Close()

	err := client.Run(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Run() error = %v, want ErrConnectionFailed", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	client := New(testConfig())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.Run(ctx); err == nil {
		t.Error("Run() with cancelled context and no broker should fail to connect")
	}
}

func TestHandleDisconnect_SignalsLoss(t *testing.T) {
	client := New(testConfig())

	var got error
	client.SetOnDisconnect(func(err error) { got = err })

	cause := errors.New("network reset")
	client.handleDisconnect(cause)
	// A second loss before Run drains must not block.
	client.handleDisconnect(cause)

	select {
	case err := <-client.lost:
		if !errors.Is(err, cause) {
			t.Errorf("lost = %v, want %v", err, cause)
		}
	default:
		t.Fatal("handleDisconnect did not signal the loss")
	}
	if !errors.Is(got, cause) {
		t.Errorf("OnDisconnect callback got %v, want %v", got, cause)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
}

func TestCloseNeverConnected(t *testing.T) {
	client := New(testConfig())
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	var zero Client
	if err := zero.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := New(testConfig())

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Publish Tests
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	client := New(testConfig())

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("1"), 1, ErrInvalidTopic},
		{"wildcard topic", "devices/+/threshold", []byte("1"), 1, ErrInvalidTopic},
		{"invalid qos", "devices/climate01/threshold", []byte("1"), 3, ErrInvalidQoS},
		{"oversized payload", "devices/climate01/threshold", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "devices/climate01/threshold", []byte("1"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishString_Disconnected(t *testing.T) {
	client := New(testConfig())
	if err := client.PublishString("devices/climate01/threshold", "22"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishString() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Subscription Tests
// =============================================================================

func TestSubscribe_TrackedWhileDisconnected(t *testing.T) {
	client := New(testConfig())
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("devices/climate01/data", 1, handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := client.Subscribe("devices/climate02/data", 1, handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	// Re-subscribing the same topic replaces the entry.
	if err := client.Subscribe("devices/climate01/data", 0, handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if got := client.SubscriptionCount(); got != 2 {
		t.Errorf("SubscriptionCount() = %d, want 2", got)
	}
	if !client.HasSubscription("devices/climate01/data") {
		t.Error("HasSubscription(climate01) = false, want true")
	}

	if err := client.Unsubscribe("devices/climate01/data"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription("devices/climate01/data") {
		t.Error("HasSubscription(climate01) = true after Unsubscribe")
	}
	if got := client.SubscriptionCount(); got != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", got)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := New(testConfig())
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, handler, ErrInvalidTopic},
		{"bad wildcard", "devices/cli+mate/data", 1, handler, ErrInvalidTopic},
		{"hash not last", "devices/#/data", 1, handler, ErrInvalidTopic},
		{"invalid qos", "devices/+/data", 3, handler, ErrInvalidQoS},
		{"nil handler", "devices/+/data", 1, nil, ErrSubscribeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := client.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d after rejected subscribes, want 0", got)
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	client := New(testConfig())
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

func TestWrapHandler_RecoversPanic(t *testing.T) {
	client := New(testConfig())
	logger := &mockLogger{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("boom")
	})

	// Must not propagate the panic.
	wrapped(nil, fakeMessage{topic: "devices/climate01/data", payload: []byte("{}")})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Fatalf("logged %d errors, want 1", len(logger.errors))
	}
	if !strings.Contains(logger.errors[0], "panic") {
		t.Errorf("error log = %q, want panic message", logger.errors[0])
	}
}

func TestWrapHandler_LogsReturnedError(t *testing.T) {
	client := New(testConfig())
	logger := &mockLogger{}
	client.SetLogger(logger)

	var gotTopic string
	var gotPayload []byte
	wrapped := client.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, payload
		return errors.New("handler failed")
	})

	wrapped(nil, fakeMessage{topic: "devices/climate01/data", payload: []byte(`{"t":1}`)})

	if gotTopic != "devices/climate01/data" || string(gotPayload) != `{"t":1}` {
		t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Errorf("logged %d warnings, want 1", len(logger.warns))
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	client := New(testConfig())
	wrapped := client.wrapHandler(func(string, []byte) error { panic("boom") })
	wrapped(nil, fakeMessage{topic: "devices/x/data"})
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "relay", Password: "secret"}

	opts := buildClientOptions(cfg)

	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, want false (reconnect is supervised)")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
	if opts.ClientID != "devicerelay-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "relay" || opts.Password != "secret" {
		t.Errorf("credentials = (%q, %q)", opts.Username, opts.Password)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1" {
		t.Errorf("Servers = %v", opts.Servers)
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		broker config.MQTTBrokerConfig
		want   string
	}{
		{config.MQTTBrokerConfig{Host: "localhost", Port: 1883}, "tcp://localhost:1883"},
		{config.MQTTBrokerConfig{Host: "broker.example.com", Port: 8883, TLS: true}, "ssl://broker.example.com:8883"},
	}
	for _, tt := range tests {
		if got := brokerURL(tt.broker); got != tt.want {
			t.Errorf("brokerURL(%+v) = %q, want %q", tt.broker, got, tt.want)
		}
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	configureLWT(opts, "relay-1")

	if opts.WillTopic != "devicerelay/relay-1/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}
	if !strings.Contains(string(opts.WillPayload), "unexpected_disconnect") {
		t.Errorf("WillPayload = %q", opts.WillPayload)
	}
}

func TestStatusPayloads(t *testing.T) {
	if p := buildOnlinePayload("relay-1"); !strings.Contains(p, `"status":"online"`) {
		t.Errorf("online payload = %q", p)
	}
	if p := buildOfflinePayload("relay-1"); !strings.Contains(p, "graceful_shutdown") {
		t.Errorf("offline payload = %q", p)
	}
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestValidateTopicFilter(t *testing.T) {
	tests := []struct {
		filter string
		valid  bool
	}{
		{"devices/climate01/data", true},
		{"devices/+/data", true},
		{"devices/#", true},
		{"#", true},
		{"", false},
		{"devices/#/data", false},
		{"devices/cli+/data", false},
		{"devices/data#", false},
	}
	for _, tt := range tests {
		err := ValidateTopicFilter(tt.filter)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateTopicFilter(%q) error = %v, want valid=%v", tt.filter, err, tt.valid)
		}
	}
}

func TestStatusTopic(t *testing.T) {
	if got := StatusTopic("devicerelay"); got != "devicerelay/devicerelay/status" {
		t.Errorf("StatusTopic() = %q", got)
	}
}
