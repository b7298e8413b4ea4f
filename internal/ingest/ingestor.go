package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerrad567/device-relay/internal/device"
	"github.com/nerrad567/device-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/device-relay/internal/state"
)

// defaultQueueSize bounds snapshots waiting for fan-out.
const defaultQueueSize = 256

// errNotObject is reported when a payload decodes to something other than an object.
var errNotObject = errors.New("ingest: payload is not a JSON object")

// Subscriber is the part of the MQTT client the ingestor needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Notifier receives every accepted snapshot, in arrival order per device.
type Notifier interface {
	Notify(ctx context.Context, deviceID string, snapshot state.Snapshot)
}

// Logger defines the logging interface used by the Ingestor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the ingestor's collaborators.
type Deps struct {
	Registry   *device.Registry
	Cache      *state.Cache
	Subscriber Subscriber
	Notifier   Notifier // optional
	Logger     Logger   // optional
	QoS        byte
	QueueSize  int              // optional, defaults to 256
	Now        func() time.Time // optional, defaults to time.Now
}

// Stats are cumulative message counters.
type Stats struct {
	Received       uint64 `json:"received"`
	Ingested       uint64 `json:"ingested"`
	DroppedUnknown uint64 `json:"dropped_unknown"`
	DroppedDecode  uint64 `json:"dropped_decode"`
	DroppedFanout  uint64 `json:"dropped_fanout"`
}

// Ingestor is the single telemetry handler.
type Ingestor struct {
	registry   *device.Registry
	cache      *state.Cache
	subscriber Subscriber
	notifier   Notifier
	logger     Logger
	qos        byte
	now        func() time.Time

	queue chan state.Snapshot

	received       atomic.Uint64
	ingested       atomic.Uint64
	droppedUnknown atomic.Uint64
	droppedDecode  atomic.Uint64
	droppedFanout  atomic.Uint64
}

// New creates an ingestor. Nothing is subscribed until Start.
func New(deps Deps) *Ingestor {
	i := &Ingestor{
		registry:   deps.Registry,
		cache:      deps.Cache,
		subscriber: deps.Subscriber,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		qos:        deps.QoS,
		now:        deps.Now,
	}
	if i.logger == nil {
		i.logger = noopLogger{}
	}
	if i.now == nil {
		i.now = time.Now
	}
	size := deps.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	i.queue = make(chan state.Snapshot, size)
	return i
}

// Start subscribes to the telemetry topic of every registered device.
//
// The MQTT client tracks these subscriptions and restores them after each
// reconnect, so Start is called once.
func (i *Ingestor) Start(ctx context.Context) error {
	topics := i.registry.TelemetryTopics()
	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := i.subscriber.Subscribe(topic, i.qos, i.HandleMessage); err != nil {
			return fmt.Errorf("subscribing %s: %w", topic, err)
		}
	}
	i.logger.Info("telemetry subscriptions registered", "topics", len(topics))
	return nil
}

// HandleMessage processes one telemetry message. It never returns an error
// for bad input: drops are counted and logged instead.
func (i *Ingestor) HandleMessage(topic string, payload []byte) error {
	i.received.Add(1)

	deviceID, ok := i.registry.DeviceFromTopic(topic)
	if !ok {
		i.droppedUnknown.Add(1)
		i.logger.Debug("telemetry for unknown device dropped", "topic", topic)
		return nil
	}

	data, err := decode(payload)
	if err != nil {
		i.droppedDecode.Add(1)
		i.logger.Warn("telemetry decode failed",
			"device_id", deviceID,
			"topic", topic,
			"bytes", len(payload),
			"error", err,
		)
		return nil
	}

	snapshot := state.NewSnapshot(deviceID, data, i.now())
	i.cache.Put(snapshot)
	i.ingested.Add(1)

	if i.notifier == nil {
		return nil
	}
	select {
	case i.queue <- snapshot:
	default:
		i.droppedFanout.Add(1)
		i.logger.Warn("fan-out queue full, live update skipped",
			"device_id", deviceID,
			"timestamp", snapshot.FormatTime(),
		)
	}
	return nil
}

// Run delivers queued snapshots to the notifier until ctx is cancelled.
func (i *Ingestor) Run(ctx context.Context) error {
	if i.notifier == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-i.queue:
			i.notifier.Notify(ctx, snapshot.DeviceID, snapshot)
		}
	}
}

// Stats returns a point-in-time copy of the counters.
func (i *Ingestor) Stats() Stats {
	return Stats{
		Received:       i.received.Load(),
		Ingested:       i.ingested.Load(),
		DroppedUnknown: i.droppedUnknown.Load(),
		DroppedDecode:  i.droppedDecode.Load(),
		DroppedFanout:  i.droppedFanout.Load(),
	}
}

// decode parses a payload that must be a JSON object.
func decode(payload []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errNotObject
	}
	return data, nil
}
