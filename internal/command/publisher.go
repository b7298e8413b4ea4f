package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nerrad567/device-relay/internal/access"
	"github.com/nerrad567/device-relay/internal/device"
	"github.com/nerrad567/device-relay/internal/ownership"
)

// Domain errors for the command package.
var (
	// ErrEmptyChange is returned when a change names no fields.
	ErrEmptyChange = errors.New("command: no settings given")

	// ErrPublishFailed matches every *PublishError.
	ErrPublishFailed = errors.New("command: publish failed")
)

// PublishError reports fields that were stored but not published.
type PublishError struct {
	Unpublished []string
	Err         error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPublishFailed, strings.Join(e.Unpublished, ", "), e.Err)
}

func (e *PublishError) Unwrap() []error {
	return []error{ErrPublishFailed, e.Err}
}

// Transport publishes a string payload to a topic.
type Transport interface {
	PublishString(topic, payload string) error
}

// SettingsStore persists merged settings for an owned device.
type SettingsStore interface {
	MergeSettings(ctx context.Context, userID, deviceID string, changes map[string]any) (ownership.Record, error)
}

// Logger defines the logging interface used by the Publisher.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Deps holds the publisher's collaborators.
type Deps struct {
	Registry  *device.Registry
	Store     SettingsStore
	Transport Transport
	Logger    Logger // optional
}

// Result describes an accepted change.
type Result struct {
	DeviceID  string
	Settings  map[string]any // full settings after the merge
	Published []string       // fields sent to the device, sorted
}

// Publisher applies settings changes to owned devices.
type Publisher struct {
	registry  *device.Registry
	store     SettingsStore
	transport Transport
	logger    Logger
}

// New creates a publisher.
func New(deps Deps) *Publisher {
	p := &Publisher{
		registry:  deps.Registry,
		store:     deps.Store,
		transport: deps.Transport,
		logger:    deps.Logger,
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	return p
}

// Apply validates, stores and publishes a settings change for the device in
// grant.
//
// Errors:
//   - ErrEmptyChange when changes is empty
//   - device.ErrUnknownCommand when a field has no command topic
//   - a *device.ValidationError when a value breaks its rule
//   - errors from the store (ownership.ErrNotFound, ownership.ErrUnavailable)
//   - a *PublishError, together with a populated Result, when storing
//     succeeded but one or more publishes failed
func (p *Publisher) Apply(ctx context.Context, grant access.Grant, changes map[string]any) (Result, error) {
	if len(changes) == 0 {
		return Result{}, ErrEmptyChange
	}

	fields := make([]string, 0, len(changes))
	topics := make(map[string]string, len(changes))
	for field := range changes {
		topic, err := p.registry.Topic(grant.DeviceID, field)
		if err != nil || field == device.TelemetryKind {
			return Result{}, fmt.Errorf("%w: %q", device.ErrUnknownCommand, field)
		}
		topics[field] = topic
		fields = append(fields, field)
	}
	sort.Strings(fields)

	if err := p.registry.ValidateSettings(grant.Type.ID, changes); err != nil {
		return Result{}, err
	}

	payloads := make(map[string]string, len(changes))
	for _, field := range fields {
		s, err := Stringify(changes[field])
		if err != nil {
			return Result{}, &device.ValidationError{Fields: map[string]string{field: err.Error()}}
		}
		payloads[field] = s
	}

	rec, err := p.store.MergeSettings(ctx, grant.UserID, grant.DeviceID, changes)
	if err != nil {
		return Result{}, err
	}

	result := Result{DeviceID: grant.DeviceID, Settings: rec.Settings}
	var (
		unpublished []string
		firstErr    error
	)
	for _, field := range fields {
		if err := p.transport.PublishString(topics[field], payloads[field]); err != nil {
			unpublished = append(unpublished, field)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Published = append(result.Published, field)
	}

	if len(unpublished) > 0 {
		p.logger.Warn("settings stored but not published",
			"device_id", grant.DeviceID,
			"unpublished", unpublished,
			"error", firstErr,
		)
		return result, &PublishError{Unpublished: unpublished, Err: firstErr}
	}

	p.logger.Info("settings published", "device_id", grant.DeviceID, "fields", fields)
	return result, nil
}

// Stringify renders a scalar settings value as a command payload.
// Floats use the shortest representation, so 25.0 becomes "25".
func Stringify(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
