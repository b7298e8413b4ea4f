package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/device-relay/internal/access"
	"github.com/nerrad567/device-relay/internal/command"
	"github.com/nerrad567/device-relay/internal/device"
	"github.com/nerrad567/device-relay/internal/ownership"
	"github.com/nerrad567/device-relay/internal/state"
)

// Store is the slice of the ownership store the service writes through.
type Store interface {
	Bind(ctx context.Context, userID string, rec ownership.Record) (ownership.Record, error)
	Devices(ctx context.Context, userID string) ([]ownership.Record, error)
	Device(ctx context.Context, userID, deviceID string) (ownership.Record, error)
	Rename(ctx context.Context, userID, deviceID, name string) (ownership.Record, error)
	Release(ctx context.Context, userID, deviceID string) error
}

// Commander applies a validated settings change.
type Commander interface {
	Apply(ctx context.Context, grant access.Grant, changes map[string]any) (command.Result, error)
}

// UserNotifier pushes a notification to a user's live connections.
type UserNotifier interface {
	NotifyUser(userID, message string) int
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Deps holds the service's collaborators.
type Deps struct {
	Registry *device.Registry
	Gate     *access.Gate
	Cache    *state.Cache
	Store    Store
	Commands Commander
	Notifier UserNotifier // optional
	Logger   Logger       // optional
}

// Service implements the relay's user operations.
type Service struct {
	registry *device.Registry
	gate     *access.Gate
	cache    *state.Cache
	store    Store
	commands Commander
	notifier UserNotifier
	logger   Logger
}

// New creates a service.
func New(deps Deps) *Service {
	s := &Service{
		registry: deps.Registry,
		gate:     deps.Gate,
		cache:    deps.Cache,
		store:    deps.Store,
		commands: deps.Commands,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s
}

// ListTypes returns the device catalog's types, sorted by id.
func (s *Service) ListTypes() []device.Type {
	return s.registry.Types()
}

// Bind registers a catalog device to identity with its type's default
// settings. An empty name defaults to the device id.
//
// Binding a device the caller already owns returns the existing record.
func (s *Service) Bind(ctx context.Context, identity, deviceID, name string) (ownership.Record, error) {
	userID, err := s.gate.Identify(ctx, identity)
	if err != nil {
		return ownership.Record{}, err
	}
	if deviceID == "" {
		return ownership.Record{}, fmt.Errorf("%w: device_id is required", ErrBadRequest)
	}
	typ, err := s.registry.TypeOf(deviceID)
	if err != nil {
		return ownership.Record{}, err
	}
	if name == "" {
		name = deviceID
	}
	name, err = cleanName(name)
	if err != nil {
		return ownership.Record{}, err
	}
	defaults, err := s.registry.Defaults(typ.ID)
	if err != nil {
		return ownership.Record{}, err
	}

	rec, err := s.store.Bind(ctx, userID, ownership.Record{
		DeviceID: deviceID,
		Type:     typ.ID,
		Name:     name,
		Settings: defaults,
	})
	if err != nil {
		return ownership.Record{}, err
	}
	s.logger.Info("device bound", "device_id", deviceID, "user_id", userID)
	return rec, nil
}

// ListDevices returns the caller's devices, sorted by id.
func (s *Service) ListDevices(ctx context.Context, identity string) ([]ownership.Record, error) {
	userID, err := s.gate.Identify(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.store.Devices(ctx, userID)
}

// Device returns the caller's stored record of an owned device.
func (s *Service) Device(ctx context.Context, identity, deviceID string) (ownership.Record, error) {
	grant, err := s.gate.Authorize(ctx, identity, deviceID)
	if err != nil {
		return ownership.Record{}, err
	}
	return s.store.Device(ctx, grant.UserID, deviceID)
}

// CachedDevices reports how many devices have a telemetry snapshot.
func (s *Service) CachedDevices() int {
	return s.cache.Len()
}

// Latest returns the device's latest snapshot as a flat document:
// telemetry fields plus device_id and timestamp. A device that has not
// reported yet yields device_id with a null data field.
func (s *Service) Latest(ctx context.Context, identity, deviceID string) (map[string]any, error) {
	if _, err := s.gate.Authorize(ctx, identity, deviceID); err != nil {
		return nil, err
	}

	snap, ok := s.cache.Get(deviceID)
	if !ok {
		return map[string]any{
			state.FieldDeviceID: deviceID,
			"data":              nil,
		}, nil
	}
	return snap.Flatten(), nil
}

// UpdateSettings validates, stores and publishes a settings change, then
// notifies the caller's live connections.
func (s *Service) UpdateSettings(ctx context.Context, identity, deviceID string, changes map[string]any) (command.Result, error) {
	grant, err := s.gate.Authorize(ctx, identity, deviceID)
	if err != nil {
		return command.Result{}, err
	}

	result, err := s.commands.Apply(access.WithGrant(ctx, grant), grant, changes)
	if err != nil {
		return result, err
	}

	if s.notifier != nil {
		s.notifier.NotifyUser(grant.UserID, fmt.Sprintf("settings updated for %s", deviceID))
	}
	return result, nil
}

// Rename changes the display name of an owned device.
func (s *Service) Rename(ctx context.Context, identity, deviceID, name string) (ownership.Record, error) {
	grant, err := s.gate.Authorize(ctx, identity, deviceID)
	if err != nil {
		return ownership.Record{}, err
	}
	name, err = cleanName(name)
	if err != nil {
		return ownership.Record{}, err
	}
	return s.store.Rename(ctx, grant.UserID, deviceID, name)
}

// cleanName validates a display name and returns it trimmed.
func cleanName(name string) (string, error) {
	if err := device.ValidateName(name); err != nil {
		return "", err
	}
	return strings.TrimSpace(name), nil
}

// Release unbinds an owned device so another user may bind it.
func (s *Service) Release(ctx context.Context, identity, deviceID string) error {
	grant, err := s.gate.Authorize(ctx, identity, deviceID)
	if err != nil {
		return err
	}
	if err := s.store.Release(ctx, grant.UserID, deviceID); err != nil {
		return err
	}
	s.logger.Info("device released", "device_id", deviceID, "user_id", grant.UserID)
	return nil
}
