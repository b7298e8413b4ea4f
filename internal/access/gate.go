package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/device-relay/internal/device"
)

// Domain errors for the access package.
var (
	ErrUnauthenticated  = errors.New("access: identity required")
	ErrUnknownDevice    = errors.New("access: unknown device")
	ErrForbidden        = errors.New("access: device not owned by identity")
	ErrStoreUnavailable = errors.New("access: ownership store unavailable")
)

// OwnershipChecker answers whether a user owns a device.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, userID, deviceID string) (bool, error)
}

// Grant is the outcome of a successful authorization.
type Grant struct {
	UserID   string
	DeviceID string
	Type     device.Type
}

// Gate composes identity, registry and ownership checks.
type Gate struct {
	registry *device.Registry
	owners   OwnershipChecker
}

// New creates a gate over an immutable registry and an ownership source.
func New(registry *device.Registry, owners OwnershipChecker) *Gate {
	return &Gate{registry: registry, owners: owners}
}

// Identify checks only that an identity is present, for operations scoped to
// the caller rather than to a device.
func (g *Gate) Identify(_ context.Context, identity string) (string, error) {
	if identity == "" {
		return "", ErrUnauthenticated
	}
	return identity, nil
}

// Authorize grants identity access to deviceID or returns the first failed
// check.
func (g *Gate) Authorize(ctx context.Context, identity, deviceID string) (Grant, error) {
	if identity == "" {
		return Grant{}, ErrUnauthenticated
	}
	if deviceID == "" || !g.registry.IsValid(deviceID) {
		return Grant{}, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}

	owned, err := g.owners.IsOwner(ctx, identity, deviceID)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !owned {
		return Grant{}, ErrForbidden
	}

	typ, err := g.registry.TypeOf(deviceID)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrUnknownDevice, err)
	}
	return Grant{UserID: identity, DeviceID: deviceID, Type: typ}, nil
}

type contextKey string

const ctxKeyGrant contextKey = "grant"

// WithGrant attaches a grant to ctx for downstream handlers.
func WithGrant(ctx context.Context, grant Grant) context.Context {
	return context.WithValue(ctx, ctxKeyGrant, grant)
}

// GrantFromContext returns the grant attached by WithGrant.
func GrantFromContext(ctx context.Context) (Grant, bool) {
	grant, ok := ctx.Value(ctxKeyGrant).(Grant)
	return grant, ok
}
