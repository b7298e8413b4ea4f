package device

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrUnknownDevice) {
//	    // handle not found case
//	}
var (
	// ErrUnknownDevice is returned when a device ID is not in the registry.
	ErrUnknownDevice = errors.New("device: unknown device")

	// ErrUnknownType is returned when a type ID is not in the registry.
	ErrUnknownType = errors.New("device: unknown type")

	// ErrUnknownCommand is returned when a type has no topic or rule for a command.
	ErrUnknownCommand = errors.New("device: unknown command")

	// ErrInvalidSetting is returned when a settings value violates its rule.
	ErrInvalidSetting = errors.New("device: invalid setting")

	// ErrInvalidCatalog is returned when the catalog fails construction checks.
	ErrInvalidCatalog = errors.New("device: invalid catalog")
)

// ValidationError reports every rejected field of a settings change.
// It matches ErrInvalidSetting with errors.Is.
type ValidationError struct {
	// Fields maps field name to a human-readable reason.
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSetting, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSetting
}
