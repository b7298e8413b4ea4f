package ownership

import (
	"errors"
	"time"
)

// Domain errors for the ownership package.
var (
	// ErrConflict is returned when binding a device another user already owns.
	ErrConflict = errors.New("ownership: device owned by another user")

	// ErrNotFound is returned when the user does not own the device.
	ErrNotFound = errors.New("ownership: device not bound to user")

	// ErrUnavailable wraps every storage failure.
	ErrUnavailable = errors.New("ownership: store unavailable")
)

// Record is one owned device inside an account document.
type Record struct {
	DeviceID     string         `json:"device_id"`
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Settings     map[string]any `json:"settings"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// document is the persisted JSON shape of an account.
type document struct {
	Devices map[string]Record `json:"devices"`
}
