package hub

import "github.com/nerrad567/device-relay/internal/state"

// Message types.
const (
	TypeAuth         = "auth"
	TypeAuthSuccess  = "auth_success"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
	TypeDeviceUpdate = "device_update"
	TypeNotification = "notification"
)

// Message is the envelope of every frame in both directions.
// Fields not used by a type are omitted.
type Message struct {
	Type      string         `json:"type"`
	Identity  string         `json:"identity,omitempty"`
	Message   string         `json:"message,omitempty"`
	DeviceID  string         `json:"device_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// DeviceUpdate is the device_update frame. Data is always present, so an
// empty telemetry object is sent as {}.
type DeviceUpdate struct {
	Type      string         `json:"type"`
	DeviceID  string         `json:"device_id"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

func newDeviceUpdate(deviceID string, snapshot state.Snapshot) DeviceUpdate {
	data := snapshot.Data
	if data == nil {
		data = map[string]any{}
	}
	return DeviceUpdate{
		Type:      TypeDeviceUpdate,
		DeviceID:  deviceID,
		Data:      data,
		Timestamp: snapshot.FormatTime(),
	}
}
