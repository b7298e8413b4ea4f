package state

import (
	"time"

	"github.com/nerrad567/device-relay/internal/device"
)

// Reserved keys added to a flattened snapshot. They win over payload fields
// of the same name.
const (
	FieldDeviceID  = "device_id"
	FieldTimestamp = "timestamp"
)

// TimeFormat is the single timestamp representation used for snapshots on
// the wire and in logs.
const TimeFormat = time.RFC3339Nano

// Snapshot is the most recently ingested telemetry document of one device.
type Snapshot struct {
	DeviceID  string         `json:"device_id"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewSnapshot stamps a decoded payload with the ingestion time (UTC).
func NewSnapshot(deviceID string, data map[string]any, at time.Time) Snapshot {
	return Snapshot{DeviceID: deviceID, Data: data, Timestamp: at.UTC()}
}

// IsZero reports whether s is the empty result of reading an unknown device.
func (s Snapshot) IsZero() bool {
	return s.DeviceID == "" && s.Data == nil && s.Timestamp.IsZero()
}

// FormatTime renders the ingestion timestamp in TimeFormat.
func (s Snapshot) FormatTime() string {
	return s.Timestamp.UTC().Format(TimeFormat)
}

// Flatten returns the payload fields plus device_id and timestamp.
// The zero snapshot flattens to nil.
func (s Snapshot) Flatten() map[string]any {
	if s.IsZero() {
		return nil
	}
	out := make(map[string]any, len(s.Data)+2)
	for k, v := range s.Data {
		out[k] = v
	}
	out[FieldDeviceID] = s.DeviceID
	out[FieldTimestamp] = s.FormatTime()
	return out
}

func (s Snapshot) clone() Snapshot {
	s.Data = device.DeepCopyMap(s.Data)
	return s
}
