package mqtt

import "errors"

// Sentinel errors; match with errors.Is.
var (
	// ErrNotConnected fails publishes immediately while the broker is unreachable.
	// Subscriptions are still recorded and sent on the next connect.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed or timed-out connection attempt.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrConnectionLost is what Run returns when an established connection
	// drops, prompting the supervisor to reconnect.
	ErrConnectionLost = errors.New("mqtt: connection lost")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects levels other than 0, 1 and 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics, and wildcards where they are not allowed.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
