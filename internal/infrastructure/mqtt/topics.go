package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixStatus is the base for the relay's own presence topics.
const TopicPrefixStatus = "devicerelay"

// StatusTopic returns the retained presence topic for a relay instance.
// Both the LWT and the graceful online/offline payloads are published here.
//
// Example: devicerelay/devicerelay-1/status
func StatusTopic(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixStatus, clientID)
}

// ValidatePublishTopic rejects empty topics and topics carrying wildcards,
// which brokers refuse on PUBLISH.
func ValidatePublishTopic(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}

// ValidateTopicFilter checks wildcard placement in a subscription filter:
// '+' must occupy a whole level, '#' must be the whole last level.
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("%w: '#' must be the last level in %q", ErrInvalidTopic, filter)
			}
		case level == "+":
		case strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: wildcard must occupy a whole level in %q", ErrInvalidTopic, filter)
		}
	}
	return nil
}
