// Package logging provides the relay's structured logger, a thin wrapper over
// log/slog with service and version attached to every entry and timestamps
// rendered in UTC.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Never log JWTs or MQTT credentials.
package logging
