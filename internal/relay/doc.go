// Package relay is the transport-agnostic request surface of the device
// relay.
//
// Each Service method is one user operation: list device types, bind a
// device, list owned devices, read the latest snapshot, update settings,
// rename and release. Device-scoped operations pass through the
// authorization gate first. Failures are plain Go errors; Classify maps any
// of them to a stable machine-readable code and an HTTP status, which is the
// only place that mapping lives.
package relay
