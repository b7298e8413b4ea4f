// Package ingest turns device telemetry on MQTT into cached snapshots and
// live updates.
//
// One handler serves every telemetry topic. For each message it resolves the
// device from the topic, decodes the JSON object payload, replaces the
// device's snapshot in the state cache and queues the snapshot for fan-out.
// Messages for unknown devices and undecodable payloads are dropped and
// counted; they never reach callers and never affect other devices.
//
// Fan-out runs on its own goroutine (Run) so that owner lookups and socket
// writes cannot stall MQTT delivery.
package ingest
