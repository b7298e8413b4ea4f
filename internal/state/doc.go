// Package state holds the latest telemetry snapshot of every device.
//
// The cache is process memory only: snapshots are replaced, never merged, and
// never expire. A reader always sees either the previous or the new snapshot
// of a device, never a mix of the two.
package state
