// Package ownership persists which user owns which device.
//
// Each user identity has one account document holding its devices with their
// type, display name, current settings and registration time. A separate
// device_owners table enforces that a device has at most one owner; the two
// are always written in the same transaction.
//
// Every failure of the underlying database surfaces as ErrUnavailable so
// callers can report it as an upstream outage, distinct from ErrConflict and
// ErrNotFound which are answers about the data.
package ownership
