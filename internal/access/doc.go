// Package access is the authorization gate in front of every device-scoped
// operation.
//
// Authorize evaluates, in order and short-circuiting:
//
//  1. an identity is present (ErrUnauthenticated)
//  2. the device id is registered (ErrUnknownDevice)
//  3. the identity currently owns the device (ErrForbidden)
//
// Ownership is read from the store on every call. A store failure is
// reported as ErrStoreUnavailable, never as Forbidden.
package access
