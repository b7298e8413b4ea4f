// Package hub tracks live push connections per user and fans device updates
// out to them over WebSocket.
//
// A connection starts unbound. Until it authenticates with an access token it
// may only send "auth" and "ping", and it never receives broadcasts. Once
// bound it belongs to exactly one user; a user may hold many connections.
//
// Delivery is best-effort: a closed, failed or full connection is skipped and
// nothing is buffered for users with no live connection.
//
// Protocol (JSON text frames):
//
//	client → server  {"type":"auth","identity":"<access token>"}
//	                 {"type":"ping"}
//	server → client  {"type":"auth_success","identity":"<user id>"}
//	                 {"type":"error","message":"..."}
//	                 {"type":"device_update","device_id":"...","data":{...},"timestamp":"..."}
//	                 {"type":"pong"}
//	                 {"type":"notification","message":"..."}
package hub
