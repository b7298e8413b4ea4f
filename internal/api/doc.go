// Package api provides the HTTP surface and push channel endpoint of the
// device relay.
//
// Routes live under /api/v1. Every response uses one envelope:
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": {"code": "...", "message": "...", "details": {...}}}
//
// Requests authenticate with "Authorization: Bearer <access token>". The
// push channel at /api/v1/ws authenticates inside the socket with an auth
// message instead, so it sits outside the bearer middleware.
//
// Lifecycle:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
