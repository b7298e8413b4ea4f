// Package auth issues and verifies the relay's identity tokens.
//
// An identity is the subject of an HS256-signed JWT access token. Tokens are
// validated by signature and expiry only; there is no session store. The
// same token authenticates HTTP requests (Authorization: Bearer) and the
// auth message of a push connection.
package auth
