// SPDX-License-Identifier: MIT

// Package auth implements token authentication for the HTTP API.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SessionCookie is the name of the HTTP-only session cookie.
const SessionCookie = "desdeo_session"

// ExtractToken retrieves the API token from the request:
//  1. Authorization: Bearer <token>
//  2. Cookie: desdeo_session
//  3. Header: X-API-Token
func ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if t := r.Header.Get("X-API-Token"); t != "" {
		return t
	}
	return ""
}

// AuthorizeToken reports whether got matches expected using a constant-time
// comparison. Empty tokens never authorize.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// AuthorizeRequest extracts a token from r and validates it against
// expectedToken.
func AuthorizeRequest(r *http.Request, expectedToken string) bool {
	if r == nil {
		return false
	}
	return AuthorizeToken(ExtractToken(r), expectedToken)
}
