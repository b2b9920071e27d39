package server

import (
	"net/http"
	"strings"
)

// tokenFromRequest reads the player token from the Authorization header, or
// from the token query parameter for EventSource and WebSocket clients that
// cannot set headers.
func tokenFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(auth, "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}
