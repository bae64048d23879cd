package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authorizeInternal validates the bearer token on internal trigger
// endpoints against the shared secret. The comparison is constant time.
// Returns false after writing a 401 when the token is missing or wrong.
func authorizeInternal(w http.ResponseWriter, r *http.Request, secret string) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Missing or malformed Authorization header")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid trigger secret")
		return false
	}

	return true
}
