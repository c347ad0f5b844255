// Package auth parses the Authorization header sent to xroci serve when it
// listens on HTTP.
//
// The header carries the API key either directly or after a "Bearer " scheme:
//
//	apiKey, err := auth.ParseAuthHeader(r.Header.Get("Authorization"))
//	if err != nil {
//		// Handle error
//	}
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrMissingAuthHeader is returned when the Authorization header is missing
	ErrMissingAuthHeader = errors.New("missing Authorization header")
	// ErrInvalidAuthHeader is returned when the header names a scheme but no key
	ErrInvalidAuthHeader = errors.New("invalid Authorization header format")
)

// ParseAuthHeader extracts the API key from an Authorization header.
// "Bearer <key>" and the bare key are both accepted.
func ParseAuthHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return "", ErrInvalidAuthHeader
		}
		return token, nil
	}

	return authHeader, nil
}

// ValidateAPIKey checks if the provided API key matches the expected key.
// An empty expected key disables authentication.
func ValidateAPIKey(provided, expected string) bool {
	if expected == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
