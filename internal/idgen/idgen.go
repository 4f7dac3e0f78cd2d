// Package idgen generates short, URL-safe request identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// RequestPrefix is prepended to request ids.
const RequestPrefix = "req-"

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// RequestID returns a new request id. It never fails: if the random source
// errors, the bare prefix followed by "unknown" is returned.
func RequestID() string {
	id, err := GenerateWithPrefix(RequestPrefix)
	if err != nil {
		return RequestPrefix + "unknown"
	}
	return id
}

// ValidRequestID reports whether an incoming X-Request-ID value is safe to
// propagate into logs and response headers.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
