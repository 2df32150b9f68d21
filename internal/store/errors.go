package store

import (
	"errors"
	"strings"
)

// Common store errors. Backends wrap their native failures with these so the
// browser can classify them with errors.Is.
var (
	// ErrInvalidDirectory indicates a path could not be enumerated as a directory.
	ErrInvalidDirectory = errors.New("invalid directory")
	// ErrAlreadyExists indicates a create or upload collided with an existing entry.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized indicates the backend refused the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the source of an operation does not exist.
	ErrNotFound = errors.New("not found")
)

// IsCredentialError checks if an error is authentication/authorization related.
// Used by cloud backends whose SDK errors carry only a status string.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	credentialIndicators := []string{
		"403",                  // HTTP Forbidden
		"401",                  // HTTP Unauthorized
		"unauthorized",         // generic
		"accessdenied",         // S3
		"authorizationfailure", // Azure
		"expiredtoken",         // AWS specific
		"invalid token",        // invalid authentication
	}

	for _, indicator := range credentialIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}
