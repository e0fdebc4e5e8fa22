package client

import (
	"errors"
	"fmt"
)

// ErrNoCredential is returned when a request that requires authorization is
// attempted with no active session. It is raised before any network I/O.
var ErrNoCredential = errors.New("no credential available")

// AuthError reports an invalid or expired credential (HTTP 401/403).
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("authentication failed (HTTP %d): %s", e.Status, e.Message)
}

// RateLimitError reports an exceeded quota or request rate (HTTP 429).
type RateLimitError struct {
	Status  int
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limit exceeded"
	}
	return "rate limit exceeded: " + e.Message
}

// UnavailableError reports a temporarily unreachable remote (HTTP 503).
type UnavailableError struct {
	Status  int
	Message string
}

func (e *UnavailableError) Error() string {
	if e.Message == "" {
		return "service unavailable"
	}
	return "service unavailable: " + e.Message
}

// HTTPError is any other non-2xx response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// NetworkError wraps a connection-level failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// classifyStatus maps a non-2xx response to the error taxonomy.
func classifyStatus(status int, msg string) error {
	switch {
	case status == 401 || status == 403:
		return &AuthError{Status: status, Message: msg}
	case status == 429:
		return &RateLimitError{Status: status, Message: msg}
	case status == 503:
		return &UnavailableError{Status: status, Message: msg}
	default:
		return &HTTPError{Status: status, Message: msg}
	}
}
