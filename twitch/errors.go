package twitch

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations. Callers classify failures with
// errors.Is; none of these are retried inside this package.
var (
	// ErrNotFound indicates the broadcaster search returned no match.
	ErrNotFound = errors.New("broadcaster not found")

	// ErrReauthRequired indicates the bearer credential was rejected
	// (401). The caller owns the refresh-and-retry policy.
	ErrReauthRequired = errors.New("credential expired or invalid")

	// ErrInvalidRequest indicates the catalog rejected the request
	// parameters (400). Never retried.
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnavailable indicates a transport failure or an unexpected
	// catalog response. Surfaced, never retried automatically.
	ErrUnavailable = errors.New("catalog unavailable")
)

// APIError wraps a non-2xx catalog response with its classification.
type APIError struct {
	// StatusCode is the HTTP status returned by the catalog.
	StatusCode int
	// Message is the catalog's error message, if it sent one.
	Message string
	// Err is the sentinel this status maps to.
	Err error
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("catalog error: status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status to the error taxonomy.
func classifyStatus(status int) error {
	switch status {
	case 401:
		return ErrReauthRequired
	case 400:
		return ErrInvalidRequest
	default:
		return ErrUnavailable
	}
}
