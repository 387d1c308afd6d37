package globalmart

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped from API error codes. Use errors.Is() to check.
var (
	ErrInvalidRequest  = errors.New("globalmart: invalid request")
	ErrProductNotFound = errors.New("globalmart: product not found")
	ErrSessionNotFound = errors.New("globalmart: session not found")
	ErrProfileNotFound = errors.New("globalmart: profile not found")
	ErrServer          = errors.New("globalmart: server error")
)

// APIError is a non-2xx response decoded from the API error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("globalmart: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the API error code onto a sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation_failed", "bad_request":
		return ErrInvalidRequest
	case "product_not_found":
		return ErrProductNotFound
	case "session_not_found":
		return ErrSessionNotFound
	case "profile_not_found":
		return ErrProfileNotFound
	case "internal_error":
		return ErrServer
	}
	return nil
}
