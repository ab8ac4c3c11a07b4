package gateway_service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input refused before any request was made.
	ErrValidation = errors.New("validation failed")
	// ErrMalformedResponse is returned when a 2xx body does not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}
