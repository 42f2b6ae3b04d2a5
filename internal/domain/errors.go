package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRemote matches every RemoteError via errors.Is.
	ErrRemote = errors.New("remote service error")

	// ErrMissingAPIKey indicates the registry API key was not configured.
	ErrMissingAPIKey = errors.New("registry API key required")

	// ErrInvalidReply indicates a remote reply that could not be decoded.
	ErrInvalidReply = errors.New("invalid remote reply")
)

// RemoteError is returned when a remote service answers with a non-success status.
type RemoteError struct {
	Service    string
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Service, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Service, e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}
