package threads

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentifier is returned when an operation is called without its identifier.
	ErrMissingIdentifier = errors.New("threads: missing identifier")
	// ErrUserNotFound is returned when a user name cannot be resolved to a user id.
	ErrUserNotFound = errors.New("threads: user not found")
	// ErrTokenNotFound is returned when no LSD token is configured or scrapeable.
	ErrTokenNotFound = errors.New("threads: lsd token not found")
	// ErrMalformedResponse is returned when the upstream body is not a usable GraphQL envelope.
	ErrMalformedResponse = errors.New("threads: malformed upstream response")
)

// UpstreamError reports a failed exchange with threads.net.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("threads %s: status %d: %v", e.Operation, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("threads %s: %v", e.Operation, e.Err)
	default:
		return fmt.Sprintf("threads %s: unexpected status %d", e.Operation, e.StatusCode)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
