package client

import (
	"errors"
	"fmt"
)

// Sentinel kinds for client errors.
var (
	ErrInvalidBaseURL = errors.New("invalid base url")
	ErrTransport      = errors.New("backend unreachable")
	ErrStatus         = errors.New("backend returned failure status")
	ErrDecode         = errors.New("decode backend response")
	ErrEncode         = errors.New("encode request body")

	errTrailingData = errors.New("unexpected data after JSON value")
)

// APIError is returned when the backend answers with a failing status.
// Error() is the user-facing message: the backend's detail where the
// operation reads it, otherwise the operation's fixed message.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Is reports ErrStatus so callers can branch with errors.Is.
func (e *APIError) Is(target error) bool { return target == ErrStatus }

// String includes the operation and status for logs.
func (e *APIError) String() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}
