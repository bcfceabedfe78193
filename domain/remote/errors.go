package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured marks a service without URL or key. Its text is the
	// per-service error recorded for skipped services.
	ErrNotConfigured = errors.New("not configured")
	// ErrCancelled marks services skipped because the scan was cancelled.
	ErrCancelled = errors.New("cancelled")
	// ErrNoConnectivity is reported when the connectivity probe fails.
	ErrNoConnectivity = errors.New("no connectivity")
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.Code, e.Body)
}
