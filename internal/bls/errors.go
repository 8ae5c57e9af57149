package bls

import (
	"fmt"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

// TransportError is a network failure or a non-2xx response. It matches
// oews.ErrTransport.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	// Body holds the start of an error response body.
	Body string
	Err  error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: http %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, oews.ErrTransport) match.
func (e *TransportError) Is(target error) bool {
	return target == oews.ErrTransport
}

// StatusError reports a response whose status is not REQUEST_SUCCEEDED.
type StatusError struct {
	Status   string
	Messages []string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %s: %v", e.Status, e.Messages)
}

// Is lets errors.Is(err, oews.ErrValidation) match.
func (e *StatusError) Is(target error) bool {
	return target == oews.ErrValidation
}
