package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/playsync/internal/shared"
)

// UpstreamError is a failed call to a catalog service.
//
// Status is the HTTP status code, or 0 when no response was received (transport failure or timeout).
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Service, e.Body)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.Status, e.Body)
}

// Unwrap exposes the cause, defaulting to [shared.ErrAPIRequest].
func (e *UpstreamError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return shared.ErrAPIRequest
}

// Transient reports whether retrying the same request may succeed.
func (e *UpstreamError) Transient() bool {
	switch {
	case e.Status == 0:
		return !errors.Is(e.Err, context.Canceled)
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	default:
		return false
	}
}

// NewUpstreamError creates an [UpstreamError] for a non-success response.
func NewUpstreamError(service string, status int, body string) error {
	return &UpstreamError{Service: service, Status: status, Body: body}
}

// transportError wraps a failure that produced no response. Deadline overruns are tagged with [shared.ErrTimeout].
func transportError(service string, err error) error {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return err
	}

	cause := err
	if errors.Is(err, context.DeadlineExceeded) {
		cause = fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}
	return &UpstreamError{Service: service, Body: err.Error(), Err: cause}
}
