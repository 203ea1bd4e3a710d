package transform

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidArgument is returned for a negative retry count or wait.
var ErrInvalidArgument = errors.New("invalid argument")

// RemoteServiceError is returned when every attempt against the coordinate
// service failed. Err is the cause of the last attempt.
type RemoteServiceError struct {
	Endpoint string
	Payload  url.Values
	Attempts int
	Err      error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("coordinate service %s failed after %d attempt(s) for %s: %v",
		e.Endpoint, e.Attempts, e.Payload.Encode(), e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// statusError is an attempt failure caused by a non-2xx response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
