package submit

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity wraps every failure to obtain a result from the endpoint.
	// Callers show a generic message for it and log the wrapped cause.
	ErrConnectivity = errors.New("error connecting to the server")
	// ErrTransport means the request never produced an HTTP response.
	ErrTransport = errors.New("transport failure")
	// ErrCrossOrigin means the response did not allow the configured origin to read it.
	ErrCrossOrigin = errors.New("response not readable from origin")
	// ErrMalformedResponse means the body was not a valid result object.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNoEndpoint is returned by New when no endpoint is configured.
	ErrNoEndpoint = errors.New("endpoint is not configured")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	// Method of the request that got the status.
	Method string
	// Code is the HTTP status code.
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Method, e.Code)
}
