package nestorapi

import (
	"errors"
	"fmt"
)

// ErrMissingToken is returned when no auth token is available for a request.
var ErrMissingToken = errors.New("nestorapi: auth token is not set")

// TransportError is a network-level failure reaching the messaging endpoint.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nestorapi: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the messaging endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("nestorapi: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("nestorapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsAPIError reports whether err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
