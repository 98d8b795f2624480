package gateway

import (
	"errors"
	"fmt"
)

// Errors returned by the gateway package.
var (
	// ErrUnreachable is returned when the backend cannot be reached at the
	// configured address.
	ErrUnreachable = errors.New("gateway: backend unreachable")

	// ErrUnauthorized is returned when the backend rejects the session token.
	ErrUnauthorized = errors.New("gateway: unauthorized")
)

// APIError is an application-level failure reported by the backend: either an
// envelope with status=false or a non-2xx HTTP status.
type APIError struct {
	// HTTPStatus is the HTTP status code of the response, 200 when the
	// failure came from the envelope of a 2xx response.
	HTTPStatus int

	// Message is the server-supplied failure message, or a per-operation
	// default when the server sent none.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: backend error (http %d): %s", e.HTTPStatus, e.Message)
}

// IsAPIError reports whether err is an application-level backend failure and
// returns it if so.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
