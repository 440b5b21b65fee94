package scheduling

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is how every Provider reports a failed call.
type ProviderError struct {
	HTTPStatus int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("scheduling provider %d: %s", e.HTTPStatus, e.Message)
}

// NewNotFound builds a 404 ProviderError.
func NewNotFound(format string, args ...interface{}) error {
	return &ProviderError{HTTPStatus: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflict builds a 409 ProviderError.
func NewConflict(format string, args ...interface{}) error {
	return &ProviderError{HTTPStatus: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func statusOf(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.HTTPStatus
	}
	return 0
}

// IsNotFound reports a referenced identifier that does not exist upstream.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsConflict reports a rejected write, e.g. a slot that was taken meanwhile.
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// IsTransient reports rate limiting or a 5xx the provider could not recover from.
func IsTransient(err error) bool {
	s := statusOf(err)
	return s == http.StatusTooManyRequests || s >= 500
}
