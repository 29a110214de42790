package airtable

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRecordNotFound marks a fetch whose record id does not exist in the
// table. Callers check it with errors.Is; it is deliberately distinct from
// transport and authorization failures.
var ErrRecordNotFound = errors.New("airtable: record not found")

// APIError represents a non-2xx response from the Airtable API.
type APIError struct {
	StatusCode int
	Type       string // error type from the response body, e.g. NOT_FOUND
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: API error %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable: API error %d (%s)", e.StatusCode, e.Type)
}

// Is makes errors.Is(err, ErrRecordNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrRecordNotFound && e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err is a missing-record response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// retryable reports whether a status code is worth retrying. 429 is the
// documented rate-limit response; 5xx covers transient server trouble.
func retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}
