package rowstore

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when the integration endpoint answers with a
// non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Message    string // "message" field of the error body, if any
	Detail     string // "detail" field of the error body, if any
	Body       string // raw body, truncated
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	case e.Detail != "":
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	default:
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// TransportError wraps a failure to reach the endpoint at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is returned when a 2xx response body does not have the
// expected shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return e.Op + ": malformed response: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Message extracts the text shown to the user for a failed call:
// response message, then response detail, then the error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
	}
	return err.Error()
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
