package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrRetryExhausted wraps the last error once the retry policy gives up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when ctx ends while waiting to retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx xMatters response. Error bodies have the shape
// {"code": 404, "reason": "Not Found", "message": "Could not find person"};
// bodies that are not JSON end up in Message verbatim.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Reason     string
	Message    string
}

// newAPIError reads the error body of resp. The body is consumed but not closed.
func newAPIError(resp *http.Response, class ErrorClass) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, ErrorClass: class}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		e.Reason = http.StatusText(resp.StatusCode)
		return e
	}

	var body struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && (body.Reason != "" || body.Message != "") {
		e.Reason, e.Message = body.Reason, body.Message
		return e
	}
	e.Message = strings.TrimSpace(string(data))
	return e
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "xmatters: status %d", e.StatusCode)
	if e.Reason != "" {
		b.WriteString(" " + e.Reason)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// IsNotFound reports whether err is an xMatters 404.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsConflict reports whether err is an xMatters 409, which is what a create
// with an existing targetName returns.
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
