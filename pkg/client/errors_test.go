package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

func errorResponse(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		reason  string
		message string
		text    string
	}{
		{
			name:    "xmatters body",
			status:  404,
			body:    `{"code": 404, "reason": "Not Found", "message": "Could not find person"}`,
			reason:  "Not Found",
			message: "Could not find person",
			text:    "xmatters: status 404 Not Found: Could not find person",
		},
		{
			name:    "plain text body",
			status:  502,
			body:    "upstream unavailable\n",
			message: "upstream unavailable",
			text:    "xmatters: status 502: upstream unavailable",
		},
		{
			name:   "empty body",
			status: 503,
			reason: "Service Unavailable",
			text:   "xmatters: status 503 Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAPIError(errorResponse(tt.status, tt.body), ErrorClassClient)
			if e.StatusCode != tt.status || e.Reason != tt.reason || e.Message != tt.message {
				t.Errorf("newAPIError() = %+v", e)
			}
			if got := e.Error(); got != tt.text {
				t.Errorf("Error() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestAPIError_As(t *testing.T) {
	err := fmt.Errorf("modify person: %w", &APIError{StatusCode: 500, ErrorClass: ErrorClassServer})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Error("errors.As should find the APIError")
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassRateLimit, true},
		{ErrorClassNetwork, true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := shouldRetry(tt.class); got != tt.want {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestStatusHelpers(t *testing.T) {
	if IsNotFound(errors.New("plain")) {
		t.Error("plain error is not a 404")
	}
	if IsNotFound(&APIError{StatusCode: 400}) {
		t.Error("400 is not a 404")
	}
	if !IsNotFound(fmt.Errorf("get person: %w", &APIError{StatusCode: 404})) {
		t.Error("wrapped 404 not detected")
	}
	if !IsConflict(fmt.Errorf("create person: %w", &APIError{StatusCode: 409})) {
		t.Error("wrapped 409 not detected")
	}
	if IsConflict(&APIError{StatusCode: 404}) {
		t.Error("404 is not a conflict")
	}
}
