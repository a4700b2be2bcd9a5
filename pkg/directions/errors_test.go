package directions

import (
	"errors"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   ErrorClass
	}{
		{name: "ok is not an error", status: StatusOK, want: ""},
		{name: "zero results is not an error", status: StatusZeroResults, want: ""},
		{name: "over query limit", status: StatusOverQueryLimit, want: ErrorClassRateLimit},
		{name: "unknown error", status: StatusUnknownError, want: ErrorClassServer},
		{name: "invalid request", status: "INVALID_REQUEST", want: ErrorClassClient},
		{name: "request denied", status: "REQUEST_DENIED", want: ErrorClassClient},
		{name: "not found", status: "NOT_FOUND", want: ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name  string
		class ErrorClass
		want  bool
	}{
		{name: "client errors are final", class: ErrorClassClient, want: false},
		{name: "server errors retry", class: ErrorClassServer, want: true},
		{name: "rate limit retries", class: ErrorClassRateLimit, want: true},
		{name: "network errors retry", class: ErrorClassNetwork, want: true},
		{name: "unknown class does not retry", class: "mystery", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.class); got != tt.want {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ErrorClass
	}{
		{name: "429 is rate limit", status: 429, want: ErrorClassRateLimit},
		{name: "400 is client", status: 400, want: ErrorClassClient},
		{name: "404 is client", status: 404, want: ErrorClassClient},
		{name: "500 is server", status: 500, want: ErrorClassServer},
		{name: "503 is server", status: 503, want: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyHTTPStatus(tt.status); got != tt.want {
				t.Errorf("classifyHTTPStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &APIError{ErrorClass: ErrorClassServer, Message: "failed", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is() = false, want APIError to unwrap its cause")
	}
	if err.Error() == "" {
		t.Error("Error() is empty")
	}

	var apiErr *APIError
	wrapped := errors.Join(errors.New("outer"), err)
	if !errors.As(wrapped, &apiErr) {
		t.Error("errors.As() = false, want *APIError extractable")
	}
}
