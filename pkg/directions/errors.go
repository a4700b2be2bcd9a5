package directions

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses and rejected requests
	// (INVALID_REQUEST, REQUEST_DENIED, NOT_FOUND and similar statuses).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses and UNKNOWN_ERROR statuses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and OVER_QUERY_LIMIT
	// statuses (per-key quota rejection).
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed directions or places request with classification
// context. StatusCode is zero when the failure was an API-level status on a
// 200 response.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Status     string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directions %s error (status %q): %s: %v",
			e.ErrorClass, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("directions %s error (status %q): %s",
		e.ErrorClass, e.Status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// Rejected requests stay rejected; retrying wastes quota.
		return false
	case ErrorClassServer:
		return true
	case ErrorClassRateLimit:
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// classifyStatus maps an API-level status field to an error class, or ""
// for statuses that are not errors.
func classifyStatus(status string) ErrorClass {
	switch status {
	case StatusOK, StatusZeroResults:
		return ""
	case StatusOverQueryLimit:
		return ErrorClassRateLimit
	case StatusUnknownError:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
