package services

import "errors"

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
	// Errors holds per-field messages for validation failures.
	Errors map[string]string
}

func (e *ServiceError) Error() string { return e.Message }

// ErrSkipped is returned when a side effect was intentionally not performed,
// either by policy or because it was already handled.
var ErrSkipped = errors.New("side effect skipped")
