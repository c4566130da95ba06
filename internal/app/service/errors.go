package service

import "errors"

// Engine error taxonomy. Caller-input errors (ErrInvalidURL, ErrInvalidCode,
// ErrInvalidWindow) are raised before any store I/O. ErrCodeConflict asks the
// caller for a different code. ErrStoreUnavailable marks a retryable
// infrastructure failure; ErrAllocationExhausted is terminal.
var (
	ErrInvalidURL          = errors.New("target url is not a valid absolute url")
	ErrInvalidCode         = errors.New("requested code is malformed or too short")
	ErrInvalidWindow       = errors.New("analytics window is out of range")
	ErrCodeConflict        = errors.New("short code is already in use")
	ErrAllocationExhausted = errors.New("allocation retries exhausted")
	ErrNotFound            = errors.New("short link not found")
	ErrStoreUnavailable    = errors.New("durable store unavailable")
)
