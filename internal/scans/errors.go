package scans

import "errors"

var (
	// ErrQuotaExceeded indicates the user has no credits left today.
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrInvalidInput  = errors.New("invalid submission")
	// ErrStorageFailure is retryable; the consumed credit has been refunded.
	ErrStorageFailure = errors.New("storage failure")
)
