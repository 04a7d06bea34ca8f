package credits

import "errors"

var (
	// ErrInsufficientCredits indicates the user has no credits left today.
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrRequestNotFound     = errors.New("credit request not found")
	// ErrRequestDecided indicates the request already reached a terminal status.
	ErrRequestDecided = errors.New("credit request already decided")
	ErrInvalidGrant   = errors.New("invalid grant")
	ErrInvalidStatus  = errors.New("invalid request status")
	ErrInvalidUser    = errors.New("user id required")
)
