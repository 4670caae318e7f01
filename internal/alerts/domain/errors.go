package alerts

import "errors"

var (
	// ErrNotFound marks a missing alert or rule.
	ErrNotFound = errors.New("alerts: not found")
	// ErrInvalidTransition marks a lifecycle violation.
	ErrInvalidTransition = errors.New("alerts: invalid status transition")
)
