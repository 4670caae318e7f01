package workorders

import "errors"

var (
	// ErrNotFound marks a missing work order.
	ErrNotFound = errors.New("workorders: not found")
	// ErrInvalidTransition marks a state machine violation.
	ErrInvalidTransition = errors.New("workorders: invalid status transition")
	// ErrCompletionGuard marks a completion attempt without sufficient
	// resolution notes or recorded time.
	ErrCompletionGuard = errors.New("workorders: completion requires resolution notes of at least 50 characters and positive time spent")
	// ErrRoleNotAllowed marks an operation the caller's role cannot
	// perform.
	ErrRoleNotAllowed = errors.New("workorders: operation not permitted for role")
	// ErrNotAssignee marks a technician touching a work order assigned
	// to someone else.
	ErrNotAssignee = errors.New("workorders: work order is assigned to another user")
)
