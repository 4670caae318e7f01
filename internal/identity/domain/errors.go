package identity

import "errors"

var (
	// ErrNotFound indicates the user or session does not exist.
	ErrNotFound = errors.New("identity: not found")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("identity: email already in use")
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	// ErrInactive indicates a user account that is not active.
	ErrInactive = errors.New("identity: user account is not active")
	// ErrInviteExpired indicates an invite token past its expiry.
	ErrInviteExpired = errors.New("identity: invite expired")
)
