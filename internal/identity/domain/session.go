package identity

import (
	"errors"
	"time"
)

// Session stores a refresh token issued at login.
type Session struct {
	ID           string
	UserID       string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Validate checks session invariants.
func (s Session) Validate() error {
	if s.ID == "" {
		return errors.New("session: empty id")
	}
	if s.UserID == "" {
		return errors.New("session: empty user id")
	}
	if s.RefreshToken == "" {
		return errors.New("session: empty refresh token")
	}
	if s.ExpiresAt.IsZero() {
		return errors.New("session: empty expiry")
	}
	return nil
}

// Expired returns true when the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
