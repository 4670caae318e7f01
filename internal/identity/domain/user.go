package identity

import (
	"errors"
	"strings"
	"time"

	"facility-cloud/internal/auth"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// User represents a person who can access the system. Users belong to
// exactly one tenant.
type User struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	Status          string    `json:"status"`
	InviteToken     string    `json:"-"`
	InviteExpiresAt time.Time `json:"-"`
	LastLoginAt     time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate checks user invariants.
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("user: empty id")
	}
	if u.TenantID == "" {
		return errors.New("user: empty tenant id")
	}
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return errors.New("user: invalid email")
	}
	if u.Name == "" {
		return errors.New("user: empty name")
	}
	if _, ok := auth.NormalizeRole(u.Role); !ok {
		return errors.New("user: invalid role")
	}
	if !ValidStatus(u.Status) {
		return errors.New("user: invalid status")
	}
	return nil
}

// ValidStatus returns true when the status is supported.
func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusInactive, StatusPending:
		return true
	default:
		return false
	}
}
