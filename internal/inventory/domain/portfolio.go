package inventory

import (
	"errors"
	"time"
)

// Portfolio is the top-level grouping of sites, typically one per tenant.
type Portfolio struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks portfolio invariants.
func (p Portfolio) Validate() error {
	if p.ID == "" {
		return errors.New("portfolio: empty id")
	}
	if p.TenantID == "" {
		return errors.New("portfolio: empty tenant id")
	}
	if p.Name == "" {
		return errors.New("portfolio: empty name")
	}
	return nil
}
