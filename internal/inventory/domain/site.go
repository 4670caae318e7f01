package inventory

import (
	"errors"
	"time"
)

// Site is a physical location owned by a tenant.
type Site struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PortfolioID string    `json:"portfolio_id,omitempty"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks site invariants.
func (s Site) Validate() error {
	if s.ID == "" {
		return errors.New("site: empty id")
	}
	if s.TenantID == "" {
		return errors.New("site: empty tenant id")
	}
	if s.Name == "" {
		return errors.New("site: empty name")
	}
	return nil
}
