package inventory

import (
	"errors"
	"time"
)

// System is an optional logical grouping of assets within a site, such
// as a cooling plant or the HVAC of one floor.
type System struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SiteID      string    `json:"site_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks system invariants.
func (s System) Validate() error {
	if s.ID == "" {
		return errors.New("system: empty id")
	}
	if s.TenantID == "" {
		return errors.New("system: empty tenant id")
	}
	if s.SiteID == "" {
		return errors.New("system: empty site id")
	}
	if s.Name == "" {
		return errors.New("system: empty name")
	}
	return nil
}
