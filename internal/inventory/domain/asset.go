package inventory

import (
	"errors"
	"time"
)

const (
	AssetStatusOperational = "operational"
	AssetStatusDegraded    = "degraded"
	AssetStatusDown        = "down"
	AssetStatusMaintenance = "maintenance"
)

// Asset is a piece of monitored equipment at a site. Alerts and work
// orders reference assets by id.
type Asset struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SiteID      string    `json:"site_id"`
	SystemID    string    `json:"system_id,omitempty"`
	Name        string    `json:"name"`
	AssetType   string    `json:"asset_type"`
	Criticality int       `json:"criticality"`
	HealthScore float64   `json:"health_score"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks asset invariants.
func (a Asset) Validate() error {
	if a.ID == "" {
		return errors.New("asset: empty id")
	}
	if a.TenantID == "" {
		return errors.New("asset: empty tenant id")
	}
	if a.SiteID == "" {
		return errors.New("asset: empty site id")
	}
	if a.Name == "" {
		return errors.New("asset: empty name")
	}
	if a.AssetType == "" {
		return errors.New("asset: empty asset type")
	}
	if a.Criticality < 1 || a.Criticality > 5 {
		return errors.New("asset: criticality must be between 1 and 5")
	}
	if a.HealthScore < 0 || a.HealthScore > 100 {
		return errors.New("asset: health score must be between 0 and 100")
	}
	if !ValidAssetStatus(a.Status) {
		return errors.New("asset: invalid status")
	}
	return nil
}

// ValidAssetStatus returns true when the status is supported.
func ValidAssetStatus(status string) bool {
	switch status {
	case AssetStatusOperational, AssetStatusDegraded, AssetStatusDown, AssetStatusMaintenance:
		return true
	default:
		return false
	}
}
