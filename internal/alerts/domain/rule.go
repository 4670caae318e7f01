package alerts

import (
	"errors"
	"time"

	inventory "facility-cloud/internal/inventory/domain"
)

const (
	ConditionGreater        = "gt"
	ConditionLess           = "lt"
	ConditionGreaterOrEqual = "gte"
	ConditionLessOrEqual    = "lte"
	ConditionEqual          = "eq"
	ConditionBetween        = "between"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Rule defines when a sensor reading raises an alert. A rule targets
// either one specific asset, an asset type, or every asset in the
// tenant when both are empty.
type Rule struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Name            string    `json:"name"`
	AssetID         string    `json:"asset_id,omitempty"`
	AssetType       string    `json:"asset_type,omitempty"`
	SensorType      string    `json:"sensor_type"`
	Condition       string    `json:"condition"`
	Threshold       float64   `json:"threshold"`
	Threshold2      float64   `json:"threshold_2,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Severity        string    `json:"severity"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate checks rule invariants.
func (r Rule) Validate() error {
	if r.ID == "" {
		return errors.New("rule: empty id")
	}
	if r.TenantID == "" {
		return errors.New("rule: empty tenant id")
	}
	if r.Name == "" {
		return errors.New("rule: empty name")
	}
	if !inventory.ValidSensorType(r.SensorType) {
		return errors.New("rule: invalid sensor type")
	}
	if !ValidCondition(r.Condition) {
		return errors.New("rule: invalid condition")
	}
	if r.Condition == ConditionBetween && r.Threshold2 <= r.Threshold {
		return errors.New("rule: second threshold must exceed the first")
	}
	if r.DurationMinutes < 0 {
		return errors.New("rule: negative duration")
	}
	if !ValidSeverity(r.Severity) {
		return errors.New("rule: invalid severity")
	}
	return nil
}

// AppliesTo reports whether the rule covers the given asset.
func (r Rule) AppliesTo(assetID, assetType string) bool {
	if r.AssetID != "" {
		return r.AssetID == assetID
	}
	if r.AssetType != "" {
		return r.AssetType == assetType
	}
	return true
}

// Triggered evaluates the rule condition against a value.
func (r Rule) Triggered(value float64) bool {
	switch r.Condition {
	case ConditionGreater:
		return value > r.Threshold
	case ConditionGreaterOrEqual:
		return value >= r.Threshold
	case ConditionLess:
		return value < r.Threshold
	case ConditionLessOrEqual:
		return value <= r.Threshold
	case ConditionEqual:
		return value == r.Threshold
	case ConditionBetween:
		return value >= r.Threshold && value <= r.Threshold2
	default:
		return false
	}
}

// ValidCondition returns true for a supported condition.
func ValidCondition(condition string) bool {
	switch condition {
	case ConditionGreater, ConditionLess, ConditionGreaterOrEqual, ConditionLessOrEqual, ConditionEqual, ConditionBetween:
		return true
	default:
		return false
	}
}

// ValidSeverity returns true for a supported severity.
func ValidSeverity(severity string) bool {
	switch severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// RuleState tracks how long a rule condition has held continuously for
// one asset. One row per rule+asset pair.
type RuleState struct {
	TenantID     string
	RuleID       string
	AssetID      string
	PendingSince time.Time
	LastValue    float64
	UpdatedAt    time.Time
}
