package alerts

import (
	"errors"
	"time"
)

const (
	StatusOpen         = "open"
	StatusAcknowledged = "acknowledged"
	StatusInProgress   = "in_progress"
	StatusResolved     = "resolved"
	StatusClosed       = "closed"
)

// Alert is a raised condition on an asset. Alerts are created by rule
// evaluation or manually, move through the lifecycle transitions below
// and are never deleted.
type Alert struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	RuleID          string    `json:"rule_id,omitempty"`
	AssetID         string    `json:"asset_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Severity        string    `json:"severity"`
	Status          string    `json:"status"`
	TriggeredAt     time.Time `json:"triggered_at"`
	TriggeredValue  *float64  `json:"triggered_value,omitempty"`
	AcknowledgedBy  string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt      time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
	WorkOrderID     string    `json:"work_order_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ActiveStatuses are the statuses that block a duplicate alert for the
// same rule+asset pair.
var ActiveStatuses = []string{StatusOpen, StatusAcknowledged, StatusInProgress}

// alertTransitions is the lifecycle table. Closed is terminal.
var alertTransitions = map[string][]string{
	StatusOpen:         {StatusAcknowledged, StatusInProgress, StatusResolved},
	StatusAcknowledged: {StatusInProgress, StatusResolved},
	StatusInProgress:   {StatusResolved},
	StatusResolved:     {StatusClosed},
	StatusClosed:       {},
}

// CanTransition reports whether the lifecycle permits from → to.
func CanTransition(from, to string) bool {
	for _, allowed := range alertTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change.
func (a *Alert) Transition(to string, at time.Time) error {
	if a == nil {
		return errors.New("alert: nil alert")
	}
	if !ValidAlertStatus(to) {
		return ErrInvalidTransition
	}
	if !CanTransition(a.Status, to) {
		return ErrInvalidTransition
	}
	a.Status = to
	a.UpdatedAt = at.UTC()
	return nil
}

// Active reports whether the alert still counts against de-duplication.
func (a Alert) Active() bool {
	switch a.Status {
	case StatusOpen, StatusAcknowledged, StatusInProgress:
		return true
	default:
		return false
	}
}

// Validate checks alert invariants.
func (a Alert) Validate() error {
	if a.ID == "" {
		return errors.New("alert: empty id")
	}
	if a.TenantID == "" {
		return errors.New("alert: empty tenant id")
	}
	if a.AssetID == "" {
		return errors.New("alert: empty asset id")
	}
	if a.Title == "" {
		return errors.New("alert: empty title")
	}
	if !ValidSeverity(a.Severity) {
		return errors.New("alert: invalid severity")
	}
	if !ValidAlertStatus(a.Status) {
		return errors.New("alert: invalid status")
	}
	if a.TriggeredAt.IsZero() {
		return errors.New("alert: missing triggered timestamp")
	}
	return nil
}

// ValidAlertStatus returns true for a supported status.
func ValidAlertStatus(status string) bool {
	switch status {
	case StatusOpen, StatusAcknowledged, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}
