package workorders

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	StatusOpen       = "open"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusOnHold     = "on_hold"
	StatusCompleted  = "completed"
	StatusClosed     = "closed"
	StatusCancelled  = "cancelled"
)

const (
	TypeReactive   = "reactive"
	TypePreventive = "preventive"
	TypeInspection = "inspection"
	TypeCorrective = "corrective"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Actions drive the status state machine.
const (
	ActionAssign   = "assign"
	ActionStart    = "start"
	ActionHold     = "hold"
	ActionComplete = "complete"
	ActionClose    = "close"
	ActionCancel   = "cancel"
)

// minResolutionNotes is the guard on completion.
const minResolutionNotes = 50

// WorkOrder is a trackable maintenance task, optionally spawned from an
// alert. Status moves only through the transition table below; every
// successful move appends one history entry.
type WorkOrder struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Type            string    `json:"type"`
	Priority        string    `json:"priority"`
	Status          string    `json:"status"`
	AssetID         string    `json:"asset_id"`
	AlertID         string    `json:"alert_id,omitempty"`
	AssigneeID      string    `json:"assignee_id,omitempty"`
	CreatedBy       string    `json:"created_by"`
	DueDate         time.Time `json:"due_date,omitempty"`
	CompletedAt     time.Time `json:"completed_at,omitempty"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
	TimeSpentHours  float64   `json:"time_spent_hours,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// transition describes one edge of the state machine.
type transition struct {
	from []string
	to   string
}

var transitions = map[string]transition{
	ActionAssign:   {from: []string{StatusOpen}, to: StatusAssigned},
	ActionStart:    {from: []string{StatusAssigned, StatusOnHold}, to: StatusInProgress},
	ActionHold:     {from: []string{StatusInProgress}, to: StatusOnHold},
	ActionComplete: {from: []string{StatusInProgress}, to: StatusCompleted},
	ActionClose:    {from: []string{StatusCompleted}, to: StatusClosed},
	ActionCancel:   {from: []string{StatusOpen, StatusAssigned, StatusInProgress, StatusOnHold}, to: StatusCancelled},
}

// ActionFor resolves which action moves the work order to the target
// status. ok is false when no edge reaches that status.
func ActionFor(target string) (string, bool) {
	for action, tr := range transitions {
		if tr.to == target {
			return action, true
		}
	}
	return "", false
}

// CanApply reports whether the action is legal from the current status.
func (w WorkOrder) CanApply(action string) bool {
	tr, ok := transitions[action]
	if !ok {
		return false
	}
	for _, from := range tr.from {
		if from == w.Status {
			return true
		}
	}
	return false
}

// Apply performs the action, enforcing its guards. On success the
// status is updated in place; on failure the work order is unchanged.
func (w *WorkOrder) Apply(action string, at time.Time) error {
	if w == nil {
		return errors.New("workorder: nil work order")
	}
	tr, ok := transitions[action]
	if !ok {
		return ErrInvalidTransition
	}
	if !w.CanApply(action) {
		return ErrInvalidTransition
	}
	if action == ActionComplete {
		if utf8.RuneCountInString(strings.TrimSpace(w.ResolutionNotes)) < minResolutionNotes {
			return ErrCompletionGuard
		}
		if w.TimeSpentHours <= 0 {
			return ErrCompletionGuard
		}
		w.CompletedAt = at.UTC()
	}
	w.Status = tr.to
	w.UpdatedAt = at.UTC()
	return nil
}

// Terminal reports whether the status admits no further transitions.
func (w WorkOrder) Terminal() bool {
	return w.Status == StatusClosed || w.Status == StatusCancelled
}

// Validate checks work order invariants.
func (w WorkOrder) Validate() error {
	if w.ID == "" {
		return errors.New("workorder: empty id")
	}
	if w.TenantID == "" {
		return errors.New("workorder: empty tenant id")
	}
	if w.Title == "" {
		return errors.New("workorder: empty title")
	}
	if !ValidType(w.Type) {
		return errors.New("workorder: invalid type")
	}
	if !ValidPriority(w.Priority) {
		return errors.New("workorder: invalid priority")
	}
	if !ValidStatus(w.Status) {
		return errors.New("workorder: invalid status")
	}
	if w.AssetID == "" {
		return errors.New("workorder: empty asset id")
	}
	if w.CreatedBy == "" {
		return errors.New("workorder: empty creator")
	}
	return nil
}

// ValidStatus returns true for a supported status.
func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusOnHold, StatusCompleted, StatusClosed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ValidType returns true for a supported type.
func ValidType(workOrderType string) bool {
	switch workOrderType {
	case TypeReactive, TypePreventive, TypeInspection, TypeCorrective:
		return true
	default:
		return false
	}
}

// ValidPriority returns true for a supported priority.
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}
