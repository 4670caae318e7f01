package workorders

import "time"

// History actions recorded in the audit trail.
const (
	HistoryCreated       = "created"
	HistoryAssigned      = "assigned"
	HistoryStatusChanged = "status_changed"
)

// HistoryEntry is one immutable audit record of a work order change.
// Entries are appended on successful operations only and never edited
// or pruned.
type HistoryEntry struct {
	ID          string    `json:"id"`
	WorkOrderID string    `json:"work_order_id"`
	TenantID    string    `json:"tenant_id"`
	Action      string    `json:"action"`
	OldValue    string    `json:"old_value,omitempty"`
	NewValue    string    `json:"new_value"`
	Note        string    `json:"note,omitempty"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}
