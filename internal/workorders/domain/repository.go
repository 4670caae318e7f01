package workorders

import "context"

// Filter narrows work order listings.
type Filter struct {
	Status     string
	Priority   string
	AssigneeID string
	AssetID    string
	Search     string
	Limit      int
	Offset     int
}

// Repository persists work orders.
type Repository interface {
	Create(ctx context.Context, workOrder *WorkOrder) error
	Get(ctx context.Context, tenantID, id string) (*WorkOrder, error)
	List(ctx context.Context, tenantID string, filter Filter) ([]WorkOrder, error)
	Update(ctx context.Context, workOrder *WorkOrder) error
	CountByStatus(ctx context.Context, tenantID string) (map[string]int, error)
}

// HistoryRepository persists the append-only audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, entry *HistoryEntry) error
	ListByWorkOrder(ctx context.Context, tenantID, workOrderID string) ([]HistoryEntry, error)
}
