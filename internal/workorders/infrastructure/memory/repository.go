package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	workorders "facility-cloud/internal/workorders/domain"
)

// Repository is an in-memory work order store for tests.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]workorders.WorkOrder
}

// NewRepository constructs an empty store.
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]workorders.WorkOrder)}
}

func (r *Repository) Create(_ context.Context, workOrder *workorders.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[workOrder.ID] = *workOrder
	return nil
}

func (r *Repository) Get(_ context.Context, tenantID, id string) (*workorders.WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	workOrder, ok := r.orders[id]
	if !ok || workOrder.TenantID != tenantID {
		return nil, nil
	}
	copied := workOrder
	return &copied, nil
}

func (r *Repository) List(_ context.Context, tenantID string, filter workorders.Filter) ([]workorders.WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]workorders.WorkOrder, 0)
	for _, workOrder := range r.orders {
		if workOrder.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && workOrder.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && workOrder.Priority != filter.Priority {
			continue
		}
		if filter.AssigneeID != "" && workOrder.AssigneeID != filter.AssigneeID {
			continue
		}
		if filter.AssetID != "" && workOrder.AssetID != filter.AssetID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(workOrder.Title), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, workOrder)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Limit, filter.Offset), nil
}

func (r *Repository) Update(_ context.Context, workOrder *workorders.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.orders[workOrder.ID]
	if !ok || existing.TenantID != workOrder.TenantID {
		return workorders.ErrNotFound
	}
	r.orders[workOrder.ID] = *workOrder
	return nil
}

func (r *Repository) CountByStatus(_ context.Context, tenantID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, workOrder := range r.orders {
		if workOrder.TenantID == tenantID {
			counts[workOrder.Status]++
		}
	}
	return counts, nil
}

// Count reports the number of stored work orders.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// HistoryRepository is an in-memory history store for tests.
type HistoryRepository struct {
	mu      sync.RWMutex
	entries []workorders.HistoryEntry
}

// NewHistoryRepository constructs an empty history store.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Append(_ context.Context, entry *workorders.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *HistoryRepository) ListByWorkOrder(_ context.Context, tenantID, workOrderID string) ([]workorders.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]workorders.HistoryEntry, 0)
	for _, entry := range r.entries {
		if entry.TenantID == tenantID && entry.WorkOrderID == workOrderID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// Count reports the number of stored history entries.
func (r *HistoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func paginate(items []workorders.WorkOrder, limit, offset int) []workorders.WorkOrder {
	if offset >= len(items) {
		return []workorders.WorkOrder{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
