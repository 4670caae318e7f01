package postgres

import (
	"context"
	"database/sql"
	"errors"

	workorders "facility-cloud/internal/workorders/domain"
)

// HistoryRepository stores the append-only work order trail in
// PostgreSQL. Rows are never updated or deleted.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository constructs a history repository.
func NewHistoryRepository(db *sql.DB) (*HistoryRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &HistoryRepository{db: db}, nil
}

// Append inserts one history entry.
func (r *HistoryRepository) Append(ctx context.Context, entry *workorders.HistoryEntry) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil history repository")
	}
	if entry == nil {
		return errors.New("postgres: nil history entry")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO work_order_history (
			id, work_order_id, tenant_id, action, old_value, new_value,
			note, actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.ID,
		entry.WorkOrderID,
		entry.TenantID,
		entry.Action,
		entry.OldValue,
		entry.NewValue,
		entry.Note,
		entry.Actor,
		entry.CreatedAt.UTC(),
	)
	return err
}

// ListByWorkOrder returns the trail of one work order oldest first.
func (r *HistoryRepository) ListByWorkOrder(ctx context.Context, tenantID, workOrderID string) ([]workorders.HistoryEntry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil history repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, work_order_id, tenant_id, action, old_value, new_value,
			note, actor, created_at
		FROM work_order_history
		WHERE tenant_id = $1 AND work_order_id = $2
		ORDER BY created_at ASC
	`, tenantID, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []workorders.HistoryEntry
	for rows.Next() {
		var entry workorders.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.WorkOrderID,
			&entry.TenantID,
			&entry.Action,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Note,
			&entry.Actor,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		list = append(list, entry)
	}
	return list, rows.Err()
}
