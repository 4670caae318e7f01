package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	workorders "facility-cloud/internal/workorders/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// Repository stores work orders in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a work order repository.
func NewRepository(db *sql.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &Repository{db: db}, nil
}

const workOrderColumns = `id, tenant_id, title, description, type, priority,
	status, asset_id, alert_id, assignee_id, created_by, due_date,
	completed_at, resolution_notes, time_spent_hours, created_at, updated_at`

// Create inserts a work order.
func (r *Repository) Create(ctx context.Context, workOrder *workorders.WorkOrder) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil work order repository")
	}
	if workOrder == nil {
		return errors.New("postgres: nil work order")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO work_orders (
			id, tenant_id, title, description, type, priority,
			status, asset_id, alert_id, assignee_id, created_by, due_date,
			completed_at, resolution_notes, time_spent_hours, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		workOrder.ID,
		workOrder.TenantID,
		workOrder.Title,
		workOrder.Description,
		workOrder.Type,
		workOrder.Priority,
		workOrder.Status,
		workOrder.AssetID,
		workOrder.AlertID,
		workOrder.AssigneeID,
		workOrder.CreatedBy,
		nullableTime(workOrder.DueDate),
		nullableTime(workOrder.CompletedAt),
		workOrder.ResolutionNotes,
		workOrder.TimeSpentHours,
		workOrder.CreatedAt.UTC(),
		workOrder.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one work order scoped to the tenant, nil when absent.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*workorders.WorkOrder, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil work order repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+workOrderColumns+`
		FROM work_orders
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	workOrder, err := scanWorkOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return workOrder, nil
}

// List returns tenant work orders newest first, filtered and paginated.
func (r *Repository) List(ctx context.Context, tenantID string, filter workorders.Filter) ([]workorders.WorkOrder, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil work order repository")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+workOrderColumns+`
		FROM work_orders
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR priority = $3)
		  AND ($4 = '' OR assignee_id = $4)
		  AND ($5 = '' OR asset_id = $5)
		  AND ($6 = '' OR title ILIKE '%' || $6 || '%')
		ORDER BY created_at DESC
		LIMIT $7 OFFSET $8
	`, tenantID, filter.Status, filter.Priority, filter.AssigneeID, filter.AssetID, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []workorders.WorkOrder
	for rows.Next() {
		workOrder, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *workOrder)
	}
	return list, rows.Err()
}

// Update rewrites the mutable columns of a work order.
func (r *Repository) Update(ctx context.Context, workOrder *workorders.WorkOrder) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil work order repository")
	}
	if workOrder == nil {
		return errors.New("postgres: nil work order")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE work_orders
		SET title = $3,
			description = $4,
			priority = $5,
			status = $6,
			assignee_id = $7,
			due_date = $8,
			completed_at = $9,
			resolution_notes = $10,
			time_spent_hours = $11,
			updated_at = $12
		WHERE tenant_id = $1 AND id = $2
	`,
		workOrder.TenantID,
		workOrder.ID,
		workOrder.Title,
		workOrder.Description,
		workOrder.Priority,
		workOrder.Status,
		workOrder.AssigneeID,
		nullableTime(workOrder.DueDate),
		nullableTime(workOrder.CompletedAt),
		workOrder.ResolutionNotes,
		workOrder.TimeSpentHours,
		workOrder.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return workorders.ErrNotFound
	}
	return nil
}

// CountByStatus aggregates work order counts per status.
func (r *Repository) CountByStatus(ctx context.Context, tenantID string) (map[string]int, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil work order repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM work_orders
		WHERE tenant_id = $1
		GROUP BY status
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanWorkOrder(row rowScanner) (*workorders.WorkOrder, error) {
	var (
		workOrder   workorders.WorkOrder
		dueDate     sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&workOrder.ID,
		&workOrder.TenantID,
		&workOrder.Title,
		&workOrder.Description,
		&workOrder.Type,
		&workOrder.Priority,
		&workOrder.Status,
		&workOrder.AssetID,
		&workOrder.AlertID,
		&workOrder.AssigneeID,
		&workOrder.CreatedBy,
		&dueDate,
		&completedAt,
		&workOrder.ResolutionNotes,
		&workOrder.TimeSpentHours,
		&workOrder.CreatedAt,
		&workOrder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		workOrder.DueDate = dueDate.Time.UTC()
	}
	if completedAt.Valid {
		workOrder.CompletedAt = completedAt.Time.UTC()
	}
	workOrder.CreatedAt = workOrder.CreatedAt.UTC()
	workOrder.UpdatedAt = workOrder.UpdatedAt.UTC()
	return &workOrder, nil
}

func nullableTime(value time.Time) sql.NullTime {
	return sql.NullTime{Time: value.UTC(), Valid: !value.IsZero()}
}
