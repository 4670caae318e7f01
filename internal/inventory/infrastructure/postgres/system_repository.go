package postgres

import (
	"context"
	"database/sql"
	"errors"

	inventory "facility-cloud/internal/inventory/domain"
)

// SystemRepository stores systems in PostgreSQL.
type SystemRepository struct {
	db *sql.DB
}

// NewSystemRepository constructs a system repository.
func NewSystemRepository(db *sql.DB) (*SystemRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &SystemRepository{db: db}, nil
}

const systemColumns = `id, tenant_id, site_id, name, description, created_at, updated_at`

// Create inserts a system.
func (r *SystemRepository) Create(ctx context.Context, system *inventory.System) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil system repository")
	}
	if system == nil {
		return errors.New("postgres: nil system")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO systems (id, tenant_id, site_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		system.ID,
		system.TenantID,
		system.SiteID,
		system.Name,
		system.Description,
		system.CreatedAt.UTC(),
		system.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one system scoped to the tenant, nil when absent.
func (r *SystemRepository) Get(ctx context.Context, tenantID, id string) (*inventory.System, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil system repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+systemColumns+`
		FROM systems
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	system, err := scanSystem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return system, nil
}

// List returns tenant systems filtered and paginated, ordered by name.
func (r *SystemRepository) List(ctx context.Context, tenantID string, filter inventory.SystemFilter) ([]inventory.System, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil system repository")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+systemColumns+`
		FROM systems
		WHERE tenant_id = $1
		  AND ($2 = '' OR site_id = $2)
		  AND ($3 = '' OR name ILIKE '%' || $3 || '%')
		ORDER BY name ASC
		LIMIT $4 OFFSET $5
	`, tenantID, filter.SiteID, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var systems []inventory.System
	for rows.Next() {
		system, err := scanSystem(rows)
		if err != nil {
			return nil, err
		}
		systems = append(systems, *system)
	}
	return systems, rows.Err()
}

// Update rewrites the mutable columns of a system.
func (r *SystemRepository) Update(ctx context.Context, system *inventory.System) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil system repository")
	}
	if system == nil {
		return errors.New("postgres: nil system")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE systems
		SET name = $3, description = $4, updated_at = $5
		WHERE tenant_id = $1 AND id = $2
	`,
		system.TenantID,
		system.ID,
		system.Name,
		system.Description,
		system.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

// Delete removes a system scoped to the tenant.
func (r *SystemRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil system repository")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM systems WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func scanSystem(row rowScanner) (*inventory.System, error) {
	var system inventory.System
	err := row.Scan(
		&system.ID,
		&system.TenantID,
		&system.SiteID,
		&system.Name,
		&system.Description,
		&system.CreatedAt,
		&system.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	system.CreatedAt = system.CreatedAt.UTC()
	system.UpdatedAt = system.UpdatedAt.UTC()
	return &system, nil
}
