package postgres

import (
	"context"
	"database/sql"
	"errors"

	inventory "facility-cloud/internal/inventory/domain"
)

// SiteRepository stores sites in PostgreSQL.
type SiteRepository struct {
	db *sql.DB
}

// NewSiteRepository constructs a site repository.
func NewSiteRepository(db *sql.DB) (*SiteRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &SiteRepository{db: db}, nil
}

// Create inserts a site.
func (r *SiteRepository) Create(ctx context.Context, site *inventory.Site) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil site repository")
	}
	if site == nil {
		return errors.New("postgres: nil site")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sites (id, tenant_id, portfolio_id, name, address, city, country, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		site.ID,
		site.TenantID,
		site.PortfolioID,
		site.Name,
		site.Address,
		site.City,
		site.Country,
		site.Timezone,
		site.CreatedAt.UTC(),
		site.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one site scoped to the tenant, nil when absent.
func (r *SiteRepository) Get(ctx context.Context, tenantID, id string) (*inventory.Site, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil site repository")
	}
	var site inventory.Site
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, portfolio_id, name, address, city, country, timezone, created_at, updated_at
		FROM sites
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&site.ID,
		&site.TenantID,
		&site.PortfolioID,
		&site.Name,
		&site.Address,
		&site.City,
		&site.Country,
		&site.Timezone,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	site.CreatedAt = site.CreatedAt.UTC()
	site.UpdatedAt = site.UpdatedAt.UTC()
	return &site, nil
}

// List returns tenant sites ordered by name, filtered and paginated.
func (r *SiteRepository) List(ctx context.Context, tenantID string, filter inventory.SiteFilter) ([]inventory.Site, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil site repository")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, portfolio_id, name, address, city, country, timezone, created_at, updated_at
		FROM sites
		WHERE tenant_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR city ILIKE '%' || $2 || '%')
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`, tenantID, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []inventory.Site
	for rows.Next() {
		var site inventory.Site
		if err := rows.Scan(
			&site.ID,
			&site.TenantID,
			&site.PortfolioID,
			&site.Name,
			&site.Address,
			&site.City,
			&site.Country,
			&site.Timezone,
			&site.CreatedAt,
			&site.UpdatedAt,
		); err != nil {
			return nil, err
		}
		site.CreatedAt = site.CreatedAt.UTC()
		site.UpdatedAt = site.UpdatedAt.UTC()
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// Update rewrites the mutable columns of a site.
func (r *SiteRepository) Update(ctx context.Context, site *inventory.Site) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil site repository")
	}
	if site == nil {
		return errors.New("postgres: nil site")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE sites
		SET portfolio_id = $3, name = $4, address = $5, city = $6, country = $7, timezone = $8, updated_at = $9
		WHERE tenant_id = $1 AND id = $2
	`,
		site.TenantID,
		site.ID,
		site.PortfolioID,
		site.Name,
		site.Address,
		site.City,
		site.Country,
		site.Timezone,
		site.UpdatedAt.UTC(),
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

// Count reports how many sites the tenant owns.
func (r *SiteRepository) Count(ctx context.Context, tenantID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("postgres: nil site repository")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}

// CountByPortfolio reports how many sites belong to one portfolio.
func (r *SiteRepository) CountByPortfolio(ctx context.Context, tenantID, portfolioID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("postgres: nil site repository")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sites WHERE tenant_id = $1 AND portfolio_id = $2
	`, tenantID, portfolioID).Scan(&count)
	return count, err
}

// Delete removes a site scoped to the tenant.
func (r *SiteRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil site repository")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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
