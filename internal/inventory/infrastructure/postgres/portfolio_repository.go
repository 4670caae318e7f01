package postgres

import (
	"context"
	"database/sql"
	"errors"

	inventory "facility-cloud/internal/inventory/domain"
)

// PortfolioRepository stores portfolios in PostgreSQL.
type PortfolioRepository struct {
	db *sql.DB
}

// NewPortfolioRepository constructs a portfolio repository.
func NewPortfolioRepository(db *sql.DB) (*PortfolioRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &PortfolioRepository{db: db}, nil
}

const portfolioColumns = `id, tenant_id, name, description, created_at, updated_at`

// Create inserts a portfolio.
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *inventory.Portfolio) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil portfolio repository")
	}
	if portfolio == nil {
		return errors.New("postgres: nil portfolio")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, tenant_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		portfolio.ID,
		portfolio.TenantID,
		portfolio.Name,
		portfolio.Description,
		portfolio.CreatedAt.UTC(),
		portfolio.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one portfolio scoped to the tenant, nil when absent.
func (r *PortfolioRepository) Get(ctx context.Context, tenantID, id string) (*inventory.Portfolio, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil portfolio repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+portfolioColumns+`
		FROM portfolios
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	portfolio, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return portfolio, nil
}

// List returns tenant portfolios ordered by name.
func (r *PortfolioRepository) List(ctx context.Context, tenantID, search string) ([]inventory.Portfolio, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil portfolio repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+portfolioColumns+`
		FROM portfolios
		WHERE tenant_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name ASC
	`, tenantID, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []inventory.Portfolio
	for rows.Next() {
		portfolio, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *portfolio)
	}
	return portfolios, rows.Err()
}

// Update rewrites the mutable columns of a portfolio.
func (r *PortfolioRepository) Update(ctx context.Context, portfolio *inventory.Portfolio) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil portfolio repository")
	}
	if portfolio == nil {
		return errors.New("postgres: nil portfolio")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE portfolios
		SET name = $3, description = $4, updated_at = $5
		WHERE tenant_id = $1 AND id = $2
	`,
		portfolio.TenantID,
		portfolio.ID,
		portfolio.Name,
		portfolio.Description,
		portfolio.UpdatedAt.UTC(),
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

// Delete removes a portfolio scoped to the tenant.
func (r *PortfolioRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil portfolio repository")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM portfolios WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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

func scanPortfolio(row rowScanner) (*inventory.Portfolio, error) {
	var portfolio inventory.Portfolio
	err := row.Scan(
		&portfolio.ID,
		&portfolio.TenantID,
		&portfolio.Name,
		&portfolio.Description,
		&portfolio.CreatedAt,
		&portfolio.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	portfolio.CreatedAt = portfolio.CreatedAt.UTC()
	portfolio.UpdatedAt = portfolio.UpdatedAt.UTC()
	return &portfolio, nil
}
