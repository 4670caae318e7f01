package postgres

import (
	"context"
	"database/sql"
	"errors"

	inventory "facility-cloud/internal/inventory/domain"
)

// AssetRepository stores assets in PostgreSQL.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository constructs an asset repository.
func NewAssetRepository(db *sql.DB) (*AssetRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &AssetRepository{db: db}, nil
}

const assetColumns = `id, tenant_id, site_id, system_id, name, asset_type, criticality,
	health_score, status, location, created_at, updated_at`

// Create inserts an asset.
func (r *AssetRepository) Create(ctx context.Context, asset *inventory.Asset) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil asset repository")
	}
	if asset == nil {
		return errors.New("postgres: nil asset")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (
			id, tenant_id, site_id, system_id, name, asset_type, criticality,
			health_score, status, location, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		asset.ID,
		asset.TenantID,
		asset.SiteID,
		asset.SystemID,
		asset.Name,
		asset.AssetType,
		asset.Criticality,
		asset.HealthScore,
		asset.Status,
		asset.Location,
		asset.CreatedAt.UTC(),
		asset.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one asset scoped to the tenant, nil when absent.
func (r *AssetRepository) Get(ctx context.Context, tenantID, id string) (*inventory.Asset, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil asset repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// List returns tenant assets filtered and paginated, ordered by name.
func (r *AssetRepository) List(ctx context.Context, tenantID string, filter inventory.AssetFilter) ([]inventory.Asset, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil asset repository")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE tenant_id = $1
		  AND ($2 = '' OR site_id = $2)
		  AND ($3 = '' OR asset_type = $3)
		  AND ($4 = '' OR status = $4)
		  AND ($5 = '' OR name ILIKE '%' || $5 || '%')
		ORDER BY name ASC
		LIMIT $6 OFFSET $7
	`, tenantID, filter.SiteID, filter.AssetType, filter.Status, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []inventory.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

// Update rewrites the mutable columns of an asset.
func (r *AssetRepository) Update(ctx context.Context, asset *inventory.Asset) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil asset repository")
	}
	if asset == nil {
		return errors.New("postgres: nil asset")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE assets
		SET site_id = $3,
			system_id = $4,
			name = $5,
			asset_type = $6,
			criticality = $7,
			health_score = $8,
			status = $9,
			location = $10,
			updated_at = $11
		WHERE tenant_id = $1 AND id = $2
	`,
		asset.TenantID,
		asset.ID,
		asset.SiteID,
		asset.SystemID,
		asset.Name,
		asset.AssetType,
		asset.Criticality,
		asset.HealthScore,
		asset.Status,
		asset.Location,
		asset.UpdatedAt.UTC(),
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

// Count reports how many assets the tenant owns.
func (r *AssetRepository) Count(ctx context.Context, tenantID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("postgres: nil asset repository")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}

// CountBySystem reports how many assets belong to one system.
func (r *AssetRepository) CountBySystem(ctx context.Context, tenantID, systemID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("postgres: nil asset repository")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assets WHERE tenant_id = $1 AND system_id = $2
	`, tenantID, systemID).Scan(&count)
	return count, err
}

// Delete removes an asset scoped to the tenant.
func (r *AssetRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil asset repository")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*inventory.Asset, error) {
	var asset inventory.Asset
	err := row.Scan(
		&asset.ID,
		&asset.TenantID,
		&asset.SiteID,
		&asset.SystemID,
		&asset.Name,
		&asset.AssetType,
		&asset.Criticality,
		&asset.HealthScore,
		&asset.Status,
		&asset.Location,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	asset.CreatedAt = asset.CreatedAt.UTC()
	asset.UpdatedAt = asset.UpdatedAt.UTC()
	return &asset, nil
}
