package postgres

import (
	"context"
	"database/sql"
	"errors"

	inventory "facility-cloud/internal/inventory/domain"
)

// SensorRepository stores sensors in PostgreSQL.
type SensorRepository struct {
	db *sql.DB
}

// NewSensorRepository constructs a sensor repository.
func NewSensorRepository(db *sql.DB) (*SensorRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &SensorRepository{db: db}, nil
}

// Create inserts a sensor.
func (r *SensorRepository) Create(ctx context.Context, sensor *inventory.Sensor) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil sensor repository")
	}
	if sensor == nil {
		return errors.New("postgres: nil sensor")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensors (id, tenant_id, asset_id, name, sensor_type, unit, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		sensor.ID,
		sensor.TenantID,
		sensor.AssetID,
		sensor.Name,
		sensor.SensorType,
		sensor.Unit,
		sensor.Enabled,
		sensor.CreatedAt.UTC(),
		sensor.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one sensor scoped to the tenant, nil when absent.
func (r *SensorRepository) Get(ctx context.Context, tenantID, id string) (*inventory.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil sensor repository")
	}
	var sensor inventory.Sensor
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, asset_id, name, sensor_type, unit, enabled, created_at, updated_at
		FROM sensors
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(
		&sensor.ID,
		&sensor.TenantID,
		&sensor.AssetID,
		&sensor.Name,
		&sensor.SensorType,
		&sensor.Unit,
		&sensor.Enabled,
		&sensor.CreatedAt,
		&sensor.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sensor.CreatedAt = sensor.CreatedAt.UTC()
	sensor.UpdatedAt = sensor.UpdatedAt.UTC()
	return &sensor, nil
}

// ListByAsset returns the sensors attached to one asset.
func (r *SensorRepository) ListByAsset(ctx context.Context, tenantID, assetID string) ([]inventory.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil sensor repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, asset_id, name, sensor_type, unit, enabled, created_at, updated_at
		FROM sensors
		WHERE tenant_id = $1 AND asset_id = $2
		ORDER BY name ASC
	`, tenantID, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []inventory.Sensor
	for rows.Next() {
		var sensor inventory.Sensor
		if err := rows.Scan(
			&sensor.ID,
			&sensor.TenantID,
			&sensor.AssetID,
			&sensor.Name,
			&sensor.SensorType,
			&sensor.Unit,
			&sensor.Enabled,
			&sensor.CreatedAt,
			&sensor.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sensor.CreatedAt = sensor.CreatedAt.UTC()
		sensor.UpdatedAt = sensor.UpdatedAt.UTC()
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}

// Update rewrites the mutable columns of a sensor.
func (r *SensorRepository) Update(ctx context.Context, sensor *inventory.Sensor) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil sensor repository")
	}
	if sensor == nil {
		return errors.New("postgres: nil sensor")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE sensors
		SET name = $3, sensor_type = $4, unit = $5, enabled = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2
	`,
		sensor.TenantID,
		sensor.ID,
		sensor.Name,
		sensor.SensorType,
		sensor.Unit,
		sensor.Enabled,
		sensor.UpdatedAt.UTC(),
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

// Delete removes a sensor scoped to the tenant.
func (r *SensorRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil sensor repository")
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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
