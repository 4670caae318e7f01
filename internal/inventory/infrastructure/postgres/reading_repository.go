package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	inventory "facility-cloud/internal/inventory/domain"
)

// ReadingRepository stores sensor readings in PostgreSQL.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository constructs a reading repository.
func NewReadingRepository(db *sql.DB) (*ReadingRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &ReadingRepository{db: db}, nil
}

// Insert stores one reading.
func (r *ReadingRepository) Insert(ctx context.Context, reading *inventory.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil reading repository")
	}
	if reading == nil {
		return errors.New("postgres: nil reading")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (id, tenant_id, sensor_id, asset_id, sensor_type, value, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		reading.ID,
		reading.TenantID,
		reading.SensorID,
		reading.AssetID,
		reading.SensorType,
		reading.Value,
		reading.RecordedAt.UTC(),
		reading.CreatedAt.UTC(),
	)
	return err
}

// ListBySensor returns readings for one sensor in a window, newest first.
func (r *ReadingRepository) ListBySensor(ctx context.Context, tenantID, sensorID string, from, to time.Time, limit int) ([]inventory.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil reading repository")
	}
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, sensor_id, asset_id, sensor_type, value, recorded_at, created_at
		FROM sensor_readings
		WHERE tenant_id = $1 AND sensor_id = $2 AND recorded_at >= $3 AND recorded_at < $4
		ORDER BY recorded_at DESC
		LIMIT $5
	`, tenantID, sensorID, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []inventory.Reading
	for rows.Next() {
		var reading inventory.Reading
		if err := rows.Scan(
			&reading.ID,
			&reading.TenantID,
			&reading.SensorID,
			&reading.AssetID,
			&reading.SensorType,
			&reading.Value,
			&reading.RecordedAt,
			&reading.CreatedAt,
		); err != nil {
			return nil, err
		}
		reading.RecordedAt = reading.RecordedAt.UTC()
		reading.CreatedAt = reading.CreatedAt.UTC()
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// SumBySiteAndType aggregates reading values per site for one sensor type.
func (r *ReadingRepository) SumBySiteAndType(ctx context.Context, tenantID, sensorType string, from, to time.Time) (map[string]float64, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil reading repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.site_id, COALESCE(SUM(sr.value), 0)
		FROM sensor_readings sr
		JOIN assets a ON a.id = sr.asset_id AND a.tenant_id = sr.tenant_id
		WHERE sr.tenant_id = $1
		  AND sr.sensor_type = $2
		  AND sr.recorded_at >= $3 AND sr.recorded_at < $4
		GROUP BY a.site_id
	`, tenantID, sensorType, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]float64{}
	for rows.Next() {
		var (
			siteID string
			total  sql.NullFloat64
		)
		if err := rows.Scan(&siteID, &total); err != nil {
			return nil, err
		}
		totals[siteID] = total.Float64
	}
	return totals, rows.Err()
}
