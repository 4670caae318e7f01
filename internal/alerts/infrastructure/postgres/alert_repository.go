package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	alerts "facility-cloud/internal/alerts/domain"
)

// AlertRepository stores alerts in PostgreSQL. Rows are never deleted.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs an alert repository.
func NewAlertRepository(db *sql.DB) (*AlertRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &AlertRepository{db: db}, nil
}

const alertColumns = `id, tenant_id, rule_id, asset_id, title, description,
	severity, status, triggered_at, triggered_value, acknowledged_by,
	acknowledged_at, resolved_at, resolution_notes, work_order_id,
	created_at, updated_at`

// Create inserts an alert.
func (r *AlertRepository) Create(ctx context.Context, alert *alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil alert repository")
	}
	if alert == nil {
		return errors.New("postgres: nil alert")
	}
	var triggeredValue sql.NullFloat64
	if alert.TriggeredValue != nil {
		triggeredValue = sql.NullFloat64{Float64: *alert.TriggeredValue, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (
			id, tenant_id, rule_id, asset_id, title, description,
			severity, status, triggered_at, triggered_value, acknowledged_by,
			acknowledged_at, resolved_at, resolution_notes, work_order_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		alert.ID,
		alert.TenantID,
		alert.RuleID,
		alert.AssetID,
		alert.Title,
		alert.Description,
		alert.Severity,
		alert.Status,
		alert.TriggeredAt.UTC(),
		triggeredValue,
		alert.AcknowledgedBy,
		nullableTime(alert.AcknowledgedAt),
		nullableTime(alert.ResolvedAt),
		alert.ResolutionNotes,
		alert.WorkOrderID,
		alert.CreatedAt.UTC(),
		alert.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one alert scoped to the tenant, nil when absent.
func (r *AlertRepository) Get(ctx context.Context, tenantID, id string) (*alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil alert repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// List returns tenant alerts newest first, filtered and paginated.
func (r *AlertRepository) List(ctx context.Context, tenantID string, filter alerts.AlertFilter) ([]alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil alert repository")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE tenant_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR severity = $3)
		  AND ($4 = '' OR asset_id = $4)
		ORDER BY triggered_at DESC
		LIMIT $5 OFFSET $6
	`, tenantID, filter.Status, filter.Severity, filter.AssetID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []alerts.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *alert)
	}
	return list, rows.Err()
}

// FindActiveByRuleAsset returns the one active alert for a rule+asset
// pair, nil when none. Used for de-duplication before firing.
func (r *AlertRepository) FindActiveByRuleAsset(ctx context.Context, tenantID, ruleID, assetID string) (*alerts.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil alert repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE tenant_id = $1 AND rule_id = $2 AND asset_id = $3
		  AND status IN ('open', 'acknowledged', 'in_progress')
		ORDER BY triggered_at DESC
		LIMIT 1
	`, tenantID, ruleID, assetID)
	alert, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// Update rewrites the lifecycle columns of an alert.
func (r *AlertRepository) Update(ctx context.Context, alert *alerts.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil alert repository")
	}
	if alert == nil {
		return errors.New("postgres: nil alert")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts
		SET status = $3,
			acknowledged_by = $4,
			acknowledged_at = $5,
			resolved_at = $6,
			resolution_notes = $7,
			work_order_id = $8,
			updated_at = $9
		WHERE tenant_id = $1 AND id = $2
	`,
		alert.TenantID,
		alert.ID,
		alert.Status,
		alert.AcknowledgedBy,
		nullableTime(alert.AcknowledgedAt),
		nullableTime(alert.ResolvedAt),
		alert.ResolutionNotes,
		alert.WorkOrderID,
		alert.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alerts.ErrNotFound
	}
	return nil
}

// CountByStatus aggregates alert counts per status.
func (r *AlertRepository) CountByStatus(ctx context.Context, tenantID string) (map[string]int, error) {
	return r.countGrouped(ctx, `
		SELECT status, COUNT(*)
		FROM alerts
		WHERE tenant_id = $1
		GROUP BY status
	`, tenantID)
}

// CountOpenBySeverity aggregates non-terminal alert counts per severity.
func (r *AlertRepository) CountOpenBySeverity(ctx context.Context, tenantID string) (map[string]int, error) {
	return r.countGrouped(ctx, `
		SELECT severity, COUNT(*)
		FROM alerts
		WHERE tenant_id = $1 AND status IN ('open', 'acknowledged', 'in_progress')
		GROUP BY severity
	`, tenantID)
}

func (r *AlertRepository) countGrouped(ctx context.Context, query, tenantID string) (map[string]int, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil alert repository")
	}
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func scanAlert(row rowScanner) (*alerts.Alert, error) {
	var (
		alert          alerts.Alert
		triggeredValue sql.NullFloat64
		acknowledgedAt sql.NullTime
		resolvedAt     sql.NullTime
	)
	err := row.Scan(
		&alert.ID,
		&alert.TenantID,
		&alert.RuleID,
		&alert.AssetID,
		&alert.Title,
		&alert.Description,
		&alert.Severity,
		&alert.Status,
		&alert.TriggeredAt,
		&triggeredValue,
		&alert.AcknowledgedBy,
		&acknowledgedAt,
		&resolvedAt,
		&alert.ResolutionNotes,
		&alert.WorkOrderID,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if triggeredValue.Valid {
		value := triggeredValue.Float64
		alert.TriggeredValue = &value
	}
	if acknowledgedAt.Valid {
		alert.AcknowledgedAt = acknowledgedAt.Time.UTC()
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = resolvedAt.Time.UTC()
	}
	alert.TriggeredAt = alert.TriggeredAt.UTC()
	alert.CreatedAt = alert.CreatedAt.UTC()
	alert.UpdatedAt = alert.UpdatedAt.UTC()
	return &alert, nil
}

func nullableTime(value time.Time) sql.NullTime {
	return sql.NullTime{Time: value.UTC(), Valid: !value.IsZero()}
}
