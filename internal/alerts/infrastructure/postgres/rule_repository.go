package postgres

import (
	"context"
	"database/sql"
	"errors"

	alerts "facility-cloud/internal/alerts/domain"
)

// RuleRepository stores alert rules in PostgreSQL.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository constructs a rule repository.
func NewRuleRepository(db *sql.DB) (*RuleRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &RuleRepository{db: db}, nil
}

const ruleColumns = `id, tenant_id, name, asset_id, asset_type, sensor_type,
	condition, threshold, threshold_2, duration_minutes, severity, enabled,
	created_at, updated_at`

// Create inserts a rule.
func (r *RuleRepository) Create(ctx context.Context, rule *alerts.Rule) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil rule repository")
	}
	if rule == nil {
		return errors.New("postgres: nil rule")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_rules (
			id, tenant_id, name, asset_id, asset_type, sensor_type,
			condition, threshold, threshold_2, duration_minutes, severity, enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		rule.ID,
		rule.TenantID,
		rule.Name,
		rule.AssetID,
		rule.AssetType,
		rule.SensorType,
		rule.Condition,
		rule.Threshold,
		rule.Threshold2,
		rule.DurationMinutes,
		rule.Severity,
		rule.Enabled,
		rule.CreatedAt.UTC(),
		rule.UpdatedAt.UTC(),
	)
	return err
}

// Get loads one rule scoped to the tenant, nil when absent.
func (r *RuleRepository) Get(ctx context.Context, tenantID, id string) (*alerts.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil rule repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM alert_rules
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// List returns every rule of one tenant.
func (r *RuleRepository) List(ctx context.Context, tenantID string) ([]alerts.Rule, error) {
	return r.listWhere(ctx, `tenant_id = $1`, tenantID)
}

// ListEnabledBySensorType returns the enabled rules evaluation consults
// for a reading of the given sensor type.
func (r *RuleRepository) ListEnabledBySensorType(ctx context.Context, tenantID, sensorType string) ([]alerts.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil rule repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM alert_rules
		WHERE tenant_id = $1 AND sensor_type = $2 AND enabled = TRUE
		ORDER BY created_at ASC
	`, tenantID, sensorType)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *RuleRepository) listWhere(ctx context.Context, where string, args ...any) ([]alerts.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil rule repository")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM alert_rules
		WHERE `+where+`
		ORDER BY created_at ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// Update rewrites a rule.
func (r *RuleRepository) Update(ctx context.Context, rule *alerts.Rule) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil rule repository")
	}
	if rule == nil {
		return errors.New("postgres: nil rule")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE alert_rules
		SET name = $3,
			asset_id = $4,
			asset_type = $5,
			sensor_type = $6,
			condition = $7,
			threshold = $8,
			threshold_2 = $9,
			duration_minutes = $10,
			severity = $11,
			enabled = $12,
			updated_at = $13
		WHERE tenant_id = $1 AND id = $2
	`,
		rule.TenantID,
		rule.ID,
		rule.Name,
		rule.AssetID,
		rule.AssetType,
		rule.SensorType,
		rule.Condition,
		rule.Threshold,
		rule.Threshold2,
		rule.DurationMinutes,
		rule.Severity,
		rule.Enabled,
		rule.UpdatedAt.UTC(),
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

// Delete removes a rule; its pending states go with it.
func (r *RuleRepository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil rule repository")
	}
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM alert_rule_states WHERE tenant_id = $1 AND rule_id = $2
	`, tenantID, id); err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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

func collectRules(rows *sql.Rows) ([]alerts.Rule, error) {
	defer rows.Close()
	var rules []alerts.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func scanRule(row rowScanner) (*alerts.Rule, error) {
	var rule alerts.Rule
	err := row.Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.Name,
		&rule.AssetID,
		&rule.AssetType,
		&rule.SensorType,
		&rule.Condition,
		&rule.Threshold,
		&rule.Threshold2,
		&rule.DurationMinutes,
		&rule.Severity,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	rule.UpdatedAt = rule.UpdatedAt.UTC()
	return &rule, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
