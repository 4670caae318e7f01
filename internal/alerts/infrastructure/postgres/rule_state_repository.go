package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	alerts "facility-cloud/internal/alerts/domain"
)

// RuleStateRepository stores pending rule evaluations in PostgreSQL.
type RuleStateRepository struct {
	db *sql.DB
}

// NewRuleStateRepository constructs a rule state repository.
func NewRuleStateRepository(db *sql.DB) (*RuleStateRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	return &RuleStateRepository{db: db}, nil
}

// Get fetches the pending state for a rule+asset pair, nil when absent.
func (r *RuleStateRepository) Get(ctx context.Context, tenantID, ruleID, assetID string) (*alerts.RuleState, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres: nil rule state repository")
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, rule_id, asset_id, pending_since, last_value, updated_at
		FROM alert_rule_states
		WHERE tenant_id = $1 AND rule_id = $2 AND asset_id = $3
	`, tenantID, ruleID, assetID)

	var (
		state     alerts.RuleState
		lastValue sql.NullFloat64
	)
	if err := row.Scan(
		&state.TenantID,
		&state.RuleID,
		&state.AssetID,
		&state.PendingSince,
		&lastValue,
		&state.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	state.PendingSince = state.PendingSince.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()
	if lastValue.Valid {
		state.LastValue = lastValue.Float64
	}
	return &state, nil
}

// Upsert inserts or refreshes a pending state.
func (r *RuleStateRepository) Upsert(ctx context.Context, state *alerts.RuleState) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil rule state repository")
	}
	if state == nil {
		return errors.New("postgres: nil rule state")
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_rule_states (
			tenant_id, rule_id, asset_id, pending_since, last_value, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, rule_id, asset_id)
		DO UPDATE SET
			pending_since = EXCLUDED.pending_since,
			last_value = EXCLUDED.last_value,
			updated_at = EXCLUDED.updated_at
	`,
		state.TenantID,
		state.RuleID,
		state.AssetID,
		state.PendingSince.UTC(),
		sql.NullFloat64{Float64: state.LastValue, Valid: true},
		state.UpdatedAt.UTC(),
	)
	return err
}

// Clear removes a pending state.
func (r *RuleStateRepository) Clear(ctx context.Context, tenantID, ruleID, assetID string) error {
	if r == nil || r.db == nil {
		return errors.New("postgres: nil rule state repository")
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM alert_rule_states
		WHERE tenant_id = $1 AND rule_id = $2 AND asset_id = $3
	`, tenantID, ruleID, assetID)
	return err
}
