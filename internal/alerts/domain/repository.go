package alerts

import "context"

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Status   string
	Severity string
	AssetID  string
	Limit    int
	Offset   int
}

// RuleRepository persists alert rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	Get(ctx context.Context, tenantID, id string) (*Rule, error)
	List(ctx context.Context, tenantID string) ([]Rule, error)
	ListEnabledBySensorType(ctx context.Context, tenantID, sensorType string) ([]Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, tenantID, id string) error
}

// AlertRepository persists alerts. Alerts are never deleted.
type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	Get(ctx context.Context, tenantID, id string) (*Alert, error)
	List(ctx context.Context, tenantID string, filter AlertFilter) ([]Alert, error)
	FindActiveByRuleAsset(ctx context.Context, tenantID, ruleID, assetID string) (*Alert, error)
	Update(ctx context.Context, alert *Alert) error
	CountByStatus(ctx context.Context, tenantID string) (map[string]int, error)
	CountOpenBySeverity(ctx context.Context, tenantID string) (map[string]int, error)
}

// RuleStateRepository persists duration pending state per rule+asset.
type RuleStateRepository interface {
	Get(ctx context.Context, tenantID, ruleID, assetID string) (*RuleState, error)
	Upsert(ctx context.Context, state *RuleState) error
	Clear(ctx context.Context, tenantID, ruleID, assetID string) error
}
