package memory

import (
	"context"
	"sort"
	"sync"

	alerts "facility-cloud/internal/alerts/domain"
)

// RuleRepository is an in-memory rule store used in tests.
type RuleRepository struct {
	mu    sync.RWMutex
	rules map[string]alerts.Rule
}

// NewRuleRepository constructs an empty in-memory rule repository.
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: map[string]alerts.Rule{}}
}

func (r *RuleRepository) Create(_ context.Context, rule *alerts.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = *rule
	return nil
}

func (r *RuleRepository) Get(_ context.Context, tenantID, id string) (*alerts.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok || rule.TenantID != tenantID {
		return nil, nil
	}
	copied := rule
	return &copied, nil
}

func (r *RuleRepository) List(_ context.Context, tenantID string) ([]alerts.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rules []alerts.Rule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}

func (r *RuleRepository) ListEnabledBySensorType(_ context.Context, tenantID, sensorType string) ([]alerts.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rules []alerts.Rule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID && rule.SensorType == sensorType && rule.Enabled {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}

func (r *RuleRepository) Update(_ context.Context, rule *alerts.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rules[rule.ID]
	if !ok || existing.TenantID != rule.TenantID {
		return alerts.ErrNotFound
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *RuleRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok || rule.TenantID != tenantID {
		return alerts.ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

// AlertRepository is an in-memory alert store used in tests.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]alerts.Alert
}

// NewAlertRepository constructs an empty in-memory alert repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{alerts: map[string]alerts.Alert{}}
}

func (r *AlertRepository) Create(_ context.Context, alert *alerts.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[alert.ID] = *alert
	return nil
}

func (r *AlertRepository) Get(_ context.Context, tenantID, id string) (*alerts.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alert, ok := r.alerts[id]
	if !ok || alert.TenantID != tenantID {
		return nil, nil
	}
	copied := alert
	return &copied, nil
}

func (r *AlertRepository) List(_ context.Context, tenantID string, filter alerts.AlertFilter) ([]alerts.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []alerts.Alert
	for _, alert := range r.alerts {
		if alert.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.AssetID != "" && alert.AssetID != filter.AssetID {
			continue
		}
		list = append(list, alert)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TriggeredAt.After(list[j].TriggeredAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(list) {
			return nil, nil
		}
		list = list[filter.Offset:]
	}
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (r *AlertRepository) FindActiveByRuleAsset(_ context.Context, tenantID, ruleID, assetID string) (*alerts.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, alert := range r.alerts {
		if alert.TenantID == tenantID && alert.RuleID == ruleID && alert.AssetID == assetID && alert.Active() {
			copied := alert
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *AlertRepository) Update(_ context.Context, alert *alerts.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.alerts[alert.ID]
	if !ok || existing.TenantID != alert.TenantID {
		return alerts.ErrNotFound
	}
	r.alerts[alert.ID] = *alert
	return nil
}

func (r *AlertRepository) CountByStatus(_ context.Context, tenantID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[string]int{}
	for _, alert := range r.alerts {
		if alert.TenantID == tenantID {
			counts[alert.Status]++
		}
	}
	return counts, nil
}

func (r *AlertRepository) CountOpenBySeverity(_ context.Context, tenantID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[string]int{}
	for _, alert := range r.alerts {
		if alert.TenantID == tenantID && alert.Active() {
			counts[alert.Severity]++
		}
	}
	return counts, nil
}

// Count reports how many alerts are stored.
func (r *AlertRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alerts)
}

// RuleStateRepository is an in-memory pending state store used in tests.
type RuleStateRepository struct {
	mu     sync.RWMutex
	states map[string]alerts.RuleState
}

// NewRuleStateRepository constructs an empty in-memory state repository.
func NewRuleStateRepository() *RuleStateRepository {
	return &RuleStateRepository{states: map[string]alerts.RuleState{}}
}

func stateKey(tenantID, ruleID, assetID string) string {
	return tenantID + "|" + ruleID + "|" + assetID
}

func (r *RuleStateRepository) Get(_ context.Context, tenantID, ruleID, assetID string) (*alerts.RuleState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[stateKey(tenantID, ruleID, assetID)]
	if !ok {
		return nil, nil
	}
	copied := state
	return &copied, nil
}

func (r *RuleStateRepository) Upsert(_ context.Context, state *alerts.RuleState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[stateKey(state.TenantID, state.RuleID, state.AssetID)] = *state
	return nil
}

func (r *RuleStateRepository) Clear(_ context.Context, tenantID, ruleID, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, stateKey(tenantID, ruleID, assetID))
	return nil
}

// Count reports how many pending states are stored.
func (r *RuleStateRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
