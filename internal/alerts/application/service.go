package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	alerts "facility-cloud/internal/alerts/domain"
	"facility-cloud/internal/audit"
	"facility-cloud/internal/auth"
	inventory "facility-cloud/internal/inventory/domain"
	"facility-cloud/internal/observability/metrics"
)

// Notifier publishes alert lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Event represents an alert lifecycle update pushed to subscribers.
type Event struct {
	Type  string       `json:"type"`
	Alert alerts.Alert `json:"data"`
}

// Event types pushed over the notification relay.
const (
	EventNewAlert    = "new_alert"
	EventAlertUpdate = "alert_update"
)

// AssetResolver looks up the descriptive fields evaluation needs.
type AssetResolver interface {
	ResolveAsset(ctx context.Context, tenantID, assetID string) (name, assetType string, err error)
}

// WorkOrderCreator spawns a work order from an alert.
type WorkOrderCreator interface {
	CreateFromAlert(ctx context.Context, alert alerts.Alert) (workOrderID string, err error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service evaluates readings against rules and drives the alert
// lifecycle.
type Service struct {
	rules      alerts.RuleRepository
	alerts     alerts.AlertRepository
	states     alerts.RuleStateRepository
	assets     AssetResolver
	workOrders WorkOrderCreator
	notifier   Notifier
	auditor    audit.Logger
	clock      Clock
}

// ServiceOption customizes the alert service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithWorkOrderCreator wires work-order creation from alerts.
func WithWorkOrderCreator(creator WorkOrderCreator) ServiceOption {
	return func(s *Service) {
		s.workOrders = creator
	}
}

// WithAuditor assigns an activity logger.
func WithAuditor(logger audit.Logger) ServiceOption {
	return func(s *Service) {
		s.auditor = logger
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs an alert service.
func NewService(rules alerts.RuleRepository, alertsRepo alerts.AlertRepository, states alerts.RuleStateRepository, assets AssetResolver, opts ...ServiceOption) (*Service, error) {
	if rules == nil || alertsRepo == nil || states == nil {
		return nil, errors.New("alerts: nil repository")
	}
	if assets == nil {
		return nil, errors.New("alerts: nil asset resolver")
	}
	service := &Service{
		rules:  rules,
		alerts: alertsRepo,
		states: states,
		assets: assets,
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// HandleReading evaluates one stored reading against the enabled rules
// for its tenant. Implements the inventory reading sink.
func (s *Service) HandleReading(ctx context.Context, reading inventory.Reading) error {
	if s == nil {
		return errors.New("alerts: nil service")
	}
	started := s.clock.Now()
	defer func() {
		metrics.ObserveEvaluation(s.clock.Now().Sub(started))
	}()

	if reading.TenantID == "" || reading.AssetID == "" {
		return errors.New("alerts: reading missing tenant/asset")
	}
	rules, err := s.rules.ListEnabledBySensorType(ctx, reading.TenantID, reading.SensorType)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	assetName, assetType, err := s.assets.ResolveAsset(ctx, reading.TenantID, reading.AssetID)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if !rule.AppliesTo(reading.AssetID, assetType) {
			continue
		}
		if err := s.evaluateRule(ctx, rule, reading, assetName); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) evaluateRule(ctx context.Context, rule alerts.Rule, reading inventory.Reading, assetName string) error {
	at := reading.RecordedAt.UTC()
	if at.IsZero() {
		at = s.clock.Now().UTC()
	}

	if !rule.Triggered(reading.Value) {
		// Condition no longer holds; the duration window restarts.
		_ = s.states.Clear(ctx, reading.TenantID, rule.ID, reading.AssetID)
		return nil
	}

	// At most one active alert per rule+asset pair.
	active, err := s.alerts.FindActiveByRuleAsset(ctx, reading.TenantID, rule.ID, reading.AssetID)
	if err != nil {
		return err
	}
	if active != nil {
		return nil
	}

	if rule.DurationMinutes > 0 {
		state, err := s.states.Get(ctx, reading.TenantID, rule.ID, reading.AssetID)
		if err != nil {
			return err
		}
		if state == nil {
			pending := alerts.RuleState{
				TenantID:     reading.TenantID,
				RuleID:       rule.ID,
				AssetID:      reading.AssetID,
				PendingSince: at,
				LastValue:    reading.Value,
				UpdatedAt:    s.clock.Now().UTC(),
			}
			return s.states.Upsert(ctx, &pending)
		}
		duration := time.Duration(rule.DurationMinutes) * time.Minute
		if at.Sub(state.PendingSince) < duration {
			state.LastValue = reading.Value
			state.UpdatedAt = s.clock.Now().UTC()
			return s.states.Upsert(ctx, state)
		}
		_ = s.states.Clear(ctx, reading.TenantID, rule.ID, reading.AssetID)
	}

	return s.fireAlert(ctx, rule, reading, assetName, at)
}

func (s *Service) fireAlert(ctx context.Context, rule alerts.Rule, reading inventory.Reading, assetName string, at time.Time) error {
	value := reading.Value
	now := s.clock.Now().UTC()
	alert := alerts.Alert{
		ID:             newID("alert"),
		TenantID:       reading.TenantID,
		RuleID:         rule.ID,
		AssetID:        reading.AssetID,
		Title:          fmt.Sprintf("%s: %s %s", rule.Name, reading.SensorType, conditionLabel(rule)),
		Description:    fmt.Sprintf("%s reading %.2f on %s breached rule %q", reading.SensorType, value, assetName, rule.Name),
		Severity:       rule.Severity,
		Status:         alerts.StatusOpen,
		TriggeredAt:    at,
		TriggeredValue: &value,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := alert.Validate(); err != nil {
		return err
	}
	if err := s.alerts.Create(ctx, &alert); err != nil {
		return err
	}
	s.notify(ctx, EventNewAlert, alert)
	return nil
}

// CreateManualAlert stores a user-created alert, typically for testing
// downstream integrations.
func (s *Service) CreateManualAlert(ctx context.Context, assetID, title, description, severity string) (*alerts.Alert, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.assets.ResolveAsset(ctx, tenantID, assetID); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	alert := alerts.Alert{
		ID:          newID("alert"),
		TenantID:    tenantID,
		AssetID:     assetID,
		Title:       title,
		Description: description,
		Severity:    severity,
		Status:      alerts.StatusOpen,
		TriggeredAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := alert.Validate(); err != nil {
		return nil, err
	}
	if err := s.alerts.Create(ctx, &alert); err != nil {
		return nil, err
	}
	s.log(ctx, "alert.create", alert.ID, map[string]any{"asset_id": assetID, "severity": severity})
	s.notify(ctx, EventNewAlert, alert)
	return &alert, nil
}

// GetAlert loads one alert.
func (s *Service) GetAlert(ctx context.Context, id string) (*alerts.Alert, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	alert, err := s.alerts.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, alerts.ErrNotFound
	}
	return alert, nil
}

// ListAlerts returns alerts of the caller's tenant.
func (s *Service) ListAlerts(ctx context.Context, filter alerts.AlertFilter) ([]alerts.Alert, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.alerts.List(ctx, tenantID, filter)
}

// Acknowledge records who acknowledged the alert and when.
func (s *Service) Acknowledge(ctx context.Context, id string) (*alerts.Alert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if err := alert.Transition(alerts.StatusAcknowledged, now); err != nil {
		return nil, err
	}
	alert.AcknowledgedBy = auth.SubjectFromContext(ctx)
	alert.AcknowledgedAt = now
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	s.log(ctx, "alert.acknowledge", alert.ID, nil)
	s.notify(ctx, EventAlertUpdate, *alert)
	return alert, nil
}

// Resolve records the resolution timestamp and notes.
func (s *Service) Resolve(ctx context.Context, id, notes string) (*alerts.Alert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if err := alert.Transition(alerts.StatusResolved, now); err != nil {
		return nil, err
	}
	alert.ResolvedAt = now
	alert.ResolutionNotes = notes
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	s.log(ctx, "alert.resolve", alert.ID, nil)
	s.notify(ctx, EventAlertUpdate, *alert)
	return alert, nil
}

// Close closes a resolved alert. Closed is terminal.
func (s *Service) Close(ctx context.Context, id string) (*alerts.Alert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := alert.Transition(alerts.StatusClosed, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	s.log(ctx, "alert.close", alert.ID, nil)
	s.notify(ctx, EventAlertUpdate, *alert)
	return alert, nil
}

// CreateWorkOrder spawns a linked work order and moves the alert to
// in_progress.
func (s *Service) CreateWorkOrder(ctx context.Context, id string) (*alerts.Alert, error) {
	if s.workOrders == nil {
		return nil, errors.New("alerts: work order creation not configured")
	}
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	switch alert.Status {
	case alerts.StatusOpen, alerts.StatusAcknowledged, alerts.StatusInProgress:
	default:
		return nil, alerts.ErrInvalidTransition
	}
	if alert.WorkOrderID != "" {
		return nil, errors.New("alerts: work order already linked")
	}
	workOrderID, err := s.workOrders.CreateFromAlert(ctx, *alert)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	alert.WorkOrderID = workOrderID
	if alert.Status != alerts.StatusInProgress {
		if err := alert.Transition(alerts.StatusInProgress, now); err != nil {
			return nil, err
		}
	} else {
		alert.UpdatedAt = now
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	s.log(ctx, "alert.create_work_order", alert.ID, map[string]any{"work_order_id": workOrderID})
	s.notify(ctx, EventAlertUpdate, *alert)
	return alert, nil
}

// CreateRule stores a new rule.
func (s *Service) CreateRule(ctx context.Context, rule alerts.Rule) (*alerts.Rule, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	rule.ID = newID("rule")
	rule.TenantID = tenantID
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if rule.AssetID != "" {
		if _, _, err := s.assets.ResolveAsset(ctx, tenantID, rule.AssetID); err != nil {
			return nil, err
		}
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, &rule); err != nil {
		return nil, err
	}
	s.log(ctx, "rule.create", rule.ID, map[string]any{"sensor_type": rule.SensorType, "condition": rule.Condition})
	return &rule, nil
}

// ListRules returns the rules of the caller's tenant.
func (s *Service) ListRules(ctx context.Context) ([]alerts.Rule, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.rules.List(ctx, tenantID)
}

// UpdateRule rewrites a rule's definition.
func (s *Service) UpdateRule(ctx context.Context, id string, changes alerts.Rule, setEnabled *bool) (*alerts.Rule, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	rule, err := s.rules.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, alerts.ErrNotFound
	}
	if changes.Name != "" {
		rule.Name = changes.Name
	}
	if changes.SensorType != "" {
		rule.SensorType = changes.SensorType
	}
	if changes.Condition != "" {
		rule.Condition = changes.Condition
		rule.Threshold = changes.Threshold
		rule.Threshold2 = changes.Threshold2
	} else if changes.Threshold != 0 || changes.Threshold2 != 0 {
		rule.Threshold = changes.Threshold
		rule.Threshold2 = changes.Threshold2
	}
	if changes.DurationMinutes != 0 {
		rule.DurationMinutes = changes.DurationMinutes
	}
	if changes.Severity != "" {
		rule.Severity = changes.Severity
	}
	if setEnabled != nil {
		rule.Enabled = *setEnabled
	}
	rule.UpdatedAt = s.clock.Now().UTC()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	s.log(ctx, "rule.update", rule.ID, nil)
	return rule, nil
}

// DeleteRule removes a rule.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log(ctx, "rule.delete", id, nil)
	return nil
}

// CountByStatus aggregates alert counts for the dashboard.
func (s *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.alerts.CountByStatus(ctx, tenantID)
}

// CountOpenBySeverity aggregates open alert counts for the dashboard.
func (s *Service) CountOpenBySeverity(ctx context.Context) (map[string]int, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.alerts.CountOpenBySeverity(ctx, tenantID)
}

func (s *Service) notify(ctx context.Context, eventType string, alert alerts.Alert) {
	metrics.IncAlertEvent(eventType)
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, Event{Type: eventType, Alert: alert})
}

func (s *Service) tenant(ctx context.Context) (string, error) {
	if s == nil {
		return "", errors.New("alerts: nil service")
	}
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return "", auth.ErrUnauthorized
	}
	return tenantID, nil
}

func (s *Service) log(ctx context.Context, action, resourceID string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	var payload json.RawMessage
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	_ = s.auditor.Log(ctx, audit.Entry{
		TenantID:     auth.TenantIDFromContext(ctx),
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       action,
		ResourceType: "alert",
		ResourceID:   resourceID,
		Metadata:     payload,
		CreatedAt:    s.clock.Now().UTC(),
	})
}

func conditionLabel(rule alerts.Rule) string {
	switch rule.Condition {
	case alerts.ConditionGreater:
		return fmt.Sprintf("above %.2f", rule.Threshold)
	case alerts.ConditionGreaterOrEqual:
		return fmt.Sprintf("at or above %.2f", rule.Threshold)
	case alerts.ConditionLess:
		return fmt.Sprintf("below %.2f", rule.Threshold)
	case alerts.ConditionLessOrEqual:
		return fmt.Sprintf("at or below %.2f", rule.Threshold)
	case alerts.ConditionEqual:
		return fmt.Sprintf("equal to %.2f", rule.Threshold)
	case alerts.ConditionBetween:
		return fmt.Sprintf("between %.2f and %.2f", rule.Threshold, rule.Threshold2)
	default:
		return "threshold breached"
	}
}

func newID(prefix string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
