package application

import (
	"context"
	"errors"
	"testing"
	"time"

	alerts "facility-cloud/internal/alerts/domain"
	"facility-cloud/internal/alerts/infrastructure/memory"
	"facility-cloud/internal/auth"
	inventory "facility-cloud/internal/inventory/domain"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type stubAssetResolver struct {
	assetType string
}

func (r stubAssetResolver) ResolveAsset(_ context.Context, _, assetID string) (string, string, error) {
	if assetID == "" {
		return "", "", inventory.ErrNotFound
	}
	return "Asset " + assetID, r.assetType, nil
}

type recordingNotifier struct {
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) {
	n.events = append(n.events, event)
}

type stubWorkOrderCreator struct {
	created []alerts.Alert
	id      string
}

func (c *stubWorkOrderCreator) CreateFromAlert(_ context.Context, alert alerts.Alert) (string, error) {
	c.created = append(c.created, alert)
	return c.id, nil
}

type fixture struct {
	service  *Service
	rules    *memory.RuleRepository
	alerts   *memory.AlertRepository
	states   *memory.RuleStateRepository
	notifier *recordingNotifier
	clock    *fixedClock
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()
	f := &fixture{
		rules:    memory.NewRuleRepository(),
		alerts:   memory.NewAlertRepository(),
		states:   memory.NewRuleStateRepository(),
		notifier: &recordingNotifier{},
		clock:    &fixedClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)},
	}
	opts = append([]ServiceOption{WithNotifier(f.notifier), WithClock(f.clock)}, opts...)
	service, err := NewService(f.rules, f.alerts, f.states, stubAssetResolver{assetType: "hvac"}, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.service = service
	return f
}

func (f *fixture) seedRule(t *testing.T, rule alerts.Rule) alerts.Rule {
	t.Helper()
	if rule.ID == "" {
		rule.ID = "rule-1"
	}
	rule.TenantID = "tenant-1"
	if rule.Name == "" {
		rule.Name = "High temperature"
	}
	if rule.SensorType == "" {
		rule.SensorType = inventory.SensorTypeTemperature
	}
	if rule.Severity == "" {
		rule.Severity = alerts.SeverityHigh
	}
	rule.Enabled = true
	if err := f.rules.Create(context.Background(), &rule); err != nil {
		t.Fatalf("seed rule: %v", err)
	}
	return rule
}

func reading(assetID string, value float64, at time.Time) inventory.Reading {
	return inventory.Reading{
		ID:         "reading-x",
		TenantID:   "tenant-1",
		SensorID:   "sensor-1",
		AssetID:    assetID,
		SensorType: inventory.SensorTypeTemperature,
		Value:      value,
		RecordedAt: at,
	}
}

func managerContext() context.Context {
	return auth.WithIdentity(context.Background(), "tenant-1", auth.RoleFacilityManager, "user-mgr")
}

func TestDurationWindowFiresOnce(t *testing.T) {
	f := newFixture(t)
	f.seedRule(t, alerts.Rule{Condition: alerts.ConditionGreater, Threshold: 85, DurationMinutes: 15})

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := f.service.HandleReading(context.Background(), reading("asset-x", 90, t0)); err != nil {
		t.Fatalf("first reading: %v", err)
	}
	if f.alerts.Count() != 0 {
		t.Fatal("alert fired before the persistence window elapsed")
	}
	if f.states.Count() != 1 {
		t.Fatalf("pending states = %d, want 1", f.states.Count())
	}

	if err := f.service.HandleReading(context.Background(), reading("asset-x", 90, t0.Add(20*time.Minute))); err != nil {
		t.Fatalf("second reading: %v", err)
	}
	if f.alerts.Count() != 1 {
		t.Fatalf("alerts = %d, want exactly 1", f.alerts.Count())
	}
	if f.states.Count() != 0 {
		t.Fatalf("pending states = %d, want 0 after firing", f.states.Count())
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Type != EventNewAlert {
		t.Fatalf("events = %+v, want one new_alert", f.notifier.events)
	}
	fired := f.notifier.events[0].Alert
	if fired.Severity != alerts.SeverityHigh {
		t.Fatalf("severity = %q, want copied from rule", fired.Severity)
	}
	if fired.TriggeredValue == nil || *fired.TriggeredValue != 90 {
		t.Fatalf("triggered value = %v", fired.TriggeredValue)
	}
}

func TestRecoveryClearsPendingState(t *testing.T) {
	f := newFixture(t)
	f.seedRule(t, alerts.Rule{Condition: alerts.ConditionGreater, Threshold: 85, DurationMinutes: 15})

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 90, t0))
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 70, t0.Add(5*time.Minute)))
	if f.states.Count() != 0 {
		t.Fatal("recovery reading should clear the pending state")
	}

	// The window restarts from scratch afterwards.
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 90, t0.Add(10*time.Minute)))
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 90, t0.Add(20*time.Minute)))
	if f.alerts.Count() != 0 {
		t.Fatal("alert fired although the condition did not hold long enough")
	}
}

func TestDeduplicationBlocksSecondAlert(t *testing.T) {
	f := newFixture(t)
	f.seedRule(t, alerts.Rule{Condition: alerts.ConditionGreater, Threshold: 85})

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 90, t0))
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 95, t0.Add(time.Minute)))
	if f.alerts.Count() != 1 {
		t.Fatalf("alerts = %d, want 1 active alert per rule+asset", f.alerts.Count())
	}

	// A closed alert no longer blocks a new one.
	list, _ := f.alerts.List(context.Background(), "tenant-1", alerts.AlertFilter{})
	alert := list[0]
	alert.Status = alerts.StatusResolved
	_ = f.alerts.Update(context.Background(), &alert)
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 95, t0.Add(2*time.Minute)))
	if f.alerts.Count() != 2 {
		t.Fatalf("alerts = %d, want new alert after resolution", f.alerts.Count())
	}
}

func TestRuleScopingByAssetAndType(t *testing.T) {
	f := newFixture(t)
	f.seedRule(t, alerts.Rule{ID: "rule-specific", AssetID: "asset-x", Condition: alerts.ConditionGreater, Threshold: 85})
	f.seedRule(t, alerts.Rule{ID: "rule-type", AssetType: "chiller", Condition: alerts.ConditionGreater, Threshold: 85})

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	// Resolver reports asset type "hvac", so only the specific rule applies.
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 90, t0))
	if f.alerts.Count() != 1 {
		t.Fatalf("alerts = %d, want 1 from the asset-specific rule", f.alerts.Count())
	}
	if f.notifier.events[0].Alert.RuleID != "rule-specific" {
		t.Fatalf("rule = %q", f.notifier.events[0].Alert.RuleID)
	}

	// A different asset matches neither.
	_ = f.service.HandleReading(context.Background(), reading("asset-y", 90, t0))
	if f.alerts.Count() != 1 {
		t.Fatal("type-scoped rule fired for an asset of another type")
	}
}

func TestBetweenCondition(t *testing.T) {
	f := newFixture(t)
	f.seedRule(t, alerts.Rule{Condition: alerts.ConditionBetween, Threshold: 40, Threshold2: 60})

	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 39.9, t0))
	if f.alerts.Count() != 0 {
		t.Fatal("value below band should not trigger")
	}
	_ = f.service.HandleReading(context.Background(), reading("asset-x", 50, t0.Add(time.Minute)))
	if f.alerts.Count() != 1 {
		t.Fatal("value inside band should trigger")
	}
}

func TestAlertLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := managerContext()

	alert, err := f.service.CreateManualAlert(ctx, "asset-x", "Manual check", "", alerts.SeverityMedium)
	if err != nil {
		t.Fatalf("CreateManualAlert: %v", err)
	}
	if alert.Status != alerts.StatusOpen {
		t.Fatalf("status = %q", alert.Status)
	}

	acked, err := f.service.Acknowledge(ctx, alert.ID)
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if acked.AcknowledgedBy != "user-mgr" || acked.AcknowledgedAt.IsZero() {
		t.Fatalf("ack fields not recorded: %+v", acked)
	}

	resolved, err := f.service.Resolve(ctx, alert.ID, "replaced the valve")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ResolutionNotes != "replaced the valve" || resolved.ResolvedAt.IsZero() {
		t.Fatalf("resolve fields not recorded: %+v", resolved)
	}

	closed, err := f.service.Close(ctx, alert.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != alerts.StatusClosed {
		t.Fatalf("status = %q", closed.Status)
	}

	// Closed is terminal.
	if _, err := f.service.Acknowledge(ctx, alert.ID); !errors.Is(err, alerts.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCloseRequiresResolved(t *testing.T) {
	f := newFixture(t)
	ctx := managerContext()

	alert, err := f.service.CreateManualAlert(ctx, "asset-x", "Manual check", "", alerts.SeverityLow)
	if err != nil {
		t.Fatalf("CreateManualAlert: %v", err)
	}
	if _, err := f.service.Close(ctx, alert.ID); !errors.Is(err, alerts.ErrInvalidTransition) {
		t.Fatalf("close from open err = %v, want ErrInvalidTransition", err)
	}
}

func TestCreateWorkOrderLinksAndMovesInProgress(t *testing.T) {
	creator := &stubWorkOrderCreator{id: "wo-1"}
	f := newFixture(t, WithWorkOrderCreator(creator))
	ctx := managerContext()

	alert, err := f.service.CreateManualAlert(ctx, "asset-x", "Manual check", "", alerts.SeverityHigh)
	if err != nil {
		t.Fatalf("CreateManualAlert: %v", err)
	}
	updated, err := f.service.CreateWorkOrder(ctx, alert.ID)
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	if updated.WorkOrderID != "wo-1" {
		t.Fatalf("work order id = %q", updated.WorkOrderID)
	}
	if updated.Status != alerts.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", updated.Status)
	}
	if len(creator.created) != 1 {
		t.Fatalf("creator calls = %d", len(creator.created))
	}

	// Only one linked work order per alert.
	if _, err := f.service.CreateWorkOrder(ctx, alert.ID); err == nil {
		t.Fatal("expected second create-work-order to fail")
	}
}

func TestCreateWorkOrderRejectedOnResolvedAlert(t *testing.T) {
	creator := &stubWorkOrderCreator{id: "wo-1"}
	f := newFixture(t, WithWorkOrderCreator(creator))
	ctx := managerContext()

	alert, _ := f.service.CreateManualAlert(ctx, "asset-x", "Manual check", "", alerts.SeverityHigh)
	if _, err := f.service.Resolve(ctx, alert.ID, "done"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := f.service.CreateWorkOrder(ctx, alert.ID); !errors.Is(err, alerts.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	alert, err := f.service.CreateManualAlert(managerContext(), "asset-x", "Manual check", "", alerts.SeverityLow)
	if err != nil {
		t.Fatalf("CreateManualAlert: %v", err)
	}
	otherTenant := auth.WithIdentity(context.Background(), "tenant-2", auth.RoleAdmin, "user-other")
	if _, err := f.service.GetAlert(otherTenant, alert.ID); !errors.Is(err, alerts.ErrNotFound) {
		t.Fatalf("cross-tenant err = %v, want ErrNotFound", err)
	}
}
