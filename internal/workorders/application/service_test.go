package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"facility-cloud/internal/auth"
	"facility-cloud/internal/workorders/infrastructure/memory"

	alerts "facility-cloud/internal/alerts/domain"
	workorders "facility-cloud/internal/workorders/domain"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type staticDirectory struct {
	users []Assignee
}

func (d staticDirectory) ListAssignable(context.Context, string) ([]Assignee, error) {
	return d.users, nil
}

func (d staticDirectory) Exists(_ context.Context, _ string, userID string) (bool, error) {
	for _, user := range d.users {
		if user.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	service *Service
	orders  *memory.Repository
	history *memory.HistoryRepository
	clock   *fixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := memory.NewRepository()
	history := memory.NewHistoryRepository()
	clock := &fixedClock{now: time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)}
	service, err := NewService(orders, history,
		WithClock(clock),
		WithDirectory(staticDirectory{users: []Assignee{
			{ID: "user-tech", Name: "Dana Ortiz", Role: "technician"},
			{ID: "user-tech-2", Name: "Lee Park", Role: "technician"},
		}}),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{service: service, orders: orders, history: history, clock: clock}
}

func managerCtx() context.Context {
	return auth.WithIdentity(context.Background(), "tenant-1", auth.RoleFacilityManager, "user-mgr")
}

func technicianCtx(subject string) context.Context {
	return auth.WithIdentity(context.Background(), "tenant-1", auth.RoleTechnician, subject)
}

func (f *fixture) createOpen(t *testing.T) *workorders.WorkOrder {
	t.Helper()
	workOrder, err := f.service.Create(managerCtx(), CreateInput{
		Title:       "Inspect chiller pump",
		Description: "Vibration above normal on pump 2.",
		Type:        workorders.TypePreventive,
		Priority:    workorders.PriorityHigh,
		AssetID:     "asset-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return workOrder
}

func (f *fixture) mustStatus(t *testing.T, ctx context.Context, id string, change StatusChange) *workorders.WorkOrder {
	t.Helper()
	workOrder, err := f.service.ChangeStatus(ctx, id, change)
	if err != nil {
		t.Fatalf("ChangeStatus to %s: %v", change.Target, err)
	}
	return workOrder
}

const validNotes = "Replaced the worn bearing on pump 2 and verified vibration is back within limits."

func TestCreateStartsOpenWithCreationHistory(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)

	if workOrder.Status != workorders.StatusOpen {
		t.Fatalf("status = %s, want open", workOrder.Status)
	}
	if workOrder.CreatedBy != "user-mgr" {
		t.Fatalf("created_by = %s", workOrder.CreatedBy)
	}
	entries, err := f.service.History(managerCtx(), workOrder.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	if entries[0].Action != workorders.HistoryCreated || entries[0].NewValue != workorders.StatusOpen {
		t.Fatalf("unexpected creation entry: %+v", entries[0])
	}
}

func TestAssignRecordsOldAndNewAssignee(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)

	assigned, err := f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "take a look today")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if assigned.Status != workorders.StatusAssigned || assigned.AssigneeID != "user-tech" {
		t.Fatalf("unexpected work order after assign: %+v", assigned)
	}

	entries, _ := f.service.History(managerCtx(), workOrder.ID)
	last := entries[len(entries)-1]
	if last.Action != workorders.HistoryAssigned {
		t.Fatalf("action = %s, want assigned", last.Action)
	}
	if last.OldValue != "" || last.NewValue != "user-tech" {
		t.Fatalf("assignment values = %q -> %q", last.OldValue, last.NewValue)
	}
	if last.Actor != "user-mgr" {
		t.Fatalf("actor = %s", last.Actor)
	}
}

func TestAssignDeniedToTechnician(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	before := f.history.Count()

	_, err := f.service.Assign(technicianCtx("user-tech"), workOrder.ID, "user-tech", "")
	if !errors.Is(err, workorders.ErrRoleNotAllowed) {
		t.Fatalf("err = %v, want ErrRoleNotAllowed", err)
	}
	if f.history.Count() != before {
		t.Fatal("denied assignment appended history")
	}
	reloaded, _ := f.service.Get(managerCtx(), workOrder.ID)
	if reloaded.Status != workorders.StatusOpen {
		t.Fatalf("status changed to %s", reloaded.Status)
	}
}

func TestAssignRejectsUnknownAssignee(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)

	if _, err := f.service.Assign(managerCtx(), workOrder.ID, "user-ghost", ""); err == nil {
		t.Fatal("expected unknown assignee to be rejected")
	}
}

func TestCompletionGuardRejectsShortNotes(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	before := f.history.Count()

	_, err := f.service.ChangeStatus(managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: "fixed it",
		TimeSpentHours:  1.5,
	})
	if !errors.Is(err, workorders.ErrCompletionGuard) {
		t.Fatalf("err = %v, want ErrCompletionGuard", err)
	}
	if f.history.Count() != before {
		t.Fatal("rejected completion appended history")
	}
	reloaded, _ := f.service.Get(managerCtx(), workOrder.ID)
	if reloaded.Status != workorders.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", reloaded.Status)
	}
}

func TestCompletionGuardRequiresTimeSpent(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})

	_, err := f.service.ChangeStatus(managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: validNotes,
	})
	if !errors.Is(err, workorders.ErrCompletionGuard) {
		t.Fatalf("err = %v, want ErrCompletionGuard", err)
	}
}

func TestCompletionGuardCountsRunesNotBytes(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})

	// 25 two-byte characters: 50 bytes but only 25 characters.
	_, err := f.service.ChangeStatus(managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: strings.Repeat("é", 25),
		TimeSpentHours:  2,
	})
	if !errors.Is(err, workorders.ErrCompletionGuard) {
		t.Fatalf("err = %v, want ErrCompletionGuard", err)
	}
	reloaded, _ := f.service.Get(managerCtx(), workOrder.ID)
	if reloaded.Status != workorders.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", reloaded.Status)
	}

	completed := f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: strings.Repeat("é", 50),
		TimeSpentHours:  2,
	})
	if completed.Status != workorders.StatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}
}

func TestCompletionSetsCompletedAt(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	f.clock.Advance(2 * time.Hour)

	completed := f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: validNotes,
		TimeSpentHours:  2,
	})
	if completed.Status != workorders.StatusCompleted {
		t.Fatalf("status = %s", completed.Status)
	}
	if !completed.CompletedAt.Equal(f.clock.Now()) {
		t.Fatalf("completed_at = %v, want %v", completed.CompletedAt, f.clock.Now())
	}
	if len(strings.TrimSpace(completed.ResolutionNotes)) < 50 {
		t.Fatal("resolution notes not stored")
	}
}

func TestFullLifecycleAppendsOneEntryPerTransition(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusOnHold, Note: "waiting on parts"})
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: validNotes,
		TimeSpentHours:  3,
	})
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusClosed})

	entries, err := f.service.History(managerCtx(), workOrder.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	// created + assign + 5 status changes
	if len(entries) != 7 {
		t.Fatalf("history entries = %d, want 7", len(entries))
	}
	for i, entry := range entries[2:] {
		if entry.Action != workorders.HistoryStatusChanged {
			t.Fatalf("entry %d action = %s", i+2, entry.Action)
		}
		if entry.OldValue == "" || entry.NewValue == "" {
			t.Fatalf("entry %d missing values: %+v", i+2, entry)
		}
	}
	if entries[6].OldValue != workorders.StatusCompleted || entries[6].NewValue != workorders.StatusClosed {
		t.Fatalf("close entry = %q -> %q", entries[6].OldValue, entries[6].NewValue)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: validNotes,
		TimeSpentHours:  1,
	})
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusClosed})

	_, err := f.service.ChangeStatus(managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	if !errors.Is(err, workorders.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelNotAllowedAfterCompletion(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	f.mustStatus(t, managerCtx(), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: validNotes,
		TimeSpentHours:  1,
	})

	_, err := f.service.ChangeStatus(managerCtx(), workOrder.ID, StatusChange{Target: workorders.StatusCancelled})
	if !errors.Is(err, workorders.ErrInvalidTransition) {
		t.Fatalf("cancel from completed: err = %v, want ErrInvalidTransition", err)
	}

	other := f.createOpen(t)
	cancelled := f.mustStatus(t, managerCtx(), other.ID, StatusChange{Target: workorders.StatusCancelled})
	if cancelled.Status != workorders.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
}

func TestCloseDeniedToTechnician(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")
	f.mustStatus(t, technicianCtx("user-tech"), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	f.mustStatus(t, technicianCtx("user-tech"), workOrder.ID, StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: validNotes,
		TimeSpentHours:  1,
	})

	_, err := f.service.ChangeStatus(technicianCtx("user-tech"), workOrder.ID, StatusChange{Target: workorders.StatusClosed})
	if !errors.Is(err, workorders.ErrRoleNotAllowed) {
		t.Fatalf("err = %v, want ErrRoleNotAllowed", err)
	}
}

func TestTechnicianCannotTouchOthersWork(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)
	f.service.Assign(managerCtx(), workOrder.ID, "user-tech", "")

	_, err := f.service.ChangeStatus(technicianCtx("user-tech-2"), workOrder.ID, StatusChange{Target: workorders.StatusInProgress})
	if !errors.Is(err, workorders.ErrNotAssignee) {
		t.Fatalf("err = %v, want ErrNotAssignee", err)
	}
	_, err = f.service.Update(technicianCtx("user-tech-2"), workOrder.ID, UpdateInput{Title: "hijacked"})
	if !errors.Is(err, workorders.ErrNotAssignee) {
		t.Fatalf("update err = %v, want ErrNotAssignee", err)
	}
}

func TestCreateFromAlertLinksAndMapsPriority(t *testing.T) {
	f := newFixture(t)
	ctx := managerCtx()
	id, err := f.service.CreateFromAlert(ctx, alerts.Alert{
		ID:          "alert-9",
		TenantID:    "tenant-1",
		AssetID:     "asset-1",
		Title:       "Chiller 1: temperature above threshold",
		Description: "Reading held above 85 for 15 minutes.",
		Severity:    alerts.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("CreateFromAlert: %v", err)
	}
	workOrder, err := f.service.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if workOrder.AlertID != "alert-9" {
		t.Fatalf("alert_id = %s", workOrder.AlertID)
	}
	if workOrder.Type != workorders.TypeReactive {
		t.Fatalf("type = %s", workOrder.Type)
	}
	if workOrder.Priority != workorders.PriorityCritical {
		t.Fatalf("priority = %s", workOrder.Priority)
	}
}

func TestUpdateLeavesStatusAlone(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)

	updated, err := f.service.Update(managerCtx(), workOrder.ID, UpdateInput{
		Title:    "Inspect chiller pump 2",
		Priority: workorders.PriorityCritical,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != workorders.StatusOpen {
		t.Fatalf("status = %s", updated.Status)
	}
	if updated.Priority != workorders.PriorityCritical {
		t.Fatalf("priority = %s", updated.Priority)
	}
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	workOrder := f.createOpen(t)

	otherTenant := auth.WithIdentity(context.Background(), "tenant-2", auth.RoleAdmin, "user-x")
	if _, err := f.service.Get(otherTenant, workOrder.ID); !errors.Is(err, workorders.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	list, err := f.service.List(otherTenant, workorders.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("cross-tenant list returned %d orders", len(list))
	}
}

func TestCountByStatus(t *testing.T) {
	f := newFixture(t)
	first := f.createOpen(t)
	f.createOpen(t)
	f.service.Assign(managerCtx(), first.ID, "user-tech", "")

	counts, err := f.service.CountByStatus(managerCtx())
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[workorders.StatusOpen] != 1 || counts[workorders.StatusAssigned] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
