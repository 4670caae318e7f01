package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"facility-cloud/internal/audit"
	"facility-cloud/internal/auth"
	woapp "facility-cloud/internal/workorders/application"
	workorders "facility-cloud/internal/workorders/domain"
	worepo "facility-cloud/internal/workorders/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Exercises the full lifecycle against real tables. Skips without PG_DSN.
func TestWorkOrderLifecycle_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "work_orders") || !tableExists(db, "work_order_history") || !tableExists(db, "activity_logs") {
		t.Skip("missing tables; run migrations")
	}

	ctx := context.Background()
	tenantID := "tenant-it-wo"
	_, _ = db.ExecContext(ctx, "DELETE FROM work_order_history WHERE tenant_id = $1", tenantID)
	_, _ = db.ExecContext(ctx, "DELETE FROM work_orders WHERE tenant_id = $1", tenantID)

	repo, err := worepo.NewRepository(db)
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	history, err := worepo.NewHistoryRepository(db)
	if err != nil {
		t.Fatalf("history repository: %v", err)
	}
	service, err := woapp.NewService(repo, history, woapp.WithAuditor(audit.NewRepository(db)))
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	managerCtx := auth.WithIdentity(ctx, tenantID, auth.RoleFacilityManager, "user-it-mgr")

	workOrder, err := service.Create(managerCtx, woapp.CreateInput{
		Title:       "Replace filter bank",
		Description: "Quarterly filter replacement on AHU 3.",
		Type:        workorders.TypePreventive,
		Priority:    workorders.PriorityMedium,
		AssetID:     "asset-it-1",
		DueDate:     time.Now().UTC().AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.Assign(managerCtx, workOrder.ID, "user-it-tech", "routine"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := service.ChangeStatus(managerCtx, workOrder.ID, woapp.StatusChange{Target: workorders.StatusInProgress}); err != nil {
		t.Fatalf("start: %v", err)
	}
	completed, err := service.ChangeStatus(managerCtx, workOrder.ID, woapp.StatusChange{
		Target:          workorders.StatusCompleted,
		ResolutionNotes: "Replaced all filters in the bank and verified differential pressure is nominal.",
		TimeSpentHours:  2.5,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.CompletedAt.IsZero() {
		t.Fatal("completed_at not set")
	}

	reloaded, err := service.Get(managerCtx, workOrder.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != workorders.StatusCompleted || reloaded.TimeSpentHours != 2.5 {
		t.Fatalf("reloaded = %+v", reloaded)
	}

	entries, err := service.History(managerCtx, workOrder.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// created + assign + start + complete
	if len(entries) != 4 {
		t.Fatalf("history entries = %d, want 4", len(entries))
	}
	if entries[0].Action != workorders.HistoryCreated {
		t.Fatalf("first entry action = %s", entries[0].Action)
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
