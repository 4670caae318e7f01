package application

import (
	"context"
	"errors"
	"testing"
	"time"

	alerts "facility-cloud/internal/alerts/domain"
	alertsmem "facility-cloud/internal/alerts/infrastructure/memory"
	"facility-cloud/internal/auth"
	inventory "facility-cloud/internal/inventory/domain"
	inventorymem "facility-cloud/internal/inventory/infrastructure/memory"
	workorders "facility-cloud/internal/workorders/domain"
	workordersmem "facility-cloud/internal/workorders/infrastructure/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var reportTime = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service  *Service
	alerts   *alertsmem.AlertRepository
	orders   *workordersmem.Repository
	sites    *inventorymem.SiteRepository
	assets   *inventorymem.AssetRepository
	readings *inventorymem.ReadingRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	alertRepo := alertsmem.NewAlertRepository()
	orderRepo := workordersmem.NewRepository()
	siteRepo := inventorymem.NewSiteRepository()
	assetRepo := inventorymem.NewAssetRepository()
	readingRepo := inventorymem.NewReadingRepository(assetRepo)
	service, err := NewService(alertRepo, orderRepo, readingRepo, siteRepo, WithClock(fixedClock{now: reportTime}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{service: service, alerts: alertRepo, orders: orderRepo, sites: siteRepo, assets: assetRepo, readings: readingRepo}
}

func reportCtx() context.Context {
	return auth.WithIdentity(context.Background(), "tenant-1", auth.RoleExecutive, "user-exec")
}

func TestAlertsReportCountsBySeverityAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := reportCtx()
	for i, alert := range []alerts.Alert{
		{ID: "alert-1", Severity: alerts.SeverityHigh, Status: alerts.StatusOpen},
		{ID: "alert-2", Severity: alerts.SeverityHigh, Status: alerts.StatusResolved},
		{ID: "alert-3", Severity: alerts.SeverityLow, Status: alerts.StatusOpen},
	} {
		alert.TenantID = "tenant-1"
		alert.AssetID = "asset-1"
		alert.Title = "alert"
		alert.TriggeredAt = reportTime.Add(time.Duration(-i) * time.Hour)
		if err := f.alerts.Create(ctx, &alert); err != nil {
			t.Fatalf("seed alert: %v", err)
		}
	}

	report, err := f.service.Alerts(ctx, "", "")
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("rows = %d", len(report.Rows))
	}
	if report.BySeverity[alerts.SeverityHigh] != 2 || report.BySeverity[alerts.SeverityLow] != 1 {
		t.Fatalf("by_severity = %v", report.BySeverity)
	}
	if report.ByStatus[alerts.StatusOpen] != 2 {
		t.Fatalf("by_status = %v", report.ByStatus)
	}

	filtered, err := f.service.Alerts(ctx, alerts.StatusOpen, "")
	if err != nil {
		t.Fatalf("Alerts filtered: %v", err)
	}
	if len(filtered.Rows) != 2 {
		t.Fatalf("filtered rows = %d", len(filtered.Rows))
	}
}

func TestWorkOrdersReportSumsHours(t *testing.T) {
	f := newFixture(t)
	ctx := reportCtx()
	for _, workOrder := range []workorders.WorkOrder{
		{ID: "wo-1", Status: workorders.StatusCompleted, TimeSpentHours: 2.5},
		{ID: "wo-2", Status: workorders.StatusCompleted, TimeSpentHours: 1.5},
		{ID: "wo-3", Status: workorders.StatusOpen},
	} {
		workOrder.TenantID = "tenant-1"
		workOrder.Title = "wo"
		workOrder.CreatedAt = reportTime
		if err := f.orders.Create(ctx, &workOrder); err != nil {
			t.Fatalf("seed work order: %v", err)
		}
	}

	report, err := f.service.WorkOrders(ctx, "")
	if err != nil {
		t.Fatalf("WorkOrders: %v", err)
	}
	if report.TotalHours != 4 {
		t.Fatalf("total_hours = %v", report.TotalHours)
	}
	if report.ByStatus[workorders.StatusCompleted] != 2 || report.ByStatus[workorders.StatusOpen] != 1 {
		t.Fatalf("by_status = %v", report.ByStatus)
	}
}

func TestEnergyReportGroupsBySite(t *testing.T) {
	f := newFixture(t)
	ctx := reportCtx()
	_ = f.sites.Create(ctx, &inventory.Site{ID: "site-1", TenantID: "tenant-1", Name: "HQ"})
	_ = f.sites.Create(ctx, &inventory.Site{ID: "site-2", TenantID: "tenant-1", Name: "Plant"})
	_ = f.assets.Create(ctx, &inventory.Asset{ID: "asset-1", TenantID: "tenant-1", SiteID: "site-1", Name: "Chiller"})
	_ = f.assets.Create(ctx, &inventory.Asset{ID: "asset-2", TenantID: "tenant-1", SiteID: "site-2", Name: "Compressor"})

	for _, reading := range []inventory.Reading{
		{SensorID: "sensor-1", AssetID: "asset-1", SensorType: inventory.SensorTypePower, Value: 100},
		{SensorID: "sensor-1", AssetID: "asset-1", SensorType: inventory.SensorTypePower, Value: 50},
		{SensorID: "sensor-2", AssetID: "asset-2", SensorType: inventory.SensorTypePower, Value: 30},
		{SensorID: "sensor-3", AssetID: "asset-1", SensorType: inventory.SensorTypeTemperature, Value: 999},
	} {
		reading.TenantID = "tenant-1"
		reading.RecordedAt = reportTime.Add(-time.Hour)
		if err := f.readings.Insert(ctx, &reading); err != nil {
			t.Fatalf("seed reading: %v", err)
		}
	}

	report, err := f.service.Energy(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Energy: %v", err)
	}
	if report.Total != 180 {
		t.Fatalf("total = %v", report.Total)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("rows = %d: %+v", len(report.Rows), report.Rows)
	}
	if report.Rows[0].SiteID != "site-1" || report.Rows[0].Total != 150 || report.Rows[0].SiteName != "HQ" {
		t.Fatalf("site-1 row = %+v", report.Rows[0])
	}
	if report.Rows[1].SiteID != "site-2" || report.Rows[1].Total != 30 {
		t.Fatalf("site-2 row = %+v", report.Rows[1])
	}
}

func TestReportsRequireIdentity(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Alerts(context.Background(), "", ""); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
