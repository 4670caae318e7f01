package application

import (
	"context"
	"strconv"
	"testing"
	"time"

	"facility-cloud/internal/auth"
	inventory "facility-cloud/internal/inventory/domain"
	"facility-cloud/internal/inventory/infrastructure/memory"
)

type recordingSink struct {
	readings []inventory.Reading
}

func (s *recordingSink) HandleReading(_ context.Context, reading inventory.Reading) error {
	s.readings = append(s.readings, reading)
	return nil
}

func newInventoryService(t *testing.T, sink ReadingSink) *Service {
	t.Helper()
	assets := memory.NewAssetRepository()
	opts := []ServiceOption{}
	if sink != nil {
		opts = append(opts, WithReadingSink(sink))
	}
	service, err := NewService(
		memory.NewPortfolioRepository(),
		memory.NewSiteRepository(),
		memory.NewSystemRepository(),
		assets,
		memory.NewSensorRepository(),
		memory.NewReadingRepository(assets),
		opts...,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func managerContext(tenantID string) context.Context {
	return auth.WithIdentity(context.Background(), tenantID, auth.RoleFacilityManager, "user-mgr")
}

func adminContext(tenantID string) context.Context {
	return auth.WithIdentity(context.Background(), tenantID, auth.RoleAdmin, "user-admin")
}

func TestCreateAssetRequiresExistingSite(t *testing.T) {
	service := newInventoryService(t, nil)
	ctx := managerContext("tenant-1")

	_, err := service.CreateAsset(ctx, inventory.Asset{SiteID: "site-ghost", Name: "Chiller", AssetType: "hvac"})
	if err != inventory.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	site, err := service.CreateSite(ctx, inventory.Site{Name: "HQ"})
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}
	asset, err := service.CreateAsset(ctx, inventory.Asset{SiteID: site.ID, Name: "Chiller", AssetType: "hvac"})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	if asset.Status != inventory.AssetStatusOperational {
		t.Fatalf("status = %q, want operational default", asset.Status)
	}
	if asset.HealthScore != 100 {
		t.Fatalf("health = %v, want 100 default", asset.HealthScore)
	}
}

func TestTenantIsolationOnGet(t *testing.T) {
	service := newInventoryService(t, nil)
	site, err := service.CreateSite(managerContext("tenant-1"), inventory.Site{Name: "HQ"})
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}

	if _, err := service.GetSite(managerContext("tenant-2"), site.ID); err != inventory.ErrNotFound {
		t.Fatalf("cross-tenant err = %v, want ErrNotFound", err)
	}
	if _, err := service.GetSite(managerContext("tenant-1"), site.ID); err != nil {
		t.Fatalf("same-tenant err = %v", err)
	}
}

func TestRecordReadingStoresAndForwards(t *testing.T) {
	sink := &recordingSink{}
	service := newInventoryService(t, sink)
	ctx := managerContext("tenant-1")

	site, _ := service.CreateSite(ctx, inventory.Site{Name: "HQ"})
	asset, _ := service.CreateAsset(ctx, inventory.Asset{SiteID: site.ID, Name: "Chiller", AssetType: "hvac"})
	sensor, err := service.CreateSensor(ctx, inventory.Sensor{AssetID: asset.ID, Name: "Supply Temp", SensorType: inventory.SensorTypeTemperature})
	if err != nil {
		t.Fatalf("CreateSensor: %v", err)
	}

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	reading, err := service.RecordReading(ctx, "tenant-1", sensor.ID, 71.5, at, "http")
	if err != nil {
		t.Fatalf("RecordReading: %v", err)
	}
	if reading.AssetID != asset.ID || reading.SensorType != inventory.SensorTypeTemperature {
		t.Fatalf("reading denormalization wrong: %+v", reading)
	}
	if len(sink.readings) != 1 {
		t.Fatalf("sink readings = %d, want 1", len(sink.readings))
	}
	if sink.readings[0].Value != 71.5 {
		t.Fatalf("sink value = %v", sink.readings[0].Value)
	}
}

func TestRecordReadingRejectsDisabledSensor(t *testing.T) {
	service := newInventoryService(t, nil)
	ctx := managerContext("tenant-1")

	site, _ := service.CreateSite(ctx, inventory.Site{Name: "HQ"})
	asset, _ := service.CreateAsset(ctx, inventory.Asset{SiteID: site.ID, Name: "Chiller", AssetType: "hvac"})
	sensor, _ := service.CreateSensor(ctx, inventory.Sensor{AssetID: asset.ID, Name: "Supply Temp", SensorType: inventory.SensorTypeTemperature})

	disabled := false
	if _, err := service.UpdateSensor(ctx, sensor.ID, inventory.Sensor{}, &disabled); err != nil {
		t.Fatalf("UpdateSensor: %v", err)
	}
	if _, err := service.RecordReading(ctx, "tenant-1", sensor.ID, 71.5, time.Now(), "http"); err == nil {
		t.Fatal("expected disabled sensor reading to be rejected")
	}
}

func TestRecordReadingUnknownSensor(t *testing.T) {
	service := newInventoryService(t, nil)
	if _, err := service.RecordReading(context.Background(), "tenant-1", "sensor-ghost", 1, time.Now(), "http"); err != inventory.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPortfolioWriteRequiresAdmin(t *testing.T) {
	service := newInventoryService(t, nil)

	if _, err := service.CreatePortfolio(managerContext("tenant-1"), inventory.Portfolio{Name: "Campus North"}); err != auth.ErrForbidden {
		t.Fatalf("manager create err = %v, want ErrForbidden", err)
	}

	created, err := service.CreatePortfolio(adminContext("tenant-1"), inventory.Portfolio{Name: "Campus North"})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if _, err := service.UpdatePortfolio(managerContext("tenant-1"), created.ID, inventory.Portfolio{Name: "Renamed"}); err != auth.ErrForbidden {
		t.Fatalf("manager update err = %v, want ErrForbidden", err)
	}
	if err := service.DeletePortfolio(managerContext("tenant-1"), created.ID); err != auth.ErrForbidden {
		t.Fatalf("manager delete err = %v, want ErrForbidden", err)
	}
}

func TestDeletePortfolioBlockedWhenSitesAttached(t *testing.T) {
	service := newInventoryService(t, nil)
	ctx := adminContext("tenant-1")

	portfolio, err := service.CreatePortfolio(ctx, inventory.Portfolio{Name: "Campus North"})
	if err != nil {
		t.Fatalf("CreatePortfolio: %v", err)
	}
	if _, err := service.CreateSite(ctx, inventory.Site{Name: "HQ", PortfolioID: portfolio.ID}); err != nil {
		t.Fatalf("CreateSite: %v", err)
	}

	if err := service.DeletePortfolio(ctx, portfolio.ID); err != inventory.ErrNotEmpty {
		t.Fatalf("err = %v, want ErrNotEmpty", err)
	}

	summaries, err := service.ListPortfolios(ctx, "")
	if err != nil {
		t.Fatalf("ListPortfolios: %v", err)
	}
	if len(summaries) != 1 || summaries[0].SiteCount != 1 {
		t.Fatalf("summaries = %+v, want one portfolio with one site", summaries)
	}
}

func TestCreateSystemRequiresExistingSite(t *testing.T) {
	service := newInventoryService(t, nil)
	ctx := managerContext("tenant-1")

	if _, err := service.CreateSystem(ctx, inventory.System{SiteID: "site-ghost", Name: "HVAC Loop"}); err != inventory.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	site, _ := service.CreateSite(ctx, inventory.Site{Name: "HQ"})
	system, err := service.CreateSystem(ctx, inventory.System{SiteID: site.ID, Name: "HVAC Loop"})
	if err != nil {
		t.Fatalf("CreateSystem: %v", err)
	}

	if _, err := service.CreateAsset(ctx, inventory.Asset{SiteID: site.ID, SystemID: system.ID, Name: "Chiller", AssetType: "hvac"}); err != nil {
		t.Fatalf("CreateAsset with system: %v", err)
	}
	if err := service.DeleteSystem(ctx, system.ID); err != inventory.ErrNotEmpty {
		t.Fatalf("delete err = %v, want ErrNotEmpty", err)
	}

	detail, err := service.GetSystem(ctx, system.ID)
	if err != nil {
		t.Fatalf("GetSystem: %v", err)
	}
	if detail.SiteName != "HQ" || detail.AssetCount != 1 {
		t.Fatalf("detail = %+v, want site name HQ and one asset", detail)
	}
}

func TestCountSitesNotCappedByListLimit(t *testing.T) {
	sites := memory.NewSiteRepository()
	assets := memory.NewAssetRepository()
	service, err := NewService(
		memory.NewPortfolioRepository(),
		sites,
		memory.NewSystemRepository(),
		assets,
		memory.NewSensorRepository(),
		memory.NewReadingRepository(assets),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := managerContext("tenant-1")

	for i := 0; i < 501; i++ {
		site := inventory.Site{ID: "site-" + strconv.Itoa(i), TenantID: "tenant-1", Name: "Site"}
		if err := sites.Create(ctx, &site); err != nil {
			t.Fatalf("seed site %d: %v", i, err)
		}
	}

	count, err := service.CountSites(ctx)
	if err != nil {
		t.Fatalf("CountSites: %v", err)
	}
	if count != 501 {
		t.Fatalf("count = %d, want 501", count)
	}
}

func TestAssetValidationBounds(t *testing.T) {
	service := newInventoryService(t, nil)
	ctx := managerContext("tenant-1")
	site, _ := service.CreateSite(ctx, inventory.Site{Name: "HQ"})

	if _, err := service.CreateAsset(ctx, inventory.Asset{SiteID: site.ID, Name: "Bad", AssetType: "hvac", Criticality: 9}); err == nil {
		t.Fatal("expected criticality out of range to be rejected")
	}
	if _, err := service.CreateAsset(ctx, inventory.Asset{SiteID: site.ID, Name: "Bad", AssetType: "hvac", HealthScore: 150}); err == nil {
		t.Fatal("expected health score out of range to be rejected")
	}
}
