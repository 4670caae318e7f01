package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"facility-cloud/internal/audit"
	"facility-cloud/internal/auth"
	inventory "facility-cloud/internal/inventory/domain"
	"facility-cloud/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// ReadingSink receives stored readings for further processing.
type ReadingSink interface {
	HandleReading(ctx context.Context, reading inventory.Reading) error
}

// Service manages portfolios, sites, systems, assets, sensors and readings.
type Service struct {
	portfolios inventory.PortfolioRepository
	sites      inventory.SiteRepository
	systems    inventory.SystemRepository
	assets     inventory.AssetRepository
	sensors    inventory.SensorRepository
	readings   inventory.ReadingRepository
	sink       ReadingSink
	auditor    audit.Logger
	clock      Clock
}

// ServiceOption customizes the inventory service.
type ServiceOption func(*Service)

// WithReadingSink forwards stored readings to a sink, typically the
// alert evaluator.
func WithReadingSink(sink ReadingSink) ServiceOption {
	return func(s *Service) {
		s.sink = sink
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

// NewService constructs an inventory service.
func NewService(portfolios inventory.PortfolioRepository, sites inventory.SiteRepository, systems inventory.SystemRepository, assets inventory.AssetRepository, sensors inventory.SensorRepository, readings inventory.ReadingRepository, opts ...ServiceOption) (*Service, error) {
	if portfolios == nil || sites == nil || systems == nil || assets == nil || sensors == nil || readings == nil {
		return nil, errors.New("inventory: nil repository")
	}
	service := &Service{
		portfolios: portfolios,
		sites:      sites,
		systems:    systems,
		assets:     assets,
		sensors:    sensors,
		readings:   readings,
		clock:      systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// PortfolioSummary is a portfolio with its site count.
type PortfolioSummary struct {
	inventory.Portfolio
	SiteCount int `json:"site_count"`
}

// PortfolioDetail is a portfolio with its sites.
type PortfolioDetail struct {
	inventory.Portfolio
	Sites     []inventory.Site `json:"sites"`
	SiteCount int              `json:"site_count"`
}

// CreatePortfolio stores a new portfolio. Admin only.
func (s *Service) CreatePortfolio(ctx context.Context, portfolio inventory.Portfolio) (*inventory.Portfolio, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) != auth.RoleAdmin {
		return nil, auth.ErrForbidden
	}
	now := s.clock.Now().UTC()
	portfolio.ID = newID("portfolio")
	portfolio.TenantID = tenantID
	portfolio.CreatedAt = now
	portfolio.UpdatedAt = now
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}
	if err := s.portfolios.Create(ctx, &portfolio); err != nil {
		return nil, err
	}
	s.log(ctx, "portfolio.create", "portfolio", portfolio.ID, map[string]any{"name": portfolio.Name})
	return &portfolio, nil
}

// GetPortfolio loads one portfolio with its sites.
func (s *Service) GetPortfolio(ctx context.Context, id string) (*PortfolioDetail, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	portfolio, err := s.portfolios.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, inventory.ErrNotFound
	}
	sites, err := s.sites.List(ctx, tenantID, inventory.SiteFilter{Limit: 500})
	if err != nil {
		return nil, err
	}
	detail := PortfolioDetail{Portfolio: *portfolio}
	for _, site := range sites {
		if site.PortfolioID == portfolio.ID {
			detail.Sites = append(detail.Sites, site)
		}
	}
	detail.SiteCount = len(detail.Sites)
	return &detail, nil
}

// ListPortfolios returns portfolios of the caller's tenant with site counts.
func (s *Service) ListPortfolios(ctx context.Context, search string) ([]PortfolioSummary, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	portfolios, err := s.portfolios.List(ctx, tenantID, search)
	if err != nil {
		return nil, err
	}
	summaries := make([]PortfolioSummary, 0, len(portfolios))
	for _, portfolio := range portfolios {
		count, err := s.sites.CountByPortfolio(ctx, tenantID, portfolio.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, PortfolioSummary{Portfolio: portfolio, SiteCount: count})
	}
	return summaries, nil
}

// UpdatePortfolio rewrites the descriptive fields of a portfolio. Admin only.
func (s *Service) UpdatePortfolio(ctx context.Context, id string, changes inventory.Portfolio) (*inventory.Portfolio, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) != auth.RoleAdmin {
		return nil, auth.ErrForbidden
	}
	portfolio, err := s.portfolios.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, inventory.ErrNotFound
	}
	if changes.Name != "" {
		portfolio.Name = changes.Name
	}
	if changes.Description != "" {
		portfolio.Description = changes.Description
	}
	portfolio.UpdatedAt = s.clock.Now().UTC()
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}
	if err := s.portfolios.Update(ctx, portfolio); err != nil {
		return nil, err
	}
	s.log(ctx, "portfolio.update", "portfolio", portfolio.ID, nil)
	return portfolio, nil
}

// DeletePortfolio removes an empty portfolio. Admin only.
func (s *Service) DeletePortfolio(ctx context.Context, id string) error {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	if auth.RoleFromContext(ctx) != auth.RoleAdmin {
		return auth.ErrForbidden
	}
	count, err := s.sites.CountByPortfolio(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return inventory.ErrNotEmpty
	}
	if err := s.portfolios.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log(ctx, "portfolio.delete", "portfolio", id, nil)
	return nil
}

// SystemSummary is a system with its site name and asset count.
type SystemSummary struct {
	inventory.System
	SiteName   string `json:"site_name"`
	AssetCount int    `json:"asset_count"`
}

// SystemDetail is a system with its assets.
type SystemDetail struct {
	inventory.System
	SiteName   string            `json:"site_name"`
	Assets     []inventory.Asset `json:"assets"`
	AssetCount int               `json:"asset_count"`
}

// CreateSystem stores a new system; the site must exist in the tenant.
func (s *Service) CreateSystem(ctx context.Context, system inventory.System) (*inventory.System, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.Get(ctx, tenantID, system.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, inventory.ErrNotFound
	}
	now := s.clock.Now().UTC()
	system.ID = newID("system")
	system.TenantID = tenantID
	system.CreatedAt = now
	system.UpdatedAt = now
	if err := system.Validate(); err != nil {
		return nil, err
	}
	if err := s.systems.Create(ctx, &system); err != nil {
		return nil, err
	}
	s.log(ctx, "system.create", "system", system.ID, map[string]any{"name": system.Name, "site_id": system.SiteID})
	return &system, nil
}

// GetSystem loads one system with its assets.
func (s *Service) GetSystem(ctx context.Context, id string) (*SystemDetail, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	system, err := s.systems.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if system == nil {
		return nil, inventory.ErrNotFound
	}
	detail := SystemDetail{System: *system}
	if site, err := s.sites.Get(ctx, tenantID, system.SiteID); err != nil {
		return nil, err
	} else if site != nil {
		detail.SiteName = site.Name
	}
	assets, err := s.assets.List(ctx, tenantID, inventory.AssetFilter{Limit: 500})
	if err != nil {
		return nil, err
	}
	for _, asset := range assets {
		if asset.SystemID == system.ID {
			detail.Assets = append(detail.Assets, asset)
		}
	}
	detail.AssetCount = len(detail.Assets)
	return &detail, nil
}

// ListSystems returns systems of the caller's tenant with site names
// and asset counts.
func (s *Service) ListSystems(ctx context.Context, filter inventory.SystemFilter) ([]SystemSummary, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	systems, err := s.systems.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	siteNames := map[string]string{}
	summaries := make([]SystemSummary, 0, len(systems))
	for _, system := range systems {
		name, ok := siteNames[system.SiteID]
		if !ok {
			site, err := s.sites.Get(ctx, tenantID, system.SiteID)
			if err != nil {
				return nil, err
			}
			if site != nil {
				name = site.Name
			}
			siteNames[system.SiteID] = name
		}
		count, err := s.assets.CountBySystem(ctx, tenantID, system.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, SystemSummary{System: system, SiteName: name, AssetCount: count})
	}
	return summaries, nil
}

// UpdateSystem rewrites the descriptive fields of a system.
func (s *Service) UpdateSystem(ctx context.Context, id string, changes inventory.System) (*inventory.System, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	system, err := s.systems.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if system == nil {
		return nil, inventory.ErrNotFound
	}
	if changes.Name != "" {
		system.Name = changes.Name
	}
	if changes.Description != "" {
		system.Description = changes.Description
	}
	if changes.SiteID != "" && changes.SiteID != system.SiteID {
		site, err := s.sites.Get(ctx, tenantID, changes.SiteID)
		if err != nil {
			return nil, err
		}
		if site == nil {
			return nil, inventory.ErrNotFound
		}
		system.SiteID = changes.SiteID
	}
	system.UpdatedAt = s.clock.Now().UTC()
	if err := system.Validate(); err != nil {
		return nil, err
	}
	if err := s.systems.Update(ctx, system); err != nil {
		return nil, err
	}
	s.log(ctx, "system.update", "system", system.ID, nil)
	return system, nil
}

// DeleteSystem removes an empty system.
func (s *Service) DeleteSystem(ctx context.Context, id string) error {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	count, err := s.assets.CountBySystem(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return inventory.ErrNotEmpty
	}
	if err := s.systems.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log(ctx, "system.delete", "system", id, nil)
	return nil
}

// CreateSite stores a new site for the caller's tenant.
func (s *Service) CreateSite(ctx context.Context, site inventory.Site) (*inventory.Site, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if site.PortfolioID != "" {
		portfolio, err := s.portfolios.Get(ctx, tenantID, site.PortfolioID)
		if err != nil {
			return nil, err
		}
		if portfolio == nil {
			return nil, inventory.ErrNotFound
		}
	}
	now := s.clock.Now().UTC()
	site.ID = newID("site")
	site.TenantID = tenantID
	site.CreatedAt = now
	site.UpdatedAt = now
	if err := site.Validate(); err != nil {
		return nil, err
	}
	if err := s.sites.Create(ctx, &site); err != nil {
		return nil, err
	}
	s.log(ctx, "site.create", "site", site.ID, map[string]any{"name": site.Name})
	return &site, nil
}

// GetSite loads one site.
func (s *Service) GetSite(ctx context.Context, id string) (*inventory.Site, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, inventory.ErrNotFound
	}
	return site, nil
}

// ListSites returns sites of the caller's tenant.
func (s *Service) ListSites(ctx context.Context, filter inventory.SiteFilter) ([]inventory.Site, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.sites.List(ctx, tenantID, filter)
}

// UpdateSite rewrites the descriptive fields of a site.
func (s *Service) UpdateSite(ctx context.Context, id string, changes inventory.Site) (*inventory.Site, error) {
	site, err := s.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.Name != "" {
		site.Name = changes.Name
	}
	if changes.Address != "" {
		site.Address = changes.Address
	}
	if changes.City != "" {
		site.City = changes.City
	}
	if changes.Country != "" {
		site.Country = changes.Country
	}
	if changes.Timezone != "" {
		site.Timezone = changes.Timezone
	}
	if changes.PortfolioID != "" && changes.PortfolioID != site.PortfolioID {
		portfolio, err := s.portfolios.Get(ctx, site.TenantID, changes.PortfolioID)
		if err != nil {
			return nil, err
		}
		if portfolio == nil {
			return nil, inventory.ErrNotFound
		}
		site.PortfolioID = changes.PortfolioID
	}
	site.UpdatedAt = s.clock.Now().UTC()
	if err := site.Validate(); err != nil {
		return nil, err
	}
	if err := s.sites.Update(ctx, site); err != nil {
		return nil, err
	}
	s.log(ctx, "site.update", "site", site.ID, nil)
	return site, nil
}

// DeleteSite removes a site.
func (s *Service) DeleteSite(ctx context.Context, id string) error {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	if err := s.sites.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log(ctx, "site.delete", "site", id, nil)
	return nil
}

// CreateAsset stores a new asset; the site must exist in the tenant.
func (s *Service) CreateAsset(ctx context.Context, asset inventory.Asset) (*inventory.Asset, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.Get(ctx, tenantID, asset.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, inventory.ErrNotFound
	}
	if asset.SystemID != "" {
		system, err := s.systems.Get(ctx, tenantID, asset.SystemID)
		if err != nil {
			return nil, err
		}
		if system == nil {
			return nil, inventory.ErrNotFound
		}
	}
	now := s.clock.Now().UTC()
	asset.ID = newID("asset")
	asset.TenantID = tenantID
	if asset.Status == "" {
		asset.Status = inventory.AssetStatusOperational
	}
	if asset.Criticality == 0 {
		asset.Criticality = 3
	}
	if asset.HealthScore == 0 {
		asset.HealthScore = 100
	}
	asset.CreatedAt = now
	asset.UpdatedAt = now
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if err := s.assets.Create(ctx, &asset); err != nil {
		return nil, err
	}
	s.log(ctx, "asset.create", "asset", asset.ID, map[string]any{"name": asset.Name, "site_id": asset.SiteID})
	return &asset, nil
}

// GetAsset loads one asset.
func (s *Service) GetAsset(ctx context.Context, id string) (*inventory.Asset, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	asset, err := s.assets.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, inventory.ErrNotFound
	}
	return asset, nil
}

// ListAssets returns assets of the caller's tenant.
func (s *Service) ListAssets(ctx context.Context, filter inventory.AssetFilter) ([]inventory.Asset, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.assets.List(ctx, tenantID, filter)
}

// UpdateAsset rewrites the descriptive fields of an asset.
func (s *Service) UpdateAsset(ctx context.Context, id string, changes inventory.Asset) (*inventory.Asset, error) {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.Name != "" {
		asset.Name = changes.Name
	}
	if changes.AssetType != "" {
		asset.AssetType = changes.AssetType
	}
	if changes.SiteID != "" && changes.SiteID != asset.SiteID {
		site, err := s.sites.Get(ctx, asset.TenantID, changes.SiteID)
		if err != nil {
			return nil, err
		}
		if site == nil {
			return nil, inventory.ErrNotFound
		}
		asset.SiteID = changes.SiteID
	}
	if changes.SystemID != "" && changes.SystemID != asset.SystemID {
		system, err := s.systems.Get(ctx, asset.TenantID, changes.SystemID)
		if err != nil {
			return nil, err
		}
		if system == nil {
			return nil, inventory.ErrNotFound
		}
		asset.SystemID = changes.SystemID
	}
	if changes.Criticality != 0 {
		asset.Criticality = changes.Criticality
	}
	if changes.HealthScore != 0 {
		asset.HealthScore = changes.HealthScore
	}
	if changes.Status != "" {
		asset.Status = changes.Status
	}
	if changes.Location != "" {
		asset.Location = changes.Location
	}
	asset.UpdatedAt = s.clock.Now().UTC()
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, err
	}
	s.log(ctx, "asset.update", "asset", asset.ID, nil)
	return asset, nil
}

// DeleteAsset removes an asset.
func (s *Service) DeleteAsset(ctx context.Context, id string) error {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log(ctx, "asset.delete", "asset", id, nil)
	return nil
}

// CreateSensor attaches a sensor to an asset.
func (s *Service) CreateSensor(ctx context.Context, sensor inventory.Sensor) (*inventory.Sensor, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	asset, err := s.assets.Get(ctx, tenantID, sensor.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, inventory.ErrNotFound
	}
	now := s.clock.Now().UTC()
	sensor.ID = newID("sensor")
	sensor.TenantID = tenantID
	sensor.Enabled = true
	sensor.CreatedAt = now
	sensor.UpdatedAt = now
	if err := sensor.Validate(); err != nil {
		return nil, err
	}
	if err := s.sensors.Create(ctx, &sensor); err != nil {
		return nil, err
	}
	s.log(ctx, "sensor.create", "sensor", sensor.ID, map[string]any{"asset_id": sensor.AssetID, "sensor_type": sensor.SensorType})
	return &sensor, nil
}

// ListSensors returns the sensors of one asset.
func (s *Service) ListSensors(ctx context.Context, assetID string) ([]inventory.Sensor, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.sensors.ListByAsset(ctx, tenantID, assetID)
}

// UpdateSensor rewrites the mutable fields of a sensor.
func (s *Service) UpdateSensor(ctx context.Context, id string, changes inventory.Sensor, setEnabled *bool) (*inventory.Sensor, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	sensor, err := s.sensors.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if sensor == nil {
		return nil, inventory.ErrNotFound
	}
	if changes.Name != "" {
		sensor.Name = changes.Name
	}
	if changes.SensorType != "" {
		sensor.SensorType = changes.SensorType
	}
	if changes.Unit != "" {
		sensor.Unit = changes.Unit
	}
	if setEnabled != nil {
		sensor.Enabled = *setEnabled
	}
	sensor.UpdatedAt = s.clock.Now().UTC()
	if err := sensor.Validate(); err != nil {
		return nil, err
	}
	if err := s.sensors.Update(ctx, sensor); err != nil {
		return nil, err
	}
	s.log(ctx, "sensor.update", "sensor", sensor.ID, nil)
	return sensor, nil
}

// DeleteSensor removes a sensor.
func (s *Service) DeleteSensor(ctx context.Context, id string) error {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	if err := s.sensors.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log(ctx, "sensor.delete", "sensor", id, nil)
	return nil
}

// RecordReading validates the sensor, stores the reading and forwards it
// to the configured sink. Sink failures do not fail the ingest.
func (s *Service) RecordReading(ctx context.Context, tenantID, sensorID string, value float64, recordedAt time.Time, source string) (*inventory.Reading, error) {
	if s == nil {
		return nil, errors.New("inventory: nil service")
	}
	if tenantID == "" {
		tenantID = auth.TenantIDFromContext(ctx)
	}
	if tenantID == "" {
		return nil, auth.ErrUnauthorized
	}
	sensor, err := s.sensors.Get(ctx, tenantID, sensorID)
	if err != nil {
		return nil, err
	}
	if sensor == nil {
		return nil, inventory.ErrNotFound
	}
	if !sensor.Enabled {
		return nil, errors.New("inventory: sensor disabled")
	}
	if recordedAt.IsZero() {
		recordedAt = s.clock.Now()
	}
	reading := inventory.Reading{
		ID:         newID("reading"),
		TenantID:   tenantID,
		SensorID:   sensor.ID,
		AssetID:    sensor.AssetID,
		SensorType: sensor.SensorType,
		Value:      value,
		RecordedAt: recordedAt.UTC(),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}
	if err := s.readings.Insert(ctx, &reading); err != nil {
		return nil, err
	}
	metrics.IncReadingIngested(source)
	if s.sink != nil {
		_ = s.sink.HandleReading(ctx, reading)
	}
	return &reading, nil
}

// ListReadings returns readings for one sensor in a window.
func (s *Service) ListReadings(ctx context.Context, sensorID string, from, to time.Time, limit int) ([]inventory.Reading, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.clock.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	return s.readings.ListBySensor(ctx, tenantID, sensorID, from, to, limit)
}

// CountSites reports how many sites the caller's tenant owns.
func (s *Service) CountSites(ctx context.Context) (int, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return 0, err
	}
	return s.sites.Count(ctx, tenantID)
}

// CountAssets reports how many assets the caller's tenant owns.
func (s *Service) CountAssets(ctx context.Context) (int, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return 0, err
	}
	return s.assets.Count(ctx, tenantID)
}

func (s *Service) tenant(ctx context.Context) (string, error) {
	if s == nil {
		return "", errors.New("inventory: nil service")
	}
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return "", auth.ErrUnauthorized
	}
	return tenantID, nil
}

func (s *Service) log(ctx context.Context, action, resourceType, resourceID string, meta map[string]any) {
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
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     payload,
		CreatedAt:    s.clock.Now().UTC(),
	})
}

func newID(prefix string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
