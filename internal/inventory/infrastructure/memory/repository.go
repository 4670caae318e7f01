package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	inventory "facility-cloud/internal/inventory/domain"
)

// SiteRepository is an in-memory site store used in tests.
type SiteRepository struct {
	mu    sync.RWMutex
	sites map[string]inventory.Site
}

// NewSiteRepository constructs an empty in-memory site repository.
func NewSiteRepository() *SiteRepository {
	return &SiteRepository{sites: map[string]inventory.Site{}}
}

func (r *SiteRepository) Create(_ context.Context, site *inventory.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[site.ID] = *site
	return nil
}

func (r *SiteRepository) Get(_ context.Context, tenantID, id string) (*inventory.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.sites[id]
	if !ok || site.TenantID != tenantID {
		return nil, nil
	}
	copied := site
	return &copied, nil
}

func (r *SiteRepository) List(_ context.Context, tenantID string, filter inventory.SiteFilter) ([]inventory.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sites []inventory.Site
	for _, site := range r.sites {
		if site.TenantID != tenantID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(site.Name), strings.ToLower(filter.Search)) {
			continue
		}
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Name < sites[j].Name })
	return paginate(sites, filter.Limit, filter.Offset), nil
}

func (r *SiteRepository) Update(_ context.Context, site *inventory.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.sites[site.ID]
	if !ok || existing.TenantID != site.TenantID {
		return inventory.ErrNotFound
	}
	r.sites[site.ID] = *site
	return nil
}

func (r *SiteRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	site, ok := r.sites[id]
	if !ok || site.TenantID != tenantID {
		return inventory.ErrNotFound
	}
	delete(r.sites, id)
	return nil
}

// Count reports how many sites the tenant owns.
func (r *SiteRepository) Count(_ context.Context, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, site := range r.sites {
		if site.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

// CountByPortfolio reports how many sites belong to one portfolio.
func (r *SiteRepository) CountByPortfolio(_ context.Context, tenantID, portfolioID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, site := range r.sites {
		if site.TenantID == tenantID && site.PortfolioID == portfolioID {
			count++
		}
	}
	return count, nil
}

// PortfolioRepository is an in-memory portfolio store used in tests.
type PortfolioRepository struct {
	mu         sync.RWMutex
	portfolios map[string]inventory.Portfolio
}

// NewPortfolioRepository constructs an empty in-memory portfolio repository.
func NewPortfolioRepository() *PortfolioRepository {
	return &PortfolioRepository{portfolios: map[string]inventory.Portfolio{}}
}

func (r *PortfolioRepository) Create(_ context.Context, portfolio *inventory.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[portfolio.ID] = *portfolio
	return nil
}

func (r *PortfolioRepository) Get(_ context.Context, tenantID, id string) (*inventory.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	portfolio, ok := r.portfolios[id]
	if !ok || portfolio.TenantID != tenantID {
		return nil, nil
	}
	copied := portfolio
	return &copied, nil
}

func (r *PortfolioRepository) List(_ context.Context, tenantID, search string) ([]inventory.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var portfolios []inventory.Portfolio
	for _, portfolio := range r.portfolios {
		if portfolio.TenantID != tenantID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(portfolio.Name), strings.ToLower(search)) {
			continue
		}
		portfolios = append(portfolios, portfolio)
	}
	sort.Slice(portfolios, func(i, j int) bool { return portfolios[i].Name < portfolios[j].Name })
	return portfolios, nil
}

func (r *PortfolioRepository) Update(_ context.Context, portfolio *inventory.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.portfolios[portfolio.ID]
	if !ok || existing.TenantID != portfolio.TenantID {
		return inventory.ErrNotFound
	}
	r.portfolios[portfolio.ID] = *portfolio
	return nil
}

func (r *PortfolioRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	portfolio, ok := r.portfolios[id]
	if !ok || portfolio.TenantID != tenantID {
		return inventory.ErrNotFound
	}
	delete(r.portfolios, id)
	return nil
}

// SystemRepository is an in-memory system store used in tests.
type SystemRepository struct {
	mu      sync.RWMutex
	systems map[string]inventory.System
}

// NewSystemRepository constructs an empty in-memory system repository.
func NewSystemRepository() *SystemRepository {
	return &SystemRepository{systems: map[string]inventory.System{}}
}

func (r *SystemRepository) Create(_ context.Context, system *inventory.System) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systems[system.ID] = *system
	return nil
}

func (r *SystemRepository) Get(_ context.Context, tenantID, id string) (*inventory.System, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	system, ok := r.systems[id]
	if !ok || system.TenantID != tenantID {
		return nil, nil
	}
	copied := system
	return &copied, nil
}

func (r *SystemRepository) List(_ context.Context, tenantID string, filter inventory.SystemFilter) ([]inventory.System, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var systems []inventory.System
	for _, system := range r.systems {
		if system.TenantID != tenantID {
			continue
		}
		if filter.SiteID != "" && system.SiteID != filter.SiteID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(system.Name), strings.ToLower(filter.Search)) {
			continue
		}
		systems = append(systems, system)
	}
	sort.Slice(systems, func(i, j int) bool { return systems[i].Name < systems[j].Name })
	return paginate(systems, filter.Limit, filter.Offset), nil
}

func (r *SystemRepository) Update(_ context.Context, system *inventory.System) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.systems[system.ID]
	if !ok || existing.TenantID != system.TenantID {
		return inventory.ErrNotFound
	}
	r.systems[system.ID] = *system
	return nil
}

func (r *SystemRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	system, ok := r.systems[id]
	if !ok || system.TenantID != tenantID {
		return inventory.ErrNotFound
	}
	delete(r.systems, id)
	return nil
}

// AssetRepository is an in-memory asset store used in tests.
type AssetRepository struct {
	mu     sync.RWMutex
	assets map[string]inventory.Asset
}

// NewAssetRepository constructs an empty in-memory asset repository.
func NewAssetRepository() *AssetRepository {
	return &AssetRepository{assets: map[string]inventory.Asset{}}
}

func (r *AssetRepository) Create(_ context.Context, asset *inventory.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[asset.ID] = *asset
	return nil
}

func (r *AssetRepository) Get(_ context.Context, tenantID, id string) (*inventory.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[id]
	if !ok || asset.TenantID != tenantID {
		return nil, nil
	}
	copied := asset
	return &copied, nil
}

func (r *AssetRepository) List(_ context.Context, tenantID string, filter inventory.AssetFilter) ([]inventory.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var assets []inventory.Asset
	for _, asset := range r.assets {
		if asset.TenantID != tenantID {
			continue
		}
		if filter.SiteID != "" && asset.SiteID != filter.SiteID {
			continue
		}
		if filter.AssetType != "" && asset.AssetType != filter.AssetType {
			continue
		}
		if filter.Status != "" && asset.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(asset.Name), strings.ToLower(filter.Search)) {
			continue
		}
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	return paginate(assets, filter.Limit, filter.Offset), nil
}

func (r *AssetRepository) Update(_ context.Context, asset *inventory.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.assets[asset.ID]
	if !ok || existing.TenantID != asset.TenantID {
		return inventory.ErrNotFound
	}
	r.assets[asset.ID] = *asset
	return nil
}

func (r *AssetRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok || asset.TenantID != tenantID {
		return inventory.ErrNotFound
	}
	delete(r.assets, id)
	return nil
}

// Count reports how many assets the tenant owns.
func (r *AssetRepository) Count(_ context.Context, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, asset := range r.assets {
		if asset.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

// CountBySystem reports how many assets belong to one system.
func (r *AssetRepository) CountBySystem(_ context.Context, tenantID, systemID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, asset := range r.assets {
		if asset.TenantID == tenantID && asset.SystemID == systemID {
			count++
		}
	}
	return count, nil
}

// SensorRepository is an in-memory sensor store used in tests.
type SensorRepository struct {
	mu      sync.RWMutex
	sensors map[string]inventory.Sensor
}

// NewSensorRepository constructs an empty in-memory sensor repository.
func NewSensorRepository() *SensorRepository {
	return &SensorRepository{sensors: map[string]inventory.Sensor{}}
}

func (r *SensorRepository) Create(_ context.Context, sensor *inventory.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensors[sensor.ID] = *sensor
	return nil
}

func (r *SensorRepository) Get(_ context.Context, tenantID, id string) (*inventory.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sensor, ok := r.sensors[id]
	if !ok || sensor.TenantID != tenantID {
		return nil, nil
	}
	copied := sensor
	return &copied, nil
}

func (r *SensorRepository) ListByAsset(_ context.Context, tenantID, assetID string) ([]inventory.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sensors []inventory.Sensor
	for _, sensor := range r.sensors {
		if sensor.TenantID == tenantID && sensor.AssetID == assetID {
			sensors = append(sensors, sensor)
		}
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].Name < sensors[j].Name })
	return sensors, nil
}

func (r *SensorRepository) Update(_ context.Context, sensor *inventory.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.sensors[sensor.ID]
	if !ok || existing.TenantID != sensor.TenantID {
		return inventory.ErrNotFound
	}
	r.sensors[sensor.ID] = *sensor
	return nil
}

func (r *SensorRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sensor, ok := r.sensors[id]
	if !ok || sensor.TenantID != tenantID {
		return inventory.ErrNotFound
	}
	delete(r.sensors, id)
	return nil
}

// ReadingRepository is an in-memory reading store used in tests.
type ReadingRepository struct {
	mu       sync.RWMutex
	readings []inventory.Reading
	assets   *AssetRepository
}

// NewReadingRepository constructs an empty in-memory reading repository.
// Pass the asset repository when site aggregation is needed.
func NewReadingRepository(assets *AssetRepository) *ReadingRepository {
	return &ReadingRepository{assets: assets}
}

func (r *ReadingRepository) Insert(_ context.Context, reading *inventory.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, *reading)
	return nil
}

func (r *ReadingRepository) ListBySensor(_ context.Context, tenantID, sensorID string, from, to time.Time, limit int) ([]inventory.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []inventory.Reading
	for _, reading := range r.readings {
		if reading.TenantID != tenantID || reading.SensorID != sensorID {
			continue
		}
		if reading.RecordedAt.Before(from) || !reading.RecordedAt.Before(to) {
			continue
		}
		out = append(out, reading)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReadingRepository) SumBySiteAndType(ctx context.Context, tenantID, sensorType string, from, to time.Time) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := map[string]float64{}
	for _, reading := range r.readings {
		if reading.TenantID != tenantID || reading.SensorType != sensorType {
			continue
		}
		if reading.RecordedAt.Before(from) || !reading.RecordedAt.Before(to) {
			continue
		}
		siteID := ""
		if r.assets != nil {
			if asset, _ := r.assets.Get(ctx, tenantID, reading.AssetID); asset != nil {
				siteID = asset.SiteID
			}
		}
		totals[siteID] += reading.Value
	}
	return totals, nil
}

// Count reports how many readings are stored.
func (r *ReadingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.readings)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
