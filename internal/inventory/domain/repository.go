package inventory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound marks a missing inventory record.
var ErrNotFound = errors.New("inventory: not found")

// ErrNotEmpty marks a grouping that still has members and cannot be
// deleted.
var ErrNotEmpty = errors.New("inventory: group is not empty")

// SiteFilter narrows site listings.
type SiteFilter struct {
	Search string
	Limit  int
	Offset int
}

// SystemFilter narrows system listings.
type SystemFilter struct {
	SiteID string
	Search string
	Limit  int
	Offset int
}

// AssetFilter narrows asset listings.
type AssetFilter struct {
	SiteID    string
	AssetType string
	Status    string
	Search    string
	Limit     int
	Offset    int
}

// PortfolioRepository persists portfolios.
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *Portfolio) error
	Get(ctx context.Context, tenantID, id string) (*Portfolio, error)
	List(ctx context.Context, tenantID, search string) ([]Portfolio, error)
	Update(ctx context.Context, portfolio *Portfolio) error
	Delete(ctx context.Context, tenantID, id string) error
}

// SiteRepository persists sites.
type SiteRepository interface {
	Create(ctx context.Context, site *Site) error
	Get(ctx context.Context, tenantID, id string) (*Site, error)
	List(ctx context.Context, tenantID string, filter SiteFilter) ([]Site, error)
	Update(ctx context.Context, site *Site) error
	Delete(ctx context.Context, tenantID, id string) error
	Count(ctx context.Context, tenantID string) (int, error)
	CountByPortfolio(ctx context.Context, tenantID, portfolioID string) (int, error)
}

// SystemRepository persists systems.
type SystemRepository interface {
	Create(ctx context.Context, system *System) error
	Get(ctx context.Context, tenantID, id string) (*System, error)
	List(ctx context.Context, tenantID string, filter SystemFilter) ([]System, error)
	Update(ctx context.Context, system *System) error
	Delete(ctx context.Context, tenantID, id string) error
}

// AssetRepository persists assets.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	Get(ctx context.Context, tenantID, id string) (*Asset, error)
	List(ctx context.Context, tenantID string, filter AssetFilter) ([]Asset, error)
	Update(ctx context.Context, asset *Asset) error
	Delete(ctx context.Context, tenantID, id string) error
	Count(ctx context.Context, tenantID string) (int, error)
	CountBySystem(ctx context.Context, tenantID, systemID string) (int, error)
}

// SensorRepository persists sensors.
type SensorRepository interface {
	Create(ctx context.Context, sensor *Sensor) error
	Get(ctx context.Context, tenantID, id string) (*Sensor, error)
	ListByAsset(ctx context.Context, tenantID, assetID string) ([]Sensor, error)
	Update(ctx context.Context, sensor *Sensor) error
	Delete(ctx context.Context, tenantID, id string) error
}

// ReadingRepository persists sensor readings.
type ReadingRepository interface {
	Insert(ctx context.Context, reading *Reading) error
	ListBySensor(ctx context.Context, tenantID, sensorID string, from, to time.Time, limit int) ([]Reading, error)
	SumBySiteAndType(ctx context.Context, tenantID, sensorType string, from, to time.Time) (map[string]float64, error)
}
