package application

import (
	"context"
	"errors"
	"sort"
	"time"

	alerts "facility-cloud/internal/alerts/domain"
	"facility-cloud/internal/auth"
	inventory "facility-cloud/internal/inventory/domain"
	workorders "facility-cloud/internal/workorders/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// reportLimit caps the rows pulled into one report.
const reportLimit = 500

// Service assembles tenant reports from the operational stores.
type Service struct {
	alerts     alerts.AlertRepository
	workOrders workorders.Repository
	readings   inventory.ReadingRepository
	sites      inventory.SiteRepository
	clock      Clock
}

// ServiceOption customizes the report service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs a report service.
func NewService(alertRepo alerts.AlertRepository, workOrderRepo workorders.Repository, readingRepo inventory.ReadingRepository, siteRepo inventory.SiteRepository, opts ...ServiceOption) (*Service, error) {
	if alertRepo == nil || workOrderRepo == nil || readingRepo == nil || siteRepo == nil {
		return nil, errors.New("reports: nil repository")
	}
	service := &Service{
		alerts:     alertRepo,
		workOrders: workOrderRepo,
		readings:   readingRepo,
		sites:      siteRepo,
		clock:      systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// AlertsReport summarizes recent alerts of a tenant.
type AlertsReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	BySeverity  map[string]int `json:"by_severity"`
	ByStatus    map[string]int `json:"by_status"`
	Rows        []AlertRow     `json:"rows"`
}

// AlertRow is one alert line in the report.
type AlertRow struct {
	ID          string    `json:"id"`
	AssetID     string    `json:"asset_id"`
	Title       string    `json:"title"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	TriggeredAt time.Time `json:"triggered_at"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`
}

// Alerts builds the alerts report. status and severity filter when set.
func (s *Service) Alerts(ctx context.Context, status, severity string) (*AlertsReport, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.alerts.List(ctx, tenantID, alerts.AlertFilter{Status: status, Severity: severity, Limit: reportLimit})
	if err != nil {
		return nil, err
	}
	report := AlertsReport{
		GeneratedAt: s.clock.Now().UTC(),
		BySeverity:  map[string]int{},
		ByStatus:    map[string]int{},
		Rows:        make([]AlertRow, 0, len(list)),
	}
	for _, alert := range list {
		report.BySeverity[alert.Severity]++
		report.ByStatus[alert.Status]++
		report.Rows = append(report.Rows, AlertRow{
			ID:          alert.ID,
			AssetID:     alert.AssetID,
			Title:       alert.Title,
			Severity:    alert.Severity,
			Status:      alert.Status,
			TriggeredAt: alert.TriggeredAt,
			ResolvedAt:  alert.ResolvedAt,
		})
	}
	return &report, nil
}

// WorkOrdersReport summarizes recent work orders of a tenant.
type WorkOrdersReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	ByStatus    map[string]int `json:"by_status"`
	TotalHours  float64        `json:"total_hours"`
	Rows        []WorkOrderRow `json:"rows"`
}

// WorkOrderRow is one work order line in the report.
type WorkOrderRow struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Type           string    `json:"type"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	AssigneeID     string    `json:"assignee_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
	TimeSpentHours float64   `json:"time_spent_hours,omitempty"`
}

// WorkOrders builds the work orders report.
func (s *Service) WorkOrders(ctx context.Context, status string) (*WorkOrdersReport, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.workOrders.List(ctx, tenantID, workorders.Filter{Status: status, Limit: reportLimit})
	if err != nil {
		return nil, err
	}
	report := WorkOrdersReport{
		GeneratedAt: s.clock.Now().UTC(),
		ByStatus:    map[string]int{},
		Rows:        make([]WorkOrderRow, 0, len(list)),
	}
	for _, workOrder := range list {
		report.ByStatus[workOrder.Status]++
		report.TotalHours += workOrder.TimeSpentHours
		report.Rows = append(report.Rows, WorkOrderRow{
			ID:             workOrder.ID,
			Title:          workOrder.Title,
			Type:           workOrder.Type,
			Priority:       workOrder.Priority,
			Status:         workOrder.Status,
			AssigneeID:     workOrder.AssigneeID,
			CreatedAt:      workOrder.CreatedAt,
			CompletedAt:    workOrder.CompletedAt,
			TimeSpentHours: workOrder.TimeSpentHours,
		})
	}
	return &report, nil
}

// EnergyReport aggregates power readings per site over a window.
type EnergyReport struct {
	GeneratedAt time.Time   `json:"generated_at"`
	From        time.Time   `json:"from"`
	To          time.Time   `json:"to"`
	Total       float64     `json:"total"`
	Rows        []EnergyRow `json:"rows"`
}

// EnergyRow is one site line in the energy report.
type EnergyRow struct {
	SiteID   string  `json:"site_id"`
	SiteName string  `json:"site_name"`
	Total    float64 `json:"total"`
}

// Energy builds the per-site power consumption report. The window
// defaults to the last 30 days.
func (s *Service) Energy(ctx context.Context, from, to time.Time) (*EnergyReport, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	totals, err := s.readings.SumBySiteAndType(ctx, tenantID, inventory.SensorTypePower, from, to)
	if err != nil {
		return nil, err
	}
	sites, err := s.sites.List(ctx, tenantID, inventory.SiteFilter{Limit: reportLimit})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(sites))
	for _, site := range sites {
		names[site.ID] = site.Name
	}
	report := EnergyReport{GeneratedAt: now, From: from.UTC(), To: to.UTC(), Rows: make([]EnergyRow, 0, len(totals))}
	for siteID, total := range totals {
		report.Total += total
		report.Rows = append(report.Rows, EnergyRow{SiteID: siteID, SiteName: names[siteID], Total: total})
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].SiteID < report.Rows[j].SiteID })
	return &report, nil
}

func (s *Service) tenant(ctx context.Context) (string, error) {
	if s == nil {
		return "", errors.New("reports: nil service")
	}
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return "", auth.ErrUnauthorized
	}
	return tenantID, nil
}
