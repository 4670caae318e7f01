package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	alerts "facility-cloud/internal/alerts/domain"
	"facility-cloud/internal/audit"
	"facility-cloud/internal/auth"
	"facility-cloud/internal/observability/metrics"
	workorders "facility-cloud/internal/workorders/domain"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Assignee is a user a work order can be assigned to.
type Assignee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Directory resolves assignable users of a tenant.
type Directory interface {
	ListAssignable(ctx context.Context, tenantID string) ([]Assignee, error)
	Exists(ctx context.Context, tenantID, userID string) (bool, error)
}

// Service drives the work order lifecycle.
type Service struct {
	workOrders workorders.Repository
	history    workorders.HistoryRepository
	directory  Directory
	auditor    audit.Logger
	clock      Clock
}

// ServiceOption customizes the work order service.
type ServiceOption func(*Service)

// WithDirectory wires assignee validation and listing.
func WithDirectory(directory Directory) ServiceOption {
	return func(s *Service) {
		s.directory = directory
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

// NewService constructs a work order service.
func NewService(repo workorders.Repository, history workorders.HistoryRepository, opts ...ServiceOption) (*Service, error) {
	if repo == nil || history == nil {
		return nil, errors.New("workorders: nil repository")
	}
	service := &Service{workOrders: repo, history: history, clock: systemClock{}}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateInput carries the fields of a new work order.
type CreateInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Priority    string    `json:"priority"`
	AssetID     string    `json:"asset_id"`
	AlertID     string    `json:"alert_id"`
	DueDate     time.Time `json:"due_date"`
}

// Create stores a new work order in status open and appends the
// creation history entry.
func (s *Service) Create(ctx context.Context, input CreateInput) (*workorders.WorkOrder, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	workOrder := workorders.WorkOrder{
		ID:          newID("wo"),
		TenantID:    tenantID,
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Priority:    input.Priority,
		Status:      workorders.StatusOpen,
		AssetID:     input.AssetID,
		AlertID:     input.AlertID,
		CreatedBy:   auth.SubjectFromContext(ctx),
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if workOrder.Type == "" {
		workOrder.Type = workorders.TypeReactive
	}
	if workOrder.Priority == "" {
		workOrder.Priority = workorders.PriorityMedium
	}
	if err := workOrder.Validate(); err != nil {
		return nil, err
	}
	if err := s.workOrders.Create(ctx, &workOrder); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, &workOrder, workorders.HistoryCreated, "", workorders.StatusOpen, ""); err != nil {
		return nil, err
	}
	metrics.IncWorkOrderTransition("create", "ok")
	s.log(ctx, "workorder.create", workOrder.ID, map[string]any{"asset_id": workOrder.AssetID})
	return &workOrder, nil
}

// CreateFromAlert spawns a work order linked to an alert. Implements
// the alert service's work order creator.
func (s *Service) CreateFromAlert(ctx context.Context, alert alerts.Alert) (string, error) {
	if s == nil {
		return "", errors.New("workorders: nil service")
	}
	workOrder, err := s.Create(ctx, CreateInput{
		Title:       alert.Title,
		Description: alert.Description,
		Type:        workorders.TypeReactive,
		Priority:    priorityForSeverity(alert.Severity),
		AssetID:     alert.AssetID,
		AlertID:     alert.ID,
	})
	if err != nil {
		return "", err
	}
	return workOrder.ID, nil
}

// Get loads one work order.
func (s *Service) Get(ctx context.Context, id string) (*workorders.WorkOrder, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	workOrder, err := s.workOrders.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if workOrder == nil {
		return nil, workorders.ErrNotFound
	}
	return workOrder, nil
}

// List returns work orders of the caller's tenant.
func (s *Service) List(ctx context.Context, filter workorders.Filter) ([]workorders.WorkOrder, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.workOrders.List(ctx, tenantID, filter)
}

// History returns the audit trail of one work order.
func (s *Service) History(ctx context.Context, id string) ([]workorders.HistoryEntry, error) {
	workOrder, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.history.ListByWorkOrder(ctx, workOrder.TenantID, workOrder.ID)
}

// Assign moves an open work order to assigned. Restricted to admins
// and facility managers.
func (s *Service) Assign(ctx context.Context, id, assigneeID, note string) (*workorders.WorkOrder, error) {
	if !managerRole(auth.RoleFromContext(ctx)) {
		metrics.IncWorkOrderTransition(workorders.ActionAssign, "denied")
		return nil, workorders.ErrRoleNotAllowed
	}
	if assigneeID == "" {
		return nil, errors.New("workorders: assignee required")
	}
	workOrder, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.directory != nil {
		exists, err := s.directory.Exists(ctx, workOrder.TenantID, assigneeID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.New("workorders: assignee not found")
		}
	}
	previous := workOrder.AssigneeID
	now := s.clock.Now().UTC()
	if err := workOrder.Apply(workorders.ActionAssign, now); err != nil {
		metrics.IncWorkOrderTransition(workorders.ActionAssign, "rejected")
		return nil, err
	}
	workOrder.AssigneeID = assigneeID
	if err := s.workOrders.Update(ctx, workOrder); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, workOrder, workorders.HistoryAssigned, previous, assigneeID, note); err != nil {
		return nil, err
	}
	metrics.IncWorkOrderTransition(workorders.ActionAssign, "ok")
	s.log(ctx, "workorder.assign", workOrder.ID, map[string]any{"assignee_id": assigneeID})
	return workOrder, nil
}

// StatusChange carries a requested transition.
type StatusChange struct {
	Target          string
	Note            string
	ResolutionNotes string
	TimeSpentHours  float64
}

// ChangeStatus moves a work order to the target status, enforcing the
// transition table and its guards. Exactly one history entry is
// appended on success; rejections append nothing.
func (s *Service) ChangeStatus(ctx context.Context, id string, change StatusChange) (*workorders.WorkOrder, error) {
	action, ok := workorders.ActionFor(change.Target)
	if !ok {
		return nil, workorders.ErrInvalidTransition
	}
	role := auth.RoleFromContext(ctx)
	if action == workorders.ActionClose && !managerRole(role) {
		metrics.IncWorkOrderTransition(action, "denied")
		return nil, workorders.ErrRoleNotAllowed
	}
	workOrder, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssigneeGuard(ctx, role, workOrder); err != nil {
		return nil, err
	}

	oldStatus := workOrder.Status
	if action == workorders.ActionComplete {
		if change.ResolutionNotes != "" {
			workOrder.ResolutionNotes = change.ResolutionNotes
		}
		if change.TimeSpentHours != 0 {
			workOrder.TimeSpentHours = change.TimeSpentHours
		}
	}
	if err := workOrder.Apply(action, s.clock.Now()); err != nil {
		metrics.IncWorkOrderTransition(action, "rejected")
		return nil, err
	}
	if err := s.workOrders.Update(ctx, workOrder); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, workOrder, workorders.HistoryStatusChanged, oldStatus, workOrder.Status, change.Note); err != nil {
		return nil, err
	}
	metrics.IncWorkOrderTransition(action, "ok")
	s.log(ctx, "workorder."+action, workOrder.ID, map[string]any{"from": oldStatus, "to": workOrder.Status})
	return workOrder, nil
}

// UpdateInput carries editable descriptive fields.
type UpdateInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     time.Time
}

// Update rewrites descriptive fields. Status is never touched here.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*workorders.WorkOrder, error) {
	role := auth.RoleFromContext(ctx)
	workOrder, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssigneeGuard(ctx, role, workOrder); err != nil {
		return nil, err
	}
	if workOrder.Terminal() {
		return nil, workorders.ErrInvalidTransition
	}
	if input.Title != "" {
		workOrder.Title = input.Title
	}
	if input.Description != "" {
		workOrder.Description = input.Description
	}
	if input.Priority != "" {
		if !workorders.ValidPriority(input.Priority) {
			return nil, errors.New("workorders: invalid priority")
		}
		workOrder.Priority = input.Priority
	}
	if !input.DueDate.IsZero() {
		workOrder.DueDate = input.DueDate.UTC()
	}
	workOrder.UpdatedAt = s.clock.Now().UTC()
	if err := s.workOrders.Update(ctx, workOrder); err != nil {
		return nil, err
	}
	s.log(ctx, "workorder.update", workOrder.ID, nil)
	return workOrder, nil
}

// AssignableUsers lists users a work order can be assigned to.
func (s *Service) AssignableUsers(ctx context.Context) ([]Assignee, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if s.directory == nil {
		return nil, nil
	}
	return s.directory.ListAssignable(ctx, tenantID)
}

// CountByStatus aggregates work order counts for the dashboard.
func (s *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	tenantID, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return s.workOrders.CountByStatus(ctx, tenantID)
}

// checkAssigneeGuard blocks technicians from touching work orders
// assigned to someone else.
func (s *Service) checkAssigneeGuard(ctx context.Context, role auth.Role, workOrder *workorders.WorkOrder) error {
	if role != auth.RoleTechnician {
		return nil
	}
	if workOrder.AssigneeID == "" || workOrder.AssigneeID != auth.SubjectFromContext(ctx) {
		return workorders.ErrNotAssignee
	}
	return nil
}

func (s *Service) appendHistory(ctx context.Context, workOrder *workorders.WorkOrder, action, oldValue, newValue, note string) error {
	entry := workorders.HistoryEntry{
		ID:          newID("woh"),
		WorkOrderID: workOrder.ID,
		TenantID:    workOrder.TenantID,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		Note:        note,
		Actor:       auth.SubjectFromContext(ctx),
		CreatedAt:   s.clock.Now().UTC(),
	}
	return s.history.Append(ctx, &entry)
}

func (s *Service) tenant(ctx context.Context) (string, error) {
	if s == nil {
		return "", errors.New("workorders: nil service")
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
		ResourceType: "work_order",
		ResourceID:   resourceID,
		Metadata:     payload,
		CreatedAt:    s.clock.Now().UTC(),
	})
}

func managerRole(role auth.Role) bool {
	return role == auth.RoleAdmin || role == auth.RoleFacilityManager
}

func priorityForSeverity(severity string) string {
	switch severity {
	case alerts.SeverityCritical:
		return workorders.PriorityCritical
	case alerts.SeverityHigh:
		return workorders.PriorityHigh
	case alerts.SeverityMedium:
		return workorders.PriorityMedium
	default:
		return workorders.PriorityLow
	}
}

func newID(prefix string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return prefix + "-" + hex.EncodeToString(buf)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
