package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
	woapp "facility-cloud/internal/workorders/application"
	workorders "facility-cloud/internal/workorders/domain"
)

// Handler provides work order endpoints.
type Handler struct {
	service *woapp.Service
}

// NewHandler constructs a work orders handler.
func NewHandler(service *woapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("workorders handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/work-orders and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/work-orders":
		h.handleCollection(w, r)
	case path == "/api/work-orders/assignable-users":
		h.handleAssignableUsers(w, r)
	case strings.HasPrefix(path, "/api/work-orders/"):
		h.handleWorkOrder(w, r, strings.TrimPrefix(path, "/api/work-orders/"))
	default:
		apihttp.Error(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := workorders.Filter{
			Status:     r.URL.Query().Get("status"),
			Priority:   r.URL.Query().Get("priority"),
			AssigneeID: r.URL.Query().Get("assignee_id"),
			AssetID:    r.URL.Query().Get("asset_id"),
			Search:     r.URL.Query().Get("search"),
			Limit:      intQuery(r, "limit"),
			Offset:     intQuery(r, "offset"),
		}
		list, err := h.service.List(r.Context(), filter)
		if err != nil {
			respondError(w, err, "listing work orders failed")
			return
		}
		if list == nil {
			list = []workorders.WorkOrder{}
		}
		apihttp.JSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Type        string `json:"type"`
			Priority    string `json:"priority"`
			AssetID     string `json:"asset_id"`
			AlertID     string `json:"alert_id"`
			DueDate     string `json:"due_date"`
		}
		if err := apihttp.Decode(r, &req); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		dueDate, ok := parseTime(req.DueDate)
		if !ok {
			apihttp.Error(w, http.StatusUnprocessableEntity, "due_date must be RFC 3339")
			return
		}
		workOrder, err := h.service.Create(r.Context(), woapp.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Type:        req.Type,
			Priority:    req.Priority,
			AssetID:     req.AssetID,
			AlertID:     req.AlertID,
			DueDate:     dueDate,
		})
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			apihttp.Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		apihttp.JSON(w, http.StatusCreated, workOrder)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAssignableUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	users, err := h.service.AssignableUsers(r.Context())
	if err != nil {
		respondError(w, err, "listing assignable users failed")
		return
	}
	if users == nil {
		users = []woapp.Assignee{}
	}
	apihttp.JSON(w, http.StatusOK, users)
}

func (h *Handler) handleWorkOrder(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 1 {
		h.handleItem(w, r, id)
		return
	}
	if len(parts) != 2 {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	switch parts[1] {
	case "history":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		entries, err := h.service.History(r.Context(), id)
		if err != nil {
			respondError(w, err, "loading history failed")
			return
		}
		if entries == nil {
			entries = []workorders.HistoryEntry{}
		}
		apihttp.JSON(w, http.StatusOK, entries)
	case "assign":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			AssigneeID string `json:"assignee_id"`
			Note       string `json:"note"`
		}
		if err := apihttp.Decode(r, &req); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		workOrder, err := h.service.Assign(r.Context(), id, req.AssigneeID, req.Note)
		if err != nil {
			respondError(w, err, "assigning work order failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, workOrder)
	case "status":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Status          string  `json:"status"`
			Note            string  `json:"note"`
			ResolutionNotes string  `json:"resolution_notes"`
			TimeSpentHours  float64 `json:"time_spent_hours"`
		}
		if err := apihttp.Decode(r, &req); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		workOrder, err := h.service.ChangeStatus(r.Context(), id, woapp.StatusChange{
			Target:          req.Status,
			Note:            req.Note,
			ResolutionNotes: req.ResolutionNotes,
			TimeSpentHours:  req.TimeSpentHours,
		})
		if err != nil {
			respondError(w, err, "changing work order status failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, workOrder)
	default:
		apihttp.Error(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		workOrder, err := h.service.Get(r.Context(), id)
		if err != nil {
			respondError(w, err, "loading work order failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, workOrder)
	case http.MethodPut, http.MethodPatch:
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Priority    string `json:"priority"`
			DueDate     string `json:"due_date"`
		}
		if err := apihttp.Decode(r, &req); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		dueDate, ok := parseTime(req.DueDate)
		if !ok {
			apihttp.Error(w, http.StatusUnprocessableEntity, "due_date must be RFC 3339")
			return
		}
		workOrder, err := h.service.Update(r.Context(), id, woapp.UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			DueDate:     dueDate,
		})
		if err != nil {
			respondError(w, err, "updating work order failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, workOrder)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, workorders.ErrNotFound):
		apihttp.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, workorders.ErrInvalidTransition):
		apihttp.Error(w, http.StatusBadRequest, "invalid status transition")
	case errors.Is(err, workorders.ErrCompletionGuard):
		apihttp.Error(w, http.StatusBadRequest, "completion requires resolution notes and time spent")
	case errors.Is(err, workorders.ErrRoleNotAllowed), errors.Is(err, workorders.ErrNotAssignee):
		apihttp.Error(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, auth.ErrUnauthorized):
		apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
	default:
		apihttp.Error(w, http.StatusInternalServerError, fallback)
	}
}

func parseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

func intQuery(r *http.Request, key string) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
