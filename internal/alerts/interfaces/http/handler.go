package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	alertapp "facility-cloud/internal/alerts/application"
	alerts "facility-cloud/internal/alerts/domain"
	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
	inventory "facility-cloud/internal/inventory/domain"
)

// Handler provides alert and alert rule endpoints.
type Handler struct {
	service *alertapp.Service
}

// NewHandler constructs an alerts handler.
func NewHandler(service *alertapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/alerts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/alerts":
		h.handleCollection(w, r)
	case path == "/api/alerts/rules":
		h.handleRules(w, r)
	case strings.HasPrefix(path, "/api/alerts/rules/"):
		h.handleRule(w, r, strings.TrimPrefix(path, "/api/alerts/rules/"))
	case strings.HasPrefix(path, "/api/alerts/"):
		h.handleAlert(w, r, strings.TrimPrefix(path, "/api/alerts/"))
	default:
		apihttp.Error(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := alerts.AlertFilter{
			Status:   r.URL.Query().Get("status"),
			Severity: r.URL.Query().Get("severity"),
			AssetID:  r.URL.Query().Get("asset_id"),
			Limit:    intQuery(r, "limit"),
			Offset:   intQuery(r, "offset"),
		}
		list, err := h.service.ListAlerts(r.Context(), filter)
		if err != nil {
			respondError(w, err, "listing alerts failed")
			return
		}
		if list == nil {
			list = []alerts.Alert{}
		}
		apihttp.JSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req struct {
			AssetID     string `json:"asset_id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Severity    string `json:"severity"`
		}
		if err := apihttp.Decode(r, &req); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		alert, err := h.service.CreateManualAlert(r.Context(), req.AssetID, req.Title, req.Description, req.Severity)
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				apihttp.Error(w, http.StatusNotFound, "asset not found")
				return
			}
			respondValidation(w, err)
			return
		}
		apihttp.JSON(w, http.StatusCreated, alert)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAlert(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		alert, err := h.service.GetAlert(r.Context(), id)
		if err != nil {
			respondError(w, err, "loading alert failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, alert)
		return
	}
	if len(parts) != 2 || r.Method != http.MethodPost {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}

	var (
		alert *alerts.Alert
		err   error
	)
	switch parts[1] {
	case "acknowledge":
		alert, err = h.service.Acknowledge(r.Context(), id)
	case "resolve":
		var req struct {
			Notes string `json:"notes"`
		}
		_ = apihttp.Decode(r, &req)
		alert, err = h.service.Resolve(r.Context(), id, req.Notes)
	case "close":
		alert, err = h.service.Close(r.Context(), id)
	case "create-work-order":
		alert, err = h.service.CreateWorkOrder(r.Context(), id)
	default:
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		respondError(w, err, "alert action failed")
		return
	}
	apihttp.JSON(w, http.StatusOK, alert)
}

func (h *Handler) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := h.service.ListRules(r.Context())
		if err != nil {
			respondError(w, err, "listing rules failed")
			return
		}
		if rules == nil {
			rules = []alerts.Rule{}
		}
		apihttp.JSON(w, http.StatusOK, rules)
	case http.MethodPost:
		var rule alerts.Rule
		if err := apihttp.Decode(r, &rule); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		rule.Enabled = true
		created, err := h.service.CreateRule(r.Context(), rule)
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				apihttp.Error(w, http.StatusNotFound, "asset not found")
				return
			}
			respondValidation(w, err)
			return
		}
		apihttp.JSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleRule(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var req struct {
			Name            string  `json:"name"`
			SensorType      string  `json:"sensor_type"`
			Condition       string  `json:"condition"`
			Threshold       float64 `json:"threshold"`
			Threshold2      float64 `json:"threshold_2"`
			DurationMinutes int     `json:"duration_minutes"`
			Severity        string  `json:"severity"`
			Enabled         *bool   `json:"enabled"`
		}
		if err := apihttp.Decode(r, &req); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		changes := alerts.Rule{
			Name:            req.Name,
			SensorType:      req.SensorType,
			Condition:       req.Condition,
			Threshold:       req.Threshold,
			Threshold2:      req.Threshold2,
			DurationMinutes: req.DurationMinutes,
			Severity:        req.Severity,
		}
		rule, err := h.service.UpdateRule(r.Context(), id, changes, req.Enabled)
		if err != nil {
			respondError(w, err, "updating rule failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, rule)
	case http.MethodDelete:
		if err := h.service.DeleteRule(r.Context(), id); err != nil {
			respondError(w, err, "deleting rule failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, alerts.ErrNotFound):
		apihttp.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, alerts.ErrInvalidTransition):
		apihttp.Error(w, http.StatusBadRequest, "invalid status transition")
	case errors.Is(err, auth.ErrUnauthorized):
		apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
	default:
		apihttp.Error(w, http.StatusInternalServerError, fallback)
	}
}

func respondValidation(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	apihttp.Error(w, http.StatusUnprocessableEntity, err.Error())
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
