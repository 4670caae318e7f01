package dashboard

import (
	"errors"
	"net/http"

	alertapp "facility-cloud/internal/alerts/application"
	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
	invapp "facility-cloud/internal/inventory/application"
	woapp "facility-cloud/internal/workorders/application"
)

// Handler serves the tenant dashboard summary.
type Handler struct {
	alerts     *alertapp.Service
	workOrders *woapp.Service
	inventory  *invapp.Service
}

// NewHandler constructs a dashboard handler.
func NewHandler(alerts *alertapp.Service, workOrders *woapp.Service, inventorySvc *invapp.Service) (*Handler, error) {
	if alerts == nil || workOrders == nil || inventorySvc == nil {
		return nil, errors.New("dashboard handler: nil service")
	}
	return &Handler{alerts: alerts, workOrders: workOrders, inventory: inventorySvc}, nil
}

// Summary is the dashboard payload.
type Summary struct {
	OpenAlertsBySeverity map[string]int `json:"open_alerts_by_severity"`
	AlertsByStatus       map[string]int `json:"alerts_by_status"`
	WorkOrdersByStatus   map[string]int `json:"work_orders_by_status"`
	SiteCount            int            `json:"site_count"`
	AssetCount           int            `json:"asset_count"`
}

// ServeHTTP handles GET /api/dashboard/summary.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	openBySeverity, err := h.alerts.CountOpenBySeverity(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	alertsByStatus, err := h.alerts.CountByStatus(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	workOrdersByStatus, err := h.workOrders.CountByStatus(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	siteCount, err := h.inventory.CountSites(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	assetCount, err := h.inventory.CountAssets(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	apihttp.JSON(w, http.StatusOK, Summary{
		OpenAlertsBySeverity: openBySeverity,
		AlertsByStatus:       alertsByStatus,
		WorkOrdersByStatus:   workOrdersByStatus,
		SiteCount:            siteCount,
		AssetCount:           assetCount,
	})
}

func respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	apihttp.Error(w, http.StatusInternalServerError, "building summary failed")
}
