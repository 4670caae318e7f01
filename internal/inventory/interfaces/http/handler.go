package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
	invapp "facility-cloud/internal/inventory/application"
	inventory "facility-cloud/internal/inventory/domain"
)

// Handler provides site, asset and sensor endpoints.
type Handler struct {
	service *invapp.Service
}

// NewHandler constructs an inventory handler.
func NewHandler(service *invapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("inventory handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/portfolios, /api/sites, /api/systems,
// /api/assets and /api/sensors subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/portfolios":
		h.handlePortfolios(w, r)
	case strings.HasPrefix(path, "/api/portfolios/"):
		h.handlePortfolio(w, r, strings.TrimPrefix(path, "/api/portfolios/"))
	case path == "/api/systems":
		h.handleSystems(w, r)
	case strings.HasPrefix(path, "/api/systems/"):
		h.handleSystem(w, r, strings.TrimPrefix(path, "/api/systems/"))
	case path == "/api/sites":
		h.handleSites(w, r)
	case strings.HasPrefix(path, "/api/sites/"):
		h.handleSite(w, r, strings.TrimPrefix(path, "/api/sites/"))
	case path == "/api/assets":
		h.handleAssets(w, r)
	case strings.HasPrefix(path, "/api/assets/"):
		h.handleAsset(w, r, strings.TrimPrefix(path, "/api/assets/"))
	case strings.HasPrefix(path, "/api/sensors/"):
		h.handleSensor(w, r, strings.TrimPrefix(path, "/api/sensors/"))
	default:
		apihttp.Error(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		portfolios, err := h.service.ListPortfolios(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			respondServiceError(w, err, "listing portfolios failed")
			return
		}
		if portfolios == nil {
			portfolios = []invapp.PortfolioSummary{}
		}
		apihttp.JSON(w, http.StatusOK, portfolios)
	case http.MethodPost:
		var portfolio inventory.Portfolio
		if err := apihttp.Decode(r, &portfolio); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		created, err := h.service.CreatePortfolio(r.Context(), portfolio)
		if err != nil {
			if errors.Is(err, auth.ErrForbidden) {
				apihttp.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			respondValidationError(w, err)
			return
		}
		apihttp.JSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePortfolio(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		portfolio, err := h.service.GetPortfolio(r.Context(), id)
		if err != nil {
			respondServiceError(w, err, "loading portfolio failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, portfolio)
	case http.MethodPut, http.MethodPatch:
		var changes inventory.Portfolio
		if err := apihttp.Decode(r, &changes); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		portfolio, err := h.service.UpdatePortfolio(r.Context(), id, changes)
		if err != nil {
			respondServiceError(w, err, "updating portfolio failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, portfolio)
	case http.MethodDelete:
		if err := h.service.DeletePortfolio(r.Context(), id); err != nil {
			respondServiceError(w, err, "deleting portfolio failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSystems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := inventory.SystemFilter{
			SiteID: r.URL.Query().Get("site_id"),
			Search: r.URL.Query().Get("search"),
			Limit:  intQuery(r, "limit"),
			Offset: intQuery(r, "offset"),
		}
		systems, err := h.service.ListSystems(r.Context(), filter)
		if err != nil {
			respondServiceError(w, err, "listing systems failed")
			return
		}
		if systems == nil {
			systems = []invapp.SystemSummary{}
		}
		apihttp.JSON(w, http.StatusOK, systems)
	case http.MethodPost:
		var system inventory.System
		if err := apihttp.Decode(r, &system); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		created, err := h.service.CreateSystem(r.Context(), system)
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				apihttp.Error(w, http.StatusNotFound, "site not found")
				return
			}
			respondValidationError(w, err)
			return
		}
		apihttp.JSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSystem(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		system, err := h.service.GetSystem(r.Context(), id)
		if err != nil {
			respondServiceError(w, err, "loading system failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, system)
	case http.MethodPut, http.MethodPatch:
		var changes inventory.System
		if err := apihttp.Decode(r, &changes); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		system, err := h.service.UpdateSystem(r.Context(), id, changes)
		if err != nil {
			respondServiceError(w, err, "updating system failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, system)
	case http.MethodDelete:
		if err := h.service.DeleteSystem(r.Context(), id); err != nil {
			respondServiceError(w, err, "deleting system failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := inventory.SiteFilter{
			Search: r.URL.Query().Get("search"),
			Limit:  intQuery(r, "limit"),
			Offset: intQuery(r, "offset"),
		}
		sites, err := h.service.ListSites(r.Context(), filter)
		if err != nil {
			respondServiceError(w, err, "listing sites failed")
			return
		}
		if sites == nil {
			sites = []inventory.Site{}
		}
		apihttp.JSON(w, http.StatusOK, sites)
	case http.MethodPost:
		var site inventory.Site
		if err := apihttp.Decode(r, &site); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		created, err := h.service.CreateSite(r.Context(), site)
		if err != nil {
			respondValidationError(w, err)
			return
		}
		apihttp.JSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSite(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		site, err := h.service.GetSite(r.Context(), id)
		if err != nil {
			respondServiceError(w, err, "loading site failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, site)
	case http.MethodPut, http.MethodPatch:
		var changes inventory.Site
		if err := apihttp.Decode(r, &changes); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		site, err := h.service.UpdateSite(r.Context(), id, changes)
		if err != nil {
			respondServiceError(w, err, "updating site failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, site)
	case http.MethodDelete:
		if err := h.service.DeleteSite(r.Context(), id); err != nil {
			respondServiceError(w, err, "deleting site failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := inventory.AssetFilter{
			SiteID:    r.URL.Query().Get("site_id"),
			AssetType: r.URL.Query().Get("asset_type"),
			Status:    r.URL.Query().Get("status"),
			Search:    r.URL.Query().Get("search"),
			Limit:     intQuery(r, "limit"),
			Offset:    intQuery(r, "offset"),
		}
		assets, err := h.service.ListAssets(r.Context(), filter)
		if err != nil {
			respondServiceError(w, err, "listing assets failed")
			return
		}
		if assets == nil {
			assets = []inventory.Asset{}
		}
		apihttp.JSON(w, http.StatusOK, assets)
	case http.MethodPost:
		var asset inventory.Asset
		if err := apihttp.Decode(r, &asset); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		created, err := h.service.CreateAsset(r.Context(), asset)
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				apihttp.Error(w, http.StatusNotFound, "site not found")
				return
			}
			respondValidationError(w, err)
			return
		}
		apihttp.JSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 && parts[1] == "sensors" {
		h.handleAssetSensors(w, r, id)
		return
	}
	if len(parts) != 1 {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		asset, err := h.service.GetAsset(r.Context(), id)
		if err != nil {
			respondServiceError(w, err, "loading asset failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, asset)
	case http.MethodPut, http.MethodPatch:
		var changes inventory.Asset
		if err := apihttp.Decode(r, &changes); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		asset, err := h.service.UpdateAsset(r.Context(), id, changes)
		if err != nil {
			respondServiceError(w, err, "updating asset failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, asset)
	case http.MethodDelete:
		if err := h.service.DeleteAsset(r.Context(), id); err != nil {
			respondServiceError(w, err, "deleting asset failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAssetSensors(w http.ResponseWriter, r *http.Request, assetID string) {
	switch r.Method {
	case http.MethodGet:
		sensors, err := h.service.ListSensors(r.Context(), assetID)
		if err != nil {
			respondServiceError(w, err, "listing sensors failed")
			return
		}
		if sensors == nil {
			sensors = []inventory.Sensor{}
		}
		apihttp.JSON(w, http.StatusOK, sensors)
	case http.MethodPost:
		var sensor inventory.Sensor
		if err := apihttp.Decode(r, &sensor); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		sensor.AssetID = assetID
		created, err := h.service.CreateSensor(r.Context(), sensor)
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				apihttp.Error(w, http.StatusNotFound, "asset not found")
				return
			}
			respondValidationError(w, err)
			return
		}
		apihttp.JSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSensor(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 && parts[1] == "readings" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSensorReadings(w, r, id)
		return
	}
	if len(parts) != 1 {
		apihttp.Error(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var req struct {
			Name       string `json:"name"`
			SensorType string `json:"sensor_type"`
			Unit       string `json:"unit"`
			Enabled    *bool  `json:"enabled"`
		}
		if err := apihttp.Decode(r, &req); err != nil {
			apihttp.Error(w, http.StatusUnprocessableEntity, "invalid request body")
			return
		}
		changes := inventory.Sensor{Name: req.Name, SensorType: req.SensorType, Unit: req.Unit}
		sensor, err := h.service.UpdateSensor(r.Context(), id, changes, req.Enabled)
		if err != nil {
			respondServiceError(w, err, "updating sensor failed")
			return
		}
		apihttp.JSON(w, http.StatusOK, sensor)
	case http.MethodDelete:
		if err := h.service.DeleteSensor(r.Context(), id); err != nil {
			respondServiceError(w, err, "deleting sensor failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSensorReadings(w http.ResponseWriter, r *http.Request, sensorID string) {
	from, err := timeQuery(r, "from")
	if err != nil {
		apihttp.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	to, err := timeQuery(r, "to")
	if err != nil {
		apihttp.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	readings, err := h.service.ListReadings(r.Context(), sensorID, from, to, intQuery(r, "limit"))
	if err != nil {
		respondServiceError(w, err, "listing readings failed")
		return
	}
	if readings == nil {
		readings = []inventory.Reading{}
	}
	apihttp.JSON(w, http.StatusOK, readings)
}

func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		apihttp.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, inventory.ErrNotEmpty):
		apihttp.Error(w, http.StatusBadRequest, "group still has members")
	case errors.Is(err, auth.ErrUnauthorized):
		apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, auth.ErrForbidden):
		apihttp.Error(w, http.StatusForbidden, "insufficient role")
	default:
		apihttp.Error(w, http.StatusInternalServerError, fallback)
	}
}

func respondValidationError(w http.ResponseWriter, err error) {
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

func timeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
