package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apihttp "facility-cloud/internal/api/http"
	"facility-cloud/internal/auth"
	reports "facility-cloud/internal/reports/application"
)

// Handler provides report and export endpoints.
type Handler struct {
	service *reports.Service
}

// NewHandler constructs a reports handler.
func NewHandler(service *reports.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("reports handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/reports/{alerts,work-orders,energy}[/export].
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	export := strings.HasSuffix(rest, "/export")
	name := strings.TrimSuffix(rest, "/export")

	t, payload, err := h.build(r, name)
	if err != nil {
		respondError(w, err)
		return
	}
	if !export {
		apihttp.JSON(w, http.StatusOK, payload)
		return
	}
	h.respondExport(w, r, name, t)
}

// build assembles the report named in the path. The table form feeds
// exports, the payload feeds the JSON response.
func (h *Handler) build(r *http.Request, name string) (table, any, error) {
	switch name {
	case "alerts":
		report, err := h.service.Alerts(r.Context(), r.URL.Query().Get("status"), r.URL.Query().Get("severity"))
		if err != nil {
			return table{}, nil, err
		}
		return alertsTable(report), report, nil
	case "work-orders":
		report, err := h.service.WorkOrders(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			return table{}, nil, err
		}
		return workOrdersTable(report), report, nil
	case "energy":
		from, ok := timeQuery(r, "from")
		if !ok {
			return table{}, nil, errBadTime
		}
		to, ok := timeQuery(r, "to")
		if !ok {
			return table{}, nil, errBadTime
		}
		report, err := h.service.Energy(r.Context(), from, to)
		if err != nil {
			return table{}, nil, err
		}
		return energyTable(report), report, nil
	default:
		return table{}, nil, errUnknownReport
	}
}

func (h *Handler) respondExport(w http.ResponseWriter, r *http.Request, name string, t table) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	var (
		payload     []byte
		contentType string
		extension   string
		err         error
	)
	switch format {
	case "csv":
		payload, err = buildCSV(t)
		contentType, extension = "text/csv", "csv"
	case "xlsx":
		payload, err = buildXLSX(t)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		extension = "xlsx"
	case "pdf":
		payload, err = buildPDF(t)
		contentType, extension = "application/pdf", "pdf"
	default:
		apihttp.Error(w, http.StatusBadRequest, "format must be csv, xlsx or pdf")
		return
	}
	if err != nil {
		apihttp.Error(w, http.StatusInternalServerError, "building export failed")
		return
	}
	filename := name + "-" + time.Now().UTC().Format("20060102") + "." + extension
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

var (
	errUnknownReport = errors.New("reports: unknown report")
	errBadTime       = errors.New("reports: invalid time")
)

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnknownReport):
		apihttp.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, errBadTime):
		apihttp.Error(w, http.StatusUnprocessableEntity, "from/to must be RFC 3339")
	case errors.Is(err, auth.ErrUnauthorized):
		apihttp.Error(w, http.StatusUnauthorized, "not authenticated")
	default:
		apihttp.Error(w, http.StatusInternalServerError, "building report failed")
	}
}

func timeQuery(r *http.Request, key string) (time.Time, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}
