package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	inventory "facility-cloud/internal/inventory/domain"
)

// Recorder persists validated sensor readings.
type Recorder interface {
	RecordReading(ctx context.Context, tenantID, sensorID string, value float64, recordedAt time.Time, source string) (*inventory.Reading, error)
}

// Handler accepts sensor readings over HTTP. Authentication is handled
// by the signature middleware wrapping it.
type Handler struct {
	recorder Recorder
	logger   *log.Logger
}

// NewHandler constructs a readings ingest handler.
func NewHandler(recorder Recorder, logger *log.Logger) (*Handler, error) {
	if recorder == nil {
		return nil, errors.New("ingest: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{recorder: recorder, logger: logger}, nil
}

type ingestRequest struct {
	TenantID   string        `json:"tenant_id"`
	SensorID   string        `json:"sensor_id"`
	Value      *float64      `json:"value"`
	RecordedAt string        `json:"recorded_at"`
	Readings   []ingestPoint `json:"readings"`
}

type ingestPoint struct {
	SensorID   string   `json:"sensor_id"`
	Value      *float64 `json:"value"`
	RecordedAt string   `json:"recorded_at"`
}

// ServeHTTP ingests one reading or a batch.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("readings ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("readings ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	points, err := req.points()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inserted := 0
	for _, point := range points {
		recordedAt, err := parseRecordedAt(point.RecordedAt)
		if err != nil {
			http.Error(w, "recorded_at must be RFC 3339", http.StatusBadRequest)
			return
		}
		if _, err := h.recorder.RecordReading(r.Context(), req.TenantID, point.SensorID, *point.Value, recordedAt, "http"); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				http.Error(w, "unknown sensor "+point.SensorID, http.StatusNotFound)
				return
			}
			h.logger.Printf("readings ingest: record error: %v", err)
			http.Error(w, "insert error", http.StatusInternalServerError)
			return
		}
		inserted++
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"inserted": inserted})
}

func (r ingestRequest) points() ([]ingestPoint, error) {
	if r.TenantID == "" {
		return nil, errors.New("missing tenant_id")
	}
	points := r.Readings
	if len(points) == 0 && r.SensorID != "" {
		points = []ingestPoint{{SensorID: r.SensorID, Value: r.Value, RecordedAt: r.RecordedAt}}
	}
	if len(points) == 0 {
		return nil, errors.New("no readings")
	}
	for _, point := range points {
		if point.SensorID == "" || point.Value == nil {
			return nil, errors.New("each reading needs sensor_id and value")
		}
	}
	return points, nil
}

func parseRecordedAt(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
