package ingest

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	inventory "facility-cloud/internal/inventory/domain"
)

type recordedCall struct {
	tenantID string
	sensorID string
	value    float64
	source   string
}

type stubRecorder struct {
	calls []recordedCall
	err   error
}

func (s *stubRecorder) RecordReading(_ context.Context, tenantID, sensorID string, value float64, recordedAt time.Time, source string) (*inventory.Reading, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, recordedCall{tenantID: tenantID, sensorID: sensorID, value: value, source: source})
	return &inventory.Reading{SensorID: sensorID, Value: value, RecordedAt: recordedAt}, nil
}

func TestIngestSingleReading(t *testing.T) {
	recorder := &stubRecorder{}
	handler, err := NewHandler(recorder, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	body := `{"tenant_id":"tenant-1","sensor_id":"sensor-1","value":21.5,"recorded_at":"2025-04-10T09:00:00Z"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/readings", strings.NewReader(body)))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["inserted"] != 1 {
		t.Fatalf("inserted = %d", resp["inserted"])
	}
	if len(recorder.calls) != 1 {
		t.Fatalf("calls = %d", len(recorder.calls))
	}
	call := recorder.calls[0]
	if call.tenantID != "tenant-1" || call.sensorID != "sensor-1" || call.value != 21.5 || call.source != "http" {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestIngestBatch(t *testing.T) {
	recorder := &stubRecorder{}
	handler, _ := NewHandler(recorder, nil)

	body := `{"tenant_id":"tenant-1","readings":[
		{"sensor_id":"sensor-1","value":1},
		{"sensor_id":"sensor-2","value":2}
	]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/readings", strings.NewReader(body)))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(recorder.calls) != 2 {
		t.Fatalf("calls = %d", len(recorder.calls))
	}
}

func TestIngestRejectsMissingFields(t *testing.T) {
	recorder := &stubRecorder{}
	handler, _ := NewHandler(recorder, nil)

	for _, body := range []string{
		`{"sensor_id":"sensor-1","value":1}`,
		`{"tenant_id":"tenant-1"}`,
		`{"tenant_id":"tenant-1","sensor_id":"sensor-1"}`,
		`not json`,
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/readings", strings.NewReader(body)))
		if rec.Code != 400 {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if len(recorder.calls) != 0 {
		t.Fatalf("calls = %d, want 0", len(recorder.calls))
	}
}

func TestIngestUnknownSensor(t *testing.T) {
	recorder := &stubRecorder{err: inventory.ErrNotFound}
	handler, _ := NewHandler(recorder, nil)

	body := `{"tenant_id":"tenant-1","sensor_id":"sensor-x","value":1}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/readings", strings.NewReader(body)))
	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
