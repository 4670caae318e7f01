package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func issueTestToken(t *testing.T, role Role) string {
	t.Helper()
	token, err := IssueToken(testSecret, TokenTypeAccess, "user-1", "tenant-1", role, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func newTestMiddleware() *Middleware {
	policy := NewDefaultPolicy([]string{"/healthz", "/api/auth/login"}, nil)
	return NewMiddleware(testSecret, policy)
}

func perform(middleware *Middleware, method, path, token string) *httptest.ResponseRecorder {
	handler := middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	rec := perform(newTestMiddleware(), http.MethodGet, "/api/alerts", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareExemptPathSkipsAuth(t *testing.T) {
	rec := perform(newTestMiddleware(), http.MethodPost, "/api/auth/login", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareEnforcesCapabilities(t *testing.T) {
	middleware := newTestMiddleware()
	cases := []struct {
		role   Role
		method string
		path   string
		want   int
	}{
		{RoleViewer, http.MethodGet, "/api/alerts", http.StatusOK},
		{RoleViewer, http.MethodPost, "/api/alerts", http.StatusForbidden},
		{RoleViewer, http.MethodPost, "/api/alerts/alert-1/acknowledge", http.StatusForbidden},
		{RoleTechnician, http.MethodPost, "/api/alerts/alert-1/acknowledge", http.StatusOK},
		{RoleTechnician, http.MethodPost, "/api/alerts/alert-1/resolve", http.StatusForbidden},
		{RoleTechnician, http.MethodPost, "/api/work-orders/wo-1/assign", http.StatusForbidden},
		{RoleFacilityManager, http.MethodPost, "/api/work-orders/wo-1/assign", http.StatusOK},
		{RoleTechnician, http.MethodGet, "/api/users", http.StatusForbidden},
		{RoleAdmin, http.MethodGet, "/api/users", http.StatusOK},
		{RoleViewer, http.MethodGet, "/api/reports/alerts", http.StatusOK},
		{RoleViewer, http.MethodGet, "/api/reports/alerts/export", http.StatusForbidden},
		{RoleExecutive, http.MethodGet, "/api/reports/alerts/export", http.StatusOK},
		{RoleViewer, http.MethodPost, "/api/sites", http.StatusForbidden},
		{RoleFacilityManager, http.MethodPost, "/api/sites", http.StatusOK},
		{RoleViewer, http.MethodPost, "/api/portfolios", http.StatusForbidden},
		{RoleFacilityManager, http.MethodGet, "/api/portfolios", http.StatusOK},
		{RoleViewer, http.MethodPost, "/api/systems", http.StatusForbidden},
		{RoleFacilityManager, http.MethodPost, "/api/systems", http.StatusOK},
	}
	for _, tc := range cases {
		rec := perform(middleware, tc.method, tc.path, issueTestToken(t, tc.role))
		if rec.Code != tc.want {
			t.Errorf("%s %s as %s: status = %d, want %d", tc.method, tc.path, tc.role, rec.Code, tc.want)
		}
	}
}

func TestMiddlewareAcceptsQueryTokenForWebsocket(t *testing.T) {
	middleware := newTestMiddleware()
	handler := middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/ws?token="+issueTestToken(t, RoleViewer), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareIgnoresQueryTokenElsewhere(t *testing.T) {
	middleware := newTestMiddleware()
	handler := middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/alerts?token="+issueTestToken(t, RoleViewer), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIngestSignatureRoundTrip(t *testing.T) {
	secret := []byte("ingest-secret")
	middleware := NewIngestAuthMiddleware(secret, time.Minute)
	handler := middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	body := []byte(`{"tenant_id":"tenant-1","sensor_id":"sensor-1","value":1}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/api/readings", bytes.NewReader(body))
	req.Header.Set("X-Ingest-Timestamp", ts)
	req.Header.Set("X-Ingest-Signature", ComputeIngestSignature(secret, ts, body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Missing signature.
	unsigned := httptest.NewRequest(http.MethodPost, "/api/readings", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, unsigned)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned: status = %d, want 401", rec.Code)
	}

	// Tampered body.
	tampered := httptest.NewRequest(http.MethodPost, "/api/readings", bytes.NewReader([]byte(`{"value":999}`)))
	tampered.Header.Set("X-Ingest-Timestamp", ts)
	tampered.Header.Set("X-Ingest-Signature", ComputeIngestSignature(secret, ts, body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, tampered)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tampered: status = %d, want 401", rec.Code)
	}
}
