package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/platform/auth"
)

func testDeps(t *testing.T) *deps {
	t.Helper()
	cfg := &config.Config{
		Env:             "test",
		JWTSecret:       "test-secret-key-for-router-tests-only",
		JWTIssuer:       "clinic-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		BcryptCost:      4,
		CORSOrigins:     []string{"http://localhost:3000"},
		RateLimitRPS:    100,
		RateLimitBurst:  100,
		RequestTimeout:  5 * time.Second,
		BodyLimit:       "1M",
		MetricsEnabled:  true,
	}
	revoked := auth.NewMemoryRevocationStore(time.Hour)
	t.Cleanup(func() { _ = revoked.Close() })
	return &deps{
		cfg:     cfg,
		logger:  zerolog.New(io.Discard),
		tokens:  newTokenIssuer(cfg),
		revoked: revoked,
	}
}

func TestRouter_Health(t *testing.T) {
	e := newRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != version {
		t.Errorf("unexpected body %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	e := newRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clinics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if body["message"] == "" || body["message"] == nil {
		t.Errorf("expected error message, got %v", body)
	}
}

func TestRouter_LoginValidatesBody(t *testing.T) {
	e := newRouter(testDeps(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_RoleEnforced(t *testing.T) {
	d := testDeps(t)
	e := newRouter(d)

	pair, err := d.tokens.Issue(auth.PatientActor{User: 9, PatientID: 3})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRouter_Routes(t *testing.T) {
	e := newRouter(testDeps(t))

	want := map[string]bool{
		"POST /api/v1/auth/login":               false,
		"POST /api/v1/auth/refresh":             false,
		"POST /api/v1/auth/logout":              false,
		"GET /api/v1/auth/me":                   false,
		"GET /api/v1/patients":                  false,
		"GET /api/v1/patients/:id/appointments": false,
		"GET /api/v1/doctors":                   false,
		"GET /api/v1/doctors/:id/examinations":  false,
		"GET /api/v1/clinics":                   false,
		"POST /api/v1/appointments":             false,
		"POST /api/v1/appointments/:id/cancel":  false,
		"POST /api/v1/examinations":             false,
		"GET /api/v1/dashboard/stats":           false,
		"GET /api/v1/users":                     false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestRouter_Metrics(t *testing.T) {
	e := newRouter(testDeps(t))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without a token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/health",status_code="200"`) {
		t.Errorf("expected /health to be recorded, got:\n%s", rec.Body.String())
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		logger := newLogger(env)
		if logger.GetLevel() != zerolog.TraceLevel && logger.GetLevel() != zerolog.DebugLevel {
			t.Errorf("unexpected default level %v for %s", logger.GetLevel(), env)
		}
	}
}
