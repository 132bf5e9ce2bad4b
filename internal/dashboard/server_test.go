package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bricsflow/config"
	"bricsflow/engine"
	"bricsflow/logger"
)

func newTestEngine() *engine.Engine {
	cfg := &config.Config{}
	cfg.Engine.Seed = 42
	cfg.Engine.Obligors = 10
	cfg.Engine.PassInterval = time.Second
	cfg.Engine.Tiers.Fast = time.Second
	cfg.Engine.Tiers.Medium = 2 * time.Second
	cfg.Engine.Tiers.Slow = 3 * time.Second
	cfg.Engine.Analytics.VarTrials = 200
	cfg.Engine.Analytics.ConfidenceLevel = 0.95
	return engine.NewEngine(cfg, nil)
}

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":                           "0.0.0.0:8080",
		"  :9090  ":                  "0.0.0.0:9090",
		"localhost":                  "localhost:8080",
		"0.0.0.0:80":                 "0.0.0.0:80",
		"[::1]:443":                  "[::1]:443",
		"::1":                        "[::1]:8080",
		"*:8080":                     "0.0.0.0:8080",
		"http://13.200.112.203:8080": "13.200.112.203:8080",
		"https://13.200.112.203":     "13.200.112.203:8080",
		"http://:7070":               "0.0.0.0:7070",
		"tcp://localhost:5050":       "localhost:5050",
	}

	for input, want := range cases {
		if got := normalizeAddress(input); got != want {
			t.Fatalf("normalizeAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewServerDisabled(t *testing.T) {
	cfg := config.DashboardConfig{Enabled: false}
	if srv := NewServer(cfg, newTestEngine(), nil, logger.Logger()); srv != nil {
		t.Fatal("expected nil server when dashboard disabled")
	}
}

func TestNewServerNormalizesConfiguredAddress(t *testing.T) {
	cfg := config.DashboardConfig{Enabled: true, Address: ":9000"}

	srv := NewServer(cfg, newTestEngine(), nil, logger.Logger())
	if srv == nil {
		t.Fatal("expected dashboard server, got nil")
	}
	if got := srv.Address(); got != "0.0.0.0:9000" {
		t.Fatalf("server address = %q, want %q", got, "0.0.0.0:9000")
	}
	srv.cleanup()
}

func TestProtocolRoute(t *testing.T) {
	cfg := config.DashboardConfig{Enabled: true, Address: ":9000"}
	srv := NewServer(cfg, newTestEngine(), nil, logger.Logger())
	defer srv.cleanup()

	router := srv.buildRouter("bricsflow-test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/protocol", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/protocol status = %d, want 200", rec.Code)
	}

	var payload struct {
		Metrics map[string]float64 `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if payload.Metrics["brics_price"] <= 0 {
		t.Fatalf("expected positive brics_price, got %v", payload.Metrics["brics_price"])
	}
}

func TestPortfolioRoute(t *testing.T) {
	cfg := config.DashboardConfig{Enabled: true, Address: ":9000"}
	srv := NewServer(cfg, newTestEngine(), nil, logger.Logger())
	defer srv.cleanup()

	router := srv.buildRouter("bricsflow-test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/portfolio status = %d, want 200", rec.Code)
	}

	var payload struct {
		Obligors []struct {
			ID            string  `json:"company"`
			TotalExposure float64 `json:"total_exposure"`
		} `json:"obligors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(payload.Obligors) != 10 {
		t.Fatalf("expected 10 obligors, got %d", len(payload.Obligors))
	}
	for _, ob := range payload.Obligors {
		if ob.TotalExposure <= 0 {
			t.Fatalf("obligor %s has non-positive exposure", ob.ID)
		}
	}
}

func TestLiveToggleRoute(t *testing.T) {
	cfg := config.DashboardConfig{Enabled: true, Address: ":9000"}
	eng := newTestEngine()
	srv := NewServer(cfg, eng, nil, logger.Logger())
	defer srv.cleanup()

	router := srv.buildRouter("bricsflow-test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/live", strings.NewReader(`{"enabled": true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/live status = %d, want 200", rec.Code)
	}
	if !eng.Scheduler().Live() {
		t.Fatal("scheduler not live after enable")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/live", strings.NewReader(`{"enabled": false}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/live status = %d, want 200", rec.Code)
	}
	if eng.Scheduler().Live() {
		t.Fatal("scheduler still live after disable")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/live", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /api/live with bad body status = %d, want 400", rec.Code)
	}
}

func TestForecastRouteDefaultsDays(t *testing.T) {
	cfg := config.DashboardConfig{Enabled: true, Address: ":9000"}
	srv := NewServer(cfg, newTestEngine(), nil, logger.Logger())
	defer srv.cleanup()

	router := srv.buildRouter("bricsflow-test")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/forecast?days=bogus", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/forecast status = %d, want 200", rec.Code)
	}

	var payload struct {
		Forecasts []json.RawMessage `json:"forecasts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(payload.Forecasts) != 30 {
		t.Fatalf("expected 30 forecast points by default, got %d", len(payload.Forecasts))
	}
}
