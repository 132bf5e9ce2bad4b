package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "bricsflow/config"
)

func testConfig(endpoints appconfig.EndpointsConfig) *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.MarketData.Timeout = time.Second
	cfg.MarketData.RateLimit.RequestsPerSecond = 100
	cfg.MarketData.RateLimit.BurstSize = 100
	cfg.MarketData.Endpoints = endpoints
	return cfg
}

func TestFetchFxRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"ZAR":19.2,"EUR":0.9}}`))
	}))
	defer srv.Close()

	p := NewProvider(testConfig(appconfig.EndpointsConfig{FxRate: srv.URL}))
	rate, err := p.FetchFxRate(context.Background())
	if err != nil {
		t.Fatalf("FetchFxRate failed: %v", err)
	}
	if rate != 19.2 {
		t.Errorf("rate = %v, want 19.2", rate)
	}
}

func TestFetchFxRateFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider(testConfig(appconfig.EndpointsConfig{FxRate: srv.URL}))
	rate, err := p.FetchFxRate(context.Background())
	if !errors.Is(err, ErrDataSourceUnavailable) {
		t.Fatalf("expected ErrDataSourceUnavailable, got %v", err)
	}
	if rate != FallbackZarRate {
		t.Errorf("fallback rate = %v, want %v", rate, FallbackZarRate)
	}
}

func TestFetchFxRateRemembersLastKnown(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"rates":{"ZAR":20.1}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProvider(testConfig(appconfig.EndpointsConfig{FxRate: srv.URL}))
	if _, err := p.FetchFxRate(context.Background()); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	rate, err := p.FetchFxRate(context.Background())
	if err == nil {
		t.Fatal("expected degraded fetch error")
	}
	if rate != 20.1 {
		t.Errorf("degraded rate = %v, want last known 20.1", rate)
	}
}

func TestFetchGasProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","result":{"SafeGasPrice":"32"}}`))
	}))
	defer srv.Close()

	p := NewProvider(testConfig(appconfig.EndpointsConfig{GasProxy: srv.URL}))
	gas, err := p.FetchGasProxy(context.Background())
	if err != nil {
		t.Fatalf("FetchGasProxy failed: %v", err)
	}
	if gas != 32 {
		t.Errorf("gas = %v, want 32", gas)
	}
}

func TestFetchCdsProxyFromVix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"^VIX","price":30.0}]`))
	}))
	defer srv.Close()

	p := NewProvider(testConfig(appconfig.EndpointsConfig{CdsProxy: srv.URL}))
	data, err := p.FetchCdsProxy(context.Background())
	if err != nil {
		t.Fatalf("FetchCdsProxy failed: %v", err)
	}

	// VIX 30: SA = 180 + 10*3 = 210, EM = 250 + 10*4 = 290.
	if data.SouthAfricaCds != 210 {
		t.Errorf("SA CDS = %v, want 210", data.SouthAfricaCds)
	}
	if data.EmergingMarketCds != 290 {
		t.Errorf("EM CDS = %v, want 290", data.EmergingMarketCds)
	}
	if data.Cds5y != data.SouthAfricaCds+20 || data.Cds10y != data.SouthAfricaCds+35 {
		t.Errorf("term structure wrong: %+v", data)
	}

	if got := p.SaCdsSpread(); got != 210 {
		t.Errorf("SaCdsSpread = %v, want cached 210", got)
	}
}

func TestFetchCdsProxyClamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"price":90.0}]`))
	}))
	defer srv.Close()

	p := NewProvider(testConfig(appconfig.EndpointsConfig{CdsProxy: srv.URL}))
	data, err := p.FetchCdsProxy(context.Background())
	if err != nil {
		t.Fatalf("FetchCdsProxy failed: %v", err)
	}
	if data.SouthAfricaCds != 300 {
		t.Errorf("SA CDS = %v, want clamp ceiling 300", data.SouthAfricaCds)
	}
	if data.EmergingMarketCds != 400 {
		t.Errorf("EM CDS = %v, want clamp ceiling 400", data.EmergingMarketCds)
	}
}

func TestFetchCdsProxyFallback(t *testing.T) {
	p := NewProvider(testConfig(appconfig.EndpointsConfig{}))
	data, err := p.FetchCdsProxy(context.Background())
	if !errors.Is(err, ErrDataSourceUnavailable) {
		t.Fatalf("expected ErrDataSourceUnavailable, got %v", err)
	}
	if data != FallbackCdsData() {
		t.Errorf("fallback data = %+v, want %+v", data, FallbackCdsData())
	}
}

func TestFetchStablecoinCaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"usd-coin":{"usd":1.0,"usd_market_cap":32000000000},"tether":{"usd":1.0,"usd_market_cap":110000000000}}`))
	}))
	defer srv.Close()

	p := NewProvider(testConfig(appconfig.EndpointsConfig{StablecoinCaps: srv.URL}))
	caps, err := p.FetchStablecoinCaps(context.Background())
	if err != nil {
		t.Fatalf("FetchStablecoinCaps failed: %v", err)
	}
	if caps.UsdcMcap != 32000000000 || caps.UsdtMcap != 110000000000 {
		t.Errorf("caps = %+v", caps)
	}
}
