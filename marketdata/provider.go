// Package marketdata polls free public endpoints for the macro inputs the
// pricing tiers consume: ZAR/USD, an Ethereum gas proxy, stablecoin market
// caps, and CDS spreads proxied from the VIX. Every fetch is bounded by a
// timeout and degrades to the last known or a hardcoded fallback value;
// failures are never surfaced as fatal.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	appconfig "bricsflow/config"
	"bricsflow/internal/metrics"
	"bricsflow/logger"
)

// ErrDataSourceUnavailable marks a failed external fetch. Callers receive the
// fallback value alongside it and must keep ticking.
var ErrDataSourceUnavailable = errors.New("market data source unavailable")

// Fallback constants used when a source fails and nothing fresher is cached.
const (
	FallbackZarRate = 18.5
	FallbackGasGwei = 25.0
	FallbackSaCds   = 180.0
	FallbackEmCds   = 250.0

	baselineVix = 20.0
)

// CdsData carries the proxied CDS spreads with their term structure.
type CdsData struct {
	SouthAfricaCds          float64 `json:"south_africa_cds"`
	EmergingMarketCds       float64 `json:"emerging_market_cds"`
	Cds1y                   float64 `json:"cds_1y"`
	Cds5y                   float64 `json:"cds_5y"`
	Cds10y                  float64 `json:"cds_10y"`
	ZarVolatilityAdjustment float64 `json:"zar_volatility_adjustment"`
}

// StablecoinCaps holds USD market caps of the two reference stablecoins.
type StablecoinCaps struct {
	UsdcMcap float64 `json:"usdc_mcap"`
	UsdtMcap float64 `json:"usdt_mcap"`
}

// FallbackCdsData is the spread set assumed when the VIX proxy is down.
func FallbackCdsData() CdsData {
	return CdsData{
		SouthAfricaCds:    FallbackSaCds,
		EmergingMarketCds: FallbackEmCds,
		Cds1y:             FallbackSaCds,
		Cds5y:             FallbackSaCds + 20,
		Cds10y:            FallbackSaCds + 35,
	}
}

// Provider polls the configured endpoints. Fetches share one rate limiter so
// a hot dashboard cannot hammer the free APIs; when the limiter denies a
// request the last known value is served instead.
type Provider struct {
	client    *http.Client
	limiter   *rate.Limiter
	endpoints appconfig.EndpointsConfig
	log       *logger.Entry

	mu          sync.RWMutex
	lastZarRate float64
	lastGas     float64
	lastCaps    StablecoinCaps
	lastCds     CdsData
	hasCaps     bool
}

// NewProvider builds a provider from configuration.
func NewProvider(cfg *appconfig.Config) *Provider {
	timeout := cfg.MarketData.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Provider{
		client:      &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.MarketData.RateLimit.RequestsPerSecond), cfg.MarketData.RateLimit.BurstSize),
		endpoints:   cfg.MarketData.Endpoints,
		log:         logger.GetLogger().WithComponent("marketdata"),
		lastZarRate: FallbackZarRate,
		lastGas:     FallbackGasGwei,
		lastCds:     FallbackCdsData(),
	}
}

// SaCdsSpread returns the latest observed South African CDS spread without
// touching the network. It backs the scheduler's CdsSource hook.
func (p *Provider) SaCdsSpread() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastCds.SouthAfricaCds
}

// LastCds returns the most recent CDS data without touching the network.
func (p *Provider) LastCds() CdsData {
	return p.lastKnownCds()
}

// FetchFxRate returns the ZAR-per-USD exchange rate. On failure the last
// known rate is returned together with ErrDataSourceUnavailable.
func (p *Provider) FetchFxRate(ctx context.Context) (float64, error) {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := p.getJSON(ctx, "fx_rate", p.endpoints.FxRate, &payload); err != nil {
		return p.lastKnownZar(), err
	}
	zar, ok := payload.Rates["ZAR"]
	if !ok || zar <= 0 {
		return p.lastKnownZar(), p.fail("fx_rate", fmt.Errorf("response missing ZAR rate"))
	}

	p.mu.Lock()
	p.lastZarRate = zar
	p.mu.Unlock()
	return zar, nil
}

// FetchGasProxy returns the safe gas price in gwei as a network congestion
// proxy.
func (p *Provider) FetchGasProxy(ctx context.Context) (float64, error) {
	var payload struct {
		Status string `json:"status"`
		Result struct {
			SafeGasPrice string `json:"SafeGasPrice"`
		} `json:"result"`
	}
	if err := p.getJSON(ctx, "gas_proxy", p.endpoints.GasProxy, &payload); err != nil {
		return p.lastKnownGas(), err
	}
	if payload.Status != "1" {
		return p.lastKnownGas(), p.fail("gas_proxy", fmt.Errorf("gas oracle status %q", payload.Status))
	}
	var gas float64
	if _, err := fmt.Sscanf(payload.Result.SafeGasPrice, "%f", &gas); err != nil || gas <= 0 {
		return p.lastKnownGas(), p.fail("gas_proxy", fmt.Errorf("unparseable gas price %q", payload.Result.SafeGasPrice))
	}

	p.mu.Lock()
	p.lastGas = gas
	p.mu.Unlock()
	return gas, nil
}

// FetchStablecoinCaps returns USD market caps for USDC and USDT.
func (p *Provider) FetchStablecoinCaps(ctx context.Context) (StablecoinCaps, error) {
	var payload map[string]struct {
		Usd       float64 `json:"usd"`
		UsdMktCap float64 `json:"usd_market_cap"`
	}
	if err := p.getJSON(ctx, "stablecoin_caps", p.endpoints.StablecoinCaps, &payload); err != nil {
		return p.lastKnownCaps(), err
	}

	caps := StablecoinCaps{
		UsdcMcap: payload["usd-coin"].UsdMktCap,
		UsdtMcap: payload["tether"].UsdMktCap,
	}
	if caps.UsdcMcap <= 0 && caps.UsdtMcap <= 0 {
		return p.lastKnownCaps(), p.fail("stablecoin_caps", fmt.Errorf("response missing market caps"))
	}

	p.mu.Lock()
	p.lastCaps = caps
	p.hasCaps = true
	p.mu.Unlock()
	return caps, nil
}

// FetchCdsProxy derives CDS spreads from a VIX quote: a higher VIX widens
// both the South African and emerging-market spreads, ZAR deviation from 18.5
// adds up to 50bp per 1% move, and the term structure adds fixed premia at
// 5y and 10y.
func (p *Provider) FetchCdsProxy(ctx context.Context) (CdsData, error) {
	var payload []struct {
		Price float64 `json:"price"`
	}
	if err := p.getJSON(ctx, "cds_proxy", p.endpoints.CdsProxy, &payload); err != nil {
		return p.lastKnownCds(), err
	}
	if len(payload) == 0 || payload[0].Price <= 0 {
		return p.lastKnownCds(), p.fail("cds_proxy", fmt.Errorf("response missing VIX quote"))
	}

	vix := payload[0].Price
	data := CdsData{
		SouthAfricaCds:    clampF(FallbackSaCds+(vix-baselineVix)*3, 150, 300),
		EmergingMarketCds: clampF(FallbackEmCds+(vix-baselineVix)*4, 200, 400),
	}
	data.Cds1y = data.SouthAfricaCds
	data.Cds5y = data.SouthAfricaCds + 20
	data.Cds10y = data.SouthAfricaCds + 35

	zarVolatility := math.Abs(p.lastKnownZar()-FallbackZarRate) / FallbackZarRate
	data.ZarVolatilityAdjustment = zarVolatility * 50

	p.mu.Lock()
	p.lastCds = data
	p.mu.Unlock()
	return data, nil
}

func (p *Provider) getJSON(ctx context.Context, source, url string, out interface{}) error {
	if url == "" {
		return p.fail(source, fmt.Errorf("no endpoint configured"))
	}
	if !p.limiter.Allow() {
		return p.fail(source, fmt.Errorf("rate limit exceeded"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return p.fail(source, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.fail(source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.fail(source, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return p.fail(source, err)
	}
	return nil
}

func (p *Provider) fail(source string, cause error) error {
	metrics.IncrementFallbackFetch(source)
	logger.IncrementFallbackFetch()
	p.log.WithFields(logger.Fields{
		"source": source,
		"reason": cause.Error(),
	}).Debug("market data fetch degraded to fallback")
	return fmt.Errorf("%w: %s: %v", ErrDataSourceUnavailable, source, cause)
}

func (p *Provider) lastKnownZar() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastZarRate
}

func (p *Provider) lastKnownGas() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastGas
}

func (p *Provider) lastKnownCaps() StablecoinCaps {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastCaps
}

func (p *Provider) lastKnownCds() CdsData {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastCds
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
