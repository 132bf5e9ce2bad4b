package engine

import (
	"math/rand"

	"bricsflow/models"
)

// Regime is the market stress level drawn each fast tick.
type Regime string

const (
	RegimeNormal Regime = "normal"
	RegimeStress Regime = "stress"
	RegimeCrisis Regime = "crisis"
)

// regimeBands holds the volatility bands scaled by each regime: price range
// around target, currency movement, and yield drift.
var regimeBands = map[Regime]struct {
	Price      float64
	Currency   float64
	Yield      float64
	Multiplier float64
}{
	RegimeNormal: {Price: 0.005, Currency: 0.02, Yield: 0.1, Multiplier: 1.0},
	RegimeStress: {Price: 0.015, Currency: 0.05, Yield: 0.3, Multiplier: 1.5},
	RegimeCrisis: {Price: 0.025, Currency: 0.10, Yield: 0.5, Multiplier: 2.0},
}

// PricingUpdater recomputes the synthetic token price and its dependent
// metrics each fast tick, using a bounded random walk around the $1.00 peg.
type PricingUpdater struct {
	rng *rand.Rand
}

// NewPricingUpdater builds an updater around the given random source.
func NewPricingUpdater(rng *rand.Rand) *PricingUpdater {
	return &PricingUpdater{rng: rng}
}

// DrawRegime samples the market stress regime: 75% normal, 20% stress,
// 5% crisis.
func (p *PricingUpdater) DrawRegime() Regime {
	r := p.rng.Float64()
	switch {
	case r < 0.75:
		return RegimeNormal
	case r < 0.95:
		return RegimeStress
	default:
		return RegimeCrisis
	}
}

// Update applies one fast-tick pricing pass to the metrics map in place and
// returns the regime that drove it. All dependent metrics are recomputed from
// the same regime draw, so monthly_yield_total = cds + sovereign and
// apy_per_brics = monthly_yield_total * 12 hold exactly on return.
func (p *PricingUpdater) Update(m models.ProtocolMetrics) Regime {
	regime := p.DrawRegime()
	band := regimeBands[regime]

	// CDS premium and sovereign yield drift within their bands.
	cds := clamp(m[models.MetricCdsPremiumsMonthly]+p.uniform(-0.1, 0.1)*band.Yield, 1.0, 3.0)
	sovereign := clamp(m[models.MetricSovereignYieldMonthly]+p.uniform(-0.05, 0.05)*band.Yield, 0.5, 1.5)
	zar := clamp(m[models.MetricZarRate]+p.uniform(-band.Currency, band.Currency), 15.0, 25.0)

	// Target price: peg plus yield component plus ZAR deviation effect.
	yieldComponent := (cds + sovereign) / 100
	zarEffect := (zar - 18.5) / 100
	target := 1.00 + yieldComponent + zarEffect

	priceNoise := p.uniform(-band.Price, band.Price)
	arbitragePressure := p.uniform(-0.01, 0.01)
	volumeEffect := p.uniform(-0.005, 0.005)
	price := clamp(target+(priceNoise+arbitragePressure+volumeEffect)*band.Multiplier, 0.95, 1.10)

	total := cds + sovereign

	m[models.MetricBricsPrice] = price
	m[models.MetricCdsPremiumsMonthly] = cds
	m[models.MetricSovereignYieldMonthly] = sovereign
	m[models.MetricZarRate] = zar
	m[models.MetricMonthlyYieldTotal] = total
	m[models.MetricAPYPerBrics] = total * 12

	// Weighted PD creeps upward only under market stress; the slow tier
	// reconciles it back to the exact table value.
	switch regime {
	case RegimeStress:
		m[models.MetricWeightedPD] = min(0.15, m[models.MetricWeightedPD]+p.uniform(0.001, 0.005))
	case RegimeCrisis:
		m[models.MetricWeightedPD] = min(0.15, m[models.MetricWeightedPD]+p.uniform(0.005, 0.015))
	}

	m[models.MetricCapitalEfficiency] = clamp(m[models.MetricCapitalEfficiency]+p.uniform(-0.05, 0.05), 5.0, 12.0)

	return regime
}

func (p *PricingUpdater) uniform(lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}
