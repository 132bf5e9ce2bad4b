package models

// Protocol metric keys. The metrics table is seeded from a baseline snapshot
// at startup and mutated by the scheduler tiers.
const (
	MetricBricsPrice            = "brics_price"
	MetricCdsPremiumsMonthly    = "cds_premiums_monthly"
	MetricSovereignYieldMonthly = "sovereign_yield_monthly"
	MetricMonthlyYieldTotal     = "monthly_yield_total"
	MetricAPYPerBrics           = "apy_per_brics"
	MetricWeightedPD            = "weighted_pd"
	MetricCapitalEfficiency     = "capital_efficiency"
	MetricOvercollateralization = "overcollateralization"
	MetricZarRate               = "zar_rate"
	MetricTotalNotional         = "total_notional"
	MetricTokensMinted          = "tokens_minted"
)

// ProtocolMetrics is the keyed set of protocol-level scalars.
type ProtocolMetrics map[string]float64

// BaselineProtocolMetrics returns the seed snapshot used when no reference
// table is configured. apy_per_brics is derived from the monthly total so the
// APY identity holds from the first tick.
func BaselineProtocolMetrics() ProtocolMetrics {
	cds := 1.8
	sovereign := 0.9
	total := cds + sovereign
	return ProtocolMetrics{
		MetricBricsPrice:            1.00,
		MetricCdsPremiumsMonthly:    cds,
		MetricSovereignYieldMonthly: sovereign,
		MetricMonthlyYieldTotal:     total,
		MetricAPYPerBrics:           total * 12,
		MetricWeightedPD:            0.06,
		MetricCapitalEfficiency:     8.0,
		MetricOvercollateralization: 0.12,
		MetricZarRate:               18.5,
		MetricTotalNotional:         0,
		MetricTokensMinted:          100000,
	}
}

// Clone returns an independent copy of the metrics map.
func (m ProtocolMetrics) Clone() ProtocolMetrics {
	out := make(ProtocolMetrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
