// Registers:
//
//	#BricsFlow_tier_firings_total
//	#BricsFlow_transactions_total
//	#BricsFlow_integrity_faults_total
//	#BricsFlow_fallback_fetches_total
//	#BricsFlow_archive_rows_total
//	#go_* and process_* system metrics
//
// Exposes them on the configured address under /metrics using the
// Prometheus HTTP handler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once            sync.Once
	tierFirings     *prometheus.CounterVec
	transactions    *prometheus.CounterVec
	integrityFaults prometheus.Counter
	fallbackFetches *prometheus.CounterVec
	archiveRows     prometheus.Counter
	bricsPrice      prometheus.Gauge
	totalNotional   prometheus.Gauge
	weightedPD      prometheus.Gauge
	monthlyYield    prometheus.Gauge
)

func Init(address string) {
	once.Do(func() {
		if address == "" {
			address = "0.0.0.0:2112"
		}

		tierFirings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "BricsFlow_tier_firings_total",
				Help: "Number of scheduler tier executions",
			},
			[]string{"tier"},
		)

		transactions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "BricsFlow_transactions_total",
				Help: "Number of simulated transactions generated",
			},
			[]string{"product"},
		)

		integrityFaults = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "BricsFlow_integrity_faults_total",
				Help: "Number of transactions rejected by state integrity checks",
			},
		)

		fallbackFetches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "BricsFlow_fallback_fetches_total",
				Help: "Number of market data fetches served from fallback values",
			},
			[]string{"source"},
		)

		archiveRows = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "BricsFlow_archive_rows_total",
				Help: "Number of tick rows flushed to the parquet archive",
			},
		)

		bricsPrice = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "BricsFlow_brics_price",
				Help: "Current simulated BRICS token price in USD",
			},
		)

		totalNotional = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "BricsFlow_total_notional_usd",
				Help: "Total portfolio notional across all obligors in USD",
			},
		)

		weightedPD = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "BricsFlow_weighted_pd",
				Help: "Exposure weighted portfolio probability of default",
			},
		)

		monthlyYield = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "BricsFlow_monthly_yield_total",
				Help: "Total monthly yield rate of the protocol",
			},
		)

		_ = prometheus.Register(tierFirings)
		_ = prometheus.Register(transactions)
		_ = prometheus.Register(integrityFaults)
		_ = prometheus.Register(fallbackFetches)
		_ = prometheus.Register(archiveRows)
		_ = prometheus.Register(bricsPrice)
		_ = prometheus.Register(totalNotional)
		_ = prometheus.Register(weightedPD)
		_ = prometheus.Register(monthlyYield)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(address, nil); err != nil {
				panic("metrics server failed: " + err.Error())
			}
		}()
	})
}

// IncrementTierFiring increases the firing counter for a scheduler tier.
func IncrementTierFiring(tier string) {
	if tierFirings != nil {
		tierFirings.WithLabelValues(tier).Inc()
	}
}

// AddTransactions increases the transaction counter for a product type.
func AddTransactions(product string, n int) {
	if transactions != nil && n > 0 {
		transactions.WithLabelValues(product).Add(float64(n))
	}
}

// IncrementIntegrityFault increases the rejected transaction counter.
func IncrementIntegrityFault() {
	if integrityFaults != nil {
		integrityFaults.Inc()
	}
}

// IncrementFallbackFetch increases the fallback counter for a market data source.
func IncrementFallbackFetch(source string) {
	if fallbackFetches != nil {
		fallbackFetches.WithLabelValues(source).Inc()
	}
}

// AddArchiveRows increases the archive row counter.
func AddArchiveRows(n int) {
	if archiveRows != nil && n > 0 {
		archiveRows.Add(float64(n))
	}
}

// SetProtocolGauges publishes the headline protocol metrics.
func SetProtocolGauges(price, notional, pd, yield float64) {
	if bricsPrice == nil {
		return
	}
	bricsPrice.Set(price)
	totalNotional.Set(notional)
	weightedPD.Set(pd)
	monthlyYield.Set(yield)
}
