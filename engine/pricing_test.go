package engine

import (
	"math/rand"
	"testing"

	"bricsflow/models"
)

func TestPricingUpdateAPYIdentity(t *testing.T) {
	updater := NewPricingUpdater(rand.New(rand.NewSource(5)))
	m := models.BaselineProtocolMetrics()

	for i := 0; i < 500; i++ {
		updater.Update(m)

		total := m[models.MetricCdsPremiumsMonthly] + m[models.MetricSovereignYieldMonthly]
		if m[models.MetricMonthlyYieldTotal] != total {
			t.Fatalf("tick %d: monthly_yield_total = %v, want cds+sovereign = %v", i, m[models.MetricMonthlyYieldTotal], total)
		}
		if m[models.MetricAPYPerBrics] != m[models.MetricMonthlyYieldTotal]*12 {
			t.Fatalf("tick %d: apy = %v, want monthly x 12 = %v", i, m[models.MetricAPYPerBrics], m[models.MetricMonthlyYieldTotal]*12)
		}
	}
}

func TestPricingUpdateBounds(t *testing.T) {
	updater := NewPricingUpdater(rand.New(rand.NewSource(9)))
	m := models.BaselineProtocolMetrics()

	for i := 0; i < 500; i++ {
		updater.Update(m)

		if p := m[models.MetricBricsPrice]; p < 0.95 || p > 1.10 {
			t.Fatalf("tick %d: price %v outside [0.95, 1.10]", i, p)
		}
		if c := m[models.MetricCdsPremiumsMonthly]; c < 1.0 || c > 3.0 {
			t.Fatalf("tick %d: cds %v outside [1, 3]", i, c)
		}
		if z := m[models.MetricZarRate]; z < 15.0 || z > 25.0 {
			t.Fatalf("tick %d: zar %v outside [15, 25]", i, z)
		}
		if s := m[models.MetricSovereignYieldMonthly]; s < 0.5 || s > 1.5 {
			t.Fatalf("tick %d: sovereign %v outside [0.5, 1.5]", i, s)
		}
		if e := m[models.MetricCapitalEfficiency]; e < 5.0 || e > 12.0 {
			t.Fatalf("tick %d: capital efficiency %v outside [5, 12]", i, e)
		}
		if pd := m[models.MetricWeightedPD]; pd > 0.15 {
			t.Fatalf("tick %d: weighted pd %v above 0.15 cap", i, pd)
		}
	}
}

func TestDrawRegimeDistribution(t *testing.T) {
	updater := NewPricingUpdater(rand.New(rand.NewSource(13)))

	counts := map[Regime]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[updater.DrawRegime()]++
	}

	normal := float64(counts[RegimeNormal]) / n
	stress := float64(counts[RegimeStress]) / n
	crisis := float64(counts[RegimeCrisis]) / n

	if normal < 0.72 || normal > 0.78 {
		t.Errorf("normal share %v, want ~0.75", normal)
	}
	if stress < 0.17 || stress > 0.23 {
		t.Errorf("stress share %v, want ~0.20", stress)
	}
	if crisis < 0.03 || crisis > 0.07 {
		t.Errorf("crisis share %v, want ~0.05", crisis)
	}
}
