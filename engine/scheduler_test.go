package engine

import (
	"math/rand"
	"testing"
	"time"

	"bricsflow/models"
)

func newTestScheduler(n int) (*Scheduler, *State) {
	rng := rand.New(rand.NewSource(21))
	state := NewState(SeedObligors(n, rng), models.BaselineProtocolMetrics())
	intervals := SchedulerIntervals{Fast: 5 * time.Second, Medium: 45 * time.Second, Slow: 600 * time.Second}
	sched := NewScheduler(state, NewTransactionGenerator(rng), NewPricingUpdater(rng), rng, intervals, nil)
	return sched, state
}

func TestSchedulerDisabledFiresNothing(t *testing.T) {
	sched, state := newTestScheduler(10)
	before := state.Metrics()

	now := time.Now()
	for i := 0; i < 10; i++ {
		sched.Pass(now.Add(time.Duration(i) * time.Hour))
	}

	after := state.Metrics()
	for k, v := range before {
		if after[k] != v {
			t.Fatalf("metric %s changed while live mode disabled: %v -> %v", k, v, after[k])
		}
	}
}

func TestSchedulerFiresDueTiers(t *testing.T) {
	sched, state := newTestScheduler(10)
	sched.SetLive(true)

	base := time.Now()
	sched.Pass(base) // first pass: all tiers fire (zero last-fired)

	priceAfterFirst := state.Metric(models.MetricBricsPrice)

	// 1s later nothing is due.
	sched.Pass(base.Add(time.Second))
	if got := state.Metric(models.MetricBricsPrice); got != priceAfterFirst {
		t.Fatalf("fast tier fired before its interval elapsed")
	}

	// 6s later only the fast tier is due.
	sched.Pass(base.Add(6 * time.Second))
	if sched.lastFast.Equal(base) {
		t.Fatal("fast tier did not fire after its interval elapsed")
	}
	if !sched.lastMedium.Equal(base) {
		t.Fatalf("medium tier fired before its interval elapsed")
	}
}

func TestSchedulerNoCatchUpBurst(t *testing.T) {
	sched, _ := newTestScheduler(10)
	sched.SetLive(true)

	base := time.Now()
	sched.Pass(base)

	// Many fast intervals elapse; a single pass still fires the tier once.
	later := base.Add(10 * time.Minute)
	sched.Pass(later)
	if !sched.lastFast.Equal(later) {
		t.Fatalf("fast last-fired = %v, want %v", sched.lastFast, later)
	}

	// Immediately after, nothing is due again.
	sched.Pass(later.Add(time.Second))
	if !sched.lastFast.Equal(later) {
		t.Fatal("fast tier fired twice for a single elapsed window")
	}
}

func TestSlowTierReconciliationIdempotent(t *testing.T) {
	sched, state := newTestScheduler(50)
	sched.SetLive(true)

	sched.fireSlow(time.Now())
	first := state.Metric(models.MetricWeightedPD)

	sched.fireSlow(time.Now())
	second := state.Metric(models.MetricWeightedPD)

	if first != second {
		t.Fatalf("weighted_pd changed between back-to-back reconciliations: %v vs %v", first, second)
	}
	if want := state.WeightedPD(); first != want {
		t.Errorf("weighted_pd = %v, want exact table value %v", first, want)
	}
}

func TestMediumTierUpdatesNotional(t *testing.T) {
	sched, state := newTestScheduler(30)
	sched.SetLive(true)

	var sinkTicks int
	sched.AddTickSink(func(tick models.TransactionTick, result ApplyResult) {
		sinkTicks++
		if len(tick.Transactions) < 2 || len(tick.Transactions) > 5 {
			t.Errorf("sink received %d transactions, want 2-5", len(tick.Transactions))
		}
	})

	sched.fireMedium(time.Now())

	if sinkTicks != 1 {
		t.Fatalf("sink invoked %d times, want 1", sinkTicks)
	}
	if got, want := state.Metric(models.MetricTotalNotional), state.TotalExposure(); got != want {
		t.Errorf("total_notional = %v, want reconciled %v", got, want)
	}
}

func TestSlowTierFloors(t *testing.T) {
	sched, state := newTestScheduler(10)
	state.UpdateMetrics(func(m models.ProtocolMetrics) {
		m[models.MetricCapitalEfficiency] = 5.0
		m[models.MetricOvercollateralization] = 0.05
	})

	for i := 0; i < 100; i++ {
		sched.fireSlow(time.Now())
	}

	if e := state.Metric(models.MetricCapitalEfficiency); e < 5.0 {
		t.Errorf("capital efficiency %v below 5.0 floor", e)
	}
	if oc := state.Metric(models.MetricOvercollateralization); oc < 0.05 {
		t.Errorf("overcollateralization %v below 0.05 floor", oc)
	}
}
