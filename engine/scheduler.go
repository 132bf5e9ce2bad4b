package engine

import (
	"math/rand"
	"sync/atomic"
	"time"

	"bricsflow/internal/metrics"
	"bricsflow/logger"
	"bricsflow/models"
)

// Tier names the three update cadences.
type Tier string

const (
	TierFast   Tier = "fast"
	TierMedium Tier = "medium"
	TierSlow   Tier = "slow"
)

// CdsSource returns the latest observed South African CDS spread in basis
// points. The scheduler calls it once per medium tick; implementations must
// degrade to a fallback value rather than fail.
type CdsSource func() float64

// TickSink receives every generated transaction tick after it has been
// applied. The history archiver hangs off this hook.
type TickSink func(models.TransactionTick, ApplyResult)

// SchedulerIntervals carries the per-tier firing intervals.
type SchedulerIntervals struct {
	Fast   time.Duration
	Medium time.Duration
	Slow   time.Duration
}

// Scheduler gates the three update tiers against wall-clock elapsed time.
// Each tier tracks its own last-fired timestamp; one pass executes due tiers
// sequentially fast, medium, slow, and a tier fires at most once per pass no
// matter how many intervals have elapsed. A single global live flag gates all
// tiers at once.
type Scheduler struct {
	state     *State
	generator *TransactionGenerator
	pricing   *PricingUpdater
	rng       *rand.Rand
	intervals SchedulerIntervals
	cdsSource CdsSource
	sinks     []TickSink

	live atomic.Bool

	lastFast   time.Time
	lastMedium time.Time
	lastSlow   time.Time

	log *logger.Entry
}

// NewScheduler wires the scheduler over the shared state. cdsSource may be
// nil, in which case the baseline spread is assumed.
func NewScheduler(state *State, generator *TransactionGenerator, pricing *PricingUpdater, rng *rand.Rand, intervals SchedulerIntervals, cdsSource CdsSource) *Scheduler {
	return &Scheduler{
		state:     state,
		generator: generator,
		pricing:   pricing,
		rng:       rng,
		intervals: intervals,
		cdsSource: cdsSource,
		log:       logger.GetLogger().WithComponent("scheduler"),
	}
}

// AddTickSink registers a sink for applied transaction ticks. Not safe to
// call after the scheduler has started passing.
func (s *Scheduler) AddTickSink(sink TickSink) {
	if sink != nil {
		s.sinks = append(s.sinks, sink)
	}
}

// SetLive flips the global live-mode flag. When disabled no tier fires
// regardless of elapsed time; on re-enable, tiers resume against their own
// last-fired timestamps without a catch-up burst.
func (s *Scheduler) SetLive(live bool) {
	s.live.Store(live)
	s.log.WithFields(logger.Fields{"live": live}).Info("live mode changed")
}

// Live reports the current live-mode flag.
func (s *Scheduler) Live() bool {
	return s.live.Load()
}

// Pass runs one scheduler pass at the given instant. Due tiers execute
// sequentially in fast, medium, slow order; the pass itself never blocks on
// I/O.
func (s *Scheduler) Pass(now time.Time) {
	if !s.live.Load() {
		return
	}

	if s.due(now, s.lastFast, s.intervals.Fast) {
		s.fireFast(now)
		s.lastFast = now
	}
	if s.due(now, s.lastMedium, s.intervals.Medium) {
		s.fireMedium(now)
		s.lastMedium = now
	}
	if s.due(now, s.lastSlow, s.intervals.Slow) {
		s.fireSlow(now)
		s.lastSlow = now
	}
}

func (s *Scheduler) due(now, last time.Time, interval time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= interval
}

func (s *Scheduler) fireFast(now time.Time) {
	var regime Regime
	s.state.UpdateMetrics(func(m models.ProtocolMetrics) {
		regime = s.pricing.Update(m)
	})

	m := s.state.Metrics()
	metrics.IncrementTierFiring(string(TierFast))
	metrics.SetProtocolGauges(
		m[models.MetricBricsPrice],
		m[models.MetricTotalNotional],
		m[models.MetricWeightedPD],
		m[models.MetricMonthlyYieldTotal],
	)
	logger.IncrementTierFiring(string(TierFast), 0)

	s.log.WithFields(logger.Fields{
		"regime":      string(regime),
		"brics_price": m[models.MetricBricsPrice],
		"apy":         m[models.MetricAPYPerBrics],
	}).Debug("fast tier fired")
}

func (s *Scheduler) fireMedium(now time.Time) {
	tick := s.generator.GenerateTick(s.state.obligors)

	saCds := baselineSaCds
	if s.cdsSource != nil {
		saCds = s.cdsSource()
	}

	result := s.state.ApplyTransactions(tick, saCds)

	s.state.UpdateMetrics(func(m models.ProtocolMetrics) {
		m[models.MetricTotalNotional] = s.state.totalExposureLocked()
		// Occasional minting event on new volume.
		if s.rng.Float64() < 0.1 {
			m[models.MetricTokensMinted] += 1000 + s.rng.Float64()*4000
		}
	})

	for _, tx := range tick.Transactions {
		metrics.AddTransactions(string(tx.Type), 1)
	}
	metrics.IncrementTierFiring(string(TierMedium))
	logger.IncrementTierFiring(string(TierMedium), len(tick.Transactions))

	for _, sink := range s.sinks {
		sink(tick, result)
	}

	s.log.WithFields(logger.Fields{
		"tick_id":          tick.TickID,
		"transactions":     len(tick.Transactions),
		"obligors_touched": result.ObligorsTouched,
		"integrity_faults": result.IntegrityFaults,
	}).Info("medium tier fired")
}

func (s *Scheduler) fireSlow(now time.Time) {
	weightedPD := s.state.WeightedPD()

	s.state.UpdateMetrics(func(m models.ProtocolMetrics) {
		m[models.MetricWeightedPD] = weightedPD
		m[models.MetricCapitalEfficiency] = max(5.0, m[models.MetricCapitalEfficiency]+s.uniform(-0.1, 0.1))
		m[models.MetricOvercollateralization] = max(0.05, m[models.MetricOvercollateralization]+s.uniform(-0.005, 0.005))
	})

	metrics.IncrementTierFiring(string(TierSlow))
	logger.IncrementTierFiring(string(TierSlow), 0)

	s.log.WithFields(logger.Fields{
		"weighted_pd": weightedPD,
	}).Info("slow tier reconciled weighted PD")
}

func (s *Scheduler) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
