package engine

import (
	"math"
	"sync"

	"bricsflow/internal/metrics"
	"bricsflow/logger"
	"bricsflow/models"
)

const (
	minObligorPD = 0.01
	maxObligorPD = 0.25

	baselineSaCds = 180.0
)

// State owns the mutable portfolio tables: the obligor rows and the protocol
// metrics map. It is single-writer: only the currently firing scheduler tier
// mutates it, while dashboard and analytics readers take snapshots under the
// read lock.
type State struct {
	mu       sync.RWMutex
	obligors []*models.Obligor
	index    map[string]*models.Obligor
	metrics  models.ProtocolMetrics

	log *logger.Entry
}

// NewState wraps the seeded obligor table and baseline metrics. total_notional
// is reconciled against the table immediately so the first snapshot is
// consistent.
func NewState(obligors []*models.Obligor, metrics models.ProtocolMetrics) *State {
	s := &State{
		obligors: obligors,
		index:    make(map[string]*models.Obligor, len(obligors)),
		metrics:  metrics.Clone(),
		log:      logger.GetLogger().WithComponent("portfolio-state"),
	}
	for _, ob := range obligors {
		s.index[ob.ID] = ob
	}
	s.metrics[models.MetricTotalNotional] = s.totalExposureLocked()
	return s
}

// Obligors returns a copy of the obligor table. Rows are copied by value so
// callers cannot mutate engine state through the snapshot.
func (s *State) Obligors() []models.Obligor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Obligor, len(s.obligors))
	for i, ob := range s.obligors {
		out[i] = *ob
	}
	return out
}

// Metrics returns an independent copy of the protocol metrics map.
func (s *State) Metrics() models.ProtocolMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics.Clone()
}

// Metric reads a single protocol metric.
func (s *State) Metric(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics[key]
}

// UpdateMetrics runs fn against the live metrics map under the write lock.
// Used by the scheduler tiers; fn must not block.
func (s *State) UpdateMetrics(fn func(models.ProtocolMetrics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.metrics)
}

// TotalExposure returns the sum of exposure over the full obligor table.
func (s *State) TotalExposure() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalExposureLocked()
}

func (s *State) totalExposureLocked() float64 {
	total := 0.0
	for _, ob := range s.obligors {
		total += ob.TotalExposure
	}
	return total
}

// WeightedPD computes the exact exposure-weighted mean PD over the table.
// This is the slow-tier reconciliation value; it is a pure read and therefore
// idempotent between obligor changes.
func (s *State) WeightedPD() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totalExposure := 0.0
	weighted := 0.0
	for _, ob := range s.obligors {
		totalExposure += ob.TotalExposure
		weighted += ob.AvgPD * ob.TotalExposure
	}
	if totalExposure == 0 {
		return 0
	}
	return weighted / totalExposure
}

// ApplyResult summarises one tick's application.
type ApplyResult struct {
	ObligorsTouched int
	IntegrityFaults int
}

// ApplyTransactions folds one tick of transactions into the obligor table.
// Exposure accumulates across ticks. PD is the amount-weighted transaction PD
// scaled by the obligor's total risk multiplier and the market stress
// multiplier derived from the current CDS spread, clamped to [0.01, 0.25].
// Yield, spread, and rating are recomputed from the new PD. A transaction
// referencing an unknown obligor is an integrity fault: logged, counted, and
// skipped, and the tick otherwise completes.
func (s *State) ApplyTransactions(tick models.TransactionTick, saCdsSpread float64) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	byObligor := make(map[string][]models.Transaction)
	var result ApplyResult

	for _, tx := range tick.Transactions {
		if _, ok := s.index[tx.ObligorID]; !ok {
			result.IntegrityFaults++
			logger.IncrementIntegrityFault()
			metrics.IncrementIntegrityFault()
			s.log.WithFields(logger.Fields{
				"tick_id":        tick.TickID,
				"transaction_id": tx.ID,
				"company_id":     tx.ObligorID,
			}).Warn("transaction references unknown obligor, skipping")
			continue
		}
		byObligor[tx.ObligorID] = append(byObligor[tx.ObligorID], tx)
	}

	totalPortfolioExposure := s.totalExposureLocked()
	stressMult := 1.0 + 0.2*(saCdsSpread-baselineSaCds)/baselineSaCds

	for id, txs := range byObligor {
		ob := s.index[id]

		tickAmount := 0.0
		weightedPD := 0.0
		tenorSum := 0
		feeDelta := 0.0
		for _, tx := range txs {
			tickAmount += tx.Amount
			weightedPD += tx.PD * tx.Amount
			tenorSum += tx.TenorDays
			feeDelta += tx.Amount * tx.PD
		}
		weightedPD /= tickAmount

		ob.TotalExposure += tickAmount
		ob.TenorDays = tenorSum / len(txs)

		riskMult := ScoreRiskFactors(ob, totalPortfolioExposure+tickAmount).Total()
		pd := clamp(weightedPD*riskMult*stressMult, minObligorPD, maxObligorPD)

		ob.AvgPD = pd
		ob.Yield = clamp(30.0+pd*100, 25.0, 40.0)
		ob.SpreadBps = int(clamp(math.Round(30+pd*200), 20, 50))
		ob.CreditRating = ratingForPD(pd)

		ob.Notional24h += tickAmount
		ob.CdsFee24h += feeDelta

		result.ObligorsTouched++
	}

	return result
}

// ratingForPD maps a PD onto the refresh ladder used after transaction
// application. The ladder is narrower than the full rating scale: live
// updates keep obligors between A- and BB+.
func ratingForPD(pd float64) models.Rating {
	switch {
	case pd < 0.03:
		return models.RatingAMinus
	case pd < 0.05:
		return models.RatingBBBPlus
	case pd < 0.08:
		return models.RatingBBB
	case pd < 0.12:
		return models.RatingBBBMinus
	default:
		return models.RatingBBPlus
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
