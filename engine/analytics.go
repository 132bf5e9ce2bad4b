package engine

import (
	"math/rand"
	"sort"
	"sync"

	"bricsflow/models"
)

// VarResult holds a Monte Carlo Value-at-Risk computation. Losses are
// reported as negative values.
type VarResult struct {
	Var95             float64 `json:"var_95"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
	ConfidenceLevel   float64 `json:"confidence_level"`
	TimeHorizonDays   int     `json:"time_horizon"`
	TotalExposure     float64 `json:"total_exposure"`
	WeightedPD        float64 `json:"weighted_pd"`
}

// CorrelationMatrix is a symmetric obligor correlation matrix with unit
// diagonal, keyed by obligor identifier.
type CorrelationMatrix struct {
	Companies []string    `json:"companies"`
	Matrix    [][]float64 `json:"matrix"`
}

// StressResult holds the outcome of one stress scenario.
type StressResult struct {
	Scenario       string  `json:"scenario"`
	Description    string  `json:"description"`
	ExpectedLoss   float64 `json:"expected_loss"`
	RecoveryAmount float64 `json:"recovery_amount"`
	NetLoss        float64 `json:"net_loss"`
	LossPercentage float64 `json:"loss_percentage"`
}

// ConcentrationResult bundles the portfolio concentration measures.
type ConcentrationResult struct {
	HHI                   float64                     `json:"hhi"`
	RiskLevel             string                      `json:"concentration_risk_level"`
	IndustryConcentration map[models.Industry]float64 `json:"industry_concentration"`
	RatingConcentration   map[models.Rating]float64   `json:"rating_concentration"`
	Top5Share             float64                     `json:"top_5_concentration"`
}

type stressScenario struct {
	Name               string
	Description        string
	PDMultiplier       float64
	RecoveryRate       float64
	AffectedIndustries []models.Industry
}

// stressScenarios in reporting order. industry_crisis stresses only the
// automotive subset; the others hit every obligor.
var stressScenarios = []stressScenario{
	{
		Name:         "severe_recession",
		Description:  "Severe economic recession with 3x default rates",
		PDMultiplier: 3.0,
		RecoveryRate: 0.3,
	},
	{
		Name:               "industry_crisis",
		Description:        "Automotive industry crisis",
		PDMultiplier:       2.5,
		RecoveryRate:       0.4,
		AffectedIndustries: []models.Industry{models.IndustryAutomotive},
	},
	{
		Name:         "sovereign_crisis",
		Description:  "Sovereign crisis affecting all obligors",
		PDMultiplier: 2.0,
		RecoveryRate: 0.5,
	},
	{
		Name:         "liquidity_crisis",
		Description:  "Liquidity crisis with reduced recovery rates",
		PDMultiplier: 1.5,
		RecoveryRate: 0.25,
	},
}

// Analytics runs the batch risk computations over an obligor snapshot. It is
// stateless with respect to the portfolio: callers pass the snapshot in, and
// every query on an empty table returns a well-defined zero result.
type Analytics struct {
	mu         sync.Mutex
	rng        *rand.Rand
	trials     int
	confidence float64
}

// NewAnalytics builds the analytics batch around the given random source.
func NewAnalytics(rng *rand.Rand, trials int, confidence float64) *Analytics {
	if trials <= 0 {
		trials = 10000
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	return &Analytics{rng: rng, trials: trials, confidence: confidence}
}

// WeightedPD computes the exposure-weighted mean PD of a snapshot. Zero for
// an empty or zero-exposure table.
func WeightedPD(obligors []models.Obligor) float64 {
	totalExposure := 0.0
	weighted := 0.0
	for _, ob := range obligors {
		totalExposure += ob.TotalExposure
		weighted += ob.AvgPD * ob.TotalExposure
	}
	if totalExposure == 0 {
		return 0
	}
	return weighted / totalExposure
}

// ValueAtRisk runs the Monte Carlo default simulation: each trial draws
// independent Bernoulli defaults per obligor at the portfolio's
// exposure-weighted PD and sums defaulted exposure as a loss.
func (a *Analytics) ValueAtRisk(obligors []models.Obligor) VarResult {
	result := VarResult{ConfidenceLevel: a.confidence, TimeHorizonDays: 30}
	if len(obligors) == 0 {
		return result
	}

	totalExposure := 0.0
	for _, ob := range obligors {
		totalExposure += ob.TotalExposure
	}
	weightedPD := WeightedPD(obligors)
	result.TotalExposure = totalExposure
	result.WeightedPD = weightedPD

	a.mu.Lock()
	defer a.mu.Unlock()

	changes := make([]float64, a.trials)
	for t := 0; t < a.trials; t++ {
		loss := 0.0
		for _, ob := range obligors {
			if a.rng.Float64() < weightedPD {
				loss += ob.TotalExposure
			}
		}
		changes[t] = -loss
	}

	sort.Float64s(changes)
	idx := int(float64(len(changes)) * (1 - a.confidence))
	if idx >= len(changes) {
		idx = len(changes) - 1
	}
	varValue := changes[idx]

	tailSum := 0.0
	tailCount := 0
	for _, c := range changes {
		if c <= varValue {
			tailSum += c
			tailCount++
		}
	}
	es := varValue
	if tailCount > 0 {
		es = tailSum / float64(tailCount)
	}

	result.Var95 = varValue
	result.ExpectedShortfall = es
	return result
}

// Correlations builds the obligor correlation matrix: same-industry pairs
// draw a higher base correlation, same-rating pairs get a bonus, and every
// off-diagonal entry is capped at 0.95.
func (a *Analytics) Correlations(obligors []models.Obligor) CorrelationMatrix {
	n := len(obligors)
	out := CorrelationMatrix{
		Companies: make([]string, n),
		Matrix:    make([][]float64, n),
	}
	for i := range obligors {
		out.Companies[i] = obligors[i].ID
		out.Matrix[i] = make([]float64, n)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < n; i++ {
		out.Matrix[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			var corr float64
			if obligors[i].Industry == obligors[j].Industry {
				corr = a.uniform(0.3, 0.6)
			} else {
				corr = a.uniform(0.1, 0.3)
			}
			if obligors[i].CreditRating == obligors[j].CreditRating {
				corr += a.uniform(0.1, 0.2)
			}
			if corr > 0.95 {
				corr = 0.95
			}
			out.Matrix[i][j] = corr
			out.Matrix[j][i] = corr
		}
	}

	return out
}

// StressTest applies the four named scenarios to the snapshot. Net loss is
// the stressed expected loss after recovery; the loss percentage is relative
// to baseline total exposure. An empty table yields zero losses.
func (a *Analytics) StressTest(obligors []models.Obligor) []StressResult {
	baseExposure := 0.0
	for _, ob := range obligors {
		baseExposure += ob.TotalExposure
	}

	results := make([]StressResult, 0, len(stressScenarios))
	for _, sc := range stressScenarios {
		expectedLoss := 0.0
		for _, ob := range obligors {
			pd := ob.AvgPD
			if len(sc.AffectedIndustries) == 0 || industryIn(ob.Industry, sc.AffectedIndustries) {
				pd *= sc.PDMultiplier
			}
			expectedLoss += pd * ob.TotalExposure
		}

		recovery := expectedLoss * sc.RecoveryRate
		netLoss := expectedLoss - recovery
		lossPct := 0.0
		if baseExposure > 0 {
			lossPct = netLoss / baseExposure * 100
		}

		results = append(results, StressResult{
			Scenario:       sc.Name,
			Description:    sc.Description,
			ExpectedLoss:   expectedLoss,
			RecoveryAmount: recovery,
			NetLoss:        netLoss,
			LossPercentage: lossPct,
		})
	}

	return results
}

// Concentration computes HHI and the grouping-based concentration views.
func (a *Analytics) Concentration(obligors []models.Obligor) ConcentrationResult {
	result := ConcentrationResult{
		RiskLevel:             "low",
		IndustryConcentration: make(map[models.Industry]float64),
		RatingConcentration:   make(map[models.Rating]float64),
	}

	totalExposure := 0.0
	for _, ob := range obligors {
		totalExposure += ob.TotalExposure
	}
	if totalExposure == 0 {
		return result
	}

	hhi := 0.0
	for _, ob := range obligors {
		share := ob.TotalExposure / totalExposure
		hhi += share * share
		result.IndustryConcentration[ob.Industry] += share
		result.RatingConcentration[ob.CreditRating] += share
	}
	result.HHI = hhi

	switch {
	case hhi > 0.25:
		result.RiskLevel = "high"
	case hhi > 0.15:
		result.RiskLevel = "medium"
	}

	exposures := make([]float64, len(obligors))
	for i, ob := range obligors {
		exposures[i] = ob.TotalExposure
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(exposures)))
	top5 := 0.0
	for i := 0; i < len(exposures) && i < 5; i++ {
		top5 += exposures[i]
	}
	result.Top5Share = top5 / totalExposure

	return result
}

func (a *Analytics) uniform(lo, hi float64) float64 {
	return lo + a.rng.Float64()*(hi-lo)
}

func industryIn(industry models.Industry, set []models.Industry) bool {
	for _, s := range set {
		if s == industry {
			return true
		}
	}
	return false
}
