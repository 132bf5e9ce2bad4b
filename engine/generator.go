package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"bricsflow/models"
)

// tickSizeWeights drives the number of transactions per tick: 2-5 with a
// hump at 3 and 4.
var tickSizeWeights = []struct {
	Count  int
	Weight float64
}{
	{2, 0.2},
	{3, 0.3},
	{4, 0.3},
	{5, 0.2},
}

// TransactionGenerator produces a bounded batch of synthetic credit
// transactions per tick. Generation is pure: all randomness flows through
// the injected source and no portfolio state is touched.
type TransactionGenerator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewTransactionGenerator builds a generator around the given random source.
func NewTransactionGenerator(rng *rand.Rand) *TransactionGenerator {
	return &TransactionGenerator{rng: rng, now: time.Now}
}

// GenerateTick emits between 2 and 5 transactions drawn against the supplied
// obligor population. Obligor selection is weighted 3/2/1 over the top,
// middle, and bottom thirds of the table, modelling a curated
// private-placement selection bias rather than uniform sampling.
func (g *TransactionGenerator) GenerateTick(obligors []*models.Obligor) models.TransactionTick {
	tick := models.TransactionTick{
		TickID:      uuid.NewString(),
		GeneratedAt: g.now(),
	}
	if len(obligors) == 0 {
		return tick
	}

	weights := obligorSelectionWeights(len(obligors))
	count := g.sampleTickSize()

	for i := 0; i < count; i++ {
		product := g.sampleProductType()
		profile := models.ProductProfiles[product]
		ob := obligors[g.sampleWeightedIndex(weights)]

		industryMult := 0.7 + g.rng.Float64()*0.8
		ratingMult := 0.5 + g.rng.Float64()*0.8
		stressMult := 1.0 + g.rng.Float64()*0.4

		tx := models.Transaction{
			ID:             fmt.Sprintf("TX_%s_%04d", tick.GeneratedAt.Format("20060102150405"), 1000+g.rng.Intn(9000)),
			Timestamp:      tick.GeneratedAt,
			Type:           product,
			Amount:         profile.AvgAmount * (0.4 + g.rng.Float64()*1.2),
			TenorDays:      profile.TenorDays,
			PD:             profile.BasePD * industryMult * ratingMult * stressMult,
			CreditRating:   ob.CreditRating,
			Industry:       ob.Industry,
			ObligorID:      ob.ID,
			CollateralType: models.CollateralTypes[g.rng.Intn(len(models.CollateralTypes))],
			RecoveryRate:   0.35 + g.rng.Float64()*0.3,
		}
		tick.Transactions = append(tick.Transactions, tx)
	}

	return tick
}

func (g *TransactionGenerator) sampleTickSize() int {
	r := g.rng.Float64()
	acc := 0.0
	for _, w := range tickSizeWeights {
		acc += w.Weight
		if r < acc {
			return w.Count
		}
	}
	return tickSizeWeights[len(tickSizeWeights)-1].Count
}

func (g *TransactionGenerator) sampleProductType() models.ProductType {
	r := g.rng.Float64()
	acc := 0.0
	for _, pt := range models.ProductTypes {
		acc += models.ProductProfiles[pt].Frequency
		if r < acc {
			return pt
		}
	}
	return models.ProductTypes[len(models.ProductTypes)-1]
}

func (g *TransactionGenerator) sampleWeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := g.rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

// obligorSelectionWeights assigns 3x weight to the top third of the table,
// 2x to the middle third, 1x to the rest.
func obligorSelectionWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		switch {
		case i < n*30/100:
			weights[i] = 3.0
		case i < n*60/100:
			weights[i] = 2.0
		default:
			weights[i] = 1.0
		}
	}
	return weights
}
