package engine

import (
	"fmt"
	"math/rand"

	"bricsflow/models"
)

var underwritingBanks = []string{
	"First National Bank", "Standard Bank", "Nedbank", "ABSA Bank",
	"Old Mutual", "Investec", "Capitec", "African Bank",
}

var obligorStatuses = []models.ObligorStatus{
	models.StatusOnTrack, models.StatusWatch, models.StatusUnderReview, models.StatusStable,
}

// SeedObligors builds the synthetic obligor population. The distribution is
// curated rather than uniform: the top 30% are large active companies, the
// next 30% medium, the rest smaller but still active. Exposure bands and base
// PDs follow the size category, and the initial rating is drawn from the band
// matching the PD.
func SeedObligors(n int, rng *rand.Rand) []*models.Obligor {
	obligors := make([]*models.Obligor, 0, n)

	for i := 1; i <= n; i++ {
		var exposure float64
		var basePD float64

		switch {
		case i*100 <= n*30:
			exposure = float64(5_000_000 + rng.Intn(15_000_001))
			basePD = 0.02 + rng.Float64()*0.03
		case i*100 <= n*60:
			exposure = float64(2_000_000 + rng.Intn(3_000_001))
			basePD = 0.04 + rng.Float64()*0.04
		default:
			exposure = float64(500_000 + rng.Intn(1_500_001))
			basePD = 0.06 + rng.Float64()*0.06
		}

		obligors = append(obligors, &models.Obligor{
			ID:               fmt.Sprintf("COMP_%d", i),
			Industry:         models.Industries[rng.Intn(len(models.Industries))],
			CreditRating:     seedRating(basePD, rng),
			AvgPD:            basePD,
			Yield:            25.0 + basePD*150 + (rng.Float64()*10 - 5),
			TotalExposure:    exposure,
			TenorDays:        30 + rng.Intn(151),
			SpreadBps:        seedSpread(basePD, rng),
			Status:           obligorStatuses[rng.Intn(len(obligorStatuses))],
			CreditType:       models.ProductTypes[rng.Intn(len(models.ProductTypes))],
			UnderwritingBank: underwritingBanks[rng.Intn(len(underwritingBanks))],
		})
	}

	return obligors
}

func seedRating(pd float64, rng *rand.Rand) models.Rating {
	var band []models.Rating
	switch {
	case pd < 0.03:
		band = []models.Rating{models.RatingAAA, models.RatingAAPlus, models.RatingAA}
	case pd < 0.05:
		band = []models.Rating{models.RatingAAMinus, models.RatingAPlus, models.RatingA}
	case pd < 0.08:
		band = []models.Rating{models.RatingAMinus, models.RatingBBBPlus, models.RatingBBB}
	case pd < 0.12:
		band = []models.Rating{models.RatingBBBMinus, models.RatingBBPlus, models.RatingBB}
	default:
		band = []models.Rating{models.RatingBBMinus, models.RatingBPlus, models.RatingB}
	}
	return band[rng.Intn(len(band))]
}

func seedSpread(pd float64, rng *rand.Rand) int {
	base := 30 + int(pd*200)
	return base + rng.Intn(11) - 5
}
