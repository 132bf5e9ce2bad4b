package engine

import (
	"hash/fnv"

	"bricsflow/models"
)

// industryRiskFactors maps each sector to its multiplier. Defensive sectors
// (healthcare, telecom) sit at the bottom of the band, cyclical and
// project-based sectors at the top.
var industryRiskFactors = map[models.Industry]float64{
	models.IndustryMining:        1.2,
	models.IndustryManufacturing: 1.1,
	models.IndustryFinancial:     0.9,
	models.IndustryRetail:        1.0,
	models.IndustryAgriculture:   1.3,
	models.IndustryEnergy:        1.4,
	models.IndustryTechnology:    1.1,
	models.IndustryTelecom:       0.8,
	models.IndustryBeverages:     0.9,
	models.IndustryAutomotive:    1.2,
	models.IndustryConstruction:  1.3,
	models.IndustryHealthcare:    0.8,
	models.IndustryEducation:     0.9,
	models.IndustryLogistics:     1.1,
	models.IndustryRealEstate:    1.5,
}

// regionRiskFactors covers the nine South African provinces. An obligor is
// assigned a province by a stable hash of its identifier, so the mapping is
// repeatable across restarts.
var regionRiskFactors = []struct {
	Region string
	Factor float64
}{
	{"gauteng", 1.0},
	{"western_cape", 0.9},
	{"kwazulu_natal", 1.1},
	{"eastern_cape", 1.2},
	{"limpopo", 1.3},
	{"mpumalanga", 1.1},
	{"north_west", 1.2},
	{"free_state", 1.1},
	{"northern_cape", 1.2},
}

var businessModelRiskFactors = map[models.ProductType]float64{
	models.ProductTradeReceivables:   1.0,
	models.ProductSupplyChain:        1.1,
	models.ProductWorkingCapital:     1.2,
	models.ProductEquipmentFinance:   1.3,
	models.ProductInvoiceDiscounting: 0.9,
}

var financialHealthFactors = map[models.Rating]float64{
	models.RatingAAA:      0.7,
	models.RatingAAPlus:   0.75,
	models.RatingAA:       0.8,
	models.RatingAAMinus:  0.85,
	models.RatingAPlus:    0.9,
	models.RatingA:        0.95,
	models.RatingAMinus:   1.0,
	models.RatingBBBPlus:  1.05,
	models.RatingBBB:      1.1,
	models.RatingBBBMinus: 1.15,
	models.RatingBBPlus:   1.3,
	models.RatingBB:       1.4,
	models.RatingBBMinus:  1.5,
	models.RatingBPlus:    1.7,
	models.RatingB:        1.9,
	models.RatingBMinus:   2.1,
}

// ObligorRegion maps an obligor identifier to its province deterministically.
func ObligorRegion(obligorID string) string {
	return regionRiskFactors[regionIndex(obligorID)].Region
}

func regionIndex(obligorID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(obligorID))
	return int(h.Sum32() % uint32(len(regionRiskFactors)))
}

// ScoreRiskFactors computes the seven company-specific risk multipliers for
// an obligor. totalPortfolioExposure is the sum of exposure over the full
// obligor table and feeds the concentration factor. A nil obligor yields the
// neutral all-ones set.
func ScoreRiskFactors(ob *models.Obligor, totalPortfolioExposure float64) models.RiskFactorSet {
	if ob == nil {
		return models.NeutralRiskFactors()
	}

	factors := models.NeutralRiskFactors()

	if f, ok := industryRiskFactors[ob.Industry]; ok {
		factors.Industry = f
	}

	// Larger obligors carry lower idiosyncratic risk.
	switch {
	case ob.TotalExposure > 5_000_000:
		factors.Size = 0.8
	case ob.TotalExposure > 2_000_000:
		factors.Size = 0.9
	case ob.TotalExposure > 500_000:
		factors.Size = 1.0
	default:
		factors.Size = 1.2
	}

	factors.Geographic = regionRiskFactors[regionIndex(ob.ID)].Factor

	if f, ok := businessModelRiskFactors[ob.CreditType]; ok {
		factors.BusinessModel = f
	}

	if f, ok := financialHealthFactors[ob.CreditRating]; ok {
		factors.FinancialHealth = f
	} else {
		factors.FinancialHealth = 1.1
	}

	// Trailing PD as a proxy for management quality. This feeds back: the
	// risk score partly depends on previously computed PDs.
	switch {
	case ob.AvgPD < 0.04:
		factors.Management = 0.8
	case ob.AvgPD < 0.06:
		factors.Management = 0.9
	case ob.AvgPD < 0.08:
		factors.Management = 1.0
	case ob.AvgPD < 0.10:
		factors.Management = 1.1
	default:
		factors.Management = 1.3
	}

	share := 0.0
	if totalPortfolioExposure > 0 {
		share = ob.TotalExposure / totalPortfolioExposure
	}
	switch {
	case share > 0.15:
		factors.Concentration = 1.4
	case share > 0.10:
		factors.Concentration = 1.2
	case share > 0.05:
		factors.Concentration = 1.1
	default:
		factors.Concentration = 1.0
	}

	return factors
}
