package models

// Industry classifies an obligor's primary sector. The set mirrors the
// sectors covered by the receivables pool.
type Industry string

const (
	IndustryMining         Industry = "mining"
	IndustryManufacturing  Industry = "manufacturing"
	IndustryFinancial      Industry = "financial"
	IndustryRetail         Industry = "retail"
	IndustryAgriculture    Industry = "agriculture"
	IndustryEnergy         Industry = "energy"
	IndustryTechnology     Industry = "technology"
	IndustryTelecom        Industry = "telecommunications"
	IndustryBeverages      Industry = "beverages"
	IndustryAutomotive     Industry = "automotive"
	IndustryConstruction   Industry = "construction"
	IndustryHealthcare     Industry = "healthcare"
	IndustryEducation      Industry = "education"
	IndustryLogistics      Industry = "logistics"
	IndustryRealEstate     Industry = "real_estate"
)

// Industries lists every supported industry in a stable order.
var Industries = []Industry{
	IndustryMining, IndustryManufacturing, IndustryFinancial, IndustryRetail,
	IndustryAgriculture, IndustryEnergy, IndustryTechnology, IndustryTelecom,
	IndustryBeverages, IndustryAutomotive, IndustryConstruction, IndustryHealthcare,
	IndustryEducation, IndustryLogistics, IndustryRealEstate,
}

// Rating is an ordered credit rating from AAA (best) down to B-.
type Rating string

const (
	RatingAAA      Rating = "AAA"
	RatingAAPlus   Rating = "AA+"
	RatingAA       Rating = "AA"
	RatingAAMinus  Rating = "AA-"
	RatingAPlus    Rating = "A+"
	RatingA        Rating = "A"
	RatingAMinus   Rating = "A-"
	RatingBBBPlus  Rating = "BBB+"
	RatingBBB      Rating = "BBB"
	RatingBBBMinus Rating = "BBB-"
	RatingBBPlus   Rating = "BB+"
	RatingBB       Rating = "BB"
	RatingBBMinus  Rating = "BB-"
	RatingBPlus    Rating = "B+"
	RatingB        Rating = "B"
	RatingBMinus   Rating = "B-"
)

// Ratings lists the rating scale from best to worst.
var Ratings = []Rating{
	RatingAAA, RatingAAPlus, RatingAA, RatingAAMinus,
	RatingAPlus, RatingA, RatingAMinus,
	RatingBBBPlus, RatingBBB, RatingBBBMinus,
	RatingBBPlus, RatingBB, RatingBBMinus,
	RatingBPlus, RatingB, RatingBMinus,
}

// ObligorStatus tracks the monitoring state of an obligor.
type ObligorStatus string

const (
	StatusOnTrack     ObligorStatus = "On track"
	StatusWatch       ObligorStatus = "Watch"
	StatusUnderReview ObligorStatus = "Under review"
	StatusStable      ObligorStatus = "Stable"
)

// Obligor is one row of the portfolio table: a company whose receivables back
// a credit exposure. The row is created once at startup and mutated in place
// by the scheduler tiers; it is never deleted.
type Obligor struct {
	ID               string        `json:"company"`
	Industry         Industry      `json:"industry"`
	CreditRating     Rating        `json:"credit_rating"`
	AvgPD            float64       `json:"avg_pd"`
	Yield            float64       `json:"yield"`
	TotalExposure    float64       `json:"total_exposure"`
	TenorDays        int           `json:"terms_tenor"`
	SpreadBps        int           `json:"spread_bps"`
	Status           ObligorStatus `json:"status"`
	CreditType       ProductType   `json:"credit_type"`
	UnderwritingBank string        `json:"underwriting_bank"`
	Notional24h      float64       `json:"notional_24h_change"`
	CdsFee24h        float64       `json:"cds_fee_24h_change"`
}
