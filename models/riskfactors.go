package models

// RiskFactorSet holds the seven company-specific risk multipliers. Each
// factor stays within roughly [0.7, 2.1]; a neutral set is all ones.
type RiskFactorSet struct {
	Industry        float64 `json:"industry_risk"`
	Size            float64 `json:"size_risk"`
	Geographic      float64 `json:"geographic_risk"`
	BusinessModel   float64 `json:"business_model_risk"`
	FinancialHealth float64 `json:"financial_health_risk"`
	Management      float64 `json:"management_risk"`
	Concentration   float64 `json:"concentration_risk"`
}

// NeutralRiskFactors is returned when no profile data exists for an obligor.
func NeutralRiskFactors() RiskFactorSet {
	return RiskFactorSet{
		Industry:        1.0,
		Size:            1.0,
		Geographic:      1.0,
		BusinessModel:   1.0,
		FinancialHealth: 1.0,
		Management:      1.0,
		Concentration:   1.0,
	}
}

// Total combines the seven factors multiplicatively.
func (r RiskFactorSet) Total() float64 {
	return r.Industry * r.Size * r.Geographic * r.BusinessModel *
		r.FinancialHealth * r.Management * r.Concentration
}
