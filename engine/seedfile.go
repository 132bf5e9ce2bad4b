package engine

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"bricsflow/models"
)

// LoadSeedObligors reads an obligor table from a headed CSV reference file.
// Columns are matched by header name, so column order does not matter. Only
// company, industry, credit_rating, avg_pd and total_exposure are required;
// the remaining columns default to zero values when absent.
func LoadSeedObligors(path string) ([]*models.Obligor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("seed file %s has no data rows", path)
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[name] = i
	}
	for _, required := range []string{"company", "industry", "credit_rating", "avg_pd", "total_exposure"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("seed file %s missing column %q", path, required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}
	floatField := func(row []string, name string) float64 {
		v, _ := strconv.ParseFloat(field(row, name), 64)
		return v
	}
	intField := func(row []string, name string) int {
		v, _ := strconv.Atoi(field(row, name))
		return v
	}

	obligors := make([]*models.Obligor, 0, len(rows)-1)
	for i, row := range rows[1:] {
		id := field(row, "company")
		if id == "" {
			return nil, fmt.Errorf("seed file %s row %d has empty company", path, i+2)
		}

		pd := floatField(row, "avg_pd")
		if pd < minObligorPD || pd > maxObligorPD {
			return nil, fmt.Errorf("seed file %s row %d avg_pd %v out of range", path, i+2, pd)
		}
		exposure := floatField(row, "total_exposure")
		if exposure <= 0 {
			return nil, fmt.Errorf("seed file %s row %d total_exposure %v not positive", path, i+2, exposure)
		}

		obligors = append(obligors, &models.Obligor{
			ID:               id,
			Industry:         models.Industry(field(row, "industry")),
			CreditRating:     models.Rating(field(row, "credit_rating")),
			AvgPD:            pd,
			Yield:            floatField(row, "yield"),
			TotalExposure:    exposure,
			TenorDays:        intField(row, "terms_tenor"),
			SpreadBps:        intField(row, "spread_bps"),
			Status:           models.ObligorStatus(field(row, "status")),
			CreditType:       models.ProductType(field(row, "credit_type")),
			UnderwritingBank: field(row, "underwriting_bank"),
			Notional24h:      floatField(row, "notional_24h_change"),
			CdsFee24h:        floatField(row, "cds_fee_24h_change"),
		})
	}

	return obligors, nil
}
