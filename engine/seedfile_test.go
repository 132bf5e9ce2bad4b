package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestLoadSeedObligors(t *testing.T) {
	path := writeSeedFile(t, `company,industry,credit_rating,avg_pd,total_exposure,yield,terms_tenor,spread_bps,status,credit_type,underwriting_bank
SA_Mining_Corp_001,mining,BBB,0.05,5000000,32.5,90,45,On track,trade_receivables,Standard Bank
SA_Retail_Co_002,retail,BB+,0.08,1500000,35.0,60,50,Watch,supply_chain,Nedbank
`)

	obligors, err := LoadSeedObligors(path)
	if err != nil {
		t.Fatalf("LoadSeedObligors returned error: %v", err)
	}
	if len(obligors) != 2 {
		t.Fatalf("expected 2 obligors, got %d", len(obligors))
	}

	first := obligors[0]
	if first.ID != "SA_Mining_Corp_001" || first.Industry != "mining" {
		t.Fatalf("unexpected first obligor: %#v", first)
	}
	if first.AvgPD != 0.05 || first.TotalExposure != 5000000 {
		t.Fatalf("unexpected first obligor numerics: %#v", first)
	}
	if first.TenorDays != 90 || first.SpreadBps != 45 {
		t.Fatalf("unexpected first obligor terms: %#v", first)
	}
	if first.UnderwritingBank != "Standard Bank" {
		t.Fatalf("unexpected underwriting bank: %q", first.UnderwritingBank)
	}
}

func TestLoadSeedObligorsMissingColumn(t *testing.T) {
	path := writeSeedFile(t, `company,industry,credit_rating,avg_pd
A,mining,BBB,0.05
`)
	if _, err := LoadSeedObligors(path); err == nil {
		t.Fatal("expected error for missing total_exposure column")
	}
}

func TestLoadSeedObligorsRejectsOutOfRangePD(t *testing.T) {
	path := writeSeedFile(t, `company,industry,credit_rating,avg_pd,total_exposure
A,mining,BBB,0.50,1000000
`)
	if _, err := LoadSeedObligors(path); err == nil {
		t.Fatal("expected error for out-of-range avg_pd")
	}
}

func TestLoadSeedObligorsMissingFile(t *testing.T) {
	if _, err := LoadSeedObligors(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
