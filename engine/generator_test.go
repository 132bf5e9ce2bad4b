package engine

import (
	"math/rand"
	"testing"

	"bricsflow/models"
)

func testObligors(n int) []*models.Obligor {
	rng := rand.New(rand.NewSource(1))
	return SeedObligors(n, rng)
}

func TestGenerateTickSize(t *testing.T) {
	gen := NewTransactionGenerator(rand.New(rand.NewSource(7)))
	obligors := testObligors(20)

	for i := 0; i < 200; i++ {
		tick := gen.GenerateTick(obligors)
		if n := len(tick.Transactions); n < 2 || n > 5 {
			t.Fatalf("tick %d: %d transactions, want 2-5", i, n)
		}
		if tick.TickID == "" {
			t.Fatal("tick ID must be set")
		}
	}
}

func TestGenerateTickEmptyPopulation(t *testing.T) {
	gen := NewTransactionGenerator(rand.New(rand.NewSource(7)))
	tick := gen.GenerateTick(nil)
	if len(tick.Transactions) != 0 {
		t.Fatalf("expected no transactions for empty population, got %d", len(tick.Transactions))
	}
}

func TestGenerateTickBounds(t *testing.T) {
	gen := NewTransactionGenerator(rand.New(rand.NewSource(11)))
	obligors := testObligors(50)

	for i := 0; i < 100; i++ {
		tick := gen.GenerateTick(obligors)
		for _, tx := range tick.Transactions {
			profile, ok := models.ProductProfiles[tx.Type]
			if !ok {
				t.Fatalf("unknown product type %q", tx.Type)
			}
			if tx.Amount < profile.AvgAmount*0.4 || tx.Amount > profile.AvgAmount*1.6 {
				t.Errorf("amount %v outside [0.4x, 1.6x] of %v", tx.Amount, profile.AvgAmount)
			}
			if tx.TenorDays != profile.TenorDays {
				t.Errorf("tenor %d, want %d", tx.TenorDays, profile.TenorDays)
			}
			// base PD scaled by U[0.7,1.5] x U[0.5,1.3] x [1,1.4]
			if tx.PD < profile.BasePD*0.7*0.5 || tx.PD > profile.BasePD*1.5*1.3*1.4 {
				t.Errorf("pd %v outside multiplier bounds for base %v", tx.PD, profile.BasePD)
			}
			if tx.RecoveryRate < 0.35 || tx.RecoveryRate > 0.65 {
				t.Errorf("recovery rate %v outside [0.35, 0.65]", tx.RecoveryRate)
			}
			if tx.ObligorID == "" {
				t.Error("transaction must reference an obligor")
			}
		}
	}
}

func TestGenerateTickDeterministicWithSeed(t *testing.T) {
	obligors := testObligors(30)

	genA := NewTransactionGenerator(rand.New(rand.NewSource(42)))
	genB := NewTransactionGenerator(rand.New(rand.NewSource(42)))

	tickA := genA.GenerateTick(obligors)
	tickB := genB.GenerateTick(obligors)

	if len(tickA.Transactions) != len(tickB.Transactions) {
		t.Fatalf("tick sizes differ: %d vs %d", len(tickA.Transactions), len(tickB.Transactions))
	}
	for i := range tickA.Transactions {
		a, b := tickA.Transactions[i], tickB.Transactions[i]
		if a.Type != b.Type || a.Amount != b.Amount || a.PD != b.PD || a.ObligorID != b.ObligorID {
			t.Errorf("transaction %d differs under identical seeds: %+v vs %+v", i, a, b)
		}
	}
}

func TestObligorSelectionWeights(t *testing.T) {
	weights := obligorSelectionWeights(100)
	if weights[0] != 3.0 || weights[29] != 3.0 {
		t.Errorf("top third should weigh 3.0, got %v / %v", weights[0], weights[29])
	}
	if weights[30] != 2.0 || weights[59] != 2.0 {
		t.Errorf("middle third should weigh 2.0, got %v / %v", weights[30], weights[59])
	}
	if weights[60] != 1.0 || weights[99] != 1.0 {
		t.Errorf("bottom should weigh 1.0, got %v / %v", weights[60], weights[99])
	}
}
