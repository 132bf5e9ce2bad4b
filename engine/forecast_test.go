package engine

import (
	"math/rand"
	"testing"
)

func TestForecastYieldShape(t *testing.T) {
	model := NewBaselineForecast(rand.New(rand.NewSource(2)))

	forecasts := model.ForecastYield(60)
	if len(forecasts) != 60 {
		t.Fatalf("got %d forecast points, want 60", len(forecasts))
	}

	for i, f := range forecasts {
		if f.PredictedYield < 0 {
			t.Errorf("day %d: negative predicted yield %v", i+1, f.PredictedYield)
		}
		if f.Confidence < 0.5 || f.Confidence > 0.9 {
			t.Errorf("day %d: confidence %v outside [0.5, 0.9]", i+1, f.Confidence)
		}
		if i > 0 && f.Confidence > forecasts[i-1].Confidence {
			t.Errorf("day %d: confidence increased over time", i+1)
		}
		if i > 0 && !f.Date.After(forecasts[i-1].Date) {
			t.Errorf("day %d: dates not strictly increasing", i+1)
		}
	}

	// Confidence floors at 0.5 for long horizons.
	if last := forecasts[59].Confidence; last != 0.5 {
		t.Errorf("day 60 confidence = %v, want floor 0.5", last)
	}
}

func TestForecastYieldZeroHorizon(t *testing.T) {
	model := NewBaselineForecast(rand.New(rand.NewSource(2)))
	if got := model.ForecastYield(0); got != nil {
		t.Fatalf("zero horizon forecast = %v, want nil", got)
	}
}

func TestBacktestPortfolio(t *testing.T) {
	model := NewBaselineForecast(rand.New(rand.NewSource(4)))

	result := model.BacktestPortfolio(90)
	if len(result.Daily) != 90 {
		t.Fatalf("got %d daily points, want 90", len(result.Daily))
	}
	if result.MaxDrawdown > 0 {
		t.Errorf("max drawdown %v must be zero or negative", result.MaxDrawdown)
	}

	// Path consistency: final value matches the compounded returns.
	value := 1.0
	for _, d := range result.Daily {
		value *= 1 + d.DailyReturn
	}
	if got := result.Daily[89].PortfolioValue; !closeTo(got, value, 1e-9) {
		t.Errorf("final value %v does not match compounded returns %v", got, value)
	}
	if !closeTo(result.TotalReturn, value-1, 1e-9) {
		t.Errorf("total return %v != final value - 1 (%v)", result.TotalReturn, value-1)
	}
}

func TestBacktestZeroPeriod(t *testing.T) {
	model := NewBaselineForecast(rand.New(rand.NewSource(4)))
	result := model.BacktestPortfolio(0)
	if result.TotalReturn != 0 || len(result.Daily) != 0 {
		t.Fatalf("zero-period backtest = %+v, want empty result", result)
	}
}

func closeTo(a, b, eps float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= eps
}
