package engine

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// YieldForecast is one point of a forward yield projection.
type YieldForecast struct {
	Date           time.Time `json:"date"`
	PredictedYield float64   `json:"predicted_yield"`
	Confidence     float64   `json:"confidence"`
}

// DailyPoint is one day of a simulated backtest path.
type DailyPoint struct {
	Date           time.Time `json:"date"`
	PortfolioValue float64   `json:"portfolio_value"`
	DailyReturn    float64   `json:"daily_return"`
}

// BacktestResult summarises a simulated historical run of the portfolio.
type BacktestResult struct {
	TotalReturn float64      `json:"total_return"`
	SharpeRatio float64      `json:"sharpe_ratio"`
	MaxDrawdown float64      `json:"max_drawdown"`
	Daily       []DailyPoint `json:"daily"`
}

// ForecastModel is the contract consumed by the presentation layer. The
// internal model is swappable; only these two operations are promised.
type ForecastModel interface {
	ForecastYield(daysAhead int) []YieldForecast
	BacktestPortfolio(periodDays int) BacktestResult
}

// BaselineForecast is a statistical stand-in that satisfies the forecast
// contract without a learned model: yield follows a seasonal pattern around a
// 30% base, backtests follow a noisy daily-return walk with rare default
// shocks.
type BaselineForecast struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewBaselineForecast builds the baseline model around the given random
// source.
func NewBaselineForecast(rng *rand.Rand) *BaselineForecast {
	return &BaselineForecast{rng: rng, now: time.Now}
}

// ForecastYield projects the portfolio yield daysAhead days forward.
// Confidence decays by one point per day and never drops below 0.5.
func (f *BaselineForecast) ForecastYield(daysAhead int) []YieldForecast {
	if daysAhead <= 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	start := f.now()
	out := make([]YieldForecast, 0, daysAhead)
	for day := 1; day <= daysAhead; day++ {
		date := start.AddDate(0, 0, day)
		seasonal := 0.02 * math.Sin(2*math.Pi*float64(date.YearDay())/365)
		stress := f.rng.NormFloat64() * 0.01

		predicted := 0.30 + seasonal + stress
		if predicted < 0 {
			predicted = 0
		}

		confidence := 0.9 - float64(day)*0.01
		if confidence < 0.5 {
			confidence = 0.5
		}

		out = append(out, YieldForecast{
			Date:           date,
			PredictedYield: predicted,
			Confidence:     confidence,
		})
	}
	return out
}

// BacktestPortfolio simulates periodDays of daily returns: N(0.1%, 0.5%)
// with a 0.1% daily default probability costing 2-5% of portfolio value.
func (f *BaselineForecast) BacktestPortfolio(periodDays int) BacktestResult {
	if periodDays <= 0 {
		return BacktestResult{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	start := f.now().AddDate(0, 0, -periodDays)
	value := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	daily := make([]DailyPoint, 0, periodDays)
	returns := make([]float64, 0, periodDays)

	for day := 0; day < periodDays; day++ {
		ret := 0.001 + f.rng.NormFloat64()*0.005
		if f.rng.Float64() < 0.001 {
			ret -= 0.02 + f.rng.Float64()*0.03
		}

		value *= 1 + ret
		if value > peak {
			peak = value
		}
		if dd := value/peak - 1; dd < maxDrawdown {
			maxDrawdown = dd
		}

		returns = append(returns, ret)
		daily = append(daily, DailyPoint{
			Date:           start.AddDate(0, 0, day),
			PortfolioValue: value,
			DailyReturn:    ret,
		})
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	volatility := math.Sqrt(variance) * math.Sqrt(252)
	sharpe := 0.0
	if volatility > 0 {
		sharpe = mean * 252 / volatility
	}

	return BacktestResult{
		TotalReturn: value - 1,
		SharpeRatio: sharpe,
		MaxDrawdown: maxDrawdown,
		Daily:       daily,
	}
}
