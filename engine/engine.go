// Package engine implements the portfolio risk and pricing simulation: a
// multi-tier, time-gated scheduler that evolves a synthetic credit
// portfolio's price, yield, and per-obligor risk state, plus the batch risk
// analytics read by the dashboard.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	appconfig "bricsflow/config"
	"bricsflow/logger"
	"bricsflow/models"
)

// Engine owns the simulation loop: it seeds the portfolio, wires the
// scheduler over the shared state, and drives scheduler passes on a fixed
// cadence until stopped.
type Engine struct {
	config    *appconfig.Config
	state     *State
	scheduler *Scheduler
	analytics *Analytics
	forecast  ForecastModel
	ctx       context.Context
	wg        *sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	log       *logger.Log
}

// NewEngine seeds the obligor population and baseline metrics from
// configuration and assembles the scheduler. A zero configured seed derives
// one from wall-clock time; any other value makes the whole simulation
// deterministic.
func NewEngine(cfg *appconfig.Config, cdsSource CdsSource) *Engine {
	seed := cfg.Engine.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var obligors []*models.Obligor
	if cfg.Engine.SeedFile != "" {
		loaded, err := LoadSeedObligors(cfg.Engine.SeedFile)
		if err != nil {
			logger.GetLogger().WithComponent("engine").WithError(err).
				Warn("failed to load obligor seed file, falling back to synthetic population")
		} else {
			obligors = loaded
		}
	}
	if obligors == nil {
		obligors = SeedObligors(cfg.Engine.Obligors, rng)
	}

	state := NewState(obligors, models.BaselineProtocolMetrics())

	intervals := SchedulerIntervals{
		Fast:   cfg.Engine.Tiers.Fast,
		Medium: cfg.Engine.Tiers.Medium,
		Slow:   cfg.Engine.Tiers.Slow,
	}
	scheduler := NewScheduler(state, NewTransactionGenerator(rng), NewPricingUpdater(rng), rng, intervals, cdsSource)

	// Analytics and forecasting run on request goroutines while the
	// scheduler loop keeps drawing from its own source; math/rand.Rand is
	// not safe to share across those, so each consumer gets a child source
	// derived from the configured seed.
	analyticsRng := rand.New(rand.NewSource(seed + 1))
	forecastRng := rand.New(rand.NewSource(seed + 2))

	return &Engine{
		config:    cfg,
		state:     state,
		scheduler: scheduler,
		analytics: NewAnalytics(analyticsRng, cfg.Engine.Analytics.VarTrials, cfg.Engine.Analytics.ConfidenceLevel),
		forecast:  NewBaselineForecast(forecastRng),
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
	}
}

// State exposes the shared portfolio state for read-only snapshot consumers.
func (e *Engine) State() *State { return e.state }

// Scheduler exposes the tier scheduler, mainly for the live-mode toggle and
// tick sinks.
func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

// Analytics exposes the batch risk analytics bound to the engine's state.
func (e *Engine) Analytics() *Analytics { return e.analytics }

// Forecast exposes the active forecast model.
func (e *Engine) Forecast() ForecastModel { return e.forecast }

// SetForecast swaps the forecast model. Not safe to call after Start.
func (e *Engine) SetForecast(m ForecastModel) {
	if m != nil {
		e.forecast = m
	}
}

// Start launches the pass loop and enables live mode.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.ctx = ctx
	e.mu.Unlock()

	log := e.log.WithComponent("engine").WithFields(logger.Fields{"operation": "start"})
	log.WithFields(logger.Fields{
		"obligors":      len(e.state.obligors),
		"fast_interval": e.config.Engine.Tiers.Fast.String(),
		"pass_interval": e.config.Engine.PassInterval.String(),
	}).Info("starting simulation engine")

	e.scheduler.SetLive(true)

	e.wg.Add(1)
	go e.passLoop()

	log.Info("simulation engine started successfully")
	return nil
}

// Stop disables live mode and waits for the pass loop to drain.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	e.log.WithComponent("engine").Info("stopping simulation engine")
	e.scheduler.SetLive(false)
	e.wg.Wait()
	e.log.WithComponent("engine").Info("simulation engine stopped")
}

func (e *Engine) passLoop() {
	defer e.wg.Done()

	interval := e.config.Engine.PassInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := e.log.WithComponent("engine")
	log.Info("pass loop running")

	for {
		select {
		case <-e.ctx.Done():
			log.Info("pass loop stopped due to context cancellation")
			return
		case now := <-ticker.C:
			e.mu.RLock()
			running := e.running
			e.mu.RUnlock()
			if !running {
				return
			}
			e.scheduler.Pass(now)
		}
	}
}
