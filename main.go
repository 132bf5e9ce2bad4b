package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bricsflow/config"
	"bricsflow/engine"
	"bricsflow/internal/dashboard"
	"bricsflow/internal/metrics"
	"bricsflow/logger"
	"bricsflow/marketdata"
	"bricsflow/models"
	"bricsflow/writer"
)

const marketDataRefreshInterval = 60 * time.Second

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Bricsflow.Name,
		"version":     cfg.Bricsflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting bricsflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "BricsFlow", cfg.Logging.DashboardName)
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if cfg.Metrics.Enabled {
		metrics.Init(cfg.Metrics.Address)
	}

	provider := marketdata.NewProvider(cfg)

	eng := engine.NewEngine(cfg, provider.SaCdsSpread)

	archiveWriter, err := writer.NewArchiveWriter(cfg)
	if err != nil {
		log.WithError(err).Error("failed to create archive writer")
		os.Exit(1)
	}
	if archiveWriter != nil {
		eng.Scheduler().AddTickSink(func(tick models.TransactionTick, _ engine.ApplyResult) {
			archiveWriter.Enqueue(tick)
		})
	}

	var wg sync.WaitGroup

	if archiveWriter != nil {
		if err := archiveWriter.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start archive writer")
			os.Exit(1)
		}
	}

	if err := eng.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start simulation engine")
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		refreshMarketData(ctx, provider, log)
	}()

	dash := dashboard.NewServer(cfg.Dashboard, eng, provider, log)
	if dash != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dash.Run(ctx, cfg.Bricsflow.Name); err != nil {
				log.WithError(err).Warn("dashboard server exited with error")
			}
		}()
		log.WithFields(logger.Fields{"address": dash.Address()}).Info("dashboard enabled")
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping simulation engine")
	eng.Stop()

	if archiveWriter != nil {
		log.Info("stopping archive writer")
		archiveWriter.Stop()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("bricsflow stopped")
}

// refreshMarketData keeps the external market inputs warm so scheduler passes
// and dashboard reads always see recent values or known fallbacks.
func refreshMarketData(ctx context.Context, provider *marketdata.Provider, log *logger.Log) {
	refresh := func() {
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if _, err := provider.FetchCdsProxy(fetchCtx); err != nil {
			log.WithComponent("marketdata").WithError(err).Debug("cds refresh failed, using fallback")
		}
		if _, err := provider.FetchFxRate(fetchCtx); err != nil {
			log.WithComponent("marketdata").WithError(err).Debug("fx refresh failed, using fallback")
		}
		if _, err := provider.FetchGasProxy(fetchCtx); err != nil {
			log.WithComponent("marketdata").WithError(err).Debug("gas refresh failed, using fallback")
		}
		if _, err := provider.FetchStablecoinCaps(fetchCtx); err != nil {
			log.WithComponent("marketdata").WithError(err).Debug("stablecoin caps refresh failed, using fallback")
		}
	}

	refresh()

	ticker := time.NewTicker(marketDataRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
