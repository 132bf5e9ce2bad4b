// Package dashboard serves a read-only JSON view of the simulation: the
// obligor table, protocol metrics, the batch analytics queries, forecasts,
// and host resources. It never mutates portfolio state except for the
// live-mode toggle.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bricsflow/config"
	"bricsflow/engine"
	"bricsflow/logger"
	"bricsflow/marketdata"
)

// Server hosts the Gin-powered monitoring API for the simulation engine.
type Server struct {
	cfg         config.DashboardConfig
	log         *logger.Log
	eng         *engine.Engine
	provider    *marketdata.Provider
	metricStore *metricStore
	logStore    *logStore
	sampler     *resourceSampler
	httpServer  *http.Server
}

// NewServer constructs a dashboard server when the dashboard feature is
// enabled. When the dashboard is disabled the returned server is nil.
func NewServer(cfg config.DashboardConfig, eng *engine.Engine, provider *marketdata.Provider, log *logger.Log) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.LogHistory <= 0 {
		cfg.LogHistory = 200
	}
	if cfg.MetricsHistory <= 0 {
		cfg.MetricsHistory = 200
	}

	logStore := newLogStore(cfg.LogHistory)
	log.AddHook(logStore)

	return &Server{
		cfg:         cfg,
		log:         log,
		eng:         eng,
		provider:    provider,
		metricStore: newMetricStore(cfg.MetricsHistory),
		logStore:    logStore,
		sampler:     newResourceSampler(cfg.MetricsHistory, cfg.RefreshInterval, log),
	}
}

// Run starts the dashboard HTTP server and blocks until the provided context
// is cancelled or the server exits with an error.
func (s *Server) Run(ctx context.Context, appName string) error {
	if s == nil {
		return nil
	}
	defer s.cleanup()

	s.sampler.start(ctx)
	go s.sampleMetrics(ctx)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.buildRouter(appName),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	s.logStore.close()
	s.sampler.stop()
}

// Address reports the network address the dashboard server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

// sampleMetrics records the protocol metrics on the refresh cadence so the
// API can serve a small time series.
func (s *Server) sampleMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metricStore.record(s.eng.State().Metrics())
		}
	}
}

func (s *Server) buildRouter(appName string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies(nil)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": appName,
			"live":    s.eng.Scheduler().Live(),
		})
	})

	router.GET("/api/portfolio", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"obligors": s.eng.State().Obligors()})
	})

	router.GET("/api/protocol", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"metrics": s.eng.State().Metrics()})
	})

	router.GET("/api/analytics/var", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.eng.Analytics().ValueAtRisk(s.eng.State().Obligors()))
	})

	router.GET("/api/analytics/stress", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"scenarios": s.eng.Analytics().StressTest(s.eng.State().Obligors())})
	})

	router.GET("/api/analytics/concentration", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.eng.Analytics().Concentration(s.eng.State().Obligors()))
	})

	router.GET("/api/analytics/correlation", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.eng.Analytics().Correlations(s.eng.State().Obligors()))
	})

	router.GET("/api/forecast", func(c *gin.Context) {
		days := queryInt(c, "days", 30)
		c.JSON(http.StatusOK, gin.H{"forecasts": s.eng.Forecast().ForecastYield(days)})
	})

	router.GET("/api/backtest", func(c *gin.Context) {
		days := queryInt(c, "days", 90)
		c.JSON(http.StatusOK, s.eng.Forecast().BacktestPortfolio(days))
	})

	router.GET("/api/marketdata", func(c *gin.Context) {
		if s.provider == nil {
			c.JSON(http.StatusOK, gin.H{"cds": marketdata.FallbackCdsData()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cds": s.provider.LastCds()})
	})

	router.POST("/api/live", func(c *gin.Context) {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		s.eng.Scheduler().SetLive(body.Enabled)
		c.JSON(http.StatusOK, gin.H{"live": body.Enabled})
	})

	router.GET("/api/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"samples": s.metricStore.snapshot()})
	})

	router.GET("/api/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
	})

	router.GET("/api/resources", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"resources": s.sampler.snapshot()})
	})

	return router
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
