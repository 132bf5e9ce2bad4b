package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bricsflow  BricsflowConfig  `yaml:"bricsflow"`
	Engine     EngineConfig     `yaml:"engine"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type BricsflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type EngineConfig struct {
	Seed         int64           `yaml:"seed"`
	Obligors     int             `yaml:"obligors"`
	SeedFile     string          `yaml:"seed_file"`
	PassInterval time.Duration   `yaml:"pass_interval"`
	Tiers        TiersConfig     `yaml:"tiers"`
	Analytics    AnalyticsConfig `yaml:"analytics"`
}

type TiersConfig struct {
	Fast   time.Duration `yaml:"fast"`
	Medium time.Duration `yaml:"medium"`
	Slow   time.Duration `yaml:"slow"`
}

type AnalyticsConfig struct {
	VarTrials       int     `yaml:"var_trials"`
	ConfidenceLevel float64 `yaml:"confidence_level"`
}

type MarketDataConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type EndpointsConfig struct {
	FxRate         string `yaml:"fx_rate"`
	GasProxy       string `yaml:"gas_proxy"`
	StablecoinCaps string `yaml:"stablecoin_caps"`
	CdsProxy       string `yaml:"cds_proxy"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogHistory      int           `yaml:"log_history"`
	MetricsHistory  int           `yaml:"metrics_history"`
}

type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	OutputDir     string        `yaml:"output_dir"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Compression   string        `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled           bool   `yaml:"enabled"`
	Bucket            string `yaml:"bucket"`
	Region            string `yaml:"region"`
	Endpoint          string `yaml:"endpoint"`
	PathStyle         bool   `yaml:"path_style"`
	UploadConcurrency int    `yaml:"upload_concurrency"`
	AccessKeyID       string `yaml:"access_key_id"`
	SecretAccessKey   string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level         string                 `yaml:"level"`
	Format        string                 `yaml:"format"`
	Output        string                 `yaml:"output"`
	MaxAge        int                    `yaml:"max_age"`
	Fields        map[string]interface{} `yaml:"fields"`
	DashboardName string                 `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.Obligors == 0 {
		cfg.Engine.Obligors = 100
	}
	if cfg.Engine.PassInterval == 0 {
		cfg.Engine.PassInterval = time.Second
	}
	if cfg.Engine.Tiers.Fast == 0 {
		cfg.Engine.Tiers.Fast = 5 * time.Second
	}
	if cfg.Engine.Tiers.Medium == 0 {
		cfg.Engine.Tiers.Medium = 45 * time.Second
	}
	if cfg.Engine.Tiers.Slow == 0 {
		cfg.Engine.Tiers.Slow = 600 * time.Second
	}
	if cfg.Engine.Analytics.VarTrials == 0 {
		cfg.Engine.Analytics.VarTrials = 10000
	}
	if cfg.Engine.Analytics.ConfidenceLevel == 0 {
		cfg.Engine.Analytics.ConfidenceLevel = 0.95
	}
	if cfg.MarketData.Timeout == 0 {
		cfg.MarketData.Timeout = 5 * time.Second
	}
	if cfg.MarketData.RateLimit.RequestsPerSecond == 0 {
		cfg.MarketData.RateLimit.RequestsPerSecond = 2
	}
	if cfg.MarketData.RateLimit.BurstSize == 0 {
		cfg.MarketData.RateLimit.BurstSize = 4
	}
	if cfg.Dashboard.RefreshInterval == 0 {
		cfg.Dashboard.RefreshInterval = 5 * time.Second
	}
	if cfg.Archive.BatchSize == 0 {
		cfg.Archive.BatchSize = 50
	}
	if cfg.Archive.FlushInterval == 0 {
		cfg.Archive.FlushInterval = time.Minute
	}
	if cfg.Archive.OutputDir == "" {
		cfg.Archive.OutputDir = "data/archive"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "0.0.0.0:2112"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Bricsflow.Name == "" {
		return fmt.Errorf("bricsflow.name is required")
	}

	if cfg.Bricsflow.Version == "" {
		return fmt.Errorf("bricsflow.version is required")
	}

	if cfg.Engine.Obligors <= 0 {
		return fmt.Errorf("engine.obligors must be greater than 0")
	}

	if cfg.Engine.Tiers.Fast <= 0 || cfg.Engine.Tiers.Medium <= 0 || cfg.Engine.Tiers.Slow <= 0 {
		return fmt.Errorf("engine.tiers intervals must be greater than 0")
	}
	if cfg.Engine.Tiers.Fast > cfg.Engine.Tiers.Medium || cfg.Engine.Tiers.Medium > cfg.Engine.Tiers.Slow {
		return fmt.Errorf("engine.tiers must satisfy fast <= medium <= slow")
	}

	if cfg.Engine.Analytics.VarTrials <= 0 {
		return fmt.Errorf("engine.analytics.var_trials must be greater than 0")
	}
	if cfg.Engine.Analytics.ConfidenceLevel <= 0 || cfg.Engine.Analytics.ConfidenceLevel >= 1 {
		return fmt.Errorf("engine.analytics.confidence_level must be in (0, 1)")
	}

	if cfg.Archive.Enabled && cfg.Archive.FlushInterval <= 0 {
		return fmt.Errorf("archive.flush_interval must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
