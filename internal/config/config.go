package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/insurtree/internal/engine"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Record store
	StoreEngine  string `yaml:"store_engine"` // memory, postgres, sqlite or remote
	StoreURI     string `yaml:"store_uri"`
	StoreMigrate bool   `yaml:"store_migrate"`
	StoreMetrics bool   `yaml:"store_metrics"`

	// Remote record source
	RemoteURL    string `yaml:"remote_url"`
	RemoteAPIKey string `yaml:"remote_api_key"`

	// Seed data
	SeedFile      string `yaml:"seed_file"`
	WatchSeedFile bool   `yaml:"watch_seed_file"`

	// Import worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Query engine
	AggregateWorkers     int    `yaml:"aggregate_workers"`
	DanglingParentPolicy string `yaml:"dangling_parent_policy"` // root or reject

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Query latency window
	StatsWindow int `yaml:"stats_window"`

	MCPEnabled bool `yaml:"mcp_enabled"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		LogLevel:             "info",
		StoreEngine:          "memory",
		StoreMigrate:         true,
		WorkerCount:          4,
		MaxQueueSize:         100,
		AggregateWorkers:     1,
		DanglingParentPolicy: "root",
		MaxUploadBytes:       52428800, // 50MB
		JobTTL:               1 * time.Hour,
		StatsWindow:          1000,
		MCPEnabled:           true,
		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	cfg.StoreEngine = envOr("STORE_ENGINE", cfg.StoreEngine)
	cfg.StoreURI = envOr("STORE_URI", cfg.StoreURI)
	cfg.StoreMigrate = envBool("STORE_MIGRATE", cfg.StoreMigrate)
	cfg.StoreMetrics = envBool("STORE_METRICS", cfg.StoreMetrics)

	cfg.RemoteURL = envOr("REMOTE_URL", cfg.RemoteURL)
	cfg.RemoteAPIKey = envOr("REMOTE_API_KEY", cfg.RemoteAPIKey)

	cfg.SeedFile = envOr("SEED_FILE", cfg.SeedFile)
	cfg.WatchSeedFile = envBool("WATCH_SEED_FILE", cfg.WatchSeedFile)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)

	cfg.AggregateWorkers = envInt("AGGREGATE_WORKERS", cfg.AggregateWorkers)
	cfg.DanglingParentPolicy = envOr("DANGLING_PARENT_POLICY", cfg.DanglingParentPolicy)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.StatsWindow = envInt("STATS_WINDOW", cfg.StatsWindow)
	cfg.MCPEnabled = envBool("MCP_ENABLED", cfg.MCPEnabled)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	d := defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.AggregateWorkers <= 0 {
		cfg.AggregateWorkers = d.AggregateWorkers
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = d.StatsWindow
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreEngine {
	case "memory":
	case "postgres", "sqlite":
		if c.StoreURI == "" {
			return fmt.Errorf("STORE_URI is required for store engine %q", c.StoreEngine)
		}
	case "remote":
		if c.RemoteURL == "" {
			return fmt.Errorf("REMOTE_URL is required for store engine %q", c.StoreEngine)
		}
	default:
		return fmt.Errorf("unknown STORE_ENGINE %q", c.StoreEngine)
	}
	if _, err := engine.ParseDanglingPolicy(c.DanglingParentPolicy); err != nil {
		return fmt.Errorf("DANGLING_PARENT_POLICY: %w", err)
	}
	if c.WatchSeedFile && c.SeedFile == "" {
		return fmt.Errorf("WATCH_SEED_FILE requires SEED_FILE")
	}
	if c.SeedFile != "" && c.StoreEngine == "remote" {
		return fmt.Errorf("SEED_FILE cannot be imported into the read-only remote store")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
