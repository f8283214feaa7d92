// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// Config holds application configuration
type Config struct {
	DataDir               string // Base directory for the sqlite databases, always absolute
	DatabaseURL           string // Optional Postgres URL; saved valuations go there instead of the ledger DB
	DefaultIndex          string
	LogLevel              string
	ValuationConfigFile   string
	Port                  int
	MaxConcurrentRequests int
	RateLimitRequests     int // Requests per client per window, 0 disables
	RateLimitWindowSecs   int
	BatchWorkers          int
	LogPretty             bool
	DevMode               bool
	ParallelMethods       bool // Run valuation methods concurrently within one request
	Archive               ArchiveConfig
	Schedule              ScheduleConfig
	Valuation             vdomain.Config
}

// ArchiveConfig holds the S3-compatible audit archive settings.
// The archive is disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string
	Endpoint        string // Custom endpoint for S3-compatible stores (R2, MinIO); empty means AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	BatchSize       int
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// ScheduleConfig holds cron expressions for background jobs. An empty
// expression disables the job.
type ScheduleConfig struct {
	Archive string
	Revalue string
}

// Load reads configuration from environment variables, a .env file if present,
// and the optional valuation parameter file.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("VCAUDIT_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:               absDataDir,
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DefaultIndex:          getEnv("DEFAULT_INDEX", "NASDAQ"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPretty:             getEnvAsBool("LOG_PRETTY", false),
		DevMode:               getEnvAsBool("DEV_MODE", false),
		ParallelMethods:       getEnvAsBool("PARALLEL_METHODS", false),
		ValuationConfigFile:   getEnv("VALUATION_CONFIG_FILE", ""),
		Port:                  getEnvAsInt("PORT", 8000),
		MaxConcurrentRequests: getEnvAsInt("MAX_CONCURRENT_REQUESTS", 64),
		RateLimitRequests:     getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowSecs:   getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		BatchWorkers:          getEnvAsInt("BATCH_WORKERS", 4),
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
			Prefix:          strings.Trim(getEnv("ARCHIVE_PREFIX", "valuations"), "/"),
			BatchSize:       getEnvAsInt("ARCHIVE_BATCH_SIZE", 100),
		},
		Schedule: ScheduleConfig{
			Archive: getEnv("ARCHIVE_SCHEDULE", "0 */6 * * *"),
			Revalue: getEnv("REVALUE_SCHEDULE", ""),
		},
		Valuation: vdomain.DefaultConfig(),
	}

	if cfg.ValuationConfigFile != "" {
		valuation, err := LoadValuationFile(cfg.ValuationConfigFile, cfg.Valuation)
		if err != nil {
			return nil, err
		}
		cfg.Valuation = valuation
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must be positive, got %d", c.MaxConcurrentRequests)
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindowSecs <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive when rate limiting is enabled")
	}
	if c.Archive.Enabled() && (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
		return fmt.Errorf("ARCHIVE_ACCESS_KEY_ID and ARCHIVE_SECRET_ACCESS_KEY must be set together")
	}
	if err := c.Valuation.Validate(); err != nil {
		return fmt.Errorf("invalid valuation parameters: %w", err)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
