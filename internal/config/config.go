// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aristath/journal/internal/clients/exchangerate"
	"github.com/aristath/journal/internal/clients/yahoo"
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/risk"
	"github.com/aristath/journal/internal/modules/settings"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir                 string // Base directory for journal.db and cache.db (always absolute)
	LogLevel                string
	Port                    int
	DevMode                 bool
	ReportingCurrency       domain.Currency
	AccountCurrency         domain.Currency // currency the cash balance is held in
	FxBaseURL               string
	QuotesBaseURL           string
	RiskPolicyFile          string
	RiskPolicy              risk.Policy
	SnapshotRebuildSchedule string
	CacheCleanupSchedule    string
	Backup                  BackupConfig
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // empty for AWS S3; set for R2, MinIO and similar
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
	Schedule        string
}

// Ready reports whether enough is configured to attempt an upload
func (b BackupConfig) Ready() bool {
	return b.Enabled && b.Bucket != "" && b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Load reads configuration from .env and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("JOURNAL_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                 absDataDir,
		Port:                    getEnvAsInt("GO_PORT", 8001),
		DevMode:                 getEnvAsBool("DEV_MODE", false),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		ReportingCurrency:       domain.ParseCurrency(getEnv("REPORTING_CURRENCY", string(domain.CurrencyCNY))),
		AccountCurrency:         domain.ParseCurrency(getEnv("ACCOUNT_CURRENCY", string(domain.CurrencyCNY))),
		FxBaseURL:               getEnv("FX_BASE_URL", exchangerate.DefaultBaseURL),
		QuotesBaseURL:           getEnv("QUOTES_BASE_URL", yahoo.DefaultBaseURL),
		RiskPolicyFile:          getEnv("RISK_POLICY_FILE", ""),
		SnapshotRebuildSchedule: getEnv("SNAPSHOT_REBUILD_SCHEDULE", "0 30 18 * * *"),
		CacheCleanupSchedule:    getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 * * * *"),
		Backup: BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Prefix:          getEnv("BACKUP_PREFIX", "journal-backups/"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
		},
	}

	policy, err := risk.LoadPolicy(cfg.RiskPolicyFile)
	if err != nil {
		return nil, err
	}
	cfg.RiskPolicy = policy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateFromSettings applies values stored in the settings table.
// Settings DB values take precedence over environment variables;
// empty stored values keep the environment value.
func (c *Config) UpdateFromSettings(settingsRepo *settings.Repository) error {
	stored, err := settingsRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	str := func(key string, target *string) {
		if v, ok := stored[key]; ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	if v, ok := stored[settings.KeyReportingCurrency]; ok && v != "" {
		c.ReportingCurrency = domain.ParseCurrency(v)
	}
	if v, ok := stored[settings.KeyAccountCurrency]; ok && v != "" {
		c.AccountCurrency = domain.ParseCurrency(v)
	}

	str(settings.KeyBackupEndpoint, &c.Backup.Endpoint)
	str(settings.KeyBackupRegion, &c.Backup.Region)
	str(settings.KeyBackupBucket, &c.Backup.Bucket)
	str(settings.KeyBackupAccessKeyID, &c.Backup.AccessKeyID)
	str(settings.KeyBackupSecretKey, &c.Backup.SecretAccessKey)

	if v, ok := stored[settings.KeyBackupEnabled]; ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Backup.Enabled = b
		}
	}
	if v, ok := stored[settings.KeyBackupRetentionDay]; ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1 {
			c.Backup.RetentionDays = int(f)
		}
	}
	if v, ok := stored[settings.KeyRiskTopN]; ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1 {
			c.RiskPolicy.TopN = int(f)
		}
	}

	return c.Validate()
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	for name, currency := range map[string]domain.Currency{"reporting": c.ReportingCurrency, "account": c.AccountCurrency} {
		switch currency {
		case domain.CurrencyCNY, domain.CurrencyHKD, domain.CurrencyUSD:
		default:
			return fmt.Errorf("unsupported %s currency %q", name, currency)
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Backup.RetentionDays < 1 {
		return fmt.Errorf("backup retention must be at least one day")
	}
	return c.RiskPolicy.Validate()
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
