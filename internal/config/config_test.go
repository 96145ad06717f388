package config

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/risk"
	"github.com/aristath/journal/internal/modules/settings"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("JOURNAL_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, domain.CurrencyCNY, cfg.ReportingCurrency)
	assert.Equal(t, domain.CurrencyCNY, cfg.AccountCurrency)
	assert.Equal(t, "0 30 18 * * *", cfg.SnapshotRebuildSchedule)
	assert.Equal(t, "@daily", cfg.Backup.Schedule)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.False(t, cfg.Backup.Ready())
	assert.Equal(t, risk.DefaultPolicy(), cfg.RiskPolicy)
}

func TestLoad_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	policy := filepath.Join(dir, "risk.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("largest_position:\n  medium: 0.2\n  high: 0.3\n"), 0644))

	t.Setenv("JOURNAL_DATA_DIR", dir)
	t.Setenv("GO_PORT", "9100")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("REPORTING_CURRENCY", "usd")
	t.Setenv("ACCOUNT_CURRENCY", "hkd")
	t.Setenv("RISK_POLICY_FILE", policy)
	t.Setenv("BACKUP_ENABLED", "true")
	t.Setenv("BACKUP_BUCKET", "journal")
	t.Setenv("BACKUP_ACCESS_KEY_ID", "id")
	t.Setenv("BACKUP_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, domain.CurrencyUSD, cfg.ReportingCurrency)
	assert.Equal(t, domain.CurrencyHKD, cfg.AccountCurrency)
	assert.Equal(t, 0.3, cfg.RiskPolicy.LargestPosition.High)
	assert.True(t, cfg.Backup.Ready())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("JOURNAL_DATA_DIR", t.TempDir())

	t.Run("currency", func(t *testing.T) {
		t.Setenv("REPORTING_CURRENCY", "EUR")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("account currency", func(t *testing.T) {
		t.Setenv("ACCOUNT_CURRENCY", "EUR")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("retention below one day", func(t *testing.T) {
		t.Setenv("BACKUP_RETENTION_DAYS", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "at least one day")
	})

	t.Run("policy file missing", func(t *testing.T) {
		t.Setenv("RISK_POLICY_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestUpdateFromSettings(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	require.NoError(t, database.ApplySchema(db, database.NameJournal))

	repo := settings.NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.Set(settings.KeyReportingCurrency, "HKD"))
	require.NoError(t, repo.Set(settings.KeyAccountCurrency, "USD"))
	require.NoError(t, repo.Set(settings.KeyBackupBucket, "from-db"))
	require.NoError(t, repo.Set(settings.KeyBackupRegion, ""))
	require.NoError(t, repo.Set(settings.KeyBackupEnabled, "true"))
	require.NoError(t, repo.Set(settings.KeyBackupRetentionDay, "7"))
	require.NoError(t, repo.Set(settings.KeyRiskTopN, "3"))

	cfg := &Config{
		Port:              8001,
		ReportingCurrency: domain.CurrencyCNY,
		AccountCurrency:   domain.CurrencyCNY,
		RiskPolicy:        risk.DefaultPolicy(),
		Backup:            BackupConfig{Bucket: "from-env", Region: "eu-west-1", RetentionDays: 30},
	}
	require.NoError(t, cfg.UpdateFromSettings(repo))

	assert.Equal(t, domain.CurrencyHKD, cfg.ReportingCurrency)
	assert.Equal(t, domain.CurrencyUSD, cfg.AccountCurrency)
	assert.Equal(t, "from-db", cfg.Backup.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Backup.Region, "empty stored value keeps env")
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, 7, cfg.Backup.RetentionDays)
	assert.Equal(t, 3, cfg.RiskPolicy.TopN)
}
