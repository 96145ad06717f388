package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/journal/internal/clients/exchangerate"
	"github.com/aristath/journal/internal/clients/yahoo"
	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/modules/analytics"
	"github.com/aristath/journal/internal/modules/currency"
	"github.com/aristath/journal/internal/modules/ledger"
	"github.com/aristath/journal/internal/modules/risk"
	"github.com/aristath/journal/internal/modules/settings"
	"github.com/aristath/journal/internal/modules/snapshots"
	"github.com/aristath/journal/internal/reliability"
	"github.com/rs/zerolog"
)

// riskFreeRate is the annual rate subtracted in the Sharpe ratio of the asset curve
const riskFreeRate = 0.0

// InitializeServices creates clients and services. Repositories must exist.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus(64)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.FxClient = exchangerate.NewClient(cfg.FxBaseURL, domain.CurrencyUSD, container.CacheRepo, log)
	container.QuoteClient = yahoo.NewClient(cfg.QuotesBaseURL, container.CacheRepo, log)

	container.SettingsService = settings.NewService(container.SettingsRepo, container.EventManager, log)
	container.CurrencyService = currency.NewService(container.FxClient, log)

	container.LedgerService = ledger.NewService(
		container.JournalDB.Conn(),
		container.TradeRepo,
		container.EventManager,
		log,
	)

	container.SnapshotService = snapshots.NewService(
		container.TradeRepo,
		container.SnapshotRepo,
		container.SettingsRepo,
		container.QuoteClient,
		container.EventManager,
		log,
	)

	container.AnalyticsService = analytics.NewService(
		container.TradeRepo,
		container.SnapshotRepo,
		container.SettingsRepo,
		riskFreeRate,
		log,
	)

	fallbackCurrency := cfg.ReportingCurrency
	accountCurrency := cfg.AccountCurrency
	settingsService := container.SettingsService
	container.RiskService = risk.NewService(
		container.LedgerService,
		container.QuoteClient,
		container.CurrencyService,
		container.SnapshotRepo,
		container.SettingsRepo,
		func() domain.Currency { return settingsService.ReportingCurrency(fallbackCurrency) },
		func() domain.Currency { return settingsService.AccountCurrency(accountCurrency) },
		cfg.RiskPolicy,
		log,
	)

	if cfg.Backup.Ready() {
		backup, err := newBackupService(container, cfg, log)
		if err != nil {
			return err
		}
		container.BackupService = backup
	} else {
		log.Info().Msg("Backups disabled or not configured")
	}

	log.Info().Msg("Services initialized")
	return nil
}

func newBackupService(container *Container, cfg *config.Config, log zerolog.Logger) (*reliability.BackupService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := reliability.NewS3Client(ctx, reliability.S3Config{
		Endpoint:        cfg.Backup.Endpoint,
		Region:          cfg.Backup.Region,
		Bucket:          cfg.Backup.Bucket,
		AccessKeyID:     cfg.Backup.AccessKeyID,
		SecretAccessKey: cfg.Backup.SecretAccessKey,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup client: %w", err)
	}

	return reliability.NewBackupService(
		store,
		[]reliability.Database{container.JournalDB},
		filepath.Join(cfg.DataDir, "backups"),
		cfg.Backup.Prefix,
		cfg.Backup.RetentionDays,
		container.EventManager,
		log,
	), nil
}
