// Package di provides dependency injection type definitions.
//
// Container holds every long-lived dependency and is the single source of
// truth for service instances handed to the server and the scheduler.
package di

import (
	"github.com/aristath/journal/internal/clientdata"
	"github.com/aristath/journal/internal/clients/exchangerate"
	"github.com/aristath/journal/internal/clients/yahoo"
	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/modules/analytics"
	"github.com/aristath/journal/internal/modules/currency"
	"github.com/aristath/journal/internal/modules/ledger"
	"github.com/aristath/journal/internal/modules/risk"
	"github.com/aristath/journal/internal/modules/settings"
	"github.com/aristath/journal/internal/modules/snapshots"
	"github.com/aristath/journal/internal/modules/trading"
	"github.com/aristath/journal/internal/reliability"
	"github.com/aristath/journal/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	JournalDB *database.DB // trades, account_snapshots, settings
	CacheDB   *database.DB // provider responses that can be refetched

	// Repositories
	TradeRepo    *trading.TradeRepository
	SnapshotRepo *snapshots.Repository
	SettingsRepo *settings.Repository
	CacheRepo    *clientdata.Repository

	// Clients
	FxClient    *exchangerate.Client
	QuoteClient *yahoo.Client

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	SettingsService  *settings.Service
	CurrencyService  *currency.Service
	LedgerService    *ledger.Service
	SnapshotService  *snapshots.Service
	AnalyticsService *analytics.Service
	RiskService      *risk.Service
	BackupService    *reliability.BackupService // nil unless backups are configured
}

// JobInstances holds the scheduler and the jobs registered with it
type JobInstances struct {
	Scheduler *scheduler.Scheduler

	SnapshotRebuild scheduler.Job
	CacheCleanup    scheduler.Job
	Maintenance     scheduler.Job
	Backup          scheduler.Job // nil unless backups are configured
}

// Databases returns every open database
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.JournalDB, c.CacheDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close closes every open database
func (c *Container) Close() error {
	var firstErr error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
