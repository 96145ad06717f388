package di

import (
	"github.com/aristath/journal/internal/clientdata"
	"github.com/aristath/journal/internal/modules/settings"
	"github.com/aristath/journal/internal/modules/snapshots"
	"github.com/aristath/journal/internal/modules/trading"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates every repository on the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) {
	journal := container.JournalDB.Conn()

	container.TradeRepo = trading.NewTradeRepository(journal, log)
	container.SnapshotRepo = snapshots.NewRepository(journal, log)
	container.SettingsRepo = settings.NewRepository(journal, log)
	container.CacheRepo = clientdata.NewRepository(container.CacheDB.Conn())
}
