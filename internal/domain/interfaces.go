package domain

import "context"

// TradeStore persists and queries trade journal rows
type TradeStore interface {
	ListTrades(filter TradeFilter) ([]TradeEntry, error)
	InsertTrade(entry *TradeEntry) error
}

// SnapshotStore persists the daily account snapshot series
type SnapshotStore interface {
	ListSnapshots(from, to string) ([]AccountSnapshot, error)
	UpsertSnapshot(s AccountSnapshot) error
}

// SettingsReader reads key/value settings
type SettingsReader interface {
	Get(key string) (*string, error)
}

// QuoteProvider returns current and historical prices for an instrument
type QuoteProvider interface {
	GetCurrentPrice(ctx context.Context, symbol string, market Market) (float64, error)
	GetHistoricalCloses(ctx context.Context, symbol string, market Market, from, to string) ([]PricePoint, error)
}

// FxProvider returns a rate set relative to a single base currency
type FxProvider interface {
	GetFxRates(ctx context.Context) (*FxRateSet, error)
}
