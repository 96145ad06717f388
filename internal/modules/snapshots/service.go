package snapshots

import (
	"context"
	"fmt"
	"sort"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/events"
	"github.com/rs/zerolog"
)

// TradeLister is the part of the trade store replay reads
type TradeLister interface {
	ListTrades(filter domain.TradeFilter) ([]domain.TradeEntry, error)
}

// CapitalProvider supplies the starting cash baseline
type CapitalProvider interface {
	InitialCapital() (float64, error)
}

// RebuildOptions bounds a replay; empty dates use the replay defaults
type RebuildOptions struct {
	From    string
	To      string
	Persist bool
}

// RebuildResult summarizes a replay run
type RebuildResult struct {
	From         string                   `json:"from"`
	To           string                   `json:"to"`
	Count        int                      `json:"count"`
	StartingCash float64                  `json:"starting_cash"`
	Unpriced     []string                 `json:"unpriced,omitempty"`
	PriceErrors  map[string]string        `json:"price_errors,omitempty"`
	Persisted    bool                     `json:"persisted"`
	Snapshots    []domain.AccountSnapshot `json:"snapshots,omitempty"`
}

// Service runs replays and stores their output
type Service struct {
	trades   TradeLister
	repo     *Repository
	capital  CapitalProvider
	quotes   domain.QuoteProvider
	eventMgr *events.Manager
	log      zerolog.Logger
}

// NewService creates a snapshot service. quotes and eventMgr may be nil.
func NewService(trades TradeLister, repo *Repository, capital CapitalProvider, quotes domain.QuoteProvider, eventMgr *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		trades:   trades,
		repo:     repo,
		capital:  capital,
		quotes:   quotes,
		eventMgr: eventMgr,
		log:      log.With().Str("service", "snapshots").Logger(),
	}
}

// Rebuild replays the full trade log against historical closes. A rebuild
// without a From date replaces every replay-produced snapshot.
func (s *Service) Rebuild(ctx context.Context, opts RebuildOptions) (*RebuildResult, error) {
	trades, err := s.trades.ListTrades(domain.TradeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	startingCash, err := s.capital.InitialCapital()
	if err != nil {
		return nil, fmt.Errorf("failed to get initial capital: %w", err)
	}

	to := opts.To
	if to == "" {
		to = domain.Today()
	}

	result := &RebuildResult{From: opts.From, To: to, StartingCash: startingCash}
	if len(trades) == 0 {
		result.Snapshots = []domain.AccountSnapshot{}
		return result, nil
	}

	prices, priceErrors := s.loadPrices(ctx, trades, to)
	result.PriceErrors = priceErrors

	series, err := Replay(trades, prices, startingCash, opts.From, to)
	if err != nil {
		return nil, err
	}
	result.Snapshots = series
	result.Count = len(series)
	if len(series) > 0 {
		result.From = series[0].Date
	}
	result.Unpriced = unpricedUnion(series)

	if opts.Persist && len(series) > 0 {
		if opts.From == "" {
			err = s.repo.ReplaceReplayed(series)
		} else {
			err = s.repo.UpsertAll(series)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to persist snapshots: %w", err)
		}
		result.Persisted = true

		s.eventMgr.EmitTyped("snapshots", &events.SnapshotsRebuiltData{
			Count:    result.Count,
			From:     result.From,
			To:       result.To,
			Unpriced: result.Unpriced,
		})
	}

	s.log.Info().
		Int("snapshots", result.Count).
		Str("from", result.From).
		Str("to", result.To).
		Strs("unpriced", result.Unpriced).
		Bool("persisted", result.Persisted).
		Msg("Snapshot replay completed")

	return result, nil
}

// loadPrices fetches closes for every traded instrument from its first trade
// date. Failures leave the series empty and are reported, not returned.
func (s *Service) loadPrices(ctx context.Context, trades []domain.TradeEntry, to string) (PriceSeries, map[string]string) {
	prices := make(PriceSeries)
	if s.quotes == nil {
		return prices, nil
	}

	type instrument struct {
		symbol string
		market domain.Market
		first  string
	}
	instruments := make(map[string]*instrument)
	for _, t := range trades {
		key := SeriesKey(t.Symbol, t.Market)
		inst, ok := instruments[key]
		if !ok {
			instruments[key] = &instrument{symbol: t.Symbol, market: t.Market, first: t.TradeDate}
			continue
		}
		if t.TradeDate < inst.first {
			inst.first = t.TradeDate
		}
	}

	keys := make([]string, 0, len(instruments))
	for key := range instruments {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var failures map[string]string
	for _, key := range keys {
		inst := instruments[key]
		points, err := s.quotes.GetHistoricalCloses(ctx, inst.symbol, inst.market, inst.first, to)
		if err != nil {
			s.log.Warn().Err(err).Str("instrument", key).Msg("Historical closes unavailable, instrument will be unpriced")
			if failures == nil {
				failures = make(map[string]string)
			}
			failures[key] = err.Error()
			continue
		}
		prices[key] = points
	}
	return prices, failures
}

func unpricedUnion(series []domain.AccountSnapshot) []string {
	seen := make(map[string]bool)
	for _, snap := range series {
		for _, key := range snap.Unpriced {
			seen[key] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// SaveManual stores a user-entered snapshot. Total assets default to
// cash + market value; daily and cumulative figures are derived from the
// previous stored snapshot and the initial capital.
func (s *Service) SaveManual(snap domain.AccountSnapshot) (*domain.AccountSnapshot, error) {
	if _, err := domain.ParseDate(snap.Date); err != nil {
		return nil, domain.NewValidationError("date", fmt.Sprintf("must be YYYY-MM-DD (got %q)", snap.Date))
	}
	if snap.TotalAssets == 0 {
		snap.TotalAssets = snap.Cash + snap.MarketValue
	}
	snap.Source = domain.SnapshotManual

	prev, err := s.repo.LatestBefore(snap.Date)
	if err != nil {
		return nil, err
	}
	capital, err := s.capital.InitialCapital()
	if err != nil {
		return nil, fmt.Errorf("failed to get initial capital: %w", err)
	}

	prevTotal := capital
	if prev != nil {
		prevTotal = prev.TotalAssets
	}
	snap.DailyPnL = snap.TotalAssets - prevTotal
	snap.DailyReturn = 0
	if prevTotal != 0 {
		snap.DailyReturn = snap.DailyPnL / prevTotal
	}
	snap.CumulativeReturn = 0
	if capital != 0 {
		snap.CumulativeReturn = (snap.TotalAssets - capital) / capital
	}

	if err := s.repo.UpsertSnapshot(snap); err != nil {
		return nil, err
	}

	s.eventMgr.EmitTyped("snapshots", &events.SnapshotSavedData{Date: snap.Date, TotalAssets: snap.TotalAssets})
	return &snap, nil
}

// List returns stored snapshots in date order
func (s *Service) List(from, to string) ([]domain.AccountSnapshot, error) {
	return s.repo.ListSnapshots(from, to)
}

// Latest returns the most recent stored snapshot or nil
func (s *Service) Latest() (*domain.AccountSnapshot, error) {
	return s.repo.Latest()
}
