package ledger

import (
	"database/sql"
	"fmt"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/modules/trading"
	"github.com/rs/zerolog"
)

// Service records trades and answers position queries
type Service struct {
	db       *sql.DB
	repo     *trading.TradeRepository
	eventMgr *events.Manager
	log      zerolog.Logger
}

// NewService creates a ledger service. eventMgr may be nil.
func NewService(db *sql.DB, repo *trading.TradeRepository, eventMgr *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		eventMgr: eventMgr,
		log:      log.With().Str("service", "ledger").Logger(),
	}
}

// RecordTrade validates entry, derives its accounting fields from the
// instrument's history and inserts it. The history read and the insert
// share one transaction so concurrent sales see a consistent basis.
func (s *Service) RecordTrade(entry domain.TradeEntry) (*domain.TradeEntry, error) {
	entry.Normalize()
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		history, err := repo.ListInstrumentHistory(entry.Symbol, entry.Market)
		if err != nil {
			return fmt.Errorf("failed to load history for %s: %w", entry.Symbol, err)
		}

		Derive(&entry, history)
		return repo.InsertTrade(&entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record trade: %w", err)
	}

	logEvent := s.log.Info().
		Str("id", entry.ID).
		Str("symbol", entry.Symbol).
		Str("side", string(entry.Side)).
		Float64("quantity", entry.Quantity).
		Float64("position_after", entry.PositionAfter)
	if entry.RealizedPnL != nil {
		logEvent = logEvent.Float64("realized_pnl", *entry.RealizedPnL)
	}
	logEvent.Msg("Trade recorded")

	if entry.Side == domain.SideSell && entry.RealizedPnL == nil {
		s.log.Warn().
			Str("symbol", entry.Symbol).
			Msg("Sale recorded without buy history, realized PnL left unset")
	}
	if entry.PositionAfter < 0 {
		s.log.Warn().
			Str("symbol", entry.Symbol).
			Float64("position_after", entry.PositionAfter).
			Msg("Sale exceeds recorded holdings")
	}

	data := &events.TradeRecordedData{
		ID:          entry.ID,
		Symbol:      entry.Symbol,
		Market:      string(entry.Market),
		Side:        string(entry.Side),
		Quantity:    entry.Quantity,
		Price:       entry.Price,
		RealizedPnL: entry.RealizedPnL,
	}
	if entry.PlanExecuted != nil {
		data.PlanExecuted = string(*entry.PlanExecuted)
	}
	s.eventMgr.EmitTyped("ledger", data)

	return &entry, nil
}

// DeleteTrade removes a trade without touching later rows
func (s *Service) DeleteTrade(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.eventMgr.EmitTyped("ledger", &events.TradeDeletedData{ID: id})
	return nil
}

// ListPositions returns every instrument's derived position; openOnly drops closed ones
func (s *Service) ListPositions(openOnly bool) ([]domain.Position, error) {
	trades, err := s.repo.ListTrades(domain.TradeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	positions := BuildPositions(trades)
	if !openOnly {
		return positions, nil
	}

	open := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open, nil
}

// GetPosition returns the derived position of one instrument, or ErrNotFound.
// An empty market matches the first market the symbol traded on.
func (s *Service) GetPosition(symbol string, market domain.Market) (*domain.Position, error) {
	trades, err := s.repo.ListTrades(domain.TradeFilter{Symbol: symbol, Market: market})
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for %s: %w", symbol, err)
	}

	if len(trades) == 0 {
		return nil, fmt.Errorf("position %s: %w", symbol, domain.ErrNotFound)
	}

	// trades are chronological, so the first row names the earliest market
	if market == "" {
		market = trades[0].Market
	}
	for _, p := range BuildPositions(trades) {
		if p.Market == market {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("position %s: %w", symbol, domain.ErrNotFound)
}

// ListTrades returns journal rows matching filter
func (s *Service) ListTrades(filter domain.TradeFilter) ([]domain.TradeEntry, error) {
	return s.repo.ListTrades(filter)
}

// GetTrade returns one trade or ErrNotFound
func (s *Service) GetTrade(id string) (*domain.TradeEntry, error) {
	trade, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("trade %s: %w", id, domain.ErrNotFound)
	}
	return trade, nil
}

// Annotate replaces a trade's strategy, emotion and notes
func (s *Service) Annotate(id, strategy, emotion, notes string) (*domain.TradeEntry, error) {
	if err := s.repo.UpdateAnnotations(id, strategy, emotion, notes); err != nil {
		return nil, err
	}
	return s.GetTrade(id)
}

// TradeSummary aggregates journal rows
type TradeSummary struct {
	TotalTrades     int     `json:"total_trades"`
	BuyCount        int     `json:"buy_count"`
	SellCount       int     `json:"sell_count"`
	TotalBought     float64 `json:"total_bought"`
	TotalSold       float64 `json:"total_sold"`
	TotalCommission float64 `json:"total_commission"`
	TotalTax        float64 `json:"total_tax"`
	RealizedPnL     float64 `json:"realized_pnl"`
	Instruments     int     `json:"instruments"`
}

// Summary aggregates counts and amounts over trades matching filter.
// Amounts are summed in each trade's own currency.
func (s *Service) Summary(filter domain.TradeFilter) (*TradeSummary, error) {
	trades, err := s.repo.ListTrades(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	summary := &TradeSummary{TotalTrades: len(trades)}
	instruments := make(map[instrumentKey]bool)
	for _, t := range trades {
		instruments[instrumentKey{symbol: t.Symbol, market: t.Market}] = true
		summary.TotalCommission += t.Commission
		summary.TotalTax += t.Tax
		if t.Side == domain.SideBuy {
			summary.BuyCount++
			summary.TotalBought += t.Amount
			continue
		}
		summary.SellCount++
		summary.TotalSold += t.Amount
		if t.RealizedPnL != nil {
			summary.RealizedPnL += *t.RealizedPnL
		}
	}
	summary.Instruments = len(instruments)
	return summary, nil
}
