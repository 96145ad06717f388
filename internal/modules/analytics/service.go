package analytics

import (
	"fmt"

	"github.com/aristath/journal/internal/domain"
	"github.com/rs/zerolog"
)

// TradeLister reads the trade journal
type TradeLister interface {
	ListTrades(filter domain.TradeFilter) ([]domain.TradeEntry, error)
}

// SnapshotLister reads the stored snapshot series
type SnapshotLister interface {
	ListSnapshots(from, to string) ([]domain.AccountSnapshot, error)
}

// CapitalProvider supplies the baseline for the realized-PnL equity curve
type CapitalProvider interface {
	InitialCapital() (float64, error)
}

// Range limits analytics to trades and snapshots between From and To inclusive
type Range struct {
	From string
	To   string
}

// Overview bundles the headline numbers of the dashboard
type Overview struct {
	Trades      TradeStats              `json:"trades"`
	Streaks     Streaks                 `json:"streaks"`
	MaxDrawdown float64                 `json:"max_drawdown"`
	Performance Performance             `json:"performance"`
	Latest      *domain.AccountSnapshot `json:"latest_snapshot,omitempty"`
}

// Service runs analytics over the stored journal
type Service struct {
	trades       TradeLister
	snapshots    SnapshotLister
	capital      CapitalProvider
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates an analytics service
func NewService(trades TradeLister, snapshots SnapshotLister, capital CapitalProvider, riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		trades:       trades,
		snapshots:    snapshots,
		capital:      capital,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "analytics").Logger(),
	}
}

func (s *Service) realized(r Range) ([]domain.TradeEntry, error) {
	trades, err := s.trades.ListTrades(domain.TradeFilter{Realized: true, From: r.From, To: r.To})
	if err != nil {
		return nil, fmt.Errorf("failed to load realized trades: %w", err)
	}
	return trades, nil
}

func (s *Service) series(r Range) ([]domain.AccountSnapshot, error) {
	snaps, err := s.snapshots.ListSnapshots(r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	return snaps, nil
}

// Overview returns trade statistics, streaks, drawdown and performance
func (s *Service) Overview(r Range) (*Overview, error) {
	trades, err := s.realized(r)
	if err != nil {
		return nil, err
	}
	snaps, err := s.series(r)
	if err != nil {
		return nil, err
	}
	drawdown, err := s.drawdown(trades, snaps)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		Trades:      ComputeTradeStats(trades),
		Streaks:     ComputeStreaks(trades),
		MaxDrawdown: drawdown.MaxDrawdown,
		Performance: ComputePerformance(snaps, s.riskFreeRate),
	}
	if len(snaps) > 0 {
		latest := snaps[len(snaps)-1]
		overview.Latest = &latest
	}

	s.log.Debug().
		Int("trades", overview.Trades.TotalTrades).
		Int("snapshots", len(snaps)).
		Msg("Overview computed")
	return overview, nil
}

// Stats returns trade statistics only
func (s *Service) Stats(r Range) (*TradeStats, error) {
	trades, err := s.realized(r)
	if err != nil {
		return nil, err
	}
	stats := ComputeTradeStats(trades)
	return &stats, nil
}

// Streaks returns win and loss runs
func (s *Service) Streaks(r Range) (*Streaks, error) {
	trades, err := s.realized(r)
	if err != nil {
		return nil, err
	}
	streaks := ComputeStreaks(trades)
	return &streaks, nil
}

// Drawdown returns drawdown over snapshots, or over realized PnL when no snapshots are stored
func (s *Service) Drawdown(r Range) (*DrawdownReport, error) {
	trades, err := s.realized(r)
	if err != nil {
		return nil, err
	}
	snaps, err := s.series(r)
	if err != nil {
		return nil, err
	}
	return s.drawdown(trades, snaps)
}

func (s *Service) drawdown(trades []domain.TradeEntry, snaps []domain.AccountSnapshot) (*DrawdownReport, error) {
	capital := 0.0
	if len(snaps) == 0 {
		var err error
		capital, err = s.capital.InitialCapital()
		if err != nil {
			return nil, fmt.Errorf("failed to get initial capital: %w", err)
		}
	}
	curve, source := EquityCurve(snaps, trades, capital)
	report := ComputeDrawdown(curve, source)
	return &report, nil
}

// Distribution returns histograms of realized PnL and PnL ratio
func (s *Service) Distribution(r Range) (pnl, ratio []Bucket, err error) {
	trades, err := s.realized(r)
	if err != nil {
		return nil, nil, err
	}
	return PnLDistribution(trades), ReturnDistribution(trades), nil
}

// Breakdown groups realized sales by key
func (s *Service) Breakdown(r Range, key KeyFunc) ([]BreakdownRow, error) {
	trades, err := s.realized(r)
	if err != nil {
		return nil, err
	}
	return Breakdown(trades, key), nil
}

// AssetCurve returns the snapshot series with an SMA overlay and its performance summary
func (s *Service) AssetCurve(r Range, smaPeriod int) ([]AssetCurvePoint, Performance, error) {
	snaps, err := s.series(r)
	if err != nil {
		return nil, Performance{}, err
	}
	return AssetCurve(snaps, smaPeriod), ComputePerformance(snaps, s.riskFreeRate), nil
}
