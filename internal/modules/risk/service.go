package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/currency"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentQuotes bounds parallel quote requests
const maxConcurrentQuotes = 4

// PositionLister returns the current holdings
type PositionLister interface {
	ListPositions(openOnly bool) ([]domain.Position, error)
}

// RateSource returns the best available FX rate set; it never fails
type RateSource interface {
	Rates(ctx context.Context) currency.Rates
}

// SnapshotReader returns the most recent account snapshot
type SnapshotReader interface {
	Latest() (*domain.AccountSnapshot, error)
}

// CapitalProvider returns the configured starting capital
type CapitalProvider interface {
	InitialCapital() (float64, error)
}

// Cash sources reported in Report.CashSource
const (
	CashFromSnapshot       = "snapshot"
	CashFromInitialCapital = "initial_capital"
)

// Report is an Assessment together with the inputs it was computed from
type Report struct {
	*Assessment
	CashSource   string `json:"cash_source"`
	SnapshotDate string `json:"snapshot_date,omitempty"`
	FxSource     string `json:"fx_source"`
}

// Service gathers positions, quotes, FX rates and cash and assesses them
type Service struct {
	positions PositionLister
	quotes    domain.QuoteProvider
	rates     RateSource
	snapshots SnapshotReader
	capital   CapitalProvider
	reporting func() domain.Currency
	account   func() domain.Currency
	policy    Policy
	log       zerolog.Logger
}

// NewService creates a risk service. reporting and account are called on
// every assessment so settings changes apply without a restart; account
// names the currency the cash balance is held in.
func NewService(
	positions PositionLister,
	quotes domain.QuoteProvider,
	rates RateSource,
	snapshots SnapshotReader,
	capital CapitalProvider,
	reporting func() domain.Currency,
	account func() domain.Currency,
	policy Policy,
	log zerolog.Logger,
) *Service {
	return &Service{
		positions: positions,
		quotes:    quotes,
		rates:     rates,
		snapshots: snapshots,
		capital:   capital,
		reporting: reporting,
		account:   account,
		policy:    policy,
		log:       log.With().Str("service", "risk").Logger(),
	}
}

// Policy returns the active rule ladder
func (s *Service) Policy() Policy {
	return s.policy
}

// Assess builds a risk report for all open positions
func (s *Service) Assess(ctx context.Context) (*Report, error) {
	positions, err := s.positions.ListPositions(true)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	report := &Report{}

	cash, err := s.cash(report)
	if err != nil {
		return nil, err
	}

	quotes := s.fetchQuotes(ctx, positions)
	rates := s.rates.Rates(ctx)
	report.FxSource = rates.Source

	reporting := currencyOrCNY(s.reporting)
	balance := Cash{Amount: cash, Currency: currencyOrCNY(s.account)}

	assessment, err := Assess(positions, quotes, rates.FxRateSet, balance, reporting, s.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to assess risk: %w", err)
	}
	report.Assessment = assessment

	s.log.Debug().
		Int("positions", assessment.PositionCount).
		Float64("exposure", assessment.TotalExposure).
		Str("level", string(assessment.Level)).
		Bool("price_stale", assessment.PriceStale).
		Bool("fx_stale", assessment.FxStale).
		Msg("Risk assessed")

	return report, nil
}

func currencyOrCNY(get func() domain.Currency) domain.Currency {
	if get != nil {
		if c := get(); c != "" {
			return c
		}
	}
	return domain.CurrencyCNY
}

// cash uses the latest snapshot's cash balance, or the initial capital when
// no snapshot exists yet
func (s *Service) cash(report *Report) (float64, error) {
	if s.snapshots != nil {
		latest, err := s.snapshots.Latest()
		if err != nil {
			return 0, fmt.Errorf("failed to get latest snapshot: %w", err)
		}
		if latest != nil {
			report.CashSource = CashFromSnapshot
			report.SnapshotDate = latest.Date
			return latest.Cash, nil
		}
	}

	report.CashSource = CashFromInitialCapital
	if s.capital == nil {
		return 0, nil
	}
	capital, err := s.capital.InitialCapital()
	if err != nil {
		return 0, fmt.Errorf("failed to get initial capital: %w", err)
	}
	return capital, nil
}

// fetchQuotes asks the provider for every open position's current price.
// Failures never abort the assessment: a stale cached price is kept and
// flagged, anything else leaves the position to the average-cost fallback.
func (s *Service) fetchQuotes(ctx context.Context, positions []domain.Position) map[string]Quote {
	quotes := make(map[string]Quote, len(positions))
	if s.quotes == nil {
		return quotes
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuotes)

	for _, p := range positions {
		p := p
		if !p.IsOpen() {
			continue
		}
		g.Go(func() error {
			price, err := s.quotes.GetCurrentPrice(gctx, p.Symbol, p.Market)
			key := QuoteKey(p.Symbol, p.Market)

			switch {
			case err == nil && price > 0:
				mu.Lock()
				quotes[key] = Quote{Price: price}
				mu.Unlock()
			case errors.Is(err, domain.ErrStaleQuote) && price > 0:
				s.log.Warn().Err(err).Str("symbol", key).Msg("Using stale quote")
				mu.Lock()
				quotes[key] = Quote{Price: price, Stale: true}
				mu.Unlock()
			default:
				s.log.Warn().Err(err).Str("symbol", key).Msg("Quote unavailable, valuing at average cost")
			}
			return nil
		})
	}
	_ = g.Wait()

	return quotes
}
