// Package currency converts amounts between the journal's settlement currencies.
package currency

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/rs/zerolog"
)

// Rate sources reported with every rate set
const (
	SourceProvider = "provider"
	SourceMemory   = "last_known"
	SourceBuiltIn  = "built_in"
)

// FallbackRates are USD-based rates used when no provider data was ever fetched
var FallbackRates = domain.FxRateSet{
	Base: domain.CurrencyUSD,
	Rates: map[domain.Currency]float64{
		domain.CurrencyUSD: 1,
		domain.CurrencyCNY: 7.2,
		domain.CurrencyHKD: 7.8,
	},
	Stale: true,
}

// Rates is a rate set together with where it came from
type Rates struct {
	domain.FxRateSet
	Source string `json:"source"`
}

// Conversion is the result of Convert
type Conversion struct {
	From   domain.Currency `json:"from"`
	To     domain.Currency `json:"to"`
	Amount float64         `json:"amount"`
	Result float64         `json:"result"`
	Rate   float64         `json:"rate"`
	Stale  bool            `json:"stale"`
	Source string          `json:"source"`
}

// Service provides FX rates with tiered fallback:
// 1. provider (which serves its own persistent cache and stale cache)
// 2. last rate set fetched by this process
// 3. built-in fallback rates
type Service struct {
	provider domain.FxProvider
	mu       sync.RWMutex
	last     *domain.FxRateSet
	log      zerolog.Logger
}

// NewService creates a currency service. provider may be nil.
func NewService(provider domain.FxProvider, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		log:      log.With().Str("service", "currency").Logger(),
	}
}

// GetFxRates implements domain.FxProvider and never fails
func (s *Service) GetFxRates(ctx context.Context) (*domain.FxRateSet, error) {
	rates := s.Rates(ctx)
	return &rates.FxRateSet, nil
}

// Rates returns the best available rate set
func (s *Service) Rates(ctx context.Context) Rates {
	if s.provider != nil {
		set, err := s.provider.GetFxRates(ctx)
		if err == nil && set != nil && len(set.Rates) > 0 {
			s.mu.Lock()
			copied := *set
			s.last = &copied
			s.mu.Unlock()
			return Rates{FxRateSet: *set, Source: SourceProvider}
		}
		s.log.Warn().Err(err).Msg("FX provider failed, trying last known rates")
	}

	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		set := *last
		set.Stale = true
		s.log.Warn().Time("fetched_at", set.FetchedAt).Str("source", SourceMemory).Msg("Using last known FX rates")
		return Rates{FxRateSet: set, Source: SourceMemory}
	}

	s.log.Warn().Str("source", SourceBuiltIn).Msg("Using built-in fallback FX rates")
	return Rates{FxRateSet: builtIn(), Source: SourceBuiltIn}
}

func builtIn() domain.FxRateSet {
	rates := make(map[domain.Currency]float64, len(FallbackRates.Rates))
	for c, r := range FallbackRates.Rates {
		rates[c] = r
	}
	return domain.FxRateSet{
		Base:      FallbackRates.Base,
		Rates:     rates,
		FetchedAt: time.Time{},
		Stale:     true,
	}
}

// Convert moves amount between currencies: amount / rate[from] * rate[to].
// A currency missing from the provider set is retried against the built-in rates.
func (s *Service) Convert(ctx context.Context, amount float64, from, to domain.Currency) (*Conversion, error) {
	rates := s.Rates(ctx)
	result, err := rates.Convert(amount, from, to)
	if err != nil && rates.Source != SourceBuiltIn {
		s.log.Warn().Err(err).Str("from", string(from)).Str("to", string(to)).Msg("Rate missing, using built-in fallback")
		rates = Rates{FxRateSet: builtIn(), Source: SourceBuiltIn}
		result, err = rates.Convert(amount, from, to)
	}
	if err != nil {
		return nil, err
	}

	rate := 1.0
	if amount != 0 {
		rate = result / amount
	} else if r, convErr := rates.Convert(1, from, to); convErr == nil {
		rate = r
	}

	return &Conversion{
		From:   from,
		To:     to,
		Amount: amount,
		Result: result,
		Rate:   rate,
		Stale:  rates.Stale,
		Source: rates.Source,
	}, nil
}
