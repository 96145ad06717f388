package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	set *domain.FxRateSet
	err error
}

func (f *fakeProvider) GetFxRates(ctx context.Context) (*domain.FxRateSet, error) {
	return f.set, f.err
}

func usdRates() *domain.FxRateSet {
	return &domain.FxRateSet{
		Base:      domain.CurrencyUSD,
		Rates:     map[domain.Currency]float64{domain.CurrencyCNY: 7, domain.CurrencyHKD: 7.75},
		FetchedAt: time.Now(),
	}
}

func TestRates_TieredFallback(t *testing.T) {
	provider := &fakeProvider{set: usdRates()}
	svc := NewService(provider, zerolog.Nop())

	rates := svc.Rates(context.Background())
	assert.Equal(t, SourceProvider, rates.Source)
	assert.False(t, rates.Stale)

	provider.set, provider.err = nil, errors.New("down")
	rates = svc.Rates(context.Background())
	assert.Equal(t, SourceMemory, rates.Source)
	assert.True(t, rates.Stale)
	assert.Equal(t, 7.0, rates.Rates[domain.CurrencyCNY])

	fresh := NewService(provider, zerolog.Nop())
	rates = fresh.Rates(context.Background())
	assert.Equal(t, SourceBuiltIn, rates.Source)
	assert.True(t, rates.Stale)
}

func TestRates_NilProvider(t *testing.T) {
	svc := NewService(nil, zerolog.Nop())
	set, err := svc.GetFxRates(context.Background())
	require.NoError(t, err)
	assert.True(t, set.Stale)
	assert.Equal(t, domain.CurrencyUSD, set.Base)
}

func TestConvert(t *testing.T) {
	svc := NewService(&fakeProvider{set: usdRates()}, zerolog.Nop())

	testCases := []struct {
		name     string
		amount   float64
		from, to domain.Currency
		expected float64
	}{
		{"same currency", 100, domain.CurrencyCNY, domain.CurrencyCNY, 100},
		{"base to quote", 10, domain.CurrencyUSD, domain.CurrencyCNY, 70},
		{"quote to base", 70, domain.CurrencyCNY, domain.CurrencyUSD, 10},
		{"cross", 775, domain.CurrencyHKD, domain.CurrencyCNY, 700},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conv, err := svc.Convert(context.Background(), tc.amount, tc.from, tc.to)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, conv.Result, 1e-9)
			assert.False(t, conv.Stale)
		})
	}
}

func TestConvert_MissingCurrencyUsesBuiltIn(t *testing.T) {
	set := usdRates()
	delete(set.Rates, domain.CurrencyHKD)
	svc := NewService(&fakeProvider{set: set}, zerolog.Nop())

	conv, err := svc.Convert(context.Background(), 78, domain.CurrencyHKD, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.InDelta(t, 10, conv.Result, 1e-9)
	assert.True(t, conv.Stale)
	assert.Equal(t, SourceBuiltIn, conv.Source)
}

func TestConvert_UnknownCurrency(t *testing.T) {
	svc := NewService(nil, zerolog.Nop())
	_, err := svc.Convert(context.Background(), 1, "EUR", domain.CurrencyUSD)
	assert.ErrorIs(t, err, domain.ErrNoRate)
}
