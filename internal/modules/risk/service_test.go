package risk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/currency"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePositions struct {
	positions []domain.Position
	err       error
}

func (f *fakePositions) ListPositions(openOnly bool) ([]domain.Position, error) {
	return f.positions, f.err
}

type fakeQuotes struct {
	prices map[string]float64
	stale  map[string]float64
}

func (f *fakeQuotes) GetCurrentPrice(ctx context.Context, symbol string, market domain.Market) (float64, error) {
	key := QuoteKey(symbol, market)
	if p, ok := f.prices[key]; ok {
		return p, nil
	}
	if p, ok := f.stale[key]; ok {
		return p, fmt.Errorf("provider down: %w", domain.ErrStaleQuote)
	}
	return 0, domain.ErrQuoteUnavailable
}

func (f *fakeQuotes) GetHistoricalCloses(ctx context.Context, symbol string, market domain.Market, from, to string) ([]domain.PricePoint, error) {
	return nil, nil
}

type fakeRates struct{ rates currency.Rates }

func (f fakeRates) Rates(ctx context.Context) currency.Rates { return f.rates }

type fakeSnapshots struct{ latest *domain.AccountSnapshot }

func (f fakeSnapshots) Latest() (*domain.AccountSnapshot, error) { return f.latest, nil }

type fakeCapital float64

func (f fakeCapital) InitialCapital() (float64, error) { return float64(f), nil }

func providerRates() currency.Rates {
	return currency.Rates{FxRateSet: usdRates(), Source: currency.SourceProvider}
}

func TestService_Assess(t *testing.T) {
	positions := &fakePositions{positions: []domain.Position{
		pos("AAPL", domain.MarketUS, 10, 100),
		pos("MSFT", domain.MarketUS, 5, 300),
		pos("0700", domain.MarketHK, 100, 300),
	}}
	quotes := &fakeQuotes{
		prices: map[string]float64{"US:AAPL": 150},
		stale:  map[string]float64{"US:MSFT": 320},
	}
	snaps := fakeSnapshots{latest: &domain.AccountSnapshot{Date: "2024-05-01", Cash: 50000}}

	svc := NewService(positions, quotes, fakeRates{providerRates()}, snaps, fakeCapital(100000),
		func() domain.Currency { return domain.CurrencyUSD }, func() domain.Currency { return domain.CurrencyUSD }, DefaultPolicy(), zerolog.Nop())

	report, err := svc.Assess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CashFromSnapshot, report.CashSource)
	assert.Equal(t, "2024-05-01", report.SnapshotDate)
	assert.Equal(t, currency.SourceProvider, report.FxSource)
	assert.Equal(t, domain.CurrencyUSD, report.Currency)
	assert.Equal(t, 50000.0, report.Cash)

	// AAPL 1500 live, MSFT 1600 stale, 0700 30000 HKD at cost = 3750 USD
	assert.InDelta(t, 6850, report.TotalExposure, 1e-9)
	assert.True(t, report.PriceStale)
	assert.ElementsMatch(t, []string{"US:MSFT", "HK:0700"}, report.StaleSymbols)
}

func TestService_Assess_NoSnapshotUsesInitialCapital(t *testing.T) {
	svc := NewService(&fakePositions{}, nil, fakeRates{providerRates()}, fakeSnapshots{}, fakeCapital(80000),
		nil, nil, DefaultPolicy(), zerolog.Nop())

	report, err := svc.Assess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CashFromInitialCapital, report.CashSource)
	assert.Equal(t, 80000.0, report.Cash)
	assert.Equal(t, domain.CurrencyCNY, report.Currency, "defaults to CNY")
	assert.Equal(t, LevelLow, report.Level)
}

func TestService_Assess_PositionError(t *testing.T) {
	svc := NewService(&fakePositions{err: errors.New("db closed")}, nil, fakeRates{providerRates()}, nil, nil,
		nil, nil, DefaultPolicy(), zerolog.Nop())

	_, err := svc.Assess(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list positions")
}

func TestService_Assess_FallbackRatesAreStale(t *testing.T) {
	rates := currency.Rates{FxRateSet: currency.FallbackRates, Source: currency.SourceBuiltIn}
	svc := NewService(&fakePositions{positions: []domain.Position{pos("AAPL", domain.MarketUS, 1, 100)}},
		&fakeQuotes{prices: map[string]float64{"US:AAPL": 100}}, fakeRates{rates}, nil, fakeCapital(0),
		func() domain.Currency { return domain.CurrencyCNY }, nil, DefaultPolicy(), zerolog.Nop())

	report, err := svc.Assess(context.Background())
	require.NoError(t, err)
	assert.True(t, report.FxStale)
	assert.Equal(t, currency.SourceBuiltIn, report.FxSource)
	assert.InDelta(t, 720, report.TotalExposure, 1e-9)
}

func TestService_Assess_ExposureRatioIndependentOfReportingCurrency(t *testing.T) {
	p := pos("600519", domain.MarketCN, 1000, 100)
	p.StopLoss = f(90)
	positions := &fakePositions{positions: []domain.Position{p}}
	quotes := &fakeQuotes{prices: map[string]float64{"CN:600519": 100}}
	account := func() domain.Currency { return domain.CurrencyCNY }

	assess := func(reporting domain.Currency) *Report {
		svc := NewService(positions, quotes, fakeRates{providerRates()}, fakeSnapshots{}, fakeCapital(100000),
			func() domain.Currency { return reporting }, account, DefaultPolicy(), zerolog.Nop())
		report, err := svc.Assess(context.Background())
		require.NoError(t, err)
		return report
	}

	cny := assess(domain.CurrencyCNY)
	usd := assess(domain.CurrencyUSD)

	assert.InDelta(t, 0.5, cny.ExposureRatio, 1e-12)
	assert.InDelta(t, cny.ExposureRatio, usd.ExposureRatio, 1e-12)
	assert.Equal(t, cny.Coverable, usd.Coverable)
	assert.Equal(t, cny.Level, usd.Level)

	assert.InDelta(t, 100000.0/7, usd.Cash, 1e-6)
	assert.Equal(t, 100000.0, usd.NativeCash)
	assert.Equal(t, domain.CurrencyCNY, usd.CashCurrency)
	assert.False(t, usd.FxStale)
}

func TestService_Assess_CashWithoutRateUsesBuiltInAndFlags(t *testing.T) {
	rates := currency.Rates{
		FxRateSet: domain.FxRateSet{Base: domain.CurrencyUSD, Rates: map[domain.Currency]float64{domain.CurrencyCNY: 7}},
		Source:    currency.SourceProvider,
	}
	svc := NewService(&fakePositions{}, nil, fakeRates{rates}, fakeSnapshots{}, fakeCapital(78000),
		func() domain.Currency { return domain.CurrencyUSD },
		func() domain.Currency { return domain.CurrencyHKD },
		DefaultPolicy(), zerolog.Nop())

	report, err := svc.Assess(context.Background())
	require.NoError(t, err)
	assert.True(t, report.FxStale)
	assert.InDelta(t, 10000, report.Cash, 1e-6)
}

func TestLoadPolicy(t *testing.T) {
	policy, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)

	dir := t.TempDir()
	path := filepath.Join(dir, "risk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exposure:\n  medium: 0.6\n  high: 0.9\ntop_n: 5\n"), 0644))

	policy, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 0.6, policy.Exposure.Medium)
	assert.Equal(t, 0.9, policy.Exposure.High)
	assert.Equal(t, 5, policy.TopN)
	assert.Equal(t, 0.4, policy.LargestPosition.High, "unset fields keep defaults")
	assert.Equal(t, LevelHigh, policy.Uncoverable)
}

func TestLoadPolicy_Invalid(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name    string
		content string
	}{
		{"inverted ladder", "largest_position:\n  medium: 0.5\n  high: 0.3\n"},
		{"negative", "exposure:\n  medium: -1\n  high: 0.9\n"},
		{"unknown level", "uncoverable: extreme\n"},
		{"above one", "exposure:\n  medium: 0.8\n  high: 1.5\n"},
		{"not yaml", "exposure: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))
			_, err := LoadPolicy(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadPolicy(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
