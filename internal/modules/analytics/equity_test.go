package analytics

import (
	"testing"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func series(values ...float64) []domain.AccountSnapshot {
	out := make([]domain.AccountSnapshot, len(values))
	start, _ := domain.ParseDate("2024-01-01")
	for i, v := range values {
		out[i] = domain.AccountSnapshot{Date: domain.FormatDate(start.AddDate(0, 0, i)), TotalAssets: v}
	}
	return out
}

func TestDrawdown_FromSnapshots(t *testing.T) {
	curve, source := EquityCurve(series(100000, 120000, 90000, 110000), nil, 0)
	report := ComputeDrawdown(curve, source)

	assert.Equal(t, EquityFromSnapshots, source)
	assert.InDelta(t, 0.25, report.MaxDrawdown, 1e-12)
	assert.Equal(t, "2024-01-02", report.PeakDate)
	assert.Equal(t, "2024-01-03", report.TroughDate)
	assert.InDelta(t, 10000.0/120000.0, report.CurrentDrawdown, 1e-12)
	assert.InDelta(t, 0.25, report.Curve[2].Drawdown, 1e-12)
}

func TestDrawdown_MonotonicCurveIsZero(t *testing.T) {
	curve, source := EquityCurve(series(100, 100, 101, 150), nil, 0)
	report := ComputeDrawdown(curve, source)
	assert.Equal(t, 0.0, report.MaxDrawdown)
	assert.Empty(t, report.TroughDate)
}

func TestDrawdown_FromRealizedPnL(t *testing.T) {
	trades := []domain.TradeEntry{
		sale("2024-01-03", -30000),
		sale("2024-01-02", 20000),
		sale("2024-01-04", 20000),
	}
	curve, source := EquityCurve(nil, trades, 100000)
	require.Len(t, curve, 4)
	assert.Equal(t, EquityFromRealized, source)
	assert.Equal(t, []float64{100000, 120000, 90000, 110000},
		[]float64{curve[0].Value, curve[1].Value, curve[2].Value, curve[3].Value})

	report := ComputeDrawdown(curve, source)
	assert.InDelta(t, 0.25, report.MaxDrawdown, 1e-12)
}

func TestDrawdown_NoData(t *testing.T) {
	curve, source := EquityCurve(nil, nil, 100000)
	report := ComputeDrawdown(curve, source)
	assert.Empty(t, report.Curve)
	assert.Equal(t, 0.0, report.MaxDrawdown)
}

func TestAssetCurve_SMAOverlay(t *testing.T) {
	points := AssetCurve(series(10, 20, 30, 40), 2)
	require.Len(t, points, 4)
	assert.Nil(t, points[0].SMA)
	require.NotNil(t, points[1].SMA)
	assert.InDelta(t, 15, *points[1].SMA, 1e-9)
	assert.InDelta(t, 35, *points[3].SMA, 1e-9)

	plain := AssetCurve(series(10, 20), 0)
	assert.Nil(t, plain[1].SMA)
}

func TestComputePerformance(t *testing.T) {
	perf := ComputePerformance(series(100, 110, 99, 108.9), 0)
	assert.Equal(t, 4, perf.Days)
	assert.InDelta(t, 0.089, perf.TotalReturn, 1e-9)
	assert.InDelta(t, 0.1, perf.BestDay, 1e-9)
	assert.InDelta(t, -0.1, perf.WorstDay, 1e-9)
	assert.Greater(t, perf.AnnualizedVolatility, 0.0)

	flat := ComputePerformance(series(100, 100, 100), 0.02)
	assert.Equal(t, 0.0, flat.SharpeRatio)
	assert.Equal(t, 0.0, flat.AnnualizedVolatility)

	assert.Equal(t, Performance{}, ComputePerformance(nil, 0))
}
