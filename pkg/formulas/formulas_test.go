package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty curve", nil, 0},
		{"single point", []float64{100000}, 0},
		{"monotonic increase", []float64{100, 110, 120, 130}, 0},
		{"flat curve", []float64{100, 100, 100}, 0},
		{"peak then trough", []float64{100000, 120000, 90000, 110000}, 0.25},
		{"second deeper trough", []float64{100, 90, 150, 75}, 0.5},
		{"non-positive peak ignored", []float64{0, -10, -5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.values)
			assert.InDelta(t, tt.expected, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestDrawdownSeries(t *testing.T) {
	series := DrawdownSeries([]float64{100, 120, 90, 130})
	require.Len(t, series, 4)
	assert.Equal(t, 0.0, series[0])
	assert.Equal(t, 0.0, series[1])
	assert.InDelta(t, 0.25, series[2], 1e-12)
	assert.Equal(t, 0.0, series[3])
}

func TestCalculateDrawdownMetrics(t *testing.T) {
	m := CalculateDrawdownMetrics([]float64{100, 120, 90, 110})
	assert.InDelta(t, 0.25, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, (120.0-110.0)/120.0, m.CurrentDrawdown, 1e-12)
	assert.Equal(t, 2, m.PeriodsInDrawdown)
	assert.Equal(t, 120.0, m.PeakValue)
	assert.Equal(t, 110.0, m.CurrentValue)

	assert.Equal(t, DrawdownMetrics{}, CalculateDrawdownMetrics(nil))
}

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 0.0, SafeDiv(1, 0))
	assert.Equal(t, 0.0, SafeDiv(0, 0))
	assert.Equal(t, 0.5, SafeDiv(1, 2))
	assert.Equal(t, 0.0, SafeDiv(math.Inf(1), 1))
}

func TestCalculateReturns(t *testing.T) {
	assert.Empty(t, CalculateReturns([]float64{100}))
	returns := CalculateReturns([]float64{100, 110, 0, 50})
	require.Len(t, returns, 3)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, -1.0, returns[1], 1e-12)
	assert.Equal(t, 0.0, returns[2])
}

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-12)
	assert.Equal(t, 6.0, Sum([]float64{1, 2, 3}))
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}, 0, 252))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 252), "no variance")

	returns := []float64{0.01, -0.005, 0.02, -0.01, 0.015}
	expected := Mean(returns) / StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, SharpeRatio(returns, 0, 252), 1e-12)
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil, 365))
	returns := []float64{0.01, -0.01, 0.02}
	assert.InDelta(t, StdDev(returns)*math.Sqrt(365), AnnualizedVolatility(returns, 365), 1e-12)
}

func TestSMASeries(t *testing.T) {
	series := SMASeries([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, series, 5)
	assert.Nil(t, series[0])
	assert.Nil(t, series[1])
	require.NotNil(t, series[2])
	assert.InDelta(t, 2.0, *series[2], 1e-12)
	assert.InDelta(t, 4.0, *series[4], 1e-12)

	short := SMASeries([]float64{1, 2}, 3)
	assert.Len(t, short, 2)
	assert.Nil(t, short[1])
}
