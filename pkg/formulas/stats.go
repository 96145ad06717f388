// Package formulas holds the numeric building blocks used by the analytics engine.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Sum adds up a slice of float64 values
func Sum(data []float64) float64 {
	total := 0.0
	for _, v := range data {
		total += v
	}
	return total
}

// SafeDiv returns a/b, or 0 when the result would be NaN or infinite
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// CalculateReturns converts a value series to simple periodic returns.
// Returns[i] = (v[i+1] - v[i]) / v[i]; a zero base yields a zero return.
func CalculateReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1] = SafeDiv(values[i]-values[i-1], values[i-1])
	}
	return returns
}

// AnnualizedVolatility scales the standard deviation of periodic returns
// by sqrt(periodsPerYear).
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(float64(periodsPerYear))
}

// SharpeRatio calculates the annualized Sharpe ratio of periodic returns.
//
//	Sharpe = (mean(r) - rf/periods) / stddev(r) * sqrt(periods)
//
// Returns 0 when there is not enough data or the series has no variance.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return 0
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	return (Mean(returns) - periodicRiskFree) / stdDev * math.Sqrt(float64(periodsPerYear))
}
