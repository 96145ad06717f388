package formulas

// DrawdownMetrics represents drawdown analysis results
type DrawdownMetrics struct {
	MaxDrawdown       float64 `json:"max_drawdown"`     // Positive fraction, 0.25 = 25% below peak
	CurrentDrawdown   float64 `json:"current_drawdown"` // Current distance from the running peak
	PeriodsInDrawdown int     `json:"periods_in_drawdown"`
	PeakValue         float64 `json:"peak_value"`
	CurrentValue      float64 `json:"current_value"`
}

// MaxDrawdown returns the largest peak-to-trough decline of an equity curve.
//
//	drawdown_t = (peak_t - value_t) / peak_t
//
// The result is never negative and is 0 for empty, single-point or
// non-decreasing curves. Points where the running peak is not positive
// contribute nothing.
func MaxDrawdown(values []float64) float64 {
	maxDrawdown := 0.0
	if len(values) == 0 {
		return maxDrawdown
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}

// DrawdownSeries returns the drawdown at every point of the curve, aligned with values
func DrawdownSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 && v < peak {
			out[i] = (peak - v) / peak
		}
	}
	return out
}

// CalculateDrawdownMetrics calculates max and current drawdown along with
// the number of periods since the last peak.
func CalculateDrawdownMetrics(values []float64) DrawdownMetrics {
	if len(values) == 0 {
		return DrawdownMetrics{}
	}

	peak := values[0]
	peakIndex := 0
	for i, v := range values {
		if v > peak {
			peak = v
			peakIndex = i
		}
	}

	current := values[len(values)-1]
	metrics := DrawdownMetrics{
		MaxDrawdown:  MaxDrawdown(values),
		PeakValue:    peak,
		CurrentValue: current,
	}
	if peak > 0 && current < peak {
		metrics.CurrentDrawdown = (peak - current) / peak
		metrics.PeriodsInDrawdown = len(values) - 1 - peakIndex
	}
	return metrics
}
