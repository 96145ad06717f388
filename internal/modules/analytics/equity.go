package analytics

import (
	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/pkg/formulas"
)

// periodsPerYear annualizes the calendar-day snapshot series
const periodsPerYear = 365

// EquitySource tells where an equity curve came from
type EquitySource string

const (
	EquityFromSnapshots EquitySource = "snapshots"
	EquityFromRealized  EquitySource = "realized_pnl"
)

// EquityPoint is one value of the equity curve
type EquityPoint struct {
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	Drawdown float64 `json:"drawdown"`
}

// DrawdownReport describes drawdown over the equity curve
type DrawdownReport struct {
	formulas.DrawdownMetrics
	Source     EquitySource  `json:"source"`
	PeakDate   string        `json:"peak_date,omitempty"`
	TroughDate string        `json:"trough_date,omitempty"`
	Curve      []EquityPoint `json:"curve"`
}

// EquityCurve uses snapshot total assets when any snapshot exists and
// otherwise initial capital plus cumulative realized PnL after each sale.
func EquityCurve(snapshots []domain.AccountSnapshot, trades []domain.TradeEntry, initialCapital float64) ([]EquityPoint, EquitySource) {
	if len(snapshots) > 0 {
		curve := make([]EquityPoint, len(snapshots))
		for i, s := range snapshots {
			curve[i] = EquityPoint{Date: s.Date, Value: s.TotalAssets}
		}
		return curve, EquityFromSnapshots
	}

	realized := chronological(Realized(trades))
	curve := make([]EquityPoint, 0, len(realized)+1)
	equity := initialCapital
	if len(realized) > 0 {
		curve = append(curve, EquityPoint{Value: equity})
	}
	for _, t := range realized {
		equity += *t.RealizedPnL
		curve = append(curve, EquityPoint{Date: t.TradeDate, Value: equity})
	}
	return curve, EquityFromRealized
}

// ComputeDrawdown fills the per-point drawdown and the summary metrics
func ComputeDrawdown(curve []EquityPoint, source EquitySource) DrawdownReport {
	values := make([]float64, len(curve))
	for i, p := range curve {
		values[i] = p.Value
	}

	report := DrawdownReport{
		DrawdownMetrics: formulas.CalculateDrawdownMetrics(values),
		Source:          source,
		Curve:           curve,
	}

	series := formulas.DrawdownSeries(values)
	var (
		peakDate  string
		peakValue float64
		deepest   float64
	)
	for i := range curve {
		curve[i].Drawdown = series[i]
		if i == 0 || curve[i].Value > peakValue {
			peakValue = curve[i].Value
			peakDate = curve[i].Date
		}
		if series[i] > deepest {
			deepest = series[i]
			report.PeakDate = peakDate
			report.TroughDate = curve[i].Date
		}
	}
	return report
}

// AssetCurvePoint is one day of the snapshot series with its moving average
type AssetCurvePoint struct {
	Date             string   `json:"date"`
	TotalAssets      float64  `json:"total_assets"`
	Cash             float64  `json:"cash"`
	MarketValue      float64  `json:"market_value"`
	DailyReturn      float64  `json:"daily_return"`
	CumulativeReturn float64  `json:"cumulative_return"`
	SMA              *float64 `json:"sma,omitempty"`
}

// Performance summarizes the return profile of the snapshot series
type Performance struct {
	Days                 int     `json:"days"`
	StartValue           float64 `json:"start_value"`
	EndValue             float64 `json:"end_value"`
	TotalReturn          float64 `json:"total_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	BestDay              float64 `json:"best_day"`
	WorstDay             float64 `json:"worst_day"`
}

// AssetCurve attaches an SMA of total assets to every snapshot.
// A period below 2 disables the overlay.
func AssetCurve(snapshots []domain.AccountSnapshot, smaPeriod int) []AssetCurvePoint {
	values := make([]float64, len(snapshots))
	for i, s := range snapshots {
		values[i] = s.TotalAssets
	}

	var sma []*float64
	if smaPeriod >= 2 {
		sma = formulas.SMASeries(values, smaPeriod)
	}

	points := make([]AssetCurvePoint, len(snapshots))
	for i, s := range snapshots {
		points[i] = AssetCurvePoint{
			Date:             s.Date,
			TotalAssets:      s.TotalAssets,
			Cash:             s.Cash,
			MarketValue:      s.MarketValue,
			DailyReturn:      s.DailyReturn,
			CumulativeReturn: s.CumulativeReturn,
		}
		if sma != nil {
			points[i].SMA = sma[i]
		}
	}
	return points
}

// ComputePerformance derives volatility and Sharpe from day-over-day returns
func ComputePerformance(snapshots []domain.AccountSnapshot, riskFreeRate float64) Performance {
	perf := Performance{Days: len(snapshots)}
	if len(snapshots) == 0 {
		return perf
	}

	values := make([]float64, len(snapshots))
	for i, s := range snapshots {
		values[i] = s.TotalAssets
	}
	returns := formulas.CalculateReturns(values)

	perf.StartValue = values[0]
	perf.EndValue = values[len(values)-1]
	perf.TotalReturn = formulas.SafeDiv(perf.EndValue-perf.StartValue, perf.StartValue)
	perf.AnnualizedVolatility = formulas.AnnualizedVolatility(returns, periodsPerYear)
	perf.SharpeRatio = formulas.SharpeRatio(returns, riskFreeRate, periodsPerYear)
	for i, r := range returns {
		if i == 0 || r > perf.BestDay {
			perf.BestDay = r
		}
		if i == 0 || r < perf.WorstDay {
			perf.WorstDay = r
		}
	}
	return perf
}
