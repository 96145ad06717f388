package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMASeries calculates a simple moving average aligned with values.
// Entries before the first full window are nil.
func SMASeries(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sma := talib.Sma(values, period)
	for i := period - 1; i < len(values) && i < len(sma); i++ {
		v := sma[i]
		out[i] = &v
	}
	return out
}
