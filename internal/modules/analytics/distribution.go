package analytics

import (
	"math"

	"github.com/aristath/journal/internal/domain"
)

const (
	minBuckets = 5
	maxBuckets = 20
)

// Bucket is one histogram bin. Lower is inclusive; Upper is exclusive
// except on the last bucket.
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram bins values into clamp(ceil(sqrt(n)), 5, 20) equal-width buckets.
// Every value lands in exactly one bucket. Equal values use a width of 1.
func Histogram(values []float64) []Bucket {
	if len(values) == 0 {
		return []Bucket{}
	}

	count := int(math.Ceil(math.Sqrt(float64(len(values)))))
	if count < minBuckets {
		count = minBuckets
	}
	if count > maxBuckets {
		count = maxBuckets
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / float64(count)
	if width == 0 {
		width = 1
	}

	buckets := make([]Bucket, count)
	for i := range buckets {
		buckets[i].Lower = lo + float64(i)*width
		buckets[i].Upper = lo + float64(i+1)*width
	}
	if hi > lo {
		buckets[count-1].Upper = hi
	}

	for _, v := range values {
		idx := int(math.Floor((v - lo) / width))
		if idx >= count {
			idx = count - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}

// PnLDistribution histograms realized PnL of sales
func PnLDistribution(trades []domain.TradeEntry) []Bucket {
	realized := Realized(trades)
	values := make([]float64, len(realized))
	for i, t := range realized {
		values[i] = *t.RealizedPnL
	}
	return Histogram(values)
}

// ReturnDistribution histograms PnL ratios of sales
func ReturnDistribution(trades []domain.TradeEntry) []Bucket {
	var values []float64
	for _, t := range Realized(trades) {
		if t.PnLRatio != nil {
			values = append(values, *t.PnLRatio)
		}
	}
	return Histogram(values)
}
