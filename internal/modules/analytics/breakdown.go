package analytics

import (
	"sort"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/pkg/formulas"
)

// UntaggedKey groups sales without a strategy or emotion tag
const UntaggedKey = "untagged"

// BreakdownRow aggregates the realized sales that share a key
type BreakdownRow struct {
	Key      string  `json:"key"`
	Count    int     `json:"count"`
	Wins     int     `json:"wins"`
	TotalPnL float64 `json:"total_pnl"`
	WinRate  float64 `json:"win_rate"`
	AvgPnL   float64 `json:"avg_pnl"`
}

// KeyFunc maps a sale to its group
type KeyFunc func(t domain.TradeEntry) string

// ByDay groups by trade date
func ByDay(t domain.TradeEntry) string { return t.TradeDate }

// ByMonth groups by YYYY-MM
func ByMonth(t domain.TradeEntry) string {
	if len(t.TradeDate) >= 7 {
		return t.TradeDate[:7]
	}
	return t.TradeDate
}

// ByStrategy groups by strategy tag
func ByStrategy(t domain.TradeEntry) string { return tagOrUntagged(t.Strategy) }

// ByEmotion groups by emotion tag
func ByEmotion(t domain.TradeEntry) string { return tagOrUntagged(t.Emotion) }

func tagOrUntagged(tag string) string {
	if tag == "" {
		return UntaggedKey
	}
	return tag
}

// Breakdown groups realized sales by key; rows are sorted by key
func Breakdown(trades []domain.TradeEntry, key KeyFunc) []BreakdownRow {
	groups := make(map[string]*BreakdownRow)
	for _, t := range Realized(trades) {
		k := key(t)
		row, ok := groups[k]
		if !ok {
			row = &BreakdownRow{Key: k}
			groups[k] = row
		}
		pnl := *t.RealizedPnL
		row.Count++
		row.TotalPnL += pnl
		if pnl > 0 {
			row.Wins++
		}
	}

	rows := make([]BreakdownRow, 0, len(groups))
	for _, row := range groups {
		row.WinRate = formulas.SafeDiv(float64(row.Wins), float64(row.Count))
		row.AvgPnL = formulas.SafeDiv(row.TotalPnL, float64(row.Count))
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}
