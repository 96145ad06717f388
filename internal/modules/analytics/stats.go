// Package analytics computes trade statistics and equity-curve metrics
// from the journal and the snapshot series.
package analytics

import (
	"math"
	"sort"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/pkg/formulas"
)

// TradeStats summarizes realized sales. A sale wins when its PnL is
// strictly positive; zero counts as a loss.
type TradeStats struct {
	TotalTrades     int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
	ProfitLossRatio float64 `json:"profit_loss_ratio"`
	Expectancy      float64 `json:"expectancy"`
	TotalPnL        float64 `json:"total_pnl"`
	GrossProfit     float64 `json:"gross_profit"`
	GrossLoss       float64 `json:"gross_loss"`
	LargestWin      float64 `json:"largest_win"`
	LargestLoss     float64 `json:"largest_loss"`
	AvgHoldingDays  float64 `json:"avg_holding_days"`
	PlanExecuted    int     `json:"plan_executed"`
	PlanPartial     int     `json:"plan_partial"`
	PlanMissed      int     `json:"plan_missed"`
}

// Realized keeps the SELL rows that carry a realized PnL
func Realized(trades []domain.TradeEntry) []domain.TradeEntry {
	out := make([]domain.TradeEntry, 0, len(trades))
	for _, t := range trades {
		if t.Side == domain.SideSell && t.RealizedPnL != nil {
			out = append(out, t)
		}
	}
	return out
}

// ComputeTradeStats aggregates realized sales. Every ratio is 0 when its
// denominator is empty.
func ComputeTradeStats(trades []domain.TradeEntry) TradeStats {
	var (
		stats       TradeStats
		wins        []float64
		losses      []float64
		holding     []float64
		totalPnL    float64
		largestWin  float64
		largestLoss float64
	)

	for _, t := range Realized(trades) {
		pnl := *t.RealizedPnL
		totalPnL += pnl
		if pnl > 0 {
			wins = append(wins, pnl)
			largestWin = math.Max(largestWin, pnl)
		} else {
			losses = append(losses, pnl)
			largestLoss = math.Min(largestLoss, pnl)
		}
		if t.HoldingDays != nil {
			holding = append(holding, float64(*t.HoldingDays))
		}
		if t.PlanExecuted != nil {
			switch *t.PlanExecuted {
			case domain.PlanExecuted:
				stats.PlanExecuted++
			case domain.PlanPartial:
				stats.PlanPartial++
			case domain.PlanMissed:
				stats.PlanMissed++
			}
		}
	}

	stats.Wins = len(wins)
	stats.Losses = len(losses)
	stats.TotalTrades = stats.Wins + stats.Losses
	stats.TotalPnL = totalPnL
	stats.GrossProfit = formulas.Sum(wins)
	stats.GrossLoss = formulas.Sum(losses)
	stats.LargestWin = largestWin
	stats.LargestLoss = largestLoss
	stats.AvgWin = formulas.Mean(wins)
	stats.AvgLoss = formulas.Mean(losses)
	stats.AvgHoldingDays = formulas.Mean(holding)
	stats.WinRate = formulas.SafeDiv(float64(stats.Wins), float64(stats.TotalTrades))
	stats.ProfitLossRatio = formulas.SafeDiv(math.Abs(stats.AvgWin), math.Abs(stats.AvgLoss))
	if stats.TotalTrades > 0 {
		stats.Expectancy = stats.WinRate*stats.AvgWin + (1-stats.WinRate)*stats.AvgLoss
	}
	return stats
}

// StreakKind is the outcome of the current run of sales
type StreakKind string

const (
	StreakWin  StreakKind = "win"
	StreakLoss StreakKind = "loss"
	StreakNone StreakKind = "none"
)

// Streaks reports consecutive win and loss runs
type Streaks struct {
	Current       StreakKind `json:"current"`
	CurrentLength int        `json:"current_length"`
	MaxWinStreak  int        `json:"max_win_streak"`
	MaxLossStreak int        `json:"max_loss_streak"`
}

// ComputeStreaks walks realized sales forward in trade order
func ComputeStreaks(trades []domain.TradeEntry) Streaks {
	result := Streaks{Current: StreakNone}
	for _, t := range chronological(Realized(trades)) {
		kind := StreakLoss
		if *t.RealizedPnL > 0 {
			kind = StreakWin
		}

		if kind == result.Current {
			result.CurrentLength++
		} else {
			result.Current = kind
			result.CurrentLength = 1
		}

		if kind == StreakWin && result.CurrentLength > result.MaxWinStreak {
			result.MaxWinStreak = result.CurrentLength
		}
		if kind == StreakLoss && result.CurrentLength > result.MaxLossStreak {
			result.MaxLossStreak = result.CurrentLength
		}
	}
	return result
}

// chronological orders by date, time of day and creation time; ties keep input order
func chronological(trades []domain.TradeEntry) []domain.TradeEntry {
	sorted := make([]domain.TradeEntry, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TradeDate != b.TradeDate {
			return a.TradeDate < b.TradeDate
		}
		if a.TradeTime != b.TradeTime {
			return a.TradeTime < b.TradeTime
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return sorted
}
