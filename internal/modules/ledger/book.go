// Package ledger implements average-cost position accounting and realized PnL.
package ledger

import (
	"sort"

	"github.com/aristath/journal/internal/domain"
	"github.com/shopspring/decimal"
)

// Basis is the accumulated state of one instrument over its full history.
// Buy totals cover every BUY row ever recorded, not just the open lots.
type Basis struct {
	BuyQuantity     decimal.Decimal
	BuyCost         decimal.Decimal
	NetQuantity     decimal.Decimal
	RealizedPnL     decimal.Decimal
	EarliestBuyDate string
	LatestBuyID     string
	StopLoss        *float64
	TakeProfit      *float64
	Name            string
}

// Accumulate folds a chronological trade history of one instrument into a Basis
func Accumulate(history []domain.TradeEntry) Basis {
	var b Basis
	for _, t := range history {
		b.Apply(t)
	}
	return b
}

// Apply adds one trade to the basis
func (b *Basis) Apply(t domain.TradeEntry) {
	qty := decimal.NewFromFloat(t.Quantity)
	if t.Name != "" {
		b.Name = t.Name
	}

	if t.Side == domain.SideSell {
		b.NetQuantity = b.NetQuantity.Sub(qty)
		if t.RealizedPnL != nil {
			b.RealizedPnL = b.RealizedPnL.Add(decimal.NewFromFloat(*t.RealizedPnL))
		}
		return
	}

	b.NetQuantity = b.NetQuantity.Add(qty)
	b.BuyQuantity = b.BuyQuantity.Add(qty)
	b.BuyCost = b.BuyCost.Add(decimal.NewFromFloat(t.Amount)).
		Add(decimal.NewFromFloat(t.Commission)).
		Add(decimal.NewFromFloat(t.Tax))

	if b.EarliestBuyDate == "" || t.TradeDate < b.EarliestBuyDate {
		b.EarliestBuyDate = t.TradeDate
	}
	b.LatestBuyID = t.ID
	if t.StopLoss != nil {
		v := *t.StopLoss
		b.StopLoss = &v
	}
	if t.TakeProfit != nil {
		v := *t.TakeProfit
		b.TakeProfit = &v
	}
}

// HasBuys reports whether any BUY has been recorded
func (b Basis) HasBuys() bool {
	return b.BuyQuantity.IsPositive()
}

// AvgCost is Σ(buy total cost) / Σ(buy quantity), 0 without buys
func (b Basis) AvgCost() decimal.Decimal {
	if !b.HasBuys() {
		return decimal.Zero
	}
	return b.BuyCost.Div(b.BuyQuantity)
}

// Derive fills the insert-time fields of entry from the instrument's prior history.
// Explicit RealizedPnL and PlanExecuted values supplied by the caller are kept
// on sales. A BUY never carries sale-only fields.
func Derive(entry *domain.TradeEntry, history []domain.TradeEntry) {
	basis := Accumulate(history)

	before, _ := basis.NetQuantity.Float64()
	entry.PositionBefore = before
	entry.PositionAfter = before + entry.SignedQuantity()

	if entry.Side != domain.SideSell {
		entry.RealizedPnL = nil
		entry.PnLRatio = nil
		entry.HoldingDays = nil
		entry.PlanExecuted = nil
		entry.RelatedTradeID = nil
		return
	}

	if basis.HasBuys() {
		qty := decimal.NewFromFloat(entry.Quantity)
		buyCost := basis.AvgCost().Mul(qty)
		if entry.RealizedPnL == nil {
			pnl, _ := decimal.NewFromFloat(entry.NetProceeds()).Sub(buyCost).Float64()
			entry.RealizedPnL = &pnl
		}
		if entry.PnLRatio == nil {
			ratio := 0.0
			if !buyCost.IsZero() {
				ratio = decimal.NewFromFloat(*entry.RealizedPnL).Div(buyCost).InexactFloat64()
			}
			entry.PnLRatio = &ratio
		}

		days := holdingDays(basis.EarliestBuyDate, entry.TradeDate)
		entry.HoldingDays = &days

		if basis.LatestBuyID != "" {
			id := basis.LatestBuyID
			entry.RelatedTradeID = &id
		}
	}

	if entry.PlanExecuted == nil {
		stopLoss, takeProfit := entry.StopLoss, entry.TakeProfit
		if stopLoss == nil && takeProfit == nil {
			stopLoss, takeProfit = basis.StopLoss, basis.TakeProfit
		}
		entry.PlanExecuted = ClassifyPlanExecution(entry.Price, stopLoss, takeProfit)
	}
}

// holdingDays counts calendar days from the first buy date to the sale date.
// Time of day is ignored so a same-day round trip holds for 0 days.
func holdingDays(buyDate, sellDate string) int {
	start, err := domain.ParseDate(buyDate)
	if err != nil {
		return 0
	}
	end, err := domain.ParseDate(sellDate)
	if err != nil {
		return 0
	}

	days := domain.DaysBetween(start, end)
	if days < 0 {
		return 0
	}
	return days
}

type instrumentKey struct {
	symbol string
	market domain.Market
}

// BuildPositions derives every instrument's position from a chronological trade log
func BuildPositions(trades []domain.TradeEntry) []domain.Position {
	bases := make(map[instrumentKey]*Basis)
	for _, t := range trades {
		key := instrumentKey{symbol: t.Symbol, market: t.Market}
		b, ok := bases[key]
		if !ok {
			b = &Basis{}
			bases[key] = b
		}
		b.Apply(t)
	}

	positions := make([]domain.Position, 0, len(bases))
	for key, b := range bases {
		positions = append(positions, toPosition(key, *b))
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Market != positions[j].Market {
			return positions[i].Market < positions[j].Market
		}
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}

func toPosition(key instrumentKey, b Basis) domain.Position {
	qty := b.NetQuantity.InexactFloat64()
	avg := b.AvgCost()

	p := domain.Position{
		Symbol:       key.symbol,
		Name:         b.Name,
		Market:       key.market,
		Quantity:     qty,
		AvgCost:      avg.InexactFloat64(),
		BuyQuantity:  b.BuyQuantity.InexactFloat64(),
		BuyCost:      b.BuyCost.InexactFloat64(),
		RealizedPnL:  b.RealizedPnL.InexactFloat64(),
		FirstBuyDate: b.EarliestBuyDate,
		LastBuyID:    b.LatestBuyID,
		StopLoss:     b.StopLoss,
		TakeProfit:   b.TakeProfit,
	}
	if b.NetQuantity.IsPositive() {
		p.CostBasis = avg.Mul(b.NetQuantity).InexactFloat64()
	}
	return p
}
