// Package snapshots rebuilds and stores the daily account value series.
package snapshots

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/journal/internal/domain"
)

// quantityEpsilon absorbs float residue left after a position is sold down
const quantityEpsilon = 1e-9

// PriceSeries maps SeriesKey(symbol, market) to daily closes
type PriceSeries map[string][]domain.PricePoint

// SeriesKey identifies one instrument's price series
func SeriesKey(symbol string, market domain.Market) string {
	return string(market) + ":" + symbol
}

// SortTrades orders trades by date, time of day and creation time.
// Equal keys keep their input order.
func SortTrades(trades []domain.TradeEntry) []domain.TradeEntry {
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

// priceCursor walks one instrument's closes forward in date order
type priceCursor struct {
	points []domain.PricePoint
	next   int
	last   float64
	seen   bool
}

func newPriceCursor(points []domain.PricePoint) *priceCursor {
	sorted := make([]domain.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Close > 0 {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	return &priceCursor{points: sorted}
}

// at returns the close on day or the most recent earlier close.
// Days must be requested in non-decreasing order.
func (c *priceCursor) at(day string) (float64, bool) {
	for c.next < len(c.points) && c.points[c.next].Date <= day {
		c.last = c.points[c.next].Close
		c.seen = true
		c.next++
	}
	return c.last, c.seen
}

// ledgerState is the running account during replay
type ledgerState struct {
	cash     float64
	holdings map[string]float64
	cursors  map[string]*priceCursor
	prices   PriceSeries
}

func (s *ledgerState) apply(t domain.TradeEntry) {
	key := SeriesKey(t.Symbol, t.Market)
	s.cash += t.CashDelta()
	qty := s.holdings[key] + t.SignedQuantity()
	if math.Abs(qty) < quantityEpsilon {
		delete(s.holdings, key)
		return
	}
	s.holdings[key] = qty
}

func (s *ledgerState) cursor(key string) *priceCursor {
	c, ok := s.cursors[key]
	if !ok {
		c = newPriceCursor(s.prices[key])
		s.cursors[key] = c
	}
	return c
}

// value marks every open position on day, in sorted key order so sums are reproducible
func (s *ledgerState) value(day string) (marketValue float64, unpriced []string) {
	keys := make([]string, 0, len(s.holdings))
	for key, qty := range s.holdings {
		if qty > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		price, ok := s.cursor(key).at(day)
		if !ok {
			unpriced = append(unpriced, key)
			continue
		}
		marketValue += s.holdings[key] * price
	}
	return marketValue, unpriced
}

// Replay reconstructs one snapshot per calendar day from startDate to endDate
// inclusive. startDate defaults to the first trade date and endDate to today.
// Trades dated before startDate are applied before the first day. An open
// instrument with no close on or before a day is valued at zero and listed in
// that day's Unpriced. An empty trade log yields no snapshots.
func Replay(trades []domain.TradeEntry, prices PriceSeries, startingCash float64, startDate, endDate string) ([]domain.AccountSnapshot, error) {
	if len(trades) == 0 {
		return []domain.AccountSnapshot{}, nil
	}

	sorted := SortTrades(trades)
	if startDate == "" {
		startDate = sorted[0].TradeDate
	}
	if endDate == "" {
		endDate = domain.Today()
	}

	start, err := domain.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := domain.ParseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return []domain.AccountSnapshot{}, nil
	}

	state := &ledgerState{
		cash:     startingCash,
		holdings: make(map[string]float64),
		cursors:  make(map[string]*priceCursor),
		prices:   prices,
	}

	i := 0
	for i < len(sorted) && sorted[i].TradeDate < startDate {
		state.apply(sorted[i])
		i++
	}

	prevTotal := startingCash
	if i > 0 {
		mv, _ := state.value(domain.FormatDate(start.AddDate(0, 0, -1)))
		prevTotal = state.cash + mv
	}

	days := domain.DaysBetween(start, end) + 1
	snapshots := make([]domain.AccountSnapshot, 0, days)

	for day := start; !day.After(end); day = day.Add(24 * time.Hour) {
		date := domain.FormatDate(day)
		for i < len(sorted) && sorted[i].TradeDate == date {
			state.apply(sorted[i])
			i++
		}

		marketValue, unpriced := state.value(date)
		total := state.cash + marketValue

		snap := domain.AccountSnapshot{
			Date:        date,
			Cash:        state.cash,
			MarketValue: marketValue,
			TotalAssets: total,
			DailyPnL:    total - prevTotal,
			Unpriced:    unpriced,
			Source:      domain.SnapshotReplay,
		}
		if prevTotal != 0 {
			snap.DailyReturn = snap.DailyPnL / prevTotal
		}
		if startingCash != 0 {
			snap.CumulativeReturn = (total - startingCash) / startingCash
		}

		snapshots = append(snapshots, snap)
		prevTotal = total
	}

	return snapshots, nil
}
