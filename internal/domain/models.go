// Package domain provides the core types shared by the ledger, replay, analytics and risk modules.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for trade and snapshot dates
const DateLayout = "2006-01-02"

// Market identifies the exchange a trade was executed on
type Market string

const (
	MarketCN Market = "CN" // Shanghai / Shenzhen
	MarketHK Market = "HK" // Hong Kong
	MarketUS Market = "US" // NYSE / NASDAQ
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	CurrencyCNY Currency = "CNY"
	CurrencyHKD Currency = "HKD"
	CurrencyUSD Currency = "USD"
)

// Markets lists every supported market in display order
var Markets = []Market{MarketCN, MarketHK, MarketUS}

// Currency returns the settlement currency implied by the market
func (m Market) Currency() Currency {
	switch m {
	case MarketHK:
		return CurrencyHKD
	case MarketUS:
		return CurrencyUSD
	default:
		return CurrencyCNY
	}
}

// Valid reports whether m is a supported market
func (m Market) Valid() bool {
	return m == MarketCN || m == MarketHK || m == MarketUS
}

// ParseMarket normalizes and validates a market code
func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown market %q", s)
	}
	return m, nil
}

// ParseCurrency normalizes a currency code
func ParseCurrency(s string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(s)))
}

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes and validates a trade side
func ParseSide(s string) (Side, error) {
	side := Side(strings.ToUpper(strings.TrimSpace(s)))
	if side != SideBuy && side != SideSell {
		return "", fmt.Errorf("unknown side %q", s)
	}
	return side, nil
}

// PlanExecution labels how a sale honored its stop-loss / take-profit plan
type PlanExecution string

const (
	PlanExecuted PlanExecution = "EXECUTED"
	PlanPartial  PlanExecution = "PARTIAL"
	PlanMissed   PlanExecution = "MISSED"
)

// Valid reports whether p is a known classification
func (p PlanExecution) Valid() bool {
	return p == PlanExecuted || p == PlanPartial || p == PlanMissed
}

// TradeEntry is one row of the trade journal.
// Derived fields are written once at insert and never recomputed.
type TradeEntry struct {
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name,omitempty"`
	Market     Market   `json:"market"`
	Side       Side     `json:"side"`
	TradeDate  string   `json:"trade_date"`
	TradeTime  string   `json:"trade_time,omitempty"`
	Price      float64  `json:"price"`
	Quantity   float64  `json:"quantity"`
	Amount     float64  `json:"amount"`
	Commission float64  `json:"commission"`
	Tax        float64  `json:"tax"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	Strategy   string   `json:"strategy,omitempty"`
	Emotion    string   `json:"emotion,omitempty"`
	Notes      string   `json:"notes,omitempty"`

	// Derived at insert
	RealizedPnL    *float64       `json:"realized_pnl,omitempty"`
	PnLRatio       *float64       `json:"pnl_ratio,omitempty"`
	HoldingDays    *int           `json:"holding_days,omitempty"`
	PlanExecuted   *PlanExecution `json:"plan_executed,omitempty"`
	PositionBefore float64        `json:"position_before"`
	PositionAfter  float64        `json:"position_after"`
	RelatedTradeID *string        `json:"related_trade_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TotalCost is what a BUY cost including fees
func (t TradeEntry) TotalCost() float64 {
	return t.Amount + t.Commission + t.Tax
}

// NetProceeds is what a SELL returned after fees
func (t TradeEntry) NetProceeds() float64 {
	return t.Amount - t.Commission - t.Tax
}

// CashDelta is the signed cash movement caused by the trade
func (t TradeEntry) CashDelta() float64 {
	if t.Side == SideBuy {
		return -t.TotalCost()
	}
	return t.NetProceeds()
}

// SignedQuantity is +quantity for BUY and -quantity for SELL
func (t TradeEntry) SignedQuantity() float64 {
	if t.Side == SideSell {
		return -t.Quantity
	}
	return t.Quantity
}

// Normalize trims identity fields and fills the default amount.
// It does not validate.
func (t *TradeEntry) Normalize() {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.Market = Market(strings.ToUpper(strings.TrimSpace(string(t.Market))))
	t.Side = Side(strings.ToUpper(strings.TrimSpace(string(t.Side))))
	t.TradeDate = strings.TrimSpace(t.TradeDate)
	t.TradeTime = strings.TrimSpace(t.TradeTime)
	t.Strategy = strings.TrimSpace(t.Strategy)
	t.Emotion = strings.TrimSpace(t.Emotion)
	if t.Amount == 0 {
		t.Amount = t.Price * t.Quantity
	}
}

// Validate checks the invariants a trade must satisfy before it is stored
func (t TradeEntry) Validate() error {
	if t.Symbol == "" {
		return NewValidationError("symbol", "is required")
	}
	if !t.Market.Valid() {
		return NewValidationError("market", fmt.Sprintf("must be one of CN, HK, US (got %q)", t.Market))
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return NewValidationError("side", fmt.Sprintf("must be BUY or SELL (got %q)", t.Side))
	}
	if t.TradeDate == "" {
		return NewValidationError("trade_date", "is required")
	}
	if _, err := ParseDate(t.TradeDate); err != nil {
		return NewValidationError("trade_date", fmt.Sprintf("must be YYYY-MM-DD (got %q)", t.TradeDate))
	}
	if t.TradeTime != "" {
		if _, err := time.Parse("15:04", t.TradeTime); err != nil {
			if _, err := time.Parse("15:04:05", t.TradeTime); err != nil {
				return NewValidationError("trade_time", fmt.Sprintf("must be HH:MM or HH:MM:SS (got %q)", t.TradeTime))
			}
		}
	}
	if t.Price <= 0 {
		return NewValidationError("price", "must be positive")
	}
	if t.Quantity <= 0 {
		return NewValidationError("quantity", "must be positive")
	}
	if t.Amount < 0 {
		return NewValidationError("amount", "must not be negative")
	}
	if t.Commission < 0 {
		return NewValidationError("commission", "must not be negative")
	}
	if t.Tax < 0 {
		return NewValidationError("tax", "must not be negative")
	}
	if t.StopLoss != nil && *t.StopLoss <= 0 {
		return NewValidationError("stop_loss", "must be positive when set")
	}
	if t.TakeProfit != nil && *t.TakeProfit <= 0 {
		return NewValidationError("take_profit", "must be positive when set")
	}
	if t.PlanExecuted != nil && !t.PlanExecuted.Valid() {
		return NewValidationError("plan_executed", fmt.Sprintf("unknown classification %q", *t.PlanExecuted))
	}
	return nil
}

// Position is the derived holding of one instrument
type Position struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name,omitempty"`
	Market       Market   `json:"market"`
	Quantity     float64  `json:"quantity"`
	AvgCost      float64  `json:"avg_cost"`
	CostBasis    float64  `json:"cost_basis"`
	BuyQuantity  float64  `json:"buy_quantity"`
	BuyCost      float64  `json:"buy_cost"`
	RealizedPnL  float64  `json:"realized_pnl"`
	FirstBuyDate string   `json:"first_buy_date,omitempty"`
	LastBuyID    string   `json:"last_buy_id,omitempty"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
	TakeProfit   *float64 `json:"take_profit,omitempty"`
}

// IsOpen reports whether the net quantity is positive
func (p Position) IsOpen() bool {
	return p.Quantity > 0
}

// SnapshotSource records how a snapshot was produced
type SnapshotSource string

const (
	SnapshotManual SnapshotSource = "manual"
	SnapshotReplay SnapshotSource = "replay"
)

// AccountSnapshot is the account value on one calendar day
type AccountSnapshot struct {
	Date             string         `json:"date"`
	Cash             float64        `json:"cash"`
	MarketValue      float64        `json:"market_value"`
	TotalAssets      float64        `json:"total_assets"`
	DailyPnL         float64        `json:"daily_pnl"`
	DailyReturn      float64        `json:"daily_return"`
	CumulativeReturn float64        `json:"cumulative_return"`
	Unpriced         []string       `json:"unpriced,omitempty"`
	Source           SnapshotSource `json:"source"`
	Notes            string         `json:"notes,omitempty"`
}

// PricePoint is a daily close
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// FxRateSet holds rates relative to a single base currency (base = 1)
type FxRateSet struct {
	Base      Currency             `json:"base"`
	Rates     map[Currency]float64 `json:"rates"`
	FetchedAt time.Time            `json:"fetched_at"`
	Stale     bool                 `json:"stale"`
}

// Rate returns the rate for c relative to the base currency
func (s FxRateSet) Rate(c Currency) (float64, bool) {
	if c == s.Base {
		return 1, true
	}
	r, ok := s.Rates[c]
	if !ok || r <= 0 {
		return 0, false
	}
	return r, true
}

// Convert moves amount from one currency to another through the base:
// amount / rate[from] * rate[to]
func (s FxRateSet) Convert(amount float64, from, to Currency) (float64, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := s.Rate(from)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoRate, from)
	}
	toRate, ok := s.Rate(to)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoRate, to)
	}
	return amount / fromRate * toRate, nil
}

// TradeFilter narrows ListTrades queries. Zero values mean "no filter".
type TradeFilter struct {
	Symbol   string
	Market   Market
	Side     Side
	From     string // inclusive YYYY-MM-DD
	To       string // inclusive YYYY-MM-DD
	Realized bool   // only SELL rows with a realized PnL
	Limit    int
	Newest   bool // newest first instead of chronological
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate formats t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current local calendar day
func Today() string {
	return time.Now().Format(DateLayout)
}

// DaysBetween returns the number of whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
