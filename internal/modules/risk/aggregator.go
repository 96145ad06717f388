package risk

import (
	"fmt"
	"sort"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/currency"
)

// Quote is the current price used to value one position
type Quote struct {
	Price float64 `json:"price"`
	Stale bool    `json:"stale"`
}

// QuoteKey identifies a position's quote in the quotes map
func QuoteKey(symbol string, market domain.Market) string {
	return string(market) + ":" + symbol
}

// Cash is the account's cash balance in the currency it is held in.
// An empty Currency means the reporting currency.
type Cash struct {
	Amount   float64
	Currency domain.Currency
}

// PositionExposure is one open position valued in the reporting currency
type PositionExposure struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Market        domain.Market   `json:"market"`
	Currency      domain.Currency `json:"currency"`
	Quantity      float64         `json:"quantity"`
	AvgCost       float64         `json:"avg_cost"`
	Price         float64         `json:"price"`
	PriceStale    bool            `json:"price_stale"`
	NativeValue   float64         `json:"native_value"`
	Value         float64         `json:"value"`
	Weight        float64         `json:"weight"`
	StopLoss      *float64        `json:"stop_loss,omitempty"`
	TakeProfit    *float64        `json:"take_profit,omitempty"`
	PotentialLoss float64         `json:"potential_loss"`
	PotentialGain float64         `json:"potential_gain"`
}

// MarketExposure aggregates positions of one market
type MarketExposure struct {
	Market domain.Market `json:"market"`
	Count  int           `json:"count"`
	Value  float64       `json:"value"`
	Weight float64       `json:"weight"`
}

// Assessment is a point-in-time risk view in one currency
type Assessment struct {
	Currency           domain.Currency    `json:"currency"`
	Cash               float64            `json:"cash"`
	NativeCash         float64            `json:"native_cash"`
	CashCurrency       domain.Currency    `json:"cash_currency"`
	TotalExposure      float64            `json:"total_exposure"`
	TotalAssets        float64            `json:"total_assets"`
	ExposureRatio      float64            `json:"exposure_ratio"`
	LargestPosition    string             `json:"largest_position,omitempty"`
	LargestPositionPct float64            `json:"largest_position_pct"`
	PositionCount      int                `json:"position_count"`
	ByMarket           []MarketExposure   `json:"by_market"`
	TopPositions       []PositionExposure `json:"top_positions"`
	PotentialLoss      float64            `json:"potential_loss"`
	PotentialGain      float64            `json:"potential_gain"`
	Coverable          bool               `json:"coverable"`
	Level              Level              `json:"level"`
	Reasons            []string           `json:"reasons"`
	PriceStale         bool               `json:"price_stale"`
	StaleSymbols       []string           `json:"stale_symbols,omitempty"`
	FxStale            bool               `json:"fx_stale"`
}

// Assess values every open position in the reporting currency and rates
// the result with policy. A position without a quote is valued at its
// average cost and flagged stale. A currency missing from fx is converted
// with the built-in rates and flagged as stale FX. Cash is converted the
// same way as market value.
func Assess(positions []domain.Position, quotes map[string]Quote, fx domain.FxRateSet, cash Cash, reporting domain.Currency, policy Policy) (*Assessment, error) {
	a := &Assessment{
		Currency:     reporting,
		ByMarket:     []MarketExposure{},
		TopPositions: []PositionExposure{},
		Reasons:      []string{},
		FxStale:      fx.Stale,
	}

	convert := func(amount float64, from domain.Currency) (float64, error) {
		v, err := fx.Convert(amount, from, reporting)
		if err == nil {
			return v, nil
		}
		v, fallbackErr := currency.FallbackRates.Convert(amount, from, reporting)
		if fallbackErr != nil {
			return 0, fmt.Errorf("failed to convert %s to %s: %w", from, reporting, err)
		}
		a.FxStale = true
		return v, nil
	}

	if cash.Currency == "" {
		cash.Currency = reporting
	}
	a.NativeCash = cash.Amount
	a.CashCurrency = cash.Currency
	converted, err := convert(cash.Amount, cash.Currency)
	if err != nil {
		return nil, err
	}
	a.Cash = converted

	exposures := make([]PositionExposure, 0, len(positions))
	markets := make(map[domain.Market]*MarketExposure)

	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}

		e := PositionExposure{
			Symbol:     p.Symbol,
			Name:       p.Name,
			Market:     p.Market,
			Currency:   p.Market.Currency(),
			Quantity:   p.Quantity,
			AvgCost:    p.AvgCost,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
		}

		q, ok := quotes[QuoteKey(p.Symbol, p.Market)]
		if ok && q.Price > 0 {
			e.Price = q.Price
			e.PriceStale = q.Stale
		} else {
			e.Price = p.AvgCost
			e.PriceStale = true
		}
		if e.PriceStale {
			a.PriceStale = true
			a.StaleSymbols = append(a.StaleSymbols, QuoteKey(p.Symbol, p.Market))
		}

		e.NativeValue = e.Price * e.Quantity
		value, err := convert(e.NativeValue, e.Currency)
		if err != nil {
			return nil, err
		}
		e.Value = value

		if p.StopLoss != nil {
			loss, err := convert((e.Price-*p.StopLoss)*e.Quantity, e.Currency)
			if err != nil {
				return nil, err
			}
			e.PotentialLoss = loss
			a.PotentialLoss += loss
		}
		if p.TakeProfit != nil {
			gain, err := convert((*p.TakeProfit-e.Price)*e.Quantity, e.Currency)
			if err != nil {
				return nil, err
			}
			e.PotentialGain = gain
			a.PotentialGain += gain
		}

		a.TotalExposure += e.Value
		m, ok := markets[p.Market]
		if !ok {
			m = &MarketExposure{Market: p.Market}
			markets[p.Market] = m
		}
		m.Count++
		m.Value += e.Value

		exposures = append(exposures, e)
	}

	a.PositionCount = len(exposures)
	a.TotalAssets = a.TotalExposure + a.Cash
	a.ExposureRatio = exposureRatio(a.TotalExposure, a.TotalAssets)
	a.Coverable = a.Cash >= a.PotentialLoss

	sort.SliceStable(exposures, func(i, j int) bool {
		if exposures[i].Value != exposures[j].Value {
			return exposures[i].Value > exposures[j].Value
		}
		return QuoteKey(exposures[i].Symbol, exposures[i].Market) < QuoteKey(exposures[j].Symbol, exposures[j].Market)
	})
	for i := range exposures {
		exposures[i].Weight = ratio(exposures[i].Value, a.TotalExposure)
	}
	if len(exposures) > 0 {
		a.LargestPosition = exposures[0].Symbol
		a.LargestPositionPct = exposures[0].Weight
	}

	topN := policy.TopN
	if topN <= 0 || topN > len(exposures) {
		topN = len(exposures)
	}
	a.TopPositions = exposures[:topN]

	for _, market := range domain.Markets {
		if m, ok := markets[market]; ok {
			m.Weight = ratio(m.Value, a.TotalExposure)
			a.ByMarket = append(a.ByMarket, *m)
		}
	}

	a.Level, a.Reasons = rate(a, policy)
	return a, nil
}

// rate applies the policy ladder. Each rule can only raise the level.
func rate(a *Assessment, policy Policy) (Level, []string) {
	level := LevelLow
	reasons := []string{}

	if l := policy.Exposure.level(a.ExposureRatio); l != LevelLow {
		level = maxLevel(level, l)
		reasons = append(reasons, fmt.Sprintf("exposure ratio %.1f%% is %s", a.ExposureRatio*100, l))
	}
	if l := policy.LargestPosition.level(a.LargestPositionPct); l != LevelLow {
		level = maxLevel(level, l)
		reasons = append(reasons, fmt.Sprintf("largest position %s at %.1f%% is %s", a.LargestPosition, a.LargestPositionPct*100, l))
	}
	if !a.Coverable {
		level = maxLevel(level, policy.Uncoverable)
		reasons = append(reasons, fmt.Sprintf("cash %.2f cannot cover potential loss %.2f", a.Cash, a.PotentialLoss))
	}

	return level, reasons
}

// exposureRatio is exposure over total assets, within [0, 1]. Negative cash
// can leave total assets at or below the exposure, which is fully exposed.
func exposureRatio(exposure, total float64) float64 {
	if exposure <= 0 {
		return 0
	}
	if total <= exposure {
		return 1
	}
	return exposure / total
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}
