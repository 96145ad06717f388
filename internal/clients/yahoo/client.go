// Package yahoo fetches current and historical prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/journal/internal/clientdata"
	"github.com/aristath/journal/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the chart endpoint
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client is a Yahoo Finance chart API client
type Client struct {
	baseURL   string
	client    *http.Client
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewClient creates a new Yahoo Finance client. cacheRepo is optional.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "yahoo").Logger(),
	}
}

// YahooSymbol converts a journal symbol to its Yahoo Finance ticker.
//
//	CN 600519 -> 600519.SS (Shanghai: 6xx and 9xx), 000001 -> 000001.SZ
//	HK 700 / 00700 -> 0700.HK
//	US BRK.B -> BRK-B
func YahooSymbol(symbol string, market domain.Market) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	switch market {
	case domain.MarketCN:
		if strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "9") {
			return symbol + ".SS"
		}
		return symbol + ".SZ"
	case domain.MarketHK:
		code := strings.TrimLeft(symbol, "0")
		if len(code) < 4 {
			code = strings.Repeat("0", 4-len(code)) + code
		}
		return code + ".HK"
	default:
		return strings.ReplaceAll(symbol, ".", "-")
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				GMTOffset          int64   `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

func (c *Client) chart(ctx context.Context, ticker string, params url.Values) (*chartResponse, error) {
	reqURL := c.baseURL + "/" + url.PathEscape(ticker) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart API returned status %d for %s", resp.StatusCode, ticker)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart API error for %s: %v", ticker, result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no chart data for %s", domain.ErrQuoteUnavailable, ticker)
	}
	return &result, nil
}

// GetCurrentPrice returns the latest regular-market price. When the API
// fails but a cached price exists, that price is returned together with an
// error wrapping domain.ErrStaleQuote.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string, market domain.Market) (float64, error) {
	key := string(market) + ":" + symbol

	if c.cacheRepo != nil {
		var cached float64
		if found, err := c.cacheRepo.GetIfFresh(clientdata.TableCurrentPrices, key, &cached); err == nil && found {
			return cached, nil
		}
	}

	price, err := c.fetchCurrentPrice(ctx, symbol, market)
	if err != nil {
		if c.cacheRepo != nil {
			var stale float64
			if found, cacheErr := c.cacheRepo.Get(clientdata.TableCurrentPrices, key, &stale); cacheErr == nil && found && stale > 0 {
				c.log.Warn().Err(err).Str("instrument", key).Float64("price", stale).Msg("API failed, using stale cached price")
				return stale, fmt.Errorf("%w: %s: %v", domain.ErrStaleQuote, key, err)
			}
		}
		return 0, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableCurrentPrices, key, price, clientdata.TTLCurrentPrice); err != nil {
			c.log.Warn().Err(err).Str("instrument", key).Msg("Failed to cache price")
		}
	}
	return price, nil
}

func (c *Client) fetchCurrentPrice(ctx context.Context, symbol string, market domain.Market) (float64, error) {
	ticker := YahooSymbol(symbol, market)
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", "5d")

	result, err := c.chart(ctx, ticker, params)
	if err != nil {
		return 0, err
	}

	data := result.Chart.Result[0]
	if data.Meta.RegularMarketPrice > 0 {
		return data.Meta.RegularMarketPrice, nil
	}
	// Fall back to the last non-null close
	if len(data.Indicators.Quote) > 0 {
		closes := data.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil && *closes[i] > 0 {
				return *closes[i], nil
			}
		}
	}
	return 0, fmt.Errorf("%w: no price for %s", domain.ErrQuoteUnavailable, ticker)
}

// GetHistoricalCloses returns daily closes between from and to inclusive,
// dated in the exchange's local calendar. Null closes are skipped.
func (c *Client) GetHistoricalCloses(ctx context.Context, symbol string, market domain.Market, from, to string) ([]domain.PricePoint, error) {
	key := fmt.Sprintf("%s:%s|%s|%s", market, symbol, from, to)

	if c.cacheRepo != nil {
		var cached []domain.PricePoint
		if found, err := c.cacheRepo.GetIfFresh(clientdata.TableHistoricalCloses, key, &cached); err == nil && found {
			return cached, nil
		}
	}

	points, err := c.fetchHistoricalCloses(ctx, symbol, market, from, to)
	if err != nil {
		if c.cacheRepo != nil {
			var stale []domain.PricePoint
			if found, cacheErr := c.cacheRepo.Get(clientdata.TableHistoricalCloses, key, &stale); cacheErr == nil && found {
				c.log.Warn().Err(err).Str("series", key).Msg("API failed, using stale cached closes")
				return stale, nil
			}
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableHistoricalCloses, key, points, clientdata.TTLHistoricalCloses); err != nil {
			c.log.Warn().Err(err).Str("series", key).Msg("Failed to cache closes")
		}
	}
	return points, nil
}

func (c *Client) fetchHistoricalCloses(ctx context.Context, symbol string, market domain.Market, from, to string) ([]domain.PricePoint, error) {
	start, err := domain.ParseDate(from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	end, err := domain.ParseDate(to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date %q: %w", to, err)
	}

	ticker := YahooSymbol(symbol, market)
	params := url.Values{}
	params.Add("interval", "1d")
	// widen by a day on each side; exchange-local dates are filtered below
	params.Add("period1", fmt.Sprintf("%d", start.AddDate(0, 0, -1).Unix()))
	params.Add("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 2).Unix()))

	result, err := c.chart(ctx, ticker, params)
	if err != nil {
		return nil, err
	}

	data := result.Chart.Result[0]
	if len(data.Indicators.Quote) == 0 {
		c.log.Warn().Str("ticker", ticker).Msg("No quote data in response")
		return []domain.PricePoint{}, nil
	}
	closes := data.Indicators.Quote[0].Close

	points := make([]domain.PricePoint, 0, len(data.Timestamp))
	for i, ts := range data.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		date := domain.FormatDate(time.Unix(ts+data.Meta.GMTOffset, 0).UTC())
		if date < from || date > to {
			continue
		}
		points = append(points, domain.PricePoint{Date: date, Close: *closes[i]})
	}

	c.log.Debug().
		Str("ticker", ticker).
		Str("from", from).
		Str("to", to).
		Int("count", len(points)).
		Msg("Fetched historical closes")
	return points, nil
}
