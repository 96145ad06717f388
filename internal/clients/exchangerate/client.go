// Package exchangerate fetches FX rate sets from exchangerate-api.com with a persistent cache.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/journal/internal/clientdata"
	"github.com/aristath/journal/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public v4 endpoint
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com
type Client struct {
	baseURL   string
	base      domain.Currency
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchangerate-api.com client quoting rates against base.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL string, base domain.Currency, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if base == "" {
		base = domain.CurrencyUSD
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		base:      base,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate-api").Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedRateSet is the structure stored in the cache
type cachedRateSet struct {
	Base      string             `msgpack:"base"`
	Rates     map[string]float64 `msgpack:"rates"`
	FetchedAt int64              `msgpack:"fetched_at"`
}

func (c cachedRateSet) toDomain(stale bool) *domain.FxRateSet {
	rates := make(map[domain.Currency]float64, len(c.Rates))
	for code, rate := range c.Rates {
		rates[domain.Currency(code)] = rate
	}
	return &domain.FxRateSet{
		Base:      domain.Currency(c.Base),
		Rates:     rates,
		FetchedAt: time.Unix(c.FetchedAt, 0),
		Stale:     stale,
	}
}

// GetFxRates returns the rate set for the client's base currency
func (c *Client) GetFxRates(ctx context.Context) (*domain.FxRateSet, error) {
	return c.GetRates(ctx, c.base)
}

// GetRates fetches all rates relative to base, cache first.
// If the API fails, stale cached data is returned with Stale set.
func (c *Client) GetRates(ctx context.Context, base domain.Currency) (*domain.FxRateSet, error) {
	cacheKey := string(base)

	if c.cacheRepo != nil {
		var cached cachedRateSet
		found, err := c.cacheRepo.GetIfFresh(clientdata.TableExchangeRate, cacheKey, &cached)
		if err == nil && found {
			c.log.Debug().Str("base", cacheKey).Msg("Cache hit")
			return cached.toDomain(false), nil
		}
	}

	fetched, err := c.fetch(ctx, base)
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().
				Err(err).
				Str("base", cacheKey).
				Time("fetched_at", stale.FetchedAt).
				Msg("API failed, using stale cached rates")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableExchangeRate, cacheKey, fetched, clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Str("base", cacheKey).Msg("Failed to cache exchange rates")
		}
	}

	c.log.Info().Str("base", cacheKey).Int("currencies", len(fetched.Rates)).Msg("Fetched rates")
	return fetched.toDomain(false), nil
}

func (c *Client) fetch(ctx context.Context, base domain.Currency) (cachedRateSet, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cachedRateSet{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return cachedRateSet{}, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cachedRateSet{}, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return cachedRateSet{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Rates) == 0 {
		return cachedRateSet{}, fmt.Errorf("response for %s contains no rates", base)
	}
	if result.Base == "" {
		result.Base = string(base)
	}

	return cachedRateSet{Base: result.Base, Rates: result.Rates, FetchedAt: time.Now().Unix()}, nil
}

// getStaleFromCache retrieves cached rates even if expired.
func (c *Client) getStaleFromCache(cacheKey string) (*domain.FxRateSet, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached cachedRateSet
	found, err := c.cacheRepo.Get(clientdata.TableExchangeRate, cacheKey, &cached)
	if err != nil || !found {
		return nil, false
	}
	return cached.toDomain(true), true
}
