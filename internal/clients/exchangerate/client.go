// Package exchangerate fetches FX rate tables from exchangerate-api.com.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/internal/domain"
)

// DefaultBaseURL is the v4 "latest" endpoint.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// rateScale is the number of decimal places kept when inverting quotes.
const rateScale = 12

// Client for exchangerate-api.com
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchangerate-api.com client.
// cacheRepo is optional; if nil, caching and the stale fallback are disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log.With().Str("client", "exchangerate-api").Logger(),
		cacheRepo: cacheRepo,
	}
}

// latestResponse is the upstream payload and also the cached shape.
// Rates are units of each currency per one unit of Base.
type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// RefreshRates returns the latest table, expressed as base-currency units per
// one unit of each currency. The upstream only serves the latest quotes, so the
// table is dated by the API, not by asOf. When the API fails, a stale cached
// table is returned instead (stale data > no data).
func (c *Client) RefreshRates(ctx context.Context, base string, asOf time.Time) (*domain.RateTable, error) {
	base = strings.ToUpper(base)

	if resp := c.cached(base, true); resp != nil {
		c.log.Debug().Str("base", base).Msg("Cache hit")
		return toTable(resp, "exchangerate-api")
	}

	resp, err := c.fetch(ctx, base)
	if err != nil {
		if stale := c.cached(base, false); stale != nil {
			c.log.Warn().Err(err).Str("base", base).Str("date", stale.Date).Msg("API failed, using stale cached rates")
			return toTable(stale, "exchangerate-api (stale)")
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TableExchangeRate, base, resp, clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Str("base", base).Msg("Failed to cache exchange rates")
		}
	}

	c.log.Info().
		Str("base", base).
		Str("date", resp.Date).
		Str("as_of", domain.FormatDate(asOf)).
		Int("rates", len(resp.Rates)).
		Msg("Fetched rates")
	return toTable(resp, "exchangerate-api")
}

func (c *Client) fetch(ctx context.Context, base string) (*latestResponse, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	c.log.Debug().Str("url", url).Msg("Fetching rates")
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", res.StatusCode)
	}

	var resp latestResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Rates) == 0 {
		return nil, fmt.Errorf("response carries no rates")
	}
	if _, err := domain.ParseDate(resp.Date); err != nil {
		return nil, fmt.Errorf("response carries no valid date: %w", err)
	}
	return &resp, nil
}

func (c *Client) cached(base string, freshOnly bool) *latestResponse {
	if c.cacheRepo == nil {
		return nil
	}

	get := c.cacheRepo.Get
	if freshOnly {
		get = c.cacheRepo.GetIfFresh
	}
	data, err := get(clientdata.TableExchangeRate, base)
	if err != nil || data == nil {
		return nil
	}

	var resp latestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil
	}
	return &resp
}

func toTable(resp *latestResponse, source string) (*domain.RateTable, error) {
	date, err := domain.ParseDate(resp.Date)
	if err != nil {
		return nil, err
	}

	table := &domain.RateTable{
		Base:   resp.Base,
		Date:   date,
		Source: source,
		Rates:  make(map[string]decimal.Decimal, len(resp.Rates)),
	}
	one := decimal.NewFromInt(1)
	for currency, quote := range resp.Rates {
		if !quote.IsPositive() {
			continue
		}
		table.Rates[strings.ToUpper(currency)] = one.DivRound(quote, rateScale)
	}
	return table, nil
}
