// Package kalshi adapts the Kalshi trade API to the provider contract.
// Every call requires a bearer credential; a missing or rejected key fails
// the whole call with provider.ErrAuth so the aggregator can skip the source
// without masking a configuration problem.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tessora/marketscope/internal/models"
	"github.com/tessora/marketscope/internal/provider"
)

// Client provides access to the Kalshi trade API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Kalshi client. An empty apiKey is allowed at
// construction time; calls will then fail with provider.ErrAuth.
func NewClient(baseURL, apiKey string, timeout time.Duration, rps float64, burst int) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Source implements provider.Adapter.
func (c *Client) Source() models.Source {
	return models.SourceKalshi
}

// Markets fetches up to limit markets and transforms them.
func (c *Client) Markets(ctx context.Context, limit int) ([]models.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var resp marketsResponse
	if err := c.get(ctx, "/markets?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("kalshi: list markets: %w", err)
	}

	markets := make([]models.Market, 0, len(resp.Markets))
	for _, raw := range resp.Markets {
		markets = append(markets, Transform(raw))
	}
	return markets, nil
}

// MarketByID fetches a single market by ticker.
func (c *Client) MarketByID(ctx context.Context, id string) (models.Market, error) {
	var resp marketResponse
	if err := c.get(ctx, "/markets/"+url.PathEscape(id), &resp); err != nil {
		return models.Market{}, fmt.Errorf("kalshi: market %s: %w", id, err)
	}
	return Transform(resp.Market), nil
}

// get issues one authenticated GET request and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: API key not configured", provider.ErrAuth)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", provider.ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return provider.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", provider.ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", provider.ErrUnavailable, err)
	}
	return nil
}
