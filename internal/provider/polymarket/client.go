// Package polymarket adapts the Polymarket Gamma API to the provider
// contract. Gamma is a read-only listing API: no credential is required.
package polymarket

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

// Client provides access to the Polymarket Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Polymarket client. The timeout bounds every
// outbound call; requests are paced by a token-bucket limiter so aggregation
// bursts stay inside Gamma's published rate limits.
func NewClient(baseURL string, timeout time.Duration, rps float64, burst int) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Source implements provider.Adapter.
func (c *Client) Source() models.Source {
	return models.SourcePolymarket
}

// Markets fetches up to limit active, open markets and transforms them.
func (c *Client) Markets(ctx context.Context, limit int) ([]models.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")
	params.Set("closed", "false")

	var raws []RawMarket
	if err := c.get(ctx, "/markets?"+params.Encode(), &raws); err != nil {
		return nil, fmt.Errorf("polymarket: list markets: %w", err)
	}

	markets := make([]models.Market, 0, len(raws))
	for _, raw := range raws {
		markets = append(markets, Transform(raw))
	}
	return markets, nil
}

// MarketByID fetches a single market by its Gamma id or condition id.
func (c *Client) MarketByID(ctx context.Context, id string) (models.Market, error) {
	var raw RawMarket
	if err := c.get(ctx, "/markets/"+url.PathEscape(id), &raw); err != nil {
		return models.Market{}, fmt.Errorf("polymarket: market %s: %w", id, err)
	}
	return Transform(raw), nil
}

// get issues one GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
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
