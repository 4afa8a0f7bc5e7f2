package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessora/marketscope/internal/aggregator"
	"github.com/tessora/marketscope/internal/alerts"
	"github.com/tessora/marketscope/internal/metrics"
	"github.com/tessora/marketscope/internal/models"
	"github.com/tessora/marketscope/internal/provider"
	"github.com/tessora/marketscope/internal/store"
)

type stubAdapter struct {
	source  models.Source
	markets []models.Market
	err     error
}

func (a *stubAdapter) Source() models.Source { return a.source }

func (a *stubAdapter) Markets(_ context.Context, limit int) ([]models.Market, error) {
	if a.err != nil {
		return nil, a.err
	}
	if limit < len(a.markets) {
		return a.markets[:limit], nil
	}
	return a.markets, nil
}

func (a *stubAdapter) MarketByID(_ context.Context, id string) (models.Market, error) {
	if a.err != nil {
		return models.Market{}, a.err
	}
	for _, m := range a.markets {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Market{}, fmt.Errorf("market %s: %w", id, provider.ErrNotFound)
}

func newTestServer(t *testing.T, adapters ...provider.Adapter) (*Server, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m := metrics.New()
	agg := aggregator.New(s, m, adapters...)
	engine := alerts.New(s, nil, m)
	return New(":0", agg, engine, m, 20), s
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleMarkets() []models.Market {
	return []models.Market{
		{ID: "p-1", Question: "Will BTC hit 100k?", Category: "Crypto", Score: 80, Source: models.SourcePolymarket, Active: true},
		{ID: "p-2", Question: "Will it snow?", Category: "Weather", Score: 40, Source: models.SourcePolymarket, Active: true},
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	rec := doRequest(t, srv, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListMarkets(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket, markets: sampleMarkets()})

	rec := doRequest(t, srv, http.MethodGet, "/api/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listing aggregator.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Equal(t, 2, listing.Count)
	assert.Equal(t, "p-1", listing.Markets[0].ID, "ranked by score")
}

func TestListMarkets_BadParams(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	rec := doRequest(t, srv, http.MethodGet, "/api/markets?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/markets?source=predictit", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMarkets_AllProvidersDown(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket, err: provider.ErrUnavailable})

	rec := doRequest(t, srv, http.MethodGet, "/api/markets", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetMarket(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket, markets: sampleMarkets()})

	rec := doRequest(t, srv, http.MethodGet, "/api/markets/p-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var m models.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "Will BTC hit 100k?", m.Question)

	rec = doRequest(t, srv, http.MethodGet, "/api/markets/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCategories(t *testing.T) {
	srv, s := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	for _, m := range sampleMarkets() {
		require.NoError(t, s.UpsertMarket(context.Background(), &m))
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/markets/meta/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Crypto"`)
	assert.Contains(t, rec.Body.String(), `"Weather"`)
}

func TestAlertLifecycle(t *testing.T) {
	srv, s := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	m := sampleMarkets()[0]
	m.Volume = 90000
	require.NoError(t, s.UpsertMarket(context.Background(), &m))

	rec := doRequest(t, srv, http.MethodPost, "/api/alerts",
		`{"market_id": "p-1", "alert_type": "volume_spike", "threshold": 50000}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.AlertRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Positive(t, created.ID)

	rec = doRequest(t, srv, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = doRequest(t, srv, http.MethodPost, "/api/alerts/check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"triggered":1`)

	// Second check is a no-op: the rule is terminal.
	rec = doRequest(t, srv, http.MethodPost, "/api/alerts/check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"triggered":0`)

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/alerts/%d", created.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAlert_Validation(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	rec := doRequest(t, srv, http.MethodPost, "/api/alerts", `{"alert_type": "volume_spike"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "market_id")

	rec = doRequest(t, srv, http.MethodPost, "/api/alerts", `{"market_id": "p-1", "alert_type": "tsunami"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/alerts", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAlert_BadID(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	rec := doRequest(t, srv, http.MethodDelete, "/api/alerts/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptions(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	rec := doRequest(t, srv, http.MethodPost, "/api/alerts/subscribe",
		`{"email": "trader@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price_change"`, "default alert types filled in")

	rec = doRequest(t, srv, http.MethodPost, "/api/alerts/subscribe", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/alerts/subscriptions?email=trader@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = doRequest(t, srv, http.MethodGet, "/api/alerts/subscriptions?email=nobody@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket, markets: sampleMarkets()})

	doRequest(t, srv, http.MethodGet, "/api/markets", "")

	rec := doRequest(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketscope_provider_fetch_total")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{source: models.SourcePolymarket})

	rec := doRequest(t, srv, http.MethodOptions, "/api/markets", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
