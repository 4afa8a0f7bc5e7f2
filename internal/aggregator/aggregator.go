// Package aggregator fans a listing request out to every registered provider
// adapter, merges the results into one ranked view, and keeps the market
// cache warm with whatever survives.
//
// Provider failures are soft: a listing succeeds as long as at least one
// adapter answers, and the failing sources are simply absent from the result.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/conc"

	"github.com/tessora/marketscope/internal/logger"
	"github.com/tessora/marketscope/internal/metrics"
	"github.com/tessora/marketscope/internal/models"
	"github.com/tessora/marketscope/internal/provider"
	"github.com/tessora/marketscope/internal/store"
)

// Filters narrows a listing after the merge. All fields are optional and
// combine with AND semantics.
type Filters struct {
	Source   models.Source // exact source match
	Category string        // case-insensitive category match
	Search   string        // substring over question and description
}

// Listing is the ranked, truncated result of one aggregation pass.
type Listing struct {
	Count   int                   `json:"count"`
	Markets []models.Market       `json:"markets"`
	Sources map[models.Source]int `json:"sources"`
}

// Aggregator coordinates the provider adapters and the market cache.
type Aggregator struct {
	adapters []provider.Adapter
	store    *store.Store
	metrics  *metrics.Metrics
}

// New creates an aggregator over the given adapters, in ranking tie-break
// order.
func New(store *store.Store, metrics *metrics.Metrics, adapters ...provider.Adapter) *Aggregator {
	return &Aggregator{
		adapters: adapters,
		store:    store,
		metrics:  metrics,
	}
}

// ListMarkets fetches from every adapter concurrently, merges, filters,
// ranks by score descending, truncates to limit, and upserts the surviving
// markets into the cache.
//
// Each adapter is asked for ceil(limit/n) markets so the merged pool can fill
// the limit even when one source dominates. An adapter error is logged and
// its source dropped from the result; only when every adapter fails does the
// listing itself fail, with the errors joined.
func (a *Aggregator) ListMarkets(ctx context.Context, limit int, f Filters) (*Listing, error) {
	if limit <= 0 {
		limit = 20
	}
	if len(a.adapters) == 0 {
		return nil, fmt.Errorf("no provider adapters registered")
	}

	subLimit := (limit + len(a.adapters) - 1) / len(a.adapters)

	results := make([][]models.Market, len(a.adapters))
	errs := make([]error, len(a.adapters))

	var wg conc.WaitGroup
	for i, adapter := range a.adapters {
		wg.Go(func() {
			if a.metrics != nil {
				a.metrics.FetchTotal.WithLabelValues(string(adapter.Source())).Inc()
			}
			markets, err := adapter.Markets(ctx, subLimit)
			if err != nil {
				if a.metrics != nil {
					a.metrics.FetchErrors.WithLabelValues(string(adapter.Source())).Inc()
				}
				errs[i] = fmt.Errorf("%s: %w", adapter.Source(), err)
				return
			}
			results[i] = markets
		})
	}
	wg.Wait()

	var merged []models.Market
	var failures []error
	for i := range a.adapters {
		if errs[i] != nil {
			logger.Warn("Provider %s failed: %v", a.adapters[i].Source(), errs[i])
			failures = append(failures, errs[i])
			continue
		}
		// A degenerate listing (empty question, out-of-range price) is dropped
		// rather than failing the pass: the rest of the pool is still good.
		for _, m := range results[i] {
			if err := m.Validate(); err != nil {
				logger.Warn("Dropping invalid market %s from %s: %v", m.ID, a.adapters[i].Source(), err)
				continue
			}
			merged = append(merged, m)
		}
	}
	if len(failures) == len(a.adapters) {
		return nil, fmt.Errorf("all providers failed: %w", errors.Join(failures...))
	}

	merged = applyFilters(merged, f)

	// Stable sort keeps adapter registration order on equal scores.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	for i := range merged {
		if err := a.store.UpsertMarket(ctx, &merged[i]); err != nil {
			return nil, fmt.Errorf("failed to cache market %s: %w", merged[i].ID, err)
		}
		if a.metrics != nil {
			a.metrics.MarketsCached.Inc()
		}
	}

	listing := &Listing{
		Count:   len(merged),
		Markets: merged,
		Sources: map[models.Source]int{},
	}
	for _, m := range merged {
		listing.Sources[m.Source]++
	}
	return listing, nil
}

// GetMarket serves a single market, cache first. On a miss it probes the
// adapters in registration order, caches the first hit, and returns it.
func (a *Aggregator) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	cached, err := a.store.GetMarket(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	lastErr := err
	for _, adapter := range a.adapters {
		if a.metrics != nil {
			a.metrics.FetchTotal.WithLabelValues(string(adapter.Source())).Inc()
		}
		m, err := adapter.MarketByID(ctx, id)
		if err != nil {
			if !isNotFound(err) {
				if a.metrics != nil {
					a.metrics.FetchErrors.WithLabelValues(string(adapter.Source())).Inc()
				}
				logger.Warn("Provider %s lookup of %s failed: %v", adapter.Source(), id, err)
				lastErr = err
			}
			continue
		}
		if err := m.Validate(); err != nil {
			logger.Warn("Dropping invalid market %s from %s: %v", id, adapter.Source(), err)
			continue
		}
		if err := a.store.UpsertMarket(ctx, &m); err != nil {
			return nil, fmt.Errorf("failed to cache market %s: %w", id, err)
		}
		if a.metrics != nil {
			a.metrics.MarketsCached.Inc()
		}
		return &m, nil
	}

	return nil, fmt.Errorf("market %s: %w", id, lastErr)
}

// ListCategories reports the distinct categories of the cached markets.
func (a *Aggregator) ListCategories(ctx context.Context) ([]store.CategoryCount, error) {
	return a.store.ListCategories(ctx)
}

func applyFilters(markets []models.Market, f Filters) []models.Market {
	if f.Source == "" && f.Category == "" && f.Search == "" {
		return markets
	}

	search := strings.ToLower(f.Search)
	out := markets[:0]
	for _, m := range markets {
		if f.Source != "" && m.Source != f.Source {
			continue
		}
		if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Question), search) &&
			!strings.Contains(strings.ToLower(m.Description), search) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, provider.ErrNotFound)
}
