// Package provider defines the contract shared by all external
// prediction-market sources and the error taxonomy the aggregator uses to
// isolate per-provider failures.
//
// Each adapter pairs a thin HTTP client with a pure transform from the
// provider-native listing shape into the canonical models.Market, including
// the derived quality score. Adapters never let ambiguous provider payloads
// leak past the transform: malformed fields decode to zero values.
package provider

import (
	"context"
	"errors"

	"github.com/tessora/marketscope/internal/models"
)

var (
	// ErrUnavailable indicates a network failure or server error from an
	// external provider. During aggregation it is recovered per-provider;
	// on single-market lookups it propagates to the caller.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrAuth indicates a missing or rejected provider credential. It always
	// surfaces and is never retried automatically.
	ErrAuth = errors.New("provider authentication failed")

	// ErrNotFound indicates the provider reports no market for the given id.
	ErrNotFound = errors.New("market not found")
)

// Adapter is one external market source. Implementations fetch raw listings
// and return them already transformed into canonical Market records.
type Adapter interface {
	// Source returns the provider tag stamped on every market this adapter
	// produces.
	Source() models.Source

	// Markets fetches up to limit listings from the provider and transforms
	// them. A failure reports ErrUnavailable or ErrAuth.
	Markets(ctx context.Context, limit int) ([]models.Market, error)

	// MarketByID fetches a single listing. Same failure modes as Markets,
	// plus ErrNotFound when the provider has no such id.
	MarketByID(ctx context.Context, id string) (models.Market, error)
}
