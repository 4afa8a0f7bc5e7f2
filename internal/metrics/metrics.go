// Package metrics exposes Prometheus metrics for provider fetches,
// aggregation requests, and alert evaluation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors on a private registry, so independent
// instances (one per test, one per daemon) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// Provider metrics
	FetchTotal    *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	MarketsCached prometheus.Counter

	// Alert metrics
	EvaluationPasses prometheus.Counter
	AlertsTriggered  *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketscope_provider_fetch_total",
			Help: "Provider list/lookup calls, by source.",
		}, []string{"source"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketscope_provider_fetch_errors_total",
			Help: "Failed provider calls, by source.",
		}, []string{"source"}),
		MarketsCached: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketscope_markets_cached_total",
			Help: "Market rows upserted into the store.",
		}),
		EvaluationPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketscope_alert_evaluation_passes_total",
			Help: "Completed alert evaluation passes.",
		}),
		AlertsTriggered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketscope_alerts_triggered_total",
			Help: "Alert rules transitioned to triggered, by type.",
		}, []string{"type"}),
	}
}

// Handler returns the scrape endpoint handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
