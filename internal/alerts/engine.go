// Package alerts evaluates pending alert rules against the latest cached
// market snapshots and performs the one-way pending-to-triggered transition.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tessora/marketscope/internal/logger"
	"github.com/tessora/marketscope/internal/metrics"
	"github.com/tessora/marketscope/internal/models"
	"github.com/tessora/marketscope/internal/store"
)

// closingSoonWindow is how far ahead of a market's end date the
// closing_soon condition holds.
const closingSoonWindow = 24 * time.Hour

// Notifier delivers triggered alerts to an external channel.
type Notifier interface {
	NotifyTriggered(ctx context.Context, rules []models.AlertRule) error
}

// Engine runs evaluation passes over the pending rules in the store.
type Engine struct {
	store    *store.Store
	notifier Notifier // optional
	metrics  *metrics.Metrics

	// now is replaceable for tests.
	now func() time.Time
}

// New creates an alert engine. notifier may be nil, in which case triggered
// alerts are only recorded in the store.
func New(s *store.Store, notifier Notifier, m *metrics.Metrics) *Engine {
	return &Engine{
		store:    s,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// EvaluatePending runs one evaluation pass: it loads every pending rule,
// evaluates each against the cached snapshot of its market, and transitions
// the rules whose condition holds. Rules whose market has never been cached
// are skipped. The returned slice holds the rules this pass triggered, with
// TriggeredAt and MarketQuestion filled in.
//
// The transition is guarded in the store, so overlapping passes cannot
// trigger the same rule twice; a rule another pass already claimed is simply
// not reported by this one.
func (e *Engine) EvaluatePending(ctx context.Context) ([]models.AlertRule, error) {
	passID := uuid.NewString()

	pending, err := e.store.PendingAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending alerts: %w", err)
	}
	logger.Debug("Alert pass %s: %d pending rule(s)", passID, len(pending))

	var triggered []models.AlertRule
	for _, rule := range pending {
		market, err := e.store.GetMarket(ctx, rule.MarketID)
		if errors.Is(err, store.ErrNotFound) {
			logger.Debug("Alert pass %s: rule %d skipped, market %s not cached", passID, rule.ID, rule.MarketID)
			continue
		}
		if err != nil {
			logger.Warn("Alert pass %s: rule %d: failed to load market %s: %v", passID, rule.ID, rule.MarketID, err)
			continue
		}

		if !e.conditionHolds(&rule, market) {
			continue
		}

		at := e.now()
		won, err := e.store.MarkTriggered(ctx, rule.ID, at)
		if err != nil {
			logger.Warn("Alert pass %s: rule %d: failed to mark triggered: %v", passID, rule.ID, err)
			continue
		}
		if !won {
			// Another pass got there first.
			continue
		}

		rule.TriggeredAt = &at
		rule.MarketQuestion = market.Question
		triggered = append(triggered, rule)
		if e.metrics != nil {
			e.metrics.AlertsTriggered.WithLabelValues(string(rule.Type)).Inc()
		}
		logger.Info("Alert %d triggered (%s) for market %s", rule.ID, rule.Type, rule.MarketID)
	}

	if e.metrics != nil {
		e.metrics.EvaluationPasses.Inc()
	}

	if len(triggered) > 0 && e.notifier != nil {
		if err := e.notifier.NotifyTriggered(ctx, triggered); err != nil {
			// Delivery failure never undoes the transition.
			logger.Error("Alert pass %s: notification failed: %v", passID, err)
		}
	}

	return triggered, nil
}

// conditionHolds evaluates one rule against the market snapshot.
func (e *Engine) conditionHolds(rule *models.AlertRule, market *models.Market) bool {
	switch rule.Type {
	case models.AlertPriceChange:
		return math.Abs(market.Score-rule.Threshold) > 10
	case models.AlertVolumeSpike:
		return market.Volume > rule.Threshold
	case models.AlertLiquidityLow:
		return market.Liquidity < rule.Threshold
	case models.AlertClosingSoon:
		hours, ok := market.HoursUntilClose(e.now())
		return ok && hours > 0 && hours < closingSoonWindow.Hours()
	}
	return false
}

// CreateRule validates and persists a new alert rule.
func (e *Engine) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	return e.store.CreateAlert(ctx, rule)
}

// ListRules returns every alert rule, newest first.
func (e *Engine) ListRules(ctx context.Context) ([]models.AlertRule, error) {
	return e.store.ListAlerts(ctx)
}

// DeleteRule removes an alert rule.
func (e *Engine) DeleteRule(ctx context.Context, id int64) error {
	return e.store.DeleteAlert(ctx, id)
}

// Subscribe registers an email for alert notifications.
func (e *Engine) Subscribe(ctx context.Context, sub *models.Subscription) error {
	return e.store.CreateSubscription(ctx, sub)
}

// Subscriptions lists registered subscriptions, optionally filtered by email.
func (e *Engine) Subscriptions(ctx context.Context, email string) ([]models.Subscription, error) {
	return e.store.ListSubscriptions(ctx, email)
}
