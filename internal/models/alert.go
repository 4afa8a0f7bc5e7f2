package models

import (
	"fmt"
	"time"
)

// AlertType identifies the condition an alert rule watches for.
type AlertType string

const (
	// AlertPriceChange triggers when the market score moves more than 10
	// points away from the rule threshold. The threshold is compared against
	// the 0-100 composite score, not an outcome price; callers supplying a
	// price-scale threshold will see it trigger almost immediately.
	AlertPriceChange AlertType = "price_change"
	// AlertVolumeSpike triggers when all-time volume exceeds the threshold.
	AlertVolumeSpike AlertType = "volume_spike"
	// AlertLiquidityLow triggers when liquidity drops below the threshold.
	AlertLiquidityLow AlertType = "liquidity_low"
	// AlertClosingSoon triggers when the market closes within 24 hours.
	// The threshold is ignored.
	AlertClosingSoon AlertType = "closing_soon"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertPriceChange, AlertVolumeSpike, AlertLiquidityLow, AlertClosingSoon:
		return true
	}
	return false
}

// AlertRule is a persisted threshold watch against one market.
//
// A rule starts pending (TriggeredAt nil) and is evaluated repeatedly against
// the latest cached market snapshot. Once triggered it is terminal: TriggeredAt
// is set exactly once and the rule is excluded from future evaluation passes.
type AlertRule struct {
	ID          int64      `json:"id"`
	MarketID    string     `json:"market_id"`
	Type        AlertType  `json:"alert_type"`
	Threshold   float64    `json:"threshold"`
	Message     string     `json:"message,omitempty"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// MarketQuestion is joined from the markets table on read; it is empty
	// when the referenced market is not cached.
	MarketQuestion string `json:"market_question,omitempty"`
}

// Pending reports whether the rule is still eligible for evaluation.
func (r *AlertRule) Pending() bool {
	return r.TriggeredAt == nil
}

// Validate checks that all rule fields are valid.
func (r *AlertRule) Validate() error {
	if r.MarketID == "" {
		return &ValidationError{Field: "market_id"}
	}
	if r.Type == "" {
		return &ValidationError{Field: "alert_type"}
	}
	if !r.Type.Valid() {
		return &ValidationError{Field: "alert_type", Reason: fmt.Sprintf("unknown alert type %q", r.Type)}
	}
	return nil
}

// Subscription registers an email's interest in alert notifications,
// optionally scoped to a single market. Delivery itself is handled elsewhere.
type Subscription struct {
	ID         int64       `json:"id"`
	Email      string      `json:"email"`
	MarketID   string      `json:"market_id,omitempty"`
	AlertTypes []AlertType `json:"alert_types"`
	CreatedAt  time.Time   `json:"created_at"`
}

// DefaultAlertTypes is the subscription default: the three reactive types
// plus closing_soon.
func DefaultAlertTypes() []AlertType {
	return []AlertType{AlertPriceChange, AlertVolumeSpike, AlertLiquidityLow, AlertClosingSoon}
}

// Validate checks that all subscription fields are valid.
func (s *Subscription) Validate() error {
	if s.Email == "" {
		return &ValidationError{Field: "email"}
	}
	for _, t := range s.AlertTypes {
		if !t.Valid() {
			return &ValidationError{Field: "alert_types", Reason: fmt.Sprintf("unknown alert type %q", t)}
		}
	}
	return nil
}

// ValidationError reports a missing or malformed field on a write operation.
// Handlers map it to a client-error response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}
