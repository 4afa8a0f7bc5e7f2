// Package models defines the core domain entities for the marketscope application.
// These models represent normalized prediction-market listings, threshold alert
// rules, and notification subscriptions. All models include built-in validation
// to ensure data integrity throughout the application.
//
// A Market is the canonical cross-provider representation: every provider
// adapter transforms its native listing shape into this one, including the
// derived 0-100 quality score used for ranking.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Source identifies the external provider a market was fetched from.
type Source string

const (
	SourcePolymarket Source = "polymarket"
	SourceKalshi     Source = "kalshi"
)

// Valid reports whether s is a known provider tag.
func (s Source) Valid() bool {
	return s == SourcePolymarket || s == SourceKalshi
}

// Market represents one normalized prediction-market listing.
//
// OutcomePrices and Outcomes are parallel sequences: OutcomePrices[i] is the
// current price of Outcomes[i]. Score is always derived from the liquidity and
// volume fields by the owning adapter; it is never provider-supplied and is
// recomputed on every transform.
type Market struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	EndDate       time.Time `json:"end_date,omitzero"` // resolution/closing time, zero when unknown
	Liquidity     float64   `json:"liquidity"`
	Volume        float64   `json:"volume"`      // all-time or open-interest-derived
	Volume24h     float64   `json:"volume_24h"`  // rolling 24-hour volume
	OutcomePrices []float64 `json:"outcome_prices"`
	Outcomes      []string  `json:"outcomes"`
	Score         float64   `json:"score"` // derived composite, 0-100, one decimal
	Image         string    `json:"image,omitempty"`
	Active        bool      `json:"active"`
	Closed        bool      `json:"closed"`
	Source        Source    `json:"source"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"` // set by the store on upsert
}

// Validate checks that all market fields are valid.
func (m *Market) Validate() error {
	if m.ID == "" {
		return errors.New("market ID must not be empty")
	}
	if m.Question == "" {
		return errors.New("market question must not be empty")
	}
	if !m.Source.Valid() {
		return fmt.Errorf("unknown market source %q", m.Source)
	}
	if m.Liquidity < 0 {
		return errors.New("liquidity must not be negative")
	}
	if m.Volume < 0 {
		return errors.New("volume must not be negative")
	}
	if m.Volume24h < 0 {
		return errors.New("volume 24h must not be negative")
	}
	if m.Score < 0 || m.Score > 100 {
		return errors.New("score must be between 0 and 100")
	}
	if len(m.OutcomePrices) > 0 && len(m.Outcomes) > 0 && len(m.OutcomePrices) != len(m.Outcomes) {
		return errors.New("outcome prices and outcomes must have the same length")
	}
	for _, p := range m.OutcomePrices {
		if p < 0 || p > 1 {
			return errors.New("outcome prices must be between 0.0 and 1.0")
		}
	}
	return nil
}

// HoursUntilClose returns the number of hours until the market's end date.
// Returns false when the end date is unknown.
func (m *Market) HoursUntilClose(now time.Time) (float64, bool) {
	if m.EndDate.IsZero() {
		return 0, false
	}
	return m.EndDate.Sub(now).Hours(), true
}
