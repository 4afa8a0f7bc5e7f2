package models

import (
	"errors"
	"testing"
	"time"
)

func TestMarketValidate(t *testing.T) {
	tests := []struct {
		name    string
		market  Market
		wantErr bool
	}{
		{
			name: "valid market",
			market: Market{
				ID:            "0xcond-1",
				Question:      "Will X happen?",
				Category:      "Politics",
				Liquidity:     50000,
				Volume:        250000,
				Volume24h:     25000,
				OutcomePrices: []float64{0.75, 0.25},
				Outcomes:      []string{"Yes", "No"},
				Score:         50.0,
				Source:        SourcePolymarket,
				Active:        true,
			},
			wantErr: false,
		},
		{
			name: "empty ID",
			market: Market{
				Question: "Will X happen?",
				Source:   SourcePolymarket,
			},
			wantErr: true,
		},
		{
			name: "empty question",
			market: Market{
				ID:     "0xcond-1",
				Source: SourcePolymarket,
			},
			wantErr: true,
		},
		{
			name: "unknown source",
			market: Market{
				ID:       "0xcond-1",
				Question: "Will X happen?",
				Source:   "betfair",
			},
			wantErr: true,
		},
		{
			name: "negative liquidity",
			market: Market{
				ID:        "0xcond-1",
				Question:  "Will X happen?",
				Source:    SourcePolymarket,
				Liquidity: -1,
			},
			wantErr: true,
		},
		{
			name: "score above 100",
			market: Market{
				ID:       "0xcond-1",
				Question: "Will X happen?",
				Source:   SourcePolymarket,
				Score:    100.1,
			},
			wantErr: true,
		},
		{
			name: "mismatched outcome lengths",
			market: Market{
				ID:            "0xcond-1",
				Question:      "Will X happen?",
				Source:        SourcePolymarket,
				OutcomePrices: []float64{0.5, 0.5},
				Outcomes:      []string{"Yes"},
			},
			wantErr: true,
		},
		{
			name: "price out of range",
			market: Market{
				ID:            "0xcond-1",
				Question:      "Will X happen?",
				Source:        SourcePolymarket,
				OutcomePrices: []float64{1.5, -0.5},
				Outcomes:      []string{"Yes", "No"},
			},
			wantErr: true,
		},
		{
			name: "empty outcomes allowed",
			market: Market{
				ID:       "ELEC-24",
				Question: "Will Y happen?",
				Source:   SourceKalshi,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.market.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarketHoursUntilClose(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	m := Market{ID: "m-1", Question: "Q?", Source: SourcePolymarket, EndDate: now.Add(12 * time.Hour)}
	hours, ok := m.HoursUntilClose(now)
	if !ok {
		t.Fatal("expected known end date")
	}
	if hours != 12 {
		t.Errorf("expected 12 hours, got %v", hours)
	}

	m.EndDate = time.Time{}
	if _, ok := m.HoursUntilClose(now); ok {
		t.Error("expected ok=false for zero end date")
	}
}

func TestAlertRuleValidate(t *testing.T) {
	tests := []struct {
		name      string
		rule      AlertRule
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid rule",
			rule:    AlertRule{MarketID: "m-1", Type: AlertVolumeSpike, Threshold: 100},
			wantErr: false,
		},
		{
			name:      "missing market_id",
			rule:      AlertRule{Type: AlertVolumeSpike},
			wantErr:   true,
			wantField: "market_id",
		},
		{
			name:      "missing alert_type",
			rule:      AlertRule{MarketID: "m-1"},
			wantErr:   true,
			wantField: "alert_type",
		},
		{
			name:      "unknown alert_type",
			rule:      AlertRule{MarketID: "m-1", Type: "price_doubled"},
			wantErr:   true,
			wantField: "alert_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("expected field %q, got %q", tt.wantField, verr.Field)
				}
			}
		})
	}
}

func TestAlertRulePending(t *testing.T) {
	rule := AlertRule{MarketID: "m-1", Type: AlertVolumeSpike}
	if !rule.Pending() {
		t.Error("rule without TriggeredAt should be pending")
	}

	now := time.Now()
	rule.TriggeredAt = &now
	if rule.Pending() {
		t.Error("rule with TriggeredAt should not be pending")
	}
}

func TestSubscriptionValidate(t *testing.T) {
	sub := Subscription{Email: "trader@example.com", AlertTypes: DefaultAlertTypes()}
	if err := sub.Validate(); err != nil {
		t.Errorf("valid subscription rejected: %v", err)
	}

	sub = Subscription{AlertTypes: DefaultAlertTypes()}
	if err := sub.Validate(); err == nil {
		t.Error("subscription without email should be rejected")
	}

	sub = Subscription{Email: "trader@example.com", AlertTypes: []AlertType{"sms"}}
	if err := sub.Validate(); err == nil {
		t.Error("subscription with unknown alert type should be rejected")
	}
}

func TestDefaultAlertTypes(t *testing.T) {
	got := DefaultAlertTypes()
	if len(got) != 4 {
		t.Fatalf("expected 4 default alert types, got %d", len(got))
	}
	for _, at := range got {
		if !at.Valid() {
			t.Errorf("default alert type %q is not valid", at)
		}
	}
}
