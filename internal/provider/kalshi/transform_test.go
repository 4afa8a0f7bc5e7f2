package kalshi

import (
	"encoding/json"
	"testing"

	"github.com/tessora/marketscope/internal/models"
)

func TestTransform_YesNoSynthesis(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawMarket
		wantYes float64
	}{
		{
			name:    "bid ask midpoint",
			raw:     RawMarket{Ticker: "T-1", Title: "Q?", YesBid: 60, YesAsk: 64, LastPrice: 10},
			wantYes: 0.62,
		},
		{
			name:    "one sided book still uses midpoint",
			raw:     RawMarket{Ticker: "T-1", Title: "Q?", YesAsk: 50},
			wantYes: 0.25,
		},
		{
			name:    "falls back to last price",
			raw:     RawMarket{Ticker: "T-1", Title: "Q?", LastPrice: 42},
			wantYes: 0.42,
		},
		{
			name:    "no signal at all splits evenly",
			raw:     RawMarket{Ticker: "T-1", Title: "Q?"},
			wantYes: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Transform(tt.raw)

			if len(m.OutcomePrices) != 2 {
				t.Fatalf("expected 2 outcome prices, got %v", m.OutcomePrices)
			}
			if m.OutcomePrices[0] != tt.wantYes {
				t.Errorf("yes = %v, want %v", m.OutcomePrices[0], tt.wantYes)
			}
			// no = 1 - yes, exactly
			if m.OutcomePrices[0]+m.OutcomePrices[1] != 1 {
				t.Errorf("yes + no = %v, want exactly 1", m.OutcomePrices[0]+m.OutcomePrices[1])
			}
			if m.Outcomes[0] != "Yes" || m.Outcomes[1] != "No" {
				t.Errorf("unexpected outcomes %v", m.Outcomes)
			}
		})
	}
}

func TestTransform_FixedPointPrecedence(t *testing.T) {
	payload := `{
		"ticker": "ELEC-24",
		"title": "Will Y win?",
		"volume": 12000,
		"volume_fp": "15000.50",
		"volume_24h": 300,
		"open_interest": 8000
	}`
	var raw RawMarket
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatal(err)
	}

	m := Transform(raw)

	if m.Volume != 15000.50 {
		t.Errorf("expected fp volume 15000.50, got %v", m.Volume)
	}
	if m.Volume24h != 300 {
		t.Errorf("expected contract-count fallback 300, got %v", m.Volume24h)
	}
	if m.Liquidity != 8000 {
		t.Errorf("liquidity should come from open interest, got %v", m.Liquidity)
	}
}

func TestTransform_ScoreAndDefaults(t *testing.T) {
	raw := RawMarket{
		Ticker:       "ELEC-24",
		Title:        "Will Y win?",
		OpenInterest: 5000,
		Volume:       25000,
		Volume24h:    2500,
		Status:       "active",
	}

	m := Transform(raw)

	// 5k/10k, 25k/50k, 2.5k/5k all normalize to 50
	if m.Score != 50.0 {
		t.Errorf("expected score 50.0, got %v", m.Score)
	}
	if m.Category != "Sports" {
		t.Errorf("expected Sports fallback category, got %q", m.Category)
	}
	if m.Source != models.SourceKalshi {
		t.Errorf("expected kalshi source, got %s", m.Source)
	}
	if !m.Active || m.Closed {
		t.Errorf("status active should map to active=true closed=false: %+v", m)
	}
}

func TestTransform_EmptyNeverPanics(t *testing.T) {
	m := Transform(RawMarket{})
	if m.Score != 0 {
		t.Errorf("expected score 0 for empty market, got %v", m.Score)
	}
	if m.Score < 0 || m.Score > 100 {
		t.Errorf("score %v out of range", m.Score)
	}
	if m.OutcomePrices[0] != 0.5 || m.OutcomePrices[1] != 0.5 {
		t.Errorf("expected even split, got %v", m.OutcomePrices)
	}
}

func TestTransform_StatusMapping(t *testing.T) {
	m := Transform(RawMarket{Ticker: "T", Title: "Q?", Status: "closed"})
	if m.Active {
		t.Error("closed market should not be active")
	}
	if !m.Closed {
		t.Error("closed market should be closed")
	}
}

func TestTransform_EndDate(t *testing.T) {
	m := Transform(RawMarket{Ticker: "T", Title: "Q?", ExpirationTime: "2025-12-31T23:00:00Z"})
	if m.EndDate.IsZero() {
		t.Fatal("expected parsed expiration time")
	}

	m = Transform(RawMarket{Ticker: "T", Title: "Q?", CloseTime: "2025-12-31T23:00:00Z"})
	if m.EndDate.IsZero() {
		t.Fatal("expected close_time fallback")
	}
}
