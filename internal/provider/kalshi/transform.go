package kalshi

import (
	"time"

	"github.com/tessora/marketscope/internal/models"
	"github.com/tessora/marketscope/internal/provider"
)

// Norms are the score normalization constants for Kalshi. Kalshi's native
// volumes run an order of magnitude below Polymarket's, so liquidity is
// normalized against 10k, all-time volume against 50k, and 24h volume
// against 5k to keep scores comparable across providers.
var Norms = provider.ScoreNorms{Liquidity: 10000, Volume: 50000, Activity: 5000}

// fallbackCategory is used for every Kalshi market: the trade API does not
// expose a category field.
const fallbackCategory = "Sports"

// Transform converts a raw Kalshi market into the canonical Market. It is a
// pure function with no I/O and never fails.
//
// Kalshi quotes prices in cents, so every price field is divided by 100. The
// yes price is synthesized from the bid/ask midpoint when either side is
// quoted, falling back to the last-traded price, and finally to an even
// 0.5/0.5 split; the no price is always its complement.
func Transform(raw RawMarket) models.Market {
	id := raw.Ticker
	if id == "" {
		id = raw.ID
	}

	question := raw.Title
	if question == "" {
		question = raw.Question
	}

	description := raw.Subtitle
	if description == "" {
		description = raw.Description
	}

	lastPrice := raw.LastPrice.Float64() / 100
	yesAsk := raw.YesAsk.Float64() / 100
	yesBid := raw.YesBid.Float64() / 100

	yesPrice := 0.5
	switch {
	case yesAsk > 0 || yesBid > 0:
		yesPrice = (yesAsk + yesBid) / 2
	case lastPrice > 0:
		yesPrice = lastPrice
	}
	noPrice := 1 - yesPrice

	volume := firstNonZero(raw.VolumeFP.Float64(), raw.Volume.Float64())
	volume24h := firstNonZero(raw.Volume24hFP.Float64(), raw.Volume24h.Float64())
	openInterest := firstNonZero(raw.OpenInterestFP.Float64(), raw.OpenInterest.Float64())

	return models.Market{
		ID:            id,
		Question:      question,
		Description:   description,
		Category:      fallbackCategory,
		EndDate:       parseEndDate(raw.ExpirationTime, raw.CloseTime),
		Liquidity:     openInterest,
		Volume:        volume,
		Volume24h:     volume24h,
		OutcomePrices: []float64{yesPrice, noPrice},
		Outcomes:      []string{"Yes", "No"},
		Score:         provider.Score(openInterest, volume, volume24h, Norms),
		Active:        raw.Status == "active",
		Closed:        raw.Status == "closed",
		Source:        models.SourceKalshi,
	}
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func parseEndDate(candidates ...string) time.Time {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, c); err == nil {
			return t
		}
	}
	return time.Time{}
}
