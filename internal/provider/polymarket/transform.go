package polymarket

import (
	"time"

	"github.com/tessora/marketscope/internal/models"
	"github.com/tessora/marketscope/internal/provider"
)

// Norms are the score normalization constants for Polymarket. Liquidity is
// normalized against $100k, all-time volume against $500k, and 24h volume
// against $50k, reflecting the typical scale of an active Gamma market.
var Norms = provider.ScoreNorms{Liquidity: 100000, Volume: 500000, Activity: 50000}

// fallbackCategory is used when a market carries neither a category nor tags.
const fallbackCategory = "Other"

// Transform converts a raw Gamma listing into the canonical Market. It is a
// pure function with no I/O and never fails: missing numerics become 0,
// missing sequences become empty, and the category falls back to the first
// tag and then to "Other".
func Transform(raw RawMarket) models.Market {
	id := raw.ConditionID
	if id == "" {
		id = raw.ID
	}

	category := raw.Category
	if category == "" && len(raw.Tags) > 0 {
		category = raw.Tags[0]
	}
	if category == "" {
		category = fallbackCategory
	}

	outcomePrices := raw.OutcomePrices.Floats()
	outcomes := []string(raw.Outcomes)
	if len(outcomePrices) == 0 && len(raw.Tokens) > 0 {
		outcomePrices = make([]float64, len(raw.Tokens))
		for i, tok := range raw.Tokens {
			outcomePrices[i] = tok.Price.Float64()
		}
	}
	if len(outcomes) == 0 && len(raw.Tokens) > 0 {
		outcomes = make([]string, len(raw.Tokens))
		for i, tok := range raw.Tokens {
			outcomes[i] = tok.Outcome
		}
	}
	if outcomes == nil {
		outcomes = []string{}
	}

	liquidity := raw.Liquidity.Float64()
	volume := raw.Volume.Float64()
	volume24h := raw.Volume24hr.Float64()

	return models.Market{
		ID:            id,
		Question:      raw.Question,
		Description:   raw.Description,
		Category:      category,
		EndDate:       parseEndDate(raw.EndDateISO, raw.EndDate),
		Liquidity:     liquidity,
		Volume:        volume,
		Volume24h:     volume24h,
		OutcomePrices: outcomePrices,
		Outcomes:      outcomes,
		Score:         provider.Score(liquidity, volume, volume24h, Norms),
		Image:         raw.Image,
		Active:        raw.Active == nil || *raw.Active,
		Closed:        raw.Closed,
		Source:        models.SourcePolymarket,
	}
}

// parseEndDate tries each candidate timestamp in order, returning the zero
// time when none parses.
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
