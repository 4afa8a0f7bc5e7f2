package polymarket

import "github.com/tessora/marketscope/internal/provider"

// RawMarket is a market listing as returned by the Polymarket Gamma API.
//
// Several fields arrive in ambiguous shapes: liquidity and volume may be
// numbers or quoted strings, and outcomes/outcomePrices are usually
// JSON-encoded strings rather than native arrays. The provider decode types
// absorb all of that so Transform never has to deal with it.
type RawMarket struct {
	ID            string               `json:"id"`
	ConditionID   string               `json:"condition_id"`
	Question      string               `json:"question"`
	Description   string               `json:"description"`
	Category      string               `json:"category"`
	Tags          provider.StringSlice `json:"tags"`
	EndDateISO    string               `json:"end_date_iso"`
	EndDate       string               `json:"endDate"`
	Liquidity     provider.Float       `json:"liquidity"`
	Volume        provider.Float       `json:"volume"`
	Volume24hr    provider.Float       `json:"volume24hr"`
	OutcomePrices provider.StringSlice `json:"outcomePrices"`
	Outcomes      provider.StringSlice `json:"outcomes"`
	Tokens        []RawToken           `json:"tokens"`
	Image         string               `json:"image"`
	Active        *bool                `json:"active"`
	Closed        bool                 `json:"closed"`
}

// RawToken is the CLOB-shaped outcome token some Gamma responses carry in
// place of the outcomes/outcomePrices pair.
type RawToken struct {
	Outcome string         `json:"outcome"`
	Price   provider.Float `json:"price"`
}
