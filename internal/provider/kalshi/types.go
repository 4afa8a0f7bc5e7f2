package kalshi

import "github.com/tessora/marketscope/internal/provider"

// RawMarket is a market as returned by the Kalshi trade API.
//
// Prices are quoted in cents. Volume, 24h volume, and open interest come in
// contract counts with optional fixed-point string variants (the *_fp
// fields); when a fixed-point variant is present it takes precedence.
type RawMarket struct {
	Ticker         string         `json:"ticker"`
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Question       string         `json:"question"`
	Subtitle       string         `json:"subtitle"`
	Description    string         `json:"description"`
	LastPrice      provider.Float `json:"last_price"`
	YesBid         provider.Float `json:"yes_bid"`
	YesAsk         provider.Float `json:"yes_ask"`
	Volume         provider.Float `json:"volume"`
	VolumeFP       provider.Float `json:"volume_fp"`
	Volume24h      provider.Float `json:"volume_24h"`
	Volume24hFP    provider.Float `json:"volume_24h_fp"`
	OpenInterest   provider.Float `json:"open_interest"`
	OpenInterestFP provider.Float `json:"open_interest_fp"`
	ExpirationTime string         `json:"expiration_time"`
	CloseTime      string         `json:"close_time"`
	Status         string         `json:"status"`
}

// marketsResponse wraps the list endpoint payload.
type marketsResponse struct {
	Markets []RawMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// marketResponse wraps the single-market endpoint payload.
type marketResponse struct {
	Market RawMarket `json:"market"`
}
