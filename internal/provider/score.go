package provider

import "math"

// ScoreNorms holds the normalization constants for the composite quality
// score. Each adapter carries its own set, tuned to the provider's typical
// liquidity and volume scale, so that scores stay comparable across providers
// whose native values differ by an order of magnitude.
type ScoreNorms struct {
	Liquidity float64
	Volume    float64
	Activity  float64
}

// Score computes the 0-100 composite quality score from liquidity, all-time
// volume, and rolling 24-hour volume:
//
//	score = 0.4·min(liq/L·100, 100) + 0.4·min(vol/V·100, 100) + 0.2·min(vol24h/A·100, 100)
//
// rounded to one decimal place. The result depends only on the inputs and the
// norms; it carries no provider state.
func Score(liquidity, volume, volume24h float64, norms ScoreNorms) float64 {
	liquidityScore := clamp(liquidity / norms.Liquidity * 100)
	volumeScore := clamp(volume / norms.Volume * 100)
	activityScore := clamp(volume24h / norms.Activity * 100)

	score := liquidityScore*0.4 + volumeScore*0.4 + activityScore*0.2
	return math.Round(score*10) / 10
}

func clamp(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}
