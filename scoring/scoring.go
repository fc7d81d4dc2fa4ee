package scoring

import (
	"math"

	"github.com/driftline/signum/config"
	"github.com/driftline/signum/indicator"
	"github.com/driftline/signum/types"
)

// Direction thresholds on the composite score.
const (
	LongThreshold  = 20.0
	ShortThreshold = -20.0
)

// CompositeScore is the fused verdict for one evaluation tick: the bounded
// total plus the per-category sub-scores that produced it. Immutable once
// created.
type CompositeScore struct {
	Value      float64 // [-100,100]
	Trend      float64
	Momentum   float64
	Volume     float64
	Volatility float64
}

// Score fuses a complete indicator result set into one CompositeScore.
// Each category score is the weighted sum of signal*strength across its
// members; categories are then combined with the category weights. An
// indicator with no configured weight contributes nothing, and a category
// whose members all report zero strength contributes exactly 0.
func Score(results []indicator.Result, w config.ScoreWeights) CompositeScore {
	cat := map[indicator.Category]float64{}
	for _, r := range results {
		sub, ok := w.Indicator[r.Category]
		if !ok {
			continue
		}
		weight, ok := sub[r.Name]
		if !ok {
			continue
		}
		cat[r.Category] += float64(r.Signal) * r.Strength * weight / 100
	}
	score := CompositeScore{
		Trend:      clampScore(cat[indicator.Trend]),
		Momentum:   clampScore(cat[indicator.Momentum]),
		Volume:     clampScore(cat[indicator.Volume]),
		Volatility: clampScore(cat[indicator.Volatility]),
	}
	total := score.Trend*w.Category.Trend/100 +
		score.Momentum*w.Category.Momentum/100 +
		score.Volume*w.Category.Volume/100 +
		score.Volatility*w.Category.Volatility/100
	score.Value = clampScore(total)
	return score
}

// DirectionOf maps a composite score to a trade direction.
func DirectionOf(score float64) types.Direction {
	switch {
	case score >= LongThreshold:
		return types.Long
	case score <= ShortThreshold:
		return types.Short
	default:
		return types.Flat
	}
}

// Confidence maps a composite score to [0,1].
func Confidence(score float64) float64 {
	c := math.Abs(score) / 100
	if c > 1 {
		return 1
	}
	return c
}

// clampScore is total: NaN collapses to 0 rather than poisoning the tick.
func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}
