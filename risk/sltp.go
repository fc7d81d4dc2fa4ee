package risk

import (
	"math"

	"github.com/driftline/signum/config"
	"github.com/driftline/signum/types"
)

// Factors are the four normalized inputs to the SL/TP distance blend.
type Factors struct {
	VolatilityPct  float64 // ATR percent of price
	RSI            float64 // raw RSI value [0,100]
	RelativeVolume float64 // last volume / period average
	TrendStrength  float64 // [0,100]
}

// Normalization scales. Each factor maps into [0,1] before blending; higher
// volatility or trend pushes both distances toward their upper bound.
const (
	volNormScale    = 10.0 // 10% ATR saturates the volatility factor
	relVolNormScale = 3.0  // 3x average volume saturates the volume factor
)

// Distances blends the four factors with the profile's factor weights into
// a fraction f in [0,1], then maps f linearly into the configured stop and
// target bounds. Both outputs are percent distances from entry.
func Distances(f Factors, p config.RiskProfile) (slPct, tpPct float64) {
	volNorm := clamp01(f.VolatilityPct / volNormScale)
	rsiNorm := clamp01(math.Abs(f.RSI-50) / 50)
	volumeNorm := clamp01(f.RelativeVolume / relVolNormScale)
	trendNorm := clamp01(f.TrendStrength / 100)

	w := p.FactorWeights
	blend := (w.Volatility*volNorm + w.RSI*rsiNorm + w.Volume*volumeNorm + w.Trend*trendNorm) / 100
	blend = clamp01(blend)

	slPct = p.StopLossBounds.Min + blend*(p.StopLossBounds.Max-p.StopLossBounds.Min)
	tpPct = p.TakeProfitBounds.Min + blend*(p.TakeProfitBounds.Max-p.TakeProfitBounds.Min)
	return slPct, tpPct
}

// Levels turns percent distances into absolute stop and target prices for
// the given direction.
func Levels(entry float64, dir types.Direction, slPct, tpPct float64) (stop, target float64) {
	if dir == types.Short {
		return entry * (1 + slPct/100), entry * (1 - tpPct/100)
	}
	return entry * (1 - slPct/100), entry * (1 + tpPct/100)
}
