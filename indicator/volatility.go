package indicator

import (
	"math"

	"github.com/driftline/signum/types"
)

// Bollinger band positions outside these fractions count as overextension.
const (
	bollingerUpperZone = 0.8
	bollingerLowerZone = 0.2
)

// Bollinger computes period-mean ± width×stddev bands and locates the last
// close inside them. Touching the upper zone is a fade-short signal, the
// lower zone a fade-long; strength ramps linearly from the zone edge to the
// band itself.
func Bollinger(s types.Series, period int, width float64) Result {
	if period < 2 || width <= 0 || len(s) < period {
		return neutral(NameBollinger, Volatility)
	}
	closes := s.Closes()
	window := closes[len(closes)-period:]
	mean := sma(window)
	sd := stddev(window, mean)
	upper := mean + width*sd
	lower := mean - width*sd
	if upper == lower {
		return neutral(NameBollinger, Volatility)
	}
	price := closes[len(closes)-1]
	position := (price - lower) / (upper - lower)

	sig, strength := 0, 0.0
	switch {
	case position > bollingerUpperZone:
		sig = -1
		strength = cap100((position - bollingerUpperZone) / (1 - bollingerUpperZone) * 100)
	case position < bollingerLowerZone:
		sig = 1
		strength = cap100((bollingerLowerZone - position) / bollingerLowerZone * 100)
	}
	return Result{
		Name:     NameBollinger,
		Category: Volatility,
		Signal:   sig,
		Strength: strength,
		Raw: map[string]float64{
			"upper":    upper,
			"middle":   mean,
			"lower":    lower,
			"position": position,
		},
	}
}

// Volatility regime flags, expressed as ATR percent of price.
const (
	HighVolatilityPct = 8.0
	LowVolatilityPct  = 2.0
)

// ATR is the period mean of the true range, reported as a percent of the
// last close. It is a risk-engine input rather than a directional signal,
// so Signal and Strength stay zero; the regime flags land in Raw.
func ATR(s types.Series, period int) Result {
	if period < 1 || len(s) < period+1 {
		return neutral(NameATR, Volatility)
	}
	window := s[len(s)-period-1:]
	sum := 0.0
	for i := 1; i < len(window); i++ {
		prevClose := window[i-1].Close
		tr := math.Max(window[i].High-window[i].Low,
			math.Max(math.Abs(window[i].High-prevClose), math.Abs(window[i].Low-prevClose)))
		sum += tr
	}
	atr := sum / float64(period)
	last := window[len(window)-1].Close
	volPct := 0.0
	if last != 0 {
		volPct = atr / last * 100
	}
	raw := map[string]float64{"atr": atr, "volatility_pct": volPct}
	if volPct > HighVolatilityPct {
		raw["high_volatility"] = 1
	}
	if volPct < LowVolatilityPct {
		raw["low_volatility"] = 1
	}
	return Result{Name: NameATR, Category: Volatility, Signal: 0, Strength: 0, Raw: raw}
}
