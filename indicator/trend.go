package indicator

import (
	"math"

	"github.com/driftline/signum/types"
)

// EMACross compares a fast and a slow EMA of the closes. Bullish while the
// fast average rides above the slow one; strength is the percentage gap
// between the two, capped at 100.
func EMACross(s types.Series, fast, slow int) Result {
	// Minimum lookback is the fast period: the slow EMA degrades to its
	// running-mean seed on shorter windows, which is still a usable baseline.
	if fast <= 0 || slow <= 0 || fast >= slow || len(s) < fast {
		return neutral(NameEMACross, Trend)
	}
	closes := s.Closes()
	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)
	f := fastSeries[len(fastSeries)-1]
	sl := slowSeries[len(slowSeries)-1]
	if sl == 0 {
		return neutral(NameEMACross, Trend)
	}
	sig := 1
	if f <= sl {
		sig = -1
	}
	strength := cap100(math.Abs(f-sl) / math.Abs(sl) * 100)
	return Result{
		Name:     NameEMACross,
		Category: Trend,
		Signal:   sig,
		Strength: strength,
		Raw:      map[string]float64{"fast": f, "slow": sl},
	}
}

// MACD is the fast/slow EMA difference with an EMA signal line over the
// difference series. The histogram (macd minus signal line) relative to the
// macd value gives the strength.
func MACD(s types.Series, fast, slow, signalPeriod int) Result {
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 || len(s) < slow+signalPeriod {
		return neutral(NameMACD, Trend)
	}
	closes := s.Closes()
	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)
	macdSeries := make([]float64, len(closes))
	for i := range closes {
		macdSeries[i] = fastSeries[i] - slowSeries[i]
	}
	signalSeries := emaSeries(macdSeries, signalPeriod)
	macd := macdSeries[len(macdSeries)-1]
	signalLine := signalSeries[len(signalSeries)-1]
	histogram := macd - signalLine

	sig := 1
	if macd <= signalLine {
		sig = -1
	}
	strength := 0.0
	if macd != 0 {
		strength = cap100(math.Abs(histogram) / math.Abs(macd) * 100)
	}
	return Result{
		Name:     NameMACD,
		Category: Trend,
		Signal:   sig,
		Strength: strength,
		Raw: map[string]float64{
			"macd":      macd,
			"signal":    signalLine,
			"histogram": histogram,
		},
	}
}

// LinRegTrend fits a least-squares line through the last period closes and
// reads direction from the slope. The slope is normalized by the last close
// so strength is comparable across price scales.
func LinRegTrend(s types.Series, period int) Result {
	if period < 2 || len(s) < period {
		return neutral(NameLinReg, Trend)
	}
	closes := s.Closes()
	window := closes[len(closes)-period:]
	last := window[len(window)-1]
	if last == 0 {
		return neutral(NameLinReg, Trend)
	}
	sl := slope(window)
	normSlope := sl / last * 100 // percent per bar
	sig := 1
	if sl <= 0 {
		sig = -1
	}
	if sl == 0 {
		sig = 0
	}
	return Result{
		Name:     NameLinReg,
		Category: Trend,
		Signal:   sig,
		Strength: cap100(math.Abs(normSlope) * 100),
		Raw:      map[string]float64{"slope": sl, "slope_pct": normSlope},
	}
}
