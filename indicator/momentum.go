package indicator

import (
	"math"

	"github.com/driftline/signum/types"
)

// RSI thresholds widened from the classic 70/30 — intraday crypto spends a
// long time pinned near the classic bands, which makes them near-useless.
const (
	RSIOverbought = 75.0
	RSIOversold   = 25.0
)

// RSI computes the period-average gain/loss ratio over closes. avg_loss of
// zero is the degenerate all-gains case and maps to exactly 100.
func RSI(s types.Series, period int) Result {
	if period < 1 || len(s) < period+1 {
		return neutral(NameRSI, Momentum)
	}
	closes := s.Closes()
	window := closes[len(closes)-period-1:]
	gains, losses := 0.0, 0.0
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	rsi := 100.0
	if avgLoss != 0 {
		rs := avgGain / avgLoss
		rsi = 100 - 100/(1+rs)
	}

	sig, strength := 0, 0.0
	switch {
	case rsi > RSIOverbought:
		sig = -1
		strength = cap100((rsi - RSIOverbought) * 4)
	case rsi < RSIOversold:
		sig = 1
		strength = cap100((RSIOversold - rsi) * 4)
	}
	return Result{
		Name:     NameRSI,
		Category: Momentum,
		Signal:   sig,
		Strength: strength,
		Raw:      map[string]float64{"rsi": rsi, "avg_gain": avgGain, "avg_loss": avgLoss},
	}
}

// rocDeadband filters sub-noise moves; 0.5% over the lookback is flat.
const rocDeadband = 0.5

// ROC is the percent change of close over the lookback.
func ROC(s types.Series, period int) Result {
	if period < 1 || len(s) < period+1 {
		return neutral(NameROC, Momentum)
	}
	closes := s.Closes()
	base := closes[len(closes)-period-1]
	if base == 0 {
		return neutral(NameROC, Momentum)
	}
	roc := (closes[len(closes)-1] - base) / base * 100

	sig, strength := 0, 0.0
	switch {
	case roc > rocDeadband:
		sig = 1
		strength = cap100(math.Abs(roc) * 20)
	case roc < -rocDeadband:
		sig = -1
		strength = cap100(math.Abs(roc) * 20)
	}
	return Result{
		Name:     NameROC,
		Category: Momentum,
		Signal:   sig,
		Strength: strength,
		Raw:      map[string]float64{"roc": roc},
	}
}
