package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/driftline/signum/config"
	"github.com/driftline/signum/indicator"
)

// ErrInvalidInput is returned when sizing cannot produce a sensible
// position: zero stop distance, non-positive balance, or a profile the
// caller failed to validate. The caller skips the trade.
var ErrInvalidInput = errors.New("risk: invalid input")

// SizingInput is everything position sizing needs for one candidate trade.
type SizingInput struct {
	Balance       float64
	EntryPrice    float64
	StopLoss      float64
	Confidence    float64 // [0,1]
	VolatilityPct float64 // ATR as percent of price
}

// Volatility multipliers: shrink size in stormy markets, lean in slightly
// when the tape is unusually quiet.
const (
	highVolSizeMult = 0.5
	lowVolSizeMult  = 1.2
)

// PositionSize converts a risk budget into a quantity. The dollar risk is
// balance * risk_per_trade, scaled by volatility and confidence, divided by
// the per-unit stop distance. The resulting notional is clamped into
// [MinPositionPct, MaxPositionPct] of balance, then the quantity is rounded
// down to the exchange step, precision and minimum.
//
// Sizing is a pure function: identical inputs always produce an identical
// quantity.
func PositionSize(in SizingInput, p config.RiskProfile) (qty, notional float64, err error) {
	if in.Balance <= 0 {
		return 0, 0, fmt.Errorf("%w: balance %v", ErrInvalidInput, in.Balance)
	}
	if in.EntryPrice <= 0 {
		return 0, 0, fmt.Errorf("%w: entry price %v", ErrInvalidInput, in.EntryPrice)
	}
	riskPerUnit := math.Abs(in.EntryPrice - in.StopLoss)
	if riskPerUnit == 0 {
		return 0, 0, fmt.Errorf("%w: zero risk per unit", ErrInvalidInput)
	}

	baseRisk := in.Balance * p.RiskPerTradePct / 100

	volMult := 1.0
	switch {
	case in.VolatilityPct > indicator.HighVolatilityPct:
		volMult = highVolSizeMult
	case in.VolatilityPct < indicator.LowVolatilityPct:
		volMult = lowVolSizeMult
	}
	sigMult := 0.5 + 0.5*clamp01(in.Confidence)

	qty = baseRisk * volMult * sigMult / riskPerUnit
	notional = qty * in.EntryPrice

	minNotional := p.MinPositionPct / 100 * in.Balance
	maxNotional := p.MaxPositionPct / 100 * in.Balance
	if notional < minNotional {
		notional = minNotional
	}
	if notional > maxNotional {
		notional = maxNotional
	}
	qty = roundQty(notional/in.EntryPrice, p)
	if qty <= 0 {
		return 0, 0, fmt.Errorf("%w: quantity rounds below exchange minimum", ErrInvalidInput)
	}
	return qty, qty * in.EntryPrice, nil
}

// roundQty applies the exchange constraints: floor to step size, floor to
// the quantity precision, zero out anything below the minimum order size.
// The tiny relative guard keeps quantities that land exactly on a step from
// flooring one step down due to float representation.
func roundQty(qty float64, p config.RiskProfile) float64 {
	const guard = 1 + 1e-12
	if p.StepSize > 0 {
		qty = math.Floor(qty/p.StepSize*guard) * p.StepSize
	}
	if p.QuantityPrecision >= 0 {
		scale := math.Pow(10, float64(p.QuantityPrecision))
		qty = math.Floor(qty*scale*guard) / scale
	}
	if p.MinQty > 0 && qty < p.MinQty {
		return 0
	}
	return qty
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
