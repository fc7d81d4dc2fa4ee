package types

import "time"

// Direction is the directional verdict for a symbol at one evaluation tick.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	Flat  Direction = "FLAT"
)

// Side is the order side understood by the execution collaborator.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// PriceBar is one OHLCV candle. Bars are immutable once recorded; the
// engine only ever reads a trailing window of them.
type PriceBar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series is an ordered, append-only sequence of bars.
type Series []PriceBar

// Closes extracts the closing prices in bar order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the per-bar volumes in bar order.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Volume
	}
	return out
}

// Last returns the most recent bar; ok is false for an empty series.
func (s Series) Last() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}

// Tail returns the trailing n bars (or the whole series when shorter).
func (s Series) Tail(n int) Series {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // limit price; 0 = market
	// meta
	Comment string
}

// TradingSignal is the engine's output for one evaluation tick. It is
// created once and never mutated; the execution collaborator consumes it.
type TradingSignal struct {
	Symbol         string
	Direction      Direction
	Confidence     float64 // [0,1]
	CompositeScore float64 // [-100,100]
	EntryPrice     float64
	StopLoss       float64
	TakeProfit     float64
	Size           float64 // quantity in units of the symbol
	Notional       float64 // Size * EntryPrice
	IndicatorsUsed []string
}

// Actionable reports whether the signal asks for an order at all.
func (t TradingSignal) Actionable() bool {
	return t.Direction != Flat && t.Size > 0
}
