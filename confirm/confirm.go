// Package confirm provides an optional multi-timeframe agreement filter:
// two independent indicator suites (fast and slow resolution) must both
// lean the same way before a directional signal is allowed through.
package confirm

import (
	"sync"

	"github.com/evdnx/goti"

	"github.com/driftline/signum/logger"
	"github.com/driftline/signum/types"
)

// minHistory is how many bars a symbol needs before the filter has an
// opinion; below it the filter abstains (never vetoes).
const minHistory = 15

// Confirmer tracks per-symbol fast/slow suites. Safe for concurrent use.
type Confirmer struct {
	log logger.Logger

	mu     sync.Mutex
	states map[string]*symbolState
}

type symbolState struct {
	fast   *goti.IndicatorSuite
	slow   *goti.IndicatorSuite
	closes []float64
}

// NewConfirmer returns an empty filter; suites are created lazily per
// symbol on the first observed bar.
func NewConfirmer(log logger.Logger) *Confirmer {
	return &Confirmer{
		log:    log,
		states: make(map[string]*symbolState),
	}
}

func newSuite() (*goti.IndicatorSuite, error) {
	ic := goti.DefaultConfig()
	return goti.NewIndicatorSuiteWithConfig(ic)
}

// Observe feeds one bar into both suites for the symbol. The slow suite
// receives the same bars; it trims to its longer window internally.
func (c *Confirmer) Observe(symbol string, bar types.PriceBar) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[symbol]
	if !ok {
		fast, err := newSuite()
		if err != nil {
			return err
		}
		slow, err := newSuite()
		if err != nil {
			return err
		}
		st = &symbolState{fast: fast, slow: slow}
		c.states[symbol] = st
	}
	if err := st.fast.Add(bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
		c.log.Warn("fast_suite_add_error", logger.String("symbol", symbol), logger.Err(err))
	}
	if err := st.slow.Add(bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
		c.log.Warn("slow_suite_add_error", logger.String("symbol", symbol), logger.Err(err))
	}
	st.closes = append(st.closes, bar.Close)
	if len(st.closes) > 64 {
		st.closes = st.closes[len(st.closes)-64:]
	}
	return nil
}

// Agrees reports whether both timeframes lean the signal's way. Unknown
// symbols, flat signals and warm-up windows abstain rather than veto.
func (c *Confirmer) Agrees(symbol string, dir types.Direction) bool {
	if dir == types.Flat {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[symbol]
	if !ok || len(st.closes) < minHistory {
		return true
	}

	fallbackBull := trendSlope(st.closes) > 0
	fallbackBear := trendSlope(st.closes) < 0

	fastBull, fastBear := fallbackBull, fallbackBear
	if ok, err := st.fast.GetHMA().IsBullishCrossover(); err == nil {
		fastBull = fastBull || ok
	}
	if ok, err := st.fast.GetHMA().IsBearishCrossover(); err == nil {
		fastBear = fastBear || ok
	}
	slowBull, slowBear := fallbackBull, fallbackBear
	if ok, err := st.slow.GetHMA().IsBullishCrossover(); err == nil {
		slowBull = slowBull || ok
	}
	if ok, err := st.slow.GetHMA().IsBearishCrossover(); err == nil {
		slowBear = slowBear || ok
	}

	if dir == types.Long {
		return fastBull && slowBull
	}
	return fastBear && slowBear
}

// Forget drops a symbol's state (delisted, or feed reset).
func (c *Confirmer) Forget(symbol string) {
	c.mu.Lock()
	delete(c.states, symbol)
	c.mu.Unlock()
}

// trendSlope is the least-squares slope over the trailing closes.
func trendSlope(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	lookback := 8
	if lookback >= n {
		lookback = n - 1
	}
	window := vals[n-lookback-1:]
	sumX, sumY, sumXY, sumXX := 0.0, 0.0, 0.0, 0.0
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	count := float64(len(window))
	den := count*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (count*sumXY - sumX*sumY) / den
}
