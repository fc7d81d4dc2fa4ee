package executor

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/driftline/signum/logger"
	"github.com/driftline/signum/metrics"
	"github.com/driftline/signum/types"
)

// Executor is the order-execution collaborator. The engine only needs to
// submit instructions and read back account/position state.
type Executor interface {
	Submit(o types.Order) error
	Equity() float64
	Position(symbol string) (qty float64, avgPrice float64)
}

// ErrInsufficientCash is returned when a buy would exceed available equity.
var ErrInsufficientCash = errors.New("executor: insufficient cash")

// PaperExecutor is a simple paper trader: perfect fills, no slippage.
// Cash and average-price accounting run through decimal so repeated fills
// don't accumulate float error.
type PaperExecutor struct {
	mu        sync.Mutex
	equity    decimal.Decimal
	positions map[string]decimal.Decimal // qty (positive = long, negative = short)
	avgPrice  map[string]decimal.Decimal
	log       logger.Logger
}

func NewPaperExecutor(startEquity float64, log logger.Logger) *PaperExecutor {
	return &PaperExecutor{
		equity:    decimal.NewFromFloat(startEquity),
		positions: make(map[string]decimal.Decimal),
		avgPrice:  make(map[string]decimal.Decimal),
		log:       log,
	}
}

func (p *PaperExecutor) Submit(o types.Order) error {
	if o.Qty == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	qty := decimal.NewFromFloat(o.Qty)
	price := decimal.NewFromFloat(o.Price)
	cost := price.Mul(qty)

	prevQty := p.positions[o.Symbol]
	if o.Side == types.Buy {
		if cost.GreaterThan(p.equity) {
			return ErrInsufficientCash
		}
		p.equity = p.equity.Sub(cost)
		p.positions[o.Symbol] = prevQty.Add(qty)
	} else {
		p.equity = p.equity.Add(cost)
		p.positions[o.Symbol] = prevQty.Sub(qty)
	}
	p.updateAvgPrice(o.Symbol, prevQty, price)

	metrics.EquityGauge.Set(p.equity.InexactFloat64())
	p.log.Info("paper_fill",
		logger.String("symbol", o.Symbol),
		logger.String("side", string(o.Side)),
		logger.Float64("qty", o.Qty),
		logger.Float64("price", o.Price),
		logger.Float64("equity", p.equity.InexactFloat64()),
	)
	return nil
}

// updateAvgPrice keeps a volume-weighted average entry. Crossing through
// flat or adding to a fresh position resets the average to the fill price;
// reducing a position leaves it unchanged.
func (p *PaperExecutor) updateAvgPrice(symbol string, prevQty, price decimal.Decimal) {
	newQty := p.positions[symbol]
	switch {
	case newQty.IsZero():
		delete(p.avgPrice, symbol)
		delete(p.positions, symbol)
	case prevQty.IsZero() || prevQty.Sign() != newQty.Sign():
		p.avgPrice[symbol] = price
	case newQty.Abs().GreaterThan(prevQty.Abs()):
		added := newQty.Abs().Sub(prevQty.Abs())
		prevAvg := p.avgPrice[symbol]
		weighted := prevAvg.Mul(prevQty.Abs()).Add(price.Mul(added))
		p.avgPrice[symbol] = weighted.Div(newQty.Abs())
	}
}

func (p *PaperExecutor) Equity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.equity.InexactFloat64()
}

func (p *PaperExecutor) Position(symbol string) (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[symbol].InexactFloat64(), p.avgPrice[symbol].InexactFloat64()
}
