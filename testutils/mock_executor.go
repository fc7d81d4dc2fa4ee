package testutils

import (
	"sync"

	"github.com/driftline/signum/types"
)

// MockExecutor implements the Executor interface in-memory and captures
// every submitted order for assertions.
type MockExecutor struct {
	mu        sync.RWMutex
	equity    float64
	positions map[string]float64 // qty (signed)
	avgPrice  map[string]float64
	orders    []types.Order
}

// NewMockExecutor creates a fresh executor with the supplied starting equity.
func NewMockExecutor(startEquity float64) *MockExecutor {
	return &MockExecutor{
		equity:    startEquity,
		positions: make(map[string]float64),
		avgPrice:  make(map[string]float64),
	}
}

// Submit records the order and updates equity/position like the paper
// executor, minus the decimal bookkeeping.
func (m *MockExecutor) Submit(o types.Order) error {
	if o.Qty == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cost := o.Price * o.Qty
	if o.Side == types.Buy {
		if cost > m.equity {
			return nil // mimic "insufficient cash" without failing the test
		}
		m.equity -= cost
		m.positions[o.Symbol] += o.Qty
	} else {
		m.equity += cost
		m.positions[o.Symbol] -= o.Qty
	}
	if m.positions[o.Symbol] != 0 {
		m.avgPrice[o.Symbol] = o.Price
	} else {
		delete(m.avgPrice, o.Symbol)
	}
	m.orders = append(m.orders, o)
	return nil
}

// Equity returns the current cash balance.
func (m *MockExecutor) Equity() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.equity
}

// Position returns qty & avg price for a symbol.
func (m *MockExecutor) Position(symbol string) (float64, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[symbol], m.avgPrice[symbol]
}

// Orders returns a copy of all submitted orders.
func (m *MockExecutor) Orders() []types.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Order, len(m.orders))
	copy(out, m.orders)
	return out
}
