package position

import (
	"errors"
	"fmt"
	"sync"

	"github.com/driftline/signum/config"
	"github.com/driftline/signum/indicator"
	"github.com/driftline/signum/logger"
	"github.com/driftline/signum/metrics"
	"github.com/driftline/signum/types"
)

// sizeEpsilon absorbs float residue from fractional partial closes, so a
// position whose remaining size is pure rounding dust is treated as flat.
const sizeEpsilon = 1e-9

// Manager owns every open position's adaptive state machine. All mutation
// of one position is serialized behind a per-id lock; distinct positions
// update concurrently.
type Manager struct {
	cfg config.LifecycleConfig
	log logger.Logger

	mu        sync.RWMutex
	positions map[string]*tracked
}

type tracked struct {
	mu  sync.Mutex
	pos Position
}

// NewManager validates the lifecycle config and returns an empty manager.
func NewManager(cfg config.LifecycleConfig, log logger.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, errors.New("position: nil logger")
	}
	return &Manager{
		cfg:       cfg,
		log:       log,
		positions: make(map[string]*tracked),
	}, nil
}

// Track registers a freshly filled position. The scale-out ladder from the
// config is resolved to absolute prices for the position's side.
func (m *Manager) Track(pos Position) error {
	if pos.ID == "" {
		return errors.New("position: empty id")
	}
	if pos.Side != types.Long && pos.Side != types.Short {
		return fmt.Errorf("position: side %q is not tradeable", pos.Side)
	}
	if pos.EntryPrice <= 0 || pos.Size <= 0 {
		return fmt.Errorf("position: entry %v / size %v invalid", pos.EntryPrice, pos.Size)
	}
	if pos.OriginalSize == 0 {
		pos.OriginalSize = pos.Size
	}
	if len(pos.TakeProfits) == 0 {
		pos.TakeProfits = make([]TakeProfitLevel, 0, len(m.cfg.TakeProfits))
		for _, lvl := range m.cfg.TakeProfits {
			price := pos.EntryPrice * (1 + lvl.ProfitPct/100)
			if pos.Side == types.Short {
				price = pos.EntryPrice * (1 - lvl.ProfitPct/100)
			}
			pos.TakeProfits = append(pos.TakeProfits, TakeProfitLevel{
				Price:      price,
				CloseRatio: lvl.CloseRatio,
			})
		}
	} else if err := validateLadder(pos.Side, pos.EntryPrice, pos.TakeProfits); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.positions[pos.ID]; exists {
		return fmt.Errorf("position: id %q already tracked", pos.ID)
	}
	m.positions[pos.ID] = &tracked{pos: pos}
	metrics.PositionsOpen.Inc()
	m.log.Info("position_tracked",
		logger.String("id", pos.ID),
		logger.String("symbol", pos.Symbol),
		logger.String("side", string(pos.Side)),
		logger.Float64("entry", pos.EntryPrice),
		logger.Float64("size", pos.Size),
		logger.Float64("stop", pos.CurrentStop),
	)
	return nil
}

// validateLadder checks a caller-supplied scale-out ladder the same way the
// lifecycle config is checked: every ratio positive, ratios summing to at
// most 100, and prices strictly beyond entry in ascending profit order. The
// level walk in applyTakeProfits depends on that ordering to stop at the
// first uncrossed level.
func validateLadder(side types.Direction, entry float64, levels []TakeProfitLevel) error {
	totalRatio := 0.0
	prev := entry
	for i, lvl := range levels {
		if lvl.CloseRatio <= 0 {
			return fmt.Errorf("position: take profit %d close ratio %v must be positive", i+1, lvl.CloseRatio)
		}
		totalRatio += lvl.CloseRatio
		ahead := lvl.Price > prev
		if side == types.Short {
			ahead = lvl.Price < prev
		}
		if !ahead {
			return fmt.Errorf("position: take profit %d price %v out of order for side %q", i+1, lvl.Price, side)
		}
		prev = lvl.Price
	}
	if totalRatio > 100 {
		return fmt.Errorf("position: take profit close ratios sum to %v, exceeding 100", totalRatio)
	}
	return nil
}

// Get returns a copy of the tracked position.
func (m *Manager) Get(id string) (Position, bool) {
	m.mu.RLock()
	t, ok := m.positions[id]
	m.mu.RUnlock()
	if !ok {
		return Position{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := t.pos
	cp.TakeProfits = append([]TakeProfitLevel(nil), t.pos.TakeProfits...)
	return cp, true
}

// OnPriceUpdate runs one lifecycle tick for the position: partial take
// profits in ascending order, then profit locks, then the trailing stop.
// volatilityPct feeds the adaptive trailing step and may be zero when
// unknown. The returned actions are for the execution collaborator; an
// empty slice means nothing to do.
func (m *Manager) OnPriceUpdate(id string, price, volatilityPct float64) []Action {
	m.mu.RLock()
	t, ok := m.positions[id]
	m.mu.RUnlock()
	if !ok || price <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	pos := &t.pos
	if pos.Size <= 0 {
		return nil
	}

	var actions []Action
	actions = append(actions, m.applyTakeProfits(pos, price)...)
	stopMoved := m.applyProfitLocks(pos, price)
	stopMoved = m.applyTrailing(pos, price, volatilityPct) || stopMoved
	if stopMoved {
		actions = append(actions, Action{
			Type:      MoveStop,
			StopPrice: pos.CurrentStop,
			Reason:    "stop_update",
		})
		metrics.StopMoves.WithLabelValues(pos.Symbol).Inc()
	}
	return actions
}

// applyTakeProfits walks the ladder in ascending order and emits one close
// per newly crossed level. Ratios reference the original size. After the
// first fill the stop moves to entry when breakeven is configured.
func (m *Manager) applyTakeProfits(pos *Position, price float64) []Action {
	var actions []Action
	for i := range pos.TakeProfits {
		lvl := &pos.TakeProfits[i]
		if lvl.Filled {
			continue
		}
		crossed := price >= lvl.Price
		if pos.Side == types.Short {
			crossed = price <= lvl.Price
		}
		if !crossed {
			break // ladder is ascending; nothing further can be crossed
		}
		lvl.Filled = true
		actions = append(actions, Action{
			Type:       ClosePartial,
			CloseRatio: lvl.CloseRatio,
			Reason:     fmt.Sprintf("take_profit_%d", i+1),
		})
		metrics.PartialCloses.WithLabelValues(pos.Symbol).Inc()
		m.log.Info("partial_take_profit",
			logger.String("id", pos.ID),
			logger.Int("level", i+1),
			logger.Float64("price", price),
			logger.Float64("close_ratio", lvl.CloseRatio),
		)
		if m.cfg.MoveToBreakeven && !pos.Breakeven {
			if m.moveStop(pos, pos.EntryPrice, "breakeven") {
				pos.Breakeven = true
			}
		}
	}
	return actions
}

// applyProfitLocks raises the stop to guarantee LockPct once TriggerPct is
// crossed. A lock is never retracted even if price falls back under the
// trigger afterwards.
func (m *Manager) applyProfitLocks(pos *Position, price float64) bool {
	profit := pos.profitPct(price)
	moved := false
	for _, lock := range m.cfg.ProfitLocks {
		if profit < lock.TriggerPct || lock.LockPct <= pos.LockedPct {
			continue
		}
		target := pos.EntryPrice * (1 + lock.LockPct/100)
		if pos.Side == types.Short {
			target = pos.EntryPrice * (1 - lock.LockPct/100)
		}
		if m.moveStop(pos, target, "profit_lock") {
			moved = true
		}
		// The lock level is consumed either way: if the stop already sits
		// beyond the target, the lock is satisfied.
		pos.LockedPct = lock.LockPct
	}
	return moved
}

// applyTrailing arms the trail once unrealized profit reaches the
// activation threshold, then follows the peak at the configured step.
// Updates are capped at MaxUpdates; the stop then freezes at its last value.
func (m *Manager) applyTrailing(pos *Position, price, volatilityPct float64) bool {
	t := m.cfg.Trailing
	if !pos.Trailing.Active {
		if pos.profitPct(price) < t.ActivationPct {
			return false
		}
		pos.Trailing.Active = true
		pos.Trailing.PeakPrice = price
		m.log.Info("trailing_armed",
			logger.String("id", pos.ID),
			logger.Float64("price", price),
		)
	}

	// Peak only advances in the favorable direction.
	if pos.Side == types.Long && price > pos.Trailing.PeakPrice {
		pos.Trailing.PeakPrice = price
	}
	if pos.Side == types.Short && price < pos.Trailing.PeakPrice {
		pos.Trailing.PeakPrice = price
	}

	if pos.Trailing.UpdateCount >= t.MaxUpdates {
		return false
	}

	step := t.StepPct
	if t.Adaptive && volatilityPct > indicator.HighVolatilityPct {
		widened := step * (1 + volatilityPct/20)
		if widened > 2*step {
			widened = 2 * step
		}
		step = widened
	}

	candidate := pos.Trailing.PeakPrice * (1 - step/100)
	if pos.Side == types.Short {
		candidate = pos.Trailing.PeakPrice * (1 + step/100)
	}
	if !pos.tightens(candidate) {
		return false
	}
	if m.moveStop(pos, candidate, "trailing") {
		pos.Trailing.UpdateCount++
		return true
	}
	return false
}

// moveStop is the single gate for stop mutation. Any move that would
// loosen protection is rejected and logged; this is a hard invariant, not
// a retryable error.
func (m *Manager) moveStop(pos *Position, newStop float64, reason string) bool {
	if !pos.tightens(newStop) {
		metrics.StopMovesRejected.WithLabelValues(pos.Symbol).Inc()
		m.log.Warn("stop_move_rejected",
			logger.String("id", pos.ID),
			logger.String("reason", reason),
			logger.Float64("current", pos.CurrentStop),
			logger.Float64("attempted", newStop),
		)
		return false
	}
	pos.CurrentStop = newStop
	return true
}

// ApplyFill reduces the position after the collaborator reports a partial
// or full close. The position is dropped once flat.
func (m *Manager) ApplyFill(id string, closedQty float64) error {
	m.mu.RLock()
	t, ok := m.positions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("position: id %q not tracked", id)
	}
	t.mu.Lock()
	if closedQty <= 0 || closedQty > t.pos.Size+sizeEpsilon {
		remaining := t.pos.Size
		t.mu.Unlock()
		return fmt.Errorf("position: fill %v invalid for remaining %v", closedQty, remaining)
	}
	t.pos.Size -= closedQty
	if t.pos.Size < 0 {
		t.pos.Size = 0
	}
	flat := t.pos.Size <= sizeEpsilon
	t.mu.Unlock()

	if flat {
		m.Remove(id)
	}
	return nil
}

// Remove drops a position from tracking (stop hit, all levels filled, or
// manual close).
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	t, ok := m.positions[id]
	if ok {
		delete(m.positions, id)
	}
	m.mu.Unlock()
	if ok {
		metrics.PositionsOpen.Dec()
		m.log.Info("position_closed", logger.String("id", t.pos.ID))
	}
}

// Open returns the ids of all tracked positions.
func (m *Manager) Open() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.positions))
	for id := range m.positions {
		out = append(out, id)
	}
	return out
}
