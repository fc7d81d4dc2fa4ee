package position

import "github.com/driftline/signum/types"

// TakeProfitLevel is one rung of a position's scale-out ladder, resolved to
// an absolute price at entry time.
type TakeProfitLevel struct {
	Price      float64
	CloseRatio float64 // percent of the original size
	Filled     bool
}

// TrailingState tracks the trailing-stop stage. PeakPrice only ever moves
// in the position's favorable direction.
type TrailingState struct {
	Active      bool
	PeakPrice   float64
	UpdateCount int
}

// Position is the per-trade record owned by the Manager after entry. It is
// created when the execution collaborator reports a fill and mutated
// exclusively by the Manager on each price update.
type Position struct {
	ID           string
	Symbol       string
	Side         types.Direction // Long or Short
	EntryPrice   float64
	Size         float64
	OriginalSize float64
	CurrentStop  float64
	TakeProfits  []TakeProfitLevel
	Trailing     TrailingState
	Breakeven    bool    // stop has been moved to entry
	LockedPct    float64 // highest profit lock applied so far
}

// profitPct is unrealized profit as a percent of entry, positive when the
// position is in the money regardless of side.
func (p *Position) profitPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pct := (price - p.EntryPrice) / p.EntryPrice * 100
	if p.Side == types.Short {
		return -pct
	}
	return pct
}

// tightens reports whether newStop improves protection over the current
// stop. Equal is not an improvement.
func (p *Position) tightens(newStop float64) bool {
	if p.Side == types.Short {
		return newStop < p.CurrentStop
	}
	return newStop > p.CurrentStop
}

// ActionType enumerates what the lifecycle manager can ask the execution
// collaborator to do.
type ActionType int

const (
	MoveStop ActionType = iota
	ClosePartial
)

// Action is one instruction emitted by OnPriceUpdate. An empty action list
// is the no-op.
type Action struct {
	Type       ActionType
	StopPrice  float64 // MoveStop
	CloseRatio float64 // ClosePartial, percent of original size
	Reason     string
}
