package position

import (
	"math"
	"math/rand"
	"testing"

	"github.com/driftline/signum/config"
	"github.com/driftline/signum/testutils"
	"github.com/driftline/signum/types"
)

func buildManager(t *testing.T, cfg config.LifecycleConfig) (*Manager, *testutils.MockLogger) {
	t.Helper()
	log := testutils.NewMockLogger()
	m, err := NewManager(cfg, log)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, log
}

func trackLong(t *testing.T, m *Manager, id string, entry, stop float64) {
	t.Helper()
	err := m.Track(Position{
		ID:          id,
		Symbol:      "TESTUSDT",
		Side:        types.Long,
		EntryPrice:  entry,
		Size:        10,
		CurrentStop: stop,
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
}

func stopOf(t *testing.T, m *Manager, id string) float64 {
	t.Helper()
	pos, ok := m.Get(id)
	if !ok {
		t.Fatalf("position %s not tracked", id)
	}
	return pos.CurrentStop
}

/*
-----------------------------------------------------------------------
Trailing stop: peak at 103 sets the stop; the pullback to 101.5 must not
recalculate it downward.
-----------------------------------------------------------------------
*/
func TestTrailing_PeakIsSticky(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	trackLong(t, m, "p1", 100, 97)

	m.OnPriceUpdate("p1", 101, 0)   // activation at 1.0% arms the trail
	m.OnPriceUpdate("p1", 103, 0)   // new peak
	m.OnPriceUpdate("p1", 101.5, 0) // pullback

	want := 103 * (1 - 0.5/100) // step 0.5% below the 103 peak
	if got := stopOf(t, m, "p1"); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected stop %v from the 103 peak, got %v", want, got)
	}
	pos, _ := m.Get("p1")
	if pos.Trailing.PeakPrice != 103 {
		t.Fatalf("peak must stay at 103, got %v", pos.Trailing.PeakPrice)
	}
}

func TestTrailing_NotArmedBelowActivation(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	trackLong(t, m, "p1", 100, 97)

	m.OnPriceUpdate("p1", 100.5, 0) // +0.5% < activation 1.0%
	pos, _ := m.Get("p1")
	if pos.Trailing.Active {
		t.Fatal("trailing must not arm below the activation threshold")
	}
	if pos.CurrentStop != 97 {
		t.Fatalf("stop must be untouched, got %v", pos.CurrentStop)
	}
}

func TestTrailing_StopNeverLoosensProperty(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	trackLong(t, m, "p1", 100, 97)

	rng := rand.New(rand.NewSource(11))
	price := 100.0
	prevStop := stopOf(t, m, "p1")
	for i := 0; i < 500; i++ {
		price *= 1 + (rng.Float64()-0.5)*0.02
		m.OnPriceUpdate("p1", price, rng.Float64()*12)
		stop := stopOf(t, m, "p1")
		if stop < prevStop {
			t.Fatalf("tick %d: stop loosened from %v to %v (price %v)", i, prevStop, stop, price)
		}
		prevStop = stop
	}
}

func TestTrailing_MaxUpdatesFreezesStop(t *testing.T) {
	cfg := config.DefaultLifecycle()
	cfg.Trailing.MaxUpdates = 3
	m, _ := buildManager(t, cfg)
	trackLong(t, m, "p1", 100, 97)

	price := 100.0
	for i := 0; i < 3; i++ {
		price *= 1.02
		m.OnPriceUpdate("p1", price, 0)
	}
	frozen := stopOf(t, m, "p1")
	pos, _ := m.Get("p1")
	if pos.Trailing.UpdateCount != 3 {
		t.Fatalf("expected 3 trailing updates, got %d", pos.Trailing.UpdateCount)
	}

	// Further advances must not move the trailing stop.
	m.OnPriceUpdate("p1", price*1.5, 0)
	if got := stopOf(t, m, "p1"); got != frozen {
		t.Fatalf("stop moved after MaxUpdates: %v -> %v", frozen, got)
	}
}

func TestPartialTakeProfits_LadderAndBreakeven(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	trackLong(t, m, "p1", 100, 97)

	actions := m.OnPriceUpdate("p1", 101, 0) // crosses the 1% level
	var closes []Action
	for _, a := range actions {
		if a.Type == ClosePartial {
			closes = append(closes, a)
		}
	}
	if len(closes) != 1 {
		t.Fatalf("expected one partial close at the first level, got %d", len(closes))
	}
	if closes[0].CloseRatio != 30 {
		t.Fatalf("expected close ratio 30, got %v", closes[0].CloseRatio)
	}
	pos, _ := m.Get("p1")
	if !pos.Breakeven {
		t.Fatal("stop must move to breakeven after the first fill")
	}
	if pos.CurrentStop < 100 {
		t.Fatalf("stop %v below entry after breakeven", pos.CurrentStop)
	}

	// Same price again: the level is filled, no duplicate close.
	actions = m.OnPriceUpdate("p1", 101, 0)
	for _, a := range actions {
		if a.Type == ClosePartial {
			t.Fatal("level must not fill twice")
		}
	}

	// Jump across the remaining two levels in one tick.
	actions = m.OnPriceUpdate("p1", 103.1, 0)
	closes = closes[:0]
	for _, a := range actions {
		if a.Type == ClosePartial {
			closes = append(closes, a)
		}
	}
	if len(closes) != 2 {
		t.Fatalf("expected two closes for levels 2 and 3, got %d", len(closes))
	}
	if closes[0].CloseRatio != 30 || closes[1].CloseRatio != 40 {
		t.Fatalf("expected ratios 30/40, got %v/%v", closes[0].CloseRatio, closes[1].CloseRatio)
	}

	total := 0.0
	pos, _ = m.Get("p1")
	for _, lvl := range pos.TakeProfits {
		if lvl.Filled {
			total += lvl.CloseRatio
		}
	}
	if total > 100 {
		t.Fatalf("filled close ratios sum to %v, above 100", total)
	}
}

func TestProfitLock_RejectedWhenStopAlreadyTighter(t *testing.T) {
	cfg := config.DefaultLifecycle()
	cfg.ProfitLocks = []config.ProfitLockLevel{{TriggerPct: 6, LockPct: 1}}
	m, log := buildManager(t, cfg)
	trackLong(t, m, "p1", 100, 97)

	m.OnPriceUpdate("p1", 104, 0) // trailing already pulls the stop above 101
	before := stopOf(t, m, "p1")
	if before <= 101 {
		t.Fatalf("precondition: trailing stop %v should be above the lock target", before)
	}

	m.OnPriceUpdate("p1", 106.5, 0) // lock trigger crossed; target 101 would loosen
	if log.Count("stop_move_rejected") == 0 {
		t.Fatal("expected the loosening lock move to be rejected and logged")
	}
	want := 106.5 * (1 - 0.5/100) // trailing from the new peak still applies
	if got := stopOf(t, m, "p1"); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected stop %v, got %v", want, got)
	}
	pos, _ := m.Get("p1")
	if pos.LockedPct != 1 {
		t.Fatalf("lock level must be consumed even when satisfied, got %v", pos.LockedPct)
	}
}

func TestProfitLock_NotRetractedOnPullback(t *testing.T) {
	cfg := config.DefaultLifecycle()
	cfg.Trailing.ActivationPct = 50 // keep trailing out of the way
	m, _ := buildManager(t, cfg)
	trackLong(t, m, "p1", 100, 97)

	m.OnPriceUpdate("p1", 102.5, 0) // crosses lock trigger 2% -> lock 0.5%
	locked := stopOf(t, m, "p1")
	if math.Abs(locked-100.5) > 1e-9 {
		t.Fatalf("expected locked stop 100.5, got %v", locked)
	}

	m.OnPriceUpdate("p1", 100.2, 0) // back under the trigger
	if got := stopOf(t, m, "p1"); got != locked {
		t.Fatalf("lock retracted: %v -> %v", locked, got)
	}
}

func TestShortSide_Mirrored(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	err := m.Track(Position{
		ID:          "s1",
		Symbol:      "TESTUSDT",
		Side:        types.Short,
		EntryPrice:  100,
		Size:        10,
		CurrentStop: 103,
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	actions := m.OnPriceUpdate("s1", 99, 0) // +1% profit for a short
	sawClose := false
	for _, a := range actions {
		if a.Type == ClosePartial {
			sawClose = true
		}
	}
	if !sawClose {
		t.Fatal("expected first take-profit fill at 1% profit")
	}
	pos, _ := m.Get("s1")
	if !pos.Trailing.Active {
		t.Fatal("trailing must arm at 1% profit")
	}
	if pos.CurrentStop >= 103 {
		t.Fatalf("short stop must tighten downward, got %v", pos.CurrentStop)
	}

	m.OnPriceUpdate("s1", 97, 0)
	m.OnPriceUpdate("s1", 98, 0) // pullback
	want := 97 * (1 + 0.5/100)
	if got := stopOf(t, m, "s1"); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected short stop %v from the 97 trough, got %v", want, got)
	}
}

func TestApplyFill_RemovesWhenFlat(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	trackLong(t, m, "p1", 100, 97)

	if err := m.ApplyFill("p1", 4); err != nil {
		t.Fatalf("partial fill failed: %v", err)
	}
	pos, ok := m.Get("p1")
	if !ok || pos.Size != 6 {
		t.Fatalf("expected remaining size 6, got %v (tracked %v)", pos.Size, ok)
	}

	if err := m.ApplyFill("p1", 6); err != nil {
		t.Fatalf("closing fill failed: %v", err)
	}
	if _, ok := m.Get("p1"); ok {
		t.Fatal("flat position must be dropped from tracking")
	}
	if len(m.Open()) != 0 {
		t.Fatalf("expected no open positions, got %v", m.Open())
	}
}

func TestApplyFill_Oversized(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	trackLong(t, m, "p1", 100, 97)
	if err := m.ApplyFill("p1", 11); err == nil {
		t.Fatal("expected error for fill above remaining size")
	}
}

func TestTrack_Validation(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	trackLong(t, m, "p1", 100, 97)

	if err := m.Track(Position{ID: "p1", Side: types.Long, EntryPrice: 100, Size: 1}); err == nil {
		t.Fatal("expected error for duplicate id")
	}
	if err := m.Track(Position{ID: "p2", Side: types.Flat, EntryPrice: 100, Size: 1}); err == nil {
		t.Fatal("expected error for non-tradeable side")
	}
	if err := m.Track(Position{ID: "p3", Side: types.Long, EntryPrice: 0, Size: 1}); err == nil {
		t.Fatal("expected error for zero entry price")
	}
}

func TestTrack_RejectsBadLadder(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	base := Position{Symbol: "TESTUSDT", Side: types.Long, EntryPrice: 100, Size: 10, CurrentStop: 97}

	unordered := base
	unordered.ID = "p-unordered"
	unordered.TakeProfits = []TakeProfitLevel{
		{Price: 103, CloseRatio: 30},
		{Price: 101, CloseRatio: 30},
	}
	if err := m.Track(unordered); err == nil {
		t.Fatal("expected error for out-of-order ladder")
	}

	belowEntry := base
	belowEntry.ID = "p-below"
	belowEntry.TakeProfits = []TakeProfitLevel{{Price: 99, CloseRatio: 30}}
	if err := m.Track(belowEntry); err == nil {
		t.Fatal("expected error for take profit below entry on a long")
	}

	zeroRatio := base
	zeroRatio.ID = "p-zero"
	zeroRatio.TakeProfits = []TakeProfitLevel{{Price: 101, CloseRatio: 0}}
	if err := m.Track(zeroRatio); err == nil {
		t.Fatal("expected error for non-positive close ratio")
	}

	overSold := base
	overSold.ID = "p-over"
	overSold.TakeProfits = []TakeProfitLevel{
		{Price: 101, CloseRatio: 60},
		{Price: 102, CloseRatio: 60},
	}
	if err := m.Track(overSold); err == nil {
		t.Fatal("expected error for ratios summing above 100")
	}

	shortAscending := base
	shortAscending.ID = "p-short"
	shortAscending.Side = types.Short
	shortAscending.TakeProfits = []TakeProfitLevel{
		{Price: 99, CloseRatio: 30},
		{Price: 100.5, CloseRatio: 30},
	}
	if err := m.Track(shortAscending); err == nil {
		t.Fatal("expected error for short ladder moving above entry")
	}

	valid := base
	valid.ID = "p-valid"
	valid.TakeProfits = []TakeProfitLevel{
		{Price: 101, CloseRatio: 30},
		{Price: 102, CloseRatio: 70},
	}
	if err := m.Track(valid); err != nil {
		t.Fatalf("valid caller ladder rejected: %v", err)
	}
}

func TestApplyFill_DustRemainderIsFlat(t *testing.T) {
	m, _ := buildManager(t, config.DefaultLifecycle())
	err := m.Track(Position{
		ID: "p1", Symbol: "TESTUSDT", Side: types.Long,
		EntryPrice: 100, Size: 1, CurrentStop: 97,
	})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	// 0.3+0.3+0.3 leaves 0.09999999999999998 in float64; the final 0.1
	// close must still flatten and drop the position.
	for _, qty := range []float64{0.3, 0.3, 0.3, 0.1} {
		if err := m.ApplyFill("p1", qty); err != nil {
			t.Fatalf("fill %v failed: %v", qty, err)
		}
	}
	if _, ok := m.Get("p1"); ok {
		t.Fatal("dust-sized remainder must be treated as flat")
	}
}

func TestAdaptiveTrailing_WidensStepUnderHighVolatility(t *testing.T) {
	cfg := config.DefaultLifecycle()
	cfg.Trailing.Adaptive = true
	m, _ := buildManager(t, cfg)
	trackLong(t, m, "p1", 100, 90)

	m.OnPriceUpdate("p1", 103, 12) // high volatility: step widens, capped at 2x
	got := stopOf(t, m, "p1")
	normal := 103 * (1 - 0.5/100)
	widest := 103 * (1 - 1.0/100)
	if got >= normal {
		t.Fatalf("adaptive step should sit below the normal stop %v, got %v", normal, got)
	}
	if got < widest-1e-9 {
		t.Fatalf("adaptive step must cap at 2x: floor %v, got %v", widest, got)
	}
}
