package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/driftline/signum/indicator"
)

// weightTolerance is how far a weight table may drift from 100 before
// Validate refuses it. Weights are validated once at load time, never
// re-derived or clamped per call.
const weightTolerance = 1e-6

// CategoryWeights distributes the composite score across the four fixed
// indicator categories. Must sum to 100.
type CategoryWeights struct {
	Trend      float64 `yaml:"trend"`
	Momentum   float64 `yaml:"momentum"`
	Volume     float64 `yaml:"volume"`
	Volatility float64 `yaml:"volatility"`
}

// ScoreWeights bundles the category table with the intra-category
// sub-weights, keyed by indicator name. Each category's sub-weights must
// also sum to 100.
type ScoreWeights struct {
	Category  CategoryWeights                          `yaml:"category"`
	Indicator map[indicator.Category]map[string]float64 `yaml:"indicator"`
}

// Bounds is a [Min,Max] percent range.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// FactorWeights blends the four normalized factors that drive dynamic
// stop-loss / take-profit distances. Must sum to 100.
type FactorWeights struct {
	Volatility float64 `yaml:"volatility"`
	RSI        float64 `yaml:"rsi"`
	Volume     float64 `yaml:"volume"`
	Trend      float64 `yaml:"trend"`
}

// RiskProfile is a named bundle of sizing and SL/TP parameters selecting
// how aggressively the engine trades.
type RiskProfile struct {
	Name             string        `yaml:"name"`
	RiskPerTradePct  float64       `yaml:"risk_per_trade_pct"`
	MaxPositionPct   float64       `yaml:"max_position_pct"`
	MinPositionPct   float64       `yaml:"min_position_pct"`
	LeverageDefault  float64       `yaml:"leverage_default"`
	LeverageMax      float64       `yaml:"leverage_max"`
	StopLossBounds   Bounds        `yaml:"sl_bounds"`
	TakeProfitBounds Bounds        `yaml:"tp_bounds"`
	FactorWeights    FactorWeights `yaml:"factor_weights"`

	// Exchange constraints applied to the final quantity.
	QuantityPrecision int     `yaml:"quantity_precision"`
	MinQty            float64 `yaml:"min_qty"`
	StepSize          float64 `yaml:"step_size"`
}

// TrailingConfig controls the trailing stop stage.
type TrailingConfig struct {
	ActivationPct float64 `yaml:"activation_pct"` // unrealized profit that arms trailing
	StepPct       float64 `yaml:"step_pct"`       // offset from the peak
	MaxUpdates    int     `yaml:"max_updates"`    // churn bound; stop freezes afterwards
	Adaptive      bool    `yaml:"adaptive"`       // widen the step under high ATR
}

// TakeProfitLevel is one rung of the partial scale-out ladder. CloseRatio
// is a percent of the original position size.
type TakeProfitLevel struct {
	ProfitPct  float64 `yaml:"profit_pct"`
	CloseRatio float64 `yaml:"close_ratio"`
}

// ProfitLockLevel raises the stop to lock LockPct profit once price crosses
// TriggerPct. Locks are monotonic; they are never retracted.
type ProfitLockLevel struct {
	TriggerPct float64 `yaml:"trigger_pct"`
	LockPct    float64 `yaml:"lock_pct"`
}

// LifecycleConfig drives the post-entry state machine.
type LifecycleConfig struct {
	Trailing        TrailingConfig    `yaml:"trailing"`
	TakeProfits     []TakeProfitLevel `yaml:"take_profits"`
	MoveToBreakeven bool              `yaml:"move_to_breakeven"`
	ProfitLocks     []ProfitLockLevel `yaml:"profit_locks"`
}

// Config is everything the engine needs for one evaluation pipeline.
type Config struct {
	Weights   ScoreWeights    `yaml:"weights"`
	Profile   RiskProfile     `yaml:"profile"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

// Default returns the baseline configuration: category weights
// 30/25/25/20, a moderate risk profile, and the 1/2/3-percent scale-out
// ladder with breakeven after the first fill.
func Default() Config {
	return Config{
		Weights:   DefaultWeights(),
		Profile:   DefaultProfile(),
		Lifecycle: DefaultLifecycle(),
	}
}

func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Category: CategoryWeights{Trend: 30, Momentum: 25, Volume: 25, Volatility: 20},
		Indicator: map[indicator.Category]map[string]float64{
			indicator.Trend: {
				indicator.NameEMACross: 40,
				indicator.NameMACD:     40,
				indicator.NameLinReg:   20,
			},
			indicator.Momentum: {
				indicator.NameRSI: 60,
				indicator.NameROC: 40,
			},
			indicator.Volume: {
				indicator.NameOBV:       60,
				indicator.NameRelVolume: 40,
			},
			indicator.Volatility: {
				indicator.NameBollinger: 70,
				indicator.NameATR:       30,
			},
		},
	}
}

func DefaultProfile() RiskProfile {
	return RiskProfile{
		Name:             "moderate",
		RiskPerTradePct:  2,
		MaxPositionPct:   20,
		MinPositionPct:   1,
		LeverageDefault:  1,
		LeverageMax:      3,
		StopLossBounds:   Bounds{Min: 1, Max: 5},
		TakeProfitBounds: Bounds{Min: 2, Max: 10},
		FactorWeights:    FactorWeights{Volatility: 40, RSI: 20, Volume: 15, Trend: 25},

		QuantityPrecision: 4,
		MinQty:            0,
		StepSize:          0.0001,
	}
}

func DefaultLifecycle() LifecycleConfig {
	return LifecycleConfig{
		Trailing: TrailingConfig{
			ActivationPct: 1.0,
			StepPct:       0.5,
			MaxUpdates:    15,
		},
		TakeProfits: []TakeProfitLevel{
			{ProfitPct: 1.0, CloseRatio: 30},
			{ProfitPct: 2.0, CloseRatio: 30},
			{ProfitPct: 3.0, CloseRatio: 40},
		},
		MoveToBreakeven: true,
		ProfitLocks: []ProfitLockLevel{
			{TriggerPct: 2.0, LockPct: 0.5},
			{TriggerPct: 4.0, LockPct: 1.5},
		},
	}
}

func sumsTo100(sum float64) bool {
	return math.Abs(sum-100) <= weightTolerance
}

// Validate checks the score-weight tables. It returns the first error so
// the caller can surface a clear configuration problem before any scoring.
func (w *ScoreWeights) Validate() error {
	catSum := w.Category.Trend + w.Category.Momentum + w.Category.Volume + w.Category.Volatility
	if !sumsTo100(catSum) {
		return fmt.Errorf("category weights sum to %v, want 100", catSum)
	}
	for _, cat := range []indicator.Category{indicator.Trend, indicator.Momentum, indicator.Volume, indicator.Volatility} {
		sub, ok := w.Indicator[cat]
		if !ok || len(sub) == 0 {
			return fmt.Errorf("no indicator weights configured for category %q", cat)
		}
		sum := 0.0
		for name, wt := range sub {
			if wt < 0 {
				return fmt.Errorf("negative weight %v for indicator %q", wt, name)
			}
			sum += wt
		}
		if !sumsTo100(sum) {
			return fmt.Errorf("indicator weights for category %q sum to %v, want 100", cat, sum)
		}
	}
	return nil
}

// Validate checks the risk profile bounds and the factor weight table.
func (p *RiskProfile) Validate() error {
	if p.RiskPerTradePct <= 0 || p.RiskPerTradePct > 10 {
		return fmt.Errorf("RiskPerTradePct (%v) must be >0 and <=10", p.RiskPerTradePct)
	}
	if p.MinPositionPct <= 0 {
		return errors.New("MinPositionPct must be positive")
	}
	if p.MaxPositionPct < p.MinPositionPct || p.MaxPositionPct > 100 {
		return fmt.Errorf("MaxPositionPct (%v) must be >= MinPositionPct and <=100", p.MaxPositionPct)
	}
	if p.LeverageDefault < 1 {
		return errors.New("LeverageDefault must be >= 1")
	}
	if p.LeverageMax < p.LeverageDefault {
		return errors.New("LeverageMax must be >= LeverageDefault")
	}
	if p.StopLossBounds.Min <= 0 || p.StopLossBounds.Max < p.StopLossBounds.Min {
		return fmt.Errorf("sl_bounds (%v..%v) invalid", p.StopLossBounds.Min, p.StopLossBounds.Max)
	}
	if p.TakeProfitBounds.Min <= 0 || p.TakeProfitBounds.Max < p.TakeProfitBounds.Min {
		return fmt.Errorf("tp_bounds (%v..%v) invalid", p.TakeProfitBounds.Min, p.TakeProfitBounds.Max)
	}
	fw := p.FactorWeights
	sum := fw.Volatility + fw.RSI + fw.Volume + fw.Trend
	if !sumsTo100(sum) {
		return fmt.Errorf("factor weights sum to %v, want 100", sum)
	}
	if fw.Volatility < 0 || fw.RSI < 0 || fw.Volume < 0 || fw.Trend < 0 {
		return errors.New("factor weights cannot be negative")
	}
	if p.QuantityPrecision < 0 {
		return errors.New("QuantityPrecision cannot be negative")
	}
	if p.MinQty < 0 {
		return errors.New("MinQty cannot be negative")
	}
	if p.StepSize < 0 {
		return errors.New("StepSize cannot be negative")
	}
	return nil
}

// Validate checks the lifecycle stages: trailing parameters, scale-out
// ladder ordering and total, and profit-lock monotonicity.
func (l *LifecycleConfig) Validate() error {
	t := l.Trailing
	if t.ActivationPct <= 0 {
		return errors.New("trailing ActivationPct must be positive")
	}
	if t.StepPct <= 0 {
		return errors.New("trailing StepPct must be positive")
	}
	if t.MaxUpdates <= 0 {
		return errors.New("trailing MaxUpdates must be positive")
	}
	total := 0.0
	prevProfit := 0.0
	for i, lvl := range l.TakeProfits {
		if lvl.ProfitPct <= prevProfit {
			return fmt.Errorf("take-profit level %d: ProfitPct (%v) must ascend", i, lvl.ProfitPct)
		}
		if lvl.CloseRatio <= 0 {
			return fmt.Errorf("take-profit level %d: CloseRatio (%v) must be positive", i, lvl.CloseRatio)
		}
		prevProfit = lvl.ProfitPct
		total += lvl.CloseRatio
	}
	if total > 100 {
		return fmt.Errorf("take-profit close ratios sum to %v, cannot exceed 100", total)
	}
	prevTrigger, prevLock := 0.0, 0.0
	for i, lock := range l.ProfitLocks {
		if lock.TriggerPct <= prevTrigger {
			return fmt.Errorf("profit lock %d: TriggerPct (%v) must ascend", i, lock.TriggerPct)
		}
		if lock.LockPct < prevLock {
			return fmt.Errorf("profit lock %d: LockPct (%v) must not fall", i, lock.LockPct)
		}
		if lock.LockPct >= lock.TriggerPct {
			return fmt.Errorf("profit lock %d: LockPct (%v) must be below TriggerPct (%v)", i, lock.LockPct, lock.TriggerPct)
		}
		prevTrigger, prevLock = lock.TriggerPct, lock.LockPct
	}
	return nil
}

// Validate runs all section validators, first error wins.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Profile.Validate(); err != nil {
		return err
	}
	return c.Lifecycle.Validate()
}
