package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/driftline/signum/config"
	"github.com/driftline/signum/confirm"
	"github.com/driftline/signum/indicator"
	"github.com/driftline/signum/logger"
	"github.com/driftline/signum/metrics"
	"github.com/driftline/signum/risk"
	"github.com/driftline/signum/scoring"
	"github.com/driftline/signum/types"
)

// AccountState is the slice of account data the engine needs; the account
// provider collaborator supplies it.
type AccountState struct {
	Balance float64
}

// Engine is the evaluation facade: indicators → scoring → sizing, one call
// per symbol per tick. The pipeline is pure; all tunables are passed in at
// construction, none read from ambient state.
type Engine struct {
	cfg       config.Config
	log       logger.Logger
	confirmer *confirm.Confirmer // optional slow-timeframe veto
}

// New validates the config once and returns a ready engine.
func New(cfg config.Config, log logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, errors.New("engine: nil logger")
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// WithConfirmer attaches a multi-timeframe confirmation filter. Non-flat
// signals the filter disagrees with are downgraded to flat.
func (e *Engine) WithConfirmer(c *confirm.Confirmer) *Engine {
	e.confirmer = c
	return e
}

// Evaluate is the single entry point for signal generation and initial
// sizing. Flat verdicts return a zero-size signal and never touch the risk
// engine; sizing failures surface as a typed error so the caller can skip
// the trade.
func (e *Engine) Evaluate(symbol string, window types.Series, acct AccountState) (types.TradingSignal, error) {
	last, ok := window.Last()
	if !ok {
		return types.TradingSignal{}, fmt.Errorf("engine: empty window for %s", symbol)
	}

	results := indicator.EvaluateAll(window)
	score := scoring.Score(results, e.cfg.Weights)
	dir := scoring.DirectionOf(score.Value)
	conf := scoring.Confidence(score.Value)

	metrics.SignalsEvaluated.WithLabelValues(symbol, string(dir)).Inc()
	metrics.CompositeScore.WithLabelValues(symbol).Set(score.Value)

	sig := types.TradingSignal{
		Symbol:         symbol,
		Direction:      dir,
		Confidence:     conf,
		CompositeScore: score.Value,
		EntryPrice:     last.Close,
		IndicatorsUsed: names(results),
	}

	if dir == types.Flat {
		return sig, nil
	}

	if e.confirmer != nil && !e.confirmer.Agrees(symbol, dir) {
		e.log.Info("signal_vetoed",
			logger.String("symbol", symbol),
			logger.String("direction", string(dir)),
			logger.Float64("score", score.Value),
		)
		sig.Direction = types.Flat
		sig.Confidence = 0
		return sig, nil
	}

	factors := extractFactors(results, score)
	slPct, tpPct := risk.Distances(factors, e.cfg.Profile)
	stop, target := risk.Levels(last.Close, dir, slPct, tpPct)

	qty, notional, err := risk.PositionSize(risk.SizingInput{
		Balance:       acct.Balance,
		EntryPrice:    last.Close,
		StopLoss:      stop,
		Confidence:    conf,
		VolatilityPct: factors.VolatilityPct,
	}, e.cfg.Profile)
	if err != nil {
		metrics.SizingRejected.WithLabelValues(symbol).Inc()
		e.log.Warn("sizing_refused",
			logger.String("symbol", symbol),
			logger.Err(err),
		)
		return types.TradingSignal{}, err
	}

	sig.StopLoss = stop
	sig.TakeProfit = target
	sig.Size = qty
	sig.Notional = notional

	e.log.Info("signal_generated",
		logger.String("symbol", symbol),
		logger.String("direction", string(dir)),
		logger.Float64("score", score.Value),
		logger.Float64("entry", sig.EntryPrice),
		logger.Float64("stop", stop),
		logger.Float64("target", target),
		logger.Float64("size", qty),
	)
	return sig, nil
}

// extractFactors pulls the risk-engine inputs out of the indicator raw
// outputs, with neutral defaults when an indicator degraded on a short
// window.
func extractFactors(results []indicator.Result, score scoring.CompositeScore) risk.Factors {
	f := risk.Factors{
		RSI:            50,
		RelativeVolume: 1,
		TrendStrength:  math.Abs(score.Trend),
	}
	for _, r := range results {
		switch r.Name {
		case indicator.NameATR:
			if v, ok := r.Raw["volatility_pct"]; ok {
				f.VolatilityPct = v
			}
		case indicator.NameRSI:
			if v, ok := r.Raw["rsi"]; ok {
				f.RSI = v
			}
		case indicator.NameRelVolume:
			if v, ok := r.Raw["rel_volume"]; ok {
				f.RelativeVolume = v
			}
		}
	}
	return f
}

func names(results []indicator.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}
