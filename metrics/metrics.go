package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signum_signals_evaluated_total",
			Help: "Total number of evaluation ticks (by symbol and direction).",
		},
		[]string{"symbol", "direction"},
	)

	CompositeScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signum_composite_score",
			Help: "Most recent composite score per symbol.",
		},
		[]string{"symbol"},
	)

	SizingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signum_sizing_rejected_total",
			Help: "Sizing attempts refused due to invalid risk input.",
		},
		[]string{"symbol"},
	)

	StopMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signum_stop_moves_total",
			Help: "Stop-loss updates applied by the lifecycle manager.",
		},
		[]string{"symbol"},
	)

	StopMovesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signum_stop_moves_rejected_total",
			Help: "Stop updates rejected because they would loosen protection.",
		},
		[]string{"symbol"},
	)

	PartialCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signum_partial_closes_total",
			Help: "Partial take-profit closes emitted per symbol.",
		},
		[]string{"symbol"},
	)

	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signum_positions_open",
			Help: "Positions currently tracked by the lifecycle manager.",
		},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signum_equity",
			Help: "Current equity of the executor (paper or live).",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsEvaluated,
		CompositeScore,
		SizingRejected,
		StopMoves,
		StopMovesRejected,
		PartialCloses,
		PositionsOpen,
		EquityGauge,
	)
}
