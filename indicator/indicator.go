package indicator

import "github.com/driftline/signum/types"

// Category groups indicators for the scoring stage.
type Category string

const (
	Trend      Category = "trend"
	Momentum   Category = "momentum"
	Volume     Category = "volume"
	Volatility Category = "volatility"
)

// Result is the output of a single indicator over a trailing window.
// Signal carries direction (-1, 0, +1); Strength the magnitude in [0,100];
// Raw holds named intermediate values for downstream consumers (the risk
// engine reads volatility_pct, rsi and rel_volume from here).
type Result struct {
	Name     string
	Category Category
	Signal   int
	Strength float64
	Raw      map[string]float64
}

// neutral is what an indicator reports when the window is too short for its
// lookback. The pipeline never fails on insufficient data; it degrades.
func neutral(name string, cat Category) Result {
	return Result{Name: name, Category: cat, Signal: 0, Strength: 0}
}

// Standard indicator names.
const (
	NameEMACross   = "ema_cross"
	NameMACD       = "macd"
	NameLinReg     = "linreg_trend"
	NameRSI        = "rsi"
	NameROC        = "roc"
	NameOBV        = "obv"
	NameRelVolume  = "rel_volume"
	NameBollinger  = "bollinger"
	NameATR        = "atr"
)

// EvaluateAll runs the standard indicator set with default parameters over
// one window. The result slice always has the same length and order, so the
// scoring stage receives a complete set even on short windows.
func EvaluateAll(s types.Series) []Result {
	return []Result{
		EMACross(s, DefaultEMAFast, DefaultEMASlow),
		MACD(s, DefaultEMAFast, DefaultEMASlow, DefaultMACDSignal),
		LinRegTrend(s, DefaultLinRegPeriod),
		RSI(s, DefaultRSIPeriod),
		ROC(s, DefaultROCPeriod),
		OBV(s, DefaultOBVSlopePeriod),
		RelVolume(s, DefaultRelVolumePeriod),
		Bollinger(s, DefaultBollingerPeriod, DefaultBollingerWidth),
		ATR(s, DefaultATRPeriod),
	}
}

// Default lookbacks and parameters for the standard set.
const (
	DefaultEMAFast         = 12
	DefaultEMASlow         = 26
	DefaultMACDSignal      = 9
	DefaultLinRegPeriod    = 20
	DefaultRSIPeriod       = 14
	DefaultROCPeriod       = 10
	DefaultOBVSlopePeriod  = 20
	DefaultRelVolumePeriod = 20
	DefaultBollingerPeriod = 20
	DefaultBollingerWidth  = 2.0
	DefaultATRPeriod       = 14
)
