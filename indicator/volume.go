package indicator

import (
	"math"

	"github.com/driftline/signum/types"
)

// OBV accumulates volume on up-closes, subtracts it on down-closes and holds
// on unchanged closes. Direction comes from the least-squares slope of the
// trailing slopePeriod OBV values.
func OBV(s types.Series, slopePeriod int) Result {
	if slopePeriod < 2 || len(s) < slopePeriod+1 {
		return neutral(NameOBV, Volume)
	}
	obv := make([]float64, len(s))
	running := 0.0
	for i := 1; i < len(s); i++ {
		switch {
		case s[i].Close > s[i-1].Close:
			running += s[i].Volume
		case s[i].Close < s[i-1].Close:
			running -= s[i].Volume
		}
		obv[i] = running
	}
	sl := slope(obv[len(obv)-slopePeriod:])
	sig := 1
	if sl <= 0 {
		sig = -1
	}
	return Result{
		Name:     NameOBV,
		Category: Volume,
		Signal:   sig,
		Strength: cap100(math.Abs(sl) * 10),
		Raw:      map[string]float64{"obv": running, "slope": sl},
	}
}

// relVolumeSpike marks the ratio above which volume confirms a move.
const relVolumeSpike = 1.5

// RelVolume compares the last bar's volume to its period average. A spike
// is only directional when the close moved with it.
func RelVolume(s types.Series, period int) Result {
	if period < 1 || len(s) < period+1 {
		return neutral(NameRelVolume, Volume)
	}
	vols := s.Volumes()
	avg := sma(vols[len(vols)-period-1 : len(vols)-1])
	if avg == 0 {
		return neutral(NameRelVolume, Volume)
	}
	last := s[len(s)-1]
	prev := s[len(s)-2]
	rv := last.Volume / avg

	sig, strength := 0, 0.0
	if rv > relVolumeSpike {
		switch {
		case last.Close > prev.Close:
			sig = 1
		case last.Close < prev.Close:
			sig = -1
		}
		if sig != 0 {
			strength = cap100((rv - 1) * 50)
		}
	}
	return Result{
		Name:     NameRelVolume,
		Category: Volume,
		Signal:   sig,
		Strength: strength,
		Raw:      map[string]float64{"rel_volume": rv},
	}
}
