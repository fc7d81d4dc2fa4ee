package indicator

import "math"

// emaSeries computes a full-length EMA series: SMA seed for the warm-up
// portion, recursive multiplier afterwards. Output is index-aligned with the
// input so two series of different periods can be subtracted directly.
func emaSeries(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	if period <= 0 {
		copy(out, vals)
		return out
	}
	k := 2.0 / (float64(period) + 1)
	sum := 0.0
	for i, v := range vals {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}

func sma(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stddev is the population standard deviation around the supplied mean.
func stddev(vals []float64, mean float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}

// slope is the least-squares slope of vals against their index.
func slope(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	sumX, sumY, sumXY, sumXX := 0.0, 0.0, 0.0, 0.0
	for i, y := range vals {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	count := float64(n)
	den := count*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (count*sumXY - sumX*sumY) / den
}

// cap100 bounds a strength value to [0,100].
func cap100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
