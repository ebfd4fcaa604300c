// Package indicators computes derived numeric series from a candle
// series. Every function returns a slice aligned with the input; leading
// entries without enough history are NaN, never zero, so detectors can
// tell "undefined" from a real value.
package indicators

import (
	"math"
)

// Defined reports whether an indicator value is available at an index
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes a simple moving average series
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes an exponential moving average series, seeded with the
// SMA of the first period values.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	k := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		ema = (values[i] * k) + (ema * (1 - k))
		out[i] = ema
	}
	return out
}

// RSI computes the Relative Strength Index with Wilder smoothing
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Bollinger computes the upper, middle and lower volatility bands around
// a simple moving average.
func Bollinger(closes []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper = nanSlice(n)
	middle = nanSlice(n)
	lower = nanSlice(n)
	if period <= 1 || n < period {
		return upper, middle, lower
	}

	for i := period - 1; i < n; i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += closes[i-j]
		}
		ma := sum / float64(period)

		sumSq := 0.0
		for j := 0; j < period; j++ {
			diff := closes[i-j] - ma
			sumSq += diff * diff
		}
		sigma := math.Sqrt(sumSq / float64(period))

		middle[i] = ma
		upper[i] = ma + stdDev*sigma
		lower[i] = ma - stdDev*sigma
	}
	return upper, middle, lower
}
