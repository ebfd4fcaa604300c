package indicators

import (
	"market-scanner/internal/market"
)

// Params holds the configuration for the shared indicator set. Swing
// window size and band parameters are heuristics exposed as config
// because no single value fits every instrument and timeframe.
type Params struct {
	FastMAPeriod int     `json:"fast_ma_period"`
	SlowMAPeriod int     `json:"slow_ma_period"`
	RSIPeriod    int     `json:"rsi_period"`
	BBPeriod     int     `json:"bb_period"`
	BBStdDev     float64 `json:"bb_std_dev"`
	SwingWindow  int     `json:"swing_window"`
}

// DefaultParams returns the standard indicator configuration
func DefaultParams() Params {
	return Params{
		FastMAPeriod: 50,
		SlowMAPeriod: 200,
		RSIPeriod:    14,
		BBPeriod:     20,
		BBStdDev:     2.0,
		SwingWindow:  5,
	}
}

// Set is the shared, read-only collection of derived series for one
// candle series. It is computed once per pipeline run and passed to
// every detector so nothing is recomputed.
type Set struct {
	FastMA     []float64
	SlowMA     []float64
	RSI        []float64
	BBUpper    []float64
	BBMiddle   []float64
	BBLower    []float64
	SwingHighs []SwingPoint
	SwingLows  []SwingPoint
	Params     Params
}

// Compute builds the indicator set for a series. Pure function of its
// inputs.
func Compute(s *market.Series, p Params) *Set {
	closes := s.Closes()
	upper, middle, lower := Bollinger(closes, p.BBPeriod, p.BBStdDev)
	return &Set{
		FastMA:     EMA(closes, p.FastMAPeriod),
		SlowMA:     EMA(closes, p.SlowMAPeriod),
		RSI:        RSI(closes, p.RSIPeriod),
		BBUpper:    upper,
		BBMiddle:   middle,
		BBLower:    lower,
		SwingHighs: SwingHighs(s.Highs(), p.SwingWindow),
		SwingLows:  SwingLows(s.Lows(), p.SwingWindow),
		Params:     p,
	}
}

// Series returns a named indicator sequence ("ema_fast", "ema_slow",
// "rsi", "bb_upper", "bb_middle", "bb_lower"), or nil for an unknown
// name.
func (s *Set) Series(name string) []float64 {
	switch name {
	case "ema_fast":
		return s.FastMA
	case "ema_slow":
		return s.SlowMA
	case "rsi":
		return s.RSI
	case "bb_upper":
		return s.BBUpper
	case "bb_middle":
		return s.BBMiddle
	case "bb_lower":
		return s.BBLower
	default:
		return nil
	}
}
