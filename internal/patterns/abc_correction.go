package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

const (
	abcLookback = 80
	abcFibMin   = 0.382
	abcFibMax   = 0.618
	abcCMin     = 0.786
	abcCMax     = 1.618
	abcMinMove  = 0.02
	// C must have completed within the last abcFreshBars candles
	abcFreshBars = 15
)

// ABCCorrectionDetector finds a three-wave correction after an impulse.
// Wave B retraces wave A into the Fibonacci band, wave C roughly equals
// wave A. A completed bullish C is a long setup back toward the origin
// of the move, the bearish form mirrors it.
type ABCCorrectionDetector struct{}

func (d *ABCCorrectionDetector) Kind() Kind { return ABCCorrection }

func (d *ABCCorrectionDetector) MinCandles(cfg Config) int { return abcLookback + 10 }

func (d *ABCCorrectionDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	offset := n - abcLookback
	highs := s.Highs()[offset:]
	lows := s.Lows()[offset:]
	currentClose := s.LastClose()

	peaks := indicators.SwingHighs(highs, cfg.Indicators.SwingWindow)
	troughs := indicators.SwingLows(lows, cfg.Indicators.SwingWindow)
	if len(peaks) < 2 || len(troughs) < 2 {
		return nil
	}

	if c, ok := d.checkBullish(s, cfg, offset, len(lows), peaks, troughs, currentClose); ok {
		return []Candidate{c}
	}
	if c, ok := d.checkBearish(s, cfg, offset, len(highs), peaks, troughs, currentClose); ok {
		return []Candidate{c}
	}
	return nil
}

// checkBullish walks trough pairs looking for peak -> trough A ->
// peak B -> trough C.
func (d *ABCCorrectionDetector) checkBullish(s *market.Series, cfg Config, offset, window int, peaks, troughs []indicators.SwingPoint, currentClose float64) (Candidate, bool) {
	for i := 0; i < len(troughs)-1; i++ {
		a := troughs[i]
		c := troughs[i+1]

		if c.Index < window-abcFreshBars {
			continue
		}

		b, ok := lastPeakPointBetween(peaks, a.Index, c.Index)
		if !ok {
			continue
		}
		origin, ok := lastPeakPointBefore(peaks, a.Index)
		if !ok {
			continue
		}

		waveA := origin.Price - a.Price
		if waveA <= 0 || waveA/origin.Price < abcMinMove {
			continue
		}

		waveB := b.Price - a.Price
		if waveB <= 0 || b.Price >= origin.Price {
			continue
		}
		bRetracement := waveB / waveA
		if bRetracement < abcFibMin || bRetracement > abcFibMax {
			continue
		}

		waveC := b.Price - c.Price
		if waveC <= 0 {
			continue
		}
		cToA := waveC / waveA
		if cToA < abcCMin || cToA > abcCMax {
			continue
		}

		if abs(currentClose-c.Price)/c.Price > 0.03 {
			continue
		}

		clean := 0.0
		if c.Price > a.Price {
			clean = 1
		}

		return Candidate{
			Kind:       ABCCorrection,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bullish,
			StartIndex: offset + origin.Index,
			EndIndex:   s.Len() - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: origin.Price,
				Stop:   c.Price * 0.99,
			},
			Metrics: map[string]float64{
				"origin":        origin.Price,
				"wave_a":        a.Price,
				"wave_b":        b.Price,
				"wave_c":        c.Price,
				"b_retracement": bRetracement,
				"c_to_a_ratio":  cToA,
				"clean":         clean,
			},
		}, true
	}
	return Candidate{}, false
}

// checkBearish mirrors checkBullish: trough -> peak A -> trough B ->
// peak C.
func (d *ABCCorrectionDetector) checkBearish(s *market.Series, cfg Config, offset, window int, peaks, troughs []indicators.SwingPoint, currentClose float64) (Candidate, bool) {
	for i := 0; i < len(peaks)-1; i++ {
		a := peaks[i]
		c := peaks[i+1]

		if c.Index < window-abcFreshBars {
			continue
		}

		b, ok := lastTroughPointBetween(troughs, a.Index, c.Index)
		if !ok {
			continue
		}
		origin, ok := lastTroughPointBefore(troughs, a.Index)
		if !ok {
			continue
		}

		waveA := a.Price - origin.Price
		if waveA <= 0 || origin.Price <= 0 || waveA/origin.Price < abcMinMove {
			continue
		}

		waveB := a.Price - b.Price
		if waveB <= 0 || b.Price <= origin.Price {
			continue
		}
		bRetracement := waveB / waveA
		if bRetracement < abcFibMin || bRetracement > abcFibMax {
			continue
		}

		waveC := c.Price - b.Price
		if waveC <= 0 {
			continue
		}
		cToA := waveC / waveA
		if cToA < abcCMin || cToA > abcCMax {
			continue
		}

		if abs(currentClose-c.Price)/c.Price > 0.03 {
			continue
		}

		clean := 0.0
		if c.Price < a.Price {
			clean = 1
		}

		return Candidate{
			Kind:       ABCCorrection,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bearish,
			StartIndex: offset + origin.Index,
			EndIndex:   s.Len() - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: origin.Price,
				Stop:   c.Price * 1.01,
			},
			Metrics: map[string]float64{
				"origin":        origin.Price,
				"wave_a":        a.Price,
				"wave_b":        b.Price,
				"wave_c":        c.Price,
				"b_retracement": bRetracement,
				"c_to_a_ratio":  cToA,
				"clean":         clean,
			},
		}, true
	}
	return Candidate{}, false
}

func lastPeakPointBetween(peaks []indicators.SwingPoint, lo, hi int) (indicators.SwingPoint, bool) {
	var out indicators.SwingPoint
	found := false
	for _, p := range peaks {
		if p.Index > lo && p.Index < hi {
			out, found = p, true
		}
	}
	return out, found
}

func lastPeakPointBefore(peaks []indicators.SwingPoint, idx int) (indicators.SwingPoint, bool) {
	var out indicators.SwingPoint
	found := false
	for _, p := range peaks {
		if p.Index < idx {
			out, found = p, true
		}
	}
	return out, found
}

func lastTroughPointBetween(troughs []indicators.SwingPoint, lo, hi int) (indicators.SwingPoint, bool) {
	var out indicators.SwingPoint
	found := false
	for _, t := range troughs {
		if t.Index > lo && t.Index < hi {
			out, found = t, true
		}
	}
	return out, found
}

func lastTroughPointBefore(troughs []indicators.SwingPoint, idx int) (indicators.SwingPoint, bool) {
	var out indicators.SwingPoint
	found := false
	for _, t := range troughs {
		if t.Index < idx {
			out, found = t, true
		}
	}
	return out, found
}
