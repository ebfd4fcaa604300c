package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// DoubleTopBottomDetector finds two similar swing extremes separated by
// a retracement, confirmed by a break of the intervening level.
type DoubleTopBottomDetector struct{}

func (d *DoubleTopBottomDetector) Kind() Kind { return DoubleTopBottom }

func (d *DoubleTopBottomDetector) MinCandles(cfg Config) int { return 30 }

func (d *DoubleTopBottomDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	if s.Len() < d.MinCandles(cfg) {
		return nil
	}

	if c, ok := d.checkTop(s, ind, cfg); ok {
		return []Candidate{c}
	}
	if c, ok := d.checkBottom(s, ind, cfg); ok {
		return []Candidate{c}
	}
	return nil
}

func (d *DoubleTopBottomDetector) checkTop(s *market.Series, ind *indicators.Set, cfg Config) (Candidate, bool) {
	peaks := ind.SwingHighs
	troughs := ind.SwingLows
	if len(peaks) < 2 || len(troughs) < 1 {
		return Candidate{}, false
	}

	// The two most recent peaks form the pattern.
	p1 := peaks[len(peaks)-2]
	p2 := peaks[len(peaks)-1]
	avgPeak := (p1.Price + p2.Price) / 2
	if abs(p1.Price-p2.Price)/avgPeak > cfg.PeakTolerance {
		return Candidate{}, false
	}

	neckline, ok := firstTroughBetween(troughs, p1.Index, p2.Index)
	if !ok {
		return Candidate{}, false
	}

	// The pullback between the peaks must be deep enough to count as a
	// retracement rather than noise.
	retracement := (avgPeak - neckline) / avgPeak
	if retracement < cfg.MinRetracement {
		return Candidate{}, false
	}

	currentClose := s.LastClose()
	if currentClose >= neckline {
		return Candidate{}, false
	}

	similarity := 1 - abs(p1.Price-p2.Price)/avgPeak/cfg.PeakTolerance
	breakDepth := (neckline - currentClose) / neckline

	maxPeak := p1.Price
	if p2.Price > maxPeak {
		maxPeak = p2.Price
	}

	return Candidate{
		Kind:       DoubleTopBottom,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bearish,
		StartIndex: p1.Index,
		EndIndex:   s.Len() - 1,
		Levels: KeyLevels{
			Entry:  avgPeak,
			Target: neckline - (avgPeak - neckline),
			Stop:   maxPeak * (1 + cfg.StopBuffer),
		},
		Metrics: map[string]float64{
			"extreme1":    p1.Price,
			"extreme2":    p2.Price,
			"neckline":    neckline,
			"similarity":  similarity,
			"retracement": retracement,
			"break_depth": breakDepth,
		},
	}, true
}

func (d *DoubleTopBottomDetector) checkBottom(s *market.Series, ind *indicators.Set, cfg Config) (Candidate, bool) {
	peaks := ind.SwingHighs
	troughs := ind.SwingLows
	if len(troughs) < 2 || len(peaks) < 1 {
		return Candidate{}, false
	}

	t1 := troughs[len(troughs)-2]
	t2 := troughs[len(troughs)-1]
	avgTrough := (t1.Price + t2.Price) / 2
	if avgTrough <= 0 || abs(t1.Price-t2.Price)/avgTrough > cfg.PeakTolerance {
		return Candidate{}, false
	}

	neckline, ok := firstPeakBetween(peaks, t1.Index, t2.Index)
	if !ok {
		return Candidate{}, false
	}

	retracement := (neckline - avgTrough) / avgTrough
	if retracement < cfg.MinRetracement {
		return Candidate{}, false
	}

	currentClose := s.LastClose()
	if currentClose <= neckline {
		return Candidate{}, false
	}

	similarity := 1 - abs(t1.Price-t2.Price)/avgTrough/cfg.PeakTolerance
	breakDepth := (currentClose - neckline) / neckline

	minTrough := t1.Price
	if t2.Price < minTrough {
		minTrough = t2.Price
	}

	return Candidate{
		Kind:       DoubleTopBottom,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bullish,
		StartIndex: t1.Index,
		EndIndex:   s.Len() - 1,
		Levels: KeyLevels{
			Entry:  avgTrough,
			Target: neckline + (neckline - avgTrough),
			Stop:   minTrough * (1 - cfg.StopBuffer),
		},
		Metrics: map[string]float64{
			"extreme1":    t1.Price,
			"extreme2":    t2.Price,
			"neckline":    neckline,
			"similarity":  similarity,
			"retracement": retracement,
			"break_depth": breakDepth,
		},
	}, true
}

// firstTroughBetween returns the price of the earliest trough strictly
// between the two indices.
func firstTroughBetween(troughs []indicators.SwingPoint, lo, hi int) (float64, bool) {
	for _, t := range troughs {
		if t.Index > lo && t.Index < hi {
			return t.Price, true
		}
	}
	return 0, false
}

func firstPeakBetween(peaks []indicators.SwingPoint, lo, hi int) (float64, bool) {
	for _, p := range peaks {
		if p.Index > lo && p.Index < hi {
			return p.Price, true
		}
	}
	return 0, false
}
