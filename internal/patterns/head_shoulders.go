package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// HeadAndShouldersDetector finds the three-extreme reversal structure.
// Regular form is bearish; the inverse form (three troughs, middle
// lowest) is bullish.
type HeadAndShouldersDetector struct{}

func (d *HeadAndShouldersDetector) Kind() Kind { return HeadAndShoulders }

func (d *HeadAndShouldersDetector) MinCandles(cfg Config) int { return 40 }

func (d *HeadAndShouldersDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	if s.Len() < d.MinCandles(cfg) {
		return nil
	}

	if c, ok := d.checkRegular(s, ind, cfg); ok {
		return []Candidate{c}
	}
	if c, ok := d.checkInverse(s, ind, cfg); ok {
		return []Candidate{c}
	}
	return nil
}

func (d *HeadAndShouldersDetector) checkRegular(s *market.Series, ind *indicators.Set, cfg Config) (Candidate, bool) {
	peaks := ind.SwingHighs
	troughs := ind.SwingLows
	if len(peaks) < 3 || len(troughs) < 2 {
		return Candidate{}, false
	}

	ls := peaks[len(peaks)-3]
	head := peaks[len(peaks)-2]
	rs := peaks[len(peaks)-1]

	if head.Price <= ls.Price || head.Price <= rs.Price {
		return Candidate{}, false
	}

	avgShoulder := (ls.Price + rs.Price) / 2
	if abs(ls.Price-rs.Price)/avgShoulder > cfg.ShoulderTolerance {
		return Candidate{}, false
	}

	prominence := (head.Price - avgShoulder) / head.Price
	if prominence < cfg.HeadMinProminence {
		return Candidate{}, false
	}

	// Neckline: the trough nearest the head on each side.
	t1, ok1 := lastTroughBetween(troughs, ls.Index, head.Index)
	t2, ok2 := firstTroughBetween(troughs, head.Index, rs.Index)
	if !ok1 || !ok2 {
		return Candidate{}, false
	}
	neckline := (t1 + t2) / 2

	currentClose := s.LastClose()
	if currentClose >= neckline {
		return Candidate{}, false
	}

	symmetry := 1 - abs(ls.Price-rs.Price)/avgShoulder/cfg.ShoulderTolerance
	breakDepth := (neckline - currentClose) / neckline

	return Candidate{
		Kind:       HeadAndShoulders,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bearish,
		StartIndex: ls.Index,
		EndIndex:   s.Len() - 1,
		Levels: KeyLevels{
			Entry:  neckline,
			Target: neckline - (head.Price - neckline),
			Stop:   head.Price * (1 + cfg.StopBuffer),
		},
		Metrics: map[string]float64{
			"left_shoulder":   ls.Price,
			"head":            head.Price,
			"right_shoulder":  rs.Price,
			"neckline":        neckline,
			"symmetry":        symmetry,
			"head_prominence": prominence,
			"break_depth":     breakDepth,
		},
	}, true
}

func (d *HeadAndShouldersDetector) checkInverse(s *market.Series, ind *indicators.Set, cfg Config) (Candidate, bool) {
	peaks := ind.SwingHighs
	troughs := ind.SwingLows
	if len(troughs) < 3 || len(peaks) < 2 {
		return Candidate{}, false
	}

	ls := troughs[len(troughs)-3]
	head := troughs[len(troughs)-2]
	rs := troughs[len(troughs)-1]

	if head.Price >= ls.Price || head.Price >= rs.Price {
		return Candidate{}, false
	}

	avgShoulder := (ls.Price + rs.Price) / 2
	if avgShoulder <= 0 || abs(ls.Price-rs.Price)/avgShoulder > cfg.ShoulderTolerance {
		return Candidate{}, false
	}

	prominence := (avgShoulder - head.Price) / avgShoulder
	if prominence < cfg.HeadMinProminence {
		return Candidate{}, false
	}

	n1, ok1 := lastPeakBetween(peaks, ls.Index, head.Index)
	n2, ok2 := firstPeakBetween(peaks, head.Index, rs.Index)
	if !ok1 || !ok2 {
		return Candidate{}, false
	}
	neckline := (n1 + n2) / 2

	currentClose := s.LastClose()
	if currentClose <= neckline {
		return Candidate{}, false
	}

	symmetry := 1 - abs(ls.Price-rs.Price)/avgShoulder/cfg.ShoulderTolerance
	breakDepth := (currentClose - neckline) / neckline

	return Candidate{
		Kind:       HeadAndShoulders,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bullish,
		StartIndex: ls.Index,
		EndIndex:   s.Len() - 1,
		Levels: KeyLevels{
			Entry:  neckline,
			Target: neckline + (neckline - head.Price),
			Stop:   head.Price * (1 - cfg.StopBuffer),
		},
		Metrics: map[string]float64{
			"left_shoulder":   ls.Price,
			"head":            head.Price,
			"right_shoulder":  rs.Price,
			"neckline":        neckline,
			"symmetry":        symmetry,
			"head_prominence": prominence,
			"break_depth":     breakDepth,
		},
	}, true
}

func lastTroughBetween(troughs []indicators.SwingPoint, lo, hi int) (float64, bool) {
	price, found := 0.0, false
	for _, t := range troughs {
		if t.Index > lo && t.Index < hi {
			price, found = t.Price, true
		}
	}
	return price, found
}

func lastPeakBetween(peaks []indicators.SwingPoint, lo, hi int) (float64, bool) {
	price, found := 0.0, false
	for _, p := range peaks {
		if p.Index > lo && p.Index < hi {
			price, found = p.Price, true
		}
	}
	return price, found
}
