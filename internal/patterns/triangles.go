package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// triangleSwingWindow is tighter than the shared swing window so the
// trendline fit sees enough touches inside the lookback.
const triangleSwingWindow = 4

// TriangleDetector finds ascending triangles (flat resistance, rising
// lows) and descending triangles (flat support, falling highs) with
// price compressing into the flat line.
type TriangleDetector struct{}

func (d *TriangleDetector) Kind() Kind { return Triangle }

func (d *TriangleDetector) MinCandles(cfg Config) int { return cfg.TriangleLookback }

func (d *TriangleDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	offset := n - cfg.TriangleLookback
	highs := s.Highs()[offset:]
	lows := s.Lows()[offset:]
	currentClose := s.LastClose()

	peaks := indicators.SwingHighs(highs, triangleSwingWindow)
	troughs := indicators.SwingLows(lows, triangleSwingWindow)

	if c, ok := d.checkAscending(s, cfg, offset, highs, lows, peaks, troughs, currentClose); ok {
		return []Candidate{c}
	}
	if c, ok := d.checkDescending(s, cfg, offset, highs, lows, peaks, troughs, currentClose); ok {
		return []Candidate{c}
	}
	return nil
}

func (d *TriangleDetector) checkAscending(s *market.Series, cfg Config, offset int, highs, lows []float64, peaks, troughs []indicators.SwingPoint, currentClose float64) (Candidate, bool) {
	if len(peaks) < cfg.TriangleMinTouches || len(troughs) < 2 {
		return Candidate{}, false
	}

	touchPrices := swingPrices(peaks[len(peaks)-cfg.TriangleMinTouches:])
	resistance := median(touchPrices)
	if resistance <= 0 {
		return Candidate{}, false
	}
	deviation := meanDeviation(touchPrices, resistance)
	if deviation > cfg.TriangleFlatTolerance {
		return Candidate{}, false
	}

	troughPrices := swingPrices(troughs)
	slope := linearSlope(troughPrices)
	if slope <= 0 {
		return Candidate{}, false
	}

	proximity := abs(currentClose-resistance) / resistance
	if proximity > cfg.TriangleProximity {
		return Candidate{}, false
	}

	flatness := 1 - deviation/cfg.TriangleFlatTolerance
	slopeScore := slope / average(lows) * 100
	if slopeScore > 1 {
		slopeScore = 1
	}

	lastTrough := troughPrices[len(troughPrices)-1]
	height := resistance - troughPrices[0]

	return Candidate{
		Kind:       Triangle,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bullish,
		StartIndex: offset + peaks[len(peaks)-cfg.TriangleMinTouches].Index,
		EndIndex:   s.Len() - 1,
		Levels: KeyLevels{
			Entry:  resistance,
			Target: resistance + height,
			Stop:   lastTrough,
		},
		Metrics: map[string]float64{
			"flat_level":  resistance,
			"slope":       slope,
			"flatness":    flatness,
			"slope_score": slopeScore,
			"touches":     float64(cfg.TriangleMinTouches),
		},
	}, true
}

func (d *TriangleDetector) checkDescending(s *market.Series, cfg Config, offset int, highs, lows []float64, peaks, troughs []indicators.SwingPoint, currentClose float64) (Candidate, bool) {
	if len(troughs) < cfg.TriangleMinTouches || len(peaks) < 2 {
		return Candidate{}, false
	}

	touchPrices := swingPrices(troughs[len(troughs)-cfg.TriangleMinTouches:])
	support := median(touchPrices)
	if support <= 0 {
		return Candidate{}, false
	}
	deviation := meanDeviation(touchPrices, support)
	if deviation > cfg.TriangleFlatTolerance {
		return Candidate{}, false
	}

	peakPrices := swingPrices(peaks)
	slope := linearSlope(peakPrices)
	if slope >= 0 {
		return Candidate{}, false
	}

	proximity := abs(currentClose-support) / support
	if proximity > cfg.TriangleProximity {
		return Candidate{}, false
	}

	flatness := 1 - deviation/cfg.TriangleFlatTolerance
	slopeScore := abs(slope) / average(highs) * 100
	if slopeScore > 1 {
		slopeScore = 1
	}

	lastPeak := peakPrices[len(peakPrices)-1]
	height := peakPrices[0] - support

	return Candidate{
		Kind:       Triangle,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bearish,
		StartIndex: offset + troughs[len(troughs)-cfg.TriangleMinTouches].Index,
		EndIndex:   s.Len() - 1,
		Levels: KeyLevels{
			Entry:  support,
			Target: support - height,
			Stop:   lastPeak,
		},
		Metrics: map[string]float64{
			"flat_level":  support,
			"slope":       slope,
			"flatness":    flatness,
			"slope_score": slopeScore,
			"touches":     float64(cfg.TriangleMinTouches),
		},
	}, true
}

func swingPrices(swings []indicators.SwingPoint) []float64 {
	prices := make([]float64, len(swings))
	for i, sp := range swings {
		prices[i] = sp.Price
	}
	return prices
}

// meanDeviation is the mean relative distance of values from level
func meanDeviation(values []float64, level float64) float64 {
	if len(values) == 0 || level == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += abs(v-level) / level
	}
	return sum / float64(len(values))
}
