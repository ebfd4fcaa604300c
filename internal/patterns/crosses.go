package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// CrossDetector fires when the fast moving average crosses the slow one
// between the last two samples. Fast below then above is a golden cross
// (bullish), the opposite is a death cross (bearish).
type CrossDetector struct{}

func (d *CrossDetector) Kind() Kind { return Cross }

func (d *CrossDetector) MinCandles(cfg Config) int {
	return cfg.Indicators.SlowMAPeriod + 10
}

func (d *CrossDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	fast, slow := ind.FastMA, ind.SlowMA
	if len(fast) != n || len(slow) != n {
		return nil
	}
	if !indicators.Defined(fast[n-2]) || !indicators.Defined(slow[n-2]) ||
		!indicators.Defined(fast[n-1]) || !indicators.Defined(slow[n-1]) {
		return nil
	}

	prevDiff := fast[n-2] - slow[n-2]
	currDiff := fast[n-1] - slow[n-1]

	golden := prevDiff < 0 && currDiff > 0
	death := prevDiff > 0 && currDiff < 0
	if !golden && !death {
		return nil
	}

	volumes := s.Volumes()
	ratio := volumeRatio(volumes, 20)
	confirmed := ratio >= cfg.CrossVolumeMultiplier

	currentClose := s.LastClose()
	separation := abs(currDiff) / slow[n-1] * 100

	confirmedMetric := 0.0
	if confirmed {
		confirmedMetric = 1
	}
	metrics := map[string]float64{
		"fast_ma":          fast[n-1],
		"slow_ma":          slow[n-1],
		"volume_ratio":     ratio,
		"volume_confirmed": confirmedMetric,
		"separation":       separation,
	}

	highs := s.Highs()
	lows := s.Lows()

	if golden {
		maxHigh := highs[0]
		for _, h := range highs {
			if h > maxHigh {
				maxHigh = h
			}
		}
		target := indicators.NearestSwingHighAbove(ind.SwingHighs, currentClose, maxHigh)
		return []Candidate{{
			Kind:       Cross,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bullish,
			StartIndex: n - 2,
			EndIndex:   n - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: target,
				Stop:   slow[n-1],
			},
			Metrics: metrics,
		}}
	}

	minLow := lows[0]
	for _, l := range lows {
		if l < minLow {
			minLow = l
		}
	}
	target := indicators.NearestSwingLowBelow(ind.SwingLows, currentClose, minLow)
	return []Candidate{{
		Kind:       Cross,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bearish,
		StartIndex: n - 2,
		EndIndex:   n - 1,
		Levels: KeyLevels{
			Entry:  currentClose,
			Target: target,
			Stop:   slow[n-1],
		},
		Metrics: metrics,
	}}
}
