package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// EngulfingDetector matches a two-candle reversal where the latest body
// fully contains the prior body with the opposite color.
type EngulfingDetector struct{}

func (d *EngulfingDetector) Kind() Kind { return Engulfing }

func (d *EngulfingDetector) MinCandles(cfg Config) int {
	return cfg.EngulfingTrendLookback + 2
}

func (d *EngulfingDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	prev := s.Candle(n - 2)
	curr := s.Candle(n - 1)

	if prev.BodySize() == 0 || curr.BodySize() == 0 {
		return nil
	}
	if curr.BodyTop() < prev.BodyTop() || curr.BodyBottom() > prev.BodyBottom() {
		return nil
	}

	sizeRatio := curr.BodySize() / prev.BodySize()

	// Prior trend over the candles before the pattern pair.
	closes := s.Closes()
	trendStart := closes[n-2-cfg.EngulfingTrendLookback]
	trendEnd := closes[n-3]
	trendSlope := (trendEnd - trendStart) / trendStart

	currentClose := curr.Close
	highs := s.Highs()
	lows := s.Lows()

	if prev.IsBearish() && curr.IsBullish() {
		maxHigh := maxOf(highs)
		target := indicators.NearestSwingHighAbove(ind.SwingHighs, currentClose, maxHigh)
		trendBonus := 0.0
		if trendSlope < 0 {
			trendBonus = -trendSlope
		}
		return []Candidate{{
			Kind:       Engulfing,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bullish,
			StartIndex: n - 2,
			EndIndex:   n - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: target,
				Stop:   curr.BodyBottom(),
			},
			Metrics: map[string]float64{
				"size_ratio":  sizeRatio,
				"trend_slope": trendSlope,
				"trend_align": trendBonus,
			},
		}}
	}

	if prev.IsBullish() && curr.IsBearish() {
		minLow := minOf(lows)
		target := indicators.NearestSwingLowBelow(ind.SwingLows, currentClose, minLow)
		trendBonus := 0.0
		if trendSlope > 0 {
			trendBonus = trendSlope
		}
		return []Candidate{{
			Kind:       Engulfing,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bearish,
			StartIndex: n - 2,
			EndIndex:   n - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: target,
				Stop:   curr.BodyTop(),
			},
			Metrics: map[string]float64{
				"size_ratio":  sizeRatio,
				"trend_slope": trendSlope,
				"trend_align": trendBonus,
			},
		}}
	}

	return nil
}
