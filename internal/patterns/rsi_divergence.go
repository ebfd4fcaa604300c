package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// RSIDivergenceDetector compares price and RSI extremes over a recent
// window split in half. Price making a lower low while RSI makes a
// higher low is bullish; the mirror is bearish.
type RSIDivergenceDetector struct{}

func (d *RSIDivergenceDetector) Kind() Kind { return RSIDivergence }

func (d *RSIDivergenceDetector) MinCandles(cfg Config) int {
	return cfg.Indicators.RSIPeriod + cfg.DivergenceLookback + 5
}

func (d *RSIDivergenceDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	lookback := cfg.DivergenceLookback
	closes := s.Closes()
	rsi := ind.RSI
	if len(rsi) != n {
		return nil
	}

	recentClose := closes[n-lookback:]
	recentRSI := rsi[n-lookback:]
	for _, v := range recentRSI {
		if !indicators.Defined(v) {
			return nil
		}
	}

	mid := lookback / 2
	currentClose := closes[n-1]

	// Bullish: price lower low, RSI higher low.
	priceLowRecent := minOf(recentClose[mid:])
	priceLowPast := minOf(recentClose[:mid])
	rsiLowRecent := minOf(recentRSI[mid:])
	rsiLowPast := minOf(recentRSI[:mid])

	if priceLowRecent < priceLowPast && rsiLowRecent > rsiLowPast {
		priceDiv := (priceLowPast - priceLowRecent) / priceLowPast
		rsiDiv := (rsiLowRecent - rsiLowPast) / (100 - rsiLowPast + 0.01)
		return []Candidate{{
			Kind:       RSIDivergence,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bullish,
			StartIndex: n - lookback,
			EndIndex:   n - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: currentClose * 1.04,
				Stop:   priceLowRecent * (1 - cfg.StopBuffer),
			},
			Metrics: map[string]float64{
				"price_extreme_recent": priceLowRecent,
				"price_extreme_past":   priceLowPast,
				"rsi_extreme_recent":   rsiLowRecent,
				"rsi_extreme_past":     rsiLowPast,
				"price_divergence":     priceDiv,
				"rsi_divergence":       rsiDiv,
			},
		}}
	}

	// Bearish: price higher high, RSI lower high.
	priceHighRecent := maxOf(recentClose[mid:])
	priceHighPast := maxOf(recentClose[:mid])
	rsiHighRecent := maxOf(recentRSI[mid:])
	rsiHighPast := maxOf(recentRSI[:mid])

	if priceHighRecent > priceHighPast && rsiHighRecent < rsiHighPast {
		priceDiv := (priceHighRecent - priceHighPast) / priceHighPast
		rsiDiv := (rsiHighPast - rsiHighRecent) / (rsiHighPast + 0.01)
		return []Candidate{{
			Kind:       RSIDivergence,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bearish,
			StartIndex: n - lookback,
			EndIndex:   n - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: currentClose * 0.96,
				Stop:   priceHighRecent * (1 + cfg.StopBuffer),
			},
			Metrics: map[string]float64{
				"price_extreme_recent": priceHighRecent,
				"price_extreme_past":   priceHighPast,
				"rsi_extreme_recent":   rsiHighRecent,
				"rsi_extreme_past":     rsiHighPast,
				"price_divergence":     priceDiv,
				"rsi_divergence":       rsiDiv,
			},
		}}
	}

	return nil
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
