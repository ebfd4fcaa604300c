package patterns

import (
	"sort"

	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// srSwingWindow is narrow so short-lived levels still register touches
const srSwingWindow = 3

// SRBreakoutDetector finds horizontal levels established by repeated
// touches and fires when the latest close breaks through one of them.
// A breakout with no volume expansion is ignored, level breaks on thin
// volume fail too often to be worth alerting on.
type SRBreakoutDetector struct{}

type srLevel struct {
	kind    string // "support" or "resistance"
	price   float64
	touches int
}

func (d *SRBreakoutDetector) Kind() Kind { return SRBreakout }

func (d *SRBreakoutDetector) MinCandles(cfg Config) int { return cfg.SRLookback + 5 }

func (d *SRBreakoutDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	offset := n - cfg.SRLookback - 5
	highs := s.Highs()[offset:]
	lows := s.Lows()[offset:]
	closes := s.Closes()[offset:]
	volumes := s.Volumes()[offset:]
	m := len(closes)

	// Levels come from history only; the last two candles are reserved
	// for breakout confirmation.
	histHighs := highs[:m-2]
	histLows := lows[:m-2]

	peaks := indicators.SwingHighs(histHighs, srSwingWindow)
	troughs := indicators.SwingLows(histLows, srSwingWindow)
	if len(peaks)+len(troughs) == 0 {
		return nil
	}

	levels := clusterLevels(peaks, troughs, cfg.SRLevelTolerance)

	currentClose := closes[m-1]
	prevClose := closes[m-2]

	ratio := volumeRatio(volumes, 20)
	if ratio < cfg.BreakoutVolumeMultiplier {
		return nil
	}

	for _, lvl := range levels {
		if lvl.touches < cfg.SRMinTouches {
			continue
		}

		touchScore := float64(lvl.touches) / 5
		if touchScore > 1 {
			touchScore = 1
		}
		volScore := (ratio - 1) / 2
		if volScore > 1 {
			volScore = 1
		}
		metrics := map[string]float64{
			"level":        lvl.price,
			"touches":      float64(lvl.touches),
			"volume_ratio": ratio,
			"touch_score":  touchScore,
			"vol_score":    volScore,
		}

		if lvl.kind == "resistance" && prevClose < lvl.price && currentClose > lvl.price {
			return []Candidate{{
				Kind:       SRBreakout,
				Instrument: s.Instrument(),
				Timeframe:  s.Timeframe(),
				Bias:       Bullish,
				StartIndex: offset,
				EndIndex:   n - 1,
				Levels: KeyLevels{
					Entry:  lvl.price,
					Target: lvl.price * 1.03,
					Stop:   lvl.price * (1 - cfg.StopBuffer),
				},
				Metrics: metrics,
			}}
		}
		if lvl.kind == "support" && prevClose > lvl.price && currentClose < lvl.price {
			return []Candidate{{
				Kind:       SRBreakout,
				Instrument: s.Instrument(),
				Timeframe:  s.Timeframe(),
				Bias:       Bearish,
				StartIndex: offset,
				EndIndex:   n - 1,
				Levels: KeyLevels{
					Entry:  lvl.price,
					Target: lvl.price * 0.97,
					Stop:   lvl.price * (1 + cfg.StopBuffer),
				},
				Metrics: metrics,
			}}
		}
	}

	return nil
}

// clusterLevels groups nearby swing prices into levels with touch
// counts. Dominant extremum type names the level; ties go to
// resistance. Output is ordered by touch count, strongest first, with
// price as a deterministic tiebreak.
func clusterLevels(peaks, troughs []indicators.SwingPoint, tolerance float64) []srLevel {
	type candidate struct {
		kind  string
		price float64
	}
	var candidates []candidate
	for _, p := range peaks {
		candidates = append(candidates, candidate{"resistance", p.Price})
	}
	for _, t := range troughs {
		candidates = append(candidates, candidate{"support", t.Price})
	}

	used := make([]bool, len(candidates))
	var levels []srLevel
	for i, c := range candidates {
		if used[i] || c.price <= 0 {
			continue
		}
		used[i] = true
		prices := []float64{c.price}
		nResist, nSupport := 0, 0
		if c.kind == "resistance" {
			nResist++
		} else {
			nSupport++
		}
		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			if abs(c.price-candidates[j].price)/c.price < tolerance {
				used[j] = true
				prices = append(prices, candidates[j].price)
				if candidates[j].kind == "resistance" {
					nResist++
				} else {
					nSupport++
				}
			}
		}
		kind := "support"
		if nResist >= nSupport {
			kind = "resistance"
		}
		levels = append(levels, srLevel{kind: kind, price: average(prices), touches: len(prices)})
	}

	sort.Slice(levels, func(i, j int) bool {
		if levels[i].touches != levels[j].touches {
			return levels[i].touches > levels[j].touches
		}
		return levels[i].price < levels[j].price
	})
	return levels
}
