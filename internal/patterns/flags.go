package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// FlagDetector finds a strong impulse run (the pole) followed by a
// tight, mildly counter-sloped consolidation channel. Bias continues
// the impulse direction.
type FlagDetector struct{}

func (d *FlagDetector) Kind() Kind { return Flag }

func (d *FlagDetector) MinCandles(cfg Config) int {
	return cfg.FlagPoleBars + cfg.FlagConsolidationBars + 2
}

func (d *FlagDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	closes := s.Closes()
	highs := s.Highs()
	lows := s.Lows()

	consolStart := n - cfg.FlagConsolidationBars
	poleStart := consolStart - cfg.FlagPoleBars
	if poleStart < 0 {
		return nil
	}

	poleOpen := closes[poleStart]
	poleClose := closes[consolStart-1]
	if poleOpen <= 0 {
		return nil
	}
	poleMove := (poleClose - poleOpen) / poleOpen

	consolHigh := highs[consolStart]
	consolLow := lows[consolStart]
	for i := consolStart + 1; i < n; i++ {
		if highs[i] > consolHigh {
			consolHigh = highs[i]
		}
		if lows[i] < consolLow {
			consolLow = lows[i]
		}
	}
	channelMid := (consolHigh + consolLow) / 2
	if channelMid <= 0 {
		return nil
	}
	channelWidth := (consolHigh - consolLow) / channelMid
	if channelWidth >= cfg.FlagChannelMax {
		return nil
	}

	consolSlope := (closes[n-1] - closes[consolStart]) / closes[consolStart]

	impulse := 0.0
	var bias Bias
	switch {
	case poleMove > cfg.FlagImpulse:
		// Bull flag: the channel may dip a little but must not keep
		// rallying, otherwise there is no consolidation.
		if consolSlope > 0.01 {
			return nil
		}
		bias = Bullish
		impulse = poleMove
	case poleMove < -cfg.FlagImpulse:
		if consolSlope < -0.01 {
			return nil
		}
		bias = Bearish
		impulse = -poleMove
	default:
		return nil
	}

	impulseScore := (impulse - cfg.FlagImpulse) / cfg.FlagImpulse
	if impulseScore > 1 {
		impulseScore = 1
	}
	tightness := 1 - channelWidth/cfg.FlagChannelMax

	poleHeight := abs(poleClose - poleOpen)
	levels := KeyLevels{}
	if bias == Bullish {
		levels = KeyLevels{
			Entry:  consolHigh,
			Target: consolHigh + poleHeight,
			Stop:   consolLow,
		}
	} else {
		levels = KeyLevels{
			Entry:  consolLow,
			Target: consolLow - poleHeight,
			Stop:   consolHigh,
		}
	}

	return []Candidate{{
		Kind:       Flag,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       bias,
		StartIndex: poleStart,
		EndIndex:   n - 1,
		Levels:     levels,
		Metrics: map[string]float64{
			"pole_move":     poleMove,
			"channel_width": channelWidth,
			"impulse_score": impulseScore,
			"tightness":     tightness,
		},
	}}
}
