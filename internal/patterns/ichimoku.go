package patterns

import (
	"math"

	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// Standard Ichimoku periods. These are fixed by convention rather than
// configurable; changing them produces a different system entirely.
const (
	tenkanPeriod  = 9
	kijunPeriod   = 26
	senkouBPeriod = 52
	cloudShift    = 26

	// Clouds thinner than this fraction of price mean a flat market
	// where the cross carries no information.
	minCloudWidthPct = 0.002
)

// IchimokuDetector fires on a Tenkan/Kijun cross and grades it by cloud
// position, Chikou confirmation and cloud color.
type IchimokuDetector struct{}

func (d *IchimokuDetector) Kind() Kind { return Ichimoku }

func (d *IchimokuDetector) MinCandles(cfg Config) int {
	return senkouBPeriod + cloudShift + 5
}

func (d *IchimokuDetector) Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate {
	n := s.Len()
	if n < d.MinCandles(cfg) {
		return nil
	}

	highs := s.Highs()
	lows := s.Lows()
	closes := s.Closes()

	tenkan := rollingMidpoint(highs, lows, tenkanPeriod)
	kijun := rollingMidpoint(highs, lows, kijunPeriod)
	senkouB := rollingMidpoint(highs, lows, senkouBPeriod)

	// The cloud over the current candle was projected cloudShift bars
	// ago, so read the components at that offset.
	base := n - 1 - cloudShift
	if base < 0 {
		return nil
	}
	if !indicators.Defined(tenkan[base]) || !indicators.Defined(kijun[base]) || !indicators.Defined(senkouB[base]) {
		return nil
	}
	spanA := (tenkan[base] + kijun[base]) / 2
	spanB := senkouB[base]

	tCurr, tPrev := tenkan[n-1], tenkan[n-2]
	kCurr, kPrev := kijun[n-1], kijun[n-2]
	if !indicators.Defined(tCurr) || !indicators.Defined(tPrev) ||
		!indicators.Defined(kCurr) || !indicators.Defined(kPrev) {
		return nil
	}

	currentClose := closes[n-1]
	cloudTop := spanA
	cloudBottom := spanB
	if spanB > spanA {
		cloudTop, cloudBottom = spanB, spanA
	}
	if cloudTop-cloudBottom < currentClose*minCloudWidthPct {
		return nil
	}

	bullishCross := tPrev <= kPrev && tCurr > kCurr
	bearishCross := tPrev >= kPrev && tCurr < kCurr
	if !bullishCross && !bearishCross {
		return nil
	}

	// Chikou reads the close from cloudShift bars back
	chikouRef := closes[n-1-cloudShift]

	if bullishCross {
		aboveCloud, chikouOK, cloudAligned := 0.0, 0.0, 0.0
		if currentClose > cloudTop {
			aboveCloud = 1
		}
		if currentClose > chikouRef {
			chikouOK = 1
		}
		if spanA > spanB {
			cloudAligned = 1
		}
		stop := cloudBottom * (1 - cfg.StopBuffer)
		return []Candidate{{
			Kind:       Ichimoku,
			Instrument: s.Instrument(),
			Timeframe:  s.Timeframe(),
			Bias:       Bullish,
			StartIndex: n - 2,
			EndIndex:   n - 1,
			Levels: KeyLevels{
				Entry:  currentClose,
				Target: currentClose + 3*(currentClose-stop),
				Stop:   stop,
			},
			Metrics: map[string]float64{
				"tenkan":           tCurr,
				"kijun":            kCurr,
				"cloud_top":        cloudTop,
				"cloud_bottom":     cloudBottom,
				"beyond_cloud":     aboveCloud,
				"chikou_confirmed": chikouOK,
				"cloud_aligned":    cloudAligned,
			},
		}}
	}

	belowCloud, chikouOK, cloudAligned := 0.0, 0.0, 0.0
	if currentClose < cloudBottom {
		belowCloud = 1
	}
	if currentClose < chikouRef {
		chikouOK = 1
	}
	if spanB > spanA {
		cloudAligned = 1
	}
	stop := cloudTop * (1 + cfg.StopBuffer)
	return []Candidate{{
		Kind:       Ichimoku,
		Instrument: s.Instrument(),
		Timeframe:  s.Timeframe(),
		Bias:       Bearish,
		StartIndex: n - 2,
		EndIndex:   n - 1,
		Levels: KeyLevels{
			Entry:  currentClose,
			Target: currentClose - 3*(stop-currentClose),
			Stop:   stop,
		},
		Metrics: map[string]float64{
			"tenkan":           tCurr,
			"kijun":            kCurr,
			"cloud_top":        cloudTop,
			"cloud_bottom":     cloudBottom,
			"beyond_cloud":     belowCloud,
			"chikou_confirmed": chikouOK,
			"cloud_aligned":    cloudAligned,
		},
	}}
}

// rollingMidpoint is (highest high + lowest low) / 2 over the trailing
// period, NaN-padded until enough history exists.
func rollingMidpoint(highs, lows []float64, period int) []float64 {
	out := make([]float64, len(highs))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := period - 1; i < len(highs); i++ {
		hh := highs[i-period+1]
		ll := lows[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		out[i] = (hh + ll) / 2
	}
	return out
}
