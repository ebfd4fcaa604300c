// Package scoring assigns a confidence score to pattern candidates.
// Each pattern kind has its own weight table over the detector's
// geometric metrics. Scores are deterministic: the same metrics always
// produce the same score.
package scoring

import (
	"market-scanner/internal/patterns"
)

type scoreFunc func(m map[string]float64) float64

var scorers = map[patterns.Kind]scoreFunc{
	patterns.DoubleTopBottom:  scoreDoubleTopBottom,
	patterns.HeadAndShoulders: scoreHeadAndShoulders,
	patterns.Flag:             scoreFlag,
	patterns.Triangle:         scoreTriangle,
	patterns.Cross:            scoreCross,
	patterns.RSIDivergence:    scoreRSIDivergence,
	patterns.Engulfing:        scoreEngulfing,
	patterns.SRBreakout:       scoreSRBreakout,
	patterns.Ichimoku:         scoreIchimoku,
	patterns.ABCCorrection:    scoreABCCorrection,
}

// Score rates a candidate from 0 to 100. Unknown kinds score 0.
func Score(c patterns.Candidate) int {
	fn, ok := scorers[c.Kind]
	if !ok {
		return 0
	}
	return clamp(fn(c.Metrics))
}

func clamp(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

func scoreDoubleTopBottom(m map[string]float64) float64 {
	return 60 + m["similarity"]*20 + capAt(m["break_depth"]*200, 20)
}

func scoreHeadAndShoulders(m map[string]float64) float64 {
	return 55 + m["symmetry"]*15 + m["head_prominence"]*500 + capAt(m["break_depth"]*300, 15)
}

func scoreFlag(m map[string]float64) float64 {
	return 60 + m["impulse_score"]*20 + m["tightness"]*20
}

func scoreTriangle(m map[string]float64) float64 {
	return 60 + m["flatness"]*20 + m["slope_score"]*20
}

func scoreCross(m map[string]float64) float64 {
	score := 65.0
	if m["volume_confirmed"] == 1 {
		score += capAt((m["volume_ratio"]-1)*30, 15)
	}
	score += capAt(m["separation"]*20, 10)
	return score
}

func scoreRSIDivergence(m map[string]float64) float64 {
	return 55 + m["price_divergence"]*500 + m["rsi_divergence"]*100
}

func scoreEngulfing(m map[string]float64) float64 {
	return 60 + m["trend_align"]*200 + capAt((m["size_ratio"]-1)*20, 20)
}

func scoreSRBreakout(m map[string]float64) float64 {
	return 60 + m["touch_score"]*20 + m["vol_score"]*20
}

func scoreIchimoku(m map[string]float64) float64 {
	return 60 + m["beyond_cloud"]*15 + m["chikou_confirmed"]*15 + m["cloud_aligned"]*10
}

func scoreABCCorrection(m map[string]float64) float64 {
	score := 60.0

	b := m["b_retracement"]
	switch {
	case b >= 0.50 && b <= 0.618:
		score += 15
	case b >= 0.382 && b < 0.50:
		score += 8
	}

	c := m["c_to_a_ratio"]
	switch {
	case c >= 0.90 && c <= 1.10:
		score += 15
	case c >= 0.786 && c < 0.90:
		score += 8
	}

	score += m["clean"] * 10
	return score
}
