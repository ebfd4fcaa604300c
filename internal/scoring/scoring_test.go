package scoring

import (
	"testing"

	"market-scanner/internal/patterns"
)

func candidate(kind patterns.Kind, metrics map[string]float64) patterns.Candidate {
	return patterns.Candidate{
		Kind:       kind,
		Instrument: "BTCUSDT",
		Timeframe:  "1h",
		Bias:       patterns.Bearish,
		Metrics:    metrics,
	}
}

func TestScoreUnknownKind(t *testing.T) {
	if got := Score(candidate(patterns.Kind("no_such_pattern"), nil)); got != 0 {
		t.Errorf("unknown kind: got %d, want 0", got)
	}
}

func TestScoreDoubleTop(t *testing.T) {
	c := candidate(patterns.DoubleTopBottom, map[string]float64{
		"similarity":  0.667774,
		"break_depth": 0.0153846,
	})
	// 60 + 0.667774*20 + 0.0153846*200 = 76.43
	if got := Score(c); got != 76 {
		t.Errorf("got %d, want 76", got)
	}
}

func TestScoreDoubleTopCapsBreakDepth(t *testing.T) {
	c := candidate(patterns.DoubleTopBottom, map[string]float64{
		"similarity":  1,
		"break_depth": 0.5,
	})
	// The break depth contribution is capped at 20.
	if got := Score(c); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestScoreCrossVolumeGate(t *testing.T) {
	base := map[string]float64{
		"volume_ratio":     2.0,
		"volume_confirmed": 0,
		"separation":       0.2,
	}
	unconfirmed := Score(candidate(patterns.Cross, base))

	confirmed := map[string]float64{
		"volume_ratio":     2.0,
		"volume_confirmed": 1,
		"separation":       0.2,
	}
	withVolume := Score(candidate(patterns.Cross, confirmed))

	if unconfirmed != 69 {
		t.Errorf("unconfirmed cross: got %d, want 69", unconfirmed)
	}
	// The volume bonus is capped at 15 even with a 2x ratio.
	if withVolume != 84 {
		t.Errorf("confirmed cross: got %d, want 84", withVolume)
	}
}

func TestScoreEngulfing(t *testing.T) {
	c := candidate(patterns.Engulfing, map[string]float64{
		"size_ratio":  1.5,
		"trend_align": 0.05,
	})
	// 60 + 0.05*200 + 0.5*20 = 80
	if got := Score(c); got != 80 {
		t.Errorf("got %d, want 80", got)
	}
}

func TestScoreSRBreakout(t *testing.T) {
	c := candidate(patterns.SRBreakout, map[string]float64{
		"touch_score": 0.4,
		"vol_score":   0.5,
	})
	// 60 + 8 + 10 = 78
	if got := Score(c); got != 78 {
		t.Errorf("got %d, want 78", got)
	}
}

func TestScoreIchimokuFullAlignment(t *testing.T) {
	c := candidate(patterns.Ichimoku, map[string]float64{
		"beyond_cloud":     1,
		"chikou_confirmed": 1,
		"cloud_aligned":    1,
	})
	if got := Score(c); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestScoreABCCorrectionFibBands(t *testing.T) {
	ideal := candidate(patterns.ABCCorrection, map[string]float64{
		"b_retracement": 0.55,
		"c_to_a_ratio":  1.0,
		"clean":         1,
	})
	if got := Score(ideal); got != 100 {
		t.Errorf("ideal correction: got %d, want 100", got)
	}

	outer := candidate(patterns.ABCCorrection, map[string]float64{
		"b_retracement": 0.40,
		"c_to_a_ratio":  0.80,
		"clean":         0,
	})
	// Outer fib bands earn the smaller bonuses: 60 + 8 + 8.
	if got := Score(outer); got != 76 {
		t.Errorf("outer-band correction: got %d, want 76", got)
	}

	miss := candidate(patterns.ABCCorrection, map[string]float64{
		"b_retracement": 0.30,
		"c_to_a_ratio":  1.4,
		"clean":         0,
	})
	if got := Score(miss); got != 60 {
		t.Errorf("off-band correction: got %d, want 60", got)
	}
}

func TestScoreBounds(t *testing.T) {
	extremes := []map[string]float64{
		{"similarity": -50, "break_depth": -50},
		{"similarity": 1e9, "break_depth": 1e9},
		nil,
		{},
	}
	for _, kind := range []patterns.Kind{
		patterns.DoubleTopBottom,
		patterns.HeadAndShoulders,
		patterns.Flag,
		patterns.Triangle,
		patterns.Cross,
		patterns.RSIDivergence,
		patterns.Engulfing,
		patterns.SRBreakout,
		patterns.Ichimoku,
		patterns.ABCCorrection,
	} {
		for _, m := range extremes {
			got := Score(candidate(kind, m))
			if got < 0 || got > 100 {
				t.Errorf("%s with metrics %v scored %d, want [0, 100]", kind, m, got)
			}
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	c := candidate(patterns.HeadAndShoulders, map[string]float64{
		"symmetry":        0.8,
		"head_prominence": 0.02,
		"break_depth":     0.01,
	})
	first := Score(c)
	for i := 0; i < 10; i++ {
		if got := Score(c); got != first {
			t.Fatalf("score changed between runs: %d then %d", first, got)
		}
	}
}
