// Package patterns implements the chart pattern catalog. Each detector
// is stateless and deterministic: given the same series, indicator set
// and configuration it always produces the same candidates. Detectors
// never panic on short input; they return no candidates instead.
package patterns

import (
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// Kind identifies a pattern variant
type Kind string

const (
	DoubleTopBottom  Kind = "double_top_bottom"
	HeadAndShoulders Kind = "head_and_shoulders"
	Flag             Kind = "bull_bear_flag"
	Triangle         Kind = "triangles"
	Cross            Kind = "golden_death_cross"
	RSIDivergence    Kind = "rsi_divergence"
	Engulfing        Kind = "engulfing"
	SRBreakout       Kind = "support_resistance_break"
	Ichimoku         Kind = "ichimoku"
	ABCCorrection    Kind = "abc_correction"
)

// Bias is the directional reading of a detection
type Bias string

const (
	Bullish Bias = "bullish"
	Bearish Bias = "bearish"
)

// KeyLevels are the actionable prices derived from a pattern's geometry
type KeyLevels struct {
	Entry  float64 `json:"entry"`
	Target float64 `json:"target"`
	Stop   float64 `json:"stop"`
}

// Candidate is one detection produced by a single detector run. Metrics
// carry the detector's geometric measurements for the confidence scorer.
type Candidate struct {
	Kind       Kind
	Instrument string
	Timeframe  string
	Bias       Bias
	StartIndex int
	EndIndex   int
	Levels     KeyLevels
	Metrics    map[string]float64
}

// Detector is the common contract all pattern variants implement
type Detector interface {
	Kind() Kind
	// MinCandles is the shortest series this detector can work with.
	// Shorter input yields zero candidates, never an error.
	MinCandles(cfg Config) int
	Detect(s *market.Series, ind *indicators.Set, cfg Config) []Candidate
}

// Config holds the tunable detection thresholds. These are heuristics;
// defaults follow common technical-analysis conventions but quality is
// sensitive to them, so everything is overridable per deployment.
type Config struct {
	Indicators indicators.Params `json:"indicators"`

	// Double top/bottom
	PeakTolerance  float64 `json:"peak_tolerance"`   // max relative distance between the two extremes
	MinRetracement float64 `json:"min_retracement"`  // min pullback depth between them

	// Head and shoulders
	ShoulderTolerance float64 `json:"shoulder_tolerance"`
	HeadMinProminence float64 `json:"head_min_prominence"`

	// Flags
	FlagImpulse           float64 `json:"flag_impulse"`            // min pole move
	FlagChannelMax        float64 `json:"flag_channel_max"`        // max consolidation range
	FlagPoleBars          int     `json:"flag_pole_bars"`
	FlagConsolidationBars int     `json:"flag_consolidation_bars"`

	// Triangles
	TriangleLookback      int     `json:"triangle_lookback"`
	TriangleFlatTolerance float64 `json:"triangle_flat_tolerance"`
	TriangleMinTouches    int     `json:"triangle_min_touches"`
	TriangleProximity     float64 `json:"triangle_proximity"`

	// Crosses
	CrossVolumeMultiplier float64 `json:"cross_volume_multiplier"`

	// RSI divergence
	DivergenceLookback int `json:"divergence_lookback"`

	// Engulfing
	EngulfingTrendLookback int `json:"engulfing_trend_lookback"`

	// Support/resistance breakout
	SRLookback               int     `json:"sr_lookback"`
	SRMinTouches             int     `json:"sr_min_touches"`
	SRLevelTolerance         float64 `json:"sr_level_tolerance"`
	BreakoutVolumeMultiplier float64 `json:"breakout_volume_multiplier"`

	// StopBuffer pads stops beyond the invalidation price
	StopBuffer float64 `json:"stop_buffer"`
}

// DefaultConfig returns the standard detection thresholds
func DefaultConfig() Config {
	return Config{
		Indicators: indicators.DefaultParams(),

		PeakTolerance:  0.02,
		MinRetracement: 0.03,

		ShoulderTolerance: 0.03,
		HeadMinProminence: 0.01,

		FlagImpulse:           0.03,
		FlagChannelMax:        0.015,
		FlagPoleBars:          5,
		FlagConsolidationBars: 10,

		TriangleLookback:      50,
		TriangleFlatTolerance: 0.015,
		TriangleMinTouches:    3,
		TriangleProximity:     0.03,

		CrossVolumeMultiplier: 1.2,

		DivergenceLookback: 20,

		EngulfingTrendLookback: 10,

		SRLookback:               50,
		SRMinTouches:             2,
		SRLevelTolerance:         0.005,
		BreakoutVolumeMultiplier: 1.5,

		StopBuffer: 0.005,
	}
}

// All returns one instance of every detector in the catalog
func All() []Detector {
	return []Detector{
		&DoubleTopBottomDetector{},
		&HeadAndShouldersDetector{},
		&FlagDetector{},
		&TriangleDetector{},
		&CrossDetector{},
		&RSIDivergenceDetector{},
		&EngulfingDetector{},
		&SRBreakoutDetector{},
		&IchimokuDetector{},
		&ABCCorrectionDetector{},
	}
}

// ByKinds filters the full catalog to the named kinds. Unknown names are
// ignored. An empty list enables everything.
func ByKinds(kinds []string) []Detector {
	all := All()
	if len(kinds) == 0 {
		return all
	}
	enabled := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		enabled[k] = true
	}
	var out []Detector
	for _, d := range all {
		if enabled[string(d.Kind())] {
			out = append(out, d)
		}
	}
	return out
}

// Helper functions shared by the detectors

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// linearSlope fits a least-squares line through (0..n-1, values) and
// returns its slope.
func linearSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// median returns the median of values without modifying the input
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// volumeRatio compares the latest volume to the average of the prior
// window bars. Returns 0 when there is no usable history.
func volumeRatio(volumes []float64, window int) float64 {
	if len(volumes) < 2 {
		return 0
	}
	start := len(volumes) - 1 - window
	if start < 0 {
		start = 0
	}
	avg := average(volumes[start : len(volumes)-1])
	if avg <= 0 {
		return 0
	}
	return volumes[len(volumes)-1] / avg
}
