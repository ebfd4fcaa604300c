// Package pipeline orchestrates indicator computation, pattern
// detection, scoring and deduplication for one (instrument, timeframe)
// unit of work.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/dedup"
	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
	"market-scanner/internal/patterns"
	"market-scanner/internal/scoring"
)

// Alert is a scored, deduplicated detection ready for delivery
type Alert struct {
	patterns.Candidate
	Confidence int       `json:"confidence"`
	Price      float64   `json:"price"`
	RiskReward float64   `json:"risk_reward"`
	DetectedAt time.Time `json:"detected_at"`
}

// Identity returns the dedup key for the alert
func (a Alert) Identity() dedup.Identity {
	return dedup.Identity{
		Instrument: a.Instrument,
		Timeframe:  a.Timeframe,
		Kind:       a.Kind,
		Bias:       a.Bias,
	}
}

// Config holds the pipeline-level thresholds
type Config struct {
	// Patterns restricts the detector catalog; empty enables all
	Patterns []string `json:"patterns"`
	// MinConfidence filters scored candidates, 0-100
	MinConfidence int `json:"min_confidence"`
	// MinRiskReward drops setups whose target is too close to the
	// stop relative to the entry.
	MinRiskReward float64 `json:"min_risk_reward"`
	// LastCandleClosed tells the pipeline whether the final candle of
	// incoming series is complete. When false the forming candle is
	// dropped before detection so no detector sees a moving close.
	LastCandleClosed bool `json:"last_candle_closed"`

	Detection patterns.Config `json:"detection"`
}

// DefaultConfig returns the standard pipeline thresholds
func DefaultConfig() Config {
	return Config{
		MinConfidence:    65,
		MinRiskReward:    3.0,
		LastCandleClosed: true,
		Detection:        patterns.DefaultConfig(),
	}
}

// Pipeline runs the full analysis for series handed to it. It is safe
// for concurrent use; all mutable state lives in the dedup manager.
type Pipeline struct {
	detectors []patterns.Detector
	manager   *dedup.Manager
	cfg       Config
	logger    zerolog.Logger
}

// New creates a pipeline with the detector catalog named in cfg
func New(cfg Config, manager *dedup.Manager, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		detectors: patterns.ByKinds(cfg.Patterns),
		manager:   manager,
		cfg:       cfg,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Analyze evaluates one unit of work and returns the surviving alerts.
// A malformed series yields no alerts and the structured error; a
// merely short series yields no alerts and no error.
func (p *Pipeline) Analyze(ctx context.Context, instrument, timeframe string, candles []market.Candle, now time.Time) ([]Alert, error) {
	if !p.cfg.LastCandleClosed && len(candles) > 0 {
		candles = candles[:len(candles)-1]
	}

	series, err := market.NewSeries(instrument, timeframe, candles)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("instrument", instrument).
			Str("timeframe", timeframe).
			Msg("rejecting malformed series")
		return nil, err
	}

	candidates := p.detect(series)
	if len(candidates) == 0 {
		return nil, nil
	}

	var alerts []Alert
	for _, c := range candidates {
		confidence := scoring.Score(c)
		if confidence < p.cfg.MinConfidence {
			continue
		}

		alert := Alert{
			Candidate:  c,
			Confidence: confidence,
			Price:      series.LastClose(),
			RiskReward: riskReward(c.Levels, c.Bias),
			DetectedAt: now,
		}
		if p.cfg.MinRiskReward > 0 && alert.RiskReward < p.cfg.MinRiskReward {
			p.logger.Debug().
				Str("instrument", instrument).
				Str("pattern", string(c.Kind)).
				Float64("risk_reward", alert.RiskReward).
				Msg("dropping low risk-reward setup")
			continue
		}

		if p.manager != nil && !p.manager.Claim(ctx, alert.Identity(), now) {
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// detect runs every detector over the shared indicator set and returns
// candidates in a deterministic order.
func (p *Pipeline) detect(series *market.Series) []patterns.Candidate {
	ind := indicators.Compute(series, p.cfg.Detection.Indicators)

	var candidates []patterns.Candidate
	for _, d := range p.detectors {
		if series.Len() < d.MinCandles(p.cfg.Detection) {
			continue
		}
		candidates = append(candidates, d.Detect(series, ind, p.cfg.Detection)...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.EndIndex != b.EndIndex {
			return a.EndIndex < b.EndIndex
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Bias != b.Bias {
			return a.Bias < b.Bias
		}
		return a.StartIndex < b.StartIndex
	})
	return candidates
}

// riskReward is reward distance over risk distance from the entry. A
// non-positive risk yields 0 so broken geometry never passes an RR
// filter by accident.
func riskReward(levels patterns.KeyLevels, bias patterns.Bias) float64 {
	var reward, risk float64
	if bias == patterns.Bullish {
		reward = levels.Target - levels.Entry
		risk = levels.Entry - levels.Stop
	} else {
		reward = levels.Entry - levels.Target
		risk = levels.Stop - levels.Entry
	}
	if risk <= 0 || reward <= 0 {
		return 0
	}
	return reward / risk
}
