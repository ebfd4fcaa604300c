package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/events"
	"market-scanner/internal/market"
)

// Unit is one (instrument, timeframe) combination to scan
type Unit struct {
	Instrument string `json:"instrument"`
	Timeframe  string `json:"timeframe"`
}

// CandleSource supplies candle history for a unit of work
type CandleSource interface {
	GetCandles(instrument, timeframe string, limit int) ([]market.Candle, error)
}

// AlertStore persists emitted alerts
type AlertStore interface {
	SaveAlert(ctx context.Context, alert Alert) error
}

// Notifier delivers emitted alerts to an external channel
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// EngineConfig controls the scan loop
type EngineConfig struct {
	Units        []Unit        `json:"units"`
	ScanInterval time.Duration `json:"scan_interval"`
	WorkerCount  int           `json:"worker_count"`
	CandleLimit  int           `json:"candle_limit"`
}

// ScanResult summarizes one scan cycle
type ScanResult struct {
	ScanID       string        `json:"scan_id"`
	StartTime    time.Time     `json:"start_time"`
	Duration     time.Duration `json:"duration"`
	UnitsScanned int           `json:"units_scanned"`
	Alerts       []Alert       `json:"alerts"`
}

// Engine runs the pipeline across all configured units on a schedule.
// Units are independent, so they fan out over a bounded worker pool.
type Engine struct {
	pipeline *Pipeline
	source   CandleSource
	store    AlertStore
	notifier Notifier
	bus      *events.Bus
	cfg      EngineConfig
	logger   zerolog.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu         sync.RWMutex
	lastResult *ScanResult
}

// NewEngine wires a pipeline to its collaborators. store, notifier and
// bus may be nil; alerts are then only returned from scans.
func NewEngine(p *Pipeline, source CandleSource, store AlertStore, notifier Notifier, bus *events.Bus, cfg EngineConfig, logger zerolog.Logger) *Engine {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 300
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Minute
	}
	if cfg.WorkerCount > len(cfg.Units) && len(cfg.Units) > 0 {
		cfg.WorkerCount = len(cfg.Units)
	}
	return &Engine{
		pipeline: p,
		source:   source,
		store:    store,
		notifier: notifier,
		bus:      bus,
		cfg:      cfg,
		logger:   logger.With().Str("component", "engine").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins the background scan loop
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.runScanLoop()
	e.logger.Info().
		Int("units", len(e.cfg.Units)).
		Dur("interval", e.cfg.ScanInterval).
		Msg("scan engine started")
}

// Stop halts the loop and waits for in-flight scans
func (e *Engine) Stop() {
	close(e.stopChan)
	e.wg.Wait()
}

func (e *Engine) runScanLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	// Run immediately
	e.scan()

	for {
		select {
		case <-ticker.C:
			e.scan()
		case <-e.stopChan:
			e.logger.Info().Msg("scan engine stopped")
			return
		}
	}
}

// ScanOnce runs a single scan cycle on demand
func (e *Engine) ScanOnce() *ScanResult {
	return e.scan()
}

// ScanUnit analyzes a single unit immediately, outside the scheduled
// cycle. Used for event-driven scans when a candle closes.
func (e *Engine) ScanUnit(ctx context.Context, unit Unit) []Alert {
	alertChan := make(chan Alert, 16)
	go func() {
		e.scanUnit(ctx, unit, alertChan)
		close(alertChan)
	}()

	var alerts []Alert
	for a := range alertChan {
		alerts = append(alerts, a)
	}
	return alerts
}

// LastResult returns the most recent scan summary, or nil before the
// first cycle completes.
func (e *Engine) LastResult() *ScanResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastResult
}

func (e *Engine) scan() *ScanResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startTime := time.Now()
	scanID := fmt.Sprintf("scan-%d", startTime.Unix())
	if e.bus != nil {
		e.bus.PublishScanStarted(scanID, len(e.cfg.Units))
	}

	unitChan := make(chan Unit, len(e.cfg.Units))
	alertChan := make(chan Alert, len(e.cfg.Units)*4)

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.WorkerCount; i++ {
		wg.Add(1)
		go e.worker(ctx, unitChan, alertChan, &wg)
	}

	go func() {
		for _, u := range e.cfg.Units {
			select {
			case unitChan <- u:
			case <-ctx.Done():
			}
		}
		close(unitChan)
	}()

	go func() {
		wg.Wait()
		close(alertChan)
	}()

	var alerts []Alert
	for a := range alertChan {
		alerts = append(alerts, a)
	}

	result := &ScanResult{
		ScanID:       scanID,
		StartTime:    startTime,
		Duration:     time.Since(startTime),
		UnitsScanned: len(e.cfg.Units),
		Alerts:       alerts,
	}

	e.mu.Lock()
	e.lastResult = result
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.PublishScanCompleted(scanID, result.UnitsScanned, len(alerts), result.Duration)
	}

	e.logger.Info().
		Str("scan_id", scanID).
		Dur("duration", result.Duration).
		Int("alerts", len(alerts)).
		Msg("scan cycle completed")
	return result
}

func (e *Engine) worker(ctx context.Context, unitChan <-chan Unit, alertChan chan<- Alert, wg *sync.WaitGroup) {
	defer wg.Done()

	for unit := range unitChan {
		select {
		case <-ctx.Done():
			return
		default:
			e.scanUnit(ctx, unit, alertChan)
		}
	}
}

// scanUnit analyzes one unit. Failures degrade to zero alerts for this
// unit only; other units proceed regardless.
func (e *Engine) scanUnit(ctx context.Context, unit Unit, alertChan chan<- Alert) {
	candles, err := e.source.GetCandles(unit.Instrument, unit.Timeframe, e.cfg.CandleLimit)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("instrument", unit.Instrument).
			Str("timeframe", unit.Timeframe).
			Msg("candle fetch failed")
		return
	}

	alerts, err := e.pipeline.Analyze(ctx, unit.Instrument, unit.Timeframe, candles, time.Now().UTC())
	if err != nil {
		return
	}

	for _, alert := range alerts {
		if e.store != nil {
			if err := e.store.SaveAlert(ctx, alert); err != nil {
				e.logger.Error().Err(err).
					Str("instrument", alert.Instrument).
					Str("pattern", string(alert.Kind)).
					Msg("alert persistence failed")
			}
		}
		if e.notifier != nil {
			if err := e.notifier.Notify(ctx, alert); err != nil {
				e.logger.Error().Err(err).
					Str("instrument", alert.Instrument).
					Str("pattern", string(alert.Kind)).
					Msg("alert notification failed")
			}
		}
		if e.bus != nil {
			e.bus.PublishAlert(alert.Instrument, alert.Timeframe,
				string(alert.Kind), string(alert.Bias), alert.Confidence, alert.Price)
		}
		alertChan <- alert
	}
}
