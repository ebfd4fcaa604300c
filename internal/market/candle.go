package market

import (
	"fmt"
	"time"
)

// Candle represents a single OHLCV interval
type Candle struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// IsBullish returns true when the candle closed above its open
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish returns true when the candle closed below its open
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// BodySize returns the absolute size of the candle body
func (c Candle) BodySize() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// BodyTop returns the higher of open and close
func (c Candle) BodyTop() float64 {
	if c.Open > c.Close {
		return c.Open
	}
	return c.Close
}

// BodyBottom returns the lower of open and close
func (c Candle) BodyBottom() float64 {
	if c.Open < c.Close {
		return c.Open
	}
	return c.Close
}

// ClosedAt returns the candle close time as a time.Time
func (c Candle) ClosedAt() time.Time {
	return time.Unix(c.CloseTime/1000, 0).UTC()
}

// MalformedSeriesError describes a series rejected during validation.
// The pipeline surfaces it to the caller instead of crashing the unit.
type MalformedSeriesError struct {
	Instrument string
	Timeframe  string
	Index      int
	Reason     string
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("malformed series %s/%s at candle %d: %s",
		e.Instrument, e.Timeframe, e.Index, e.Reason)
}

// Series is an immutable, validated OHLCV history for one
// (instrument, timeframe) pair. Indicators and detectors only read it.
type Series struct {
	instrument string
	timeframe  string
	candles    []Candle

	opens   []float64
	highs   []float64
	lows    []float64
	closes  []float64
	volumes []float64
}

// NewSeries validates the candles and builds a Series. Timestamps must be
// strictly ascending and all prices positive; gaps are tolerated.
func NewSeries(instrument, timeframe string, candles []Candle) (*Series, error) {
	s := &Series{
		instrument: instrument,
		timeframe:  timeframe,
		candles:    make([]Candle, len(candles)),
		opens:      make([]float64, len(candles)),
		highs:      make([]float64, len(candles)),
		lows:       make([]float64, len(candles)),
		closes:     make([]float64, len(candles)),
		volumes:    make([]float64, len(candles)),
	}
	copy(s.candles, candles)

	for i, c := range s.candles {
		if i > 0 && c.OpenTime <= s.candles[i-1].OpenTime {
			return nil, &MalformedSeriesError{
				Instrument: instrument, Timeframe: timeframe, Index: i,
				Reason: "non-monotonic timestamp",
			}
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return nil, &MalformedSeriesError{
				Instrument: instrument, Timeframe: timeframe, Index: i,
				Reason: "non-positive price",
			}
		}
		s.opens[i] = c.Open
		s.highs[i] = c.High
		s.lows[i] = c.Low
		s.closes[i] = c.Close
		s.volumes[i] = c.Volume
	}

	return s, nil
}

// Instrument returns the instrument symbol
func (s *Series) Instrument() string { return s.instrument }

// Timeframe returns the timeframe identifier (e.g. "1h", "4h", "1d")
func (s *Series) Timeframe() string { return s.timeframe }

// Len returns the number of candles
func (s *Series) Len() int { return len(s.candles) }

// Candle returns the candle at index i
func (s *Series) Candle(i int) Candle { return s.candles[i] }

// Last returns the most recent candle
func (s *Series) Last() Candle { return s.candles[len(s.candles)-1] }

// LastClose returns the most recent closing price
func (s *Series) LastClose() float64 { return s.closes[len(s.closes)-1] }

// Opens returns the open price sequence. Callers must not modify it.
func (s *Series) Opens() []float64 { return s.opens }

// Highs returns the high price sequence. Callers must not modify it.
func (s *Series) Highs() []float64 { return s.highs }

// Lows returns the low price sequence. Callers must not modify it.
func (s *Series) Lows() []float64 { return s.lows }

// Closes returns the close price sequence. Callers must not modify it.
func (s *Series) Closes() []float64 { return s.closes }

// Volumes returns the volume sequence. Callers must not modify it.
func (s *Series) Volumes() []float64 { return s.volumes }
