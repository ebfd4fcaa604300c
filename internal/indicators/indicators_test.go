package indicators

import (
	"math"
	"testing"

	"market-scanner/internal/market"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMAWarmupAndValues(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)

	if len(out) != len(values) {
		t.Fatalf("expected %d values, got %d", len(values), len(out))
	}
	for i := 0; i < 2; i++ {
		if Defined(out[i]) {
			t.Errorf("expected NaN at index %d before warm-up, got %v", i, out[i])
		}
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(out[i+2], w) {
			t.Errorf("SMA at index %d: got %v, want %v", i+2, out[i+2], w)
		}
	}
}

func TestSMAShortInput(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	for i, v := range out {
		if Defined(v) {
			t.Errorf("expected NaN at index %d for short input, got %v", i, v)
		}
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	values := []float64{10, 12, 14, 16, 18}
	out := EMA(values, 3)

	if Defined(out[0]) || Defined(out[1]) {
		t.Error("expected NaN before the seed index")
	}
	if !almostEqual(out[2], 12) {
		t.Errorf("seed value: got %v, want 12", out[2])
	}
	// k = 0.5 for period 3
	if !almostEqual(out[3], 14) {
		t.Errorf("EMA at index 3: got %v, want 14", out[3])
	}
	if !almostEqual(out[4], 16) {
		t.Errorf("EMA at index 4: got %v, want 16", out[4])
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	out := RSI(closes, 3)

	for i := 0; i < 3; i++ {
		if Defined(out[i]) {
			t.Errorf("expected NaN at index %d, got %v", i, out[i])
		}
	}
	for i := 3; i < len(out); i++ {
		if !almostEqual(out[i], 100) {
			t.Errorf("RSI at index %d: got %v, want 100 for monotonic gains", i, out[i])
		}
	}
}

func TestRSIBalancedMoves(t *testing.T) {
	// Alternating equal up and down moves should hover near 50.
	closes := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11}
	out := RSI(closes, 4)

	last := out[len(out)-1]
	if !Defined(last) {
		t.Fatal("expected defined RSI at the end of the series")
	}
	if last < 30 || last > 70 {
		t.Errorf("RSI for balanced moves: got %v, want a mid-range value", last)
	}
}

func TestBollingerBandOrdering(t *testing.T) {
	closes := []float64{10, 11, 9, 12, 10, 11, 9, 12, 10, 11}
	upper, middle, lower := Bollinger(closes, 5, 2.0)

	for i := 0; i < 4; i++ {
		if Defined(upper[i]) || Defined(middle[i]) || Defined(lower[i]) {
			t.Errorf("expected NaN bands at index %d before warm-up", i)
		}
	}
	for i := 4; i < len(closes); i++ {
		if !(upper[i] > middle[i] && middle[i] > lower[i]) {
			t.Errorf("band ordering violated at index %d: upper=%v middle=%v lower=%v",
				i, upper[i], middle[i], lower[i])
		}
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := []float64{5, 5, 5, 5, 5, 5}
	upper, middle, lower := Bollinger(closes, 3, 2.0)

	last := len(closes) - 1
	if !almostEqual(upper[last], 5) || !almostEqual(middle[last], 5) || !almostEqual(lower[last], 5) {
		t.Errorf("flat series should collapse all bands to the price: upper=%v middle=%v lower=%v",
			upper[last], middle[last], lower[last])
	}
}

func TestSwingHighsBasic(t *testing.T) {
	highs := []float64{1, 2, 5, 2, 1, 2, 6, 2, 1}
	swings := SwingHighs(highs, 2)

	if len(swings) != 2 {
		t.Fatalf("expected 2 swing highs, got %d", len(swings))
	}
	if swings[0].Index != 2 || !almostEqual(swings[0].Price, 5) {
		t.Errorf("first swing: got index %d price %v", swings[0].Index, swings[0].Price)
	}
	if swings[1].Index != 6 || !almostEqual(swings[1].Price, 6) {
		t.Errorf("second swing: got index %d price %v", swings[1].Index, swings[1].Price)
	}
	for _, sp := range swings {
		if sp.Type != Peak {
			t.Errorf("swing at %d has type %s, want peak", sp.Index, sp.Type)
		}
	}
}

func TestSwingHighsIncludeTies(t *testing.T) {
	// Two equal highs next to each other both qualify as peaks.
	highs := []float64{1, 2, 5, 5, 2, 1, 1}
	swings := SwingHighs(highs, 2)

	if len(swings) != 2 {
		t.Fatalf("equal highs should both qualify, got %d swings", len(swings))
	}
	if swings[0].Index != 2 || swings[1].Index != 3 {
		t.Errorf("got swing indexes %d and %d, want 2 and 3", swings[0].Index, swings[1].Index)
	}
}

func TestSwingLowsBasic(t *testing.T) {
	lows := []float64{9, 8, 5, 8, 9, 8, 4, 8, 9}
	swings := SwingLows(lows, 2)

	if len(swings) != 2 {
		t.Fatalf("expected 2 swing lows, got %d", len(swings))
	}
	if swings[0].Index != 2 || swings[1].Index != 6 {
		t.Errorf("got swing indexes %d and %d, want 2 and 6", swings[0].Index, swings[1].Index)
	}
	for _, sp := range swings {
		if sp.Type != Trough {
			t.Errorf("swing at %d has type %s, want trough", sp.Index, sp.Type)
		}
	}
}

func TestSwingsEdgesExcluded(t *testing.T) {
	// The first and last window candles can never be swings.
	highs := []float64{10, 1, 1, 1, 10}
	if swings := SwingHighs(highs, 2); len(swings) != 0 {
		t.Errorf("edge candles must not qualify, got %d swings", len(swings))
	}
}

func TestNearestSwingHighAbove(t *testing.T) {
	swings := []SwingPoint{
		{Index: 3, Price: 105, Type: Peak},
		{Index: 8, Price: 120, Type: Peak},
		{Index: 12, Price: 110, Type: Peak},
	}

	got := NearestSwingHighAbove(swings, 100, 999)
	if !almostEqual(got, 105) {
		t.Errorf("got %v, want 105 as the closest high above 100", got)
	}

	got = NearestSwingHighAbove(swings, 115, 999)
	if !almostEqual(got, 120) {
		t.Errorf("got %v, want 120 as the closest high above 115", got)
	}

	got = NearestSwingHighAbove(swings, 130, 999)
	if !almostEqual(got, 999) {
		t.Errorf("got %v, want the fallback when nothing is above", got)
	}
}

func TestNearestSwingLowBelow(t *testing.T) {
	swings := []SwingPoint{
		{Index: 3, Price: 95, Type: Trough},
		{Index: 8, Price: 80, Type: Trough},
		{Index: 12, Price: 90, Type: Trough},
	}

	got := NearestSwingLowBelow(swings, 100, 0)
	if !almostEqual(got, 95) {
		t.Errorf("got %v, want 95 as the closest low below 100", got)
	}

	got = NearestSwingLowBelow(swings, 85, 0)
	if !almostEqual(got, 80) {
		t.Errorf("got %v, want 80 as the closest low below 85", got)
	}

	got = NearestSwingLowBelow(swings, 70, 0)
	if !almostEqual(got, 0) {
		t.Errorf("got %v, want the fallback when nothing is below", got)
	}
}

func TestComputeSet(t *testing.T) {
	candles := make([]market.Candle, 0, 60)
	for i := 0; i < 60; i++ {
		price := 100 + float64(i)
		openTime := int64(i) * 3600_000
		candles = append(candles, market.Candle{
			OpenTime:  openTime,
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    1000,
			CloseTime: openTime + 3599_999,
		})
	}
	series, err := market.NewSeries("BTCUSDT", "1h", candles)
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}

	p := Params{FastMAPeriod: 10, SlowMAPeriod: 20, RSIPeriod: 14, BBPeriod: 20, BBStdDev: 2.0, SwingWindow: 5}
	set := Compute(series, p)

	last := series.Len() - 1
	if !Defined(set.FastMA[last]) || !Defined(set.SlowMA[last]) {
		t.Fatal("moving averages should be defined at the end of a long series")
	}
	if set.FastMA[last] <= set.SlowMA[last] {
		t.Errorf("fast MA should lead slow MA in an uptrend: fast=%v slow=%v",
			set.FastMA[last], set.SlowMA[last])
	}
	if !almostEqual(set.RSI[last], 100) {
		t.Errorf("RSI should be 100 in a pure uptrend, got %v", set.RSI[last])
	}
}
