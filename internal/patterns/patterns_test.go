package patterns

import (
	"math"
	"testing"

	"market-scanner/internal/indicators"
	"market-scanner/internal/market"
)

// lineSeries builds a series where open, high, low and close all sit on
// the given values. Handy for driving the swing-based detectors with an
// exact price path.
func lineSeries(t *testing.T, values []float64, volumes []float64) *market.Series {
	t.Helper()
	candles := make([]market.Candle, len(values))
	for i, v := range values {
		vol := 1000.0
		if volumes != nil {
			vol = volumes[i]
		}
		openTime := int64(i) * 3600_000
		candles[i] = market.Candle{
			OpenTime:  openTime,
			Open:      v,
			High:      v,
			Low:       v,
			Close:     v,
			Volume:    vol,
			CloseTime: openTime + 3599_999,
		}
	}
	s, err := market.NewSeries("BTCUSDT", "1h", candles)
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	return s
}

func bodySeries(t *testing.T, candles []market.Candle) *market.Series {
	t.Helper()
	for i := range candles {
		candles[i].OpenTime = int64(i) * 3600_000
		candles[i].CloseTime = candles[i].OpenTime + 3599_999
		if candles[i].Volume == 0 {
			candles[i].Volume = 1000
		}
	}
	s, err := market.NewSeries("ETHUSDT", "4h", candles)
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	return s
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestShortSeriesYieldsNoCandidates(t *testing.T) {
	cfg := DefaultConfig()
	values := []float64{100, 101, 102, 101, 100, 99, 100, 101, 102, 103}
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	for _, d := range All() {
		if got := d.Detect(s, ind, cfg); len(got) != 0 {
			t.Errorf("%s produced %d candidates on a %d-candle series, want none",
				d.Kind(), len(got), s.Len())
		}
	}
}

func TestByKinds(t *testing.T) {
	if got := len(ByKinds(nil)); got != 10 {
		t.Errorf("empty filter should enable the full catalog, got %d", got)
	}

	filtered := ByKinds([]string{"engulfing", "golden_death_cross"})
	if len(filtered) != 2 {
		t.Fatalf("expected 2 detectors, got %d", len(filtered))
	}

	if got := ByKinds([]string{"engulfing", "no_such_pattern"}); len(got) != 1 {
		t.Errorf("unknown names should be ignored, got %d detectors", len(got))
	}
}

func TestDoubleTopDetection(t *testing.T) {
	// Two peaks near 150 with a pullback to 130, then a close below the
	// neckline.
	values := []float64{
		120, 125, 130, 135, 140, 143, 147, 150,
		147, 144, 141, 138, 135, 132, 130,
		133, 136, 139, 142, 145, 148, 151,
		148, 145, 142, 139, 136, 133, 130, 128,
	}
	cfg := DefaultConfig()
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &DoubleTopBottomDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Kind != DoubleTopBottom || c.Bias != Bearish {
		t.Errorf("got %s/%s, want double top (bearish)", c.Kind, c.Bias)
	}
	if c.StartIndex != 7 || c.EndIndex != 29 {
		t.Errorf("got span [%d, %d], want [7, 29]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 150.5) {
		t.Errorf("entry: got %v, want 150.5", c.Levels.Entry)
	}
	if !near(c.Levels.Target, 109.5) {
		t.Errorf("target: got %v, want 109.5", c.Levels.Target)
	}
	if !near(c.Levels.Stop, 151*1.005) {
		t.Errorf("stop: got %v, want %v", c.Levels.Stop, 151*1.005)
	}
	if !near(c.Metrics["neckline"], 130) {
		t.Errorf("neckline: got %v, want 130", c.Metrics["neckline"])
	}
	if !near(c.Metrics["break_depth"], 2.0/130) {
		t.Errorf("break_depth: got %v, want %v", c.Metrics["break_depth"], 2.0/130)
	}
	if c.Metrics["similarity"] <= 0.6 || c.Metrics["similarity"] >= 0.7 {
		t.Errorf("similarity: got %v, want a value near 0.67", c.Metrics["similarity"])
	}
}

func TestDoubleTopRejectsShallowRetracement(t *testing.T) {
	// Same shape but the pullback between the peaks is under 3%.
	values := []float64{
		146, 147, 148, 148, 149, 149, 149, 150,
		149, 149, 148, 148, 148, 148, 148,
		148, 148, 149, 149, 149, 150, 151,
		150, 150, 149, 149, 148, 148, 148, 147,
	}
	cfg := DefaultConfig()
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &DoubleTopBottomDetector{}
	if got := d.Detect(s, ind, cfg); len(got) != 0 {
		t.Errorf("shallow pullback should not qualify, got %d candidates", len(got))
	}
}

func TestGoldenCrossDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indicators.FastMAPeriod = 10
	cfg.Indicators.SlowMAPeriod = 20

	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	s := lineSeries(t, values, nil)

	// Hand-built averages so the crossing happens exactly between the
	// last two samples.
	fast := make([]float64, 60)
	slow := make([]float64, 60)
	for i := range fast {
		fast[i] = 99
		slow[i] = 100
	}
	fast[59] = 101
	ind := &indicators.Set{FastMA: fast, SlowMA: slow}

	d := &CrossDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish for a golden cross", c.Bias)
	}
	if c.StartIndex != 58 || c.EndIndex != 59 {
		t.Errorf("got span [%d, %d], want [58, 59]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 159) {
		t.Errorf("entry: got %v, want the last close 159", c.Levels.Entry)
	}
	if !near(c.Levels.Stop, 100) {
		t.Errorf("stop: got %v, want the slow average 100", c.Levels.Stop)
	}
	// No swing highs above the close, so the target falls back to the
	// series high.
	if !near(c.Levels.Target, 159) {
		t.Errorf("target: got %v, want 159", c.Levels.Target)
	}
	if c.Metrics["volume_confirmed"] != 0 {
		t.Errorf("flat volume must not confirm the cross, got %v", c.Metrics["volume_confirmed"])
	}
}

func TestDeathCrossDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indicators.FastMAPeriod = 10
	cfg.Indicators.SlowMAPeriod = 20

	values := make([]float64, 60)
	for i := range values {
		values[i] = 160 - float64(i)
	}
	s := lineSeries(t, values, nil)

	fast := make([]float64, 60)
	slow := make([]float64, 60)
	for i := range fast {
		fast[i] = 101
		slow[i] = 100
	}
	fast[59] = 99
	ind := &indicators.Set{FastMA: fast, SlowMA: slow}

	d := &CrossDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}
	if got[0].Bias != Bearish {
		t.Errorf("got %s, want bearish for a death cross", got[0].Bias)
	}
}

func TestBullishEngulfingDetection(t *testing.T) {
	cfg := DefaultConfig()

	candles := make([]market.Candle, 0, 13)
	for i := 0; i < 11; i++ {
		open := 130 - 2*float64(i)
		candles = append(candles, market.Candle{
			Open: open, High: open + 0.5, Low: open - 1.5, Close: open - 1,
		})
	}
	// Bearish candle fully engulfed by the bullish close that follows.
	candles = append(candles, market.Candle{Open: 100, High: 101, Low: 89, Close: 90})
	candles = append(candles, market.Candle{Open: 88, High: 104, Low: 87, Close: 103})

	s := bodySeries(t, candles)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &EngulfingDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish", c.Bias)
	}
	if c.StartIndex != 11 || c.EndIndex != 12 {
		t.Errorf("got span [%d, %d], want the last two candles [11, 12]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 103) {
		t.Errorf("entry: got %v, want 103", c.Levels.Entry)
	}
	if !near(c.Levels.Stop, 88) {
		t.Errorf("stop: got %v, want the engulfing body bottom 88", c.Levels.Stop)
	}
	if !near(c.Metrics["size_ratio"], 1.5) {
		t.Errorf("size_ratio: got %v, want 1.5", c.Metrics["size_ratio"])
	}
	if c.Metrics["trend_align"] <= 0 {
		t.Errorf("a reversal of a downtrend should have positive trend_align, got %v",
			c.Metrics["trend_align"])
	}
}

func TestEngulfingRequiresOppositeColors(t *testing.T) {
	cfg := DefaultConfig()

	candles := make([]market.Candle, 0, 13)
	for i := 0; i < 11; i++ {
		open := 130 - 2*float64(i)
		candles = append(candles, market.Candle{
			Open: open, High: open + 0.5, Low: open - 1.5, Close: open - 1,
		})
	}
	// Two bullish candles, the second containing the first body.
	candles = append(candles, market.Candle{Open: 90, High: 101, Low: 89, Close: 100})
	candles = append(candles, market.Candle{Open: 88, High: 104, Low: 87, Close: 103})

	s := bodySeries(t, candles)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &EngulfingDetector{}
	if got := d.Detect(s, ind, cfg); len(got) != 0 {
		t.Errorf("same-color candles must not form an engulfing, got %d candidates", len(got))
	}
}

func TestHeadAndShouldersDetection(t *testing.T) {
	// Shoulders at 140, head at 150, both neckline troughs at 130, then a
	// close below the neckline.
	values := []float64{
		110, 114, 118, 122, 126, 130, 134, 137, 140,
		138, 136, 134, 132, 130,
		134, 138, 142, 146, 150,
		146, 142, 138, 134, 130,
		132, 134, 136, 138, 140,
		138, 136, 134, 132, 130, 129, 128.5, 128, 127.5, 127, 126,
	}
	cfg := DefaultConfig()
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &HeadAndShouldersDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bearish {
		t.Errorf("got %s, want bearish for the regular form", c.Bias)
	}
	if c.StartIndex != 8 || c.EndIndex != 39 {
		t.Errorf("got span [%d, %d], want [8, 39]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 130) {
		t.Errorf("entry: got %v, want the neckline 130", c.Levels.Entry)
	}
	if !near(c.Levels.Target, 110) {
		t.Errorf("target: got %v, want the head height projected down, 110", c.Levels.Target)
	}
	if !near(c.Levels.Stop, 150*1.005) {
		t.Errorf("stop: got %v, want %v", c.Levels.Stop, 150*1.005)
	}
	if !near(c.Metrics["symmetry"], 1) {
		t.Errorf("equal shoulders should score symmetry 1, got %v", c.Metrics["symmetry"])
	}
	if !near(c.Metrics["head_prominence"], 10.0/150) {
		t.Errorf("head_prominence: got %v, want %v", c.Metrics["head_prominence"], 10.0/150)
	}
	if !near(c.Metrics["break_depth"], 4.0/130) {
		t.Errorf("break_depth: got %v, want %v", c.Metrics["break_depth"], 4.0/130)
	}
}

func TestBullFlagDetection(t *testing.T) {
	// Five flat bars, a five-bar pole from 100 to 108, then a tight
	// consolidation drifting slightly lower.
	values := []float64{
		100, 100, 100, 100, 100,
		100, 102, 104, 106, 108,
		108, 107.5, 107.8, 107.4, 107.6, 107.3, 107.5, 107.2, 107.4, 107.3,
	}
	cfg := DefaultConfig()
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &FlagDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish after an up impulse", c.Bias)
	}
	if c.StartIndex != 5 || c.EndIndex != 19 {
		t.Errorf("got span [%d, %d], want [5, 19]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 108) {
		t.Errorf("entry: got %v, want the channel high 108", c.Levels.Entry)
	}
	if !near(c.Levels.Target, 116) {
		t.Errorf("target: got %v, want the pole height projected, 116", c.Levels.Target)
	}
	if !near(c.Levels.Stop, 107.2) {
		t.Errorf("stop: got %v, want the channel low 107.2", c.Levels.Stop)
	}
	if !near(c.Metrics["pole_move"], 0.08) {
		t.Errorf("pole_move: got %v, want 0.08", c.Metrics["pole_move"])
	}
	if !near(c.Metrics["impulse_score"], 1) {
		t.Errorf("an 8%% pole should cap impulse_score at 1, got %v", c.Metrics["impulse_score"])
	}
}

func TestFlagRejectsRisingConsolidation(t *testing.T) {
	// Same pole, but the channel keeps rallying instead of pausing.
	values := []float64{
		100, 100, 100, 100, 100,
		100, 102, 104, 106, 108,
		108, 108.2, 108.4, 108.5, 108.7, 108.9, 109.1, 109.2, 109.4, 109.5,
	}
	cfg := DefaultConfig()
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &FlagDetector{}
	if got := d.Detect(s, ind, cfg); len(got) != 0 {
		t.Errorf("a channel that keeps rallying is not a flag, got %d candidates", len(got))
	}
}

func TestAscendingTriangleDetection(t *testing.T) {
	// Five touches of a flat 110 resistance with troughs rising from 100
	// to 108, price pressing into the level at the end.
	values := []float64{
		104, 105.2, 106.4, 107.6, 108.8, 110,
		107.5, 105, 102.5, 100,
		102.5, 105, 107.5, 110,
		108, 106, 104, 102,
		104, 106, 108, 110,
		108.5, 107, 105.5, 104,
		105.5, 107, 108.5, 110,
		109, 108, 107, 106,
		107, 108, 109, 110,
		109.5, 109, 108.5, 108,
		108.25, 108.5, 108.75, 109, 109.2, 109.4, 109.6, 109.8,
	}
	cfg := DefaultConfig()
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &TriangleDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish for an ascending triangle", c.Bias)
	}
	if c.StartIndex != 21 || c.EndIndex != 49 {
		t.Errorf("got span [%d, %d], want [21, 49]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 110) {
		t.Errorf("entry: got %v, want the flat resistance 110", c.Levels.Entry)
	}
	if !near(c.Levels.Target, 120) {
		t.Errorf("target: got %v, want the triangle height projected, 120", c.Levels.Target)
	}
	if !near(c.Levels.Stop, 108) {
		t.Errorf("stop: got %v, want the last trough 108", c.Levels.Stop)
	}
	if !near(c.Metrics["flatness"], 1) {
		t.Errorf("identical touches should score flatness 1, got %v", c.Metrics["flatness"])
	}
	if !near(c.Metrics["slope"], 2) {
		t.Errorf("trough slope: got %v, want 2", c.Metrics["slope"])
	}
}

func TestBullishRSIDivergence(t *testing.T) {
	cfg := DefaultConfig()

	// Price makes a lower low in the recent half of the window.
	values := make([]float64, 0, 40)
	for i := 0; i < 20; i++ {
		values = append(values, 105)
	}
	values = append(values, 105, 104, 103, 102, 101, 100, 101, 102, 103, 104)
	values = append(values, 103, 101, 99, 97, 96, 95, 95.5, 96, 96.5, 97)
	s := lineSeries(t, values, nil)

	// Hand-built RSI making a higher low over the same halves.
	rsi := make([]float64, 40)
	for i := range rsi {
		rsi[i] = 50
	}
	copy(rsi[20:], []float64{50, 48, 46, 44, 42, 30, 45, 47, 48, 50})
	copy(rsi[30:], []float64{48, 46, 44, 42, 41, 40, 42, 44, 45, 46})
	ind := &indicators.Set{RSI: rsi}

	d := &RSIDivergenceDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish for price LL with RSI HL", c.Bias)
	}
	if c.StartIndex != 20 || c.EndIndex != 39 {
		t.Errorf("got span [%d, %d], want [20, 39]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 97) {
		t.Errorf("entry: got %v, want the last close 97", c.Levels.Entry)
	}
	if !near(c.Levels.Stop, 95*0.995) {
		t.Errorf("stop: got %v, want %v", c.Levels.Stop, 95*0.995)
	}
	if !near(c.Metrics["price_divergence"], 0.05) {
		t.Errorf("price_divergence: got %v, want 0.05", c.Metrics["price_divergence"])
	}
	if !near(c.Metrics["rsi_extreme_recent"], 40) || !near(c.Metrics["rsi_extreme_past"], 30) {
		t.Errorf("rsi extremes: got %v/%v, want 40/30",
			c.Metrics["rsi_extreme_recent"], c.Metrics["rsi_extreme_past"])
	}
}

func TestIchimokuBullishCross(t *testing.T) {
	cfg := DefaultConfig()

	// A long decline into a slow recovery; the conversion line overtakes
	// the base line exactly on the final candle.
	values := make([]float64, 85)
	for i := range values {
		if i <= 70 {
			values[i] = 200 - float64(i)
		} else {
			values[i] = 130 + 0.6*float64(i-70)
		}
	}
	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &IchimokuDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish", c.Bias)
	}
	if c.StartIndex != 83 || c.EndIndex != 84 {
		t.Errorf("got span [%d, %d], want the crossing candles [83, 84]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 138.4) {
		t.Errorf("entry: got %v, want the last close 138.4", c.Levels.Entry)
	}
	if !near(c.Metrics["tenkan"], 136) || !near(c.Metrics["kijun"], 135.5) {
		t.Errorf("cross lines: got tenkan %v kijun %v, want 136 and 135.5",
			c.Metrics["tenkan"], c.Metrics["kijun"])
	}
	// The recovery is still under the cloud left behind by the decline.
	if c.Metrics["beyond_cloud"] != 0 || c.Metrics["cloud_aligned"] != 0 {
		t.Errorf("early reversal should have no cloud confirmation, got beyond %v aligned %v",
			c.Metrics["beyond_cloud"], c.Metrics["cloud_aligned"])
	}
	if !near(c.Metrics["cloud_top"], 167.5) || !near(c.Metrics["cloud_bottom"], 150.25) {
		t.Errorf("cloud: got [%v, %v], want [150.25, 167.5]",
			c.Metrics["cloud_bottom"], c.Metrics["cloud_top"])
	}
}

func TestBullishABCCorrection(t *testing.T) {
	cfg := DefaultConfig()

	// Impulse to 150, wave A to 100, wave B back to 125 (a 50%
	// retracement), wave C to 75 matching wave A, then a basing close.
	values := make([]float64, 0, 90)
	for i := 0; i < 10; i++ {
		values = append(values, 135+0.5*float64(i))
	}
	for i := 0; i < 21; i++ {
		values = append(values, 140+0.5*float64(i))
	}
	for i := 1; i <= 20; i++ {
		values = append(values, 150-2.5*float64(i))
	}
	for i := 1; i <= 10; i++ {
		values = append(values, 100+2.5*float64(i))
	}
	for i := 1; i <= 20; i++ {
		values = append(values, 125-2.5*float64(i))
	}
	values = append(values, 75.2, 75.4, 75.5, 75.6, 75.7, 75.8, 75.85, 75.9, 76)

	s := lineSeries(t, values, nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &ABCCorrectionDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish after a completed correction", c.Bias)
	}
	if c.StartIndex != 30 || c.EndIndex != 89 {
		t.Errorf("got span [%d, %d], want [30, 89]", c.StartIndex, c.EndIndex)
	}
	if !near(c.Levels.Entry, 76) {
		t.Errorf("entry: got %v, want the last close 76", c.Levels.Entry)
	}
	if !near(c.Levels.Target, 150) {
		t.Errorf("target: got %v, want the impulse origin 150", c.Levels.Target)
	}
	if !near(c.Levels.Stop, 75*0.99) {
		t.Errorf("stop: got %v, want %v", c.Levels.Stop, 75*0.99)
	}
	if !near(c.Metrics["b_retracement"], 0.5) {
		t.Errorf("b_retracement: got %v, want 0.5", c.Metrics["b_retracement"])
	}
	if !near(c.Metrics["c_to_a_ratio"], 1) {
		t.Errorf("c_to_a_ratio: got %v, want 1", c.Metrics["c_to_a_ratio"])
	}
}

func srFixtureValues() []float64 {
	return []float64{
		100, 102, 104, 110, 104, 102, 100,
		102, 104, 110, 104, 102, 100,
		102, 104, 106, 104, 102, 100,
		102, 104, 106, 104, 102, 100,
		102, 104, 106, 104, 102, 100,
		103, 106, 109, 112,
	}
}

func TestResistanceBreakout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SRLookback = 30

	values := srFixtureValues()
	volumes := make([]float64, len(values))
	for i := range volumes {
		volumes[i] = 1000
	}
	volumes[len(volumes)-1] = 2000

	s := lineSeries(t, values, volumes)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &SRBreakoutDetector{}
	got := d.Detect(s, ind, cfg)
	if len(got) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(got))
	}

	c := got[0]
	if c.Bias != Bullish {
		t.Errorf("got %s, want bullish for a resistance break", c.Bias)
	}
	if !near(c.Levels.Entry, 110) {
		t.Errorf("entry: got %v, want the broken level 110", c.Levels.Entry)
	}
	if !near(c.Metrics["touches"], 2) {
		t.Errorf("touches: got %v, want 2", c.Metrics["touches"])
	}
	if !near(c.Metrics["volume_ratio"], 2) {
		t.Errorf("volume_ratio: got %v, want 2", c.Metrics["volume_ratio"])
	}
}

func TestBreakoutRequiresVolumeExpansion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SRLookback = 30

	s := lineSeries(t, srFixtureValues(), nil)
	ind := indicators.Compute(s, cfg.Indicators)

	d := &SRBreakoutDetector{}
	if got := d.Detect(s, ind, cfg); len(got) != 0 {
		t.Errorf("a level break on flat volume must not alert, got %d candidates", len(got))
	}
}

func TestClusterLevels(t *testing.T) {
	peaks := []indicators.SwingPoint{
		{Index: 3, Price: 110, Type: indicators.Peak},
		{Index: 9, Price: 110.2, Type: indicators.Peak},
	}
	troughs := []indicators.SwingPoint{
		{Index: 6, Price: 100, Type: indicators.Trough},
		{Index: 12, Price: 100.1, Type: indicators.Trough},
		{Index: 18, Price: 99.9, Type: indicators.Trough},
	}

	levels := clusterLevels(peaks, troughs, 0.005)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].kind != "support" || levels[0].touches != 3 {
		t.Errorf("strongest level: got %s with %d touches, want support with 3",
			levels[0].kind, levels[0].touches)
	}
	if levels[1].kind != "resistance" || levels[1].touches != 2 {
		t.Errorf("second level: got %s with %d touches, want resistance with 2",
			levels[1].kind, levels[1].touches)
	}
}

func TestVolumeRatio(t *testing.T) {
	volumes := []float64{100, 100, 100, 100, 300}
	if got := volumeRatio(volumes, 4); !near(got, 3) {
		t.Errorf("got %v, want 3", got)
	}
	if got := volumeRatio([]float64{100}, 4); got != 0 {
		t.Errorf("single sample should yield 0, got %v", got)
	}
}
