// replay runs the detection pipeline once over historical candles and
// prints every alert it would have emitted. Useful for tuning
// thresholds against a known chart without running the full scanner.
//
// Candles come either from the exchange REST API (-symbol/-interval)
// or from a JSON file produced by a prior export (-file).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/market"
	"market-scanner/internal/pipeline"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "instrument symbol")
	interval := flag.String("interval", "1h", "candle timeframe")
	limit := flag.Int("limit", 300, "number of candles to fetch")
	file := flag.String("file", "", "JSON candle file instead of the live API")
	baseURL := flag.String("base-url", "", "exchange REST base URL (default Binance)")
	minConfidence := flag.Int("min-confidence", 0, "minimum confidence to report")
	minRR := flag.Float64("min-rr", 0, "minimum risk/reward to report")
	asJSON := flag.Bool("json", false, "print alerts as JSON")
	flag.Parse()

	candles, err := loadCandles(*file, *baseURL, *symbol, *interval, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading candles: %v\n", err)
		os.Exit(1)
	}

	cfg := pipeline.DefaultConfig()
	cfg.MinConfidence = *minConfidence
	cfg.MinRiskReward = *minRR

	// No dedup manager: a replay reports everything it sees.
	p := pipeline.New(cfg, nil, zerolog.Nop())
	alerts, err := p.Analyze(context.Background(), *symbol, *interval, candles, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out, err := json.MarshalIndent(alerts, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "encoding alerts: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%s %s: %d candles analyzed, %d alerts\n\n",
		*symbol, *interval, len(candles), len(alerts))
	if len(alerts) == 0 {
		return
	}

	fmt.Printf("%-26s %-8s %-5s %8s %12s %12s %12s %8s\n",
		"PATTERN", "BIAS", "CONF", "PRICE", "ENTRY", "TARGET", "STOP", "R:R")
	for _, a := range alerts {
		fmt.Printf("%-26s %-8s %-5d %8.2f %12.2f %12.2f %12.2f %8.2f\n",
			a.Kind, a.Bias, a.Confidence, a.Price,
			a.Levels.Entry, a.Levels.Target, a.Levels.Stop, a.RiskReward)
	}
}

func loadCandles(file, baseURL, symbol, interval string, limit int) ([]market.Candle, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var candles []market.Candle
		if err := json.Unmarshal(data, &candles); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		return candles, nil
	}

	client := market.NewClient(baseURL)
	return client.GetCandles(symbol, interval, limit)
}
