package notification

import (
	"context"
	"fmt"
	"strings"

	"market-scanner/internal/patterns"
	"market-scanner/internal/pipeline"
)

var patternNames = map[patterns.Kind]string{
	patterns.DoubleTopBottom:  "Double Top / Bottom",
	patterns.HeadAndShoulders: "Head and Shoulders",
	patterns.Flag:             "Bull / Bear Flag",
	patterns.Triangle:         "Triangle",
	patterns.Cross:            "Golden / Death Cross",
	patterns.RSIDivergence:    "RSI Divergence",
	patterns.Engulfing:        "Engulfing Candle",
	patterns.SRBreakout:       "S/R Level Break",
	patterns.Ichimoku:         "Ichimoku TK Cross",
	patterns.ABCCorrection:    "ABC Correction",
}

// AlertNotifier formats pipeline alerts and fans them out through the
// provider manager.
type AlertNotifier struct {
	manager *Manager
}

// NewAlertNotifier wraps a provider manager for alert delivery
func NewAlertNotifier(manager *Manager) *AlertNotifier {
	return &AlertNotifier{manager: manager}
}

// Notify implements the pipeline notifier contract
func (an *AlertNotifier) Notify(ctx context.Context, alert pipeline.Alert) error {
	return an.manager.Send(&Notification{
		Type:       NotifyAlert,
		Title:      formatTitle(alert),
		Message:    FormatAlert(alert),
		Instrument: alert.Instrument,
		Price:      alert.Price,
		Confidence: alert.Confidence,
		Timestamp:  alert.DetectedAt,
	})
}

func formatTitle(alert pipeline.Alert) string {
	emoji := "🟢"
	if alert.Bias == patterns.Bearish {
		emoji = "🔴"
	}
	name := patternNames[alert.Kind]
	if name == "" {
		name = string(alert.Kind)
	}
	return fmt.Sprintf("%s %s: %s %s", emoji, name, alert.Instrument, alert.Timeframe)
}

// FormatAlert renders the alert body shared by every provider
func FormatAlert(alert pipeline.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Signal: %s\n", strings.ToUpper(string(alert.Bias)))
	fmt.Fprintf(&b, "Confidence: %d%%\n", alert.Confidence)
	fmt.Fprintf(&b, "Price: %s\n\n", formatPrice(alert.Price))
	fmt.Fprintf(&b, "Entry: %s\n", formatPrice(alert.Levels.Entry))
	fmt.Fprintf(&b, "Target: %s\n", formatPrice(alert.Levels.Target))
	fmt.Fprintf(&b, "Stop: %s\n", formatPrice(alert.Levels.Stop))
	if alert.RiskReward > 0 {
		fmt.Fprintf(&b, "R/R: %.1f", alert.RiskReward)
	}
	return b.String()
}

func formatPrice(price float64) string {
	if price > 100 {
		return fmt.Sprintf("$%.2f", price)
	}
	return fmt.Sprintf("$%.6f", price)
}
