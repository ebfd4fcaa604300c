package indicators

// SwingType classifies a swing point
type SwingType string

const (
	Peak   SwingType = "peak"
	Trough SwingType = "trough"
)

// SwingPoint is a local price extremum used as a structural landmark by
// several detectors.
type SwingPoint struct {
	Index int
	Price float64
	Type  SwingType
}

// SwingHighs finds local maxima: a candle is a peak when its high is not
// exceeded by any high within +-window candles. Equal highs still
// qualify, so exact ties are never a reason to reject a swing.
func SwingHighs(highs []float64, window int) []SwingPoint {
	var swings []SwingPoint
	for i := window; i < len(highs)-window; i++ {
		isPeak := true
		for j := 1; j <= window; j++ {
			if highs[i-j] > highs[i] || highs[i+j] > highs[i] {
				isPeak = false
				break
			}
		}
		if isPeak {
			swings = append(swings, SwingPoint{Index: i, Price: highs[i], Type: Peak})
		}
	}
	return swings
}

// SwingLows finds local minima, symmetric to SwingHighs
func SwingLows(lows []float64, window int) []SwingPoint {
	var swings []SwingPoint
	for i := window; i < len(lows)-window; i++ {
		isTrough := true
		for j := 1; j <= window; j++ {
			if lows[i-j] < lows[i] || lows[i+j] < lows[i] {
				isTrough = false
				break
			}
		}
		if isTrough {
			swings = append(swings, SwingPoint{Index: i, Price: lows[i], Type: Trough})
		}
	}
	return swings
}

// NearestSwingHighAbove returns the closest swing high priced above the
// given price, or fallback when none exists.
func NearestSwingHighAbove(swings []SwingPoint, price, fallback float64) float64 {
	best := fallback
	found := false
	for _, sp := range swings {
		if sp.Price > price && (!found || sp.Price < best) {
			best = sp.Price
			found = true
		}
	}
	return best
}

// NearestSwingLowBelow returns the closest swing low priced below the
// given price, or fallback when none exists.
func NearestSwingLowBelow(swings []SwingPoint, price, fallback float64) float64 {
	best := fallback
	found := false
	for _, sp := range swings {
		if sp.Price < price && (!found || sp.Price > best) {
			best = sp.Price
			found = true
		}
	}
	return best
}
