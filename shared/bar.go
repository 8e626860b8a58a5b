package shared

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DateLayout is the format layout for parsing bar dates.
	DateLayout = "2006-01-02 15:04:05"
)

// Bar represents a unit OHLCV bar for a market.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata.
	Market string
}

// ParseBars parses bars from the provided json data. Dates are interpreted in the
// provided location.
func ParseBars(data []gjson.Result, market string, loc *time.Location) ([]Bar, error) {
	bars := make([]Bar, 0, len(data))

	for idx := range data {
		dt, err := time.ParseInLocation(DateLayout, data[idx].Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing bar date: %w", err)
		}

		bars = append(bars, Bar{
			Open:   data[idx].Get("open").Float(),
			High:   data[idx].Get("high").Float(),
			Low:    data[idx].Get("low").Float(),
			Close:  data[idx].Get("close").Float(),
			Volume: data[idx].Get("volume").Float(),
			Date:   dt,
			Market: market,
		})
	}

	return bars, nil
}

// ValidateBars asserts the provided bar window is usable for evaluation: it must be
// non-empty, strictly increasing in time, carry positive finite closing prices and
// finite ranges with the low at or below the high. Gaps between bars are allowed.
func ValidateBars(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: empty bar window", ErrInvalidInput)
	}

	for idx := range bars {
		bar := &bars[idx]
		if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) || bar.Close <= 0 {
			return fmt.Errorf("%w: bar %d has invalid close %v", ErrInvalidInput, idx, bar.Close)
		}
		if !isFinite(bar.High) || !isFinite(bar.Low) {
			return fmt.Errorf("%w: bar %d has a non-finite range (high %v, low %v)", ErrInvalidInput,
				idx, bar.High, bar.Low)
		}
		if bar.Low > bar.High {
			return fmt.Errorf("%w: bar %d low %v is above its high %v", ErrInvalidInput,
				idx, bar.Low, bar.High)
		}

		if idx == 0 {
			continue
		}

		prev := bars[idx-1].Date
		if !bar.Date.After(prev) {
			return fmt.Errorf("%w: bar %d timestamp %s is not after %s", ErrInvalidInput,
				idx, bar.Date.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}

	return nil
}

// isFinite checks whether the provided value is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Closes returns the closing prices of the provided bars.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for idx := range bars {
		closes[idx] = bars[idx].Close
	}

	return closes
}

// Highs returns the high prices of the provided bars.
func Highs(bars []Bar) []float64 {
	highs := make([]float64, len(bars))
	for idx := range bars {
		highs[idx] = bars[idx].High
	}

	return highs
}

// Lows returns the low prices of the provided bars.
func Lows(bars []Bar) []float64 {
	lows := make([]float64, len(bars))
	for idx := range bars {
		lows[idx] = bars[idx].Low
	}

	return lows
}

// Last returns the last bar of the provided window.
func Last(bars []Bar) *Bar {
	if len(bars) == 0 {
		return nil
	}

	return &bars[len(bars)-1]
}
