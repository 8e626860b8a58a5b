package indicator

import (
	"fmt"

	"github.com/dnldd/trend/shared"
	"github.com/markcheno/go-talib"
)

// checkPeriod asserts the provided period is usable.
func checkPeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%w: %s period must be positive, got %d", shared.ErrInvalidInput, name, period)
	}

	return nil
}

// checkLength asserts there are enough values to compute an indicator.
func checkLength(name string, period int, have int, need int) error {
	if have < need {
		return fmt.Errorf("%w: %s(%d) requires %d values, got %d", shared.ErrInsufficientData,
			name, period, need, have)
	}

	return nil
}

// checkSeries asserts high, low and close series are aligned.
func checkSeries(name string, highs, lows, closes []float64) error {
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return fmt.Errorf("%w: %s expects aligned series, got %d highs, %d lows, %d closes",
			shared.ErrInvalidInput, name, len(highs), len(lows), len(closes))
	}

	return nil
}

// EMA returns the latest exponential moving average of the provided closes. The average is
// seeded by the simple average of the first period values.
func EMA(closes []float64, period int) (float64, error) {
	if err := checkPeriod("ema", period); err != nil {
		return 0, err
	}
	if err := checkLength("ema", period, len(closes), period); err != nil {
		return 0, err
	}

	out := talib.Ema(closes, period)
	return out[len(out)-1], nil
}

// smooth applies recursive exponential smoothing to the provided values, seeded with the
// first value.
func smooth(values []float64, period int) []float64 {
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for idx := 1; idx < len(values); idx++ {
		out[idx] = (values[idx]-out[idx-1])*k + out[idx-1]
	}

	return out
}

// TEMA returns the latest triple exponential moving average of the provided closes,
// 3·EMA1 − 3·EMA2 + EMA3. The second and third stages smooth the preceding stage from its
// first value, which keeps the indicator defined once period values are available.
func TEMA(closes []float64, period int) (float64, error) {
	if err := checkPeriod("tema", period); err != nil {
		return 0, err
	}
	if err := checkLength("tema", period, len(closes), period); err != nil {
		return 0, err
	}

	ema1 := talib.Ema(closes, period)[period-1:]
	ema2 := smooth(ema1, period)
	ema3 := smooth(ema2, period)

	last := len(ema1) - 1
	return 3*ema1[last] - 3*ema2[last] + ema3[last], nil
}

// RSI returns the latest Wilder relative strength index of the provided closes, in [0,100].
func RSI(closes []float64, period int) (float64, error) {
	if err := checkPeriod("rsi", period); err != nil {
		return 0, err
	}
	if err := checkLength("rsi", period, len(closes), period+1); err != nil {
		return 0, err
	}

	out := talib.Rsi(closes, period)
	return out[len(out)-1], nil
}

// ADX returns the latest Wilder average directional index, in [0,100].
func ADX(highs, lows, closes []float64, period int) (float64, error) {
	if err := checkPeriod("adx", period); err != nil {
		return 0, err
	}
	if err := checkSeries("adx", highs, lows, closes); err != nil {
		return 0, err
	}
	if err := checkLength("adx", period, len(closes), 2*period); err != nil {
		return 0, err
	}

	out := talib.Adx(highs, lows, closes, period)
	return out[len(out)-1], nil
}

// ATR returns the latest average true range.
func ATR(highs, lows, closes []float64, period int) (float64, error) {
	if err := checkPeriod("atr", period); err != nil {
		return 0, err
	}
	if err := checkSeries("atr", highs, lows, closes); err != nil {
		return 0, err
	}
	if err := checkLength("atr", period, len(closes), period+1); err != nil {
		return 0, err
	}

	out := talib.Atr(highs, lows, closes, period)
	return out[len(out)-1], nil
}
