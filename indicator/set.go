package indicator

import (
	"fmt"

	"github.com/dnldd/trend/shared"
)

// Periods represents the indicator periods used to compute a set.
type Periods struct {
	EMA  int
	TEMA int
	RSI  int
	ADX  int
	ATR  int
}

// Required returns the minimum number of bars needed to compute every indicator.
func (p Periods) Required() int {
	return max(p.EMA, p.TEMA, p.RSI+1, 2*p.ADX, p.ATR+1)
}

// Warmup returns the number of bars needed for every stage of the tema to be seeded
// from its own history. Shorter windows down to Required still compute, with the tema
// collapsing towards the simple average of its period.
func (p Periods) Warmup() int {
	return max(p.Required(), 3*p.TEMA-2)
}

// Set represents the trailing indicator values computed from a bar window.
type Set struct {
	EMA  float64
	TEMA float64
	RSI  float64
	ADX  float64
	// ATR is reported alongside the other indicators but is not used to make decisions.
	ATR float64
}

// Compute calculates the indicator set for the provided bars. It fails with
// shared.ErrInsufficientData when the window is too short for any configured period.
func Compute(bars []shared.Bar, periods Periods) (*Set, error) {
	closes := shared.Closes(bars)
	highs := shared.Highs(bars)
	lows := shared.Lows(bars)

	var set Set
	var err error

	set.EMA, err = EMA(closes, periods.EMA)
	if err != nil {
		return nil, fmt.Errorf("computing ema: %w", err)
	}
	set.TEMA, err = TEMA(closes, periods.TEMA)
	if err != nil {
		return nil, fmt.Errorf("computing tema: %w", err)
	}
	set.RSI, err = RSI(closes, periods.RSI)
	if err != nil {
		return nil, fmt.Errorf("computing rsi: %w", err)
	}
	set.ADX, err = ADX(highs, lows, closes, periods.ADX)
	if err != nil {
		return nil, fmt.Errorf("computing adx: %w", err)
	}
	set.ATR, err = ATR(highs, lows, closes, periods.ATR)
	if err != nil {
		return nil, fmt.Errorf("computing atr: %w", err)
	}

	return &set, nil
}
