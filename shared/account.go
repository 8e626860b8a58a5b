package shared

import (
	"fmt"
	"math"
)

// AccountState represents an account snapshot used to size new entries.
type AccountState struct {
	// AvailableCash is the cash available for new positions.
	AvailableCash float64
	// Equity is the total account value.
	Equity float64
}

// Validate asserts the account snapshot is sane.
func (a *AccountState) Validate() error {
	if math.IsNaN(a.AvailableCash) || math.IsInf(a.AvailableCash, 0) {
		return fmt.Errorf("%w: available cash is not a finite number", ErrInvalidInput)
	}
	if a.AvailableCash < 0 {
		return fmt.Errorf("%w: available cash cannot be negative, got %f", ErrInvalidInput, a.AvailableCash)
	}
	if math.IsNaN(a.Equity) || math.IsInf(a.Equity, 0) {
		return fmt.Errorf("%w: equity is not a finite number", ErrInvalidInput)
	}

	return nil
}
