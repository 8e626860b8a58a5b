package shared

import "errors"

var (
	// ErrInsufficientData is returned when a bar window is too short to compute an indicator.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidInput is returned for malformed bar windows or account snapshots.
	ErrInvalidInput = errors.New("invalid input")
)
