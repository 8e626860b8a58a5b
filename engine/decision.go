package engine

import (
	"time"

	"github.com/dnldd/trend/indicator"
	"github.com/dnldd/trend/position"
)

// Action represents a trading decision action.
type Action int

const (
	Hold Action = iota
	Open
	Close
)

// String stringifies the provided action.
func (a Action) String() string {
	switch a {
	case Hold:
		return "hold"
	case Open:
		return "open"
	case Close:
		return "close"
	default:
		return "unknown"
	}
}

// ExitReason represents the reason a position was closed.
type ExitReason int

const (
	NoExit ExitReason = iota
	StopLossExit
	TrailingStopExit
)

// String stringifies the provided exit reason.
func (r ExitReason) String() string {
	switch r {
	case NoExit:
		return "none"
	case StopLossExit:
		return "stop loss"
	case TrailingStopExit:
		return "trailing stop"
	default:
		return "unknown"
	}
}

// Decision represents the outcome of evaluating a market.
type Decision struct {
	Market string
	Action Action
	// Price is the last close of the evaluated window.
	Price float64
	// Size is the position size of an open decision.
	Size float64
	// StopLoss is the hard stop of an open decision.
	StopLoss float64
	// TrailingStop is the trailing stop level of an evaluated open position.
	TrailingStop float64
	// RealizedPNL is the profit or loss of a close decision.
	RealizedPNL float64
	ExitReason  ExitReason
	// Indicators is nil when the window was too short to compute them.
	Indicators *indicator.Set
	// Position is the position state resulting from the decision.
	Position  position.Position
	CreatedOn time.Time
}
