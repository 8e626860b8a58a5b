package shared

import "time"

// Side represents an order side.
type Side int

const (
	Buy Side = iota
	Sell
)

// String stringifies the provided order side.
func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Order represents a market order placed with a broker.
type Order struct {
	Market    string
	Side      Side
	Size      float64
	Price     float64
	CreatedOn time.Time
}

// NewOrder initializes a new order.
func NewOrder(market string, side Side, size float64, price float64, created time.Time) Order {
	return Order{
		Market:    market,
		Side:      side,
		Size:      size,
		Price:     price,
		CreatedOn: created,
	}
}
