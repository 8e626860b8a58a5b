package position

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Position represents a long position held in a market. The zero value is a flat
// (empty) position.
type Position struct {
	ID           string
	Market       string
	EntryPrice   float64
	HighestPrice float64
	StopLoss     float64
	Size         float64
	Open         bool
	CreatedOn    time.Time
}

// positionID derives a deterministic position id from the market and entry time.
func positionID(market string, created time.Time) string {
	name := fmt.Sprintf("%s/%d", market, created.UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// NewPosition initializes a new open position.
func NewPosition(market string, price float64, size float64, stopLoss float64, created time.Time) (*Position, error) {
	if market == "" {
		return nil, fmt.Errorf("position market cannot be an empty string")
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("position entry price must be positive, got %f", price)
	}
	if size <= 0 {
		return nil, fmt.Errorf("position size must be positive, got %f", size)
	}

	pos := &Position{
		ID:           positionID(market, created),
		Market:       market,
		EntryPrice:   price,
		HighestPrice: price,
		StopLoss:     stopLoss,
		Size:         size,
		Open:         true,
		CreatedOn:    created,
	}

	return pos, nil
}

// Track updates the highest price seen since entry and returns it.
func (p *Position) Track(price float64) float64 {
	p.HighestPrice = math.Max(p.HighestPrice, price)
	return p.HighestPrice
}

// TrailingStop returns the trailing stop level for the provided trailing factor.
func (p *Position) TrailingStop(factor float64) float64 {
	return p.HighestPrice * (1 - factor)
}

// PNL returns the profit or loss of the position at the provided price.
func (p *Position) PNL(price float64) float64 {
	return (price - p.EntryPrice) * p.Size
}

// PNLPercent returns the percentage change of the position at the provided price.
func (p *Position) PNLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}

	return ((price - p.EntryPrice) / p.EntryPrice) * 100
}

// String stringifies the position.
func (p *Position) String() string {
	if !p.Open {
		return "flat"
	}

	return fmt.Sprintf("%s %s: %.0f @ %.2f (highest %.2f, stoploss %.2f)",
		p.Market, p.ID, p.Size, p.EntryPrice, p.HighestPrice, p.StopLoss)
}
