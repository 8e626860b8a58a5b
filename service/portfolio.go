package service

import (
	"context"
	"time"
)

// Holding represents an open position valued at the last evaluated price.
type Holding struct {
	Market       string
	Size         float64
	EntryPrice   float64
	HighestPrice float64
	StopLoss     float64
	Price        float64
	// UnrealizedPNL is the profit or loss of the holding at the last evaluated price.
	UnrealizedPNL        float64
	UnrealizedPNLPercent float64
	CreatedOn            time.Time
}

// Portfolio represents a summary of the account and its open positions.
type Portfolio struct {
	Cash float64
	// Equity is the cash plus the value of the holdings at their last evaluated prices.
	Equity float64
	// InitialEquity is the equity of the first account snapshot.
	InitialEquity     float64
	ProfitLoss        float64
	ProfitLossPercent float64
	Holdings          []Holding
}

// Portfolio returns a summary of the account and the open positions.
func (t *Trader) Portfolio(ctx context.Context) (*Portfolio, error) {
	account, err := t.fetchAccount(ctx)
	if err != nil {
		return nil, err
	}

	positions := t.book.Positions()

	t.stateMtx.RLock()
	defer t.stateMtx.RUnlock()

	portfolio := &Portfolio{
		Cash:          account.AvailableCash,
		Equity:        account.AvailableCash,
		InitialEquity: t.initialEquity,
		Holdings:      make([]Holding, 0, len(positions)),
	}

	for idx := range positions {
		pos := &positions[idx]
		price, ok := t.lastPrices[pos.Market]
		if !ok {
			price = pos.EntryPrice
		}

		portfolio.Holdings = append(portfolio.Holdings, Holding{
			Market:               pos.Market,
			Size:                 pos.Size,
			EntryPrice:           pos.EntryPrice,
			HighestPrice:         pos.HighestPrice,
			StopLoss:             pos.StopLoss,
			Price:                price,
			UnrealizedPNL:        pos.PNL(price),
			UnrealizedPNLPercent: pos.PNLPercent(price),
			CreatedOn:            pos.CreatedOn,
		})
		portfolio.Equity += pos.Size * price
	}

	portfolio.ProfitLoss = portfolio.Equity - portfolio.InitialEquity
	if portfolio.InitialEquity != 0 {
		portfolio.ProfitLossPercent = (portfolio.ProfitLoss / portfolio.InitialEquity) * 100
	}

	return portfolio, nil
}
