package shared

import (
	"context"
)

// BarFetcher defines the requirements for fetching market bars.
type BarFetcher interface {
	// FetchBars fetches up to limit of the most recent bars for the provided market,
	// ordered oldest first.
	FetchBars(ctx context.Context, market string, limit int) ([]Bar, error)
}

// Broker defines the requirements for an order executing account.
type Broker interface {
	// FetchAccount returns a snapshot of the account.
	FetchAccount(ctx context.Context) (AccountState, error)
	// PlaceOrder places the provided order.
	PlaceOrder(ctx context.Context, order Order) error
}
