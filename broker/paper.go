package broker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/dnldd/trend/shared"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientCash is returned when a buy order costs more than the available cash.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrInsufficientHolding is returned when a sell order exceeds the held size.
	ErrInsufficientHolding = errors.New("insufficient holding")
)

// PaperConfig represents the configuration of the paper account.
type PaperConfig struct {
	// StartingCash is the cash the account starts with.
	StartingCash float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *PaperConfig) Validate() error {
	var errs error

	if math.IsNaN(cfg.StartingCash) || math.IsInf(cfg.StartingCash, 0) || cfg.StartingCash < 0 {
		errs = errors.Join(errs, fmt.Errorf("starting cash must be a non-negative number, got %f", cfg.StartingCash))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("no logger provided"))
	}

	return errs
}

type holding struct {
	size  decimal.Decimal
	price decimal.Decimal
}

// Paper represents an in-memory account filling orders at their requested price.
type Paper struct {
	cfg      *PaperConfig
	cash     decimal.Decimal
	holdings map[string]*holding
	fills    []shared.Order
	logger   zerolog.Logger
	mtx      sync.Mutex
}

// Ensure the paper account implements the Broker interface.
var _ shared.Broker = (*Paper)(nil)

// NewPaper initializes a new paper account.
func NewPaper(cfg *PaperConfig) (*Paper, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating paper config: %w", err)
	}

	return &Paper{
		cfg:      cfg,
		cash:     decimal.NewFromFloat(cfg.StartingCash),
		holdings: make(map[string]*holding),
		logger:   cfg.Logger.With().Str("component", "paper").Logger(),
	}, nil
}

// FetchAccount returns a snapshot of the account. Holdings are marked at their last
// fill price.
func (p *Paper) FetchAccount(_ context.Context) (shared.AccountState, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	equity := p.cash
	for _, h := range p.holdings {
		equity = equity.Add(h.size.Mul(h.price))
	}

	return shared.AccountState{
		AvailableCash: p.cash.InexactFloat64(),
		Equity:        equity.InexactFloat64(),
	}, nil
}

// PlaceOrder fills the provided order at its price.
func (p *Paper) PlaceOrder(_ context.Context, order shared.Order) error {
	if order.Market == "" {
		return fmt.Errorf("%w: order has no market", shared.ErrInvalidInput)
	}
	if math.IsNaN(order.Size) || math.IsInf(order.Size, 0) || order.Size <= 0 {
		return fmt.Errorf("%w: order size must be positive, got %f", shared.ErrInvalidInput, order.Size)
	}
	if math.IsNaN(order.Price) || math.IsInf(order.Price, 0) || order.Price <= 0 {
		return fmt.Errorf("%w: order price must be positive, got %f", shared.ErrInvalidInput, order.Price)
	}

	size := decimal.NewFromFloat(order.Size)
	price := decimal.NewFromFloat(order.Price)
	amount := size.Mul(price)

	p.mtx.Lock()
	defer p.mtx.Unlock()

	h, ok := p.holdings[order.Market]

	switch order.Side {
	case shared.Buy:
		if amount.GreaterThan(p.cash) {
			return fmt.Errorf("%w: buying %s %s at %s costs %s, available %s", ErrInsufficientCash,
				size, order.Market, price, amount.StringFixed(2), p.cash.StringFixed(2))
		}

		p.cash = p.cash.Sub(amount)
		if !ok {
			h = &holding{size: decimal.Zero}
			p.holdings[order.Market] = h
		}
		h.size = h.size.Add(size)
		h.price = price

	case shared.Sell:
		if !ok || size.GreaterThan(h.size) {
			held := decimal.Zero
			if ok {
				held = h.size
			}
			return fmt.Errorf("%w: selling %s %s, holding %s", ErrInsufficientHolding,
				size, order.Market, held)
		}

		p.cash = p.cash.Add(amount)
		h.size = h.size.Sub(size)
		h.price = price
		if h.size.IsZero() {
			delete(p.holdings, order.Market)
		}

	default:
		return fmt.Errorf("%w: unknown order side %d", shared.ErrInvalidInput, order.Side)
	}

	p.fills = append(p.fills, order)

	p.logger.Info().Msgf("filled %s order for %s %s at %s, cash %s", order.Side, size,
		order.Market, price, p.cash.StringFixed(2))

	return nil
}

// Holding returns the held size for the provided market.
func (p *Paper) Holding(market string) float64 {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	h, ok := p.holdings[market]
	if !ok {
		return 0
	}

	return h.size.InexactFloat64()
}

// Fills returns the filled orders in fill order.
func (p *Paper) Fills() []shared.Order {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return slices.Clone(p.fills)
}
