package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/trend/engine"
	"github.com/dnldd/trend/position"
	"github.com/dnldd/trend/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// DefaultTickInterval is the default interval between scheduled ticks.
	DefaultTickInterval = time.Minute * 15
	// DefaultClosedTickInterval is the default interval between market status checks
	// while the market is closed.
	DefaultClosedTickInterval = time.Hour
)

// Advancer defines the requirements for a replayable bar source.
type Advancer interface {
	// Advance moves the source to its next bar, returning false once exhausted.
	Advance() bool
}

// TraderConfig represents the configuration of the trader service.
type TraderConfig struct {
	// Markets represents the traded markets, evaluated in order every tick.
	Markets []string
	// Backtest is the backtesting flag.
	Backtest bool
	// BarLimit is the number of bars fetched per market every tick. It defaults to
	// the engine warmup size and cannot be less than the engine window size.
	BarLimit int
	// TickInterval is the interval between scheduled ticks.
	TickInterval time.Duration
	// ClosedTickInterval is the interval between market status checks while the market
	// is closed. It defaults to an hour.
	ClosedTickInterval time.Duration
	// Fetcher represents the bar source. It must be an advancer for backtests.
	Fetcher shared.BarFetcher
	// Broker represents the order executing account.
	Broker shared.Broker
	// Engine is the decision engine configuration.
	Engine *engine.EngineConfig
	// Notify sends the provided message to the user.
	Notify func(message string)
	// Now returns the current time, it defaults to the current new york time.
	Now func() (time.Time, error)
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for trader service"))
	}
	for idx, market := range cfg.Markets {
		if market == "" {
			errs = errors.Join(errs, fmt.Errorf("market at index %d cannot be an empty string", idx))
		}
	}
	if cfg.BarLimit < 0 {
		errs = errors.Join(errs, fmt.Errorf("bar limit cannot be negative, got %d", cfg.BarLimit))
	}
	if !cfg.Backtest && cfg.TickInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("tick interval must be positive, got %s", cfg.TickInterval))
	}
	if cfg.ClosedTickInterval < 0 {
		errs = errors.Join(errs, fmt.Errorf("closed tick interval cannot be negative, got %s", cfg.ClosedTickInterval))
	}
	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("bar fetcher cannot be nil"))
	}
	if cfg.Backtest && cfg.Fetcher != nil {
		if _, ok := cfg.Fetcher.(Advancer); !ok {
			errs = errors.Join(errs, fmt.Errorf("backtest bar fetcher must be replayable"))
		}
	}
	if cfg.Broker == nil {
		errs = errors.Join(errs, fmt.Errorf("broker cannot be nil"))
	}
	if cfg.Engine == nil {
		errs = errors.Join(errs, fmt.Errorf("engine config cannot be nil"))
	}
	if cfg.Notify == nil {
		errs = errors.Join(errs, fmt.Errorf("notify function cannot be nil"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("no logger provided"))
	}

	return errs
}

// Trader represents the trading service. It evaluates every configured market each
// tick and executes the resulting decisions.
type Trader struct {
	cfg       *TraderConfig
	engine    *engine.Engine
	book      *position.Book
	scheduler *gocron.Scheduler
	logger    zerolog.Logger

	// resumeAt is when the market status is next checked after finding it closed.
	resumeAt time.Time

	// lastBars tracks the last evaluated bar time per market.
	lastBars      map[string]time.Time
	lastPrices    map[string]float64
	initialEquity float64
	hasInitial    bool
	stateMtx      sync.RWMutex

	tickMtx sync.Mutex
}

// NewTrader initializes a new trader service.
func NewTrader(cfg *TraderConfig) (*Trader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating trader config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	eng, err := engine.NewEngine(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	if cfg.BarLimit == 0 {
		cfg.BarLimit = eng.WarmupSize()
	}
	if cfg.BarLimit < eng.WindowSize() {
		return nil, fmt.Errorf("bar limit %d is less than the %d bars required by the engine",
			cfg.BarLimit, eng.WindowSize())
	}

	if cfg.ClosedTickInterval == 0 {
		cfg.ClosedTickInterval = DefaultClosedTickInterval
	}

	if cfg.Now == nil {
		cfg.Now = func() (time.Time, error) {
			now, _, err := shared.NewYorkTime()
			return now, err
		}
	}

	loc, err := time.LoadLocation(shared.NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %w", err)
	}

	scheduler := gocron.NewScheduler(loc)
	scheduler.SingletonModeAll()

	return &Trader{
		cfg:        cfg,
		engine:     eng,
		book:       position.NewBook(),
		scheduler:  scheduler,
		logger:     cfg.Logger.With().Str("component", "trader").Logger(),
		lastBars:   make(map[string]time.Time),
		lastPrices: make(map[string]float64),
	}, nil
}

// Book returns the position book of the trader.
func (t *Trader) Book() *position.Book {
	return t.book
}

// fetchAccount fetches an account snapshot from the broker, recording the first one as
// the baseline for profit and loss.
func (t *Trader) fetchAccount(ctx context.Context) (shared.AccountState, error) {
	account, err := t.cfg.Broker.FetchAccount(ctx)
	if err != nil {
		return shared.AccountState{}, fmt.Errorf("fetching account: %w", err)
	}

	t.stateMtx.Lock()
	if !t.hasInitial {
		t.initialEquity = account.Equity
		t.hasInitial = true
	}
	t.stateMtx.Unlock()

	return account, nil
}

// Tick evaluates every configured market once against a single account snapshot and
// executes the resulting decisions. Ticks are serialized. Market level failures are
// logged and the market is skipped for the tick.
func (t *Trader) Tick(ctx context.Context) error {
	t.tickMtx.Lock()
	defer t.tickMtx.Unlock()

	account, err := t.fetchAccount(ctx)
	if err != nil {
		return err
	}

	for _, market := range t.cfg.Markets {
		if err := ctx.Err(); err != nil {
			return err
		}

		decision, err := t.evaluate(ctx, market, account)
		if err != nil {
			t.logger.Error().Err(err).Msgf("evaluating %s", market)
			continue
		}
		if decision == nil {
			continue
		}

		err = t.execute(ctx, decision)
		if err != nil {
			t.logger.Error().Err(err).Msgf("executing %s decision for %s", decision.Action, market)
			continue
		}

		if decision.Action == engine.Open {
			// Keep later markets in the batch from spending the same cash.
			account.AvailableCash = math.Max(0, account.AvailableCash-decision.Size*decision.Price)
		}
	}

	portfolio, err := t.Portfolio(ctx)
	if err != nil {
		return fmt.Errorf("fetching portfolio: %w", err)
	}

	t.logger.Info().Msgf("portfolio: cash %.2f, equity %.2f, p/l %.2f (%.2f%%), %d open positions",
		portfolio.Cash, portfolio.Equity, portfolio.ProfitLoss, portfolio.ProfitLossPercent,
		t.book.Len())

	return nil
}

// evaluate fetches the latest bars of the provided market and evaluates them. A nil
// decision is returned when there are no new bars to evaluate.
func (t *Trader) evaluate(ctx context.Context, market string, account shared.AccountState) (*engine.Decision, error) {
	bars, err := t.cfg.Fetcher.FetchBars(ctx, market, t.cfg.BarLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching bars: %w", err)
	}

	last := shared.Last(bars)
	if last == nil {
		t.logger.Debug().Msgf("no bars available for %s", market)
		return nil, nil
	}

	t.stateMtx.RLock()
	evaluated, ok := t.lastBars[market]
	t.stateMtx.RUnlock()
	if ok && !last.Date.After(evaluated) {
		t.logger.Debug().Msgf("no new %s bars since %s", market, evaluated.Format(time.RFC3339))
		return nil, nil
	}

	decision, err := t.engine.Evaluate(market, bars, t.book.Fetch(market), account)
	if err != nil {
		return nil, err
	}

	t.stateMtx.Lock()
	t.lastBars[market] = last.Date
	t.lastPrices[market] = last.Close
	t.stateMtx.Unlock()

	if e := t.logger.Trace(); e.Enabled() {
		e.Msgf("%s decision: %s", market, spew.Sdump(decision))
	}

	return &decision, nil
}

// execute places the order of the provided decision and records the resulting position.
func (t *Trader) execute(ctx context.Context, decision *engine.Decision) error {
	market := decision.Market

	switch decision.Action {
	case engine.Open:
		order := shared.NewOrder(market, shared.Buy, decision.Size, decision.Price, decision.CreatedOn)
		err := t.cfg.Broker.PlaceOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("placing %s order: %w", order.Side, err)
		}

	case engine.Close:
		order := shared.NewOrder(market, shared.Sell, decision.Size, decision.Price, decision.CreatedOn)
		err := t.cfg.Broker.PlaceOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("placing %s order: %w", order.Side, err)
		}
	}

	err := t.book.Apply(market, decision.Position)
	if err != nil {
		t.logger.Error().Msgf("unexpected position state for %s: %s", market, spew.Sdump(decision.Position))
		return fmt.Errorf("applying position: %w", err)
	}

	switch decision.Action {
	case engine.Open:
		msg := fmt.Sprintf("opened %s position: %.0f @ %.2f, stop loss %.2f, trailing stop %.2f",
			market, decision.Size, decision.Price, decision.StopLoss, decision.TrailingStop)
		t.logger.Info().Msg(msg)
		t.cfg.Notify(msg)

	case engine.Close:
		msg := fmt.Sprintf("closed %s position on %s: %.0f @ %.2f, pnl %.2f",
			market, decision.ExitReason, decision.Size, decision.Price, decision.RealizedPNL)
		t.logger.Info().Msg(msg)
		t.cfg.Notify(msg)
	}

	return nil
}

// scheduledTick runs a tick if the market is open. Once the market is found closed its
// status is only checked again after the closed tick interval.
func (t *Trader) scheduledTick(ctx context.Context) {
	now, err := t.cfg.Now()
	if err != nil {
		t.logger.Error().Err(err).Msg("fetching current time")
		return
	}

	if now.Before(t.resumeAt) {
		return
	}

	open, err := shared.IsMarketOpen(now)
	if err != nil {
		t.logger.Error().Err(err).Msg("checking market status")
		return
	}
	if !open {
		t.resumeAt = now.Add(t.cfg.ClosedTickInterval)
		t.logger.Info().Msgf("market closed at %s, checking again at %s", now.Format(time.RFC1123),
			t.resumeAt.Format(time.RFC1123))
		return
	}

	if advancer, ok := t.cfg.Fetcher.(Advancer); ok {
		if !advancer.Advance() {
			t.logger.Info().Msg("bar source exhausted, stopping")
			t.cfg.Cancel()
			return
		}
	}

	err = t.Tick(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("running tick")
	}
}

// backtest replays the bar source, ticking once per bar.
func (t *Trader) backtest(ctx context.Context) error {
	advancer := t.cfg.Fetcher.(Advancer)

	ticks := 0
	for advancer.Advance() {
		err := t.Tick(ctx)
		if err != nil {
			return fmt.Errorf("running backtest tick %d: %w", ticks, err)
		}
		ticks++
	}

	portfolio, err := t.Portfolio(ctx)
	if err != nil {
		return fmt.Errorf("fetching portfolio: %w", err)
	}

	t.logger.Info().Msgf("backtest of %v done after %d ticks, equity %.2f, p/l %.2f (%.2f%%)",
		t.cfg.Markets, ticks, portfolio.Equity, portfolio.ProfitLoss, portfolio.ProfitLossPercent)

	return nil
}

// Run handles the lifecycle processes of the trader service. Backtests replay the bar
// source to completion and cancel the service, otherwise a tick is scheduled every
// tick interval until the context is cancelled.
func (t *Trader) Run(ctx context.Context) {
	if t.cfg.Backtest {
		err := t.backtest(ctx)
		if err != nil {
			t.logger.Error().Err(err).Msg("backtesting")
		}

		t.cfg.Cancel()
		return
	}

	_, err := t.scheduler.Every(t.cfg.TickInterval).Do(t.scheduledTick, ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("scheduling ticks")
		t.cfg.Cancel()
		return
	}

	t.scheduler.StartAsync()
	<-ctx.Done()
	t.scheduler.Stop()
}
