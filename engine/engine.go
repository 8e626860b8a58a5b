package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/trend/indicator"
	"github.com/dnldd/trend/position"
	"github.com/dnldd/trend/shared"
	"github.com/rs/zerolog"
)

const (
	// Default strategy parameters.
	DefaultRSIPeriod          = 14
	DefaultEMAPeriod          = 20
	DefaultTEMAPeriod         = 30
	DefaultADXPeriod          = 14
	DefaultATRPeriod          = 14
	DefaultRSIOverbought      = 70
	DefaultADXTrendStrength   = 20
	DefaultStopLossFactor     = 0.5
	DefaultTrailingStopFactor = 0.1

	// minPeriod is the smallest usable indicator period.
	minPeriod = 2
)

// EngineConfig represents the configuration of the decision engine.
type EngineConfig struct {
	// RSIPeriod is the relative strength index period.
	RSIPeriod int
	// EMAPeriod is the exponential moving average period.
	EMAPeriod int
	// TEMAPeriod is the triple exponential moving average period.
	TEMAPeriod int
	// ADXPeriod is the average directional index period.
	ADXPeriod int
	// ATRPeriod is the average true range period.
	ATRPeriod int
	// RSIOverbought is the rsi level at or above which entries are avoided.
	RSIOverbought float64
	// ADXTrendStrength is the adx level a trend must exceed for entries.
	ADXTrendStrength float64
	// StopLossFactor is multiplied with the entry price to get the hard stop.
	StopLossFactor float64
	// TrailingStopFactor is the fraction below the highest price since entry of the trailing stop.
	TrailingStopFactor float64
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// DefaultEngineConfig returns the engine configuration with the default strategy parameters.
func DefaultEngineConfig(logger zerolog.Logger) *EngineConfig {
	return &EngineConfig{
		RSIPeriod:          DefaultRSIPeriod,
		EMAPeriod:          DefaultEMAPeriod,
		TEMAPeriod:         DefaultTEMAPeriod,
		ADXPeriod:          DefaultADXPeriod,
		ATRPeriod:          DefaultATRPeriod,
		RSIOverbought:      DefaultRSIOverbought,
		ADXTrendStrength:   DefaultADXTrendStrength,
		StopLossFactor:     DefaultStopLossFactor,
		TrailingStopFactor: DefaultTrailingStopFactor,
		Logger:             logger,
	}
}

// Validate asserts the config sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	periods := []struct {
		name   string
		period int
	}{
		{"rsi", cfg.RSIPeriod},
		{"ema", cfg.EMAPeriod},
		{"tema", cfg.TEMAPeriod},
		{"adx", cfg.ADXPeriod},
		{"atr", cfg.ATRPeriod},
	}
	for _, p := range periods {
		if p.period < minPeriod {
			errs = errors.Join(errs, fmt.Errorf("%s period must be at least %d, got %d", p.name, minPeriod, p.period))
		}
	}

	if cfg.RSIOverbought <= 0 || cfg.RSIOverbought > 100 {
		errs = errors.Join(errs, fmt.Errorf("rsi overbought level must be within (0, 100], got %f", cfg.RSIOverbought))
	}
	if cfg.ADXTrendStrength < 0 || cfg.ADXTrendStrength >= 100 {
		errs = errors.Join(errs, fmt.Errorf("adx trend strength must be within [0, 100), got %f", cfg.ADXTrendStrength))
	}
	if cfg.StopLossFactor <= 0 || cfg.StopLossFactor >= 1 {
		errs = errors.Join(errs, fmt.Errorf("stop loss factor must be within (0, 1), got %f", cfg.StopLossFactor))
	}
	if cfg.TrailingStopFactor <= 0 || cfg.TrailingStopFactor >= 1 {
		errs = errors.Join(errs, fmt.Errorf("trailing stop factor must be within (0, 1), got %f", cfg.TrailingStopFactor))
	}

	return errs
}

// Periods returns the configured indicator periods.
func (cfg *EngineConfig) Periods() indicator.Periods {
	return indicator.Periods{
		EMA:  cfg.EMAPeriod,
		TEMA: cfg.TEMAPeriod,
		RSI:  cfg.RSIPeriod,
		ADX:  cfg.ADXPeriod,
		ATR:  cfg.ATRPeriod,
	}
}

// Engine evaluates bar windows into trading decisions. It holds no per-market state and
// is safe for concurrent use.
type Engine struct {
	cfg     *EngineConfig
	periods indicator.Periods
}

// NewEngine initializes a new decision engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	return &Engine{
		cfg:     cfg,
		periods: cfg.Periods(),
	}, nil
}

// WindowSize returns the minimum number of bars required to evaluate a market.
func (e *Engine) WindowSize() int {
	return e.periods.Required()
}

// WarmupSize returns the number of bars needed for fully warmed up indicators.
func (e *Engine) WarmupSize() int {
	return e.periods.Warmup()
}

// isEntry checks whether the provided indicators satisfy the entry conditions.
func (e *Engine) isEntry(set *indicator.Set) bool {
	return set.EMA > set.TEMA &&
		set.RSI < e.cfg.RSIOverbought &&
		set.ADX > e.cfg.ADXTrendStrength
}

// Evaluate decides whether to open, hold or close a position in the provided market given
// the bar window, the current position and the account snapshot. The inputs are not
// modified; the resulting position state is returned with the decision.
func (e *Engine) Evaluate(market string, bars []shared.Bar, pos position.Position, account shared.AccountState) (Decision, error) {
	if err := shared.ValidateBars(bars); err != nil {
		return Decision{}, err
	}
	if err := account.Validate(); err != nil {
		return Decision{}, err
	}
	if pos.Open && pos.Market != market {
		return Decision{}, fmt.Errorf("%w: position for %s provided for %s", shared.ErrInvalidInput,
			pos.Market, market)
	}

	last := shared.Last(bars)
	decision := Decision{
		Market:    market,
		Action:    Hold,
		Price:     last.Close,
		Position:  pos,
		CreatedOn: last.Date,
	}

	set, err := indicator.Compute(bars, e.periods)
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientData) {
			e.cfg.Logger.Debug().Msgf("holding %s: %v", market, err)
			return decision, nil
		}

		return Decision{}, fmt.Errorf("computing indicators for %s: %w", market, err)
	}

	decision.Indicators = set

	if !pos.Open {
		return e.evaluateEntry(decision, account), nil
	}

	return e.evaluateExit(decision), nil
}

// evaluateEntry processes a flat market for entry conditions.
func (e *Engine) evaluateEntry(decision Decision, account shared.AccountState) Decision {
	if !e.isEntry(decision.Indicators) {
		return decision
	}

	size := math.Floor(account.AvailableCash / decision.Price)
	if size == 0 {
		e.cfg.Logger.Debug().Msgf("entry conditions met for %s but %.2f cash cannot afford a unit @ %.2f",
			decision.Market, account.AvailableCash, decision.Price)
		return decision
	}

	stopLoss := decision.Price * e.cfg.StopLossFactor
	pos, err := position.NewPosition(decision.Market, decision.Price, size, stopLoss, decision.CreatedOn)
	if err != nil {
		e.cfg.Logger.Error().Msgf("creating position for %s: %v", decision.Market, err)
		return decision
	}

	decision.Action = Open
	decision.Size = size
	decision.StopLoss = stopLoss
	decision.TrailingStop = pos.TrailingStop(e.cfg.TrailingStopFactor)
	decision.Position = *pos

	return decision
}

// evaluateExit processes an open position for exit conditions.
func (e *Engine) evaluateExit(decision Decision) Decision {
	pos := decision.Position
	pos.Track(decision.Price)

	decision.StopLoss = pos.StopLoss
	decision.Size = pos.Size
	decision.TrailingStop = pos.TrailingStop(e.cfg.TrailingStopFactor)

	switch {
	case decision.Price < pos.StopLoss:
		// Hard stop first.
		decision.ExitReason = StopLossExit
	case decision.Price < decision.TrailingStop:
		decision.ExitReason = TrailingStopExit
	default:
		decision.Position = pos
		return decision
	}

	decision.Action = Close
	decision.RealizedPNL = pos.PNL(decision.Price)
	decision.Position = position.Position{}

	return decision
}
