package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/trend/service"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// defaultStartingCash is the default starting cash of the paper account.
	defaultStartingCash = 10000
	// defaultLogLevel is the default logging level.
	defaultLogLevel = "info"
)

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the traded markets, all markets in the data file are traded when empty.
	Markets []string
	// Backtest is the backtesting flag.
	Backtest bool
	// DataFilepath is the filepath to the historic bar data.
	DataFilepath string
	// StartingCash is the starting cash of the paper account.
	StartingCash float64
	// TickInterval is the interval between ticks outside of backtests.
	TickInterval time.Duration
	// ClosedTickInterval is the interval between market status checks while the market is closed.
	ClosedTickInterval time.Duration
	// BarLimit is the number of bars evaluated per market, it defaults to the engine warmup.
	BarLimit int
	// LogLevel is the logging level.
	LogLevel string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.DataFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("data filepath cannot be an empty string"))
	}
	if math.IsNaN(cfg.StartingCash) || math.IsInf(cfg.StartingCash, 0) || cfg.StartingCash <= 0 {
		errs = errors.Join(errs, fmt.Errorf("starting cash must be positive, got %f", cfg.StartingCash))
	}
	if !cfg.Backtest && cfg.TickInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("tick interval must be positive, got %s", cfg.TickInterval))
	}
	if cfg.ClosedTickInterval < 0 {
		errs = errors.Join(errs, fmt.Errorf("closed tick interval cannot be negative, got %s", cfg.ClosedTickInterval))
	}
	if cfg.BarLimit < 0 {
		errs = errors.Join(errs, fmt.Errorf("bar limit cannot be negative, got %d", cfg.BarLimit))
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		errs = errors.Join(errs, fmt.Errorf("invalid log level %q", cfg.LogLevel))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// Environment values take precedence over the current value as the flag default.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	if dur, ok := value.(*time.Duration); ok {
		def := *dur
		if defValue != "" {
			parsed, err := time.ParseDuration(defValue)
			if err != nil {
				return fmt.Errorf("%s: parsing duration: %w", name, err)
			}
			def = parsed
		}
		flag.DurationVar(dur, name, def, usage)
		return nil
	}

	switch val.Elem().Kind() {
	case reflect.String:
		def := *value.(*string)
		if defValue != "" {
			def = defValue
		}
		flag.StringVar(value.(*string), name, def, usage)
	case reflect.Bool:
		def := *value.(*bool)
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		def := *value.(*int)
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		def := *value.(*float64)
		if defValue != "" {
			parsed, err := strconv.ParseFloat(defValue, 64)
			if err != nil {
				return fmt.Errorf("%s: parsing float: %w", name, err)
			}
			def = parsed
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	cfg.StartingCash = defaultStartingCash
	cfg.TickInterval = service.DefaultTickInterval
	cfg.ClosedTickInterval = service.DefaultClosedTickInterval
	cfg.LogLevel = defaultLogLevel

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"markets", &cfg.Markets, "the traded markets"},
		{"backtest", &cfg.Backtest, "the backtest flag"},
		{"datafilepath", &cfg.DataFilepath, "the historic bar data filepath"},
		{"startingcash", &cfg.StartingCash, "the paper account starting cash"},
		{"tickinterval", &cfg.TickInterval, "the interval between ticks"},
		{"closedtickinterval", &cfg.ClosedTickInterval, "the interval between market status checks while closed"},
		{"barlimit", &cfg.BarLimit, "the number of bars evaluated per market"},
		{"loglevel", &cfg.LogLevel, "the logging level"},
	}
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
