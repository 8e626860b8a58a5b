package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/dnldd/trend/broker"
	"github.com/dnldd/trend/engine"
	"github.com/dnldd/trend/fetch"
	"github.com/dnldd/trend/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// logFills logs the fills of the paper account and the holdings left open.
func logFills(paper *broker.Paper, markets []string, logger zerolog.Logger) {
	fills := paper.Fills()
	logger.Info().Msgf("%d fills", len(fills))
	for _, fill := range fills {
		logger.Info().Msgf("%s %.0f %s @ %.2f on %s", fill.Side, fill.Size, fill.Market,
			fill.Price, fill.CreatedOn.Format(time.RFC1123))
	}

	for _, market := range markets {
		size := paper.Holding(market)
		if size > 0 {
			logger.Info().Msgf("still holding %.0f %s", size, market)
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		return
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	logger := log.With().Str("service", "trend").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	historicDataLogger := logger.With().Str("component", "historicdata").Logger()
	historicData, err := fetch.NewHistoricData(&fetch.HistoricDataConfig{
		FilePath: cfg.DataFilepath,
		Markets:  cfg.Markets,
		Logger:   &historicDataLogger,
	})
	if err != nil {
		log.Error().Msgf("creating historic data: %v", err)
		return
	}
	historicData.LogRange()

	paper, err := broker.NewPaper(&broker.PaperConfig{
		StartingCash: cfg.StartingCash,
		Logger:       &logger,
	})
	if err != nil {
		log.Error().Msgf("creating paper account: %v", err)
		return
	}

	notifyLogger := logger.With().Str("component", "notify").Logger()
	traderCfg := service.TraderConfig{
		Markets:            historicData.Markets(),
		Backtest:           cfg.Backtest,
		BarLimit:           cfg.BarLimit,
		TickInterval:       cfg.TickInterval,
		ClosedTickInterval: cfg.ClosedTickInterval,
		Fetcher:            historicData,
		Broker:             paper,
		Engine:             engine.DefaultEngineConfig(logger.With().Str("component", "engine").Logger()),
		Notify: func(message string) {
			notifyLogger.Info().Msg(message)
		},
		Cancel: cancel,
		Logger: &logger,
	}
	trader, err := service.NewTrader(&traderCfg)
	if err != nil {
		log.Error().Msgf("creating trader service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	trader.Run(ctx)

	logFills(paper, traderCfg.Markets, logger)
}
