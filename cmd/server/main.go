package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/kis-autotrader/internal/broker"
	"github.com/aristath/kis-autotrader/internal/config"
	"github.com/aristath/kis-autotrader/internal/database"
	"github.com/aristath/kis-autotrader/internal/domain"
	"github.com/aristath/kis-autotrader/internal/executor"
	"github.com/aristath/kis-autotrader/internal/holdings"
	"github.com/aristath/kis-autotrader/internal/housekeeping"
	"github.com/aristath/kis-autotrader/internal/orchestrator"
	"github.com/aristath/kis-autotrader/internal/persistence"
	"github.com/aristath/kis-autotrader/internal/risk"
	"github.com/aristath/kis-autotrader/internal/scheduler"
	"github.com/aristath/kis-autotrader/internal/screener"
	"github.com/aristath/kis-autotrader/internal/sentiment"
	"github.com/aristath/kis-autotrader/internal/server"
	tradesignal "github.com/aristath/kis-autotrader/internal/signal"
	"github.com/aristath/kis-autotrader/internal/universe"
	"github.com/aristath/kis-autotrader/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("starting trading-cycle engine")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	historyStore := persistence.NewHistoryStore(db, log)

	brokerClient, err := broker.New(broker.Config{
		AppKey:    cfg.BrokerAppKey,
		AppSecret: cfg.BrokerAppSecret,
		AccountNo: cfg.BrokerAccountNo,
		Mock:      cfg.BrokerMock,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize broker client")
	}

	var newsProvider sentiment.NewsProvider
	var newsAnalyzer sentiment.NewsAnalyzer
	if cfg.LLMAPIKey != "" {
		log.Warn().Msg("LLM_API_KEY set but no RSS/news collector is wired in this deployment; sentiment runs numeric-only")
	}
	fuser := sentiment.New(log, newsProvider, newsAnalyzer)

	uni := universe.New()
	scr := screener.New(brokerClient, log)
	rsiProvider := tradesignal.NewRSIProvider()
	engine := tradesignal.New(rsiProvider)
	gate := risk.New()
	exec := executor.New(brokerClient, log)
	holdingsScanner := holdings.New(scr, engine)

	trader := orchestrator.New(brokerClient, fuser, scr, engine, gate, exec, holdingsScanner, uni, log)

	configStore := server.NewConfigStore(domain.AutoTraderConfig{
		UniverseName:   "kospi_top30",
		RiskLimits:     domain.DefaultRiskLimits(),
		DryRun:         true,
		MaxNotionalKRW: 5_000_000,
	})

	sched := scheduler.New(trader, configStore.Get, historyStore, log)
	defer sched.Stop()

	housekeepingRunner := housekeeping.New(log)
	if err := housekeepingRunner.AddJob("0 0 9 * * MON-FRI", housekeeping.NewSentimentCacheGCJob(fuser)); err != nil {
		log.Fatal().Err(err).Msg("failed to register housekeeping job")
	}
	housekeepingRunner.Start()
	defer housekeepingRunner.Stop()

	if cfg.SchedulerIntervalMinutes > 0 {
		interval := time.Duration(cfg.SchedulerIntervalMinutes) * time.Minute
		if err := sched.Start(interval, cfg.SchedulerKROnly, cfg.SchedulerUSEnabled); err != nil {
			log.Error().Err(err).Msg("failed to start scheduler at boot")
		}
	}

	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		Trader:      trader,
		Scheduler:   sched,
		ConfigStore: configStore,
		DevMode:     cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}
