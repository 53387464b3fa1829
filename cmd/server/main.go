package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livefolio/internal/clients/yahoo"
	"livefolio/internal/config"
	"livefolio/internal/database"
	"livefolio/internal/database/repositories"
	"livefolio/internal/modules/benchmarks"
	"livefolio/internal/modules/marketdata"
	"livefolio/internal/modules/options"
	"livefolio/internal/modules/schema"
	"livefolio/internal/modules/sectors"
	"livefolio/internal/modules/snapshot"
	"livefolio/internal/modules/valuation"
	"livefolio/internal/scheduler"
	"livefolio/internal/server"
	"livefolio/pkg/logger"
)

// lastKnownMaxAge is how long stale quotes are kept before pruning
const lastKnownMaxAge = 30 * 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting livefolio")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	quoteRepo := repositories.NewQuoteRepository(db.Conn(), log)

	// Market data
	yahooClient := yahoo.NewClient(log)

	clock, err := marketdata.NewSessionClock()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exchange timezone")
	}

	market := marketdata.NewService(marketdata.ServiceConfig{
		Provider:       marketdata.NewYahooProvider(yahooClient),
		Clock:          clock,
		Store:          quoteRepo,
		IncludePrePost: cfg.IncludePrePost,
		Log:            log,
	})

	// CSV sources and compute services
	sources := schema.NewSources(cfg.EquitiesCSVURL, cfg.OptionsCSVURL, cfg.SectorsCSVURL, log)

	cycle := scheduler.NewRefreshCycle(scheduler.RefreshCycleConfig{
		Log:              log,
		Sources:          sources,
		Market:           market,
		Valuation:        valuation.NewService(log),
		Options:          options.NewService(log),
		Sectors:          sectors.NewService(log),
		Benchmarks:       benchmarks.NewService(yahooClient, log),
		Futures:          cfg.Futures,
		BenchmarkSymbols: cfg.Benchmarks,
		Timezone:         cfg.Timezone,
	})

	// Refresh loop publishing into the shared state cell
	state := snapshot.NewStateManager(log)
	runner := scheduler.NewRunner(cycle, state, cfg.RefreshSeconds, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)

	// Background maintenance
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := sched.AddJob("@daily", scheduler.NewQuotePruneJob(quoteRepo, lastKnownMaxAge, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		State:   state,
		Runner:  runner,
		Sources: sources,
		Clock:   clock,
		App:     cfg,
		DevMode: cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
