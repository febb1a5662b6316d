package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tokenized/voting-contract/cmd/votingd/bootstrap"
	"github.com/tokenized/voting-contract/cmd/votingd/handlers"
	"github.com/tokenized/voting-contract/internal/contract"
	"github.com/tokenized/voting-contract/internal/events"
	"github.com/tokenized/voting-contract/internal/platform/config"
	"github.com/tokenized/voting-contract/internal/platform/logger"
	"github.com/tokenized/voting-contract/pkg/scheduler"
)

var (
	buildVersion = "unknown"
	buildDate    = "unknown"
	buildUser    = "unknown"
)

// Voting Contract Daemon
func main() {
	// -------------------------------------------------------------------------
	// Logging

	ctx := bootstrap.NewContextWithDevelopmentLogger()

	// -------------------------------------------------------------------------
	// Config

	cfg := bootstrap.NewConfigFromEnv(ctx)

	// -------------------------------------------------------------------------
	// App Starting

	logger.Info(ctx, "Started : Application Initializing")
	defer logger.Info(ctx, "Completed")

	logger.Info(ctx, "Build %v (%v on %v)", buildVersion, buildUser, buildDate)

	params := config.NewChainParams(cfg.Bitcoin.Network)
	admin, custody := bootstrap.NewContractAddresses(ctx, cfg, params)

	// -------------------------------------------------------------------------
	// Start Database / Storage

	logger.Info(ctx, "Started : Initialize Database")

	masterDB := bootstrap.NewMasterDB(ctx, cfg)
	defer masterDB.Close()

	// -------------------------------------------------------------------------
	// Ledger and Contract

	l, err := bootstrap.LoadLedger(ctx, masterDB, custody.EncodeAddress())
	if err != nil {
		logger.Fatal(ctx, "Load ledger : %s", err)
	}

	c, err := bootstrap.LoadContract(ctx, masterDB, contract.NewConfig(cfg), l,
		events.LogListener{}, admin, custody)
	if err != nil {
		logger.Fatal(ctx, "Load contract : %s", err)
	}

	logger.Info(ctx, "Running contract %s administered by %s", c.Address(), c.Administrator())

	// -------------------------------------------------------------------------
	// Scheduler

	var sch scheduler.Scheduler
	report := &settlementReport{contract: c, masterDB: masterDB}
	sch.ScheduleJob(ctx, scheduler.NewPeriodicProcess("settlement", report,
		cfg.API.SettlementCheck))

	schedulerErrors := make(chan error, 1)
	go func() {
		schedulerErrors <- sch.Run(ctx)
	}()

	// -------------------------------------------------------------------------
	// Start API Service

	api := http.Server{
		Addr: cfg.API.Address,
		Handler: handlers.API(&handlers.Config{
			Params:    params,
			DevRoutes: cfg.API.DevRoutes,
		}, c, l, masterDB),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for requests.
	go func() {
		logger.Info(ctx, "API Running on %s", cfg.API.Address)
		serverErrors <- api.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		logger.Error(ctx, "Error starting server: %s", err)

	case err := <-schedulerErrors:
		logger.Error(ctx, "Scheduler stopped: %v", err)

	case <-osSignals:
		logger.Info(ctx, "Start shutdown...")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.API.ShutdownTimeout)
	defer cancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Could not stop API server: %s", err)
	}

	sch.Stop(ctx)

	if err := bootstrap.Checkpoint(ctx, masterDB, c); err != nil {
		logger.Error(ctx, "Final checkpoint failed : %s", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown complete")
}
