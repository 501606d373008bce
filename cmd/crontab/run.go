package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/executor"
	"github.com/t77yq/crontab/internal/handler"
	"github.com/t77yq/crontab/internal/monitor"
	"github.com/t77yq/crontab/internal/scheduler"
	"github.com/t77yq/crontab/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the poll loop",
	Long: `Start the poll loop. The process exits when the memory limit is
reached, when a restart is requested or on SIGINT/SIGTERM; run it under a
supervisor that starts it again.`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().Int("sleep", 0, "idle seconds when nothing is due")
	runCmd.Flags().Float64("memory", 0, "resident memory limit in MB")
	runCmd.Flags().Int("backoff", 0, "seconds to pause after a failure")
	runCmd.Flags().String("nats-url", "", "NATS server URL for error reports and run results")
	runCmd.Flags().String("marker", "", "restart marker backend (sqlite, nats, memory)")
}

func runLoop(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	cfg := a.cfg

	history, err := storage.NewSQLiteRunHistory(logger, a.db, cfg.Crontab.Table)
	if err != nil {
		return err
	}

	registry := executor.NewRegistry()
	err = handler.Register(registry, cfg.Crontab.Namespace, handler.Deps{
		Logger:  logger,
		DB:      a.db,
		History: history,
	})
	if err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	logger.Info("Registered handlers", zap.Strings("handlers", registry.Names()))

	dispatcher := executor.NewDispatcher(registry, cfg.Crontab.Namespace, logger)

	marker, err := a.marker()
	if err != nil {
		return err
	}
	memory, err := monitor.NewProcessMemory()
	if err != nil {
		return err
	}
	guard := monitor.NewRestartMonitor(marker, memory, monitor.RestartConfig{
		MemoryLimitMB: cfg.Crontab.Memory,
		MarkerMaxAge:  cfg.Crontab.RestartTTL,
	}, logger)

	loopConfig := scheduler.LoopConfig{
		Sleep:   cfg.Crontab.SleepDuration(),
		Backoff: cfg.Crontab.BackoffDuration(),
		History: history,
	}
	if a.js != nil {
		loopConfig.Reporter = monitor.NewNATSReporter(a.js, cfg.NATS.ErrorSubject, logger)
		loopConfig.Publisher = scheduler.NewNATSRunPublisher(a.js, cfg.NATS.ResultSubject, logger)
	}

	loop := scheduler.NewLoop(a.store, dispatcher, guard, loopConfig, logger)
	reason, err := loop.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("crontab exited", zap.Stringer("reason", reason))
	return nil
}
