package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"presupuesto/internal/cli"
	"presupuesto/internal/core"
	"presupuesto/internal/services"
)

// rollover-worker rolls in-progress installments from the previous
// month into the current one. A sweep is not idempotent when candidates
// exist, so each month transition is performed at most once per process:
// the ticker only fires a sweep when the calendar month has changed
// since the last one.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting rollover-worker", "interval", cfg.RolloverInterval, "db", cfg.SQLiteDBPath)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	events := cli.InitEvents(logger, cfg)
	defer events.Close()

	// No summary cache lives in this process; API instances bound their
	// staleness with the cache TTL.
	duplicator := services.NewDuplicationService(repo, events, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var lastSwept core.Period

	sweep := func(now time.Time) {
		source := previousMonth(now)
		if source == lastSwept {
			return
		}
		result, err := duplicator.Duplicate(ctx, source.Month, source.Year)
		if err != nil {
			logger.Error("Rollover sweep failed", "error", err, "source", source.String())
			return
		}
		lastSwept = source
		logger.Info("Rollover sweep complete",
			"source", result.Source.String(),
			"target", result.Target.String(),
			"duplicated", result.Count())
	}

	// Catch up on startup, then follow the ticker.
	sweep(time.Now())

	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, stopping rollover-worker")
			return
		case now := <-ticker.C:
			sweep(now)
		}
	}
}

func previousMonth(now time.Time) core.Period {
	if now.Month() == time.January {
		return core.NewPeriod(12, now.Year()-1)
	}
	return core.NewPeriod(int(now.Month())-1, now.Year())
}
