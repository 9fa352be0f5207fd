package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/significance/beeport-stamp-stats-sub000/internal/chain"
	"github.com/significance/beeport-stamp-stats-sub000/internal/config"
	"github.com/significance/beeport-stamp-stats-sub000/internal/retry"
	"github.com/significance/beeport-stamp-stats-sub000/internal/stamp"
	"github.com/significance/beeport-stamp-stats-sub000/internal/status"
	"github.com/significance/beeport-stamp-stats-sub000/internal/store/postgres"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sinceMonths, _ := cmd.Flags().GetInt("since-months")
	changePct, _ := cmd.Flags().GetFloat64("price-change-pct")
	changeDays, _ := cmd.Flags().GetFloat64("price-change-days")

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, err := stamp.NewRegistry(contractConfigs(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	st, err := postgres.NewStore(ctx, cfg.PostgresDSN, cfg.FreshnessWindow)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close()

	exec := retry.New(retry.Config{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      cfg.InitialDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
		ExtendedWait:      cfg.ExtendedRetryWait,
	}, logger)

	reportCfg := status.Config{
		SinceMonths:     sinceMonths,
		SecondsPerBlock: cfg.BlockTimeSeconds,
		RequestDelay:    cfg.BalanceRequestDelay,
	}
	if changeDays > 0 {
		reportCfg.Scenario = &status.PriceScenario{
			PercentChange: changePct,
			PeriodDays:    changeDays,
		}
	}

	reporter := status.NewReporter(reportCfg, chainClient, st, registry, exec, logger)

	statuses, err := reporter.Report(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, s := range statuses {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("write status: %w", err)
		}
	}

	logger.Info("status complete", zap.Int("batches", len(statuses)))
	return nil
}
