package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/significance/beeport-stamp-stats-sub000/internal/chain"
	"github.com/significance/beeport-stamp-stats-sub000/internal/config"
	"github.com/significance/beeport-stamp-stats-sub000/internal/ingest"
	"github.com/significance/beeport-stamp-stats-sub000/internal/retry"
	"github.com/significance/beeport-stamp-stats-sub000/internal/stamp"
	"github.com/significance/beeport-stamp-stats-sub000/internal/store/postgres"
)

func runIngest(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

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

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	exec := retry.New(retry.Config{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      cfg.InitialDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
		ExtendedWait:      cfg.ExtendedRetryWait,
	}, logger)

	ingestor := ingest.NewIngestor(ingest.Config{
		FromBlock: cfg.FromBlock,
		ToBlock:   cfg.ToBlock,
		ChunkSize: cfg.ChunkSize,
	}, chainClient, st, registry, exec, logger)

	logger.Info("ingest start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("chunk_size", cfg.ChunkSize),
		zap.Int("contracts", len(cfg.Contracts)),
	)

	count, err := ingestor.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("ingest complete", zap.Int("events", count))
	return nil
}

func contractConfigs(cfg config.Config) []stamp.ContractConfig {
	contracts := make([]stamp.ContractConfig, 0, len(cfg.Contracts))
	for _, contract := range cfg.Contracts {
		contracts = append(contracts, stamp.ContractConfig{
			Name:            contract.Name,
			Type:            contract.Type,
			Address:         contract.Address,
			DeploymentBlock: contract.DeploymentBlock,
		})
	}
	return contracts
}
