package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "stampstats",
		Short:        "Postage stamp event ingestion and expiry analytics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest contract events into the store",
		RunE:  runIngest,
	}

	ingestCmd.Flags().String("rpc", "", "node RPC URL")
	ingestCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	ingestCmd.Flags().Uint64("from", 0, "start block (inclusive), 0 resumes after the last stored block")
	ingestCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	ingestCmd.Flags().Uint64("chunk-size", 10000, "blocks per RPC request")
	ingestCmd.Flags().Int("max-retries", 5, "fast retry attempts per rate-limited call")
	ingestCmd.Flags().Duration("initial-delay", 500*time.Millisecond, "first retry delay")
	ingestCmd.Flags().Float64("backoff-multiplier", 2, "retry delay growth factor")
	ingestCmd.Flags().Duration("extended-retry-wait", time.Minute, "wait before restarting exhausted retries")
	ingestCmd.Flags().String("metrics-addr", "", "prometheus listen address (empty disables)")
	ingestCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(ingestCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report batch TTL and expiry figures",
		RunE:  runStatus,
	}

	statusCmd.Flags().String("rpc", "", "node RPC URL")
	statusCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	statusCmd.Flags().Int("since-months", 0, "only include batches created in the last N months, 0 means all")
	statusCmd.Flags().Float64("block-time", 5, "seconds per block")
	statusCmd.Flags().Duration("balance-request-delay", 10*time.Millisecond, "delay between live balance calls")
	statusCmd.Flags().Float64("price-change-pct", 0, "assumed price change percentage for the scenario model")
	statusCmd.Flags().Float64("price-change-days", 0, "period in days over which the price change applies, 0 disables the scenario")
	statusCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(statusCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
