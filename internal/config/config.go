package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Contract describes one contract deployment to ingest.
type Contract struct {
	Name            string `mapstructure:"name"`
	Type            string `mapstructure:"type"`
	Address         string `mapstructure:"address"`
	DeploymentBlock uint64 `mapstructure:"deployment_block"`
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL      string
	PostgresDSN string

	FromBlock uint64
	ToBlock   uint64
	ChunkSize uint64

	BlockTimeSeconds float64
	FreshnessWindow  uint64

	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	ExtendedRetryWait time.Duration

	BalanceRequestDelay time.Duration

	MetricsAddr string
	LogLevel    string

	Contracts []Contract
}

// Load merges config file, environment variables, and flags into Config.
// The contract list comes from the config file only.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STAMPSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chunk-size", uint64(10000))
	v.SetDefault("block-time", 5.0)
	v.SetDefault("freshness-window", uint64(100))
	v.SetDefault("max-retries", 5)
	v.SetDefault("initial-delay", 500*time.Millisecond)
	v.SetDefault("backoff-multiplier", 2.0)
	v.SetDefault("extended-retry-wait", time.Minute)
	v.SetDefault("balance-request-delay", 10*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var contracts []Contract
	if err := v.UnmarshalKey("contracts", &contracts); err != nil {
		return Config{}, fmt.Errorf("parse contracts: %w", err)
	}

	cfg := Config{
		RPCURL:              v.GetString("rpc"),
		PostgresDSN:         v.GetString("pg-dsn"),
		FromBlock:           v.GetUint64("from"),
		ToBlock:             v.GetUint64("to"),
		ChunkSize:           v.GetUint64("chunk-size"),
		BlockTimeSeconds:    v.GetFloat64("block-time"),
		FreshnessWindow:     v.GetUint64("freshness-window"),
		MaxRetries:          v.GetInt("max-retries"),
		InitialDelay:        v.GetDuration("initial-delay"),
		BackoffMultiplier:   v.GetFloat64("backoff-multiplier"),
		ExtendedRetryWait:   v.GetDuration("extended-retry-wait"),
		BalanceRequestDelay: v.GetDuration("balance-request-delay"),
		MetricsAddr:         v.GetString("metrics-addr"),
		LogLevel:            v.GetString("log-level"),
		Contracts:           contracts,
	}

	return cfg, nil
}

// Validate rejects configurations that cannot start an ingestion run.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk size must be greater than zero")
	}
	if c.BlockTimeSeconds <= 0 {
		return fmt.Errorf("block time must be positive")
	}
	if len(c.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured")
	}
	return nil
}
