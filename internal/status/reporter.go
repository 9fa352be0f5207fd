package status

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/significance/beeport-stamp-stats-sub000/internal/metrics"
	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
	"github.com/significance/beeport-stamp-stats-sub000/internal/pricing"
	"github.com/significance/beeport-stamp-stats-sub000/internal/retry"
	"github.com/significance/beeport-stamp-stats-sub000/internal/stamp"
	"github.com/significance/beeport-stamp-stats-sub000/internal/store"
)

// ChainClient is the node surface the read path needs: the latest head for
// cache freshness checks plus read-only contract calls.
type ChainClient interface {
	stamp.Caller
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// PriceScenario describes an assumed exponential price change: a
// percentage change observed over a period of days, projected forward.
type PriceScenario struct {
	PercentChange float64
	PeriodDays    float64
}

// BatchStatus is one batch's expiry figures for the presentation layer.
type BatchStatus struct {
	BatchID          string    `json:"batch_id"`
	Owner            string    `json:"owner"`
	Depth            uint8     `json:"depth"`
	BucketDepth      uint8     `json:"bucket_depth"`
	Immutable        bool      `json:"immutable"`
	RemainingBalance string    `json:"remaining_balance"`
	BalanceFromCache bool      `json:"balance_from_cache"`
	TTLBlocks        uint64    `json:"ttl_blocks"`
	TTLDays          float64   `json:"ttl_days"`
	ExpiryBlock      uint64    `json:"expiry_block"`
	ExpiryTime       time.Time `json:"expiry_time"`
}

// Config holds runtime settings for one report run.
type Config struct {
	SinceMonths     int
	SecondsPerBlock float64
	// RequestDelay spaces the per-batch live calls to stay under
	// provider rate limits.
	RequestDelay time.Duration
	Scenario     *PriceScenario
}

// Reporter derives TTL and expiry figures for cached batches, refreshing
// balances through the balance cache and live contract calls.
type Reporter struct {
	cfg      Config
	chain    ChainClient
	store    store.Store
	registry *stamp.Registry
	exec     *retry.Executor
	logger   *zap.Logger
	sleep    retry.SleepFunc
}

// NewReporter builds a Reporter with its dependencies.
func NewReporter(cfg Config, chainClient ChainClient, st store.Store, registry *stamp.Registry, exec *retry.Executor, logger *zap.Logger) *Reporter {
	if cfg.SecondsPerBlock <= 0 {
		cfg.SecondsPerBlock = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		cfg:      cfg,
		chain:    chainClient,
		store:    st,
		registry: registry,
		exec:     exec,
		logger:   logger,
		sleep:    defaultSleep,
	}
}

// WithSleep replaces the inter-request delay implementation. For tests.
func (r *Reporter) WithSleep(sleep retry.SleepFunc) *Reporter {
	r.sleep = sleep
	return r
}

// Report computes expiry figures for every cached batch, oldest first.
// Batches are processed sequentially; each batch's cache read and write
// stay paired so no torn entries are observable.
func (r *Reporter) Report(ctx context.Context) ([]BatchStatus, error) {
	priceSource, ok := r.registry.PriceSource()
	if !ok {
		return nil, fmt.Errorf("no configured contract supports price queries")
	}
	balanceSource, ok := r.registry.BalanceSource()
	if !ok {
		return nil, fmt.Errorf("no configured contract supports balance queries")
	}

	var currentBlock uint64
	err := r.exec.Do(ctx, "latest block", func(ctx context.Context) error {
		var inner error
		currentBlock, inner = r.chain.LatestBlockNumber(ctx)
		return inner
	})
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	// The price is fetched once per run, not per batch.
	var price *big.Int
	err = r.exec.Do(ctx, "last price", func(ctx context.Context) error {
		var inner error
		price, inner = priceSource.LastPrice(ctx, r.chain)
		return inner
	})
	if err != nil {
		return nil, fmt.Errorf("get current price: %w", err)
	}
	if price == nil || price.Sign() == 0 {
		return nil, fmt.Errorf("contract reported a zero price")
	}

	batches, err := r.store.Batches(ctx, r.cfg.SinceMonths)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	now := time.Now().UTC()
	statuses := make([]BatchStatus, 0, len(batches))
	for i, batch := range batches {
		if i > 0 && r.cfg.RequestDelay > 0 {
			if err := r.sleep(ctx, r.cfg.RequestDelay); err != nil {
				return nil, err
			}
		}

		balance, fromCache, err := r.resolveBalance(ctx, balanceSource, batch.BatchID, currentBlock)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", batch.BatchID, err)
		}

		status, err := r.buildStatus(batch, balance, fromCache, price, currentBlock, now)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// resolveBalance serves a fresh cache entry or performs a live contract
// call and overwrites the cache.
func (r *Reporter) resolveBalance(ctx context.Context, source stamp.Decoder, batchID string, currentBlock uint64) (string, bool, error) {
	cached, ok, err := r.store.GetBalance(ctx, batchID, currentBlock)
	if err != nil {
		return "", false, err
	}
	if ok {
		metrics.BalanceCacheHits.Inc()
		return cached, true, nil
	}
	metrics.BalanceCacheMisses.Inc()

	var live *big.Int
	err = r.exec.Do(ctx, "remaining balance", func(ctx context.Context) error {
		var inner error
		live, inner = source.RemainingBalance(ctx, r.chain, common.HexToHash(batchID))
		return inner
	})
	if err != nil {
		return "", false, err
	}

	balance := live.String()
	if err := r.store.CacheBalance(ctx, batchID, balance, currentBlock); err != nil {
		return "", false, err
	}
	return balance, false, nil
}

func (r *Reporter) buildStatus(batch model.BatchRecord, balance string, fromCache bool, price *big.Int, currentBlock uint64, now time.Time) (BatchStatus, error) {
	ttlBlocks, err := pricing.TTLBlocks(balance, batch.Depth, price)
	if err != nil {
		return BatchStatus{}, fmt.Errorf("ttl for %s: %w", batch.BatchID, err)
	}

	if r.cfg.Scenario != nil {
		// One refinement pass: the horizon at today's price picks the
		// average effective price, which re-prices the TTL.
		horizonDays := pricing.BlocksToDays(ttlBlocks, r.cfg.SecondsPerBlock)
		currentPrice, _ := new(big.Float).SetInt(price).Float64()
		average, err := pricing.AveragePrice(r.cfg.Scenario.PercentChange, r.cfg.Scenario.PeriodDays, currentPrice, horizonDays)
		if err != nil {
			return BatchStatus{}, fmt.Errorf("average price for %s: %w", batch.BatchID, err)
		}
		averagePrice := big.NewInt(int64(math.Round(average)))
		ttlBlocks, err = pricing.TTLBlocks(balance, batch.Depth, averagePrice)
		if err != nil {
			return BatchStatus{}, fmt.Errorf("scenario ttl for %s: %w", batch.BatchID, err)
		}
	}

	ttlDays := pricing.BlocksToDays(ttlBlocks, r.cfg.SecondsPerBlock)
	return BatchStatus{
		BatchID:          batch.BatchID,
		Owner:            batch.Owner,
		Depth:            batch.Depth,
		BucketDepth:      batch.BucketDepth,
		Immutable:        batch.Immutable,
		RemainingBalance: balance,
		BalanceFromCache: fromCache,
		TTLBlocks:        ttlBlocks,
		TTLDays:          ttlDays,
		ExpiryBlock:      currentBlock + ttlBlocks,
		ExpiryTime:       now.Add(time.Duration(ttlDays * 24 * float64(time.Hour))),
	}, nil
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
