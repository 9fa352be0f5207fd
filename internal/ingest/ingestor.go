package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/significance/beeport-stamp-stats-sub000/internal/metrics"
	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
	"github.com/significance/beeport-stamp-stats-sub000/internal/retry"
	"github.com/significance/beeport-stamp-stats-sub000/internal/stamp"
	"github.com/significance/beeport-stamp-stats-sub000/internal/store"
)

// ChainClient is the node surface the ingestor reads from.
type ChainClient interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, address common.Address, fromBlock, toBlock uint64) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Config holds runtime settings for one ingestion run.
type Config struct {
	// FromBlock 0 selects incremental mode: resume after the last stored
	// event, or from the contract's deployment block on an empty store.
	FromBlock uint64
	// ToBlock 0 means the node's head, resolved once at the start of the
	// run so the range stays stable.
	ToBlock   uint64
	ChunkSize uint64
}

// Ingestor streams contract logs chunk by chunk into the store. Chunks are
// processed strictly in ascending order; a completion marker is written
// only after a chunk's events are committed, so an interrupted run resumes
// at the last marked chunk without loss or duplication.
type Ingestor struct {
	cfg      Config
	chain    ChainClient
	store    store.Store
	registry *stamp.Registry
	exec     *retry.Executor
	logger   *zap.Logger
}

// NewIngestor builds an Ingestor with its dependencies.
func NewIngestor(cfg Config, chainClient ChainClient, st store.Store, registry *stamp.Registry, exec *retry.Executor, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		cfg:      cfg,
		chain:    chainClient,
		store:    st,
		registry: registry,
		exec:     exec,
		logger:   logger,
	}
}

// Run ingests the configured range for every contract and returns the
// number of events persisted.
func (ing *Ingestor) Run(ctx context.Context) (int, error) {
	if ing.chain == nil {
		return 0, fmt.Errorf("chain client is nil")
	}
	if ing.store == nil {
		return 0, fmt.Errorf("store is nil")
	}
	if ing.cfg.ChunkSize == 0 {
		return 0, fmt.Errorf("chunk size must be greater than zero")
	}

	to := ing.cfg.ToBlock
	if to == 0 {
		var err error
		err = ing.exec.Do(ctx, "latest block", func(ctx context.Context) error {
			var inner error
			to, inner = ing.chain.LatestBlockNumber(ctx)
			return inner
		})
		if err != nil {
			return 0, fmt.Errorf("get latest block: %w", err)
		}
	}

	total := 0
	for _, decoder := range ing.registry.Decoders() {
		count, err := ing.runContract(ctx, decoder, to)
		total += count
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (ing *Ingestor) runContract(ctx context.Context, decoder stamp.Decoder, to uint64) (int, error) {
	from := ing.cfg.FromBlock
	if from == 0 {
		last, ok, err := ing.store.LastBlock(ctx, decoder.Name())
		if err != nil {
			return 0, fmt.Errorf("resolve cursor: %w", err)
		}
		if ok {
			from = last + 1
		} else {
			from = decoder.DeploymentBlock()
		}
	}

	if from > to {
		ing.logger.Info("nothing to sync",
			zap.String("contract", decoder.Name()),
			zap.Uint64("from", from),
			zap.Uint64("to", to))
		return 0, nil
	}

	ranges, err := SplitRange(from, to, ing.cfg.ChunkSize)
	if err != nil {
		return 0, err
	}

	address := decoder.Address()
	count := 0
	for _, chunk := range ranges {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}

		chunkHash := model.ChunkHash(address.Hex(), chunk.From, chunk.To)
		cached, err := ing.store.ChunkCached(ctx, chunkHash)
		if err != nil {
			return count, fmt.Errorf("chunk cache lookup: %w", err)
		}
		if cached {
			metrics.ChunksSkipped.WithLabelValues(decoder.Name()).Inc()
			ing.logger.Debug("chunk already ingested",
				zap.String("contract", decoder.Name()),
				zap.Uint64("from", chunk.From),
				zap.Uint64("to", chunk.To))
			continue
		}

		logs, err := ing.filterLogsWithRetry(ctx, address, chunk.From, chunk.To)
		if err != nil {
			return count, fmt.Errorf("filter logs %d-%d: %w", chunk.From, chunk.To, err)
		}

		// Node order is block then log index ascending; trusted, not
		// re-sorted. Batch record derivation depends on it.
		events := make([]model.Event, 0, len(logs))
		for _, log := range logs {
			ts, err := ing.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return count, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			event, err := decoder.Decode(log, ts)
			if err != nil {
				return count, fmt.Errorf("decode log %s:%d: %w", log.TxHash.Hex(), log.Index, err)
			}
			if event == nil {
				continue
			}
			events = append(events, *event)
		}

		records, err := ing.deriveBatchRecords(ctx, events)
		if err != nil {
			return count, err
		}

		// Persist events first, marker last: a crash in between only
		// causes a safe replay absorbed by the idempotent upserts.
		if err := ing.store.UpsertEvents(ctx, events); err != nil {
			return count, fmt.Errorf("store events: %w", err)
		}
		if err := ing.store.UpsertBatches(ctx, records); err != nil {
			return count, fmt.Errorf("store batches: %w", err)
		}
		if err := ing.store.MarkChunkCached(ctx, model.ChunkMarker{
			ChunkHash:       chunkHash,
			ContractAddress: address.Hex(),
			FromBlock:       chunk.From,
			ToBlock:         chunk.To,
			ProcessedAt:     time.Now().UTC(),
			EventCount:      len(events),
		}); err != nil {
			return count, fmt.Errorf("mark chunk: %w", err)
		}

		count += len(events)
		metrics.ChunksProcessed.WithLabelValues(decoder.Name()).Inc()
		metrics.EventsIngested.WithLabelValues(decoder.Name()).Add(float64(len(events)))
		metrics.LastIngestedBlock.WithLabelValues(decoder.Name()).Set(float64(chunk.To))

		ing.logger.Info("chunk complete",
			zap.String("contract", decoder.Name()),
			zap.Uint64("from", chunk.From),
			zap.Uint64("to", chunk.To),
			zap.Int("events", len(events)))
	}

	return count, nil
}

func (ing *Ingestor) filterLogsWithRetry(ctx context.Context, address common.Address, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := ing.exec.Do(ctx, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = ing.chain.FilterLogs(ctx, address, fromBlock, toBlock)
		if err != nil {
			ing.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (ing *Ingestor) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := ing.exec.Do(ctx, "block timestamp", func(ctx context.Context) error {
		var err error
		ts, err = ing.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			ing.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}
