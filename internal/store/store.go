package store

import (
	"context"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

// DefaultFreshnessWindow is the maximum block age of a cached balance,
// roughly one staleness budget at the chain's block time.
const DefaultFreshnessWindow uint64 = 100

// Store is durable, idempotent persistence for events, derived batch
// records, chunk completion markers, and the freshness-bounded balance
// cache. Every write is a single-row idempotent upsert, so callers never
// need cross-statement transactions.
type Store interface {
	// UpsertEvents replaces on conflict of the (tx_hash, log_index)
	// identity key; safe with batches that partially overlap stored rows.
	UpsertEvents(ctx context.Context, events []model.Event) error
	// UpsertBatches replaces on conflict of batch_id.
	UpsertBatches(ctx context.Context, batches []model.BatchRecord) error
	GetBatch(ctx context.Context, batchID string) (model.BatchRecord, bool, error)

	// LastBlock returns the maximum stored event block number for one
	// contract source, if any. Incremental ingestion resumes from the
	// block after it, per contract.
	LastBlock(ctx context.Context, contractSource string) (uint64, bool, error)

	ChunkCached(ctx context.Context, chunkHash string) (bool, error)
	MarkChunkCached(ctx context.Context, marker model.ChunkMarker) error

	// GetBalance returns a cached balance only while it is fresh:
	// currentBlock - fetched_block < the freshness window. Stale entries
	// are ignored, not deleted.
	GetBalance(ctx context.Context, batchID string, currentBlock uint64) (string, bool, error)
	CacheBalance(ctx context.Context, batchID, balance string, currentBlock uint64) error

	// Events and Batches return rows ordered by (block_number, log_index)
	// and creation block timestamp respectively. sinceMonths <= 0 means
	// no time filter.
	Events(ctx context.Context, sinceMonths int) ([]model.Event, error)
	Batches(ctx context.Context, sinceMonths int) ([]model.BatchRecord, error)
}
