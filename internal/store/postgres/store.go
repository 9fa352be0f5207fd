package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
	"github.com/significance/beeport-stamp-stats-sub000/internal/store"
)

// Store provides Postgres persistence for events, batch records, chunk
// markers, and the balance cache.
type Store struct {
	pool            *pgxpool.Pool
	freshnessWindow uint64
}

// NewStore connects to Postgres and applies the schema. A zero freshness
// window uses the default.
func NewStore(ctx context.Context, dsn string, freshnessWindow uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if freshnessWindow == 0 {
		freshnessWindow = store.DefaultFreshnessWindow
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: pool, freshnessWindow: freshnessWindow}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertEvents inserts or replaces events by their (tx_hash, log_index)
// identity key.
func (s *Store) UpsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		payload, err := ev.MarshalPayload()
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO events (
				event_type, batch_id, block_number, block_timestamp, tx_hash, log_index, contract_source, payload_json
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (tx_hash, log_index)
			DO UPDATE SET
				event_type = EXCLUDED.event_type,
				batch_id = EXCLUDED.batch_id,
				block_number = EXCLUDED.block_number,
				block_timestamp = EXCLUDED.block_timestamp,
				contract_source = EXCLUDED.contract_source,
				payload_json = EXCLUDED.payload_json
		`,
			string(ev.Kind),
			ev.BatchID,
			int64(ev.BlockNumber),
			int64(ev.BlockTimestamp),
			ev.TxHash,
			int64(ev.LogIndex),
			ev.ContractSource,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertBatches inserts or replaces batch records by batch id.
func (s *Store) UpsertBatches(ctx context.Context, batches []model.BatchRecord) error {
	if len(batches) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range batches {
		batch.Queue(`
			INSERT INTO batches (
				batch_id, owner, depth, bucket_depth, immutable, normalised_balance, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (batch_id)
			DO UPDATE SET
				owner = EXCLUDED.owner,
				depth = EXCLUDED.depth,
				bucket_depth = EXCLUDED.bucket_depth,
				immutable = EXCLUDED.immutable,
				normalised_balance = EXCLUDED.normalised_balance,
				created_at = EXCLUDED.created_at
		`,
			record.BatchID,
			record.Owner,
			int16(record.Depth),
			int16(record.BucketDepth),
			record.Immutable,
			record.NormalisedBalance,
			int64(record.CreatedAt),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range batches {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetBatch returns one batch record by id.
func (s *Store) GetBatch(ctx context.Context, batchID string) (model.BatchRecord, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT batch_id, owner, depth, bucket_depth, immutable, normalised_balance, created_at
		FROM batches WHERE batch_id = $1
	`, batchID)

	var record model.BatchRecord
	var depth, bucketDepth int16
	var createdAt int64
	if err := row.Scan(&record.BatchID, &record.Owner, &depth, &bucketDepth, &record.Immutable, &record.NormalisedBalance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.BatchRecord{}, false, nil
		}
		return model.BatchRecord{}, false, err
	}
	record.Depth = uint8(depth)
	record.BucketDepth = uint8(bucketDepth)
	record.CreatedAt = uint64(createdAt)
	return record, true, nil
}

// LastBlock returns the maximum stored event block number for one
// contract source.
func (s *Store) LastBlock(ctx context.Context, contractSource string) (uint64, bool, error) {
	var last *int64
	row := s.pool.QueryRow(ctx, `SELECT MAX(block_number) FROM events WHERE contract_source = $1`, contractSource)
	if err := row.Scan(&last); err != nil {
		return 0, false, err
	}
	if last == nil {
		return 0, false, nil
	}
	return uint64(*last), true, nil
}

// ChunkCached reports whether a chunk marker exists.
func (s *Store) ChunkCached(ctx context.Context, chunkHash string) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chunk_cache WHERE chunk_hash = $1)`, chunkHash)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkChunkCached records that a chunk's events are fully committed.
func (s *Store) MarkChunkCached(ctx context.Context, marker model.ChunkMarker) error {
	processedAt := marker.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chunk_cache (chunk_hash, contract_address, from_block, to_block, processed_at, event_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chunk_hash) DO UPDATE SET
			processed_at = EXCLUDED.processed_at,
			event_count = EXCLUDED.event_count
	`,
		marker.ChunkHash,
		marker.ContractAddress,
		int64(marker.FromBlock),
		int64(marker.ToBlock),
		processedAt,
		int64(marker.EventCount),
	)
	return err
}

// GetBalance returns the cached balance while it is within the freshness
// window; stale entries are ignored, not deleted.
func (s *Store) GetBalance(ctx context.Context, batchID string, currentBlock uint64) (string, bool, error) {
	var balance string
	var fetchedBlock int64
	row := s.pool.QueryRow(ctx, `
		SELECT remaining_balance, fetched_block FROM batch_balances WHERE batch_id = $1
	`, batchID)
	if err := row.Scan(&balance, &fetchedBlock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	if currentBlock >= uint64(fetchedBlock) && currentBlock-uint64(fetchedBlock) >= s.freshnessWindow {
		return "", false, nil
	}
	return balance, true, nil
}

// CacheBalance replaces the cached balance. Freshness is monotonic: an
// entry is never overwritten by one fetched at an older block.
func (s *Store) CacheBalance(ctx context.Context, batchID, balance string, currentBlock uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO batch_balances (batch_id, remaining_balance, fetched_at, fetched_block)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (batch_id) DO UPDATE SET
			remaining_balance = EXCLUDED.remaining_balance,
			fetched_at = EXCLUDED.fetched_at,
			fetched_block = EXCLUDED.fetched_block
		WHERE EXCLUDED.fetched_block >= batch_balances.fetched_block
	`, batchID, balance, int64(currentBlock))
	return err
}

// Events returns stored events ordered by (block_number, log_index).
func (s *Store) Events(ctx context.Context, sinceMonths int) ([]model.Event, error) {
	query := `
		SELECT event_type, batch_id, block_number, block_timestamp, tx_hash, log_index, contract_source, payload_json
		FROM events
	`
	args := []any{}
	if sinceMonths > 0 {
		query += ` WHERE block_timestamp >= $1`
		args = append(args, time.Now().UTC().AddDate(0, -sinceMonths, 0).Unix())
	}
	query += ` ORDER BY block_number, log_index`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var kind string
		var blockNumber, blockTimestamp, logIndex int64
		var payload []byte
		if err := rows.Scan(&kind, &ev.BatchID, &blockNumber, &blockTimestamp, &ev.TxHash, &logIndex, &ev.ContractSource, &payload); err != nil {
			return nil, err
		}
		ev.Kind = model.EventKind(kind)
		ev.BlockNumber = uint64(blockNumber)
		ev.BlockTimestamp = uint64(blockTimestamp)
		ev.LogIndex = uint64(logIndex)
		if err := ev.UnmarshalPayload(payload); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Batches returns stored batch records, oldest first.
func (s *Store) Batches(ctx context.Context, sinceMonths int) ([]model.BatchRecord, error) {
	query := `
		SELECT batch_id, owner, depth, bucket_depth, immutable, normalised_balance, created_at
		FROM batches
	`
	args := []any{}
	if sinceMonths > 0 {
		query += ` WHERE created_at >= $1`
		args = append(args, time.Now().UTC().AddDate(0, -sinceMonths, 0).Unix())
	}
	query += ` ORDER BY created_at, batch_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []model.BatchRecord
	for rows.Next() {
		var record model.BatchRecord
		var depth, bucketDepth int16
		var createdAt int64
		if err := rows.Scan(&record.BatchID, &record.Owner, &depth, &bucketDepth, &record.Immutable, &record.NormalisedBalance, &createdAt); err != nil {
			return nil, err
		}
		record.Depth = uint8(depth)
		record.BucketDepth = uint8(bucketDepth)
		record.CreatedAt = uint64(createdAt)
		batches = append(batches, record)
	}
	return batches, rows.Err()
}
