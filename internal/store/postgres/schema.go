package postgres

import "context"

// The unique constraint on (tx_hash, log_index) and the primary keys are
// correctness-critical: they are what makes every write an idempotent
// upsert. The block/timestamp/batch/source indexes back the range queries.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_type TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		block_timestamp BIGINT NOT NULL,
		tx_hash TEXT NOT NULL,
		log_index BIGINT NOT NULL,
		contract_source TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		UNIQUE (tx_hash, log_index)
	)`,
	`CREATE INDEX IF NOT EXISTS events_block_number_idx ON events (block_number)`,
	`CREATE INDEX IF NOT EXISTS events_block_timestamp_idx ON events (block_timestamp)`,
	`CREATE INDEX IF NOT EXISTS events_batch_id_idx ON events (batch_id)`,
	`CREATE INDEX IF NOT EXISTS events_contract_source_idx ON events (contract_source)`,
	`CREATE TABLE IF NOT EXISTS batches (
		batch_id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		depth SMALLINT NOT NULL,
		bucket_depth SMALLINT NOT NULL,
		immutable BOOLEAN NOT NULL,
		normalised_balance TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chunk_cache (
		chunk_hash TEXT PRIMARY KEY,
		contract_address TEXT NOT NULL,
		from_block BIGINT NOT NULL,
		to_block BIGINT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL,
		event_count BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS batch_balances (
		batch_id TEXT PRIMARY KEY,
		remaining_balance TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		fetched_block BIGINT NOT NULL
	)`,
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
