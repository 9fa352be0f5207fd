package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ChunkMarker is durable proof that all logs in [FromBlock, ToBlock] for
// ContractAddress have been persisted. A marker is written only after the
// chunk's events are committed, so its presence makes re-ingestion of the
// same range a no-op.
type ChunkMarker struct {
	ChunkHash       string    `json:"chunk_hash"`
	ContractAddress string    `json:"contract_address"`
	FromBlock       uint64    `json:"from_block"`
	ToBlock         uint64    `json:"to_block"`
	ProcessedAt     time.Time `json:"processed_at"`
	EventCount      int       `json:"event_count"`
}

// ChunkHash returns the deterministic cache key for a contract's block
// range. The key is exact: a range with a different size or offset hashes
// differently even when it overlaps an already-cached one.
func ChunkHash(contractAddress string, fromBlock, toBlock uint64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", strings.ToLower(contractAddress), fromBlock, toBlock)))
	return hex.EncodeToString(sum[:])
}
