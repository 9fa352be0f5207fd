package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
	"github.com/significance/beeport-stamp-stats-sub000/internal/store"
)

type balanceEntry struct {
	balance      string
	fetchedAt    time.Time
	fetchedBlock uint64
}

// Store is an in-memory store.Store used by tests and dry runs. It mirrors
// the Postgres upsert and freshness semantics.
type Store struct {
	mu              sync.Mutex
	freshnessWindow uint64
	events          map[string]model.Event
	batches         map[string]model.BatchRecord
	chunks          map[string]model.ChunkMarker
	balances        map[string]balanceEntry
}

// New builds an empty in-memory store. A zero window uses the default.
func New(freshnessWindow uint64) *Store {
	if freshnessWindow == 0 {
		freshnessWindow = store.DefaultFreshnessWindow
	}
	return &Store{
		freshnessWindow: freshnessWindow,
		events:          make(map[string]model.Event),
		batches:         make(map[string]model.BatchRecord),
		chunks:          make(map[string]model.ChunkMarker),
		balances:        make(map[string]balanceEntry),
	}
}

func eventKey(ev model.Event) string {
	return fmt.Sprintf("%s:%d", ev.TxHash, ev.LogIndex)
}

func (s *Store) UpsertEvents(_ context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		s.events[eventKey(ev)] = ev
	}
	return nil
}

func (s *Store) UpsertBatches(_ context.Context, batches []model.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, batch := range batches {
		s.batches[batch.BatchID] = batch
	}
	return nil
}

func (s *Store) GetBatch(_ context.Context, batchID string) (model.BatchRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	return batch, ok, nil
}

func (s *Store) LastBlock(_ context.Context, contractSource string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last uint64
	found := false
	for _, ev := range s.events {
		if ev.ContractSource != contractSource {
			continue
		}
		if !found || ev.BlockNumber > last {
			last = ev.BlockNumber
			found = true
		}
	}
	return last, found, nil
}

func (s *Store) ChunkCached(_ context.Context, chunkHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chunks[chunkHash]
	return ok, nil
}

func (s *Store) MarkChunkCached(_ context.Context, marker model.ChunkMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[marker.ChunkHash] = marker
	return nil
}

func (s *Store) GetBalance(_ context.Context, batchID string, currentBlock uint64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.balances[batchID]
	if !ok {
		return "", false, nil
	}
	if currentBlock >= entry.fetchedBlock && currentBlock-entry.fetchedBlock >= s.freshnessWindow {
		return "", false, nil
	}
	return entry.balance, true, nil
}

func (s *Store) CacheBalance(_ context.Context, batchID, balance string, currentBlock uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.balances[batchID]; ok && existing.fetchedBlock > currentBlock {
		return nil
	}
	s.balances[batchID] = balanceEntry{balance: balance, fetchedAt: time.Now().UTC(), fetchedBlock: currentBlock}
	return nil
}

func (s *Store) Events(_ context.Context, sinceMonths int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := monthsCutoff(sinceMonths)
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.BlockTimestamp >= cutoff {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}

func (s *Store) Batches(_ context.Context, sinceMonths int) ([]model.BatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := monthsCutoff(sinceMonths)
	out := make([]model.BatchRecord, 0, len(s.batches))
	for _, batch := range s.batches {
		if batch.CreatedAt >= cutoff {
			out = append(out, batch)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].BatchID < out[j].BatchID
	})
	return out, nil
}

// EventCount reports the number of distinct stored events.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func monthsCutoff(sinceMonths int) uint64 {
	if sinceMonths <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().AddDate(0, -sinceMonths, 0).Unix()
	if cutoff < 0 {
		return 0
	}
	return uint64(cutoff)
}
