package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

func testEvent(block, logIndex uint64) model.Event {
	return model.Event{
		Kind:           model.KindBatchTopUp,
		BatchID:        "0x01",
		BlockNumber:    block,
		BlockTimestamp: block * 5,
		TxHash:         fmt.Sprintf("0xaa%02d", block),
		LogIndex:       logIndex,
		ContractSource: "postage",
		Payload:        model.BatchTopUpData{TopupAmount: "1", NormalisedBalance: "2"},
	}
}

func TestUpsertEventsIdempotent(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	events := []model.Event{testEvent(10, 0), testEvent(11, 2)}
	require.NoError(t, s.UpsertEvents(ctx, events))
	require.NoError(t, s.UpsertEvents(ctx, events))

	assert.Equal(t, 2, s.EventCount())

	last, ok, err := s.LastBlock(ctx, "postage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(11), last)

	_, ok, err = s.LastBlock(ctx, "registry")
	require.NoError(t, err)
	assert.False(t, ok, "cursor is scoped per contract source")
}

func TestLastBlockEmpty(t *testing.T) {
	s := New(0)
	_, ok, err := s.LastBlock(context.Background(), "postage")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventsOrdering(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	require.NoError(t, s.UpsertEvents(ctx, []model.Event{
		testEvent(12, 1),
		testEvent(10, 3),
		testEvent(12, 0),
		testEvent(11, 5),
	}))

	events, err := s.Events(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 4)

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		ordered := prev.BlockNumber < cur.BlockNumber ||
			(prev.BlockNumber == cur.BlockNumber && prev.LogIndex < cur.LogIndex)
		assert.True(t, ordered, "events out of order at %d", i)
	}
}

func TestChunkMarkers(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	hash := model.ChunkHash("0x1111111111111111111111111111111111111111", 100, 199)
	cached, err := s.ChunkCached(ctx, hash)
	require.NoError(t, err)
	assert.False(t, cached)

	require.NoError(t, s.MarkChunkCached(ctx, model.ChunkMarker{
		ChunkHash:       hash,
		ContractAddress: "0x1111111111111111111111111111111111111111",
		FromBlock:       100,
		ToBlock:         199,
		EventCount:      3,
	}))

	cached, err = s.ChunkCached(ctx, hash)
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestBalanceFreshnessWindow(t *testing.T) {
	s := New(100)
	ctx := context.Background()

	require.NoError(t, s.CacheBalance(ctx, "0x01", "123456", 1000))

	balance, ok, err := s.GetBalance(ctx, "0x01", 1099)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "123456", balance)

	// Exactly the window boundary is already stale.
	_, ok, err = s.GetBalance(ctx, "0x01", 1100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetBalance(ctx, "0x02", 1000)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheBalanceMonotonic(t *testing.T) {
	s := New(100)
	ctx := context.Background()

	require.NoError(t, s.CacheBalance(ctx, "0x01", "200", 2000))
	require.NoError(t, s.CacheBalance(ctx, "0x01", "999", 1500))

	balance, ok, err := s.GetBalance(ctx, "0x01", 2050)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "200", balance, "older fetch must not overwrite a newer one")
}

func TestBatchRecords(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	record := model.BatchRecord{
		BatchID:           "0x02",
		Owner:             "0x2222222222222222222222222222222222222222",
		Depth:             20,
		BucketDepth:       16,
		NormalisedBalance: "100",
		CreatedAt:         1_700_000_000,
	}
	require.NoError(t, s.UpsertBatches(ctx, []model.BatchRecord{record}))

	record.NormalisedBalance = "250"
	require.NoError(t, s.UpsertBatches(ctx, []model.BatchRecord{record}))

	got, ok, err := s.GetBatch(ctx, "0x02")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "250", got.NormalisedBalance)

	batches, err := s.Batches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}
