package pricing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLBlocks(t *testing.T) {
	// 1,000,000,000 / (100 * 2^20) = 9.53..., floored.
	ttl, err := TTLBlocks("1000000000", 20, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, uint64(9), ttl)
}

func TestTTLBlocksZeroBalance(t *testing.T) {
	ttl, err := TTLBlocks("0", 20, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ttl)
}

func TestTTLBlocksRejectsBadInput(t *testing.T) {
	_, err := TTLBlocks("1000", 20, big.NewInt(0))
	assert.Error(t, err, "zero price")

	_, err = TTLBlocks("1000", 20, nil)
	assert.Error(t, err, "nil price")

	_, err = TTLBlocks("notanumber", 20, big.NewInt(100))
	assert.Error(t, err, "non-numeric balance")

	_, err = TTLBlocks("-5", 20, big.NewInt(100))
	assert.Error(t, err, "negative balance")

	_, err = TTLBlocks("12.5", 20, big.NewInt(100))
	assert.Error(t, err, "non-integer balance")
}

func TestTTLBlocksLargeBalance(t *testing.T) {
	// 2^90 / (1 * 2^30) = 2^60, still within uint64.
	balance := new(big.Int).Lsh(big.NewInt(1), 90)
	ttl, err := TTLBlocks(balance.String(), 30, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<60, ttl)
}

func TestBlocksToDays(t *testing.T) {
	assert.InDelta(t, 1.0, BlocksToDays(17280, 5), 1e-9)
	assert.InDelta(t, 0.5, BlocksToDays(8640, 5), 1e-9)
}

func TestDailyGrowthRate(t *testing.T) {
	rate, err := DailyGrowthRate(0, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rate, 1e-12)

	rate, err = DailyGrowthRate(100, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0717734625, rate, 1e-9)

	_, err = DailyGrowthRate(5, 0)
	assert.Error(t, err)

	_, err = DailyGrowthRate(-100, 10)
	assert.Error(t, err)
}

func TestAveragePriceNoGrowth(t *testing.T) {
	avg, err := AveragePrice(0, 10, 1000, 30)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, avg)
}

func TestAveragePriceGrowthBounds(t *testing.T) {
	// Price doubles over the 10-day horizon; the time average lies
	// between the endpoints and near 1442.
	avg, err := AveragePrice(100, 10, 1000, 10)
	require.NoError(t, err)
	assert.Greater(t, avg, 1000.0)
	assert.Less(t, avg, 2000.0)
	assert.InDelta(t, 1442, avg, 50)
}

func TestAveragePriceZeroHorizon(t *testing.T) {
	avg, err := AveragePrice(100, 10, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, avg)
}
