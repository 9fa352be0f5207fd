package pricing

import (
	"fmt"
	"math"
	"math/big"
)

// secondsPerDay converts block durations to days.
const secondsPerDay = 86400

// growthEpsilon is the band around 1.0 inside which a daily growth rate is
// treated as flat, avoiding division by ln(r) ~ 0.
const growthEpsilon = 1e-10

// TTLBlocks returns the remaining blocks until a batch's balance is
// exhausted: floor(balance / (price * 2^depth)). The balance is a
// non-negative decimal string, price is per chunk per block.
func TTLBlocks(balance string, depth uint8, price *big.Int) (uint64, error) {
	if price == nil || price.Sign() == 0 {
		return 0, fmt.Errorf("price must be non-zero")
	}
	if price.Sign() < 0 {
		return 0, fmt.Errorf("price must be positive: %s", price)
	}

	value, ok := new(big.Int).SetString(balance, 10)
	if !ok {
		return 0, fmt.Errorf("invalid balance: %q", balance)
	}
	if value.Sign() < 0 {
		return 0, fmt.Errorf("balance must be non-negative: %q", balance)
	}

	capacity := new(big.Int).Lsh(big.NewInt(1), uint(depth))
	denominator := new(big.Int).Mul(price, capacity)
	ttl := new(big.Int).Quo(value, denominator)
	if !ttl.IsUint64() {
		return 0, fmt.Errorf("ttl does not fit in uint64: %s", ttl)
	}
	return ttl.Uint64(), nil
}

// BlocksToDays converts a block count to days at the given block time.
func BlocksToDays(blocks uint64, secondsPerBlock float64) float64 {
	return float64(blocks) * secondsPerBlock / secondsPerDay
}

// DailyGrowthRate converts a percentage change over a period of days to a
// compound per-day growth factor: (1 + pct/100)^(1/days).
func DailyGrowthRate(pctChange, days float64) (float64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("period days must be positive: %g", days)
	}
	base := 1 + pctChange/100
	if base <= 0 {
		return 0, fmt.Errorf("percentage change below -100%%: %g", pctChange)
	}
	return math.Pow(base, 1/days), nil
}

// AveragePrice is the time-averaged effective price over a TTL horizon of
// ttlDays when the price grows exponentially: the integral of
// p * r^t over [0, ttlDays], normalized by the horizon. A flat rate
// returns the current price unchanged.
func AveragePrice(pctChange, days, currentPrice, ttlDays float64) (float64, error) {
	rate, err := DailyGrowthRate(pctChange, days)
	if err != nil {
		return 0, err
	}
	if math.Abs(rate-1) < growthEpsilon || ttlDays <= 0 {
		return currentPrice, nil
	}
	return currentPrice * (math.Pow(rate, ttlDays) - 1) / (math.Log(rate) * ttlDays), nil
}
