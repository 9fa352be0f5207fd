package model

// BatchRecord is the derived per-batch row holding the most recent known
// state. Created on the first BatchCreated event for a batch id, updated by
// later top-up and depth-increase events, never deleted. NormalisedBalance
// is a cache hint only; the authoritative balance is fetched live.
type BatchRecord struct {
	BatchID           string `json:"batch_id"`
	Owner             string `json:"owner"`
	Depth             uint8  `json:"depth"`
	BucketDepth       uint8  `json:"bucket_depth"`
	Immutable         bool   `json:"immutable"`
	NormalisedBalance string `json:"normalised_balance"`
	CreatedAt         uint64 `json:"created_at"`
}
