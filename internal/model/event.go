package model

import (
	"encoding/json"
	"fmt"
)

// EventKind identifies the decoded contract event type.
type EventKind string

const (
	KindBatchCreated       EventKind = "BatchCreated"
	KindBatchTopUp         EventKind = "BatchTopUp"
	KindBatchDepthIncrease EventKind = "BatchDepthIncrease"
)

// Event is a decoded postage contract event, normalized for storage.
// Identity is (TxHash, LogIndex); events are immutable once written.
type Event struct {
	Kind           EventKind `json:"event_type"`
	BatchID        string    `json:"batch_id"`
	BlockNumber    uint64    `json:"block_number"`
	BlockTimestamp uint64    `json:"block_timestamp"`
	TxHash         string    `json:"tx_hash"`
	LogIndex       uint64    `json:"log_index"`
	ContractSource string    `json:"contract_source"`
	Payload        any       `json:"payload"`
}

// BatchCreatedData is the decoded BatchCreated event payload.
type BatchCreatedData struct {
	TotalAmount       string `json:"total_amount"`
	NormalisedBalance string `json:"normalised_balance"`
	Owner             string `json:"owner"`
	Depth             uint8  `json:"depth"`
	BucketDepth       uint8  `json:"bucket_depth"`
	Immutable         bool   `json:"immutable"`
	Payer             string `json:"payer,omitempty"`
}

// BatchTopUpData is the decoded BatchTopUp event payload.
type BatchTopUpData struct {
	TopupAmount       string `json:"topup_amount"`
	NormalisedBalance string `json:"normalised_balance"`
	Payer             string `json:"payer,omitempty"`
}

// BatchDepthIncreaseData is the decoded BatchDepthIncrease event payload.
type BatchDepthIncreaseData struct {
	NewDepth          uint8  `json:"new_depth"`
	NormalisedBalance string `json:"normalised_balance"`
	Payer             string `json:"payer,omitempty"`
}

// MarshalPayload encodes the event payload as JSON for storage.
func (e Event) MarshalPayload() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %s:%d has no payload", e.TxHash, e.LogIndex)
	}
	return json.Marshal(e.Payload)
}

// UnmarshalPayload decodes a stored payload into the typed struct for the
// event's kind and assigns it to Payload.
func (e *Event) UnmarshalPayload(data []byte) error {
	switch e.Kind {
	case KindBatchCreated:
		var p BatchCreatedData
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		e.Payload = p
	case KindBatchTopUp:
		var p BatchTopUpData
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		e.Payload = p
	case KindBatchDepthIncrease:
		var p BatchDepthIncreaseData
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		e.Payload = p
	default:
		return fmt.Errorf("unknown event kind: %s", e.Kind)
	}
	return nil
}
