package model

import (
	"encoding/json"
	"testing"
)

func TestEventPayloadRoundTrip(t *testing.T) {
	ev := Event{
		Kind:    KindBatchCreated,
		BatchID: "0x3333333333333333333333333333333333333333333333333333333333333333",
		Payload: BatchCreatedData{
			TotalAmount:       "1000000000000000000",
			NormalisedBalance: "50000000000",
			Owner:             "0x1111111111111111111111111111111111111111",
			Depth:             20,
			BucketDepth:       16,
			Immutable:         true,
		},
	}

	data, err := ev.MarshalPayload()
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["total_amount"].(string); !ok {
		t.Fatalf("total_amount should be string")
	}
	if _, ok := decoded["normalised_balance"].(string); !ok {
		t.Fatalf("normalised_balance should be string")
	}

	restored := Event{Kind: KindBatchCreated}
	if err := restored.UnmarshalPayload(data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	payload, ok := restored.Payload.(BatchCreatedData)
	if !ok {
		t.Fatalf("payload type mismatch: %T", restored.Payload)
	}
	if payload.Depth != 20 || payload.TotalAmount != "1000000000000000000" {
		t.Fatalf("payload mismatch: %+v", payload)
	}
}

func TestEventPayloadUnknownKind(t *testing.T) {
	ev := Event{Kind: EventKind("BatchMerged")}
	if err := ev.UnmarshalPayload([]byte(`{}`)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestChunkHashDeterministic(t *testing.T) {
	a := ChunkHash("0xAbC0000000000000000000000000000000000001", 100, 199)
	b := ChunkHash("0xabc0000000000000000000000000000000000001", 100, 199)
	if a != b {
		t.Fatalf("hash should be case-insensitive on address: %s != %s", a, b)
	}
	if c := ChunkHash("0xabc0000000000000000000000000000000000001", 100, 200); c == a {
		t.Fatalf("different range must hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("unexpected hash length: %d", len(a))
	}
}
