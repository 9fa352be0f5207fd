package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

// deriveBatchRecords folds a chunk's events, in their ascending order, into
// batch records. BatchCreated starts a record; top-ups and depth increases
// update the most recent known state of one already seen in this chunk or
// already stored. Updates for batches created before the ingested window
// are skipped.
func (ing *Ingestor) deriveBatchRecords(ctx context.Context, events []model.Event) ([]model.BatchRecord, error) {
	records := make(map[string]*model.BatchRecord)
	order := make([]string, 0)

	for _, ev := range events {
		switch payload := ev.Payload.(type) {
		case model.BatchCreatedData:
			if _, seen := records[ev.BatchID]; !seen {
				order = append(order, ev.BatchID)
			}
			records[ev.BatchID] = &model.BatchRecord{
				BatchID:           ev.BatchID,
				Owner:             payload.Owner,
				Depth:             payload.Depth,
				BucketDepth:       payload.BucketDepth,
				Immutable:         payload.Immutable,
				NormalisedBalance: payload.NormalisedBalance,
				CreatedAt:         ev.BlockTimestamp,
			}
		case model.BatchTopUpData:
			record, err := ing.recordFor(ctx, records, &order, ev)
			if err != nil {
				return nil, err
			}
			if record == nil {
				continue
			}
			record.NormalisedBalance = payload.NormalisedBalance
		case model.BatchDepthIncreaseData:
			record, err := ing.recordFor(ctx, records, &order, ev)
			if err != nil {
				return nil, err
			}
			if record == nil {
				continue
			}
			record.Depth = payload.NewDepth
			record.NormalisedBalance = payload.NormalisedBalance
		default:
			return nil, fmt.Errorf("unexpected payload type %T for event %s", ev.Payload, ev.Kind)
		}
	}

	out := make([]model.BatchRecord, 0, len(order))
	for _, batchID := range order {
		out = append(out, *records[batchID])
	}
	return out, nil
}

func (ing *Ingestor) recordFor(ctx context.Context, records map[string]*model.BatchRecord, order *[]string, ev model.Event) (*model.BatchRecord, error) {
	if record, ok := records[ev.BatchID]; ok {
		return record, nil
	}

	stored, ok, err := ing.store.GetBatch(ctx, ev.BatchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", ev.BatchID, err)
	}
	if !ok {
		ing.logger.Debug("update for unknown batch skipped",
			zap.String("batch_id", ev.BatchID),
			zap.String("kind", string(ev.Kind)))
		return nil, nil
	}

	record := stored
	records[ev.BatchID] = &record
	*order = append(*order, ev.BatchID)
	return &record, nil
}
