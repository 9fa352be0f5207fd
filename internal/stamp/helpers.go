package stamp

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

func unpackEventData(event abi.Event, data []byte) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	out, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected *big.Int, got %T", value)
	}
	return out, nil
}

func asAddress(value interface{}) (common.Address, error) {
	out, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("expected address, got %T", value)
	}
	return out, nil
}

func asUint8(value interface{}) (uint8, error) {
	out, ok := value.(uint8)
	if !ok {
		return 0, fmt.Errorf("expected uint8, got %T", value)
	}
	return out, nil
}

func asBool(value interface{}) (bool, error) {
	out, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", value)
	}
	return out, nil
}

func batchIDTopic(log types.Log) (common.Hash, error) {
	if len(log.Topics) < 2 {
		return common.Hash{}, fmt.Errorf("missing batch id topic in %s:%d", log.TxHash.Hex(), log.Index)
	}
	return log.Topics[1], nil
}

func buildEvent(source string, kind model.EventKind, batchID common.Hash, log types.Log, blockTimestamp uint64, payload any) *model.Event {
	return &model.Event{
		Kind:           kind,
		BatchID:        batchID.Hex(),
		BlockNumber:    log.BlockNumber,
		BlockTimestamp: blockTimestamp,
		TxHash:         log.TxHash.Hex(),
		LogIndex:       uint64(log.Index),
		ContractSource: source,
		Payload:        payload,
	}
}
