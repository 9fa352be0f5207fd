package stamp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

// PostageStampDecoder decodes the postage stamp contract's batch lifecycle
// events and answers live price and balance queries through its view
// functions.
type PostageStampDecoder struct {
	name            string
	address         common.Address
	deploymentBlock uint64
	contractABI     abi.ABI
	topicToKind     map[common.Hash]model.EventKind
}

// NewPostageStampDecoder builds a decoder for one postage stamp deployment.
func NewPostageStampDecoder(name string, address common.Address, deploymentBlock uint64) (*PostageStampDecoder, error) {
	contractABI, err := PostageStampABI()
	if err != nil {
		return nil, err
	}

	return &PostageStampDecoder{
		name:            name,
		address:         address,
		deploymentBlock: deploymentBlock,
		contractABI:     contractABI,
		topicToKind: map[common.Hash]model.EventKind{
			contractABI.Events["BatchCreated"].ID:       model.KindBatchCreated,
			contractABI.Events["BatchTopUp"].ID:         model.KindBatchTopUp,
			contractABI.Events["BatchDepthIncrease"].ID: model.KindBatchDepthIncrease,
		},
	}, nil
}

func (d *PostageStampDecoder) Name() string            { return d.name }
func (d *PostageStampDecoder) Address() common.Address { return d.address }
func (d *PostageStampDecoder) DeploymentBlock() uint64 { return d.deploymentBlock }

func (d *PostageStampDecoder) SupportsPriceQuery() bool   { return true }
func (d *PostageStampDecoder) SupportsBalanceQuery() bool { return true }

// Decode converts a raw log into a canonical event, or (nil, nil) when the
// log matches no known signature.
func (d *PostageStampDecoder) Decode(log types.Log, blockTimestamp uint64) (*model.Event, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}
	kind, ok := d.topicToKind[log.Topics[0]]
	if !ok {
		return nil, nil
	}

	batchID, err := batchIDTopic(log)
	if err != nil {
		return nil, err
	}

	var payload any
	switch kind {
	case model.KindBatchCreated:
		payload, err = d.decodeBatchCreated(log)
	case model.KindBatchTopUp:
		payload, err = d.decodeBatchTopUp(log)
	case model.KindBatchDepthIncrease:
		payload, err = d.decodeBatchDepthIncrease(log)
	default:
		return nil, fmt.Errorf("unsupported event kind: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	return buildEvent(d.name, kind, batchID, log, blockTimestamp, payload), nil
}

func (d *PostageStampDecoder) decodeBatchCreated(log types.Log) (model.BatchCreatedData, error) {
	values, err := unpackEventData(d.contractABI.Events["BatchCreated"], log.Data)
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	if len(values) != 6 {
		return model.BatchCreatedData{}, fmt.Errorf("unexpected BatchCreated values: %d", len(values))
	}

	totalAmount, err := asBigInt(values[0])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	normalisedBalance, err := asBigInt(values[1])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	owner, err := asAddress(values[2])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	depth, err := asUint8(values[3])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	bucketDepth, err := asUint8(values[4])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	immutable, err := asBool(values[5])
	if err != nil {
		return model.BatchCreatedData{}, err
	}

	return model.BatchCreatedData{
		TotalAmount:       totalAmount.String(),
		NormalisedBalance: normalisedBalance.String(),
		Owner:             owner.Hex(),
		Depth:             depth,
		BucketDepth:       bucketDepth,
		Immutable:         immutable,
	}, nil
}

func (d *PostageStampDecoder) decodeBatchTopUp(log types.Log) (model.BatchTopUpData, error) {
	values, err := unpackEventData(d.contractABI.Events["BatchTopUp"], log.Data)
	if err != nil {
		return model.BatchTopUpData{}, err
	}
	if len(values) != 2 {
		return model.BatchTopUpData{}, fmt.Errorf("unexpected BatchTopUp values: %d", len(values))
	}

	topupAmount, err := asBigInt(values[0])
	if err != nil {
		return model.BatchTopUpData{}, err
	}
	normalisedBalance, err := asBigInt(values[1])
	if err != nil {
		return model.BatchTopUpData{}, err
	}

	return model.BatchTopUpData{
		TopupAmount:       topupAmount.String(),
		NormalisedBalance: normalisedBalance.String(),
	}, nil
}

func (d *PostageStampDecoder) decodeBatchDepthIncrease(log types.Log) (model.BatchDepthIncreaseData, error) {
	values, err := unpackEventData(d.contractABI.Events["BatchDepthIncrease"], log.Data)
	if err != nil {
		return model.BatchDepthIncreaseData{}, err
	}
	if len(values) != 2 {
		return model.BatchDepthIncreaseData{}, fmt.Errorf("unexpected BatchDepthIncrease values: %d", len(values))
	}

	newDepth, err := asUint8(values[0])
	if err != nil {
		return model.BatchDepthIncreaseData{}, err
	}
	normalisedBalance, err := asBigInt(values[1])
	if err != nil {
		return model.BatchDepthIncreaseData{}, err
	}

	return model.BatchDepthIncreaseData{
		NewDepth:          newDepth,
		NormalisedBalance: normalisedBalance.String(),
	}, nil
}

// LastPrice reads the contract's current price per chunk per block.
func (d *PostageStampDecoder) LastPrice(ctx context.Context, caller Caller) (*big.Int, error) {
	data, err := d.contractABI.Pack("lastPrice")
	if err != nil {
		return nil, fmt.Errorf("pack lastPrice: %w", err)
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &d.address, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	values, err := d.contractABI.Unpack("lastPrice", out)
	if err != nil {
		return nil, fmt.Errorf("unpack lastPrice: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected lastPrice values: %d", len(values))
	}
	return asBigInt(values[0])
}

// RemainingBalance reads a batch's live remaining balance.
func (d *PostageStampDecoder) RemainingBalance(ctx context.Context, caller Caller, batchID common.Hash) (*big.Int, error) {
	data, err := d.contractABI.Pack("remainingBalance", [32]byte(batchID))
	if err != nil {
		return nil, fmt.Errorf("pack remainingBalance: %w", err)
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &d.address, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	values, err := d.contractABI.Unpack("remainingBalance", out)
	if err != nil {
		return nil, fmt.Errorf("unpack remainingBalance: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected remainingBalance values: %d", len(values))
	}
	return asBigInt(values[0])
}
