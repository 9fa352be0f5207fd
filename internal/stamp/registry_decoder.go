package stamp

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

// StampsRegistryDecoder decodes the registry contract's payer-extended
// batch events. The registry exposes no price or balance views; both
// capabilities stay false.
type StampsRegistryDecoder struct {
	name            string
	address         common.Address
	deploymentBlock uint64
	contractABI     abi.ABI
	topicToKind     map[common.Hash]model.EventKind
}

// NewStampsRegistryDecoder builds a decoder for one registry deployment.
func NewStampsRegistryDecoder(name string, address common.Address, deploymentBlock uint64) (*StampsRegistryDecoder, error) {
	contractABI, err := StampsRegistryABI()
	if err != nil {
		return nil, err
	}

	return &StampsRegistryDecoder{
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

func (d *StampsRegistryDecoder) Name() string            { return d.name }
func (d *StampsRegistryDecoder) Address() common.Address { return d.address }
func (d *StampsRegistryDecoder) DeploymentBlock() uint64 { return d.deploymentBlock }

func (d *StampsRegistryDecoder) SupportsPriceQuery() bool   { return false }
func (d *StampsRegistryDecoder) SupportsBalanceQuery() bool { return false }

func (d *StampsRegistryDecoder) LastPrice(context.Context, Caller) (*big.Int, error) {
	return nil, fmt.Errorf("%s does not support price queries", d.name)
}

func (d *StampsRegistryDecoder) RemainingBalance(context.Context, Caller, common.Hash) (*big.Int, error) {
	return nil, fmt.Errorf("%s does not support balance queries", d.name)
}

// Decode converts a raw log into a canonical event, or (nil, nil) when the
// log matches no known signature.
func (d *StampsRegistryDecoder) Decode(log types.Log, blockTimestamp uint64) (*model.Event, error) {
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

func (d *StampsRegistryDecoder) decodeBatchCreated(log types.Log) (model.BatchCreatedData, error) {
	values, err := unpackEventData(d.contractABI.Events["BatchCreated"], log.Data)
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	if len(values) != 7 {
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
	payer, err := asAddress(values[3])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	depth, err := asUint8(values[4])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	bucketDepth, err := asUint8(values[5])
	if err != nil {
		return model.BatchCreatedData{}, err
	}
	immutable, err := asBool(values[6])
	if err != nil {
		return model.BatchCreatedData{}, err
	}

	return model.BatchCreatedData{
		TotalAmount:       totalAmount.String(),
		NormalisedBalance: normalisedBalance.String(),
		Owner:             owner.Hex(),
		Payer:             payer.Hex(),
		Depth:             depth,
		BucketDepth:       bucketDepth,
		Immutable:         immutable,
	}, nil
}

func (d *StampsRegistryDecoder) decodeBatchTopUp(log types.Log) (model.BatchTopUpData, error) {
	values, err := unpackEventData(d.contractABI.Events["BatchTopUp"], log.Data)
	if err != nil {
		return model.BatchTopUpData{}, err
	}
	if len(values) != 3 {
		return model.BatchTopUpData{}, fmt.Errorf("unexpected BatchTopUp values: %d", len(values))
	}

	payer, err := asAddress(values[0])
	if err != nil {
		return model.BatchTopUpData{}, err
	}
	topupAmount, err := asBigInt(values[1])
	if err != nil {
		return model.BatchTopUpData{}, err
	}
	normalisedBalance, err := asBigInt(values[2])
	if err != nil {
		return model.BatchTopUpData{}, err
	}

	return model.BatchTopUpData{
		TopupAmount:       topupAmount.String(),
		NormalisedBalance: normalisedBalance.String(),
		Payer:             payer.Hex(),
	}, nil
}

func (d *StampsRegistryDecoder) decodeBatchDepthIncrease(log types.Log) (model.BatchDepthIncreaseData, error) {
	values, err := unpackEventData(d.contractABI.Events["BatchDepthIncrease"], log.Data)
	if err != nil {
		return model.BatchDepthIncreaseData{}, err
	}
	if len(values) != 3 {
		return model.BatchDepthIncreaseData{}, fmt.Errorf("unexpected BatchDepthIncrease values: %d", len(values))
	}

	payer, err := asAddress(values[0])
	if err != nil {
		return model.BatchDepthIncreaseData{}, err
	}
	newDepth, err := asUint8(values[1])
	if err != nil {
		return model.BatchDepthIncreaseData{}, err
	}
	normalisedBalance, err := asBigInt(values[2])
	if err != nil {
		return model.BatchDepthIncreaseData{}, err
	}

	return model.BatchDepthIncreaseData{
		NewDepth:          newDepth,
		NormalisedBalance: normalisedBalance.String(),
		Payer:             payer.Hex(),
	}, nil
}
