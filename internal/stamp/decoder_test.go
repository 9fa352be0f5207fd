package stamp

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

var testBatchID = common.HexToHash("0x8a9c7e3b000000000000000000000000000000000000000000000000000000aa")

func buildLog(address common.Address, topic0 common.Hash, data []byte) types.Log {
	return types.Log{
		Address:     address,
		Topics:      []common.Hash{topic0, testBatchID},
		Data:        data,
		BlockNumber: 25_000_100,
		TxHash:      common.HexToHash("0xdddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd"),
		Index:       7,
	}
}

func TestPostageStampDecoderBatchCreated(t *testing.T) {
	contractABI, err := PostageStampABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder, err := NewPostageStampDecoder("postage", address, 25_000_000)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")
	data, err := contractABI.Events["BatchCreated"].Inputs.NonIndexed().Pack(
		big.NewInt(1_000_000_000),
		big.NewInt(50_000_000),
		owner,
		uint8(20),
		uint8(16),
		true,
	)
	if err != nil {
		t.Fatalf("pack BatchCreated: %v", err)
	}

	event, err := decoder.Decode(buildLog(address, contractABI.Events["BatchCreated"].ID, data), 1_700_000_000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event == nil {
		t.Fatalf("expected event")
	}

	if event.Kind != model.KindBatchCreated {
		t.Fatalf("kind mismatch: %s", event.Kind)
	}
	if event.BatchID != testBatchID.Hex() {
		t.Fatalf("batch id mismatch: %s", event.BatchID)
	}
	if event.BlockNumber != 25_000_100 || event.BlockTimestamp != 1_700_000_000 {
		t.Fatalf("block fields mismatch: %+v", event)
	}
	if event.ContractSource != "postage" {
		t.Fatalf("contract source mismatch: %s", event.ContractSource)
	}

	payload, ok := event.Payload.(model.BatchCreatedData)
	if !ok {
		t.Fatalf("payload type mismatch: %T", event.Payload)
	}
	if payload.TotalAmount != "1000000000" || payload.NormalisedBalance != "50000000" {
		t.Fatalf("amounts mismatch: %+v", payload)
	}
	if payload.Owner != owner.Hex() || payload.Depth != 20 || payload.BucketDepth != 16 || !payload.Immutable {
		t.Fatalf("fields mismatch: %+v", payload)
	}
	if payload.Payer != "" {
		t.Fatalf("legacy contract has no payer: %+v", payload)
	}
}

func TestPostageStampDecoderTopUpAndDepthIncrease(t *testing.T) {
	contractABI, err := PostageStampABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder, err := NewPostageStampDecoder("postage", address, 25_000_000)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	topUpData, err := contractABI.Events["BatchTopUp"].Inputs.NonIndexed().Pack(
		big.NewInt(7_000),
		big.NewInt(57_000_000),
	)
	if err != nil {
		t.Fatalf("pack BatchTopUp: %v", err)
	}

	event, err := decoder.Decode(buildLog(address, contractABI.Events["BatchTopUp"].ID, topUpData), 0)
	if err != nil {
		t.Fatalf("decode top up: %v", err)
	}
	topUp, ok := event.Payload.(model.BatchTopUpData)
	if !ok {
		t.Fatalf("payload type mismatch: %T", event.Payload)
	}
	if topUp.TopupAmount != "7000" || topUp.NormalisedBalance != "57000000" {
		t.Fatalf("top up mismatch: %+v", topUp)
	}

	depthData, err := contractABI.Events["BatchDepthIncrease"].Inputs.NonIndexed().Pack(
		uint8(22),
		big.NewInt(30_000_000),
	)
	if err != nil {
		t.Fatalf("pack BatchDepthIncrease: %v", err)
	}

	event, err = decoder.Decode(buildLog(address, contractABI.Events["BatchDepthIncrease"].ID, depthData), 0)
	if err != nil {
		t.Fatalf("decode depth increase: %v", err)
	}
	depth, ok := event.Payload.(model.BatchDepthIncreaseData)
	if !ok {
		t.Fatalf("payload type mismatch: %T", event.Payload)
	}
	if depth.NewDepth != 22 || depth.NormalisedBalance != "30000000" {
		t.Fatalf("depth increase mismatch: %+v", depth)
	}
}

func TestStampsRegistryDecoderPayerFields(t *testing.T) {
	contractABI, err := StampsRegistryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	address := common.HexToAddress("0x4444444444444444444444444444444444444444")
	decoder, err := NewStampsRegistryDecoder("registry", address, 30_000_000)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")
	payer := common.HexToAddress("0x5555555555555555555555555555555555555555")
	data, err := contractABI.Events["BatchCreated"].Inputs.NonIndexed().Pack(
		big.NewInt(9_000_000),
		big.NewInt(4_500_000),
		owner,
		payer,
		uint8(17),
		uint8(16),
		false,
	)
	if err != nil {
		t.Fatalf("pack BatchCreated: %v", err)
	}

	event, err := decoder.Decode(buildLog(address, contractABI.Events["BatchCreated"].ID, data), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	payload, ok := event.Payload.(model.BatchCreatedData)
	if !ok {
		t.Fatalf("payload type mismatch: %T", event.Payload)
	}
	if payload.Payer != payer.Hex() {
		t.Fatalf("payer mismatch: %+v", payload)
	}
	if payload.Owner != owner.Hex() || payload.Depth != 17 {
		t.Fatalf("fields mismatch: %+v", payload)
	}
}

func TestDecodeUnrecognizedTopicSkipped(t *testing.T) {
	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder, err := NewPostageStampDecoder("postage", address, 0)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	unknown := common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	event, err := decoder.Decode(buildLog(address, unknown, nil), 0)
	if err != nil {
		t.Fatalf("unrecognized topic must not error: %v", err)
	}
	if event != nil {
		t.Fatalf("unrecognized topic must yield no event")
	}
}

func TestDecodeMalformedDataIsError(t *testing.T) {
	contractABI, err := PostageStampABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	address := common.HexToAddress("0x1111111111111111111111111111111111111111")
	decoder, err := NewPostageStampDecoder("postage", address, 0)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	// Matching topic0 with truncated data signals an ABI mismatch.
	log := buildLog(address, contractABI.Events["BatchCreated"].ID, []byte{0x01, 0x02})
	if _, err := decoder.Decode(log, 0); err == nil {
		t.Fatalf("expected decode error for malformed data")
	}
}

func TestRegistryCapabilityLookup(t *testing.T) {
	registry, err := NewRegistry([]ContractConfig{
		{Name: "registry", Type: TypeStampsRegistry, Address: "0x4444444444444444444444444444444444444444", DeploymentBlock: 30_000_000},
		{Name: "postage", Type: TypePostageStamp, Address: "0x1111111111111111111111111111111111111111", DeploymentBlock: 25_000_000},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	price, ok := registry.PriceSource()
	if !ok || price.Name() != "postage" {
		t.Fatalf("expected postage as price source")
	}
	balance, ok := registry.BalanceSource()
	if !ok || balance.Name() != "postage" {
		t.Fatalf("expected postage as balance source")
	}
	if len(registry.Decoders()) != 2 {
		t.Fatalf("expected two decoders")
	}
}

func TestRegistryRejectsInvalidConfig(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("expected error for empty contract list")
	}
	if _, err := NewRegistry([]ContractConfig{{Name: "bad", Type: TypePostageStamp, Address: "not-an-address"}}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
	if _, err := NewRegistry([]ContractConfig{{Name: "bad", Type: "erc20", Address: "0x1111111111111111111111111111111111111111"}}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
