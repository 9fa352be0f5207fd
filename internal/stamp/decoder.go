package stamp

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/significance/beeport-stamp-stats-sub000/internal/model"
)

// Contract type names accepted in configuration.
const (
	TypePostageStamp   = "postageStamp"
	TypeStampsRegistry = "stampsRegistry"
)

// Caller performs read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Decoder turns raw logs of one contract deployment into canonical events.
//
// Decode returns (nil, nil) for logs that match no known event signature;
// unrelated events emitted on the same address are expected and skipped.
// A log that matches a signature but fails field decoding is a hard error:
// it signals an ABI mismatch and must abort the enclosing chunk.
type Decoder interface {
	Name() string
	Address() common.Address
	DeploymentBlock() uint64
	Decode(log types.Log, blockTimestamp uint64) (*model.Event, error)

	// Capabilities for the read path. Both default to false; the live
	// price and balance methods error when unsupported.
	SupportsPriceQuery() bool
	SupportsBalanceQuery() bool
	LastPrice(ctx context.Context, caller Caller) (*big.Int, error)
	RemainingBalance(ctx context.Context, caller Caller, batchID common.Hash) (*big.Int, error)
}

// ContractConfig describes one contract deployment to decode.
type ContractConfig struct {
	Name            string
	Type            string
	Address         string
	DeploymentBlock uint64
}

// Registry holds the closed set of decoders built from configuration.
type Registry struct {
	decoders []Decoder
}

// NewRegistry validates the contract list and builds its decoders.
func NewRegistry(contracts []ContractConfig) (*Registry, error) {
	if len(contracts) == 0 {
		return nil, fmt.Errorf("at least one contract is required")
	}

	decoders := make([]Decoder, 0, len(contracts))
	for _, contract := range contracts {
		if contract.Name == "" {
			return nil, fmt.Errorf("contract name is required")
		}
		if !common.IsHexAddress(contract.Address) {
			return nil, fmt.Errorf("invalid contract address for %s: %s", contract.Name, contract.Address)
		}

		address := common.HexToAddress(contract.Address)
		switch strings.TrimSpace(contract.Type) {
		case TypePostageStamp:
			decoder, err := NewPostageStampDecoder(contract.Name, address, contract.DeploymentBlock)
			if err != nil {
				return nil, err
			}
			decoders = append(decoders, decoder)
		case TypeStampsRegistry:
			decoder, err := NewStampsRegistryDecoder(contract.Name, address, contract.DeploymentBlock)
			if err != nil {
				return nil, err
			}
			decoders = append(decoders, decoder)
		default:
			return nil, fmt.Errorf("unsupported contract type for %s: %s", contract.Name, contract.Type)
		}
	}

	return &Registry{decoders: decoders}, nil
}

// Decoders returns the decoders in configuration order.
func (r *Registry) Decoders() []Decoder {
	return r.decoders
}

// PriceSource returns the first decoder able to answer live price queries.
func (r *Registry) PriceSource() (Decoder, bool) {
	for _, d := range r.decoders {
		if d.SupportsPriceQuery() {
			return d, true
		}
	}
	return nil, false
}

// BalanceSource returns the first decoder able to answer live balance queries.
func (r *Registry) BalanceSource() (Decoder, bool) {
	for _, d := range r.decoders {
		if d.SupportsBalanceQuery() {
			return d, true
		}
	}
	return nil, false
}
