package stamp

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const postageStampABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "batchId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "totalAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "normalisedBalance", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "uint8", "name": "depth", "type": "uint8"},
      {"indexed": false, "internalType": "uint8", "name": "bucketDepth", "type": "uint8"},
      {"indexed": false, "internalType": "bool", "name": "immutableFlag", "type": "bool"}
    ],
    "name": "BatchCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "batchId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "topupAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "normalisedBalance", "type": "uint256"}
    ],
    "name": "BatchTopUp",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "batchId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint8", "name": "newDepth", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "normalisedBalance", "type": "uint256"}
    ],
    "name": "BatchDepthIncrease",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "lastPrice",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "_batchId", "type": "bytes32"}],
    "name": "remainingBalance",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const stampsRegistryABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "batchId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "totalAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "normalisedBalance", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "payer", "type": "address"},
      {"indexed": false, "internalType": "uint8", "name": "depth", "type": "uint8"},
      {"indexed": false, "internalType": "uint8", "name": "bucketDepth", "type": "uint8"},
      {"indexed": false, "internalType": "bool", "name": "immutableFlag", "type": "bool"}
    ],
    "name": "BatchCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "batchId", "type": "bytes32"},
      {"indexed": false, "internalType": "address", "name": "payer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "topupAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "normalisedBalance", "type": "uint256"}
    ],
    "name": "BatchTopUp",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "batchId", "type": "bytes32"},
      {"indexed": false, "internalType": "address", "name": "payer", "type": "address"},
      {"indexed": false, "internalType": "uint8", "name": "newDepth", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "normalisedBalance", "type": "uint256"}
    ],
    "name": "BatchDepthIncrease",
    "type": "event"
  }
]`

var (
	postageStampABI     abi.ABI
	postageStampABIOnce sync.Once
	postageStampABIErr  error

	stampsRegistryABI     abi.ABI
	stampsRegistryABIOnce sync.Once
	stampsRegistryABIErr  error
)

// PostageStampABI returns the parsed postage stamp contract ABI.
func PostageStampABI() (abi.ABI, error) {
	postageStampABIOnce.Do(func() {
		postageStampABI, postageStampABIErr = abi.JSON(strings.NewReader(postageStampABIJSON))
	})
	return postageStampABI, postageStampABIErr
}

// StampsRegistryABI returns the parsed stamps registry contract ABI.
func StampsRegistryABI() (abi.ABI, error) {
	stampsRegistryABIOnce.Do(func() {
		stampsRegistryABI, stampsRegistryABIErr = abi.JSON(strings.NewReader(stampsRegistryABIJSON))
	})
	return stampsRegistryABI, stampsRegistryABIErr
}
