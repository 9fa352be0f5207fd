package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRateLimitMessage(t *testing.T) {
	err := classify("filter logs", errors.New("backend error: Too Many Requests"))

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, KindRateLimited, rpcErr.Kind)
	assert.True(t, IsRateLimited(err))
}

func TestClassifyHTTP429(t *testing.T) {
	err := classify("filter logs", rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"})
	assert.True(t, IsRateLimited(err))

	err = classify("filter logs", rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"})
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, KindTransport, rpcErr.Kind)
}

func TestClassifyStatusCodeText(t *testing.T) {
	err := classify("latest block", errors.New("unexpected status 429 from provider"))
	assert.True(t, IsRateLimited(err))
}

func TestClassifyTransportDefault(t *testing.T) {
	err := classify("dial", errors.New("connection refused"))

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, KindTransport, rpcErr.Kind)
	assert.False(t, IsRateLimited(err))
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, classify("noop", nil))
}

func TestRPCErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := classify("call contract", inner)
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "call contract")
}

func TestIsRateLimitedWrapped(t *testing.T) {
	err := fmt.Errorf("fetch chunk 100-199: %w", classify("filter logs", errors.New("too many requests")))
	assert.True(t, IsRateLimited(err))
}
