package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrorKind classifies RPC failures at the transport boundary so retry
// logic can match on a type instead of inspecting error text.
type ErrorKind int

const (
	// KindTransport covers node-unreachable, timeouts, and malformed
	// responses. Not retried by the rate-limit policy.
	KindTransport ErrorKind = iota
	// KindRateLimited marks HTTP 429 and provider "too many requests"
	// responses. The only kind the default retry classifier retries.
	KindRateLimited
	// KindProtocol covers JSON-RPC level errors reported by the node.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindProtocol:
		return "protocol"
	default:
		return "transport"
	}
}

// RPCError wraps an upstream failure with its classified kind.
type RPCError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err carries a rate-limit classification.
func IsRateLimited(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Kind == KindRateLimited
}

// classify wraps an upstream error with its kind. Provider-specific
// rate-limit text is inspected here and nowhere else.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return &RPCError{Kind: KindRateLimited, Op: op, Err: err}
		}
		return &RPCError{Kind: KindTransport, Op: op, Err: err}
	}

	var jsonErr rpc.Error
	if errors.As(err, &jsonErr) {
		if isRateLimitMessage(jsonErr.Error()) {
			return &RPCError{Kind: KindRateLimited, Op: op, Err: err}
		}
		return &RPCError{Kind: KindProtocol, Op: op, Err: err}
	}

	if isRateLimitMessage(err.Error()) {
		return &RPCError{Kind: KindRateLimited, Op: op, Err: err}
	}

	return &RPCError{Kind: KindTransport, Op: op, Err: err}
}

func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "too many requests") || strings.Contains(lower, "429")
}
