// Package chain defines the gateway boundary between ticketd's components
// and the underlying blockchain. The components never touch an RPC client
// directly; they issue reads, writes, and receipt waits through the Gateway
// interface, which chain/evm implements with go-ethereum.
package chain

import (
	"context"
	"math/big"
)

// ContractRef identifies one deployed contract the client talks to. The
// gateway implementation resolves the name to a parsed ABI.
type ContractRef struct {
	Name    string // ABI registry key: "registry", "ticketnft", "resale", "erc20"
	Address string // hex address
}

// TxHandle identifies a submitted transaction (the tx hash for EVM).
type TxHandle string

// Receipt is the confirmed outcome of a submitted transaction.
type Receipt struct {
	TxHash      string
	Success     bool
	BlockNumber uint64
}

// Gateway exposes the three chain operations the components need. All
// calls are independently retryable by the caller; the gateway itself only
// retries transient read failures internally.
type Gateway interface {
	// Read performs an eth_call against the contract and returns the
	// unpacked output values in ABI declaration order.
	Read(ctx context.Context, contract ContractRef, method string, args ...any) ([]any, error)

	// Write signs and submits a state-changing call. value, when non-nil,
	// is attached as native currency. Returns as soon as the transaction
	// is accepted by the RPC node.
	Write(ctx context.Context, contract ContractRef, method string, args []any, value *big.Int) (TxHandle, error)

	// AwaitReceipt blocks until the transaction is mined or ctx is
	// canceled. No timeout is enforced here; a stalled wait stalls the
	// caller.
	AwaitReceipt(ctx context.Context, handle TxHandle) (*Receipt, error)
}
