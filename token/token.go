// Package token abstracts the payment asset: native coin or an
// ERC-20-style token. Callers compose the same approve-then-pay flow for
// both kinds; the native asset simply contributes no approval step.
package token

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/ticketbase/ticketd/chain"
	clienterrors "github.com/ticketbase/ticketd/errors"
	"github.com/ticketbase/ticketd/pipeline"
)

// Known stablecoin deployments on Base mainnet. Both use 6 decimals.
const (
	BaseUSDC = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	BaseUSDT = "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2"
)

// Asset is a tagged variant: either the chain's native coin or an ERC-20
// contract.
type Asset struct {
	address  string
	decimals int32
	native   bool
}

// Native returns the native-coin asset (18 decimals).
func Native() Asset {
	return Asset{native: true, decimals: 18}
}

// ERC20 returns a token asset at the given contract address.
func ERC20(address string, decimals int32) Asset {
	return Asset{address: address, decimals: decimals}
}

// USDC returns the Base mainnet USDC asset.
func USDC() Asset { return ERC20(BaseUSDC, 6) }

// USDT returns the Base mainnet USDT asset.
func USDT() Asset { return ERC20(BaseUSDT, 6) }

// IsNative reports whether the asset is the native coin.
func (a Asset) IsNative() bool { return a.native }

// Address returns the token contract address; empty for the native coin.
func (a Asset) Address() string { return a.address }

// Decimals returns the asset's display decimals.
func (a Asset) Decimals() int32 { return a.decimals }

// NeedsApproval reports whether a spender allowance must be granted
// before the asset can be pulled by a contract.
func (a Asset) NeedsApproval() bool { return !a.native }

// contractRef points chain reads and writes at the token contract.
func (a Asset) contractRef() chain.ContractRef {
	return chain.ContractRef{Name: "erc20", Address: a.address}
}

// ApproveStep builds the pipeline step granting spender an allowance of
// amount. Native assets have no approval; asking for one is a caller bug.
func (a Asset) ApproveStep(spender string, amount *big.Int) (pipeline.StepSpec, error) {
	if a.native {
		return pipeline.StepSpec{}, clienterrors.NewInvalidInput("native asset needs no approval")
	}
	return pipeline.StepSpec{
		Name:     "approve payment token",
		Contract: a.contractRef(),
		Method:   "approve",
		Args:     []any{spender, amount},
	}, nil
}

// BalanceOf reads the owner's balance of the asset. Native balances are
// not readable through the contract ABI layer and return InvalidInput.
func (a Asset) BalanceOf(ctx context.Context, gw chain.Gateway, owner string) (*big.Int, error) {
	if a.native {
		return nil, clienterrors.NewInvalidInput("native balance is read from the node, not a contract")
	}
	out, err := gw.Read(ctx, a.contractRef(), "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return firstBig(out)
}

// Allowance reads the spender's remaining allowance from owner. The
// native asset has no allowance concept; calling this on it is rejected.
func (a Asset) Allowance(ctx context.Context, gw chain.Gateway, owner, spender string) (*big.Int, error) {
	if a.native {
		return nil, clienterrors.NewInvalidInput("native asset has no allowance")
	}
	out, err := gw.Read(ctx, a.contractRef(), "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return firstBig(out)
}

// Format renders a raw amount using the asset's decimals, trailing zeros
// trimmed.
func (a Asset) Format(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -a.decimals).String()
}

func firstBig(out []any) (*big.Int, error) {
	if len(out) == 0 {
		return nil, clienterrors.New(clienterrors.CodeGateway, "empty contract output")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, clienterrors.New(clienterrors.CodeGateway, "unexpected contract output type")
	}
	return v, nil
}
