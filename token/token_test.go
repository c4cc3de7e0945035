package token

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbase/ticketd/chain"
	clienterrors "github.com/ticketbase/ticketd/errors"
)

type stubGateway struct {
	out     []any
	lastKey string
}

func (s *stubGateway) Read(ctx context.Context, contract chain.ContractRef, method string, args ...any) ([]any, error) {
	s.lastKey = contract.Address + "." + method
	return s.out, nil
}

func (s *stubGateway) Write(ctx context.Context, contract chain.ContractRef, method string, args []any, value *big.Int) (chain.TxHandle, error) {
	return "0x0", nil
}

func (s *stubGateway) AwaitReceipt(ctx context.Context, handle chain.TxHandle) (*chain.Receipt, error) {
	return &chain.Receipt{Success: true}, nil
}

func TestNativeNeedsNoApproval(t *testing.T) {
	a := Native()
	assert.True(t, a.IsNative())
	assert.False(t, a.NeedsApproval())

	_, err := a.ApproveStep("0x0000000000000000000000000000000000000002", big.NewInt(1))
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))

	_, err = a.Allowance(context.Background(), &stubGateway{}, "0x1", "0x2")
	require.Error(t, err)
}

func TestERC20ApproveStep(t *testing.T) {
	a := USDC()
	assert.True(t, a.NeedsApproval())
	assert.Equal(t, BaseUSDC, a.Address())
	assert.Equal(t, int32(6), a.Decimals())

	step, err := a.ApproveStep("0x0000000000000000000000000000000000000002", big.NewInt(5_000_000))
	require.NoError(t, err)
	assert.Equal(t, "approve", step.Method)
	assert.Equal(t, BaseUSDC, step.Contract.Address)
	assert.Nil(t, step.Value)
}

func TestERC20Reads(t *testing.T) {
	gw := &stubGateway{out: []any{big.NewInt(42)}}
	a := USDT()

	balance, err := a.BalanceOf(context.Background(), gw, "0x1")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), balance)
	assert.Equal(t, BaseUSDT+".balanceOf", gw.lastKey)

	allowance, err := a.Allowance(context.Background(), gw, "0x1", "0x2")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), allowance)
}

func TestFormatUsesAssetDecimals(t *testing.T) {
	assert.Equal(t, "1.5", USDC().Format(big.NewInt(1_500_000)))
	assert.Equal(t, "0.001", Native().Format(big.NewInt(1e15)))
	assert.Equal(t, "0", USDC().Format(nil))
}
