package pipeline

import (
	"fmt"
	"math/big"

	"github.com/ticketbase/ticketd/chain"
)

// ListingSteps builds the approve-then-list sequence for putting an owned
// ticket NFT on the resale market. The market cannot transfer the NFT
// until the approval for this exact token is confirmed, which is why the
// two writes are pipelined rather than fired together.
func ListingSteps(nft, resale chain.ContractRef, tokenID uint64, priceWei *big.Int) []StepSpec {
	return []StepSpec{
		{
			Name:     "approve marketplace",
			Contract: nft,
			Method:   "approve",
			Args:     []any{resale.Address, tokenID},
		},
		{
			Name:     fmt.Sprintf("list token #%d", tokenID),
			Contract: resale,
			Method:   "listTicket",
			Args:     []any{tokenID, priceWei},
		},
	}
}

// PurchaseSteps builds the single-step buy sequence for a listed token,
// attaching the asking price as native value.
func PurchaseSteps(resale chain.ContractRef, tokenID uint64, priceWei *big.Int) []StepSpec {
	return []StepSpec{
		{
			Name:     fmt.Sprintf("buy token #%d", tokenID),
			Contract: resale,
			Method:   "buyTicket",
			Args:     []any{tokenID},
			Value:    priceWei,
		},
	}
}
