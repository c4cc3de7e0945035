package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI fragments for the protocol contracts, limited to the methods this
// client calls. The contracts themselves are external collaborators; their
// business rules live on chain.

const registryABI = `[
  {"type":"function","name":"getTotalTickets","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getRecentTickets","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"tuple[]","components":[
    {"name":"id","type":"uint256"},
    {"name":"creator","type":"address"},
    {"name":"price","type":"uint256"},
    {"name":"eventName","type":"string"},
    {"name":"description","type":"string"},
    {"name":"eventTimestamp","type":"uint256"},
    {"name":"location","type":"string"},
    {"name":"closed","type":"bool"},
    {"name":"canceled","type":"bool"},
    {"name":"metadata","type":"string"},
    {"name":"maxSupply","type":"uint256"},
    {"name":"sold","type":"uint256"},
    {"name":"totalCollected","type":"uint256"},
    {"name":"totalRefunded","type":"uint256"},
    {"name":"proceedsWithdrawn","type":"bool"}]}]},
  {"type":"function","name":"tickets","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
    {"name":"id","type":"uint256"},
    {"name":"creator","type":"address"},
    {"name":"price","type":"uint256"},
    {"name":"eventName","type":"string"},
    {"name":"description","type":"string"},
    {"name":"eventTimestamp","type":"uint256"},
    {"name":"location","type":"string"},
    {"name":"closed","type":"bool"},
    {"name":"canceled","type":"bool"},
    {"name":"metadata","type":"string"},
    {"name":"maxSupply","type":"uint256"},
    {"name":"sold","type":"uint256"},
    {"name":"totalCollected","type":"uint256"},
    {"name":"totalRefunded","type":"uint256"},
    {"name":"proceedsWithdrawn","type":"bool"}]},
  {"type":"function","name":"isRegistered","stateMutability":"view","inputs":[{"name":"ticketId","type":"uint256"},{"name":"attendee","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"paidAmount","stateMutability":"view","inputs":[{"name":"ticketId","type":"uint256"},{"name":"attendee","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"registerForEvent","stateMutability":"payable","inputs":[{"name":"ticketId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimRefund","stateMutability":"nonpayable","inputs":[{"name":"ticketId","type":"uint256"}],"outputs":[]}
]`

const ticketNFTABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getTicketMetadata","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[
    {"name":"ticketId","type":"uint256"},
    {"name":"eventName","type":"string"},
    {"name":"issuedAt","type":"uint256"}]}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

const resaleABI = `[
  {"type":"function","name":"listTicket","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"buyTicket","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"listings","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[
    {"name":"seller","type":"address"},
    {"name":"price","type":"uint256"},
    {"name":"active","type":"bool"}]}
]`

const erc20ABI = `[
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Canonical contract names used in chain.ContractRef.
const (
	ContractRegistry  = "registry"
	ContractTicketNFT = "ticketnft"
	ContractResale    = "resale"
	ContractERC20     = "erc20"
)

// parseABIs parses the embedded fragments once per client.
func parseABIs() (map[string]abi.ABI, error) {
	sources := map[string]string{
		ContractRegistry:  registryABI,
		ContractTicketNFT: ticketNFTABI,
		ContractResale:    resaleABI,
		ContractERC20:     erc20ABI,
	}

	out := make(map[string]abi.ABI, len(sources))
	for name, src := range sources {
		parsed, err := abi.JSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s ABI: %w", name, err)
		}
		out[name] = parsed
	}
	return out, nil
}
