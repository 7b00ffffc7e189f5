package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Read-only subset of the settlement contract.
const settlementABIJSON = `[
  {"type":"function","name":"getContent","stateMutability":"view",
   "inputs":[{"name":"contentId","type":"bytes32"}],
   "outputs":[
     {"name":"creator","type":"address"},
     {"name":"price","type":"uint256"},
     {"name":"ipfsHash","type":"string"},
     {"name":"isActive","type":"bool"},
     {"name":"createdAt","type":"uint256"}]},
  {"type":"function","name":"checkAccess","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"},{"name":"contentId","type":"bytes32"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

// ERC-20 Transfer event.
const erc20ABIJSON = `[
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[
     {"name":"from","type":"address","indexed":true},
     {"name":"to","type":"address","indexed":true},
     {"name":"value","type":"uint256","indexed":false}]}
]`

var (
	SettlementABI = mustParseABI(settlementABIJSON)
	ERC20ABI      = mustParseABI(erc20ABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
