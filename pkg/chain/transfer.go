package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transfer is a decoded ERC-20 Transfer log.
type Transfer struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
	Index uint
}

// TransferEventID is topic0 of Transfer(address,address,uint256).
var TransferEventID = ERC20ABI.Events["Transfer"].ID

// DecodeTransfer decodes log as a Transfer event. ok is false for any log
// that is not a well-formed Transfer.
func DecodeTransfer(log *types.Log) (Transfer, bool) {
	if log == nil || len(log.Topics) != 3 || log.Topics[0] != TransferEventID {
		return Transfer{}, false
	}
	values, err := ERC20ABI.Events["Transfer"].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 1 {
		return Transfer{}, false
	}
	value, ok := values[0].(*big.Int)
	if !ok || value == nil {
		return Transfer{}, false
	}
	return Transfer{
		Token: log.Address,
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: value,
		Index: log.Index,
	}, true
}

// TransfersOf returns every Transfer emitted by token, in log order.
func TransfersOf(logs []*types.Log, token common.Address) []Transfer {
	var out []Transfer
	for _, l := range logs {
		if l == nil || l.Address != token {
			continue
		}
		if tr, ok := DecodeTransfer(l); ok {
			out = append(out, tr)
		}
	}
	return out
}

// TransferLog builds a Transfer log for token. Used by fixtures and local tooling.
func TransferLog(token, from, to common.Address, value *big.Int) *types.Log {
	data, err := ERC20ABI.Events["Transfer"].Inputs.NonIndexed().Pack(value)
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			TransferEventID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: data,
	}
}
