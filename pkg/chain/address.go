package chain

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
)

var txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ParseAddress validates a 0x-prefixed hex address. field names the input in
// the validation error.
func ParseAddress(field, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if (!strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X")) || !common.IsHexAddress(raw) {
		return common.Address{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a 0x-prefixed 20-byte hex address").
			WithDetails(map[string]any{"field": field})
	}
	return common.HexToAddress(raw), nil
}

// ParseTxHash validates a 0x-prefixed 32-byte transaction hash.
func ParseTxHash(raw string) (common.Hash, error) {
	raw = strings.TrimSpace(raw)
	if !txHashRe.MatchString(raw) {
		return common.Hash{}, pkgerrors.New(pkgerrors.CodeValidation, "tx hash must be a 0x-prefixed 32-byte hex string").
			WithDetails(map[string]any{"field": "txHash"})
	}
	return common.HexToHash(raw), nil
}

// Lower renders an address as case-folded hex, the form used in store keys.
func Lower(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
