// Package contentid maps human-readable content identifiers into the fixed
// 32-byte space used by the settlement contract.
//
// A value that is already "0x" followed by 64 hex characters is taken
// verbatim. Any other string is UTF-8 encoded into the leading bytes of the
// array and zero-filled after; the final byte is always zero, so at most 31
// bytes of text fit. Longer inputs are rejected rather than truncated.
//
// The layout is the one produced by ethers' encodeBytes32String and must stay
// in step with whatever tooling registers content on the contract.
package contentid

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
)

const (
	// Size is the width of a canonical identifier.
	Size = 32
	// MaxTextBytes is the longest string accepted for canonicalisation.
	MaxTextBytes = Size - 1
)

// ID is a canonical content identifier.
type ID [Size]byte

// Zero is the empty identifier.
var Zero ID

// Parse canonicalises raw into an ID.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return Zero, pkgerrors.New(pkgerrors.CodeValidation, "content id is required")
	}
	if isHex32(raw) {
		var id ID
		copy(id[:], common.FromHex(raw))
		return id, nil
	}
	return Encode(raw)
}

// Encode packs text into an ID without checking for the hex form.
func Encode(text string) (ID, error) {
	if text == "" {
		return Zero, pkgerrors.New(pkgerrors.CodeValidation, "content id is required")
	}
	if !utf8.ValidString(text) {
		return Zero, pkgerrors.New(pkgerrors.CodeValidation, "content id must be valid UTF-8")
	}
	if strings.IndexByte(text, 0) >= 0 {
		return Zero, pkgerrors.New(pkgerrors.CodeValidation, "content id must not contain NUL bytes")
	}
	if len(text) > MaxTextBytes {
		return Zero, pkgerrors.New(pkgerrors.CodeIdentifierTooLong,
			fmt.Sprintf("content id is %d bytes, at most %d allowed", len(text), MaxTextBytes)).
			WithDetails(map[string]any{"length": len(text), "max": MaxTextBytes})
	}
	var id ID
	copy(id[:], text)
	return id, nil
}

// Decode reverses Encode. It fails when the final byte is not zero or the
// text portion is not valid UTF-8.
func Decode(id ID) (string, error) {
	if id[Size-1] != 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identifier is not an encoded string")
	}
	end := bytes.IndexByte(id[:], 0)
	text := id[:end]
	if !utf8.Valid(text) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identifier is not valid UTF-8")
	}
	return string(text), nil
}

// Hex returns the 0x-prefixed lower-case hex form.
func (id ID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id ID) String() string {
	return id.Hex()
}

// IsZero reports whether the identifier is all zero bytes.
func (id ID) IsZero() bool {
	return id == Zero
}

// Bytes32 exposes the identifier as the array type expected by ABI packing.
func (id ID) Bytes32() [Size]byte {
	return [Size]byte(id)
}

func isHex32(raw string) bool {
	if len(raw) != 2+Size*2 || !(strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X")) {
		return false
	}
	_, err := hex.DecodeString(raw[2:])
	return err == nil
}
