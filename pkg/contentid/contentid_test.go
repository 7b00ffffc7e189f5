package contentid

import (
	"strings"
	"testing"

	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	inputs := []string{
		"a",
		"article-1",
		"héllo wörld",
		"日本語のタイトル",
		strings.Repeat("x", MaxTextBytes),
	}
	for _, in := range inputs {
		id, err := Encode(in)
		if err != nil {
			t.Fatalf("encode %q: %v", in, err)
		}
		if id[Size-1] != 0 {
			t.Fatalf("reserved byte must stay zero for %q", in)
		}
		out, err := Decode(id)
		if err != nil {
			t.Fatalf("decode %q: %v", in, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: %q != %q", out, in)
		}
	}
}

func TestEncodeRejectsTooLong(t *testing.T) {
	_, err := Encode(strings.Repeat("x", MaxTextBytes+1))
	if !pkgerrors.Is(err, pkgerrors.CodeIdentifierTooLong) {
		t.Fatalf("expected IDENTIFIER_TOO_LONG, got %v", err)
	}

	// 11 three-byte runes is 33 bytes even though it is only 11 characters.
	_, err = Encode(strings.Repeat("語", 11))
	if !pkgerrors.Is(err, pkgerrors.CodeIdentifierTooLong) {
		t.Fatalf("byte budget should apply to encoded length, got %v", err)
	}
}

func TestEncodeRejectsEmptyAndNUL(t *testing.T) {
	if _, err := Encode(""); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
	if _, err := Encode("a\x00b"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for NUL input, got %v", err)
	}
}

func TestParseAcceptsPreformattedHex(t *testing.T) {
	raw := "0x" + strings.Repeat("ab", Size)
	id, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Hex() != raw {
		t.Fatalf("expected verbatim hex, got %s", id.Hex())
	}

	upper := "0X" + strings.Repeat("AB", Size)
	id2, err := Parse(upper)
	if err != nil {
		t.Fatalf("parse upper: %v", err)
	}
	if id2 != id {
		t.Fatalf("hex parsing should be case-insensitive")
	}
}

func TestParseTreatsShortHexAsText(t *testing.T) {
	id, err := Parse("0xabc")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	text, err := Decode(id)
	if err != nil || text != "0xabc" {
		t.Fatalf("expected text encoding, got %q err=%v", text, err)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	a, _ := Parse("article-1")
	b, _ := Parse("article-1")
	c, _ := Parse("article-2")
	if a != b {
		t.Fatalf("same input must yield same id")
	}
	if a == c {
		t.Fatalf("different inputs must yield different ids")
	}
}

func TestDecodeRejectsNonTerminated(t *testing.T) {
	var id ID
	for i := range id {
		id[i] = 'a'
	}
	if _, err := Decode(id); err == nil {
		t.Fatalf("expected error for id without reserved zero byte")
	}
}

func TestEncodeMatchesRegistrationLayout(t *testing.T) {
	id, err := Encode("hello")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "0x68656c6c6f" + strings.Repeat("00", Size-5)
	if got := id.Hex(); got != want {
		t.Fatalf("expected text in leading bytes, got %s", got)
	}
}
