// Package felt provides the field-element, 256-bit integer, and fixed-point
// decimal codecs shared by every other package in this module.
package felt

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Felt is a 252-bit field element, stored as a fixed 32-byte big-endian
// buffer. The high 4 bits are always zero (252 bits fit in 32 bytes with
// room to spare), matching the wire format of the events we decode.
type Felt [32]byte

// ZeroFelt is the additive identity, used throughout the Transfer
// reconciliation protocol as the mint/burn sentinel address.
var ZeroFelt = Felt{}

// FeltFromBytes copies b (big-endian, left-padded or truncated to 32 bytes)
// into a Felt.
func FeltFromBytes(b []byte) Felt {
	var f Felt
	if len(b) >= 32 {
		copy(f[:], b[len(b)-32:])
	} else {
		copy(f[32-len(b):], b)
	}
	return f
}

// FeltFromUint64 builds a Felt from a small non-negative integer.
func FeltFromUint64(v uint64) Felt {
	var f Felt
	for i := 0; i < 8; i++ {
		f[31-i] = byte(v >> (8 * i))
	}
	return f
}

// Hex returns the canonical storage id form: lowercase, 0x-prefixed, no
// leading-zero padding (but "0x0" for the zero value).
func (f Felt) Hex() string {
	i := 0
	for i < len(f) && f[i] == 0 {
		i++
	}
	if i == len(f) {
		return "0x0"
	}
	return "0x" + strings.TrimLeft(hex.EncodeToString(f[i:]), "0")
}

// String implements fmt.Stringer so Felt prints as its canonical hex form.
func (f Felt) String() string { return f.Hex() }

// FeltFromHex parses the canonical (or zero-padded) hex form back into a Felt.
func FeltFromHex(s string) (Felt, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		s = "0"
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Felt{}, fmt.Errorf("felt: invalid hex %q: %w", s, err)
	}
	if len(b) > 32 {
		return Felt{}, fmt.Errorf("felt: hex %q overflows 32 bytes", s)
	}
	return FeltFromBytes(b), nil
}

// IsZero reports whether f is the additive identity.
func (f Felt) IsZero() bool { return f == ZeroFelt }

// Uint256 reinterprets the felt as a 256-bit unsigned integer.
func (f Felt) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes(f[:])
}

// U256FromLimbs composes a 256-bit integer from two 128-bit limbs as
// described in spec §4.1: u256(lo, hi) = lo + (hi << 128).
func U256FromLimbs(lo, hi Felt) *uint256.Int {
	result := new(uint256.Int).SetBytes(lo[:])
	hiInt := new(uint256.Int).SetBytes(hi[:])
	hiInt.Lsh(hiInt, 128)
	return result.Add(result, hiInt)
}

// TrimShortString trims trailing NUL bytes from a short-string felt payload,
// used to decode `name`/`symbol` RPC results (spec §4.2).
func TrimShortString(f Felt) string {
	i := 0
	for i < len(f) && f[i] == 0 {
		i++
	}
	return strings.TrimRight(string(f[i:]), "\x00")
}
