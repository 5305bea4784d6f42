package felt

import "github.com/ethereum/go-ethereum/crypto"

// mask250 zeroes the top six bits of a 32-byte buffer so the result fits
// the 250-bit range entry point selectors are drawn from.
func mask250(b []byte) {
	b[0] &= 0x03
}

// SelectorFromName derives a contract entry point selector the same way the
// network itself does: keccak256(name) masked into the 250-bit felt range.
// Call methods are resolved against one of these rather than a raw string,
// matching the wire format chainrpc sends over starknet_call.
func SelectorFromName(name string) Felt {
	h := crypto.Keccak256([]byte(name))
	mask250(h)
	return FeltFromBytes(h)
}
