// Package chainevents decodes the six raw event kinds this indexer consumes
// into typed records, matching by first event key (spec §4.3).
package chainevents

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/ammcontest/indexer/internal/felt"
)

// Event keys, derived the same way entry point selectors are (spec §9:
// "a tagged union plus a match on the first event key"). Computed once so a
// decoding mismatch would be a compile-time typo, not a copy-pasted wrong
// hex literal.
var (
	KeyPairCreated = felt.SelectorFromName("PairCreated")
	KeyTransfer    = felt.SelectorFromName("Transfer")
	KeySwap        = felt.SelectorFromName("Swap")
	KeySync        = felt.SelectorFromName("Sync")
	KeyMint        = felt.SelectorFromName("Mint")
	KeyBurn        = felt.SelectorFromName("Burn")
)

// RawEvent is the wire shape delivered by the stream (spec §6).
type RawEvent struct {
	FromAddress felt.Felt
	Keys        []felt.Felt
	Data        []felt.Felt
	TxHash      felt.Felt
	LogIndex    int64
}

// Kind tags the decoded variants so C6 can switch on a concrete type without
// runtime reflection.
type Kind int

const (
	KindUnknown Kind = iota
	KindPairCreated
	KindTransfer
	KindSwap
	KindSync
	KindMint
	KindBurn
)

type PairCreated struct {
	Token0     felt.Felt
	Token1     felt.Felt
	Pair       felt.Felt
	TotalPairs uint64
}

type Transfer struct {
	From  felt.Felt
	To    felt.Felt
	Value *uint256.Int
}

type Sync struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

type Mint struct {
	Sender  felt.Felt
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

type Burn struct {
	Sender  felt.Felt
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	To      felt.Felt
}

type Swap struct {
	Sender     felt.Felt
	Amount0In  *uint256.Int
	Amount1In  *uint256.Int
	Amount0Out *uint256.Int
	Amount1Out *uint256.Int
	To         felt.Felt
}

// Decoded wraps whichever variant Decode produced, tagged by Kind. Exactly
// one of the pointer fields is non-nil when Kind != KindUnknown.
type Decoded struct {
	Kind        Kind
	Raw         RawEvent
	PairCreated *PairCreated
	Transfer    *Transfer
	Sync        *Sync
	Mint        *Mint
	Burn        *Burn
	Swap        *Swap
}

// Decode matches ev.Keys[0] against the six known kinds and deserializes
// its positional felt/u256 payload. Unknown keys decode to KindUnknown: the
// caller logs and skips (spec §4.3, §7).
func Decode(ev RawEvent) (Decoded, error) {
	if len(ev.Keys) == 0 {
		return Decoded{Kind: KindUnknown, Raw: ev}, fmt.Errorf("chainevents: event has no keys")
	}

	switch ev.Keys[0] {
	case KeyPairCreated:
		if len(ev.Data) < 4 {
			return Decoded{}, fmt.Errorf("chainevents: PairCreated wants 4 felts, got %d", len(ev.Data))
		}
		return Decoded{Kind: KindPairCreated, Raw: ev, PairCreated: &PairCreated{
			Token0:     ev.Data[0],
			Token1:     ev.Data[1],
			Pair:       ev.Data[2],
			TotalPairs: ev.Data[3].Uint256().Uint64(),
		}}, nil

	case KeyTransfer:
		if len(ev.Data) < 4 {
			return Decoded{}, fmt.Errorf("chainevents: Transfer wants 4 felts, got %d", len(ev.Data))
		}
		return Decoded{Kind: KindTransfer, Raw: ev, Transfer: &Transfer{
			From:  ev.Data[0],
			To:    ev.Data[1],
			Value: felt.U256FromLimbs(ev.Data[2], ev.Data[3]),
		}}, nil

	case KeySync:
		if len(ev.Data) < 4 {
			return Decoded{}, fmt.Errorf("chainevents: Sync wants 4 felts, got %d", len(ev.Data))
		}
		return Decoded{Kind: KindSync, Raw: ev, Sync: &Sync{
			Reserve0: felt.U256FromLimbs(ev.Data[0], ev.Data[1]),
			Reserve1: felt.U256FromLimbs(ev.Data[2], ev.Data[3]),
		}}, nil

	case KeyMint:
		if len(ev.Data) < 5 {
			return Decoded{}, fmt.Errorf("chainevents: Mint wants 5 felts, got %d", len(ev.Data))
		}
		return Decoded{Kind: KindMint, Raw: ev, Mint: &Mint{
			Sender:  ev.Data[0],
			Amount0: felt.U256FromLimbs(ev.Data[1], ev.Data[2]),
			Amount1: felt.U256FromLimbs(ev.Data[3], ev.Data[4]),
		}}, nil

	case KeyBurn:
		if len(ev.Data) < 6 {
			return Decoded{}, fmt.Errorf("chainevents: Burn wants 6 felts, got %d", len(ev.Data))
		}
		return Decoded{Kind: KindBurn, Raw: ev, Burn: &Burn{
			Sender:  ev.Data[0],
			Amount0: felt.U256FromLimbs(ev.Data[1], ev.Data[2]),
			Amount1: felt.U256FromLimbs(ev.Data[3], ev.Data[4]),
			To:      ev.Data[5],
		}}, nil

	case KeySwap:
		if len(ev.Data) < 10 {
			return Decoded{}, fmt.Errorf("chainevents: Swap wants 10 felts, got %d", len(ev.Data))
		}
		return Decoded{Kind: KindSwap, Raw: ev, Swap: &Swap{
			Sender:     ev.Data[0],
			Amount0In:  felt.U256FromLimbs(ev.Data[1], ev.Data[2]),
			Amount1In:  felt.U256FromLimbs(ev.Data[3], ev.Data[4]),
			Amount0Out: felt.U256FromLimbs(ev.Data[5], ev.Data[6]),
			Amount1Out: felt.U256FromLimbs(ev.Data[7], ev.Data[8]),
			To:         ev.Data[9],
		}}, nil

	default:
		return Decoded{Kind: KindUnknown, Raw: ev}, nil
	}
}
