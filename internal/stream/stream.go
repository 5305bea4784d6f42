// Package stream defines the indexer's view of the upstream block/event
// feed (an external collaborator per spec §1/§6): an ordered, filterable,
// cursor-resumable subscription the runtime consumes one block at a time.
package stream

import (
	"context"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
)

// Header mirrors the wire block header (spec §6).
type Header struct {
	Number     uint64
	Hash       string
	ParentHash string
	Timestamp  int64
}

// Block is one delivery from the stream: a header plus every event that
// matched the current filter within it, in emission order.
type Block struct {
	Header Header
	Events []chainevents.RawEvent
}

// FilterEntry is a single (from_address, key[0]) subscription tuple.
type FilterEntry struct {
	FromAddress felt.Felt
	Key         felt.Felt
}

// Subscriber is the narrow interface C5 drives: pull the next ordered
// block, reconnecting internally on transient disconnects so the caller
// only ever sees the "keep calling Next" contract.
type Subscriber interface {
	// Next blocks until the next ordered block is available, or ctx is
	// canceled. A returned error other than context cancellation means the
	// stream gave up reconnecting and the runtime should restart (spec §7).
	Next(ctx context.Context) (Block, error)
	// AddFilter widens the live subscription at runtime — used after every
	// PairCreated to start tracking the new pair's five event keys (spec
	// §4.5).
	AddFilter(ctx context.Context, entries ...FilterEntry) error
	Close() error
}
