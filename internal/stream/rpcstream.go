package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
)

// RPCSubscriber implements Subscriber over go-ethereum's JSON-RPC
// pub-sub client, the same transport this module already uses for C2 reads.
// It retries the underlying subscription forever on disconnect (spec §7:
// stream-disconnect is retried with backoff, never surfaced to the caller).
type RPCSubscriber struct {
	url       string
	fromBlock uint64

	mu      sync.Mutex
	client  *gethrpc.Client
	sub     *gethrpc.ClientSubscription
	ch      chan json.RawMessage
	filters []FilterEntry
}

type wireBlock struct {
	Header struct {
		Number     uint64 `json:"number"`
		Hash       string `json:"hash"`
		ParentHash string `json:"parent_hash"`
		Timestamp  int64  `json:"timestamp"`
	} `json:"header"`
	Events []struct {
		FromAddress string   `json:"from_address"`
		Keys        []string `json:"keys"`
		Data        []string `json:"data"`
		TxHash      string   `json:"transaction_hash"`
		LogIndex    int64    `json:"log_index"`
	} `json:"events"`
}

// NewRPCSubscriber dials url and opens the initial subscription described
// by filters (spec §4.5: factory address + PairCreated key, plus a weak
// header so the stream also delivers blocks with no matching events),
// starting from the fixed boot cursor fromBlock named in spec §4.5 (ignored
// on every reconnect after the first — the upstream stream itself tracks
// delivery progress for a live subscription; fromBlock only seeds where a
// brand-new subscription begins).
func NewRPCSubscriber(ctx context.Context, url string, fromBlock uint64, filters []FilterEntry) (*RPCSubscriber, error) {
	s := &RPCSubscriber{url: url, fromBlock: fromBlock, filters: filters}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RPCSubscriber) connect(ctx context.Context) error {
	client, err := gethrpc.DialContext(ctx, s.url)
	if err != nil {
		return fmt.Errorf("stream: dial %s: %w", s.url, err)
	}

	ch := make(chan json.RawMessage, 64)
	sub, err := client.Subscribe(ctx, "chain", ch, "subscribeBlocks", s.fromBlock, filterParams(s.filters), true)
	if err != nil {
		client.Close()
		return fmt.Errorf("stream: subscribe: %w", err)
	}

	s.mu.Lock()
	s.client, s.sub, s.ch = client, sub, ch
	s.mu.Unlock()
	return nil
}

func filterParams(entries []FilterEntry) []map[string]string {
	out := make([]map[string]string, len(entries))
	for i, e := range entries {
		out[i] = map[string]string{"from_address": e.FromAddress.Hex(), "key": e.Key.Hex()}
	}
	return out
}

// Next blocks for the next wire block, reconnecting indefinitely on
// subscription error.
func (s *RPCSubscriber) Next(ctx context.Context) (Block, error) {
	for {
		s.mu.Lock()
		sub, ch := s.sub, s.ch
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Block{}, ctx.Err()
		case raw := <-ch:
			return decodeWireBlock(raw)
		case err := <-sub.Err():
			if err == nil {
				return Block{}, fmt.Errorf("stream: subscription closed")
			}
			if rerr := s.connect(ctx); rerr != nil {
				return Block{}, fmt.Errorf("stream: reconnect after %v: %w", err, rerr)
			}
		}
	}
}

func decodeWireBlock(raw json.RawMessage) (Block, error) {
	var wb wireBlock
	if err := json.Unmarshal(raw, &wb); err != nil {
		return Block{}, fmt.Errorf("stream: decode block: %w", err)
	}

	b := Block{Header: Header{
		Number:     wb.Header.Number,
		Hash:       wb.Header.Hash,
		ParentHash: wb.Header.ParentHash,
		Timestamp:  wb.Header.Timestamp,
	}}
	for _, we := range wb.Events {
		from, err := felt.FeltFromHex(we.FromAddress)
		if err != nil {
			return Block{}, fmt.Errorf("stream: decode from_address: %w", err)
		}
		keys := make([]felt.Felt, len(we.Keys))
		for i, k := range we.Keys {
			if keys[i], err = felt.FeltFromHex(k); err != nil {
				return Block{}, fmt.Errorf("stream: decode key[%d]: %w", i, err)
			}
		}
		data := make([]felt.Felt, len(we.Data))
		for i, d := range we.Data {
			if data[i], err = felt.FeltFromHex(d); err != nil {
				return Block{}, fmt.Errorf("stream: decode data[%d]: %w", i, err)
			}
		}
		txHash, err := felt.FeltFromHex(we.TxHash)
		if err != nil {
			return Block{}, fmt.Errorf("stream: decode transaction_hash: %w", err)
		}
		b.Events = append(b.Events, chainevents.RawEvent{
			FromAddress: from,
			Keys:        keys,
			Data:        data,
			TxHash:      txHash,
			LogIndex:    we.LogIndex,
		})
	}
	return b, nil
}

// AddFilter widens the live subscription. The underlying transport has no
// in-place filter-update RPC, so this tears down and reopens the
// subscription with the accumulated filter set — acceptable because it
// happens once per new pair, not per block.
func (s *RPCSubscriber) AddFilter(ctx context.Context, entries ...FilterEntry) error {
	s.mu.Lock()
	s.filters = append(s.filters, entries...)
	client := s.client
	s.mu.Unlock()

	ch := make(chan json.RawMessage, 64)
	sub, err := client.Subscribe(ctx, "chain", ch, "subscribeBlocks", s.fromBlock, filterParams(s.filters), true)
	if err != nil {
		return fmt.Errorf("stream: widen filter: %w", err)
	}

	s.mu.Lock()
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.sub, s.ch = sub, ch
	s.mu.Unlock()
	return nil
}

func (s *RPCSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
