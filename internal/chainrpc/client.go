// Package chainrpc adapts go-ethereum's generic JSON-RPC client to the
// chain's starknet_call-shaped read interface, following the retry
// discipline of this pack's Flow access-node client.
package chainrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ammcontest/indexer/internal/felt"
)

// Client is a thin, retrying wrapper around *rpc.Client bound to a single
// node. Unlike the teacher's multi-node pool, one archive node is all this
// indexer needs: reads are always against the tip or a specific past block,
// never across a spork boundary.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a single JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: dial %s: %w", url, err)
	}
	return &Client{rpc: c}, nil
}

func (c *Client) Close() { c.rpc.Close() }

// withRetry retries transient RPC failures with exponential backoff,
// mirroring the Flow access client's withRetry (5 attempts, 500ms base).
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	const maxRetries = 5
	backoff := 500 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			return fmt.Errorf("chainrpc: max retries reached: %w", err)
		}
		wait := backoff * time.Duration(1<<i)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// blockID is either "latest" or {"block_number": n}, the two forms every
// read call in this package needs.
func blockID(atBlock *uint64) interface{} {
	if atBlock == nil {
		return "latest"
	}
	return map[string]uint64{"block_number": *atBlock}
}

type functionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// Call invokes a read-only entry point on contract and decodes the result
// as a slice of felts, retrying on transient transport errors.
func (c *Client) Call(ctx context.Context, contract felt.Felt, entryPoint felt.Felt, calldata []felt.Felt, atBlock *uint64) ([]felt.Felt, error) {
	req := functionCall{
		ContractAddress:    contract.Hex(),
		EntryPointSelector: entryPoint.Hex(),
		Calldata:           feltsToHex(calldata),
	}

	var raw []string
	err := c.withRetry(ctx, func() error {
		return c.rpc.CallContext(ctx, &raw, "starknet_call", req, blockID(atBlock))
	})
	if err != nil {
		return nil, err
	}

	out := make([]felt.Felt, len(raw))
	for i, s := range raw {
		f, err := felt.FeltFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("chainrpc: decode call result[%d]: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// BlockNumber returns the chain's current tip height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.withRetry(ctx, func() error {
		return c.rpc.CallContext(ctx, &n, "starknet_blockNumber")
	})
	return n, err
}

func feltsToHex(fs []felt.Felt) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Hex()
	}
	return out
}
