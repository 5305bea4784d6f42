package entities

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
	"github.com/ammcontest/indexer/internal/storage"
)

// HandlePairCreated implements C6.factory (spec §4.6): creates the factory
// singleton on first call, lazily creates both tokens via C2 metadata
// lookup, inserts a zero-initialized pair, and returns the five event keys
// C5 must widen its subscription with.
func (h *Handlers) HandlePairCreated(ctx context.Context, ev *chainevents.PairCreated, ec EventContext) ([]felt.Felt, error) {
	if _, err := h.Store.GetOrCreateFactory(ctx, h.FactoryID, ec.Block); err != nil {
		return nil, fmt.Errorf("entities: get/create factory: %w", err)
	}
	if err := h.Store.IncFactoryPairCount(ctx, h.FactoryID); err != nil {
		return nil, fmt.Errorf("entities: inc factory pair count: %w", err)
	}

	token0ID := ev.Token0.Hex()
	token1ID := ev.Token1.Hex()
	pairID := ev.Pair.Hex()

	if _, err := h.Store.GetOrCreateToken(ctx, token0ID, ec.Block, h.tokenMetadataFetcher(ctx, ev.Token0, ec.Block)); err != nil {
		return nil, fmt.Errorf("entities: get/create token0: %w", err)
	}
	if _, err := h.Store.GetOrCreateToken(ctx, token1ID, ec.Block, h.tokenMetadataFetcher(ctx, ev.Token1, ec.Block)); err != nil {
		return nil, fmt.Errorf("entities: get/create token1: %w", err)
	}

	pair := storage.Pair{
		Bitemporal:         storage.Bitemporal{ValidFrom: ec.Block},
		ID:                 pairID,
		Token0ID:           token0ID,
		Token1ID:           token1ID,
		Reserve0:           decimal.Zero,
		Reserve1:           decimal.Zero,
		TotalSupply:        decimal.Zero,
		ReserveETH:         decimal.Zero,
		ReserveUSD:         decimal.Zero,
		TrackedReserveETH:  decimal.Zero,
		Token0Price:        decimal.Zero,
		Token1Price:        decimal.Zero,
		VolumeToken0:       decimal.Zero,
		VolumeToken1:       decimal.Zero,
		VolumeUSD:          decimal.Zero,
		UntrackedVolumeUSD: decimal.Zero,
		CreatedAtTimestamp: ec.Timestamp,
		CreatedAtBlock:     ec.Block,
	}
	if err := h.Store.InsertPair(ctx, pair); err != nil {
		return nil, fmt.Errorf("entities: insert pair: %w", err)
	}

	// Five event keys scoped to the new pair contract (spec §4.5).
	return []felt.Felt{
		chainevents.KeyTransfer,
		chainevents.KeySwap,
		chainevents.KeySync,
		chainevents.KeyMint,
		chainevents.KeyBurn,
	}, nil
}

func (h *Handlers) tokenMetadataFetcher(ctx context.Context, token felt.Felt, atBlock uint64) func() (string, string, uint8, decimal.Decimal, error) {
	return func() (string, string, uint8, decimal.Decimal, error) {
		return h.RPC.TokenMetadata(ctx, token, atBlock)
	}
}
