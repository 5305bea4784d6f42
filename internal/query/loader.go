package query

import (
	"context"
	"sync"

	"github.com/ammcontest/indexer/internal/storage"
)

// PairChildLoader is a per-request dataloader keyed by pair id: the first
// Mints, Burns or Swaps call triggers one $in query for that child kind
// covering every pair id the loader was built with, avoiding the N+1 pattern the
// per-transaction child resolvers (mints/burns/swaps) would otherwise hit
// when resolving a page of pairs (spec §4.10).
type PairChildLoader struct {
	store   *storage.Store
	pairIDs []string

	mintsOnce, burnsOnce, swapsOnce sync.Once
	mints                           map[string][]storage.Mint
	burns                           map[string][]storage.Burn
	swaps                           map[string][]storage.Swap
	mintsErr, burnsErr, swapsErr    error
}

// NewPairChildLoader builds a loader scoped to one batch of pair ids — the
// typical lifetime is a single resolved page of pairs within one request.
func NewPairChildLoader(store *storage.Store, pairIDs []string) *PairChildLoader {
	return &PairChildLoader{store: store, pairIDs: pairIDs}
}

func (l *PairChildLoader) Mints(ctx context.Context, pairID string) ([]storage.Mint, error) {
	l.mintsOnce.Do(func() { l.mints, l.mintsErr = l.store.MintsByPairs(ctx, l.pairIDs) })
	if l.mintsErr != nil {
		return nil, l.mintsErr
	}
	return l.mints[pairID], nil
}

func (l *PairChildLoader) Burns(ctx context.Context, pairID string) ([]storage.Burn, error) {
	l.burnsOnce.Do(func() { l.burns, l.burnsErr = l.store.BurnsByPairs(ctx, l.pairIDs) })
	if l.burnsErr != nil {
		return nil, l.burnsErr
	}
	return l.burns[pairID], nil
}

func (l *PairChildLoader) Swaps(ctx context.Context, pairID string) ([]storage.Swap, error) {
	l.swapsOnce.Do(func() { l.swaps, l.swapsErr = l.store.SwapsByPairs(ctx, l.pairIDs) })
	if l.swapsErr != nil {
		return nil, l.swapsErr
	}
	return l.swaps[pairID], nil
}
