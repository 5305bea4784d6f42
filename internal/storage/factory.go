package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetOrCreateFactory returns the factory row for id, creating a zeroed
// current version at atBlock if none exists yet (spec §4.1: PairCreated
// lazily instantiates the Factory singleton on its first occurrence).
func (s *Store) GetOrCreateFactory(ctx context.Context, id string, atBlock uint64) (*Factory, error) {
	var f Factory
	err := s.findOneCurrent(ctx, collFactories, id, &f)
	if err == nil {
		return &f, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	f = Factory{
		Bitemporal: Bitemporal{ValidFrom: atBlock},
		ID:         id,
	}
	if _, err := s.coll(collFactories).InsertOne(ctx, f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFactory reads the current factory row without creating it, used by
// handlers that must already know the factory exists (Sync/Mint/Burn/Swap
// all run strictly after the PairCreated that lazily created it).
func (s *Store) GetFactory(ctx context.Context, id string) (*Factory, error) {
	var f Factory
	if err := s.findOneCurrent(ctx, collFactories, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// IncFactoryPairCount bumps PairCount by one, used on every PairCreated.
func (s *Store) IncFactoryPairCount(ctx context.Context, id string) error {
	return s.incCurrent(ctx, collFactories, id, bson.M{"pair_count": 1})
}

// IncFactoryTxCount bumps TxCount by one, used on Mint/Burn/Swap.
func (s *Store) IncFactoryTxCount(ctx context.Context, id string) error {
	return s.incCurrent(ctx, collFactories, id, bson.M{"tx_count": 1})
}

// FactoryVolumeDelta is applied after every swap (spec §4.8).
type FactoryVolumeDelta struct {
	VolumeUSD          decimal.Decimal
	VolumeETH          decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
}

func (s *Store) IncFactoryVolume(ctx context.Context, id string, d FactoryVolumeDelta) error {
	return s.incCurrent(ctx, collFactories, id, bson.M{
		"total_volume_usd":     d.VolumeUSD,
		"total_volume_eth":     d.VolumeETH,
		"untracked_volume_usd": d.UntrackedVolumeUSD,
	})
}

// SetFactoryLiquidity overwrites the two running liquidity totals with the
// values the Sync handler derives by applying a pair's tracked-liquidity
// delta each time its reserves change (spec §4.5): these are not monotonic
// so $inc does not apply.
func (s *Store) SetFactoryLiquidity(ctx context.Context, id string, usd, eth decimal.Decimal) error {
	return s.setCurrent(ctx, collFactories, id, bson.M{
		"total_liquidity_usd": usd,
		"total_liquidity_eth": eth,
	})
}
