package storage

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

// InsertPair creates the initial current version of a pair on PairCreated.
// Unlike tokens/factories, pairs are never "found or created" lazily — the
// PairCreated event is their only creation path (spec §4.1).
func (s *Store) InsertPair(ctx context.Context, p Pair) error {
	_, err := s.coll(collPairs).InsertOne(ctx, p)
	return err
}

func (s *Store) GetPair(ctx context.Context, id string) (*Pair, error) {
	var p Pair
	if err := s.findOneCurrent(ctx, collPairs, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPairAtBlock(ctx context.Context, id string, block uint64) (*Pair, error) {
	var p Pair
	if err := s.findOneAtBlock(ctx, collPairs, id, block, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PairsByToken lists every current pair holding tokenID on either side —
// used by the oracle's whitelist BFS (spec §4.7).
func (s *Store) PairsByToken(ctx context.Context, tokenID string) ([]Pair, error) {
	filter := bson.M{
		"valid_to": nil,
		"$or": []bson.M{
			{"token0_id": tokenID},
			{"token1_id": tokenID},
		},
	}
	cur, err := s.coll(collPairs).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Pair
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PairReserveUpdate is the full reserve/price/liquidity snapshot recomputed
// on every Sync event (spec §4.5). Because every field here is derived fresh
// from the event payload and the oracle, the write is a $set against the
// current version, not a new bitemporal version — reserves change every
// block and versioning each tick would defeat the point of "current".
type PairReserveUpdate struct {
	Reserve0          decimal.Decimal
	Reserve1          decimal.Decimal
	Token0Price       decimal.Decimal
	Token1Price       decimal.Decimal
	ReserveETH        decimal.Decimal
	ReserveUSD        decimal.Decimal
	TrackedReserveETH decimal.Decimal
}

func (s *Store) UpdatePairReserves(ctx context.Context, id string, u PairReserveUpdate) error {
	return s.setCurrent(ctx, collPairs, id, bson.M{
		"reserve0":            u.Reserve0,
		"reserve1":            u.Reserve1,
		"token0_price":        u.Token0Price,
		"token1_price":        u.Token1Price,
		"reserve_eth":         u.ReserveETH,
		"reserve_usd":         u.ReserveUSD,
		"tracked_reserve_eth": u.TrackedReserveETH,
	})
}

func (s *Store) SetPairTotalSupply(ctx context.Context, id string, totalSupply decimal.Decimal) error {
	return s.setCurrent(ctx, collPairs, id, bson.M{"total_supply": totalSupply})
}

// ListPairs backs C10's filterable, cursor-paged pair reads, including the
// bitemporal block.number selector (spec §4.10).
func (s *Store) ListPairs(ctx context.Context, f ListFilter) ([]Pair, error) {
	var out []Pair
	if err := s.listVersioned(ctx, collPairs, f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllPairIDs returns every current pair's address, used on indexer
// startup to rebuild the dynamic per-pair filter entries a fresh
// stream.Subscriber doesn't remember across restarts.
func (s *Store) ListAllPairIDs(ctx context.Context) ([]string, error) {
	cur, err := s.coll(collPairs).Find(ctx, bson.M{"valid_to": nil})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []string
	for cur.Next(ctx) {
		var p struct {
			ID string `bson:"id"`
		}
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}
	return ids, cur.Err()
}

// PairSwapDelta is applied to a pair on every Swap (spec §4.8).
type PairSwapDelta struct {
	VolumeToken0       decimal.Decimal
	VolumeToken1       decimal.Decimal
	VolumeUSD          decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
}

func (s *Store) IncPairSwapDelta(ctx context.Context, id string, d PairSwapDelta) error {
	return s.incCurrent(ctx, collPairs, id, bson.M{
		"volume_token0":        d.VolumeToken0,
		"volume_token1":        d.VolumeToken1,
		"volume_usd":           d.VolumeUSD,
		"untracked_volume_usd": d.UntrackedVolumeUSD,
		"tx_count":             1,
	})
}

func (s *Store) IncPairTxCount(ctx context.Context, id string) error {
	return s.incCurrent(ctx, collPairs, id, bson.M{"tx_count": 1})
}

func (s *Store) IncPairLiquidityProviderCount(ctx context.Context, id string, delta int64) error {
	return s.incCurrent(ctx, collPairs, id, bson.M{"liquidity_provider_count": delta})
}
