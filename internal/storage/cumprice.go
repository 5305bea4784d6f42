package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LatestCumulativePrice returns the most recent cumulative-price point for a
// pair, the seed the contest scheduler extends forward on every throttled
// tick (spec §4.9). Returns nil, nil if the pair has no series yet.
func (s *Store) LatestCumulativePrice(ctx context.Context, pairID string) (*PairBlockCumulativePrice, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "block", Value: -1}})
	var p PairBlockCumulativePrice
	err := s.coll(collCumPrice).FindOne(ctx, bson.M{"pair_id": pairID}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertCumulativePrice appends the next point in a pair's time-weighted
// price series. The (pair_id, block) unique index makes this idempotent
// under indexer restarts.
func (s *Store) InsertCumulativePrice(ctx context.Context, p PairBlockCumulativePrice) error {
	_, err := s.coll(collCumPrice).UpdateOne(ctx,
		bson.M{"pair_id": p.PairID, "block": p.Block},
		bson.M{"$setOnInsert": p},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// CumulativePriceAt returns the exact point at block, nil if absent — the
// two-point lookup (this_block, last_block) the per-user worker reads to
// compute each snapshot's contribution (spec §4.9).
func (s *Store) CumulativePriceAt(ctx context.Context, pairID string, block uint64) (*PairBlockCumulativePrice, error) {
	var p PairBlockCumulativePrice
	err := s.coll(collCumPrice).FindOne(ctx, bson.M{"pair_id": pairID, "block": block}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CumulativePricesSince returns every point after (exclusive) fromBlock for
// a pair, in ascending block order.
func (s *Store) CumulativePricesSince(ctx context.Context, pairID string, fromBlock uint64) ([]PairBlockCumulativePrice, error) {
	filter := bson.M{"pair_id": pairID, "block": bson.M{"$gt": fromBlock}}
	opts := options.Find().SetSort(bson.D{{Key: "block", Value: 1}})
	cur, err := s.coll(collCumPrice).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []PairBlockCumulativePrice
	return out, cur.All(ctx, &out)
}
