package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertLiquidityPosition replaces the current balance for (pair, user),
// creating the row on first contact. Positions are current-only: nothing
// here is bitemporal, matching the teacher's latest-snapshot convention for
// high-churn derived rows.
func (s *Store) UpsertLiquidityPosition(ctx context.Context, pairAddress, user string, balance decimal.Decimal) error {
	_, err := s.coll(collPositions).UpdateOne(ctx,
		bson.M{"pair_address": pairAddress, "user": user},
		bson.M{"$set": bson.M{"liquidity_token_balance": balance}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (s *Store) GetLiquidityPosition(ctx context.Context, pairAddress, user string) (*LiquidityPosition, error) {
	var p LiquidityPosition
	err := s.coll(collPositions).FindOne(ctx, bson.M{"pair_address": pairAddress, "user": user}).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LiquidityPositionsByUser lists every pair a user currently holds a
// non-zero balance of.
func (s *Store) LiquidityPositionsByUser(ctx context.Context, user string) ([]LiquidityPosition, error) {
	cur, err := s.coll(collPositions).Find(ctx, bson.M{"user": user, "liquidity_token_balance": bson.M{"$ne": decimal.Zero}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []LiquidityPosition
	return out, cur.All(ctx, &out)
}

// DistinctLPUsers lists every user with a position row at all.
func (s *Store) DistinctLPUsers(ctx context.Context) ([]string, error) {
	res, err := s.coll(collPositions).Distinct(ctx, "user", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res))
	for _, v := range res {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// InsertLiquidityPositionSnapshot appends a journal row, written on every
// transfer leg touching a non-pair, non-zero address (spec §3).
func (s *Store) InsertLiquidityPositionSnapshot(ctx context.Context, snap LiquidityPositionSnapshot) error {
	_, err := s.coll(collSnapshots).InsertOne(ctx, snap)
	return err
}

// DistinctSnapshotUsersPage pages over distinct users holding a snapshot
// against one of the eligible pairs at or before maxBlock, sorted
// ascending by user id — the population scan the contest scheduler sweeps
// in pages of 10,000 (spec §4.8).
func (s *Store) DistinctSnapshotUsersPage(ctx context.Context, eligiblePairIDs []string, maxBlock uint64, offset, pageSize int64) ([]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"pair_address": bson.M{"$in": eligiblePairIDs},
			"block":        bson.M{"$lte": maxBlock},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$user"}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: offset}},
		{{Key: "$limit", Value: pageSize}},
	}
	cur, err := s.coll(collSnapshots).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out, nil
}

// SnapshotsForUserInRange returns a user's snapshots against the eligible
// pairs with fromBlock < block <= toBlock, ascending by block — the
// per-user integration walk (spec §4.9).
func (s *Store) SnapshotsForUserInRange(ctx context.Context, user string, eligiblePairIDs []string, fromBlock, toBlock uint64) ([]LiquidityPositionSnapshot, error) {
	filter := bson.M{
		"user":         user,
		"pair_address": bson.M{"$in": eligiblePairIDs},
		"block":        bson.M{"$gt": fromBlock, "$lte": toBlock},
	}
	opts := options.Find().SetSort(bson.D{{Key: "block", Value: 1}})
	cur, err := s.coll(collSnapshots).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []LiquidityPositionSnapshot
	return out, cur.All(ctx, &out)
}

// DistinctPairsHeldBefore lists the eligible pairs a user holds a snapshot
// of strictly before block, used to seed a fresh contest checkpoint from
// pre-contest-start holdings (spec §4.9).
func (s *Store) DistinctPairsHeldBefore(ctx context.Context, user string, eligiblePairIDs []string, block uint64) ([]string, error) {
	res, err := s.coll(collSnapshots).Distinct(ctx, "pair_address", bson.M{
		"user":         user,
		"pair_address": bson.M{"$in": eligiblePairIDs},
		"block":        bson.M{"$lt": block},
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res))
	for _, v := range res {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// LatestSnapshotBefore returns a user's most recent snapshot of pairID
// strictly before block, nil if none exists.
func (s *Store) LatestSnapshotBefore(ctx context.Context, user, pairID string, block uint64) (*LiquidityPositionSnapshot, error) {
	filter := bson.M{"user": user, "pair_address": pairID, "block": bson.M{"$lt": block}}
	opts := options.FindOne().SetSort(bson.D{{Key: "block", Value: -1}})
	var snap LiquidityPositionSnapshot
	err := s.coll(collSnapshots).FindOne(ctx, filter, opts).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
