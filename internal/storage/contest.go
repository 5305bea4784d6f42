package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetLPContest returns a user's current contest standing, nil if they have
// none yet.
func (s *Store) GetLPContest(ctx context.Context, user string) (*LPContest, error) {
	var c LPContest
	err := s.coll(collLPContest).FindOne(ctx, bson.M{"user": user}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ReplaceLPContest performs the find_one_and_replace-with-upsert the spec
// names for C9: the current standing is always fully replaced, never
// incrementally patched, because the worker recomputes the whole row each
// pass (spec §4.9).
func (s *Store) ReplaceLPContest(ctx context.Context, c LPContest) error {
	_, err := s.coll(collLPContest).ReplaceOne(ctx,
		bson.M{"user": c.User},
		c,
		options.Replace().SetUpsert(true),
	)
	return err
}

// AppendLPContestBlock writes the append-only journal entry mirroring the
// just-replaced current standing, giving the ranking pipeline and auditors a
// full history of contest value over time.
func (s *Store) AppendLPContestBlock(ctx context.Context, c LPContestBlock) error {
	_, err := s.coll(collLPContestJ).InsertOne(ctx, c)
	return err
}

// RankedLPContestants runs the sorted find backing the NFT-tier
// cutoffs (spec §4.9/§4.10): eligible users only, ordered by contest value
// descending.
func (s *Store) RankedLPContestants(ctx context.Context) ([]LPContest, error) {
	filter := bson.M{"is_eligible": true}
	opts := options.Find().SetSort(bson.D{{Key: "contest_value", Value: -1}})
	cur, err := s.coll(collLPContest).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []LPContest
	return out, cur.All(ctx, &out)
}

// LPContestUsersPage pages over every user with a current standing row, in
// stable ID order. The scheduler does not use it: its per-tick scan pages
// over snapshot users (DistinctSnapshotUsersPage).
func (s *Store) LPContestUsersPage(ctx context.Context, afterUser string, pageSize int64) ([]LPContest, error) {
	filter := bson.M{}
	if afterUser != "" {
		filter["user"] = bson.M{"$gt": afterUser}
	}
	opts := options.Find().SetSort(bson.D{{Key: "user", Value: 1}}).SetLimit(pageSize)
	cur, err := s.coll(collLPContest).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []LPContest
	return out, cur.All(ctx, &out)
}
