package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertBlock records an observed header, ignoring duplicate inserts so the
// indexer can re-announce the tip block it's already seen on reconnect.
func (s *Store) UpsertBlock(ctx context.Context, b Block) error {
	_, err := s.coll(collBlocks).UpdateOne(ctx,
		bson.M{"number": b.Number},
		bson.M{"$setOnInsert": b},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (s *Store) LatestBlock(ctx context.Context) (*Block, error) {
	var b Block
	opts := options.FindOne().SetSort(bson.D{{Key: "number", Value: -1}})
	err := s.coll(collBlocks).FindOne(ctx, bson.M{}, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBlockByNumber looks up a single observed header, used by the contest
// scheduler/worker to resolve a block's timestamp (spec §4.8/§4.9).
func (s *Store) GetBlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	var b Block
	err := s.coll(collBlocks).FindOne(ctx, bson.M{"number": number}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertTransaction records a transaction hash the first time any event
// within it is handled.
func (s *Store) UpsertTransaction(ctx context.Context, tx Transaction) error {
	_, err := s.coll(collTxs).UpdateOne(ctx,
		bson.M{"hash": tx.Hash},
		bson.M{"$setOnInsert": tx},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// GetTransaction looks up a transaction by hash, returning nil, nil if it
// has never been observed — the check Mint/Burn use to implement the
// "asserts a transaction record exists" / "missing-transaction on Burn is
// skipped silently" rules (spec §4.6/§7).
func (s *Store) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	err := s.coll(collTxs).FindOne(ctx, bson.M{"hash": hash}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
