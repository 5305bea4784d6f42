package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Checkpoint is a named durable cursor: the indexer's last fully-applied
// block is stored this way (the contest worker resumes from each user's
// LPContest row instead), following the teacher's single checkpoints table used to
// resume ingestion after a restart.
type Checkpoint struct {
	Name  string `bson:"name"`
	Block uint64 `bson:"block"`
}

func (s *Store) GetCheckpoint(ctx context.Context, name string) (uint64, error) {
	var c Checkpoint
	err := s.coll(collCheckpoints).FindOne(ctx, bson.M{"name": name}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Block, nil
}

func (s *Store) SetCheckpoint(ctx context.Context, name string, block uint64) error {
	_, err := s.coll(collCheckpoints).UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"block": block}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}
