package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertSwap(ctx context.Context, sw Swap) error {
	_, err := s.coll(collSwaps).InsertOne(ctx, sw)
	return err
}

func (s *Store) SwapsByTransaction(ctx context.Context, txHash string) ([]Swap, error) {
	cur, err := s.coll(collSwaps).Find(ctx, bson.M{"transaction_hash": txHash}, options.Find().SetSort(bson.D{{Key: "log_index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Swap
	return out, cur.All(ctx, &out)
}

func (s *Store) SwapsByPair(ctx context.Context, pairID string, skip, limit int64) ([]Swap, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetSkip(skip).SetLimit(limit)
	cur, err := s.coll(collSwaps).Find(ctx, bson.M{"pair_id": pairID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Swap
	return out, cur.All(ctx, &out)
}

// SwapsByPairs batches swap lookups for several pairs in one round trip,
// grouped by pair — the query layer's dataloader-style batching for the
// `swaps` child resolver (spec §4.10).
func (s *Store) SwapsByPairs(ctx context.Context, pairIDs []string) (map[string][]Swap, error) {
	cur, err := s.coll(collSwaps).Find(ctx, bson.M{"pair_id": bson.M{"$in": pairIDs}}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[string][]Swap, len(pairIDs))
	var rows []Swap
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, sw := range rows {
		out[sw.PairID] = append(out[sw.PairID], sw)
	}
	return out, nil
}
