package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertMint records a Mint row opened by the Transfer-from-zero leg. Its
// sender is empty until the explicit Mint event completes it (spec §4.6).
func (s *Store) InsertMint(ctx context.Context, m Mint) error {
	_, err := s.coll(collMints).InsertOne(ctx, m)
	return err
}

// CountMintsForTx returns how many mint rows already exist for (pairID,
// txHash), used to assign the next row's index.
func (s *Store) CountMintsForTx(ctx context.Context, pairID, txHash string) (int64, error) {
	return s.coll(collMints).CountDocuments(ctx, bson.M{"pair_id": pairID, "transaction_hash": txHash})
}

// LastMint returns the most recently opened mint row for (pairID, txHash),
// regardless of completeness — used to decide whether a fresh from=0
// transfer opens a new row (spec §4.6: "no open mint row or the last is
// complete").
func (s *Store) LastMint(ctx context.Context, pairID, txHash string) (*Mint, error) {
	filter := bson.M{"pair_id": pairID, "transaction_hash": txHash}
	opts := options.FindOne().SetSort(bson.D{{Key: "index", Value: -1}})
	var m Mint
	err := s.coll(collMints).FindOne(ctx, filter, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// LastIncompleteMint returns the most recent still-incomplete mint (no
// sender yet) for (pairID, txHash) — the row the explicit Mint event, or a
// fee-mint fold into a burn, completes next.
func (s *Store) LastIncompleteMint(ctx context.Context, pairID, txHash string) (*Mint, error) {
	filter := bson.M{"pair_id": pairID, "transaction_hash": txHash, "sender": ""}
	opts := options.FindOne().SetSort(bson.D{{Key: "index", Value: -1}})
	var m Mint
	err := s.coll(collMints).FindOne(ctx, filter, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetMintToAndZapIn implements the zap-in rewrite (spec §4.6): the last
// mint in the transaction is retargeted to the zap's ultimate recipient.
func (s *Store) SetMintToAndZapIn(ctx context.Context, pairID, txHash string, index int64, to string) error {
	_, err := s.coll(collMints).UpdateOne(ctx,
		bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": index},
		bson.M{"$set": bson.M{"to": to, "zap_in": true}},
	)
	return err
}

// CompleteMint fills in the sender and amounts recorded by the explicit
// Mint event, finishing the row InsertMint opened.
func (s *Store) CompleteMint(ctx context.Context, pairID, txHash string, index int64, sender string, amount0, amount1, amountUSD decimal.Decimal) error {
	_, err := s.coll(collMints).UpdateOne(ctx,
		bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": index},
		bson.M{"$set": bson.M{
			"sender":     sender,
			"amount0":    amount0,
			"amount1":    amount1,
			"amount_usd": amountUSD,
		}},
	)
	return err
}

// DeleteMint removes a mint row entirely — used when a still-open mint is
// revealed to have actually been a protocol-fee mint folded into the burn
// that follows it (spec §4.6, scenario 3).
func (s *Store) DeleteMint(ctx context.Context, pairID, txHash string, index int64) error {
	_, err := s.coll(collMints).DeleteOne(ctx, bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": index})
	return err
}

// InsertBurn records a Burn row opened by either transfer leg that precedes
// the canonical from=P,to=0 burn.
func (s *Store) InsertBurn(ctx context.Context, b Burn) error {
	_, err := s.coll(collBurns).InsertOne(ctx, b)
	return err
}

func (s *Store) CountBurnsForTx(ctx context.Context, pairID, txHash string) (int64, error) {
	return s.coll(collBurns).CountDocuments(ctx, bson.M{"pair_id": pairID, "transaction_hash": txHash})
}

// LastBurn returns the most recently opened burn row for (pairID, txHash),
// regardless of completeness.
func (s *Store) LastBurn(ctx context.Context, pairID, txHash string) (*Burn, error) {
	filter := bson.M{"pair_id": pairID, "transaction_hash": txHash}
	opts := options.FindOne().SetSort(bson.D{{Key: "index", Value: -1}})
	var b Burn
	err := s.coll(collBurns).FindOne(ctx, filter, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkBurnNeedsCompleteFalse clears the needs_complete flag on the burn row
// opened by the to=P pre-transfer, now that the canonical from=P,to=0 leg
// has arrived.
func (s *Store) MarkBurnNeedsCompleteFalse(ctx context.Context, pairID, txHash string, index int64) error {
	_, err := s.coll(collBurns).UpdateOne(ctx,
		bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": index},
		bson.M{"$set": bson.M{"needs_complete": false}},
	)
	return err
}

// SetBurnFee folds an orphaned protocol-fee mint into the current burn row
// (spec §4.6, scenario 3).
func (s *Store) SetBurnFee(ctx context.Context, pairID, txHash string, index int64, feeTo string, feeLiquidity decimal.Decimal) error {
	_, err := s.coll(collBurns).UpdateOne(ctx,
		bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": index},
		bson.M{"$set": bson.M{"fee_to": feeTo, "fee_liquidity": feeLiquidity}},
	)
	return err
}

// CompleteBurn fills in the sender/to/amounts recorded by the explicit Burn
// event.
func (s *Store) CompleteBurn(ctx context.Context, pairID, txHash string, index int64, sender, to string, amount0, amount1, amountUSD decimal.Decimal) error {
	_, err := s.coll(collBurns).UpdateOne(ctx,
		bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": index},
		bson.M{"$set": bson.M{
			"sender":     sender,
			"to":         to,
			"amount0":    amount0,
			"amount1":    amount1,
			"amount_usd": amountUSD,
		}},
	)
	return err
}

// MintsByTransaction and BurnsByTransaction back the per-transaction child
// resolvers in C10.
func (s *Store) MintsByTransaction(ctx context.Context, txHash string) ([]Mint, error) {
	cur, err := s.coll(collMints).Find(ctx, bson.M{"transaction_hash": txHash}, options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Mint
	return out, cur.All(ctx, &out)
}

func (s *Store) BurnsByTransaction(ctx context.Context, txHash string) ([]Burn, error) {
	cur, err := s.coll(collBurns).Find(ctx, bson.M{"transaction_hash": txHash}, options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Burn
	return out, cur.All(ctx, &out)
}

// MintsByPairs and BurnsByPairs fetch every mint/burn row for a batch of
// pair ids in one round trip, grouped by pair — the query layer's
// dataloader-style batching for the `mints`/`burns` child resolvers (spec
// §4.10).
func (s *Store) MintsByPairs(ctx context.Context, pairIDs []string) (map[string][]Mint, error) {
	cur, err := s.coll(collMints).Find(ctx, bson.M{"pair_id": bson.M{"$in": pairIDs}}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[string][]Mint, len(pairIDs))
	var rows []Mint
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.PairID] = append(out[m.PairID], m)
	}
	return out, nil
}

func (s *Store) BurnsByPairs(ctx context.Context, pairIDs []string) (map[string][]Burn, error) {
	cur, err := s.coll(collBurns).Find(ctx, bson.M{"pair_id": bson.M{"$in": pairIDs}}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make(map[string][]Burn, len(pairIDs))
	var rows []Burn
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, b := range rows {
		out[b.PairID] = append(out[b.PairID], b)
	}
	return out, nil
}
