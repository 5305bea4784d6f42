package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names, grouped here so index setup and query code never
// hand-type a typo'd collection name twice.
const (
	collFactories   = "factories"
	collTokens      = "tokens"
	collPairs       = "pairs"
	collBlocks      = "blocks"
	collTxs         = "transactions"
	collMints       = "mints"
	collBurns       = "burns"
	collSwaps       = "swaps"
	collPositions   = "liquidity_positions"
	collSnapshots   = "liquidity_position_snapshots"
	collUsers       = "users"
	collTokenDay    = "token_day_data"
	collPairDay     = "pair_day_data"
	collPairHour    = "pair_hour_data"
	collExchangeDay = "exchange_day_data"
	collCumPrice    = "pair_block_cumulative_prices"
	collLPContest   = "lp_contest"
	collLPContestJ  = "lp_contest_blocks"
	collCheckpoints = "checkpoints"
)

// Store is the C4 storage adapter: an abstract document store with
// bitemporal semantics over a MongoDB deployment (see SPEC_FULL.md §4.4 for
// the grounding rationale).
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore dials MongoDB and returns a Store bound to the given database.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetRegistry(decimalRegistry()))
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the underlying Mongo client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) coll(name string) *mongo.Collection { return s.db.Collection(name) }

// EnsureIndexes creates every index named in spec §4.4. It is idempotent
// and safe to call on every process start, mirroring the teacher's
// ensureScriptTemplatesSchema startup-DDL pattern.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	type spec struct {
		coll  string
		model mongo.IndexModel
	}
	asc := func(fields ...string) bson.D {
		d := bson.D{}
		for _, f := range fields {
			d = append(d, bson.E{Key: f, Value: 1})
		}
		return d
	}
	specs := []spec{
		{collFactories, mongo.IndexModel{Keys: asc("id", "valid_to")}},
		{collTokens, mongo.IndexModel{Keys: asc("id", "valid_to")}},
		{collUsers, mongo.IndexModel{Keys: asc("id", "valid_to")}},
		{collPairs, mongo.IndexModel{Keys: asc("id", "valid_to")}},
		{collPairs, mongo.IndexModel{Keys: asc("token0_id", "token1_id", "valid_to")}},
		{collTokenDay, mongo.IndexModel{Keys: asc("entity_id", "window_id", "valid_to")}},
		{collPairDay, mongo.IndexModel{Keys: asc("entity_id", "window_id", "valid_to")}},
		{collPairHour, mongo.IndexModel{Keys: asc("entity_id", "window_id", "valid_to")}},
		{collExchangeDay, mongo.IndexModel{Keys: asc("entity_id", "window_id", "valid_to")}},
		{collMints, mongo.IndexModel{Keys: asc("pair_id", "transaction_hash", "valid_to")}},
		{collBurns, mongo.IndexModel{Keys: asc("pair_id", "transaction_hash", "valid_to")}},
		{collSwaps, mongo.IndexModel{Keys: asc("pair_id", "transaction_hash", "valid_to")}},
		{collMints, mongo.IndexModel{Keys: asc("to", "valid_to")}},
		{collSwaps, mongo.IndexModel{Keys: asc("to", "valid_to")}},
		{collBurns, mongo.IndexModel{Keys: asc("sender", "valid_to", "timestamp")}},
		{collCumPrice, mongo.IndexModel{Keys: asc("pair_id", "block"), Options: options.Index().SetUnique(true)}},
		{collSnapshots, mongo.IndexModel{Keys: asc("user", "block")}},
		{collBlocks, mongo.IndexModel{Keys: bson.D{{Key: "number", Value: -1}}, Options: options.Index().SetUnique(true)}},
		{collLPContest, mongo.IndexModel{Keys: asc("user"), Options: options.Index().SetUnique(true)}},
		{collLPContestJ, mongo.IndexModel{Keys: asc("user", "block"), Options: options.Index().SetUnique(true)}},
		{collCheckpoints, mongo.IndexModel{Keys: asc("name"), Options: options.Index().SetUnique(true)}},
	}
	for _, sp := range specs {
		if _, err := s.coll(sp.coll).Indexes().CreateOne(ctx, sp.model); err != nil {
			return fmt.Errorf("storage: index on %s: %w", sp.coll, err)
		}
	}
	return nil
}

// findOneCurrent finds the document with valid_to = null matching extra
// filter fields merged onto {id: id}.
func (s *Store) findOneCurrent(ctx context.Context, coll, id string, out interface{}) error {
	filter := bson.M{"id": id, "valid_to": nil}
	return s.coll(coll).FindOne(ctx, filter).Decode(out)
}

// findOneAtBlock resolves the version of `id` current as of block (spec
// §4.4's bitemporal predicate).
func (s *Store) findOneAtBlock(ctx context.Context, coll, id string, block uint64, out interface{}) error {
	filter := bson.M{
		"id":         id,
		"valid_from": bson.M{"$lte": block},
		"$or": []bson.M{
			{"valid_to": nil},
			{"valid_to": bson.M{"$gt": block}},
		},
	}
	return s.coll(coll).FindOne(ctx, filter).Decode(out)
}

// replaceCurrentVersion implements the bitemporal write protocol of §4.4:
// close the current version (if any) at atBlock and insert a fresh one.
func (s *Store) replaceCurrentVersion(ctx context.Context, coll, id string, atBlock uint64, rev int64, newDoc interface{}) error {
	_, err := s.coll(coll).UpdateOne(ctx,
		bson.M{"id": id, "valid_to": nil},
		bson.M{"$set": bson.M{"valid_to": atBlock}},
	)
	if err != nil {
		return fmt.Errorf("storage: close current version of %s/%s: %w", coll, id, err)
	}
	_, err = s.coll(coll).InsertOne(ctx, newDoc)
	if err != nil {
		return fmt.Errorf("storage: insert new version of %s/%s: %w", coll, id, err)
	}
	return nil
}

// incCurrent applies an atomic $inc to one or more fields of the current
// version, without versioning a new row — used for the running
// accumulators on Factory/Token/Pair (spec §4.4).
func (s *Store) incCurrent(ctx context.Context, coll, id string, inc bson.M) error {
	_, err := s.coll(coll).UpdateOne(ctx,
		bson.M{"id": id, "valid_to": nil},
		bson.M{"$inc": inc},
	)
	if err != nil {
		return fmt.Errorf("storage: inc on %s/%s: %w", coll, id, err)
	}
	return nil
}

// setCurrent applies an atomic $set to one or more fields of the current
// version.
func (s *Store) setCurrent(ctx context.Context, coll, id string, set bson.M) error {
	_, err := s.coll(coll).UpdateOne(ctx,
		bson.M{"id": id, "valid_to": nil},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("storage: set on %s/%s: %w", coll, id, err)
	}
	return nil
}

// ListFilter is the generic shape C10's typed queries reduce to: an
// optional point-in-time selector, cursor pagination, and a sort key
// (spec §4.10).
type ListFilter struct {
	// AtBlock selects the version valid at this block via the bitemporal
	// predicate; nil means "current".
	AtBlock *uint64
	// After is the last id seen on the previous page (exclusive cursor).
	After string
	Limit int64
	// OrderBy is a bson field name; Desc reverses the default ascending
	// sort. Ties break on id for a stable cursor.
	OrderBy string
	Desc    bool
}

// listVersioned runs a bitemporal-aware, cursor-paged find against a
// versioned (Bitemporal-embedding) collection — the shared engine behind
// ListPairs/ListTokens/ListUsers.
func (s *Store) listVersioned(ctx context.Context, coll string, f ListFilter, out interface{}) error {
	filter := bson.M{}
	if f.AtBlock != nil {
		filter["valid_from"] = bson.M{"$lte": *f.AtBlock}
		filter["$or"] = []bson.M{
			{"valid_to": nil},
			{"valid_to": bson.M{"$gt": *f.AtBlock}},
		}
	} else {
		filter["valid_to"] = nil
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	dir := 1
	if f.Desc {
		dir = -1
	}
	if f.After != "" {
		op := "$gt"
		if f.Desc {
			op = "$lt"
		}
		filter["id"] = bson.M{op: f.After}
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: orderBy, Value: dir}, {Key: "id", Value: dir}}).
		SetLimit(limit)

	cur, err := s.coll(coll).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("storage: list %s: %w", coll, err)
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}
