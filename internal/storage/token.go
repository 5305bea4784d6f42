package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetOrCreateToken returns the token row for id, fetching name/symbol/
// decimals/totalSupply via the caller (chainrpc) and persisting a new
// current version only when the token hasn't been seen before.
func (s *Store) GetOrCreateToken(ctx context.Context, id string, atBlock uint64, fetch func() (name, symbol string, decimals uint8, totalSupply decimal.Decimal, err error)) (*Token, error) {
	var t Token
	err := s.findOneCurrent(ctx, collTokens, id, &t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	name, symbol, decimals, totalSupply, ferr := fetch()
	if ferr != nil {
		return nil, ferr
	}
	t = Token{
		Bitemporal:  Bitemporal{ValidFrom: atBlock},
		ID:          id,
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		TotalSupply: totalSupply,
	}
	if _, err := s.coll(collTokens).InsertOne(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetToken(ctx context.Context, id string) (*Token, error) {
	var t Token
	if err := s.findOneCurrent(ctx, collTokens, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTokenAtBlock(ctx context.Context, id string, block uint64) (*Token, error) {
	var t Token
	if err := s.findOneAtBlock(ctx, collTokens, id, block, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// TokenSwapDelta is the per-leg accumulator update applied to both tokens of
// a pair on every swap (spec §4.8).
type TokenSwapDelta struct {
	Volume             decimal.Decimal
	VolumeUSD          decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
}

func (s *Store) IncTokenSwapDelta(ctx context.Context, id string, d TokenSwapDelta) error {
	return s.incCurrent(ctx, collTokens, id, bson.M{
		"trade_volume":         d.Volume,
		"trade_volume_usd":     d.VolumeUSD,
		"untracked_volume_usd": d.UntrackedVolumeUSD,
		"tx_count":             1,
	})
}

// SetTokenDerivedETH updates the oracle-computed ETH price, recomputed on
// every Sync (spec §4.7); not monotonic so $set, not $inc.
func (s *Store) SetTokenDerivedETH(ctx context.Context, id string, derivedETH decimal.Decimal) error {
	return s.setCurrent(ctx, collTokens, id, bson.M{"derived_eth": derivedETH})
}

// SetTokenTotalLiquidity overwrites the token's share of pooled liquidity
// with the value the Sync handler derives by moving it by the pair's reserve
// delta.
func (s *Store) SetTokenTotalLiquidity(ctx context.Context, id string, liquidity decimal.Decimal) error {
	return s.setCurrent(ctx, collTokens, id, bson.M{"total_liquidity": liquidity})
}

func (s *Store) IncTokenTxCount(ctx context.Context, id string) error {
	return s.incCurrent(ctx, collTokens, id, bson.M{"tx_count": 1})
}

// ListTokens backs C10's filterable, cursor-paged token reads.
func (s *Store) ListTokens(ctx context.Context, f ListFilter) ([]Token, error) {
	var out []Token
	if err := s.listVersioned(ctx, collTokens, f, &out); err != nil {
		return nil, err
	}
	return out, nil
}
