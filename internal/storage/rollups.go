package storage

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// upsertWindow implements the snapshot+$inc pattern shared by all four
// rollup windows (spec §4.8): find_one_and_update with upsert, $setOnInsert
// for the window's identity fields and $inc for the accumulators, returning
// the post-update document.
func (s *Store) upsertWindow(ctx context.Context, coll string, entityID string, windowID, date int64, inc bson.M, set bson.M, out interface{}) error {
	filter := bson.M{"entity_id": entityID, "window_id": windowID, "valid_to": nil}
	update := bson.M{
		"$setOnInsert": bson.M{
			"entity_id":  entityID,
			"window_id":  windowID,
			"date":       date,
			"valid_from": uint64(0),
			"valid_to":   nil,
			"rev":        int64(0),
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(set) > 0 {
		update["$set"] = set
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	return s.coll(coll).FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
}

// TokenDayDelta accumulates into a TokenDayData window on every swap
// touching the token.
type TokenDayDelta struct {
	Volume             decimal.Decimal
	VolumeUSD          decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
}

func (s *Store) UpsertTokenDayData(ctx context.Context, tokenID string, dayID, date int64, delta TokenDayDelta, liquidity, priceUSD decimal.Decimal) (*TokenDayData, error) {
	var out TokenDayData
	inc := bson.M{
		"volume":               delta.Volume,
		"volume_usd":           delta.VolumeUSD,
		"untracked_volume_usd": delta.UntrackedVolumeUSD,
		"tx_count":             1,
	}
	set := bson.M{"liquidity": liquidity, "price_usd": priceUSD, "token_id": tokenID}
	if err := s.upsertWindow(ctx, collTokenDay, tokenID, dayID, date, inc, set, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type PairWindowDelta struct {
	VolumeToken0 decimal.Decimal
	VolumeToken1 decimal.Decimal
	VolumeUSD    decimal.Decimal
}

func (s *Store) UpsertPairDayData(ctx context.Context, pairID string, dayID, date int64, delta PairWindowDelta, reserve0, reserve1, reserveUSD decimal.Decimal) (*PairDayData, error) {
	var out PairDayData
	inc := bson.M{
		"volume_token0": delta.VolumeToken0,
		"volume_token1": delta.VolumeToken1,
		"volume_usd":    delta.VolumeUSD,
		"tx_count":      1,
	}
	set := bson.M{"reserve0": reserve0, "reserve1": reserve1, "reserve_usd": reserveUSD, "pair_id": pairID}
	if err := s.upsertWindow(ctx, collPairDay, pairID, dayID, date, inc, set, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) UpsertPairHourData(ctx context.Context, pairID string, hourID, date int64, delta PairWindowDelta, reserve0, reserve1, reserveUSD decimal.Decimal) (*PairHourData, error) {
	var out PairHourData
	inc := bson.M{
		"volume_token0": delta.VolumeToken0,
		"volume_token1": delta.VolumeToken1,
		"volume_usd":    delta.VolumeUSD,
		"tx_count":      1,
	}
	set := bson.M{"reserve0": reserve0, "reserve1": reserve1, "reserve_usd": reserveUSD, "pair_id": pairID}
	if err := s.upsertWindow(ctx, collPairHour, pairID, hourID, date, inc, set, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ExchangeDayDelta struct {
	VolumeETH          decimal.Decimal
	VolumeUSD          decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
}

func (s *Store) UpsertExchangeDayData(ctx context.Context, dayID, date int64, delta ExchangeDayDelta, totalLiquidityUSD, totalLiquidityETH decimal.Decimal) (*ExchangeDayData, error) {
	var out ExchangeDayData
	inc := bson.M{
		"volume_eth":           delta.VolumeETH,
		"volume_usd":           delta.VolumeUSD,
		"untracked_volume_usd": delta.UntrackedVolumeUSD,
		"tx_count":             1,
	}
	set := bson.M{"total_liquidity_usd": totalLiquidityUSD, "total_liquidity_eth": totalLiquidityETH}
	if err := s.upsertWindow(ctx, collExchangeDay, "exchange", dayID, date, inc, set, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SnapshotExchangeDayData refreshes the day window's liquidity snapshot
// without touching its volume/tx_count accumulators — Mint and Burn move
// liquidity but aren't volume events, unlike Swap which uses
// UpsertExchangeDayData.
func (s *Store) SnapshotExchangeDayData(ctx context.Context, dayID, date int64, totalLiquidityUSD, totalLiquidityETH decimal.Decimal) (*ExchangeDayData, error) {
	var out ExchangeDayData
	set := bson.M{"total_liquidity_usd": totalLiquidityUSD, "total_liquidity_eth": totalLiquidityETH}
	if err := s.upsertWindow(ctx, collExchangeDay, "exchange", dayID, date, nil, set, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
