// Package contest implements the LP-contest scheduler (C8) and worker (C9):
// per-block cumulative-price extension, a paged distinct-user scan, and the
// per-user contribution/eligibility integration that produces each user's
// standing (spec §4.8/§4.9), grounded on
// original_source/src/swap/tasks.py's lp_contest_for_block /
// update_pair_cumulative_price / lp_contest_each_user trio.
package contest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ammcontest/indexer/internal/cache"
	"github.com/ammcontest/indexer/internal/queue"
	"github.com/ammcontest/indexer/internal/storage"
)

// Config bundles the contest window and eligibility constants spec §6/§9
// names as environment-configurable.
type Config struct {
	Epoch             string
	EligiblePairIDs   []string
	ContestStartBlock uint64
	ContestEndBlock   uint64
	MinLPValue        decimal.Decimal
	MinTimeSecs       int64
	PageSize          int64
}

// Scheduler is C8: gated by a Redis high-water mark, it extends every
// eligible pair's cumulative-price series and fans the affected users out
// to per-user worker tasks.
type Scheduler struct {
	Store  *storage.Store
	Cache  cache.Cache
	Queue  queue.Enqueuer
	Config Config
}

func (c *Config) lastBlockDoneKey() string { return c.Epoch + "_last_block_done" }

// AggregateBlock implements C8's aggregate_block procedure (spec §4.8).
// block is `b-1` from the indexer's throttled tick; offset paginates the
// distinct-user scan across re-enqueued continuations.
func (s *Scheduler) AggregateBlock(ctx context.Context, block uint64, offset int64) error {
	if block < s.Config.ContestStartBlock || block > s.Config.ContestEndBlock {
		return nil
	}

	if offset == 0 {
		done, err := s.lastBlockDone(ctx)
		if err != nil {
			return fmt.Errorf("contest: scheduler: read high-water mark: %w", err)
		}
		if block <= done {
			return nil
		}
		for _, pairID := range s.Config.EligiblePairIDs {
			if err := s.extendCumulativePrice(ctx, pairID, block); err != nil {
				return fmt.Errorf("contest: scheduler: extend %s: %w", pairID, err)
			}
		}
	}

	users, err := s.Store.DistinctSnapshotUsersPage(ctx, s.Config.EligiblePairIDs, block, offset, s.Config.PageSize)
	if err != nil {
		return fmt.Errorf("contest: scheduler: page users: %w", err)
	}

	blk, err := s.Store.GetBlockByNumber(ctx, block)
	if err != nil {
		return fmt.Errorf("contest: scheduler: load block %d: %w", block, err)
	}
	var ts int64
	if blk != nil {
		ts = blk.Timestamp
	}

	for _, user := range users {
		if err := s.Queue.EnqueueAggregateUser(ctx, queue.AggregateUserPayload{User: user, Block: block, Timestamp: ts}); err != nil {
			return fmt.Errorf("contest: scheduler: enqueue user %s: %w", user, err)
		}
	}

	if int64(len(users)) < s.Config.PageSize {
		if err := s.setLastBlockDone(ctx, block); err != nil {
			return fmt.Errorf("contest: scheduler: write high-water mark: %w", err)
		}
		return nil
	}
	return s.Queue.EnqueueAggregateBlock(ctx, queue.AggregateBlockPayload{Block: block, Offset: offset + s.Config.PageSize})
}

func (s *Scheduler) lastBlockDone(ctx context.Context) (uint64, error) {
	v, ok, err := s.Cache.Get(ctx, s.Config.lastBlockDoneKey())
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *Scheduler) setLastBlockDone(ctx context.Context, block uint64) error {
	return s.Cache.SetEX(ctx, s.Config.lastBlockDoneKey(), strconv.FormatUint(block, 10), cache.DefaultTTL)
}

// extendCumulativePrice implements update_pair_cumulative_price: walks
// block-by-block from the series' last point (or the contest start) up to
// and including `to`, resolving the pair's bitemporal state at each block
// and accumulating both the running sum and the time-weighted sum.
func (s *Scheduler) extendCumulativePrice(ctx context.Context, pairID string, to uint64) error {
	latest, err := s.Store.LatestCumulativePrice(ctx, pairID)
	if err != nil {
		return fmt.Errorf("load latest point: %w", err)
	}

	var startBlock uint64
	var cumPrice, timeCumPrice decimal.Decimal
	var prevTimestamp int64
	if latest == nil {
		startBlock = s.Config.ContestStartBlock
	} else {
		startBlock = latest.Block + 1
		cumPrice = latest.CumulativePriceUSD
		timeCumPrice = latest.TimeCumulativePriceUSD
		prevTimestamp = latest.Timestamp
	}

	for block := startBlock; block <= to; block++ {
		pair, err := s.Store.GetPairAtBlock(ctx, pairID, block)
		if err != nil {
			// No pair version covers this block yet (e.g. created later);
			// skip rather than fail the whole extension.
			continue
		}
		blk, err := s.Store.GetBlockByNumber(ctx, block)
		if err != nil {
			return fmt.Errorf("load block %d: %w", block, err)
		}
		if blk == nil {
			continue
		}
		priceUSD := decimal.Zero
		if !pair.TotalSupply.IsZero() {
			priceUSD = pair.ReserveUSD.Div(pair.TotalSupply)
		}

		if block == s.Config.ContestStartBlock {
			cumPrice = priceUSD
			timeCumPrice = priceUSD
		} else {
			cumPrice = cumPrice.Add(priceUSD)
			elapsed := decimal.NewFromInt(blk.Timestamp - prevTimestamp)
			timeCumPrice = timeCumPrice.Add(elapsed.Mul(priceUSD))
		}
		prevTimestamp = blk.Timestamp

		if err := s.Store.InsertCumulativePrice(ctx, storage.PairBlockCumulativePrice{
			PairID:                 pairID,
			Block:                  block,
			Timestamp:              blk.Timestamp,
			PriceUSD:               priceUSD,
			CumulativePriceUSD:     cumPrice,
			TimeCumulativePriceUSD: timeCumPrice,
		}); err != nil {
			return fmt.Errorf("insert point at block %d: %w", block, err)
		}
	}
	return nil
}
