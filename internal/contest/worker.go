package contest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammcontest/indexer/internal/storage"
)

// Worker is C9: per user, resumes from the stored LPContest checkpoint (or
// seeds one from pre-contest-start holdings) and integrates every snapshot
// up to latestBlock into a new standing.
type Worker struct {
	Store  *storage.Store
	Config Config
}

// checkpoint is the mutable running state the integration walk folds
// snapshots into — the in-memory mirror of tasks.py's per-call local
// variables, persisted back out as an LPContest row at the end.
type checkpoint struct {
	lastBlock         uint64
	lastTimestamp     int64
	contestValue      decimal.Decimal
	totalTimeEligible int64
	isEligible        bool
	lpValues          map[string]decimal.Decimal
	lpTokenBalances   map[string]decimal.Decimal
}

// AggregateUser implements C9's lp_contest_each_user (spec §4.9).
func (w *Worker) AggregateUser(ctx context.Context, user string, latestBlock uint64, latestTimestamp int64) error {
	ck, err := w.loadOrSeedCheckpoint(ctx, user)
	if err != nil {
		return fmt.Errorf("contest: worker: load checkpoint for %s: %w", user, err)
	}

	snapshots, err := w.Store.SnapshotsForUserInRange(ctx, user, w.Config.EligiblePairIDs, ck.lastBlock, latestBlock)
	if err != nil {
		return fmt.Errorf("contest: worker: load snapshots for %s: %w", user, err)
	}
	snapshots = collapseDuplicateBlockPair(snapshots)

	for _, snap := range snapshots {
		if snap.Block > ck.lastBlock {
			if err := w.integrate(ctx, ck, snap.Block, snap.Timestamp); err != nil {
				return fmt.Errorf("contest: worker: integrate block %d: %w", snap.Block, err)
			}
		}

		lpValue := decimal.Zero
		if !snap.LiquidityTokenTotalSupply.IsZero() {
			lpValue = snap.ReserveUSD.Div(snap.LiquidityTokenTotalSupply).Mul(snap.LiquidityTokenBalance)
		}
		ck.lpValues[snap.PairAddress] = lpValue
		ck.lpTokenBalances[snap.PairAddress] = snap.LiquidityTokenBalance
		ck.lastBlock = snap.Block
		ck.lastTimestamp = snap.Timestamp
	}

	if err := w.integrate(ctx, ck, latestBlock, latestTimestamp); err != nil {
		return fmt.Errorf("contest: worker: final integrate: %w", err)
	}

	out := storage.LPContest{
		User:              user,
		Block:             latestBlock,
		Timestamp:         latestTimestamp,
		ContestValue:      ck.contestValue,
		TotalLPValue:      totalLPValue(ck.lpValues),
		TotalTimeEligible: ck.totalTimeEligible,
		IsEligible:        ck.isEligible,
		LPTokenBalances:   ck.lpTokenBalances,
		LPValues:          ck.lpValues,
	}
	if err := w.Store.ReplaceLPContest(ctx, out); err != nil {
		return fmt.Errorf("contest: worker: replace standing: %w", err)
	}
	return w.Store.AppendLPContestBlock(ctx, storage.LPContestBlock{
		User: out.User, Block: out.Block, Timestamp: out.Timestamp,
		ContestValue: out.ContestValue, TotalLPValue: out.TotalLPValue,
		TotalTimeEligible: out.TotalTimeEligible, IsEligible: out.IsEligible,
		LPTokenBalances: out.LPTokenBalances, LPValues: out.LPValues,
	})
}

// loadOrSeedCheckpoint either resumes an existing LPContest row, or — for a
// first-time user — seeds one from their pre-contest-start holdings (spec
// §4.9).
func (w *Worker) loadOrSeedCheckpoint(ctx context.Context, user string) (*checkpoint, error) {
	existing, err := w.Store.GetLPContest(ctx, user)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &checkpoint{
			lastBlock:         existing.Block,
			lastTimestamp:     existing.Timestamp,
			contestValue:      existing.ContestValue,
			totalTimeEligible: existing.TotalTimeEligible,
			isEligible:        existing.IsEligible,
			lpValues:          cloneDecimalMap(existing.LPValues),
			lpTokenBalances:   cloneDecimalMap(existing.LPTokenBalances),
		}, nil
	}

	ck := &checkpoint{
		lastBlock:       w.Config.ContestStartBlock,
		lpValues:        map[string]decimal.Decimal{},
		lpTokenBalances: map[string]decimal.Decimal{},
	}
	startBlock, err := w.Store.GetBlockByNumber(ctx, w.Config.ContestStartBlock)
	if err != nil {
		return nil, err
	}
	if startBlock != nil {
		ck.lastTimestamp = startBlock.Timestamp
	}

	pairIDs, err := w.Store.DistinctPairsHeldBefore(ctx, user, w.Config.EligiblePairIDs, w.Config.ContestStartBlock)
	if err != nil {
		return nil, err
	}
	for _, pairID := range pairIDs {
		snap, err := w.Store.LatestSnapshotBefore(ctx, user, pairID, w.Config.ContestStartBlock)
		if err != nil {
			return nil, fmt.Errorf("seed pair %s: %w", pairID, err)
		}
		if snap == nil {
			continue
		}
		pair, err := w.Store.GetPairAtBlock(ctx, pairID, w.Config.ContestStartBlock)
		if err != nil {
			continue
		}
		lpValue := decimal.Zero
		if !pair.TotalSupply.IsZero() {
			lpValue = pair.ReserveUSD.Div(pair.TotalSupply).Mul(snap.LiquidityTokenBalance)
		}
		ck.lpValues[pairID] = lpValue
		ck.lpTokenBalances[pairID] = snap.LiquidityTokenBalance
	}
	return ck, nil
}

// integrate applies one step of "contribution then eligibility" between
// ck.lastBlock and thisBlock (spec §4.9), mutating ck in place.
func (w *Worker) integrate(ctx context.Context, ck *checkpoint, thisBlock uint64, thisTimestamp int64) error {
	if thisBlock <= ck.lastBlock {
		return nil
	}

	contribution := decimal.Zero
	for pairID, balance := range ck.lpTokenBalances {
		if balance.IsZero() {
			continue
		}
		curr, err := w.Store.CumulativePriceAt(ctx, pairID, thisBlock)
		if err != nil {
			return fmt.Errorf("cum price at %d for %s: %w", thisBlock, pairID, err)
		}
		prev, err := w.Store.CumulativePriceAt(ctx, pairID, ck.lastBlock)
		if err != nil {
			return fmt.Errorf("cum price at %d for %s: %w", ck.lastBlock, pairID, err)
		}
		if curr == nil || prev == nil {
			continue
		}
		contribution = contribution.Add(balance.Mul(curr.TimeCumulativePriceUSD.Sub(prev.TimeCumulativePriceUSD)))
	}
	ck.contestValue = ck.contestValue.Add(contribution)

	if totalLPValue(ck.lpValues).GreaterThan(w.Config.MinLPValue) {
		ck.totalTimeEligible += thisTimestamp - ck.lastTimestamp
		if !ck.isEligible && ck.totalTimeEligible > w.Config.MinTimeSecs {
			ck.isEligible = true
		}
	}

	ck.lastBlock = thisBlock
	ck.lastTimestamp = thisTimestamp
	return nil
}

func totalLPValue(m map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

func cloneDecimalMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// collapseDuplicateBlockPair drops a snapshot whenever the next one shares
// both its block and pair address, matching tasks.py's duplicate-collapse
// rule: only the last snapshot at a given (block, pair) is meaningful.
func collapseDuplicateBlockPair(snaps []storage.LiquidityPositionSnapshot) []storage.LiquidityPositionSnapshot {
	out := make([]storage.LiquidityPositionSnapshot, 0, len(snaps))
	for i, s := range snaps {
		if i+1 < len(snaps) {
			n := snaps[i+1]
			if n.Block == s.Block && n.PairAddress == s.PairAddress {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
