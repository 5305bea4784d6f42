package entities

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammcontest/indexer/internal/storage"
)

// applyMintBurnRollups fans Mint/Burn out to the day/hour windows (spec
// §4.8): reserves move, so every window's snapshot fields refresh, but
// liquidity events carry no trade volume, so every $inc delta is zero —
// the pair/token windows still bump tx_count as a side effect of
// upsertWindow's unconditional +1, while the exchange window uses the
// snapshot-only path that doesn't.
func (h *Handlers) applyMintBurnRollups(ctx context.Context, pair *storage.Pair, t0, t1 *storage.Token, ec EventContext) error {
	p, err := h.Store.GetPair(ctx, pair.ID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload pair: %w", err)
	}

	if _, err := h.Store.UpsertPairDayData(ctx, p.ID, dayID(ec.Timestamp), ec.Timestamp, storage.PairWindowDelta{}, p.Reserve0, p.Reserve1, p.ReserveUSD); err != nil {
		return fmt.Errorf("entities: rollups: pair day: %w", err)
	}
	if _, err := h.Store.UpsertPairHourData(ctx, p.ID, hourID(ec.Timestamp), ec.Timestamp, storage.PairWindowDelta{}, p.Reserve0, p.Reserve1, p.ReserveUSD); err != nil {
		return fmt.Errorf("entities: rollups: pair hour: %w", err)
	}

	factory, err := h.Store.GetFactory(ctx, h.FactoryID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload factory: %w", err)
	}
	if _, err := h.Store.SnapshotExchangeDayData(ctx, dayID(ec.Timestamp), ec.Timestamp, factory.TotalLiquidityUSD, factory.TotalLiquidityETH); err != nil {
		return fmt.Errorf("entities: rollups: exchange day: %w", err)
	}

	nt0, err := h.Store.GetToken(ctx, t0.ID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload token0: %w", err)
	}
	nt1, err := h.Store.GetToken(ctx, t1.ID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload token1: %w", err)
	}
	ethPrice, err := h.Oracle.GetEthPrice(ctx)
	if err != nil {
		return fmt.Errorf("entities: rollups: eth price: %w", err)
	}
	if _, err := h.Store.UpsertTokenDayData(ctx, nt0.ID, dayID(ec.Timestamp), ec.Timestamp, storage.TokenDayDelta{}, nt0.TotalLiquidity, nt0.DerivedETH.Mul(ethPrice)); err != nil {
		return fmt.Errorf("entities: rollups: token0 day: %w", err)
	}
	if _, err := h.Store.UpsertTokenDayData(ctx, nt1.ID, dayID(ec.Timestamp), ec.Timestamp, storage.TokenDayDelta{}, nt1.TotalLiquidity, nt1.DerivedETH.Mul(ethPrice)); err != nil {
		return fmt.Errorf("entities: rollups: token1 day: %w", err)
	}
	return nil
}

// applySwapRollups fans a Swap out to the same four windows, this time with
// real volume deltas (spec §4.8).
func (h *Handlers) applySwapRollups(
	ctx context.Context,
	pair *storage.Pair, t0, t1 *storage.Token,
	ec EventContext,
	amount0Total, amount1Total decimal.Decimal,
	trackedAmountUSD, trackedAmountETH, untrackedAmountUSD decimal.Decimal,
	amount0TotalUSD, amount1TotalUSD decimal.Decimal,
) error {
	p, err := h.Store.GetPair(ctx, pair.ID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload pair: %w", err)
	}
	pairDelta := storage.PairWindowDelta{VolumeToken0: amount0Total, VolumeToken1: amount1Total, VolumeUSD: trackedAmountUSD}
	if _, err := h.Store.UpsertPairDayData(ctx, p.ID, dayID(ec.Timestamp), ec.Timestamp, pairDelta, p.Reserve0, p.Reserve1, p.ReserveUSD); err != nil {
		return fmt.Errorf("entities: rollups: pair day: %w", err)
	}
	if _, err := h.Store.UpsertPairHourData(ctx, p.ID, hourID(ec.Timestamp), ec.Timestamp, pairDelta, p.Reserve0, p.Reserve1, p.ReserveUSD); err != nil {
		return fmt.Errorf("entities: rollups: pair hour: %w", err)
	}

	factory, err := h.Store.GetFactory(ctx, h.FactoryID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload factory: %w", err)
	}
	exchangeDelta := storage.ExchangeDayDelta{VolumeETH: trackedAmountETH, VolumeUSD: trackedAmountUSD, UntrackedVolumeUSD: untrackedAmountUSD}
	if _, err := h.Store.UpsertExchangeDayData(ctx, dayID(ec.Timestamp), ec.Timestamp, exchangeDelta, factory.TotalLiquidityUSD, factory.TotalLiquidityETH); err != nil {
		return fmt.Errorf("entities: rollups: exchange day: %w", err)
	}

	nt0, err := h.Store.GetToken(ctx, t0.ID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload token0: %w", err)
	}
	nt1, err := h.Store.GetToken(ctx, t1.ID)
	if err != nil {
		return fmt.Errorf("entities: rollups: reload token1: %w", err)
	}
	ethPrice, err := h.Oracle.GetEthPrice(ctx)
	if err != nil {
		return fmt.Errorf("entities: rollups: eth price: %w", err)
	}
	t0Delta := storage.TokenDayDelta{Volume: amount0Total, VolumeUSD: amount0TotalUSD, UntrackedVolumeUSD: untrackedAmountUSD}
	if _, err := h.Store.UpsertTokenDayData(ctx, nt0.ID, dayID(ec.Timestamp), ec.Timestamp, t0Delta, nt0.TotalLiquidity, nt0.DerivedETH.Mul(ethPrice)); err != nil {
		return fmt.Errorf("entities: rollups: token0 day: %w", err)
	}
	t1Delta := storage.TokenDayDelta{Volume: amount1Total, VolumeUSD: amount1TotalUSD, UntrackedVolumeUSD: untrackedAmountUSD}
	if _, err := h.Store.UpsertTokenDayData(ctx, nt1.ID, dayID(ec.Timestamp), ec.Timestamp, t1Delta, nt1.TotalLiquidity, nt1.DerivedETH.Mul(ethPrice)); err != nil {
		return fmt.Errorf("entities: rollups: token1 day: %w", err)
	}
	return nil
}
