package entities

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
	"github.com/ammcontest/indexer/internal/storage"
)

// HandleSync implements C6.sync (spec §4.6): rescales reserves, recomputes
// both token0_price/token1_price, moves each token's total_liquidity by the
// delta of this pair's own reserves, refreshes both tokens' derived_eth via
// the oracle, and rolls the resulting tracked-liquidity delta up into the
// factory's running total.
func (h *Handlers) HandleSync(ctx context.Context, ev *chainevents.Sync, ec EventContext) error {
	pair, err := h.Store.GetPair(ctx, ec.PairID)
	assertf(ec, !errors.Is(err, mongo.ErrNoDocuments), "sync: unknown pair %s", ec.PairID)
	if err != nil {
		return fmt.Errorf("entities: sync: load pair %s: %w", ec.PairID, err)
	}
	t0, err := h.Store.GetToken(ctx, pair.Token0ID)
	if err != nil {
		return fmt.Errorf("entities: sync: load token0: %w", err)
	}
	t1, err := h.Store.GetToken(ctx, pair.Token1ID)
	if err != nil {
		return fmt.Errorf("entities: sync: load token1: %w", err)
	}

	reserve0 := felt.ToDecimal(ev.Reserve0, t0.Decimals)
	reserve1 := felt.ToDecimal(ev.Reserve1, t1.Decimals)
	token0Price := felt.Price(reserve0, reserve1)
	token1Price := felt.Price(reserve1, reserve0)

	// Token total_liquidity moves by the delta of this pair's own reserve,
	// not a from-scratch recomputation (spec §4.6).
	if err := h.Store.SetTokenTotalLiquidity(ctx, t0.ID, t0.TotalLiquidity.Sub(pair.Reserve0).Add(reserve0)); err != nil {
		return fmt.Errorf("entities: sync: token0 liquidity: %w", err)
	}
	if err := h.Store.SetTokenTotalLiquidity(ctx, t1.ID, t1.TotalLiquidity.Sub(pair.Reserve1).Add(reserve1)); err != nil {
		return fmt.Errorf("entities: sync: token1 liquidity: %w", err)
	}

	// Sync is the trigger for re-deriving prices (spec §4.7): both tokens'
	// derived_eth are refreshed before pricing this pair's own reserves.
	eth0, err := h.Oracle.FindEthPerToken(ctx, t0.ID)
	if err != nil {
		return fmt.Errorf("entities: sync: derive token0 eth: %w", err)
	}
	eth1, err := h.Oracle.FindEthPerToken(ctx, t1.ID)
	if err != nil {
		return fmt.Errorf("entities: sync: derive token1 eth: %w", err)
	}
	ethPrice, err := h.Oracle.GetEthPrice(ctx)
	if err != nil {
		return fmt.Errorf("entities: sync: eth price: %w", err)
	}

	reserveETH := reserve0.Mul(eth0).Add(reserve1.Mul(eth1))
	reserveUSD := reserveETH.Mul(ethPrice)

	trackedLiquidityUSD, err := h.Oracle.GetTrackedLiquidityUSD(ctx, t0.ID, reserve0, t1.ID, reserve1)
	if err != nil {
		return fmt.Errorf("entities: sync: tracked liquidity: %w", err)
	}
	// tracked_reserve_eth is the ETH-denominated counterpart of the oracle's
	// USD figure, recovered the same way Swap recovers tracked_amount_eth
	// from tracked_amount_usd (core.py's handle_swap).
	trackedReserveETH := felt.Price(trackedLiquidityUSD, ethPrice)

	if err := h.Store.UpdatePairReserves(ctx, pair.ID, storage.PairReserveUpdate{
		Reserve0:          reserve0,
		Reserve1:          reserve1,
		Token0Price:       token0Price,
		Token1Price:       token1Price,
		ReserveETH:        reserveETH,
		ReserveUSD:        reserveUSD,
		TrackedReserveETH: trackedReserveETH,
	}); err != nil {
		return fmt.Errorf("entities: sync: update reserves: %w", err)
	}

	factory, err := h.Store.GetFactory(ctx, h.FactoryID)
	if err != nil {
		return fmt.Errorf("entities: sync: load factory: %w", err)
	}
	// Factory total_liquidity_eth moves by the delta of this pair's own
	// tracked_reserve_eth (spec §4.6); total_liquidity_usd is recomputed
	// from the updated ETH total, not accumulated separately.
	newLiquidityETH := factory.TotalLiquidityETH.Sub(pair.TrackedReserveETH).Add(trackedReserveETH)
	newLiquidityUSD := newLiquidityETH.Mul(ethPrice)
	if err := h.Store.SetFactoryLiquidity(ctx, h.FactoryID, newLiquidityUSD, newLiquidityETH); err != nil {
		return fmt.Errorf("entities: sync: update factory liquidity: %w", err)
	}

	return nil
}
