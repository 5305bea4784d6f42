package entities

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
	"github.com/ammcontest/indexer/internal/storage"
)

var two = decimal.NewFromInt(2)

// HandleSwap implements C6.swap (spec §4.6, §4.7): computes each leg's
// decimal amounts, derives a tracked USD volume from the oracle's averaged
// two-sided figure (no whitelist check is applied to it), and rolls both tracked and untracked figures up through
// token, pair, and factory counters before recording the append-only row.
func (h *Handlers) HandleSwap(ctx context.Context, ev *chainevents.Swap, ec EventContext) error {
	pair, err := h.Store.GetPair(ctx, ec.PairID)
	if err != nil {
		return fmt.Errorf("entities: swap: load pair %s: %w", ec.PairID, err)
	}
	t0, err := h.Store.GetToken(ctx, pair.Token0ID)
	if err != nil {
		return fmt.Errorf("entities: swap: load token0: %w", err)
	}
	t1, err := h.Store.GetToken(ctx, pair.Token1ID)
	if err != nil {
		return fmt.Errorf("entities: swap: load token1: %w", err)
	}
	ethPrice, err := h.Oracle.GetEthPrice(ctx)
	if err != nil {
		return fmt.Errorf("entities: swap: eth price: %w", err)
	}

	amount0In := felt.ToDecimal(ev.Amount0In, t0.Decimals)
	amount1In := felt.ToDecimal(ev.Amount1In, t1.Decimals)
	amount0Out := felt.ToDecimal(ev.Amount0Out, t0.Decimals)
	amount1Out := felt.ToDecimal(ev.Amount1Out, t1.Decimals)
	amount0Total := amount0In.Add(amount0Out)
	amount1Total := amount1In.Add(amount1Out)

	// derivedAmountETH is the average of both legs valued in ETH — the
	// untracked figure, computed regardless of whitelist membership.
	derivedAmountETH := t1.DerivedETH.Mul(amount1Total).Add(t0.DerivedETH.Mul(amount0Total)).Div(two)
	untrackedAmountUSD := derivedAmountETH.Mul(ethPrice)

	trackedAmountUSD, err := h.Oracle.GetTrackedVolumeUSD(ctx, t0.ID, amount0Total, t1.ID, amount1Total)
	if err != nil {
		return fmt.Errorf("entities: swap: tracked volume: %w", err)
	}
	trackedAmountETH := felt.Price(trackedAmountUSD, ethPrice)

	amount0TotalUSD := t0.DerivedETH.Mul(ethPrice).Mul(amount0Total)
	amount1TotalUSD := t1.DerivedETH.Mul(ethPrice).Mul(amount1Total)

	sender := ev.Sender.Hex()
	to := ev.To.Hex()
	user, err := h.Store.GetOrCreateUser(ctx, to, ec.Block)
	if err != nil {
		return fmt.Errorf("entities: swap: get/create user %s: %w", to, err)
	}
	if err := h.Store.IncUserCounts(ctx, user.ID, 0, 0, 1); err != nil {
		return fmt.Errorf("entities: swap: inc user counts: %w", err)
	}

	// IncTokenSwapDelta/IncPairSwapDelta already bump their own tx_count
	// (spec §4.8); unlike Mint/Burn, Swap does not also call
	// incTransactionCounts, which would double-count both.
	//
	// Both tokens' trade_volume_usd take the same tracked_amount_usd figure
	// (spec §4.6: "per-token and per-pair volumes use the tracked figure"),
	// not each token's own untracked USD leg — amount0TotalUSD/
	// amount1TotalUSD are untracked per-leg figures used only by the
	// token-day roll-up below (core.py::handle_swap).
	if err := h.Store.IncTokenSwapDelta(ctx, t0.ID, storage.TokenSwapDelta{
		Volume: amount0Total, VolumeUSD: trackedAmountUSD, UntrackedVolumeUSD: untrackedAmountUSD,
	}); err != nil {
		return fmt.Errorf("entities: swap: inc token0 delta: %w", err)
	}
	if err := h.Store.IncTokenSwapDelta(ctx, t1.ID, storage.TokenSwapDelta{
		Volume: amount1Total, VolumeUSD: trackedAmountUSD, UntrackedVolumeUSD: untrackedAmountUSD,
	}); err != nil {
		return fmt.Errorf("entities: swap: inc token1 delta: %w", err)
	}
	// untracked_volume_usd on the pair reuses derived_amount_eth rather than
	// the USD figure — preserved as-is from core.py's handle_swap rather
	// than silently corrected, since changing the unit would change every
	// downstream pair ranking that reads this field.
	if err := h.Store.IncPairSwapDelta(ctx, pair.ID, storage.PairSwapDelta{
		VolumeToken0: amount0Total, VolumeToken1: amount1Total, VolumeUSD: trackedAmountUSD, UntrackedVolumeUSD: derivedAmountETH,
	}); err != nil {
		return fmt.Errorf("entities: swap: inc pair delta: %w", err)
	}
	if err := h.Store.IncFactoryTxCount(ctx, h.FactoryID); err != nil {
		return fmt.Errorf("entities: swap: inc factory tx count: %w", err)
	}
	if err := h.Store.IncFactoryVolume(ctx, h.FactoryID, storage.FactoryVolumeDelta{
		VolumeUSD: trackedAmountUSD, VolumeETH: trackedAmountETH, UntrackedVolumeUSD: untrackedAmountUSD,
	}); err != nil {
		return fmt.Errorf("entities: swap: inc factory volume: %w", err)
	}

	if err := h.Store.UpsertTransaction(ctx, storage.Transaction{Hash: ec.TxHash, BlockNumber: ec.Block, BlockTimestamp: ec.Timestamp}); err != nil {
		return fmt.Errorf("entities: swap: upsert transaction: %w", err)
	}

	amountUSD := trackedAmountUSD
	if amountUSD.IsZero() {
		amountUSD = untrackedAmountUSD
	}
	if err := h.Store.InsertSwap(ctx, storage.Swap{
		TransactionHash: ec.TxHash,
		LogIndex:        ec.LogIndex,
		PairID:          pair.ID,
		Timestamp:       ec.Timestamp,
		Sender:          sender,
		To:              to,
		Amount0In:       amount0In,
		Amount0Out:      amount0Out,
		Amount1In:       amount1In,
		Amount1Out:      amount1Out,
		AmountUSD:       amountUSD,
	}); err != nil {
		return fmt.Errorf("entities: swap: insert row: %w", err)
	}

	return h.applySwapRollups(ctx, pair, t0, t1, ec, amount0Total, amount1Total, trackedAmountUSD, trackedAmountETH, untrackedAmountUSD, amount0TotalUSD, amount1TotalUSD)
}
