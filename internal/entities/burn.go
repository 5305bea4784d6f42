package entities

import (
	"context"
	"fmt"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
)

// HandleBurn implements C6.burn (spec §4.6): mirrors Mint but keyed by the
// last burn row and by the burner's (sender's) user counters. A missing
// transaction record is tolerated as a silent skip rather than an
// assertion failure (spec §7, §9 open question (a)): unlike Mint, an
// orphaned Burn event is preserved as-is rather than treated as a
// programmer-error condition.
func (h *Handlers) HandleBurn(ctx context.Context, ev *chainevents.Burn, ec EventContext) error {
	tx, err := h.Store.GetTransaction(ctx, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: burn: load transaction: %w", err)
	}
	if tx == nil {
		h.Log.WithField("tx_hash", ec.TxHash).Debug("entities: burn: no transaction record, skipping")
		return nil
	}

	pair, err := h.Store.GetPair(ctx, ec.PairID)
	if err != nil {
		return fmt.Errorf("entities: burn: load pair %s: %w", ec.PairID, err)
	}
	open, err := h.Store.LastBurn(ctx, pair.ID, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: burn: load open burn row: %w", err)
	}
	assertf(ec, open != nil, "burn: no open burn row for pair %s tx %s", pair.ID, ec.TxHash)

	t0, err := h.Store.GetToken(ctx, pair.Token0ID)
	if err != nil {
		return fmt.Errorf("entities: burn: load token0: %w", err)
	}
	t1, err := h.Store.GetToken(ctx, pair.Token1ID)
	if err != nil {
		return fmt.Errorf("entities: burn: load token1: %w", err)
	}
	ethPrice, err := h.Oracle.GetEthPrice(ctx)
	if err != nil {
		return fmt.Errorf("entities: burn: eth price: %w", err)
	}

	amount0 := felt.ToDecimal(ev.Amount0, t0.Decimals)
	amount1 := felt.ToDecimal(ev.Amount1, t1.Decimals)
	amountTotalETH := t0.DerivedETH.Mul(amount0).Add(t1.DerivedETH.Mul(amount1))
	amountUSD := amountTotalETH.Mul(ethPrice)

	// The row's `to` is preserved from transfer-reconciliation time, not
	// overwritten by the explicit Burn event (core.py leaves it alone).
	if err := h.Store.CompleteBurn(ctx, pair.ID, ec.TxHash, open.Index, ev.Sender.Hex(), open.To, amount0, amount1, amountUSD); err != nil {
		return fmt.Errorf("entities: burn: complete row: %w", err)
	}

	if err := h.incTransactionCounts(ctx, pair); err != nil {
		return err
	}

	sender := ev.Sender.Hex()
	user, err := h.Store.GetOrCreateUser(ctx, sender, ec.Block)
	if err != nil {
		return fmt.Errorf("entities: burn: get/create user %s: %w", sender, err)
	}
	if err := h.Store.IncUserCounts(ctx, user.ID, 0, 1, 0); err != nil {
		return fmt.Errorf("entities: burn: inc user counts: %w", err)
	}

	if err := h.snapshotLiquidityPosition(ctx, pair, sender, ec); err != nil {
		return fmt.Errorf("entities: burn: snapshot: %w", err)
	}

	return h.applyMintBurnRollups(ctx, pair, t0, t1, ec)
}
