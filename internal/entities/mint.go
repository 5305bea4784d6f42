package entities

import (
	"context"
	"fmt"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
)

// HandleMint implements C6.mint (spec §4.6): finalizes the most recent open
// mint row opened by the Transfer protocol, bumps the four transaction
// counters and the recipient's user counters, writes a post-mint liquidity
// snapshot, and fans out to the roll-up windows. A missing transaction or
// open mint row is a referential-assert failure (spec §7): Mint can only
// ever follow a Transfer that opened a row for this exact (pair, tx).
func (h *Handlers) HandleMint(ctx context.Context, ev *chainevents.Mint, ec EventContext) error {
	tx, err := h.Store.GetTransaction(ctx, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: mint: load transaction: %w", err)
	}
	assertf(ec, tx != nil, "mint: no transaction record for %s", ec.TxHash)

	pair, err := h.Store.GetPair(ctx, ec.PairID)
	if err != nil {
		return fmt.Errorf("entities: mint: load pair %s: %w", ec.PairID, err)
	}
	open, err := h.Store.LastIncompleteMint(ctx, pair.ID, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: mint: load open mint row: %w", err)
	}
	assertf(ec, open != nil, "mint: no open mint row for pair %s tx %s", pair.ID, ec.TxHash)

	t0, err := h.Store.GetToken(ctx, pair.Token0ID)
	if err != nil {
		return fmt.Errorf("entities: mint: load token0: %w", err)
	}
	t1, err := h.Store.GetToken(ctx, pair.Token1ID)
	if err != nil {
		return fmt.Errorf("entities: mint: load token1: %w", err)
	}
	ethPrice, err := h.Oracle.GetEthPrice(ctx)
	if err != nil {
		return fmt.Errorf("entities: mint: eth price: %w", err)
	}

	amount0 := felt.ToDecimal(ev.Amount0, t0.Decimals)
	amount1 := felt.ToDecimal(ev.Amount1, t1.Decimals)
	amountTotalETH := t0.DerivedETH.Mul(amount0).Add(t1.DerivedETH.Mul(amount1))
	amountUSD := amountTotalETH.Mul(ethPrice)

	if err := h.Store.CompleteMint(ctx, pair.ID, ec.TxHash, open.Index, ev.Sender.Hex(), amount0, amount1, amountUSD); err != nil {
		return fmt.Errorf("entities: mint: complete row: %w", err)
	}

	if err := h.incTransactionCounts(ctx, pair); err != nil {
		return err
	}

	to := open.To
	user, err := h.Store.GetOrCreateUser(ctx, to, ec.Block)
	if err != nil {
		return fmt.Errorf("entities: mint: get/create user %s: %w", to, err)
	}
	if err := h.Store.IncUserCounts(ctx, user.ID, 1, 0, 0); err != nil {
		return fmt.Errorf("entities: mint: inc user counts: %w", err)
	}

	if err := h.snapshotLiquidityPosition(ctx, pair, to, ec); err != nil {
		return fmt.Errorf("entities: mint: snapshot: %w", err)
	}

	return h.applyMintBurnRollups(ctx, pair, t0, t1, ec)
}
