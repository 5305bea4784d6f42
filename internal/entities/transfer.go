package entities

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammcontest/indexer/internal/chainevents"
	"github.com/ammcontest/indexer/internal/felt"
	"github.com/ammcontest/indexer/internal/storage"
)

// isSentinelInitialLock matches the (from=0, to=1, value=1000) initial-liquidity
// lock burned by the AMM contract itself on a pair's first mint — ignored
// entirely (spec §4.6).
func isSentinelInitialLock(from, to felt.Felt, value decimal.Decimal) bool {
	return from.IsZero() && to == felt.FeltFromUint64(1) && value.Equal(decimal.NewFromInt(1000))
}

// HandleTransfer implements C6.transfer: the Transfer→Mint/Burn
// reconciliation protocol (spec §4.6).
func (h *Handlers) HandleTransfer(ctx context.Context, ev *chainevents.Transfer, ec EventContext) error {
	if err := h.Store.UpsertTransaction(ctx, storage.Transaction{
		Hash: ec.TxHash, BlockNumber: ec.Block, BlockTimestamp: ec.Timestamp,
	}); err != nil {
		return fmt.Errorf("entities: transfer: upsert transaction: %w", err)
	}

	pair, err := h.Store.GetPair(ctx, ec.PairID)
	if err != nil {
		return fmt.Errorf("entities: transfer: load pair %s: %w", ec.PairID, err)
	}

	value := felt.ToDecimal(ev.Value, 18)
	from, to := ev.From.Hex(), ev.To.Hex()
	pairAddr := ec.PairID

	if isSentinelInitialLock(ev.From, ev.To, value) {
		return nil
	}

	switch {
	case ev.From.IsZero():
		if err := h.handleMintTransfer(ctx, pair, to, value, ec); err != nil {
			return err
		}
	case h.ZapInAddresses[from]:
		if err := h.handleZapIn(ctx, pairAddr, to, ec); err != nil {
			return err
		}
	case to == pairAddr:
		if err := h.handlePreBurnTransfer(ctx, pairAddr, from, to, value, ec); err != nil {
			return err
		}
	case ev.To.IsZero() && from == pairAddr:
		if err := h.handleCanonicalBurn(ctx, pair, value, ec); err != nil {
			return err
		}
	}

	for _, u := range []string{from, to} {
		if u == "" || u == felt.ZeroFelt.Hex() || u == pairAddr {
			continue
		}
		if err := h.snapshotLiquidityPosition(ctx, pair, u, ec); err != nil {
			return fmt.Errorf("entities: transfer: snapshot position %s: %w", u, err)
		}
	}
	return nil
}

func (h *Handlers) handleMintTransfer(ctx context.Context, pair *storage.Pair, to string, value decimal.Decimal, ec EventContext) error {
	if err := h.Store.SetPairTotalSupply(ctx, pair.ID, pair.TotalSupply.Add(value)); err != nil {
		return fmt.Errorf("entities: transfer: bump total supply: %w", err)
	}

	last, err := h.Store.LastMint(ctx, pair.ID, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: transfer: last mint: %w", err)
	}
	if last == nil || last.IsComplete() {
		count, err := h.Store.CountMintsForTx(ctx, pair.ID, ec.TxHash)
		if err != nil {
			return fmt.Errorf("entities: transfer: count mints: %w", err)
		}
		return h.Store.InsertMint(ctx, storage.Mint{
			TransactionHash: ec.TxHash,
			Index:           count,
			PairID:          pair.ID,
			To:              to,
			Liquidity:       value,
			Timestamp:       ec.Timestamp,
		})
	}
	// An incomplete mint is already open; its to/liquidity stand until the
	// explicit Mint event supplies its sender.
	return nil
}

func (h *Handlers) handleZapIn(ctx context.Context, pairID, to string, ec EventContext) error {
	last, err := h.Store.LastMint(ctx, pairID, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: transfer: zap-in last mint: %w", err)
	}
	if last == nil {
		return nil
	}
	return h.Store.SetMintToAndZapIn(ctx, pairID, ec.TxHash, last.Index, to)
}

func (h *Handlers) handlePreBurnTransfer(ctx context.Context, pairID, from, to string, value decimal.Decimal, ec EventContext) error {
	count, err := h.Store.CountBurnsForTx(ctx, pairID, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: transfer: count burns: %w", err)
	}
	return h.Store.InsertBurn(ctx, storage.Burn{
		TransactionHash: ec.TxHash,
		Index:           count,
		PairID:          pairID,
		Sender:          from,
		To:              to,
		Liquidity:       value,
		Timestamp:       ec.Timestamp,
		NeedsComplete:   true,
	})
}

func (h *Handlers) handleCanonicalBurn(ctx context.Context, pair *storage.Pair, value decimal.Decimal, ec EventContext) error {
	if err := h.Store.SetPairTotalSupply(ctx, pair.ID, pair.TotalSupply.Sub(value)); err != nil {
		return fmt.Errorf("entities: transfer: reduce total supply: %w", err)
	}

	last, err := h.Store.LastBurn(ctx, pair.ID, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: transfer: last burn: %w", err)
	}

	var burnIndex int64
	if last != nil && last.NeedsComplete {
		if err := h.Store.MarkBurnNeedsCompleteFalse(ctx, pair.ID, ec.TxHash, last.Index); err != nil {
			return fmt.Errorf("entities: transfer: clear needs_complete: %w", err)
		}
		burnIndex = last.Index
	} else {
		count, err := h.Store.CountBurnsForTx(ctx, pair.ID, ec.TxHash)
		if err != nil {
			return fmt.Errorf("entities: transfer: count burns: %w", err)
		}
		burnIndex = count
		if err := h.Store.InsertBurn(ctx, storage.Burn{
			TransactionHash: ec.TxHash,
			Index:           burnIndex,
			PairID:          pair.ID,
			Liquidity:       value,
			Timestamp:       ec.Timestamp,
			NeedsComplete:   false,
		}); err != nil {
			return fmt.Errorf("entities: transfer: insert burn: %w", err)
		}
	}

	pendingMint, err := h.Store.LastIncompleteMint(ctx, pair.ID, ec.TxHash)
	if err != nil {
		return fmt.Errorf("entities: transfer: fee-mint lookup: %w", err)
	}
	if pendingMint != nil {
		if err := h.Store.SetBurnFee(ctx, pair.ID, ec.TxHash, burnIndex, pendingMint.To, pendingMint.Liquidity); err != nil {
			return fmt.Errorf("entities: transfer: fold fee mint: %w", err)
		}
		if err := h.Store.DeleteMint(ctx, pair.ID, ec.TxHash, pendingMint.Index); err != nil {
			return fmt.Errorf("entities: transfer: delete fee mint: %w", err)
		}
	}
	return nil
}

// snapshotLiquidityPosition writes both the current-value LiquidityPosition
// and the append-only journal row. The two USD price fields are each
// token's derived_eth times the global ETH/USD price — NOT the pair's own
// token0_price/token1_price reserve ratio, which expresses a token-to-token
// exchange rate rather than a USD value (grounded on
// helpers.py::create_liquidity_snapshot).
func (h *Handlers) snapshotLiquidityPosition(ctx context.Context, pair *storage.Pair, user string, ec EventContext) error {
	balance, err := h.RPC.BalanceOf(ctx, mustFelt(pair.ID), mustFelt(user), ec.Block, 18)
	if err != nil {
		return fmt.Errorf("balance_of: %w", err)
	}
	if err := h.Store.UpsertLiquidityPosition(ctx, pair.ID, user, balance); err != nil {
		return err
	}

	p, err := h.Store.GetPair(ctx, pair.ID)
	if err != nil {
		return err
	}
	t0, err := h.Store.GetToken(ctx, p.Token0ID)
	if err != nil {
		return fmt.Errorf("entities: transfer: snapshot token0: %w", err)
	}
	t1, err := h.Store.GetToken(ctx, p.Token1ID)
	if err != nil {
		return fmt.Errorf("entities: transfer: snapshot token1: %w", err)
	}
	ethPrice, err := h.Oracle.GetEthPrice(ctx)
	if err != nil {
		return fmt.Errorf("entities: transfer: snapshot eth price: %w", err)
	}

	return h.Store.InsertLiquidityPositionSnapshot(ctx, storage.LiquidityPositionSnapshot{
		PairAddress:               pair.ID,
		User:                      user,
		Block:                     ec.Block,
		Timestamp:                 ec.Timestamp,
		Reserve0:                  p.Reserve0,
		Reserve1:                  p.Reserve1,
		ReserveUSD:                p.ReserveUSD,
		Token0PriceUSD:            t0.DerivedETH.Mul(ethPrice),
		Token1PriceUSD:            t1.DerivedETH.Mul(ethPrice),
		LiquidityTokenTotalSupply: p.TotalSupply,
		LiquidityTokenBalance:     balance,
	})
}

func mustFelt(hexStr string) felt.Felt {
	f, err := felt.FeltFromHex(hexStr)
	if err != nil {
		return felt.ZeroFelt
	}
	return f
}
