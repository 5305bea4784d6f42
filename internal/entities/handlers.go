// Package entities implements the per-event-kind state transitions of the
// exchange's entity graph: Factory/Token/Pair/User lifecycle, the
// Transfer↔Mint/Burn reconciliation protocol, Sync price updates, Swap
// accounting, and the daily/hourly roll-ups (spec §4.6).
package entities

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ammcontest/indexer/internal/chainrpc"
	"github.com/ammcontest/indexer/internal/oracle"
	"github.com/ammcontest/indexer/internal/storage"
)

// Handlers bundles every dependency C6 needs: storage, chain RPC for
// lazy token/position metadata, the price oracle, and the configured
// zap-in address set (spec §9 open question b).
type Handlers struct {
	Store          *storage.Store
	RPC            *chainrpc.Client
	Oracle         *oracle.Oracle
	Log            *logrus.Entry
	FactoryID      string
	ZapInAddresses map[string]bool
}

func New(store *storage.Store, rpc *chainrpc.Client, orc *oracle.Oracle, log *logrus.Entry, factoryID string, zapInAddresses []string) *Handlers {
	zap := make(map[string]bool, len(zapInAddresses))
	for _, a := range zapInAddresses {
		zap[a] = true
	}
	return &Handlers{Store: store, RPC: rpc, Oracle: orc, Log: log, FactoryID: factoryID, ZapInAddresses: zap}
}

// AssertionError is raised by assertf (spec §7's referential-assert error
// kind): a condition that should be impossible given correct upstream event
// ordering, such as a Sync for an unknown pair or a Mint with no preceding
// Transfer-opened row. It carries the block/tx the offending event arrived
// in so the crash-and-reconnect runtime (§4.5) can log structured context
// before exiting, rather than a bare panic string.
type AssertionError struct {
	Msg    string
	Block  uint64
	TxHash string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("entities: referential assertion failed at block %d tx %s: %s", e.Block, e.TxHash, e.Msg)
}

// assertf fails fast on a referential-assert violation: these are
// programmer-error class failures, not recoverable data conditions, so the
// offending block can be investigated rather than the indexer silently
// limping on with corrupted derived state.
func assertf(ec EventContext, cond bool, format string, args ...interface{}) {
	if !cond {
		panic(&AssertionError{Msg: fmt.Sprintf(format, args...), Block: ec.Block, TxHash: ec.TxHash})
	}
}

const (
	secondsPerDay  = 86400
	secondsPerHour = 3600
)

func dayID(ts int64) int64  { return ts / secondsPerDay }
func hourID(ts int64) int64 { return ts / secondsPerHour }

// EventContext carries the ambient facts every handler needs beyond the
// decoded event payload itself.
type EventContext struct {
	Block     uint64
	Timestamp int64
	TxHash    string
	LogIndex  int64
	PairID    string
}

var oneDecimal = decimal.NewFromInt(1)

// incTransactionCounts bumps the four transaction_count accumulators that
// both Mint and Burn touch: factory, both tokens, and the pair itself —
// grounded on helpers.py::update_transaction_count, a distinct operation
// from the per-user counters in storage.IncUserCounts.
func (h *Handlers) incTransactionCounts(ctx context.Context, pair *storage.Pair) error {
	if err := h.Store.IncFactoryTxCount(ctx, h.FactoryID); err != nil {
		return fmt.Errorf("entities: inc factory tx count: %w", err)
	}
	if err := h.Store.IncTokenTxCount(ctx, pair.Token0ID); err != nil {
		return fmt.Errorf("entities: inc token0 tx count: %w", err)
	}
	if err := h.Store.IncTokenTxCount(ctx, pair.Token1ID); err != nil {
		return fmt.Errorf("entities: inc token1 tx count: %w", err)
	}
	if err := h.Store.IncPairTxCount(ctx, pair.ID); err != nil {
		return fmt.Errorf("entities: inc pair tx count: %w", err)
	}
	return nil
}
