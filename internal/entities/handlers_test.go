package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammcontest/indexer/internal/felt"
)

func TestDayAndHourID(t *testing.T) {
	require.Equal(t, int64(0), dayID(0))
	require.Equal(t, int64(1), dayID(secondsPerDay))
	require.Equal(t, int64(1), dayID(secondsPerDay+1))
	require.Equal(t, int64(0), hourID(secondsPerHour-1))
	require.Equal(t, int64(2), hourID(2*secondsPerHour))
}

func TestIsSentinelInitialLock(t *testing.T) {
	one := felt.FeltFromUint64(1)
	thousand := decimal.NewFromInt(1000)
	require.True(t, isSentinelInitialLock(felt.ZeroFelt, one, thousand))
	require.False(t, isSentinelInitialLock(felt.ZeroFelt, one, decimal.NewFromInt(999)), "wrong value must not match the sentinel")
	require.False(t, isSentinelInitialLock(felt.ZeroFelt, felt.FeltFromUint64(2), thousand), "wrong recipient must not match the sentinel")
	require.False(t, isSentinelInitialLock(felt.FeltFromUint64(9), one, thousand), "non-zero sender must not match the sentinel")
}

func TestAssertfPanicsWithAssertionError(t *testing.T) {
	ec := EventContext{Block: 42, TxHash: "0xabc"}
	defer func() {
		r := recover()
		require.NotNil(t, r, "assertf must panic when its condition is false")
		err, ok := r.(*AssertionError)
		require.True(t, ok, "panic value must be *AssertionError, got %T", r)
		require.Equal(t, uint64(42), err.Block)
		require.Equal(t, "0xabc", err.TxHash)
		require.Contains(t, err.Error(), "no open mint row")
	}()
	assertf(ec, false, "no open mint row for pair %s", "0xp")
}

func TestAssertfNoPanicWhenConditionHolds(t *testing.T) {
	defer func() {
		require.Nil(t, recover(), "assertf must not panic when its condition is true")
	}()
	assertf(EventContext{}, true, "unreachable")
}
