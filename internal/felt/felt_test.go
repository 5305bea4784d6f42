package felt

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFeltHexRoundTrip(t *testing.T) {
	f, err := FeltFromHex("0x0aa")
	require.NoError(t, err)
	require.Equal(t, "0xaa", f.Hex())

	back, err := FeltFromHex(f.Hex())
	require.NoError(t, err)
	require.Equal(t, f, back)
}

func TestFeltZeroHex(t *testing.T) {
	require.Equal(t, "0x0", ZeroFelt.Hex())
}

func TestU256FromLimbs(t *testing.T) {
	lo := FeltFromUint64(5)
	hi := FeltFromUint64(1)
	got := U256FromLimbs(lo, hi)
	want := new(uint256.Int).SetUint64(1)
	want.Lsh(want, 128)
	want.AddUint64(want, 5)
	require.Equal(t, want.String(), got.String())
}

func TestToDecimal(t *testing.T) {
	n := FeltFromUint64(1500000).Uint256()
	got := ToDecimal(n, 6)
	require.True(t, got.Equal(decimal.RequireFromString("1.5")))
}

func TestPriceDivByZero(t *testing.T) {
	got := Price(decimal.NewFromInt(10), decimal.Zero)
	require.True(t, got.IsZero())
}

func TestTrimShortString(t *testing.T) {
	var f Felt
	copy(f[32-3:], []byte("ETH"))
	require.Equal(t, "ETH", TrimShortString(f))
}
