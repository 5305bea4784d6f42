package chainevents

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ammcontest/indexer/internal/felt"
)

func TestDecodePairCreated(t *testing.T) {
	ev := RawEvent{
		Keys: []felt.Felt{KeyPairCreated},
		Data: []felt.Felt{
			felt.FeltFromUint64(0xAA),
			felt.FeltFromUint64(0xBB),
			felt.FeltFromUint64(0xCC),
			felt.FeltFromUint64(1),
		},
	}
	d, err := Decode(ev)
	require.NoError(t, err)
	require.Equal(t, KindPairCreated, d.Kind)
	require.Equal(t, uint64(1), d.PairCreated.TotalPairs)
	require.Equal(t, felt.FeltFromUint64(0xCC), d.PairCreated.Pair)
}

func TestDecodeTransferValue(t *testing.T) {
	ev := RawEvent{
		Keys: []felt.Felt{KeyTransfer},
		Data: []felt.Felt{
			felt.ZeroFelt,
			felt.FeltFromUint64(0x1234),
			felt.FeltFromUint64(1000),
			felt.ZeroFelt,
		},
	}
	d, err := Decode(ev)
	require.NoError(t, err)
	require.Equal(t, KindTransfer, d.Kind)
	require.Equal(t, uint64(1000), d.Transfer.Value.Uint64())
}

func TestDecodeUnknownKeySkipped(t *testing.T) {
	ev := RawEvent{Keys: []felt.Felt{felt.FeltFromUint64(0xdead)}}
	d, err := Decode(ev)
	require.NoError(t, err)
	require.Equal(t, KindUnknown, d.Kind)
}

func TestDecodeSwapMissingData(t *testing.T) {
	ev := RawEvent{Keys: []felt.Felt{KeySwap}, Data: []felt.Felt{felt.ZeroFelt}}
	_, err := Decode(ev)
	require.Error(t, err)
}
