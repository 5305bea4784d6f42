package contest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammcontest/indexer/internal/storage"
)

func TestTotalLPValue(t *testing.T) {
	m := map[string]decimal.Decimal{
		"0xa": decimal.NewFromInt(10),
		"0xb": decimal.NewFromInt(15),
	}
	require.True(t, totalLPValue(m).Equal(decimal.NewFromInt(25)))
	require.True(t, totalLPValue(nil).IsZero())
}

func TestCloneDecimalMapIsIndependent(t *testing.T) {
	orig := map[string]decimal.Decimal{"0xa": decimal.NewFromInt(1)}
	clone := cloneDecimalMap(orig)
	clone["0xa"] = decimal.NewFromInt(99)
	require.True(t, orig["0xa"].Equal(decimal.NewFromInt(1)), "mutating the clone must not affect the original")
}

func TestCollapseDuplicateBlockPairKeepsLastOfEachGroup(t *testing.T) {
	snaps := []storage.LiquidityPositionSnapshot{
		{PairAddress: "0xp", Block: 100, LiquidityTokenBalance: decimal.NewFromInt(1)},
		{PairAddress: "0xp", Block: 100, LiquidityTokenBalance: decimal.NewFromInt(2)},
		{PairAddress: "0xp", Block: 100, LiquidityTokenBalance: decimal.NewFromInt(3)},
		{PairAddress: "0xp", Block: 200, LiquidityTokenBalance: decimal.NewFromInt(4)},
	}
	got := collapseDuplicateBlockPair(snaps)
	require.Len(t, got, 2)
	require.True(t, got[0].LiquidityTokenBalance.Equal(decimal.NewFromInt(3)), "only the last snapshot of the duplicate (block,pair) group survives")
	require.Equal(t, uint64(200), got[1].Block)
}

func TestCollapseDuplicateBlockPairDistinguishesByPair(t *testing.T) {
	snaps := []storage.LiquidityPositionSnapshot{
		{PairAddress: "0xp", Block: 100, LiquidityTokenBalance: decimal.NewFromInt(1)},
		{PairAddress: "0xq", Block: 100, LiquidityTokenBalance: decimal.NewFromInt(2)},
	}
	got := collapseDuplicateBlockPair(snaps)
	require.Len(t, got, 2, "same block but different pair must not collapse")
}

func TestCollapseDuplicateBlockPairEmpty(t *testing.T) {
	require.Empty(t, collapseDuplicateBlockPair(nil))
}
