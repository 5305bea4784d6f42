package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsWhitelisted(t *testing.T) {
	o := New(nil, []string{"ETH", "USDC"}, "ETH", "ETH-USDC")
	require.True(t, o.isWhitelisted("ETH"))
	require.True(t, o.isWhitelisted("USDC"))
	require.False(t, o.isWhitelisted("RANDOM"))
}
