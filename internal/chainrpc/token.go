package chainrpc

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammcontest/indexer/internal/felt"
)

// Entry point selectors for the four ERC20-equivalent view methods every
// token contract exposes (spec §4.2). Computed once at package init via
// felt.SelectorFromName rather than hand-copied from an explorer, so a typo
// here would be a compile-time constant mistake, not a silent wrong-selector
// call.
var (
	selName        = felt.SelectorFromName("name")
	selSymbol      = felt.SelectorFromName("symbol")
	selDecimals    = felt.SelectorFromName("decimals")
	selTotalSupply = felt.SelectorFromName("totalSupply")
	selBalanceOf   = felt.SelectorFromName("balanceOf")
)

// TokenMetadata fetches name/symbol/decimals/totalSupply with four
// sequential calls, matching the shape GetOrCreateToken's fetch callback expects.
func (c *Client) TokenMetadata(ctx context.Context, token felt.Felt, atBlock uint64) (name, symbol string, decimals uint8, totalSupply decimal.Decimal, err error) {
	nameRes, err := c.Call(ctx, token, selName, nil, &atBlock)
	if err != nil {
		return "", "", 0, decimal.Zero, fmt.Errorf("chainrpc: name(%s): %w", token, err)
	}
	symRes, err := c.Call(ctx, token, selSymbol, nil, &atBlock)
	if err != nil {
		return "", "", 0, decimal.Zero, fmt.Errorf("chainrpc: symbol(%s): %w", token, err)
	}
	decRes, err := c.Call(ctx, token, selDecimals, nil, &atBlock)
	if err != nil {
		return "", "", 0, decimal.Zero, fmt.Errorf("chainrpc: decimals(%s): %w", token, err)
	}
	supplyRes, err := c.Call(ctx, token, selTotalSupply, nil, &atBlock)
	if err != nil {
		return "", "", 0, decimal.Zero, fmt.Errorf("chainrpc: totalSupply(%s): %w", token, err)
	}

	name = decodeShortStringOrFelt(nameRes)
	symbol = decodeShortStringOrFelt(symRes)
	if len(decRes) > 0 {
		decimals = uint8(decRes[0].Uint256().Uint64())
	}
	totalSupply = decimalFromCallResult(supplyRes, decimals)
	return name, symbol, decimals, totalSupply, nil
}

// BalanceOf reads a token balance for account, scaled to its decimals.
func (c *Client) BalanceOf(ctx context.Context, token, account felt.Felt, atBlock uint64, decimals uint8) (decimal.Decimal, error) {
	res, err := c.Call(ctx, token, selBalanceOf, []felt.Felt{account}, &atBlock)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chainrpc: balanceOf(%s, %s): %w", token, account, err)
	}
	return decimalFromCallResult(res, decimals), nil
}

// decodeShortStringOrFelt decodes a single-felt short-string return value;
// some deployed tokens return name/symbol as a felt-packed short string
// rather than a Cairo ByteArray, so this is the common-enough-to-matter
// fallback path.
func decodeShortStringOrFelt(res []felt.Felt) string {
	if len(res) == 0 {
		return ""
	}
	return felt.TrimShortString(res[0])
}

// decimalFromCallResult composes a u256 call result (one or two felts) into
// a scaled decimal amount.
func decimalFromCallResult(res []felt.Felt, decimals uint8) decimal.Decimal {
	switch len(res) {
	case 0:
		return decimal.Zero
	case 1:
		return felt.ToDecimal(res[0].Uint256(), decimals)
	default:
		return felt.ToDecimal(felt.U256FromLimbs(res[0], res[1]), decimals)
	}
}
