// Package oracle derives each token's ETH price via a breadth-first search
// of radius one over a whitelist of reference assets, and classifies
// swap/liquidity USD figures as tracked or untracked (spec §4.7).
package oracle

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ammcontest/indexer/internal/storage"
)

// Oracle reads and writes through the storage adapter; it has no state of
// its own beyond the whitelist it was configured with (spec §9: no live
// in-memory price graph, only id-keyed write-through).
type Oracle struct {
	store        *storage.Store
	whitelist    []string
	ethAsset     string
	ethUSDPairID string
}

func New(store *storage.Store, whitelist []string, ethAsset, ethUSDPairID string) *Oracle {
	return &Oracle{store: store, whitelist: whitelist, ethAsset: ethAsset, ethUSDPairID: ethUSDPairID}
}

// GetEthPrice reads token1_price of the hard-configured ETH/USD pair,
// returning 0 if it doesn't exist yet (spec §4.7).
func (o *Oracle) GetEthPrice(ctx context.Context) (decimal.Decimal, error) {
	pair, err := o.store.GetPair(ctx, o.ethUSDPairID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return pair.Token1Price, nil
}

// FindEthPerToken implements the BFS-of-radius-1 price derivation: returns
// 1 for ETH itself, else the first whitelist match's derived price,
// write-through to the token's stored derived_eth, or 0 if nothing matches.
func (o *Oracle) FindEthPerToken(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if tokenID == o.ethAsset {
		return decimal.NewFromInt(1), nil
	}

	pairs, err := o.store.PairsByToken(ctx, tokenID)
	if err != nil {
		return decimal.Zero, err
	}
	byToken := make(map[string]storage.Pair, len(pairs))
	for _, p := range pairs {
		var other string
		if p.Token0ID == tokenID {
			other = p.Token1ID
		} else {
			other = p.Token0ID
		}
		byToken[other] = p
	}

	for _, w := range o.whitelist {
		p, ok := byToken[w]
		if !ok {
			continue
		}
		wToken, err := o.store.GetToken(ctx, w)
		if err != nil {
			continue
		}

		var sidePrice decimal.Decimal
		if p.Token0ID == w {
			// w is token0, t is token1: price of t in terms of w is token0_price.
			sidePrice = p.Token0Price
		} else {
			sidePrice = p.Token1Price
		}

		derived := sidePrice.Mul(wToken.DerivedETH)
		if err := o.store.SetTokenDerivedETH(ctx, tokenID, derived); err != nil {
			return decimal.Zero, err
		}
		return derived, nil
	}
	return decimal.Zero, nil
}

// GetTrackedLiquidityUSD implements spec §4.7's three-way classification.
func (o *Oracle) GetTrackedLiquidityUSD(ctx context.Context, t0 string, a0 decimal.Decimal, t1 string, a1 decimal.Decimal) (decimal.Decimal, error) {
	ethPrice, err := o.GetEthPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	tok0, err := o.store.GetToken(ctx, t0)
	if err != nil {
		return decimal.Zero, err
	}
	tok1, err := o.store.GetToken(ctx, t1)
	if err != nil {
		return decimal.Zero, err
	}

	w0, w1 := o.isWhitelisted(t0), o.isWhitelisted(t1)
	p0 := tok0.DerivedETH.Mul(ethPrice)
	p1 := tok1.DerivedETH.Mul(ethPrice)

	switch {
	case w0 && w1:
		return a0.Mul(p0).Add(a1.Mul(p1)), nil
	case w0 && !w1:
		return a0.Mul(p0).Mul(decimal.NewFromInt(2)), nil
	case !w0 && w1:
		return a1.Mul(p1).Mul(decimal.NewFromInt(2)), nil
	default:
		return decimal.Zero, nil
	}
}

// GetTrackedVolumeUSD implements spec §4.7's averaged two-sided volume
// figure: (a0·p0 + a1·p1)/2, unconditionally — no whitelist check is
// applied to either token.
func (o *Oracle) GetTrackedVolumeUSD(ctx context.Context, t0 string, a0 decimal.Decimal, t1 string, a1 decimal.Decimal) (decimal.Decimal, error) {
	ethPrice, err := o.GetEthPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	tok0, err := o.store.GetToken(ctx, t0)
	if err != nil {
		return decimal.Zero, err
	}
	tok1, err := o.store.GetToken(ctx, t1)
	if err != nil {
		return decimal.Zero, err
	}
	p0 := tok0.DerivedETH.Mul(ethPrice)
	p1 := tok1.DerivedETH.Mul(ethPrice)
	return a0.Mul(p0).Add(a1.Mul(p1)).Div(decimal.NewFromInt(2)), nil
}

func (o *Oracle) isWhitelisted(tokenID string) bool {
	for _, w := range o.whitelist {
		if w == tokenID {
			return true
		}
	}
	return false
}
