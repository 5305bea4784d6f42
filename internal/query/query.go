// Package query implements C10: typed, filterable, cursor-paged reads over
// every entity, the bitemporal point-in-time selector, the contest ranking
// pipeline, and NFT-tier cutoffs (spec §4.10). The GraphQL transport layer
// itself is an external collaborator, out of scope; this package is what
// such a resolver layer would call.
package query

import (
	"context"
	"fmt"

	"github.com/ammcontest/indexer/internal/storage"
)

// Service is the read side of the system, backed directly by the storage
// adapter.
type Service struct {
	Store *storage.Store
}

// Filter is the common shape every list query accepts (spec §4.10):
// `block.number` resolves the bitemporal version valid at that block,
// absent means current; OrderBy/Desc controls sort; After/Limit page.
type Filter struct {
	BlockNumber *uint64
	OrderBy     string
	Desc        bool
	After       string
	Limit       int64
}

func (f Filter) toListFilter() storage.ListFilter {
	return storage.ListFilter{AtBlock: f.BlockNumber, After: f.After, Limit: f.Limit, OrderBy: f.OrderBy, Desc: f.Desc}
}

func (s *Service) Pairs(ctx context.Context, f Filter) ([]storage.Pair, error) {
	return s.Store.ListPairs(ctx, f.toListFilter())
}

func (s *Service) Tokens(ctx context.Context, f Filter) ([]storage.Token, error) {
	return s.Store.ListTokens(ctx, f.toListFilter())
}

func (s *Service) Users(ctx context.Context, f Filter) ([]storage.User, error) {
	return s.Store.ListUsers(ctx, f.toListFilter())
}

// Pair and Token resolve a single current or point-in-time entity,
// the singular counterpart to the list queries above.
func (s *Service) Pair(ctx context.Context, id string, blockNumber *uint64) (*storage.Pair, error) {
	if blockNumber != nil {
		return s.Store.GetPairAtBlock(ctx, id, *blockNumber)
	}
	return s.Store.GetPair(ctx, id)
}

func (s *Service) Token(ctx context.Context, id string, blockNumber *uint64) (*storage.Token, error) {
	if blockNumber != nil {
		return s.Store.GetTokenAtBlock(ctx, id, *blockNumber)
	}
	return s.Store.GetToken(ctx, id)
}

// RankResult is one eligible contestant's position, backing the NFT-tier
// assignment (spec §4.10).
type RankResult struct {
	User       string
	Rank       int // 1-based
	Percentile int
	Count      int
}

// Rank computes a user's percentile among is_eligible=true participants
// (spec §4.10): collect every eligible contest_value, sort descending,
// locate the user, and compute round(100*(rank-0.5)/count).
func (s *Service) Rank(ctx context.Context, user string) (*RankResult, error) {
	contestants, err := s.Store.RankedLPContestants(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: rank: %w", err)
	}
	for i, c := range contestants {
		if c.User != user {
			continue
		}
		rank := i + 1
		count := len(contestants)
		pct := roundPercentile(rank, count)
		return &RankResult{User: user, Rank: rank, Percentile: pct, Count: count}, nil
	}
	return nil, nil
}

func roundPercentile(rank, count int) int {
	if count == 0 {
		return 0
	}
	// round(100*(rank-0.5)/count) = numer/denom for numer=200*rank-100,
	// denom=2*count; round(x) = floor(x + 0.5) for x >= 0, done in integer
	// arithmetic as floor((2*numer + denom) / (2*denom)) to avoid float
	// rounding surprises.
	numer := 200*rank - 100
	denom := 2 * count
	return (2*numer + denom) / (2 * denom)
}

// NFTTier names the five reward bands; ranks 1-10 are reserved and never
// tiered (spec §4.10).
type NFTTier int

const (
	TierNone NFTTier = iota
	TierL1
	TierL2
	TierL3
	TierL4
	TierL5
)

func (t NFTTier) String() string {
	switch t {
	case TierL1:
		return "L1"
	case TierL2:
		return "L2"
	case TierL3:
		return "L3"
	case TierL4:
		return "L4"
	case TierL5:
		return "L5"
	default:
		return "none"
	}
}

// tierCutoffs is the fixed percent schedule spec §4.10 names, applied to
// ranks starting at 11 (1-10 reserved).
var tierCutoffs = []struct {
	pct  float64
	tier NFTTier
}{
	{2, TierL1},
	{10, TierL2},
	{25, TierL3},
	{55, TierL4},
	{100, TierL5},
}

// Tier assigns an eligible contestant's NFT tier from their rank and the
// total eligible count.
func Tier(rank, totalEligible int) NFTTier {
	if rank <= 10 {
		return TierNone
	}
	eligibleForTiers := totalEligible - 10
	if eligibleForTiers <= 0 {
		return TierNone
	}
	position := rank - 10
	for _, c := range tierCutoffs {
		cutoff := int((c.pct / 100) * float64(eligibleForTiers))
		if cutoff < 1 {
			cutoff = 1
		}
		if position <= cutoff {
			return c.tier
		}
	}
	return TierL5
}

// Leaderboard returns every eligible contestant ordered by contest value
// descending, each annotated with rank/percentile/tier — the full scan
// backing a leaderboard resolver.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	contestants, err := s.Store.RankedLPContestants(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: leaderboard: %w", err)
	}
	out := make([]LeaderboardRow, len(contestants))
	count := len(contestants)
	for i, c := range contestants {
		rank := i + 1
		out[i] = LeaderboardRow{
			LPContest:  c,
			Rank:       rank,
			Percentile: roundPercentile(rank, count),
			Tier:       Tier(rank, count),
		}
	}
	return out, nil
}

type LeaderboardRow struct {
	storage.LPContest
	Rank       int
	Percentile int
	Tier       NFTTier
}
