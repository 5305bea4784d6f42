// Package storage implements the bitemporal document-store adapter (spec
// §4.4): every entity carries valid_from/valid_to block-number bounds, and
// every mutating write either replaces the current version or applies an
// atomic increment against it.
package storage

import "github.com/shopspring/decimal"

// Bitemporal is embedded in every versioned entity. ValidTo is nil for the
// current version.
type Bitemporal struct {
	ValidFrom uint64  `bson:"valid_from"`
	ValidTo   *uint64 `bson:"valid_to"`
	Rev       int64   `bson:"rev"`
}

// IsCurrent reports whether this version has no closing block yet.
func (b Bitemporal) IsCurrent() bool { return b.ValidTo == nil }

// CoversBlock reports whether this version was active at block b, per the
// bitemporal predicate of spec §3/§4.4: valid_from <= b < COALESCE(valid_to, inf).
func (b Bitemporal) CoversBlock(block uint64) bool {
	if block < b.ValidFrom {
		return false
	}
	return b.ValidTo == nil || block < *b.ValidTo
}

// Factory is the exchange-wide accumulator, created lazily on first
// PairCreated (spec §3).
type Factory struct {
	Bitemporal         `bson:",inline"`
	ID                 string          `bson:"id"`
	PairCount          int64           `bson:"pair_count"`
	TxCount            int64           `bson:"tx_count"`
	TotalVolumeUSD     decimal.Decimal `bson:"total_volume_usd"`
	TotalVolumeETH     decimal.Decimal `bson:"total_volume_eth"`
	UntrackedVolumeUSD decimal.Decimal `bson:"untracked_volume_usd"`
	TotalLiquidityUSD  decimal.Decimal `bson:"total_liquidity_usd"`
	TotalLiquidityETH  decimal.Decimal `bson:"total_liquidity_eth"`
}

// Token is created lazily when first referenced by a PairCreated event.
type Token struct {
	Bitemporal         `bson:",inline"`
	ID                 string          `bson:"id"`
	Name               string          `bson:"name"`
	Symbol             string          `bson:"symbol"`
	Decimals           uint8           `bson:"decimals"`
	TotalSupply        decimal.Decimal `bson:"total_supply"`
	TradeVolume        decimal.Decimal `bson:"trade_volume"`
	TradeVolumeUSD     decimal.Decimal `bson:"trade_volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `bson:"untracked_volume_usd"`
	TxCount            int64           `bson:"tx_count"`
	TotalLiquidity     decimal.Decimal `bson:"total_liquidity"`
	DerivedETH         decimal.Decimal `bson:"derived_eth"`
}

// Pair is a two-token AMM pool. Invariant: Token0ID < Token1ID (spec §3).
type Pair struct {
	Bitemporal             `bson:",inline"`
	ID                     string          `bson:"id"`
	Token0ID               string          `bson:"token0_id"`
	Token1ID               string          `bson:"token1_id"`
	Reserve0               decimal.Decimal `bson:"reserve0"`
	Reserve1               decimal.Decimal `bson:"reserve1"`
	TotalSupply            decimal.Decimal `bson:"total_supply"`
	ReserveETH             decimal.Decimal `bson:"reserve_eth"`
	ReserveUSD             decimal.Decimal `bson:"reserve_usd"`
	TrackedReserveETH      decimal.Decimal `bson:"tracked_reserve_eth"`
	Token0Price            decimal.Decimal `bson:"token0_price"`
	Token1Price            decimal.Decimal `bson:"token1_price"`
	VolumeToken0           decimal.Decimal `bson:"volume_token0"`
	VolumeToken1           decimal.Decimal `bson:"volume_token1"`
	VolumeUSD              decimal.Decimal `bson:"volume_usd"`
	UntrackedVolumeUSD     decimal.Decimal `bson:"untracked_volume_usd"`
	TxCount                int64           `bson:"tx_count"`
	CreatedAtTimestamp     int64           `bson:"created_at_timestamp"`
	CreatedAtBlock         uint64          `bson:"created_at_block"`
	LiquidityProviderCount int64           `bson:"liquidity_provider_count"`
}

// Block is the append-only chain of observed headers.
type Block struct {
	Number     uint64 `bson:"number"`
	Hash       string `bson:"hash"`
	ParentHash string `bson:"parent_hash"`
	Timestamp  int64  `bson:"timestamp"`
}

// Transaction is append-only, one row per observed transaction hash.
type Transaction struct {
	Hash           string `bson:"hash"`
	BlockNumber    uint64 `bson:"block_number"`
	BlockTimestamp int64  `bson:"block_timestamp"`
}

// Mint is append-only; ordered by (TransactionHash, Index).
type Mint struct {
	TransactionHash string          `bson:"transaction_hash"`
	Index           int64           `bson:"index"`
	PairID          string          `bson:"pair_id"`
	Sender          string          `bson:"sender"`
	To              string          `bson:"to"`
	Liquidity       decimal.Decimal `bson:"liquidity"`
	Amount0         decimal.Decimal `bson:"amount0"`
	Amount1         decimal.Decimal `bson:"amount1"`
	AmountUSD       decimal.Decimal `bson:"amount_usd"`
	Timestamp       int64           `bson:"timestamp"`
	NeedsComplete   bool            `bson:"needs_complete,omitempty"`
	FeeTo           string          `bson:"fee_to,omitempty"`
	FeeLiquidity    decimal.Decimal `bson:"fee_liquidity,omitempty"`
	ZapIn           bool            `bson:"zap_in,omitempty"`
}

// IsComplete reports whether the mint's explicit Mint event has already
// been applied (spec §4.6: reused while sender is empty).
func (m Mint) IsComplete() bool { return m.Sender != "" }

// Burn is append-only; ordered by (TransactionHash, Index).
type Burn struct {
	TransactionHash string          `bson:"transaction_hash"`
	Index           int64           `bson:"index"`
	PairID          string          `bson:"pair_id"`
	Sender          string          `bson:"sender"`
	To              string          `bson:"to"`
	Liquidity       decimal.Decimal `bson:"liquidity"`
	Amount0         decimal.Decimal `bson:"amount0"`
	Amount1         decimal.Decimal `bson:"amount1"`
	AmountUSD       decimal.Decimal `bson:"amount_usd"`
	Timestamp       int64           `bson:"timestamp"`
	NeedsComplete   bool            `bson:"needs_complete,omitempty"`
	FeeTo           string          `bson:"fee_to,omitempty"`
	FeeLiquidity    decimal.Decimal `bson:"fee_liquidity,omitempty"`
}

// IsComplete reports whether the canonical from=P,to=0 leg has already been
// observed for this row — unlike Mint, Burn completeness tracks the
// explicit needs_complete flag rather than sender presence, because the
// pre-burn transfer leg already knows the sender (spec §4.6).
func (b Burn) IsComplete() bool { return !b.NeedsComplete }

// Swap is append-only.
type Swap struct {
	TransactionHash string          `bson:"transaction_hash"`
	LogIndex        int64           `bson:"log_index"`
	PairID          string          `bson:"pair_id"`
	Timestamp       int64           `bson:"timestamp"`
	Sender          string          `bson:"sender"`
	To              string          `bson:"to"`
	Amount0In       decimal.Decimal `bson:"amount0_in"`
	Amount0Out      decimal.Decimal `bson:"amount0_out"`
	Amount1In       decimal.Decimal `bson:"amount1_in"`
	Amount1Out      decimal.Decimal `bson:"amount1_out"`
	AmountUSD       decimal.Decimal `bson:"amount_usd"`
}

// LiquidityPosition is a current-only per-(pair,user) balance snapshot.
type LiquidityPosition struct {
	PairAddress           string          `bson:"pair_address"`
	User                  string          `bson:"user"`
	LiquidityTokenBalance decimal.Decimal `bson:"liquidity_token_balance"`
}

// LiquidityPositionSnapshot is an append-only per-user/pair balance journal
// entry, written on every transfer leg involving a non-pair, non-zero
// address (spec §3).
type LiquidityPositionSnapshot struct {
	PairAddress                string          `bson:"pair_address"`
	User                       string          `bson:"user"`
	Block                      uint64          `bson:"block"`
	Timestamp                  int64           `bson:"timestamp"`
	Reserve0                   decimal.Decimal `bson:"reserve0"`
	Reserve1                   decimal.Decimal `bson:"reserve1"`
	ReserveUSD                 decimal.Decimal `bson:"reserve_usd"`
	Token0PriceUSD             decimal.Decimal `bson:"token0_price_usd"`
	Token1PriceUSD             decimal.Decimal `bson:"token1_price_usd"`
	LiquidityTokenTotalSupply  decimal.Decimal `bson:"liquidity_token_total_supply"`
	LiquidityTokenBalance      decimal.Decimal `bson:"liquidity_token_balance"`
}

// User tracks per-account lifetime counters.
type User struct {
	Bitemporal `bson:",inline"`
	ID         string `bson:"id"`
	TxCount    int64  `bson:"tx_count"`
	MintCount  int64  `bson:"mint_count"`
	BurnCount  int64  `bson:"burn_count"`
	SwapCount  int64  `bson:"swap_count"`
}

// rollup is embedded by all four window aggregates; DayID = floor(ts/86400),
// HourID = floor(ts/3600) (spec §3).
type rollup struct {
	Bitemporal `bson:",inline"`
	EntityID   string `bson:"entity_id"`
	WindowID   int64  `bson:"window_id"`
	Date       int64  `bson:"date"`
}

type TokenDayData struct {
	rollup             `bson:",inline"`
	TokenID            string          `bson:"token_id"`
	Volume             decimal.Decimal `bson:"volume"`
	VolumeUSD          decimal.Decimal `bson:"volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `bson:"untracked_volume_usd"`
	Liquidity          decimal.Decimal `bson:"liquidity"`
	PriceUSD           decimal.Decimal `bson:"price_usd"`
	TxCount            int64           `bson:"tx_count"`
}

type PairDayData struct {
	rollup       `bson:",inline"`
	PairID       string          `bson:"pair_id"`
	Reserve0     decimal.Decimal `bson:"reserve0"`
	Reserve1     decimal.Decimal `bson:"reserve1"`
	ReserveUSD   decimal.Decimal `bson:"reserve_usd"`
	VolumeToken0 decimal.Decimal `bson:"volume_token0"`
	VolumeToken1 decimal.Decimal `bson:"volume_token1"`
	VolumeUSD    decimal.Decimal `bson:"volume_usd"`
	TxCount      int64           `bson:"tx_count"`
}

type PairHourData struct {
	rollup       `bson:",inline"`
	PairID       string          `bson:"pair_id"`
	Reserve0     decimal.Decimal `bson:"reserve0"`
	Reserve1     decimal.Decimal `bson:"reserve1"`
	ReserveUSD   decimal.Decimal `bson:"reserve_usd"`
	VolumeToken0 decimal.Decimal `bson:"volume_token0"`
	VolumeToken1 decimal.Decimal `bson:"volume_token1"`
	VolumeUSD    decimal.Decimal `bson:"volume_usd"`
	TxCount      int64           `bson:"tx_count"`
}

type ExchangeDayData struct {
	rollup             `bson:",inline"`
	VolumeETH          decimal.Decimal `bson:"volume_eth"`
	VolumeUSD          decimal.Decimal `bson:"volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `bson:"untracked_volume_usd"`
	TotalVolumeUSD     decimal.Decimal `bson:"total_volume_usd"`
	TotalLiquidityUSD  decimal.Decimal `bson:"total_liquidity_usd"`
	TotalLiquidityETH  decimal.Decimal `bson:"total_liquidity_eth"`
	TxCount            int64           `bson:"tx_count"`
}

// PairBlockCumulativePrice is the per-pair time-weighted price series that
// powers the LP-contest integration (spec §3, §4.9).
type PairBlockCumulativePrice struct {
	PairID                 string          `bson:"pair_id"`
	Block                  uint64          `bson:"block"`
	Timestamp              int64           `bson:"timestamp"`
	PriceUSD               decimal.Decimal `bson:"price_usd"`
	CumulativePriceUSD     decimal.Decimal `bson:"cumulative_price_usd"`
	TimeCumulativePriceUSD decimal.Decimal `bson:"time_cumulative_price_usd"`
}

// LPContest is the current (replace-on-update) contest standing for a user.
type LPContest struct {
	User              string                     `bson:"user"`
	Block             uint64                     `bson:"block"`
	Timestamp         int64                      `bson:"timestamp"`
	ContestValue      decimal.Decimal            `bson:"contest_value"`
	TotalLPValue      decimal.Decimal            `bson:"total_lp_value"`
	TotalTimeEligible int64                      `bson:"total_time_eligible"`
	IsEligible        bool                       `bson:"is_eligible"`
	LPTokenBalances   map[string]decimal.Decimal `bson:"lp_token_balances"`
	LPValues          map[string]decimal.Decimal `bson:"lp_values"`
}

// DisplayContestValue applies the /10000 display scaling in the schema
// itself, resolving spec §9 open question (c): callers never divide by
// 10000 themselves.
func (c LPContest) DisplayContestValue() decimal.Decimal {
	return c.ContestValue.Div(decimal.NewFromInt(10000))
}

// LPContestBlock is the append-only per-(user,block) journal of LPContest.
type LPContestBlock struct {
	User              string                     `bson:"user"`
	Block             uint64                     `bson:"block"`
	Timestamp         int64                      `bson:"timestamp"`
	ContestValue      decimal.Decimal            `bson:"contest_value"`
	TotalLPValue      decimal.Decimal            `bson:"total_lp_value"`
	TotalTimeEligible int64                      `bson:"total_time_eligible"`
	IsEligible        bool                       `bson:"is_eligible"`
	LPTokenBalances   map[string]decimal.Decimal `bson:"lp_token_balances"`
	LPValues          map[string]decimal.Decimal `bson:"lp_values"`
}
