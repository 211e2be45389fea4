package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"xdxcore/fixedpoint"
)

// Canonical defaults applied when a chain file leaves a field unset. Fee
// curve constants must match the settlement contracts for the chain; these
// are the reference deployment values.
const (
	DefaultSwapFeeBps       = 30
	DefaultStableSwapFeeBps = 4
	DefaultTaxBps           = 60
	DefaultStableTaxBps     = 5
	DefaultMarginFeeBps     = 10

	DefaultMinLeverageBps = 11_000  // 1.1x
	DefaultMaxLeverageBps = 500_000 // 50x

	DefaultMinPositionUsd    = "10"
	DefaultLiquidationFeeUsd = "5"
)

// FeeParams is the swap fee curve: a base fee plus a tax proportional to how
// far the trade pushes the token's USDG debt from its weight-implied target.
type FeeParams struct {
	SwapFeeBps       uint64
	StableSwapFeeBps uint64
	TaxBps           uint64
	StableTaxBps     uint64
	MarginFeeBps     uint64
}

// PositionParams bound leverage and carry the liquidation fee constants.
type PositionParams struct {
	MarginFeeBps      uint64
	LiquidationFeeUsd fixedpoint.Quantity
	MinLeverageBps    uint64
	MaxLeverageBps    uint64
	MinProfitTime     int64
	MinProfitBps      uint64
}

// TokenMeta is the static per-token configuration.
type TokenMeta struct {
	Address     common.Address
	Symbol      string
	Decimals    int32
	Weight      uint64
	IsStable    bool
	IsWrapped   bool
	IsNative    bool
	IsShortable bool
	IsUSDG      bool
}

// Params is the runtime-ready interpretation of a chain configuration.
type Params struct {
	ChainID      uint64
	Name         string
	Disabled     bool
	NativeSymbol string

	Fees     FeeParams
	Position PositionParams

	MinPositionUsd  fixedpoint.Quantity
	MinExecutionFee fixedpoint.Quantity

	Tokens map[common.Address]TokenMeta
}

// Params converts the textual configuration into runtime quantities,
// validating basis-point bounds and token addresses.
func (c Chain) Params() (Params, error) {
	cfg := c.Normalise()
	params := Params{
		ChainID:      cfg.ChainID,
		Name:         cfg.Name,
		Disabled:     cfg.Disabled,
		NativeSymbol: cfg.NativeSymbol,
		Fees: FeeParams{
			SwapFeeBps:       cfg.SwapFeeBps,
			StableSwapFeeBps: cfg.StableSwapFeeBps,
			TaxBps:           cfg.TaxBps,
			StableTaxBps:     cfg.StableTaxBps,
			MarginFeeBps:     cfg.MarginFeeBps,
		},
		Tokens: make(map[common.Address]TokenMeta, len(cfg.Tokens)),
	}

	for _, bps := range []struct {
		name  string
		value uint64
	}{
		{"SwapFeeBps", cfg.SwapFeeBps},
		{"StableSwapFeeBps", cfg.StableSwapFeeBps},
		{"TaxBps", cfg.TaxBps},
		{"StableTaxBps", cfg.StableTaxBps},
		{"MarginFeeBps", cfg.MarginFeeBps},
		{"MinProfitBps", cfg.MinProfitBps},
	} {
		if bps.value > fixedpoint.BasisPointsDivisor {
			return params, fmt.Errorf("config: %s %d exceeds %d", bps.name, bps.value, fixedpoint.BasisPointsDivisor)
		}
	}
	if cfg.MinLeverageBps >= cfg.MaxLeverageBps {
		return params, fmt.Errorf("config: MinLeverageBps %d must be below MaxLeverageBps %d", cfg.MinLeverageBps, cfg.MaxLeverageBps)
	}
	if cfg.MinProfitTime < 0 {
		return params, fmt.Errorf("config: MinProfitTime must not be negative")
	}

	liquidationFee, err := fixedpoint.Parse(cfg.LiquidationFeeUsd, fixedpoint.USDDecimals)
	if err != nil {
		return params, fmt.Errorf("config: invalid LiquidationFeeUsd: %w", err)
	}
	minPosition, err := fixedpoint.Parse(cfg.MinPositionUsd, fixedpoint.USDDecimals)
	if err != nil {
		return params, fmt.Errorf("config: invalid MinPositionUsd: %w", err)
	}
	minExecutionFee, err := fixedpoint.Parse(cfg.MinExecutionFee, 18)
	if err != nil {
		return params, fmt.Errorf("config: invalid MinExecutionFee: %w", err)
	}

	params.Position = PositionParams{
		MarginFeeBps:      cfg.MarginFeeBps,
		LiquidationFeeUsd: liquidationFee,
		MinLeverageBps:    cfg.MinLeverageBps,
		MaxLeverageBps:    cfg.MaxLeverageBps,
		MinProfitTime:     cfg.MinProfitTime,
		MinProfitBps:      cfg.MinProfitBps,
	}
	params.MinPositionUsd = minPosition
	params.MinExecutionFee = minExecutionFee

	for _, tok := range cfg.Tokens {
		if !common.IsHexAddress(tok.Address) {
			return params, fmt.Errorf("config: token %s has invalid address %q", tok.Symbol, tok.Address)
		}
		if tok.Decimals <= 0 || tok.Decimals > 30 {
			return params, fmt.Errorf("config: token %s has invalid decimals %d", tok.Symbol, tok.Decimals)
		}
		addr := common.HexToAddress(tok.Address)
		if _, exists := params.Tokens[addr]; exists {
			return params, fmt.Errorf("config: duplicate token address %s", tok.Address)
		}
		params.Tokens[addr] = TokenMeta{
			Address:     addr,
			Symbol:      tok.Symbol,
			Decimals:    tok.Decimals,
			Weight:      tok.Weight,
			IsStable:    tok.IsStable,
			IsWrapped:   tok.IsWrapped,
			IsNative:    tok.IsNative,
			IsShortable: tok.IsShortable,
			IsUSDG:      tok.IsUSDG,
		}
	}
	return params, nil
}

// TotalTokenWeights sums the configured token weights; the fee schedule
// derives each token's target USDG allocation from its share of this total.
func (p Params) TotalTokenWeights() uint64 {
	var total uint64
	for _, tok := range p.Tokens {
		total += tok.Weight
	}
	return total
}
