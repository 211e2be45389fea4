// Package config carries the per-chain constants the pricing core is
// parameterised by: fee schedules, leverage bounds and the token universe.
// Configuration is loaded once per chain and treated as static afterwards.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Chain is the textual, TOML-shaped configuration for one chain. Amount
// fields are decimal strings to keep the file readable; Params converts them
// into runtime quantities.
type Chain struct {
	ChainID      uint64 `toml:"ChainID"`
	Name         string `toml:"Name"`
	Disabled     bool   `toml:"Disabled"`
	NativeSymbol string `toml:"NativeSymbol"`

	SwapFeeBps       uint64 `toml:"SwapFeeBps"`
	StableSwapFeeBps uint64 `toml:"StableSwapFeeBps"`
	TaxBps           uint64 `toml:"TaxBps"`
	StableTaxBps     uint64 `toml:"StableTaxBps"`
	MarginFeeBps     uint64 `toml:"MarginFeeBps"`

	LiquidationFeeUsd string `toml:"LiquidationFeeUsd"`
	MinPositionUsd    string `toml:"MinPositionUsd"`
	MinExecutionFee   string `toml:"MinExecutionFee"`

	MinLeverageBps uint64 `toml:"MinLeverageBps"`
	MaxLeverageBps uint64 `toml:"MaxLeverageBps"`

	MinProfitTime int64  `toml:"MinProfitTime"`
	MinProfitBps  uint64 `toml:"MinProfitBps"`

	Tokens []Token `toml:"Tokens"`
}

// Token describes one whitelisted token on the chain.
type Token struct {
	Address     string `toml:"Address"`
	Symbol      string `toml:"Symbol"`
	Decimals    int32  `toml:"Decimals"`
	Weight      uint64 `toml:"Weight"`
	IsStable    bool   `toml:"IsStable"`
	IsWrapped   bool   `toml:"IsWrapped"`
	IsNative    bool   `toml:"IsNative"`
	IsShortable bool   `toml:"IsShortable"`
	IsUSDG      bool   `toml:"IsUSDG"`
}

// Load reads a chain configuration file.
func Load(path string) (*Chain, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := &Chain{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: %s has unknown key %s", path, undecoded[0].String())
	}
	return cfg, nil
}

// Normalise trims whitespace and applies canonical defaults to a defensive
// copy.
func (c Chain) Normalise() Chain {
	cfg := c
	cfg.Name = strings.TrimSpace(c.Name)
	cfg.NativeSymbol = strings.TrimSpace(c.NativeSymbol)
	cfg.LiquidationFeeUsd = strings.TrimSpace(c.LiquidationFeeUsd)
	cfg.MinPositionUsd = strings.TrimSpace(c.MinPositionUsd)
	cfg.MinExecutionFee = strings.TrimSpace(c.MinExecutionFee)
	if cfg.SwapFeeBps == 0 {
		cfg.SwapFeeBps = DefaultSwapFeeBps
	}
	if cfg.StableSwapFeeBps == 0 {
		cfg.StableSwapFeeBps = DefaultStableSwapFeeBps
	}
	if cfg.TaxBps == 0 {
		cfg.TaxBps = DefaultTaxBps
	}
	if cfg.StableTaxBps == 0 {
		cfg.StableTaxBps = DefaultStableTaxBps
	}
	if cfg.MarginFeeBps == 0 {
		cfg.MarginFeeBps = DefaultMarginFeeBps
	}
	if cfg.MinLeverageBps == 0 {
		cfg.MinLeverageBps = DefaultMinLeverageBps
	}
	if cfg.MaxLeverageBps == 0 {
		cfg.MaxLeverageBps = DefaultMaxLeverageBps
	}
	if cfg.MinPositionUsd == "" {
		cfg.MinPositionUsd = DefaultMinPositionUsd
	}
	if cfg.LiquidationFeeUsd == "" {
		cfg.LiquidationFeeUsd = DefaultLiquidationFeeUsd
	}
	cfg.Tokens = make([]Token, len(c.Tokens))
	for i, tok := range c.Tokens {
		tok.Address = strings.TrimSpace(tok.Address)
		tok.Symbol = strings.TrimSpace(tok.Symbol)
		cfg.Tokens[i] = tok
	}
	return cfg
}
