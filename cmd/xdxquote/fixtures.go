package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"xdxcore/config"
	"xdxcore/fixedpoint"
	"xdxcore/orders"
	"xdxcore/tokens"
)

// snapshotFile is the YAML market snapshot fed to the pricing core. Amounts
// are human decimal strings; token entries are matched to the chain config by
// symbol.
type snapshotFile struct {
	USDGSupply string              `yaml:"usdg_supply"`
	Tokens     []tokenSnapshotYAML `yaml:"tokens"`
}

type tokenSnapshotYAML struct {
	Symbol          string `yaml:"symbol"`
	MinPrice        string `yaml:"min_price"`
	MaxPrice        string `yaml:"max_price"`
	Balance         string `yaml:"balance"`
	PoolAmount      string `yaml:"pool_amount"`
	BufferAmount    string `yaml:"buffer_amount"`
	AvailableAmount string `yaml:"available_amount"`
	USDGAmount      string `yaml:"usdg_amount"`
	MaxUSDGAmount   string `yaml:"max_usdg_amount"`

	GuaranteedUsd      string `yaml:"guaranteed_usd"`
	GlobalShortSize    string `yaml:"global_short_size"`
	MaxGlobalLongSize  string `yaml:"max_global_long_size"`
	MaxGlobalShortSize string `yaml:"max_global_short_size"`

	FundingRate           string `yaml:"funding_rate"`
	CumulativeFundingRate string `yaml:"cumulative_funding_rate"`
}

// orderFile is the YAML order request plus, for decrease orders, the
// position being reduced.
type orderFile struct {
	Kind string `yaml:"kind"`
	Type string `yaml:"type"`

	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Index string `yaml:"index"`

	AmountIn  string `yaml:"amount_in"`
	AmountOut string `yaml:"amount_out"`
	Anchor    string `yaml:"anchor"`

	Long               bool   `yaml:"long"`
	SizeDeltaUsd       string `yaml:"size_delta_usd"`
	CollateralDeltaUsd string `yaml:"collateral_delta_usd"`

	TriggerPrice string `yaml:"trigger_price"`
	TriggerRatio string `yaml:"trigger_ratio"`
	TriggerAbove bool   `yaml:"trigger_above"`
	SlippageBps  uint64 `yaml:"slippage_bps"`
	ExecutionFee string `yaml:"execution_fee"`

	Position *positionYAML `yaml:"position"`
}

type positionYAML struct {
	SizeUsd               string `yaml:"size_usd"`
	CollateralUsd         string `yaml:"collateral_usd"`
	AveragePrice          string `yaml:"average_price"`
	Long                  bool   `yaml:"long"`
	EntryFundingRate      string `yaml:"entry_funding_rate"`
	CumulativeFundingRate string `yaml:"cumulative_funding_rate"`
	LastIncreasedTime     int64  `yaml:"last_increased_time"`
}

func loadYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// buildSnapshot joins the chain's token config with the market snapshot.
func buildSnapshot(params config.Params, file snapshotFile) (tokens.Snapshot, map[string]common.Address, error) {
	bySymbol := make(map[string]common.Address, len(params.Tokens))
	snap := make(tokens.Snapshot, len(params.Tokens))
	for addr, meta := range params.Tokens {
		bySymbol[meta.Symbol] = addr
		snap[addr] = &tokens.Quote{
			Address:     addr,
			Symbol:      meta.Symbol,
			Decimals:    meta.Decimals,
			Weight:      meta.Weight,
			IsStable:    meta.IsStable,
			IsWrapped:   meta.IsWrapped,
			IsNative:    meta.IsNative,
			IsShortable: meta.IsShortable,
			IsUSDG:      meta.IsUSDG,
		}
	}

	for _, entry := range file.Tokens {
		addr, ok := bySymbol[entry.Symbol]
		if !ok {
			return nil, nil, fmt.Errorf("snapshot token %q is not configured for the chain", entry.Symbol)
		}
		q := snap[addr]
		fields := []struct {
			dst      *fixedpoint.Quantity
			src      string
			decimals int32
		}{
			{&q.MinPrice, entry.MinPrice, fixedpoint.USDDecimals},
			{&q.MaxPrice, entry.MaxPrice, fixedpoint.USDDecimals},
			{&q.Balance, entry.Balance, q.Decimals},
			{&q.PoolAmount, entry.PoolAmount, q.Decimals},
			{&q.BufferAmount, entry.BufferAmount, q.Decimals},
			{&q.AvailableAmount, entry.AvailableAmount, q.Decimals},
			{&q.USDGAmount, entry.USDGAmount, fixedpoint.USDGDecimals},
			{&q.MaxUSDGAmount, entry.MaxUSDGAmount, fixedpoint.USDGDecimals},
			{&q.GuaranteedUsd, entry.GuaranteedUsd, fixedpoint.USDDecimals},
			{&q.GlobalShortSize, entry.GlobalShortSize, fixedpoint.USDDecimals},
			{&q.MaxGlobalLongSize, entry.MaxGlobalLongSize, fixedpoint.USDDecimals},
			{&q.MaxGlobalShortSize, entry.MaxGlobalShortSize, fixedpoint.USDDecimals},
			{&q.FundingRate, entry.FundingRate, 0},
			{&q.CumulativeFundingRate, entry.CumulativeFundingRate, 0},
		}
		for _, f := range fields {
			v, err := fixedpoint.Parse(f.src, f.decimals)
			if err != nil {
				return nil, nil, fmt.Errorf("snapshot token %s: %w", entry.Symbol, err)
			}
			*f.dst = v
		}
	}
	return snap, bySymbol, nil
}

func parseKind(s string) (orders.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "swap":
		return orders.Swap, nil
	case "increase":
		return orders.IncreasePosition, nil
	case "decrease":
		return orders.DecreasePosition, nil
	default:
		return 0, fmt.Errorf("unknown order kind %q", s)
	}
}

func parseOrderType(s string) (orders.OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "market":
		return orders.Market, nil
	case "limit":
		return orders.Limit, nil
	case "stop":
		return orders.StopMarket, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}
