// Command xdxquote prices an order offline: it loads a chain configuration,
// a market snapshot and an order request, runs the routing, position and
// validation math, and prints the derived amounts, fees, risk figures and
// the validation decision.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"xdxcore/config"
	"xdxcore/fixedpoint"
	"xdxcore/observability/logging"
	"xdxcore/orders"
	"xdxcore/position"
	"xdxcore/rates"
	"xdxcore/router"
	"xdxcore/tokens"
)

func main() {
	configPath := flag.String("config", "chain.toml", "Path to the chain configuration")
	snapshotPath := flag.String("snapshot", "snapshot.yaml", "Path to the market snapshot")
	orderPath := flag.String("order", "order.yaml", "Path to the order request")
	skipBalance := flag.Bool("skip-balance", false, "Validate without wallet balances")
	now := flag.Int64("now", time.Now().Unix(), "Clock for time-gated rules, unix seconds")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config", err)
	}
	params, err := cfg.Params()
	if err != nil {
		fatal("interpret config", err)
	}
	logger := logging.Setup("xdxquote", params.Name)

	var snapFile snapshotFile
	if err := loadYAML(*snapshotPath, &snapFile); err != nil {
		fatal("load snapshot", err)
	}
	var ordFile orderFile
	if err := loadYAML(*orderPath, &ordFile); err != nil {
		fatal("load order", err)
	}

	snap, bySymbol, err := buildSnapshot(params, snapFile)
	if err != nil {
		fatal("build snapshot", err)
	}
	usdgSupply, err := fixedpoint.Parse(snapFile.USDGSupply, fixedpoint.USDGDecimals)
	if err != nil {
		fatal("parse usdg supply", err)
	}

	rt := router.New(params.Fees, params.TotalTokenWeights())
	eng := position.NewEngine(params.Position)
	validator := orders.New(params, rt, eng, orders.Options{SkipBalanceChecks: *skipBalance})

	req, pos, err := buildRequest(ordFile, bySymbol, snap)
	if err != nil {
		fatal("build order", err)
	}
	logger.Info("order loaded",
		"kind", ordFile.Kind,
		"type", ordFile.Type,
		"from", ordFile.From,
		"to", ordFile.To,
		"index", ordFile.Index)

	var decision orders.Decision
	switch req.Kind {
	case orders.Swap:
		decision, err = runSwap(rt, validator, snap, req, usdgSupply)
	case orders.IncreasePosition:
		decision, err = runIncrease(rt, eng, validator, snap, req, pos, usdgSupply, *now)
	case orders.DecreasePosition:
		decision, err = runDecrease(eng, validator, snap, req, pos, *now)
	}
	if err != nil {
		fatal("evaluate order", err)
	}
	printDecision(decision)
}

func buildRequest(file orderFile, bySymbol map[string]common.Address, snap tokens.Snapshot) (orders.Request, *position.Position, error) {
	kind, err := parseKind(file.Kind)
	if err != nil {
		return orders.Request{}, nil, err
	}
	orderType, err := parseOrderType(file.Type)
	if err != nil {
		return orders.Request{}, nil, err
	}

	req := orders.Request{
		Kind:                  kind,
		Type:                  orderType,
		IsLong:                file.Long,
		TriggerAboveThreshold: file.TriggerAbove,
		SlippageBps:           file.SlippageBps,
		AnchorOnInput:         file.Anchor != "output",
	}

	resolve := func(symbol string) (common.Address, *tokens.Quote, error) {
		addr, ok := bySymbol[symbol]
		if !ok {
			return common.Address{}, nil, fmt.Errorf("token %q is not configured", symbol)
		}
		q, err := snap.Quote(addr)
		return addr, q, err
	}

	var fromQ, toQ *tokens.Quote
	if file.From != "" {
		req.FromToken, fromQ, err = resolve(file.From)
		if err != nil {
			return orders.Request{}, nil, err
		}
		req.AmountIn, err = fixedpoint.Parse(file.AmountIn, fromQ.Decimals)
		if err != nil {
			return orders.Request{}, nil, err
		}
	}
	if file.To != "" {
		req.ToToken, toQ, err = resolve(file.To)
		if err != nil {
			return orders.Request{}, nil, err
		}
		req.AmountOut, err = fixedpoint.Parse(file.AmountOut, toQ.Decimals)
		if err != nil {
			return orders.Request{}, nil, err
		}
	}
	if file.Index != "" {
		req.IndexToken, _, err = resolve(file.Index)
		if err != nil {
			return orders.Request{}, nil, err
		}
	}

	req.SizeDeltaUsd, err = fixedpoint.Parse(file.SizeDeltaUsd, fixedpoint.USDDecimals)
	if err != nil {
		return orders.Request{}, nil, err
	}
	req.CollateralDeltaUsd, err = fixedpoint.Parse(file.CollateralDeltaUsd, fixedpoint.USDDecimals)
	if err != nil {
		return orders.Request{}, nil, err
	}
	req.TriggerPrice, err = fixedpoint.Parse(file.TriggerPrice, fixedpoint.USDDecimals)
	if err != nil {
		return orders.Request{}, nil, err
	}
	req.ExecutionFee, err = fixedpoint.Parse(file.ExecutionFee, 18)
	if err != nil {
		return orders.Request{}, nil, err
	}

	// Ratios are entered in display orientation; comparisons always use the
	// canonical one.
	if file.TriggerRatio != "" && fromQ != nil && toQ != nil {
		entered, err := fixedpoint.Parse(file.TriggerRatio, fixedpoint.USDDecimals)
		if err != nil {
			return orders.Request{}, nil, err
		}
		req.TriggerRatio, err = rates.Canonical(entered, rates.Inverted(fromQ, toQ))
		if err != nil {
			return orders.Request{}, nil, err
		}
	}

	var pos *position.Position
	if file.Position != nil {
		pos = &position.Position{
			IsLong:            file.Position.Long,
			LastIncreasedTime: file.Position.LastIncreasedTime,
		}
		for _, f := range []struct {
			dst      *fixedpoint.Quantity
			src      string
			decimals int32
		}{
			{&pos.Size, file.Position.SizeUsd, fixedpoint.USDDecimals},
			{&pos.Collateral, file.Position.CollateralUsd, fixedpoint.USDDecimals},
			{&pos.AveragePrice, file.Position.AveragePrice, fixedpoint.USDDecimals},
			{&pos.EntryFundingRate, file.Position.EntryFundingRate, 0},
			{&pos.CumulativeFundingRate, file.Position.CumulativeFundingRate, 0},
		} {
			v, err := fixedpoint.Parse(f.src, f.decimals)
			if err != nil {
				return orders.Request{}, nil, err
			}
			*f.dst = v
		}
	}
	return req, pos, nil
}

func runSwap(rt *router.Router, v *orders.Validator, snap tokens.Snapshot, req orders.Request, usdgSupply fixedpoint.Quantity) (orders.Decision, error) {
	fromQ, err := snap.Quote(req.FromToken)
	if err != nil {
		return orders.Decision{}, err
	}
	toQ, err := snap.Quote(req.ToToken)
	if err != nil {
		return orders.Decision{}, err
	}

	var quote router.SwapQuote
	if req.AnchorOnInput {
		quote, err = rt.AmountOut(snap, req.FromToken, req.ToToken, req.AmountIn, req.TriggerRatio, usdgSupply)
	} else {
		quote, err = rt.AmountIn(snap, req.FromToken, req.ToToken, req.AmountOut, req.TriggerRatio, usdgSupply)
	}
	if le, ok := router.AsLiquidity(err); ok {
		slog.Warn("swap cannot be filled", "constraint", le.Kind.String(), "token", le.Symbol)
	} else if err != nil {
		return orders.Decision{}, err
	} else {
		fmt.Printf("amount in:   %s %s\n", fixedpoint.Format(quote.AmountIn, fromQ.Decimals), fromQ.Symbol)
		fmt.Printf("amount out:  %s %s\n", fixedpoint.Format(quote.AmountOut, toQ.Decimals), toQ.Symbol)
		fmt.Printf("fee:         %d bps\n", quote.FeeBasisPoints)
		if spot, rateErr := rates.Rate(fromQ, toQ); rateErr == nil {
			fmt.Printf("rate:        %s\n", rates.Display(spot, fromQ, toQ, rates.DisplayOptions{}))
		}
	}
	return v.ValidateSwap(snap, req, usdgSupply)
}

func runIncrease(rt *router.Router, eng *position.Engine, v *orders.Validator, snap tokens.Snapshot, req orders.Request, pos *position.Position, usdgSupply fixedpoint.Quantity, now int64) (orders.Decision, error) {
	path := rt.EntryPath(snap, req.FromToken, req.IndexToken, req.IsLong)
	symbols := make([]string, 0, len(path))
	for _, addr := range path {
		if q, err := snap.Quote(addr); err == nil {
			symbols = append(symbols, q.Symbol)
		}
	}
	fmt.Printf("entry path:  %v\n", symbols)

	var existing position.Position
	if pos != nil {
		existing = *pos
	}
	lev, err := eng.Leverage(position.LeverageInput{
		Size:                  existing.Size,
		SizeDelta:             req.SizeDeltaUsd,
		IncreaseSize:          true,
		Collateral:            existing.Collateral,
		CollateralDelta:       req.CollateralDeltaUsd,
		IncreaseCollateral:    true,
		EntryFundingRate:      existing.EntryFundingRate,
		CumulativeFundingRate: existing.CumulativeFundingRate,
	})
	if err == nil {
		fmt.Printf("leverage:    %s bps\n", lev.Value())
	}

	indexQ, err := snap.Quote(req.IndexToken)
	if err != nil {
		return orders.Decision{}, err
	}
	entryPrice := indexQ.MaxPrice
	if !req.IsLong {
		entryPrice = indexQ.MinPrice
	}
	liq, err := eng.LiquidationPrice(position.LiquidationInput{
		Size:               existing.Size,
		Collateral:         existing.Collateral,
		AveragePrice:       pickAverage(existing, entryPrice),
		IsLong:             req.IsLong,
		SizeDelta:          req.SizeDeltaUsd,
		IncreaseSize:       true,
		CollateralDelta:    req.CollateralDeltaUsd,
		IncreaseCollateral: true,
	})
	if err == nil {
		fmt.Printf("liq price:   %s USD\n", fixedpoint.Format(liq, 2))
	}

	return v.ValidateIncrease(snap, req, pos, usdgSupply, now)
}

func runDecrease(eng *position.Engine, v *orders.Validator, snap tokens.Snapshot, req orders.Request, pos *position.Position, now int64) (orders.Decision, error) {
	if pos != nil {
		indexQ, err := snap.Quote(req.IndexToken)
		if err != nil {
			return orders.Decision{}, err
		}
		mark := indexQ.MinPrice
		if !pos.IsLong {
			mark = indexQ.MaxPrice
		}
		if res, err := eng.Delta(mark, *pos, now); err == nil {
			sign := "-"
			if res.HasProfit {
				sign = "+"
			}
			fmt.Printf("pnl:         %s%s USD\n", sign, fixedpoint.Format(res.Delta, 2))
		}
		if liq, err := eng.LiquidationPrice(position.LiquidationInput{
			Size:         pos.Size,
			Collateral:   pos.Collateral,
			AveragePrice: pos.AveragePrice,
			IsLong:       pos.IsLong,
			SizeDelta:    req.SizeDeltaUsd,
		}); err == nil {
			fmt.Printf("liq price:   %s USD\n", fixedpoint.Format(liq, 2))
		}
	}
	return v.ValidateDecrease(snap, req, pos, now)
}

func pickAverage(pos position.Position, entryPrice fixedpoint.Quantity) fixedpoint.Quantity {
	if pos.AveragePrice.IsPositive() {
		return pos.AveragePrice
	}
	return entryPrice
}

func printDecision(d orders.Decision) {
	switch {
	case d.OK():
		fmt.Println("decision:    valid")
	case d.Blocking:
		fmt.Printf("decision:    blocked (%s)\n", d.Reason)
	default:
		fmt.Printf("decision:    advisory (%s)\n", d.Reason)
	}
	if d.Blocking {
		os.Exit(2)
	}
}

func fatal(stage string, err error) {
	slog.Error(stage, "error", err)
	if errors.Is(err, os.ErrNotExist) {
		slog.Error("run with -config, -snapshot and -order pointing at existing files")
	}
	os.Exit(1)
}
