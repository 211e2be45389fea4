package position

import (
	"errors"
	"math/big"
	"testing"

	"xdxcore/config"
	"xdxcore/fixedpoint"
)

func usd(n int64) fixedpoint.Quantity {
	return fixedpoint.Scaled(n, fixedpoint.USDDecimals)
}

func funding(n int64) fixedpoint.Quantity {
	return fixedpoint.FromInt64(n, 0)
}

func testEngine() *Engine {
	return NewEngine(config.PositionParams{
		MarginFeeBps:      config.DefaultMarginFeeBps,
		LiquidationFeeUsd: usd(5),
		MinLeverageBps:    config.DefaultMinLeverageBps,
		MaxLeverageBps:    config.DefaultMaxLeverageBps,
		MinProfitTime:     1200,
		MinProfitBps:      150,
	})
}

func feelessEngine() *Engine {
	return NewEngine(config.PositionParams{
		LiquidationFeeUsd: fixedpoint.Zero(fixedpoint.USDDecimals),
		MinLeverageBps:    config.DefaultMinLeverageBps,
		MaxLeverageBps:    config.DefaultMaxLeverageBps,
	})
}

func requireUsd(t *testing.T, got fixedpoint.Quantity, want int64) {
	t.Helper()
	if got.Value().Cmp(fixedpoint.Expand(want, fixedpoint.USDDecimals)) != 0 {
		t.Fatalf("got %s, want %d USD", got, want)
	}
}

func TestFundingFee(t *testing.T) {
	fee, err := FundingFee(usd(1000), funding(100), funding(600))
	if err != nil {
		t.Fatal(err)
	}
	// 1000 * 500 / 1e6 = 0.5 USD
	want := new(big.Int).Quo(fixedpoint.Expand(1000*500, fixedpoint.USDDecimals), big.NewInt(fixedpoint.FundingRatePrecision))
	if fee.Value().Cmp(want) != 0 {
		t.Fatalf("funding fee = %s, want %s", fee.Value(), want)
	}

	// Rates never accrue backwards; a stale cumulative rate charges nothing.
	fee, err = FundingFee(usd(1000), funding(600), funding(100))
	if err != nil {
		t.Fatal(err)
	}
	if !fee.IsZero() {
		t.Fatalf("negative accrual charged %s", fee)
	}
}

func TestLeverageBasic(t *testing.T) {
	lev, err := feelessEngine().Leverage(LeverageInput{
		Size:       usd(1000),
		Collateral: usd(100),
	})
	if err != nil {
		t.Fatal(err)
	}
	if lev.Value().Int64() != 100_000 {
		t.Fatalf("leverage = %s, want 100000 bps", lev.Value())
	}
}

func TestLeverageChargesMarginFeeOnSizeChange(t *testing.T) {
	lev, err := testEngine().Leverage(LeverageInput{
		SizeDelta:          usd(1000),
		IncreaseSize:       true,
		CollateralDelta:    usd(100),
		IncreaseCollateral: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Net collateral 99.9 USD after the 10 bps margin fee.
	if lev.Value().Int64() != 100_100 {
		t.Fatalf("leverage = %s, want 100100 bps", lev.Value())
	}
}

func TestLeverageMonotonicInSizeDelta(t *testing.T) {
	eng := testEngine()
	prev := int64(0)
	for _, delta := range []int64{0, 100, 500, 2000} {
		in := LeverageInput{Size: usd(1000), Collateral: usd(100)}
		if delta > 0 {
			in.SizeDelta = usd(delta)
			in.IncreaseSize = true
		}
		lev, err := eng.Leverage(in)
		if err != nil {
			t.Fatal(err)
		}
		if lev.Value().Int64() <= prev {
			t.Fatalf("leverage %s not increasing at sizeDelta %d", lev.Value(), delta)
		}
		prev = lev.Value().Int64()
	}
}

func TestLeverageErrors(t *testing.T) {
	eng := testEngine()
	if _, err := eng.Leverage(LeverageInput{}); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("empty input: %v", err)
	}
	if _, err := eng.Leverage(LeverageInput{Size: usd(1000)}); !errors.Is(err, ErrUndercollateralized) {
		t.Fatalf("no collateral: %v", err)
	}

	// A loss netted in that consumes all collateral is reported, not divided by.
	_, err := eng.Leverage(LeverageInput{
		Size:         usd(1000),
		Collateral:   usd(100),
		IncludeDelta: true,
		Delta:        usd(200),
	})
	if !errors.Is(err, ErrUndercollateralized) {
		t.Fatalf("depleted collateral: %v", err)
	}
}

func TestDeltaAtEntryPrice(t *testing.T) {
	res, err := testEngine().Delta(usd(2000), Position{
		Size:         usd(1000),
		Collateral:   usd(100),
		AveragePrice: usd(2000),
		IsLong:       true,
	}, 10_000)
	if err != nil {
		t.Fatal(err)
	}
	if res.HasProfit {
		t.Fatal("no profit at entry price")
	}
	if !res.Delta.IsZero() || !res.PendingDelta.IsZero() {
		t.Fatalf("delta %s pending %s, want zero", res.Delta, res.PendingDelta)
	}
}

func TestDeltaLongAndShort(t *testing.T) {
	eng := testEngine()
	pos := Position{
		Size:         usd(1000),
		Collateral:   usd(100),
		AveragePrice: usd(2000),
		IsLong:       true,
	}

	res, err := eng.Delta(usd(1800), pos, 10_000)
	if err != nil {
		t.Fatal(err)
	}
	if res.HasProfit {
		t.Fatal("long in loss below entry")
	}
	requireUsd(t, res.Delta, 100)
	if res.DeltaPercentageBps.Value().Int64() != 10_000 {
		t.Fatalf("delta pct = %s, want 10000 bps", res.DeltaPercentageBps.Value())
	}

	pos.IsLong = false
	res, err = eng.Delta(usd(1800), pos, 10_000)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasProfit {
		t.Fatal("short in profit below entry")
	}
	requireUsd(t, res.Delta, 100)
}

func TestDeltaMinProfitWindow(t *testing.T) {
	eng := testEngine()
	pos := Position{
		Size:              usd(1000),
		Collateral:        usd(100),
		AveragePrice:      usd(2000),
		IsLong:            true,
		LastIncreasedTime: 1000,
	}

	// A 10 USD profit on 1000 USD of size is 100 bps, under the 150 bps
	// threshold, so it is withheld inside the window.
	res, err := eng.Delta(usd(2020), pos, 1500)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasProfit {
		t.Fatal("profit flag must survive withholding")
	}
	if !res.Delta.IsZero() {
		t.Fatalf("withheld delta = %s, want zero", res.Delta)
	}
	requireUsd(t, res.PendingDelta, 10)

	// Window expired: the same profit reports in full.
	res, err = eng.Delta(usd(2020), pos, 3000)
	if err != nil {
		t.Fatal(err)
	}
	requireUsd(t, res.Delta, 10)
}

func TestProfitPrice(t *testing.T) {
	eng := testEngine()
	long := Position{AveragePrice: usd(2000), IsLong: true}
	requireUsd(t, eng.ProfitPrice(long), 2030)
	short := Position{AveragePrice: usd(2000)}
	requireUsd(t, eng.ProfitPrice(short), 1970)
}

func TestLiquidationPriceFeeless(t *testing.T) {
	liq, err := feelessEngine().LiquidationPrice(LiquidationInput{
		Size:         usd(1000),
		Collateral:   usd(100),
		AveragePrice: usd(2000),
		IsLong:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	requireUsd(t, liq, 1800)
}

func TestLiquidationPriceSides(t *testing.T) {
	eng := testEngine()
	in := LiquidationInput{
		Size:         usd(1000),
		Collateral:   usd(100),
		AveragePrice: usd(2000),
		IsLong:       true,
	}

	// Fees are 1 USD margin + 5 USD liquidation, leaving 94 USD of headroom:
	// a 188 USD move against the position.
	long, err := eng.LiquidationPrice(in)
	if err != nil {
		t.Fatal(err)
	}
	requireUsd(t, long, 1812)

	in.IsLong = false
	short, err := eng.LiquidationPrice(in)
	if err != nil {
		t.Fatal(err)
	}
	requireUsd(t, short, 2188)
}

func TestLiquidationPriceFeesExceedCollateral(t *testing.T) {
	liq, err := testEngine().LiquidationPrice(LiquidationInput{
		Size:         usd(1000),
		Collateral:   usd(4),
		AveragePrice: usd(2000),
		IsLong:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// 2 USD shortfall flips the branch above the entry price.
	requireUsd(t, liq, 2004)
}

func TestLiquidationPriceProjections(t *testing.T) {
	eng := feelessEngine()

	// Withdrawing half the collateral halves the headroom.
	liq, err := eng.LiquidationPrice(LiquidationInput{
		Size:            usd(1000),
		Collateral:      usd(100),
		AveragePrice:    usd(2000),
		IsLong:          true,
		CollateralDelta: usd(50),
	})
	if err != nil {
		t.Fatal(err)
	}
	requireUsd(t, liq, 1900)

	// Closing half of a losing position realizes half the loss.
	liq, err = eng.LiquidationPrice(LiquidationInput{
		Size:         usd(1000),
		Collateral:   usd(100),
		AveragePrice: usd(2000),
		IsLong:       true,
		SizeDelta:    usd(500),
		Delta:        usd(40),
		IncludeDelta: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Remaining collateral 80 USD over 500 USD of size: a 320 USD move.
	requireUsd(t, liq, 1680)

	// Closing the whole position has no liquidation price.
	_, err = eng.LiquidationPrice(LiquidationInput{
		Size:         usd(1000),
		Collateral:   usd(100),
		AveragePrice: usd(2000),
		IsLong:       true,
		SizeDelta:    usd(1000),
	})
	if !errors.Is(err, ErrNoPosition) {
		t.Fatalf("full close: %v", err)
	}
}

func TestLiquidationPriceWithdrawTooMuch(t *testing.T) {
	_, err := feelessEngine().LiquidationPrice(LiquidationInput{
		Size:            usd(1000),
		Collateral:      usd(100),
		AveragePrice:    usd(2000),
		IsLong:          true,
		CollateralDelta: usd(100),
	})
	if !errors.Is(err, ErrUndercollateralized) {
		t.Fatalf("withdraw all: %v", err)
	}
}

func TestNextAveragePrice(t *testing.T) {
	// Long from 1000 to 1500: 500 USD of profit on 1000 USD of size. Doubling
	// down by 500 USD blends the entry so the profit is preserved.
	next, err := NextAveragePrice(usd(1000), usd(500), usd(500), usd(1500), true, true)
	if err != nil {
		t.Fatal(err)
	}
	requireUsd(t, next, 1125)

	// A short carrying the same loss blends to the same price.
	next, err = NextAveragePrice(usd(1000), usd(500), usd(500), usd(1500), false, false)
	if err != nil {
		t.Fatal(err)
	}
	requireUsd(t, next, 1125)
}

func TestNextAveragePriceUndefined(t *testing.T) {
	if _, err := NextAveragePrice(usd(0), usd(500), usd(0), usd(1500), false, true); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("no size: %v", err)
	}
	if _, err := NextAveragePrice(usd(1000), usd(0), usd(0), usd(1500), false, true); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("no increase: %v", err)
	}
	if _, err := NextAveragePrice(usd(1000), usd(500), usd(0), usd(0), false, true); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("no price: %v", err)
	}
}
