package router

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"xdxcore/config"
	"xdxcore/fixedpoint"
	"xdxcore/tokens"
)

var (
	usdcAddr  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	ethAddr   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	avaxAddr  = common.HexToAddress("0x0000000000000000000000000000000000000003")
	wavaxAddr = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

func usd(n int64) fixedpoint.Quantity {
	return fixedpoint.Scaled(n, fixedpoint.USDDecimals)
}

func amt(n int64, decimals int32) fixedpoint.Quantity {
	return fixedpoint.Scaled(n, decimals)
}

func usdg(n int64) fixedpoint.Quantity {
	return fixedpoint.Scaled(n, fixedpoint.USDGDecimals)
}

// Pool sits exactly at its weight-implied targets: 2M USDG supply split
// 20000/30000 between USDC and ETH.
func testSnapshot() tokens.Snapshot {
	return tokens.Snapshot{
		usdcAddr: {
			Address:         usdcAddr,
			Symbol:          "USDC",
			Decimals:        6,
			Weight:          20_000,
			IsStable:        true,
			MinPrice:        usd(1),
			MaxPrice:        usd(1),
			PoolAmount:      amt(5_000_000, 6),
			BufferAmount:    amt(100_000, 6),
			AvailableAmount: amt(4_000_000, 6),
			USDGAmount:      usdg(800_000),
		},
		ethAddr: {
			Address:         ethAddr,
			Symbol:          "ETH",
			Decimals:        18,
			Weight:          30_000,
			IsShortable:     true,
			MinPrice:        usd(1800),
			MaxPrice:        usd(1820),
			PoolAmount:      amt(1000, 18),
			BufferAmount:    amt(100, 18),
			AvailableAmount: amt(600, 18),
			USDGAmount:      usdg(1_200_000),
		},
		avaxAddr: {
			Address:  avaxAddr,
			Symbol:   "AVAX",
			Decimals: 18,
			IsNative: true,
			MinPrice: usd(20),
			MaxPrice: usd(20),
		},
		wavaxAddr: {
			Address:   wavaxAddr,
			Symbol:    "WAVAX",
			Decimals:  18,
			IsWrapped: true,
			MinPrice:  usd(20),
			MaxPrice:  usd(20),
		},
	}
}

func poolSupply() fixedpoint.Quantity { return usdg(2_000_000) }

func defaultRouter() *Router {
	return New(config.FeeParams{
		SwapFeeBps:       config.DefaultSwapFeeBps,
		StableSwapFeeBps: config.DefaultStableSwapFeeBps,
		TaxBps:           config.DefaultTaxBps,
		StableTaxBps:     config.DefaultStableTaxBps,
		MarginFeeBps:     config.DefaultMarginFeeBps,
	}, 50_000)
}

func feelessRouter() *Router {
	return New(config.FeeParams{}, 50_000)
}

func requireValue(t *testing.T, got fixedpoint.Quantity, want *big.Int) {
	t.Helper()
	if got.Value().Cmp(want) != 0 {
		t.Fatalf("got %s, want %s", got.Value(), want)
	}
}

func TestAmountOutNearTargetWeight(t *testing.T) {
	quote, err := defaultRouter().AmountOut(testSnapshot(), usdcAddr, ethAddr, amt(100, 6), fixedpoint.Quantity{}, poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	if quote.FeeBasisPoints != 30 {
		t.Fatalf("fee = %d bps, want 30", quote.FeeBasisPoints)
	}
	// 100 / 1820 truncated at 6 decimals, then 30 bps off.
	requireValue(t, quote.AmountOut, big.NewInt(54_780_165_000_000_000))
	if len(quote.Path) != 2 || quote.Path[0] != usdcAddr || quote.Path[1] != ethAddr {
		t.Fatalf("path = %v", quote.Path)
	}
}

func TestRoundTripWithZeroFees(t *testing.T) {
	r := feelessRouter()
	snap := testSnapshot()

	out, err := r.AmountOut(snap, usdcAddr, ethAddr, amt(182, 6), fixedpoint.Quantity{}, poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	if out.FeeBasisPoints != 0 {
		t.Fatalf("fee = %d bps, want 0", out.FeeBasisPoints)
	}
	requireValue(t, out.AmountOut, fixedpoint.Expand(1, 17))

	back, err := r.AmountIn(snap, usdcAddr, ethAddr, out.AmountOut, fixedpoint.Quantity{}, poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	requireValue(t, back.AmountIn, fixedpoint.Expand(182, 6))
}

func TestAmountInGrossesUpFee(t *testing.T) {
	quote, err := defaultRouter().AmountIn(testSnapshot(), usdcAddr, ethAddr, fixedpoint.New(fixedpoint.Expand(1, 17), 18), fixedpoint.Quantity{}, poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	if quote.FeeBasisPoints != 30 {
		t.Fatalf("fee = %d bps, want 30", quote.FeeBasisPoints)
	}
	// 182 USDC grossed up by 30 bps: 182e6 * 10000 / 9970.
	requireValue(t, quote.AmountIn, big.NewInt(182_547_642))
}

func TestTriggerRatioPricing(t *testing.T) {
	// Canonical ratio of 1800 USDC per ETH overrides the spot prices.
	quote, err := feelessRouter().AmountOut(testSnapshot(), ethAddr, usdcAddr, amt(1, 18), usd(1800), poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	requireValue(t, quote.AmountOut, fixedpoint.Expand(1800, 6))
}

func TestWrapUnwrapIsFeeless(t *testing.T) {
	snap := testSnapshot()
	r := defaultRouter()

	quote, err := r.AmountOut(snap, avaxAddr, wavaxAddr, amt(5, 18), fixedpoint.Quantity{}, poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	if quote.FeeBasisPoints != 0 {
		t.Fatalf("wrap fee = %d bps", quote.FeeBasisPoints)
	}
	requireValue(t, quote.AmountOut, fixedpoint.Expand(5, 18))

	quote, err = r.AmountIn(snap, wavaxAddr, avaxAddr, amt(5, 18), fixedpoint.Quantity{}, poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	requireValue(t, quote.AmountIn, fixedpoint.Expand(5, 18))
}

func TestLiquidityAvailableAmount(t *testing.T) {
	_, err := defaultRouter().AmountOut(testSnapshot(), usdcAddr, ethAddr, amt(2_000_000, 6), fixedpoint.Quantity{}, poolSupply())
	le, ok := AsLiquidity(err)
	if !ok {
		t.Fatalf("expected liquidity error, got %v", err)
	}
	if le.Kind != LiquidityAvailable {
		t.Fatalf("kind = %v", le.Kind)
	}
	if le.Token != ethAddr {
		t.Fatalf("token = %s", le.Token)
	}
}

func TestLiquidityBufferBreach(t *testing.T) {
	snap := testSnapshot()
	snap[ethAddr].AvailableAmount = amt(10_000, 18)

	_, err := defaultRouter().AmountOut(snap, usdcAddr, ethAddr, amt(1_700_000, 6), fixedpoint.Quantity{}, poolSupply())
	le, ok := AsLiquidity(err)
	if !ok {
		t.Fatalf("expected liquidity error, got %v", err)
	}
	if le.Kind != LiquidityBuffer {
		t.Fatalf("kind = %v", le.Kind)
	}
}

func TestLiquidityUSDGCap(t *testing.T) {
	snap := testSnapshot()
	snap[usdcAddr].MaxUSDGAmount = usdg(850_000)

	_, err := defaultRouter().AmountOut(snap, usdcAddr, ethAddr, amt(60_000, 6), fixedpoint.Quantity{}, poolSupply())
	le, ok := AsLiquidity(err)
	if !ok {
		t.Fatalf("expected liquidity error, got %v", err)
	}
	if le.Kind != LiquidityUSDGCap {
		t.Fatalf("kind = %v", le.Kind)
	}
	if le.Token != usdcAddr {
		t.Fatalf("token = %s", le.Token)
	}
}

func TestAmountOutErrors(t *testing.T) {
	snap := testSnapshot()
	r := defaultRouter()

	unknown := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	if _, err := r.AmountOut(snap, unknown, ethAddr, amt(1, 6), fixedpoint.Quantity{}, poolSupply()); !errors.Is(err, tokens.ErrUnknownToken) {
		t.Fatalf("unknown token: %v", err)
	}

	snap[ethAddr].MinPrice = fixedpoint.Zero(fixedpoint.USDDecimals)
	snap[ethAddr].MaxPrice = fixedpoint.Zero(fixedpoint.USDDecimals)
	if _, err := r.AmountOut(snap, usdcAddr, ethAddr, amt(1, 6), fixedpoint.Quantity{}, poolSupply()); !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("missing price: %v", err)
	}
}

func TestZeroAmountQuotesZero(t *testing.T) {
	quote, err := defaultRouter().AmountOut(testSnapshot(), usdcAddr, ethAddr, fixedpoint.Zero(6), fixedpoint.Quantity{}, poolSupply())
	if err != nil {
		t.Fatal(err)
	}
	if !quote.AmountOut.IsZero() {
		t.Fatalf("amount out = %s", quote.AmountOut)
	}
}

func TestEntryPath(t *testing.T) {
	snap := testSnapshot()
	r := defaultRouter()

	cases := []struct {
		name   string
		from   common.Address
		isLong bool
		want   []common.Address
	}{
		{"long funded by index", ethAddr, true, []common.Address{ethAddr}},
		{"long funded by stable", usdcAddr, true, []common.Address{usdcAddr, ethAddr}},
		{"short funded by stable", usdcAddr, false, []common.Address{usdcAddr}},
		{"short funded by volatile", ethAddr, false, []common.Address{ethAddr, usdcAddr}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.EntryPath(snap, tc.from, ethAddr, tc.isLong)
			if len(got) != len(tc.want) {
				t.Fatalf("path = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("path = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestMaxAmounts(t *testing.T) {
	snap := testSnapshot()
	snap[usdcAddr].MaxUSDGAmount = usdg(850_000)
	r := defaultRouter()

	maxIn, err := r.MaxAmountIn(snap[usdcAddr])
	if err != nil {
		t.Fatal(err)
	}
	requireValue(t, maxIn, fixedpoint.Expand(50_000, 6))

	requireValue(t, r.MaxAmountOut(snap[ethAddr]), fixedpoint.Expand(600, 18))
}
