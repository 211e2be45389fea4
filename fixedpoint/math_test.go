package fixedpoint

import (
	"errors"
	"math/big"
	"testing"
)

func TestMulDivTruncatesTowardZero(t *testing.T) {
	cases := []struct {
		name    string
		a, b, c int64
		want    int64
	}{
		{"exact", 10, 6, 3, 20},
		{"truncated", 10, 7, 3, 23},
		{"negative numerator", -10, 7, 3, -23},
		{"negative divisor", 10, 7, -3, -23},
		{"zero operand", 0, 7, 3, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MulDiv(big.NewInt(tc.a), big.NewInt(tc.b), big.NewInt(tc.c))
			if err != nil {
				t.Fatalf("MulDiv: %v", err)
			}
			if got.Int64() != tc.want {
				t.Fatalf("MulDiv(%d, %d, %d) = %d, want %d", tc.a, tc.b, tc.c, got.Int64(), tc.want)
			}
		})
	}
}

func TestMulDivNoIntermediateOverflow(t *testing.T) {
	a := Expand(1, 30)
	b := Expand(1, 30)
	got, err := MulDiv(a, b, Expand(1, 30))
	if err != nil {
		t.Fatalf("MulDiv: %v", err)
	}
	if got.Cmp(Expand(1, 30)) != 0 {
		t.Fatalf("MulDiv(1e30, 1e30, 1e30) = %s, want 1e30", got)
	}
}

func TestMulDivDivisionByZero(t *testing.T) {
	if _, err := MulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := MulDiv(big.NewInt(1), big.NewInt(1), nil); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero for nil divisor, got %v", err)
	}
}

func TestAdjustForDecimals(t *testing.T) {
	cases := []struct {
		name     string
		value    int64
		from, to int32
		want     string
	}{
		{"expand", 100, 6, 18, "100000000000000"},
		{"reduce exact", 100_000_000, 8, 2, "100"},
		{"reduce truncates", 199, 2, 0, "1"},
		{"identity", 42, 9, 9, "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AdjustForDecimals(big.NewInt(tc.value), tc.from, tc.to)
			if got.String() != tc.want {
				t.Fatalf("AdjustForDecimals(%d, %d, %d) = %s, want %s", tc.value, tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestQuantityPrecisionGuard(t *testing.T) {
	usd := Scaled(10, USDDecimals)
	usdg := Scaled(10, USDGDecimals)
	if _, err := usd.Add(usdg); !errors.Is(err, ErrPrecisionMismatch) {
		t.Fatalf("expected ErrPrecisionMismatch, got %v", err)
	}
	if _, err := usd.Cmp(usdg); !errors.Is(err, ErrPrecisionMismatch) {
		t.Fatalf("expected ErrPrecisionMismatch on Cmp, got %v", err)
	}
	rescaled := usdg.Rescale(USDDecimals)
	sum, err := usd.Add(rescaled)
	if err != nil {
		t.Fatalf("Add after rescale: %v", err)
	}
	if sum.Value().Cmp(Expand(20, USDDecimals)) != 0 {
		t.Fatalf("10 USD + 10 USDG-rescaled = %s, want 20e30", sum)
	}
}

func TestZeroValueQuantityCombines(t *testing.T) {
	var zero Quantity
	sum, err := zero.Add(Scaled(5, USDDecimals))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Decimals() != USDDecimals {
		t.Fatalf("sum decimals = %d, want %d", sum.Decimals(), USDDecimals)
	}
	if sum.Value().Cmp(Expand(5, USDDecimals)) != 0 {
		t.Fatalf("zero + 5 USD = %s", sum)
	}
	if !zero.MulBps(30).IsZero() {
		t.Fatal("bps of the zero value must stay zero")
	}
}

func TestQuantityUnsigned(t *testing.T) {
	a := Scaled(1, USDDecimals)
	b := Scaled(2, USDDecimals)
	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if _, err := diff.Unsigned(); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if _, err := b.Sub(a); err != nil {
		t.Fatalf("Sub: %v", err)
	}
}

func TestParseAndFormat(t *testing.T) {
	q, err := Parse("100.5", 6)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Value().Int64() != 100_500_000 {
		t.Fatalf("Parse(100.5, 6) = %s", q.Value())
	}
	if got := Format(q, 2); got != "100.5" {
		t.Fatalf("Format = %q, want 100.5", got)
	}

	if _, err := Parse("0.1234567", 6); !errors.Is(err, ErrPrecisionMismatch) {
		t.Fatalf("expected ErrPrecisionMismatch for excess fraction, got %v", err)
	}

	empty, err := Parse("  ", 18)
	if err != nil {
		t.Fatalf("Parse blank: %v", err)
	}
	if !empty.IsZero() {
		t.Fatalf("Parse blank = %s, want zero", empty)
	}
}

func TestMulBps(t *testing.T) {
	amount := Scaled(1000, USDDecimals)
	fee := amount.MulBps(30)
	if fee.Value().Cmp(Expand(3, USDDecimals)) != 0 {
		t.Fatalf("30 bps of 1000 = %s, want 3e30", fee.Value())
	}
	keep := amount.MulBps(BasisPointsDivisor - 30)
	sum, err := fee.Add(keep)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Value().Cmp(amount.Value()) != 0 {
		t.Fatalf("fee + remainder = %s, want %s", sum.Value(), amount.Value())
	}
}
