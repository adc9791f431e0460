package asset

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func testAsset(symbol string, decimals uint8) *Asset {
	addr := common.BytesToAddress([]byte(symbol))
	return NewAsset(NewID(137, addr), symbol, symbol, decimals)
}

func TestParseString(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	tests := []struct {
		name    string
		asset   *Asset
		input   string
		wantRaw string
		wantErr error
	}{
		{name: "one_ether", asset: weth, input: "1", wantRaw: "1000000000000000000"},
		{name: "fractional", asset: weth, input: "0.5", wantRaw: "500000000000000000"},
		{name: "wei_precision", asset: weth, input: "0.000000000000000001", wantRaw: "1"},
		{name: "usdc_six_decimals", asset: usdc, input: "1250.25", wantRaw: "1250250000"},
		{name: "zero", asset: usdc, input: "0", wantRaw: "0"},
		{name: "too_precise", asset: usdc, input: "0.0000001", wantErr: ErrTooManyDecimals},
		{name: "negative", asset: weth, input: "-1", wantErr: ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseString(tt.asset, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseString(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseString(%q) unexpected error: %v", tt.input, err)
			}
			want, _ := new(big.Int).SetString(tt.wantRaw, 10)
			if got.Raw().Cmp(want) != 0 {
				t.Errorf("ParseString(%q).Raw() = %s, want %s", tt.input, got.Raw(), tt.wantRaw)
			}
		})
	}
}

func TestAmountRoundTrip(t *testing.T) {
	weth := testAsset("WETH", 18)

	for _, s := range []string{"0", "1", "0.123456789012345678", "42500.5"} {
		a := MustParse(weth, s)
		want := decimal.RequireFromString(s)
		if !a.ToDecimal().Equal(want) {
			t.Errorf("round trip %q: got %s", s, a.ToDecimal())
		}
	}
}

func TestAmountArithmetic(t *testing.T) {
	weth := testAsset("WETH", 18)
	usdc := testAsset("USDC", 6)

	a := MustParse(weth, "1.5")
	b := MustParse(weth, "0.5")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.ToDecimal().String() != "2" {
		t.Errorf("Add = %s, want 2", sum.ToDecimal())
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.ToDecimal().String() != "1" {
		t.Errorf("Sub = %s, want 1", diff.ToDecimal())
	}

	if _, err := b.Sub(a); !errors.Is(err, ErrNegativeResult) {
		t.Errorf("Sub below zero error = %v, want ErrNegativeResult", err)
	}

	other := MustParse(usdc, "1")
	if _, err := a.Add(other); !errors.Is(err, ErrAssetMismatch) {
		t.Errorf("cross-asset Add error = %v, want ErrAssetMismatch", err)
	}
}

func TestAmountBpsOf(t *testing.T) {
	usdc := testAsset("USDC", 6)

	tests := []struct {
		amount string
		bps    int64
		want   string
	}{
		{"10000", 30, "30"},       // 0.30%
		{"10000", 9, "9"},         // flash loan premium
		{"1", 50, "0.005"},        // 0.50%
		{"0.0001", 1, "0"},        // truncates toward zero
	}

	for _, tt := range tests {
		got := MustParse(usdc, tt.amount).BpsOf(tt.bps)
		want := decimal.RequireFromString(tt.want)
		if !got.ToDecimal().Equal(want) {
			t.Errorf("BpsOf(%s, %d) = %s, want %s", tt.amount, tt.bps, got.ToDecimal(), tt.want)
		}
	}
}

func TestAmountImmutableRaw(t *testing.T) {
	weth := testAsset("WETH", 18)

	raw := big.NewInt(1000)
	a := NewAmount(weth, raw)

	raw.SetInt64(5)
	if a.Raw().Int64() != 1000 {
		t.Error("NewAmount must copy its input")
	}

	a.Raw().SetInt64(7)
	if a.Raw().Int64() != 1000 {
		t.Error("Raw must return a copy")
	}
}

func TestNewAmountPanics(t *testing.T) {
	weth := testAsset("WETH", 18)

	assertPanic := func(name string, fn func()) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		})
	}

	assertPanic("nil_asset", func() { NewAmount(nil, big.NewInt(1)) })
	assertPanic("nil_raw", func() { NewAmount(weth, nil) })
	assertPanic("negative", func() { NewAmount(weth, big.NewInt(-1)) })
}
