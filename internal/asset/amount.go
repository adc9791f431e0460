package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNilRaw          = errors.New("asset: nil raw value")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
)

// Amount is an immutable quantity of an asset, held in the token's
// smallest unit. Arithmetic stays in the integer domain; ToDecimal is
// the display boundary.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount creates an Amount from a raw value in the smallest unit.
func NewAmount(a *Asset, raw *big.Int) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	if raw == nil {
		panic(ErrNilRaw)
	}
	if raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

// Zero creates a zero Amount for the given asset.
func Zero(a *Asset) Amount {
	return NewAmount(a, big.NewInt(0))
}

// Raw returns a copy of the raw value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.raw)
}

// Asset returns the asset the amount is denominated in.
func (a Amount) Asset() *Asset { return a.asset }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.raw == nil || a.raw.Sign() == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.raw != nil && a.raw.Sign() > 0 }

// Add returns a+b for amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.asset, new(big.Int).Add(a.raw, b.raw)), nil
}

// Sub returns a-b for amounts of the same asset; the result must be
// non-negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) < 0 {
		return Amount{}, ErrNegativeResult
	}
	return NewAmount(a.asset, new(big.Int).Sub(a.raw, b.raw)), nil
}

// MustSub is Sub that panics on error.
func (a Amount) MustSub(b Amount) Amount {
	r, err := a.Sub(b)
	if err != nil {
		panic(err)
	}
	return r
}

// Cmp compares two amounts of the same asset: -1, 0 or 1.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameAsset(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Equals reports whether both amounts carry the same asset and value.
func (a Amount) Equals(b Amount) bool {
	if a.asset == nil || b.asset == nil {
		return false
	}
	return a.asset.ID().Equals(b.asset.ID()) && a.raw.Cmp(b.raw) == 0
}

// BpsOf returns the given number of basis points of the amount,
// truncated toward zero. Integer math throughout.
func (a Amount) BpsOf(bps int64) Amount {
	r := new(big.Int).Mul(a.Raw(), big.NewInt(bps))
	r.Quo(r, big.NewInt(10_000))
	return NewAmount(a.asset, r)
}

// ToDecimal converts the amount to its human-unit decimal value.
// Boundary function: display and price math only.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// ParseDecimal creates an Amount from a human-unit decimal value.
func ParseDecimal(as *Asset, d decimal.Decimal) (Amount, error) {
	if as == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(as.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}
	return NewAmount(as, scaled.BigInt()), nil
}

// ParseString creates an Amount from a decimal string.
func ParseString(as *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string %q: %w", s, err)
	}
	return ParseDecimal(as, d)
}

// MustParse is ParseString that panics on error. For tests and
// well-known constants only.
func MustParse(as *Asset, s string) Amount {
	a, err := ParseString(as, s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns a human-readable representation (e.g. "1.5 WETH").
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.asset.Symbol())
}

// StringFixed renders the amount with a fixed number of decimal places.
func (a Amount) StringFixed(places int32) string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().StringFixed(places), a.asset.Symbol())
}

func (a Amount) checkSameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.ID().Equals(b.asset.ID()) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.Symbol(), b.asset.Symbol())
	}
	return nil
}
