// Package amount converts decimal strings to and from the 6-decimal
// fixed-point integers used on the ledger.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits carried by a FixedPoint.
const Decimals = 6

// ErrInvalidAmount is returned for strings that are not non-negative decimal
// numbers, and for values that do not fit the 64-bit wire form.
var ErrInvalidAmount = errors.New("invalid amount")

// FixedPoint is a non-negative amount scaled by 10^6. The zero value is 0.
type FixedPoint struct {
	v *big.Int
}

// ToFixedPoint parses s. Fractional digits past the sixth are dropped
// without rounding.
func ToFixedPoint(s string) (FixedPoint, error) {
	if s == "" {
		return FixedPoint{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return FixedPoint{}, fmt.Errorf("%w: %q contains %q", ErrInvalidAmount, s, r)
		}
	}

	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") {
		return FixedPoint{}, fmt.Errorf("%w: %q has more than one decimal point", ErrInvalidAmount, s)
	}
	if whole == "" && frac == "" {
		return FixedPoint{}, fmt.Errorf("%w: %q has no digits", ErrInvalidAmount, s)
	}

	if len(frac) > Decimals {
		frac = frac[:Decimals]
	} else {
		frac += strings.Repeat("0", Decimals-len(frac))
	}

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return FixedPoint{v: v}, nil
}

// MustFixedPoint is like ToFixedPoint but panics on invalid input.
func MustFixedPoint(s string) FixedPoint {
	fp, err := ToFixedPoint(s)
	if err != nil {
		panic(err)
	}
	return fp
}

// FromUint64 wraps a raw wire value.
func FromUint64(raw uint64) FixedPoint {
	return FixedPoint{v: new(big.Int).SetUint64(raw)}
}

// Int returns a copy of the scaled integer.
func (f FixedPoint) Int() *big.Int {
	if f.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.v)
}

// Uint64 returns the wire form of f.
func (f FixedPoint) Uint64() (uint64, error) {
	u, overflow := uint256.FromBig(f.Int())
	if overflow || !u.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrInvalidAmount, ToDecimalString(f))
	}
	return u.Uint64(), nil
}

// Cmp compares f and g like big.Int.Cmp.
func (f FixedPoint) Cmp(g FixedPoint) int {
	return f.Int().Cmp(g.Int())
}

// IsZero reports whether f is 0.
func (f FixedPoint) IsZero() bool {
	return f.v == nil || f.v.Sign() == 0
}

func (f FixedPoint) String() string {
	return ToDecimalString(f)
}

// ToDecimalString renders f with exactly six fractional digits, so
// 1500000 becomes "1.500000". Trailing zeros are left for Normalize.
func ToDecimalString(f FixedPoint) string {
	return decimal.NewFromBigInt(f.Int(), -Decimals).StringFixed(Decimals)
}

// Normalize parses s and renders it without trailing fractional zeros.
func Normalize(s string) (string, error) {
	fp, err := ToFixedPoint(s)
	if err != nil {
		return "", err
	}
	return decimal.NewFromBigInt(fp.Int(), -Decimals).String(), nil
}

// Wire parses s straight to its 64-bit ledger form.
func Wire(s string) (uint64, error) {
	fp, err := ToFixedPoint(s)
	if err != nil {
		return 0, err
	}
	return fp.Uint64()
}

// FromWire renders a raw ledger value as a decimal string.
func FromWire(raw uint64) string {
	return ToDecimalString(FromUint64(raw))
}
