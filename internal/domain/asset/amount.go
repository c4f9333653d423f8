package asset

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ID names an asset held at the bank.
type ID string

// Native is the chain's native currency.
const Native ID = "native"

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Zero is the zero amount.
var Zero = decimal.Zero

// MaxAmount is the largest representable amount, 2^256 - 1.
var MaxAmount = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)), 0)

// maxAmountInput bounds the raw text handed to the decimal parser.
const maxAmountInput = 128

// ValidAmount reports whether v is a whole number of units in [0, MaxAmount].
func ValidAmount(v decimal.Decimal) bool {
	// Exponent is checked before any arithmetic so huge scientific values stay cheap.
	if v.Exponent() > 78 || v.Exponent() < -78 {
		return false
	}
	return !v.IsNegative() && v.LessThanOrEqual(MaxAmount) && v.Equal(v.Truncate(0))
}

// ParseAmount parses a base-10 whole unit amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxAmountInput {
		return decimal.Zero, fmt.Errorf("%w: too long", ErrInvalidAmount)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !ValidAmount(v) {
		return decimal.Zero, ErrInvalidAmount
	}
	return v, nil
}

// MulDiv returns floor(v * num / den) for non-negative v and positive den.
func MulDiv(v decimal.Decimal, num, den int64) decimal.Decimal {
	if den <= 0 || num <= 0 || v.Sign() <= 0 {
		return decimal.Zero
	}
	q, _ := v.Mul(decimal.NewFromInt(num)).QuoRem(decimal.NewFromInt(den), 0)
	return q
}

// SubFloor returns a - b, floored at zero.
func SubFloor(a, b decimal.Decimal) decimal.Decimal {
	d := a.Sub(b)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
