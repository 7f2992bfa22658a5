package entities

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a raw integer token quantity paired with the decimals needed to normalize it.
// It is built once where data enters the system and is never re-coerced downstream.
type Amount struct {
	raw      *big.Int
	decimals int
}

// NewAmount copies raw so later mutation by the caller has no effect
func NewAmount(raw *big.Int, decimals int) Amount {
	if raw == nil {
		return Amount{raw: new(big.Int), decimals: decimals}
	}
	return Amount{raw: new(big.Int).Set(raw), decimals: decimals}
}

// ParseAmount accepts a base-10 integer string or a 0x-prefixed hex string
func ParseAmount(s string, decimals int) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}

	raw := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if digits == "" {
			return NewAmount(raw, decimals), nil
		}
		_, ok = raw.SetString(digits, 16)
	} else {
		_, ok = raw.SetString(s, 10)
	}
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}

	return NewAmount(raw, decimals), nil
}

// Raw returns a copy of the integer quantity
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

// Decimals returns the token decimals used for normalization
func (a Amount) Decimals() int {
	return a.decimals
}

// IsPositive reports whether the raw quantity is greater than zero
func (a Amount) IsPositive() bool {
	return a.raw != nil && a.raw.Sign() > 0
}

// Decimal returns the normalized quantity (raw / 10^decimals)
func (a Amount) Decimal() decimal.Decimal {
	if a.raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, int32(-a.decimals))
}

// Float64 returns the normalized quantity as a float
func (a Amount) Float64() float64 {
	f, _ := a.Decimal().Float64()
	return f
}

func (a Amount) String() string {
	return a.Decimal().String()
}
