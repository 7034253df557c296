// Package types provides common value types used across contenthub.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Errors returned by Money arithmetic that can fail on caller input.
var (
	ErrNegativeAmount = errors.New("money: negative amount")
	ErrPercentRange   = errors.New("money: percent out of range 0..100")
	ErrOverflow       = errors.New("money: overflow")
)

// Money represents a ledger amount in the asset's smallest unit.
// All arithmetic is integer-only, no floating point.
//
// Examples:
//   - Algo(1_000_000) = 1 ALGO (microalgos)
//   - USDC(2_500_000) = 2.5 USDC
//   - Wei(10) = 10 wei
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (microalgos, wei, ...)
	Currency string `json:"currency"` // Lowercase asset code: "algo", "usdc", "eth"
}

// Asset constructors

// Algo creates a Money value in microalgos.
func Algo(micro int64) Money { return Money{Amount: micro, Currency: "algo"} }

// USDC creates a Money value in USDC base units (6 decimals).
func USDC(units int64) Money { return Money{Amount: units, Currency: "usdc"} }

// Wei creates a Money value in wei.
func Wei(wei int64) Money { return Money{Amount: wei, Currency: "eth"} }

// New creates a Money value in the given asset.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// Zero returns a zero Money value in the specified asset.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// Arithmetic operations

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// CheckedAdd adds two Money values and reports ErrOverflow instead of wrapping.
// Panics if currencies don't match.
func (m Money) CheckedAdd(other Money) (Money, error) {
	m.assertSameCurrency(other)
	sum, err := AddInt64(m.Amount, other.Amount)
	if err != nil {
		return m, err
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Split divides m into a platform fee of floor(m * percent / 100) and the
// remainder. The product is computed in 128 bits so no amount overflows.
// fee + rest == m always holds.
func (m Money) Split(percent int) (fee, rest Money, err error) {
	f, r, err := SplitAmount(m.Amount, percent)
	if err != nil {
		return Zero(m.Currency), Zero(m.Currency), err
	}
	return Money{Amount: f, Currency: m.Currency}, Money{Amount: r, Currency: m.Currency}, nil
}

// SplitAmount is Split on raw base units.
func SplitAmount(amount int64, percent int) (fee, rest int64, err error) {
	if amount < 0 {
		return 0, 0, ErrNegativeAmount
	}
	if percent < 0 || percent > 100 {
		return 0, 0, ErrPercentRange
	}
	hi, lo := bits.Mul64(uint64(amount), uint64(percent))
	// hi < 100 because amount < 2^63 and percent <= 100.
	q, _ := bits.Div64(hi, lo, 100)
	fee = int64(q)
	return fee, amount - fee, nil
}

// AddInt64 returns a + b or ErrOverflow.
func AddInt64(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// Formatting methods

// FormatMajor returns the amount in whole units without the asset code.
// "0.000010" for Algo(10), "1.500000" for USDC(1_500_000).
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return fmt.Sprintf("%d", m.Amount)
	}

	isNegative := m.Amount < 0
	abs := uint64(m.Amount)
	if isNegative {
		abs = uint64(-(m.Amount + 1)) + 1
	}

	divisor := uint64(1)
	for i := 0; i < decimals; i++ {
		divisor *= 10
	}
	major := abs / divisor
	minor := abs % divisor

	result := fmt.Sprintf("%d.%0*d", major, decimals, minor)
	if isNegative {
		return "-" + result
	}
	return result
}

// String returns a human-readable string such as "0.000010 ALGO".
func (m Money) String() string {
	return m.FormatMajor() + " " + strings.ToUpper(m.Currency)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

// currencyDecimals returns the number of decimal places for an asset.
func currencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "algo", "usdc", "usdt":
		return 6
	case "eth", "bnb", "matic":
		return 18
	}
	return 0
}

// Sum calculates the sum of multiple Money values. All must have the same currency.
func Sum(currency string, values ...Money) Money {
	result := Zero(currency)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
