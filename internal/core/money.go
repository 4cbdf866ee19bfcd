// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integer hundredths of the community's single
// currency unit. Parsing and formatting go through shopspring/decimal so no
// float ever touches a stored amount.
package core

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// MaxCents bounds every parsed amount. Stored amounts round-trip through
// REAL columns, and 13 significant digits stay exact in a float64.
const MaxCents = 1e13

// groupedAmount matches amounts written with comma thousands separators,
// e.g. "1,000" or "12,500.50".
var groupedAmount = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

type Money struct {
	Cents int64
}

// Units builds a Money from a whole number of currency units.
func Units(n int64) Money {
	return Money{Cents: n * 100}
}

// ParseAmount converts a decimal string to Money, rounding to two places.
//
// The dot is the only decimal separator. Commas are accepted solely as
// thousands separators in groups of three digits; any other comma is an
// error rather than a guess. Negative values are accepted here; callers
// decide whether a sign is meaningful. Amounts beyond MaxCents are rejected.
//
// Examples:
//
//	ParseAmount("500")      -> Money{50000}
//	ParseAmount("1,000")    -> Money{100000}
//	ParseAmount("2,000.50") -> Money{200050}
//	ParseAmount("12,34")    -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if !groupedAmount.MatchString(s) {
			return Money{}, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(MaxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Validate reports whether m is a strictly positive amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Times multiplies by an integer factor (months, flags).
func (m Money) Times(n int64) Money { return Money{Cents: m.Cents * n} }

func (m Money) IsPositive() bool { return m.Cents > 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount in units without trailing zeros ("200", "-12.5").
func (m Money) String() string {
	return m.Decimal().String()
}
