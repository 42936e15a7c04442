// Package core provides money parsing and handling utilities.
//
// Amounts travel through the application as signed integer minor units
// (cents). Only this file converts between user text and cents.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountLen bounds the text handed to the decimal parser.
const maxAmountLen = 32

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64 + 1)
)

// ParseDecimalToCents converts a user-typed decimal string to signed cents.
//
// Either '.' or ',' is accepted as the fractional separator, but only one
// separator may appear. Exponent notation is rejected. The value is multiplied by 100 and rounded half away
// from zero. Negative values are allowed and denote an outflow.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("-3.5")   -> -350, nil
//	ParseDecimalToCents("0.005")  -> 1, nil
//	ParseDecimalToCents("-0.005") -> -1, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if len(s) > maxAmountLen || strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	s = strings.Replace(s, ",", ".", 1)
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, ", ") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// CentsToDecimalString renders cents as a plain two-decimal string, the
// inverse of ParseDecimalToCents for form re-display.
func CentsToDecimalString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
