package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// minorDigits is the number of fraction digits every amount carries.
const minorDigits = 2

// Formatter renders minor-unit amounts in a fixed currency for one locale.
// Amounts are printed from their integer digits, never through float64.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
	tag     language.Tag
	symbol  string
	decimal string
}

// NewFormatter builds a formatter for a BCP 47 locale and ISO 4217 code.
// Only currencies with two minor digits are accepted, since amounts are
// stored as cents.
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	if err := CheckMinorDigits(unit); err != nil {
		return nil, err
	}
	p := message.NewPrinter(tag)
	return &Formatter{
		printer: p,
		unit:    unit,
		tag:     tag,
		symbol:  p.Sprint(currency.Symbol(unit)),
		decimal: decimalSeparator(p),
	}, nil
}

// CheckMinorDigits rejects currencies whose standard scale is not cents.
func CheckMinorDigits(unit currency.Unit) error {
	if scale, _ := currency.Standard.Rounding(unit); scale != minorDigits {
		return fmt.Errorf("currency %s uses %d minor digits, want %d", unit, scale, minorDigits)
	}
	return nil
}

// decimalSeparator asks the locale how it writes one and a half.
func decimalSeparator(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	if i, j := strings.Index(s, "1"), strings.LastIndex(s, "5"); i >= 0 && j > i+1 {
		return s[i+1 : j]
	}
	return "."
}

// MustFormatter is NewFormatter for constant inputs.
func MustFormatter(locale, code string) *Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

// Cents formats an amount with the currency symbol, e.g. "€ 12.34".
func (f *Formatter) Cents(cents int64) string {
	u := uint64(cents)
	sign := ""
	if cents < 0 {
		u = -u
		sign = "-"
	}
	major := f.printer.Sprint(number.Decimal(u / 100))
	return fmt.Sprintf("%s %s%s%s%02d", f.symbol, sign, major, f.decimal, u%100)
}

// Currency returns the ISO code the formatter renders.
func (f *Formatter) Currency() string {
	return f.unit.String()
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() string {
	return f.tag.String()
}
