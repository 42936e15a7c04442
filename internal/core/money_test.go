package core

import (
	"math"
	"strings"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"-3.5", -350, true},
		{"1", 100, true},
		{"1.0", 100, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true},   // half away from zero
		{"-1.005", -101, true}, // half away from zero
		{"0.004", 0, true},
		{" 2.50 ", 250, true},
		{"-0,5", -50, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1.234,56", 0, false},
		{"1,2,3", 0, false},
		{"12 34", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"99999999999999999999", 0, false},
		{"1e2", 0, false},
		{"1E2", 0, false},
		{"1e-400000", 0, false},
		{"1e400000", 0, false},
		{"1e-2147483647", 0, false},
		{"0." + strings.Repeat("0", 40) + "1", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error, got %d", tc.in, got)
			}
		}
	}
}

func TestCentsToDecimalString(t *testing.T) {
	cases := map[int64]string{
		1234: "12.34",
		-350: "-3.50",
		0:    "0.00",
		5:    "0.05",
	}
	for in, want := range cases {
		if got := CentsToDecimalString(in); got != want {
			t.Fatalf("%d: expected %q, got %q", in, want, got)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, in := range []string{"12.34", "-3.50", "0.01", "1000.00"} {
		cents, err := ParseDecimalToCents(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got := CentsToDecimalString(cents); got != in {
			t.Fatalf("round trip %q -> %d -> %q", in, cents, got)
		}
	}
}

func TestFormatterCents(t *testing.T) {
	f, err := NewFormatter("en-US", "EUR")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	got := f.Cents(1234)
	if !strings.Contains(got, "12.34") || !strings.Contains(got, "€") {
		t.Fatalf("expected euro amount 12.34, got %q", got)
	}
	neg := f.Cents(-350)
	if !strings.Contains(neg, "3.50") || !strings.Contains(neg, "-") {
		t.Fatalf("expected negative 3.50, got %q", neg)
	}
	if f.Currency() != "EUR" {
		t.Fatalf("expected EUR, got %s", f.Currency())
	}
}

func TestFormatterCentsExactDigits(t *testing.T) {
	f := MustFormatter("en-US", "EUR")
	cases := map[int64]string{
		9007199254740993:   "90,071,992,547,409.93",
		123456789012345678: "1,234,567,890,123,456.78",
		-5:                 "-0.05",
		math.MinInt64:      "-92,233,720,368,547,758.08",
	}
	for in, want := range cases {
		if got := f.Cents(in); !strings.HasSuffix(got, want) {
			t.Errorf("Cents(%d) = %q, want suffix %q", in, got, want)
		}
	}
}

func TestFormatterLocaleSeparator(t *testing.T) {
	f := MustFormatter("de-DE", "EUR")
	if got := f.Cents(123456); !strings.HasSuffix(got, "1.234,56") {
		t.Fatalf("Cents(123456) = %q, want German grouping", got)
	}
}

func TestNewFormatterRejectsNonCentCurrencies(t *testing.T) {
	for _, code := range []string{"JPY", "KWD"} {
		if _, err := NewFormatter("en-US", code); err == nil {
			t.Errorf("expected %s to be rejected", code)
		}
	}
}

func TestNewFormatterRejectsBadInput(t *testing.T) {
	if _, err := NewFormatter("en-US", "XX"); err == nil {
		t.Fatalf("expected error for bad currency")
	}
	if _, err := NewFormatter("not a locale!", "EUR"); err == nil {
		t.Fatalf("expected error for bad locale")
	}
}
