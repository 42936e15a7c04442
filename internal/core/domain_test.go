package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-03-09 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-03-09" {
		t.Fatalf("expected 2025-03-09, got %s", d)
	}
	for _, bad := range []string{"", "2025-13-01", "09/03/2025", "2025-02-30"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		AccountID:   1,
		AccountName: "Checking",
		Date:        NewDate(2025, 1, 1),
		PayeeName:   "Grocer",
		AmountCents: -1234,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	noAccount := good
	noAccount.AccountID, noAccount.AccountName = 0, ""
	if err := noAccount.Validate(); !errors.Is(err, ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount, got %v", err)
	}

	noPayee := good
	noPayee.PayeeName = "  "
	if err := noPayee.Validate(); !errors.Is(err, ErrEmptyPayee) {
		t.Fatalf("expected ErrEmptyPayee, got %v", err)
	}

	noDate := good
	noDate.Date = Date{}
	if err := noDate.Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestMonthRange(t *testing.T) {
	m := Month{Year: 2024, Month: 12}
	start, end := m.Range()
	if start.String() != "2024-12-01" || end.String() != "2025-01-01" {
		t.Fatalf("unexpected range %s..%s", start, end)
	}
	if !m.Contains(NewDate(2024, 12, 31)) {
		t.Fatalf("expected Dec 31 inside")
	}
	if m.Contains(NewDate(2025, 1, 1)) {
		t.Fatalf("expected Jan 1 outside")
	}
}

func TestMonthShift(t *testing.T) {
	cases := []struct {
		in    Month
		delta int
		out   Month
	}{
		{Month{2025, 1}, -1, Month{2024, 12}},
		{Month{2025, 12}, 1, Month{2026, 1}},
		{Month{2025, 6}, 0, Month{2025, 6}},
		{Month{2025, 6}, 14, Month{2026, 8}},
	}
	for _, tc := range cases {
		if got := tc.in.Shift(tc.delta); got != tc.out {
			t.Fatalf("%v shift %d: expected %v, got %v", tc.in, tc.delta, tc.out, got)
		}
	}
}

func TestMonthValidate(t *testing.T) {
	if err := (Month{2025, 0}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if err := (Month{0, 5}).Validate(); err == nil {
		t.Fatalf("expected year error")
	}
	if err := (Month{2025, 5}).Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-12")
	if err != nil || m != (Month{2024, 12}) {
		t.Fatalf("ParseMonth(2024-12) = %+v, %v", m, err)
	}
	if m.Key() != "2024-12" {
		t.Fatalf("Key() = %q", m.Key())
	}
	for _, bad := range []string{"", "2024-13", "2024/01", "24-01"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Errorf("ParseMonth(%q) should fail", bad)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Transaction{
		{AmountCents: 10000},
		{AmountCents: -2550},
		{AmountCents: -450},
		{AmountCents: 0},
	})
	if s.Inflow.Cents != 10000 || s.Outflow.Cents != -3000 || s.Net.Cents != 7000 || s.Count != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
}
