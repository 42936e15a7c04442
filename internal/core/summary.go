package core

import (
	"fmt"
	"strings"
	"time"
)

// Month identifies a calendar month window.
type Month struct {
	Year  int
	Month int // 1-12
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Month()}
}

// CurrentMonth returns the month containing today.
func CurrentMonth() Month {
	return MonthOf(Today())
}

// ParseMonth parses a "YYYY-MM" key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return Month{Year: t.Year(), Month: int(t.Month())}, nil
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return ErrInvalidMonth
	}
	if m.Year < 1 || m.Year > 9999 {
		return fmt.Errorf("invalid year %d", m.Year)
	}
	return nil
}

// Range returns the half-open window [first day, first day of next month).
func (m Month) Range() (Date, Date) {
	start := NewDate(m.Year, m.Month, 1)
	return start, Date{Time: start.AddDate(0, 1, 0)}
}

// Contains reports whether d falls within the month.
func (m Month) Contains(d Date) bool {
	start, end := m.Range()
	return !d.Before(start.Time) && d.Before(end.Time)
}

// Shift moves the window by delta months.
func (m Month) Shift(delta int) Month {
	t := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// Key is a stable cache/string key, e.g. "2025-03".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Label renders the month for headings, e.g. "March 2025".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", time.Month(m.Month).String(), m.Year)
}

// MonthSummary aggregates the rows of one month for one account.
type MonthSummary struct {
	Inflow  Money
	Outflow Money // non-positive
	Net     Money
	Count   int
}

// Summarize totals a list of transactions.
func Summarize(txns []Transaction) MonthSummary {
	var s MonthSummary
	for _, t := range txns {
		if t.IsInflow() {
			s.Inflow.Cents += t.AmountCents
		} else {
			s.Outflow.Cents += t.AmountCents
		}
		s.Count++
	}
	s.Net.Cents = s.Inflow.Cents + s.Outflow.Cents
	return s
}
