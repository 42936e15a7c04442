package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in forms.
const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID   int64
		Name string
	}

	Category struct {
		ID   int64
		Name string
	}

	// Transaction is the full, read-only view of a ledger row.
	// Empty Payee, Category and Memo mean the backend sent null.
	Transaction struct {
		ID          int64
		Date        Date
		Account     string
		AccountID   int64
		Payee       string
		Category    string
		Memo        string
		AmountCents int64
	}

	// NewTransaction carries the arguments of a create request.
	NewTransaction struct {
		AccountID   int64
		AccountName string
		Date        Date
		PayeeName   string
		CategoryID  int64 // 0 means uncategorised
		Memo        string
		AmountCents int64
		Cleared     bool
	}
)

var (
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyPayee     = errors.New("empty payee")
	ErrMissingAccount = errors.New("no account selected")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date. Surrounding whitespace is ignored.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

// IsInflow reports whether the amount adds money to the account.
func (t Transaction) IsInflow() bool {
	return t.AmountCents >= 0
}

func (a Account) IsZero() bool {
	return a.ID == 0 && strings.TrimSpace(a.Name) == ""
}

func (n NewTransaction) Validate() error {
	if n.AccountID == 0 && strings.TrimSpace(n.AccountName) == "" {
		return ErrMissingAccount
	}
	if err := n.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(n.PayeeName) == "" {
		return ErrEmptyPayee
	}
	if len(n.PayeeName) > 200 {
		return errors.New("payee too long (max 200 characters)")
	}
	if len(n.Memo) > 500 {
		return errors.New("memo too long (max 500 characters)")
	}
	return nil
}
