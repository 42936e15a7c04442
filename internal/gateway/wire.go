package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ledgerdesk/internal/core"
)

// Backend payloads drifted across releases (camelCase vs snake_case, payee
// vs payeeName, account as name or id). Everything is normalised here and
// nowhere else.

type wireAccount struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type wireCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type wireTransaction struct {
	ID               int64           `json:"id"`
	Date             string          `json:"date"`
	Account          json.RawMessage `json:"account"`
	AccountName      *string         `json:"accountName"`
	AccountNameSnake *string         `json:"account_name"`
	AccountID        *int64          `json:"accountId"`
	AccountIDSnake   *int64          `json:"account_id"`
	Payee            *string         `json:"payee"`
	PayeeName        *string         `json:"payeeName"`
	PayeeNameSnake   *string         `json:"payee_name"`
	Category         json.RawMessage `json:"category"`
	CategoryName     *string         `json:"categoryName"`
	CategoryNameSnk  *string         `json:"category_name"`
	Memo             *string         `json:"memo"`
	AmountCents      *int64          `json:"amountCents"`
	AmountCentsSnake *int64          `json:"amount_cents"`
}

type listMonthArgs struct {
	AccountName string `json:"accountName"`
	AccountID   int64  `json:"accountId,omitempty"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
}

type createArgs struct {
	AccountName string  `json:"accountName"`
	AccountID   int64   `json:"accountId,omitempty"`
	Date        string  `json:"date"`
	PayeeName   string  `json:"payeeName"`
	Category    *int64  `json:"category"`
	Memo        *string `json:"memo"`
	AmountCents int64   `json:"amountCents"`
	Cleared     int     `json:"cleared"`
}

func newListMonthArgs(account core.Account, month core.Month) listMonthArgs {
	return listMonthArgs{
		AccountName: account.Name,
		AccountID:   account.ID,
		Year:        month.Year,
		Month:       month.Month,
	}
}

func newCreateArgs(txn core.NewTransaction) createArgs {
	args := createArgs{
		AccountName: txn.AccountName,
		AccountID:   txn.AccountID,
		Date:        txn.Date.String(),
		PayeeName:   strings.TrimSpace(txn.PayeeName),
		AmountCents: txn.AmountCents,
	}
	if txn.CategoryID != 0 {
		id := txn.CategoryID
		args.Category = &id
	}
	if memo := strings.TrimSpace(txn.Memo); memo != "" {
		args.Memo = &memo
	}
	if txn.Cleared {
		args.Cleared = 1
	}
	return args
}

// DecodeAccounts maps a list_accounts_cmd result.
func DecodeAccounts(raw json.RawMessage) ([]core.Account, error) {
	var ws []wireAccount
	if err := decodeList(raw, &ws); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]core.Account, 0, len(ws))
	for _, w := range ws {
		out = append(out, core.Account{ID: w.ID, Name: w.Name})
	}
	return out, nil
}

// DecodeCategories maps a list_categories_cmd result.
func DecodeCategories(raw json.RawMessage) ([]core.Category, error) {
	var ws []wireCategory
	if err := decodeList(raw, &ws); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]core.Category, 0, len(ws))
	for _, w := range ws {
		out = append(out, core.Category{ID: w.ID, Name: w.Name})
	}
	return out, nil
}

// DecodeTransactions maps a list_txns_by_month_full result.
func DecodeTransactions(raw json.RawMessage) ([]core.Transaction, error) {
	var ws []wireTransaction
	if err := decodeList(raw, &ws); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(ws))
	for _, w := range ws {
		t, err := w.canonical()
		if err != nil {
			return nil, fmt.Errorf("decode transaction %d: %w", w.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// EncodeTransactions renders transactions in the canonical wire shape.
// In-process collaborators use it so tests exercise the same decode path.
func EncodeTransactions(txns []core.Transaction) (json.RawMessage, error) {
	type row struct {
		ID          int64   `json:"id"`
		Date        string  `json:"date"`
		AccountName string  `json:"account_name"`
		AccountID   int64   `json:"account_id"`
		PayeeName   *string `json:"payee_name"`
		Category    *string `json:"category_name"`
		Memo        *string `json:"memo"`
		AmountCents int64   `json:"amount_cents"`
	}
	rows := make([]row, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, row{
			ID:          t.ID,
			Date:        t.Date.String(),
			AccountName: t.Account,
			AccountID:   t.AccountID,
			PayeeName:   nullable(t.Payee),
			Category:    nullable(t.Category),
			Memo:        nullable(t.Memo),
			AmountCents: t.AmountCents,
		})
	}
	return json.Marshal(rows)
}

func (w wireTransaction) canonical() (core.Transaction, error) {
	date, err := core.ParseDate(w.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", w.Date, err)
	}
	amount := firstInt(w.AmountCents, w.AmountCentsSnake)
	if amount == nil {
		return core.Transaction{}, fmt.Errorf("missing amount")
	}

	t := core.Transaction{
		ID:          w.ID,
		Date:        date,
		Account:     firstString(w.AccountName, w.AccountNameSnake),
		Payee:       firstString(w.Payee, w.PayeeName, w.PayeeNameSnake),
		Category:    firstString(w.CategoryName, w.CategoryNameSnk),
		Memo:        firstString(w.Memo),
		AmountCents: *amount,
	}
	if id := firstInt(w.AccountID, w.AccountIDSnake); id != nil {
		t.AccountID = *id
	}

	// "account" and "category" carried either a name or a numeric id.
	if name, id, ok := nameOrID(w.Account); ok {
		if t.Account == "" {
			t.Account = name
		}
		if t.AccountID == 0 {
			t.AccountID = id
		}
	}
	if name, _, ok := nameOrID(w.Category); ok && t.Category == "" {
		t.Category = name
	}
	return t, nil
}

func decodeList(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, v)
}

func nameOrID(raw json.RawMessage) (string, int64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", 0, false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, 0, true
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		if id, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return "", id, true
		}
	}
	return "", 0, false
}

func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func firstInt(vals ...*int64) *int64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
